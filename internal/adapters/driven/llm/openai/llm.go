// Package openai provides an extraction oracle adapter for the OpenAI
// chat completions API and Azure OpenAI deployments.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.Oracle = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 10 * time.Minute

	// DefaultAzureAPIVersion is used when an Azure deployment has no api-version.
	DefaultAzureAPIVersion = "2024-06-01"
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI or Azure API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// For Azure it is the resource endpoint, e.g. https://acme.openai.azure.com.
	BaseURL string

	// Model is the model name, or the deployment name for Azure.
	Model string

	// Timeout is the request timeout (default: 10m).
	Timeout time.Duration

	// Azure selects deployment URLs and the api-key header.
	Azure bool

	// APIVersion is the Azure api-version query value.
	APIVersion string

	// HTTPClient replaces the default client.
	HTTPClient *http.Client
}

// LLMService provides completions using the OpenAI API.
type LLMService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	azure      bool
	apiVersion string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model          string              `json:"model,omitempty"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    *float64            `json:"temperature,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Azure && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: Azure endpoint is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.Azure && cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAzureAPIVersion
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &LLMService{
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		azure:      cfg.Azure,
		apiVersion: cfg.APIVersion,
	}, nil
}

// Complete sends one extraction request. When JSON mode is rejected the
// request is retried once without a response format.
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	temperature := req.Temperature
	body := chatCompletionRequest{
		Messages: []chatCompletionMsg{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}
	if !s.azure {
		body.Model = s.model
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	completion, err := s.chatCompletion(ctx, body)
	if err != nil && body.ResponseFormat != nil && isResponseFormatRejection(err) {
		body.ResponseFormat = nil
		return s.chatCompletion(ctx, body)
	}
	return completion, err
}

// rejection is a 400 response kept for inspection by Complete.
type rejection struct {
	status int
	err    *apiError
	body   string
}

func (r *rejection) Error() string {
	msg := r.body
	if r.err != nil {
		msg = r.err.Message
	}
	return fmt.Sprintf("openai error (status %d): %s", r.status, msg)
}

func (r *rejection) Unwrap() error {
	return domain.ErrOracleRejected
}

func isResponseFormatRejection(err error) bool {
	var rej *rejection
	if !errors.As(err, &rej) {
		return false
	}
	text := rej.body
	if rej.err != nil {
		text = rej.err.Param + " " + rej.err.Message
	}
	return strings.Contains(strings.ToLower(text), "response_format")
}

func (s *LLMService) chatCompletion(ctx context.Context, reqBody chatCompletionRequest) (*driven.Completion, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.completionsURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	decodeErr := json.Unmarshal(body, &chatResp)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("openai: %w (status %d): %s", domain.ErrRateLimited, resp.StatusCode, errorText(chatResp.Error, body))
	case resp.StatusCode == http.StatusBadRequest:
		return nil, &rejection{status: resp.StatusCode, err: chatResp.Error, body: string(body)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, errorText(chatResp.Error, body))
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no response choices returned")
	}

	choice := chatResp.Choices[0]
	return &driven.Completion{
		Text:             choice.Message.Content,
		FinishReason:     choice.FinishReason,
		PromptTokens:     chatResp.Usage.PromptTokens,
		CompletionTokens: chatResp.Usage.CompletionTokens,
	}, nil
}

func errorText(e *apiError, body []byte) string {
	if e != nil && e.Message != "" {
		return e.Message
	}
	return string(body)
}

// completionsURL returns the chat completions endpoint. Azure routes by
// deployment and requires an api-version query parameter.
func (s *LLMService) completionsURL() string {
	if !s.azure {
		return s.baseURL + "/chat/completions"
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		s.baseURL, url.PathEscape(s.model), url.QueryEscape(s.apiVersion))
}

func (s *LLMService) authorize(req *http.Request) {
	if s.azure {
		req.Header.Set("api-key", s.apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	pingURL := s.baseURL + "/models"
	if s.azure {
		pingURL = fmt.Sprintf("%s/openai/models?api-version=%s", s.baseURL, url.QueryEscape(s.apiVersion))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
