package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

type mockEstimateService struct {
	pending      []string
	processed    []string
	failOn       string
	rules        []domain.Rule
	plan         domain.ChunkPlan
	gotResponses []string
	gotTruncated bool
}

func (m *mockEstimateService) Pending(_ context.Context) ([]string, error) {
	return m.pending, nil
}

func (m *mockEstimateService) Process(ctx context.Context, name string) (*driving.ProcessResult, error) {
	return m.ProcessText(ctx, name, "")
}

func (m *mockEstimateService) ProcessText(_ context.Context, name, _ string) (*driving.ProcessResult, error) {
	m.processed = append(m.processed, name)
	if name == m.failOn {
		return nil, domain.ErrLLMUnavailable
	}
	start := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	out := strings.TrimSuffix(name, ".txt") + ".json"
	return &driving.ProcessResult{
		Run: &domain.Run{
			ID: "run-" + name, DocumentName: name, OutputName: out, Model: "mock",
			Chunked: true, ChunkCount: 2, UnparsedChunks: []int{1}, RoomCount: 3,
			Status: domain.RunStatusPartial, StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		},
		Document: domain.NewCanonicalDocument(),
		Chunks: []driving.ChunkReport{
			{Index: 0, Strategy: "direct", Attempts: 1, Rooms: 3},
			{Index: 1, Strategy: "unparsed", Attempts: 1},
		},
	}, nil
}

func (m *mockEstimateService) Plan(_ string) domain.ChunkPlan { return m.plan }

func (m *mockEstimateService) Parse(_ context.Context, raw string, truncated bool) driving.ParsedResponse {
	m.gotTruncated = truncated
	v, err := domain.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return driving.ParsedResponse{Strategy: "unparsed"}
	}
	obj, ok := v.AsObject()
	if !ok {
		return driving.ParsedResponse{Strategy: "unparsed"}
	}
	return driving.ParsedResponse{Strategy: "direct", Object: obj}
}

func (m *mockEstimateService) Reconcile(_ context.Context, responses []string) (*domain.CanonicalDocument, error) {
	m.gotResponses = responses
	doc := domain.NewCanonicalDocument()
	doc.Rooms = []domain.Room{{Name: domain.StringPtr("Kitchen")}}
	return doc, nil
}

func (m *mockEstimateService) Rules(_ context.Context) ([]domain.Rule, error) {
	return m.rules, nil
}

type mockRunService struct {
	runs []domain.Run
}

func (m *mockRunService) List(_ context.Context, limit int) ([]domain.Run, error) {
	if limit > 0 && limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockRunService) Get(_ context.Context, id string) (*domain.Run, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRunService) ListByDocument(_ context.Context, name string) ([]domain.Run, error) {
	var out []domain.Run
	for _, r := range m.runs {
		if r.DocumentName == name {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	set         map[string]string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMEndpoint(baseURL, apiVersion string) error {
	m.settings.LLM.BaseURL = baseURL
	m.settings.LLM.APIVersion = apiVersion
	return nil
}

func (m *mockSettingsService) SetValue(key, value string) error {
	if key == "bogus" {
		return errors.New("unknown settings key: bogus")
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"llm.model", "processing.concurrency"}
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.validateErr }

type testServices struct {
	estimate *mockEstimateService
	runs     *mockRunService
	settings *mockSettingsService
}

// setupTestServices installs fresh mocks and resets command flags.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		estimate: &mockEstimateService{},
		runs:     &mockRunService{},
		settings: &mockSettingsService{settings: domain.DefaultAppSettings()},
	}
	SetServices(Services{Estimate: ts.estimate, Runs: ts.runs, Settings: ts.settings})
	resetFlags()
	t.Cleanup(func() {
		SetServices(Services{})
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})
	return ts
}

func resetFlags() {
	processJSON, processContinue = false, false
	parseTruncated = false
	mergeOutput = ""
	runsLimit, runsDocument, runsJSON, runsCanonical = 20, "", false, false
	exportOutput = ""
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
