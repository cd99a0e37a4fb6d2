package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// APIError is the body of an error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps an APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// respondDomainError maps domain sentinels to HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyDocument),
		errors.Is(err, domain.ErrUnsupportedType):
		respondError(c, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, domain.ErrRateLimited):
		respondError(c, http.StatusTooManyRequests, "rate_limited", err)
	case errors.Is(err, domain.ErrLLMUnavailable):
		respondError(c, http.StatusServiceUnavailable, "llm_unavailable", err)
	default:
		respondError(c, http.StatusInternalServerError, "internal", err)
	}
}

// respondRaw writes JSON that is already encoded.
func respondRaw(c *gin.Context, status int, data []byte) {
	c.Data(status, "application/json; charset=utf-8", data)
}
