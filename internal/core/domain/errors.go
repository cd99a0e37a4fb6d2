package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, backend or file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmptyDocument indicates the source document has no text to process.
	ErrEmptyDocument = errors.New("document has no text")

	// ErrLLMUnavailable indicates the extraction oracle is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrRateLimited indicates the oracle rejected a call for rate limiting.
	// The dispatcher backs off before the next call.
	ErrRateLimited = errors.New("rate limited")

	// ErrOracleRejected indicates the oracle refused the request itself,
	// for example an unsupported response format.
	ErrOracleRejected = errors.New("oracle rejected request")

	// ErrNoRules indicates a rule source yielded no usable rules.
	ErrNoRules = errors.New("no validation rules")
)
