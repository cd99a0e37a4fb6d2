package tui

import "errors"

// ErrMissingRunService is returned when the run service is not provided.
var ErrMissingRunService = errors.New("tui: run service is required")

// ErrMissingDocument is returned when a document browser is opened without a document.
var ErrMissingDocument = errors.New("tui: document is required")
