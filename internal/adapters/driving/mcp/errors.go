// Package mcp provides an MCP (Model Context Protocol) server adapter for tally.
// It lets AI assistants process estimate text, merge chunk responses and
// browse run history.
package mcp

import "errors"

// ErrMissingEstimateService is returned when the estimate service is not provided.
var ErrMissingEstimateService = errors.New("mcp: estimate service is required")
