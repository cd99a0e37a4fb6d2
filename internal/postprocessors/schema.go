package postprocessors

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

//go:embed partial.schema.json
var partialSchema []byte

const schemaURL = "partial.schema.json"

// maxReportedViolations bounds how many violations one warning lists.
const maxReportedViolations = 10

// SchemaProcessor checks objects against the partial document schema.
// Violations are logged; the object always passes through unchanged.
type SchemaProcessor struct {
	schema *jsonschema.Schema
	log    *logger.Logger
}

var _ driven.PostProcessor = (*SchemaProcessor)(nil)

// NewSchemaProcessor compiles the embedded schema.
func NewSchemaProcessor(log *logger.Logger) (*SchemaProcessor, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(partialSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaProcessor{schema: schema, log: log}, nil
}

// Name returns the processor name.
func (p *SchemaProcessor) Name() string {
	return NameSchema
}

// Process logs schema violations and returns obj.
func (p *SchemaProcessor) Process(_ context.Context, obj *domain.Object) (*domain.Object, error) {
	if err := p.Check(obj); err != nil {
		p.log.Warn("postprocess.schema.mismatch",
			"violations", Violations(err),
		)
	}
	return obj, nil
}

// Check validates obj and returns the validation error, if any.
func (p *SchemaProcessor) Check(obj *domain.Object) error {
	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal object: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal object: %w", err)
	}
	if err := p.schema.Validate(v); err != nil {
		return fmt.Errorf("object does not match schema: %w", err)
	}
	return nil
}

// Violations flattens a validation error into "location: message" lines.
func Violations(err error) []string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(out) >= maxReportedViolations {
			return
		}
		if len(e.Causes) == 0 {
			out = append(out, e.InstanceLocation+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	return out
}
