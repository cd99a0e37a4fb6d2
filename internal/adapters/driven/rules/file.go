package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// Ensure the file sources implement the interface.
var (
	_ driven.RuleSource = (*YAMLSource)(nil)
	_ driven.RuleSource = (*JSONSource)(nil)
)

// ruleFile is the document form of a rules file: either a bare list or a
// mapping with a rules key.
type ruleFile struct {
	Rules []domain.Rule `json:"rules" yaml:"rules"`
}

// YAMLSource reads rules from a YAML file.
type YAMLSource struct {
	path string
}

// NewYAMLSource creates a source over path.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

// Rules reads and decodes the file.
func (s *YAMLSource) Rules(_ context.Context) ([]domain.Rule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", s.path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	var list []domain.Rule
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		err = node.Content[0].Decode(&list)
	default:
		var doc ruleFile
		err = node.Content[0].Decode(&doc)
		list = doc.Rules
	}
	if err != nil {
		return nil, fmt.Errorf("decode rules file %s: %w", s.path, err)
	}
	return normalise(list), nil
}

// JSONSource reads rules from a JSON file.
type JSONSource struct {
	path string
}

// NewJSONSource creates a source over path.
func NewJSONSource(path string) *JSONSource {
	return &JSONSource{path: path}
}

// Rules reads and decodes the file.
func (s *JSONSource) Rules(_ context.Context) ([]domain.Rule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var list []domain.Rule
	if err := json.Unmarshal(data, &list); err == nil {
		return normalise(list), nil
	}
	var doc ruleFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", s.path, err)
	}
	return normalise(doc.Rules), nil
}
