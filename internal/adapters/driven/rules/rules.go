package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// defaultGroup prefixes generated ids of rules without a check group.
const defaultGroup = "RULE"

// maxGroupPrefix is the longest group prefix used in a generated id.
const maxGroupPrefix = 10

// NewSource returns the rule source for path chosen by its extension.
// sheet only applies to spreadsheets.
func NewSource(path, sheet string) (driven.RuleSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: rules path is empty", domain.ErrInvalidInput)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return NewSpreadsheetSource(path, sheet), nil
	case ".yaml", ".yml":
		return NewYAMLSource(path), nil
	case ".json":
		return NewJSONSource(path), nil
	default:
		return nil, fmt.Errorf("%w: rules file %s", domain.ErrUnsupportedType, filepath.Base(path))
	}
}

// Static is a fixed in-memory rule list.
type Static []domain.Rule

// Ensure Static implements the interface.
var _ driven.RuleSource = Static(nil)

// Rules returns a copy of the list.
func (s Static) Rules(_ context.Context) ([]domain.Rule, error) {
	out := make([]domain.Rule, len(s))
	copy(out, s)
	return out, nil
}

// GenerateID builds the id of the rule at 1-based position n.
func GenerateID(checkGroup string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(checkGroup) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	prefix := []rune(b.String())
	if len(prefix) > maxGroupPrefix {
		prefix = prefix[:maxGroupPrefix]
	}
	if len(prefix) == 0 {
		prefix = []rune(defaultGroup)
	}
	return fmt.Sprintf("%s_%03d", string(prefix), n)
}

// normalise trims every field, fills missing ids and drops rules without
// criteria. Positions are counted before dropping.
func normalise(in []domain.Rule) []domain.Rule {
	out := make([]domain.Rule, 0, len(in))
	for i, r := range in {
		r.ID = strings.TrimSpace(r.ID)
		r.CheckGroup = strings.TrimSpace(r.CheckGroup)
		r.Description = strings.TrimSpace(r.Description)
		r.ValidationCriteria = strings.TrimSpace(r.ValidationCriteria)
		if r.ValidationCriteria == "" {
			continue
		}
		if r.ID == "" {
			r.ID = GenerateID(r.CheckGroup, i+1)
		}
		out = append(out, r)
	}
	return out
}
