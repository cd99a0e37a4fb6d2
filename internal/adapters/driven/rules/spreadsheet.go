package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// Ensure SpreadsheetSource implements the interface.
var _ driven.RuleSource = (*SpreadsheetSource)(nil)

// SpreadsheetSource reads rules from an .xlsx workbook. The first row is
// the header. Columns are found by header text and fall back to position:
// check group, business rule, logic.
type SpreadsheetSource struct {
	path  string
	sheet string
}

// NewSpreadsheetSource creates a source over path. An empty sheet reads the
// first sheet of the workbook.
func NewSpreadsheetSource(path, sheet string) *SpreadsheetSource {
	return &SpreadsheetSource{path: path, sheet: sheet}
}

// Rules opens the workbook and reads every data row.
func (s *SpreadsheetSource) Rules(ctx context.Context) ([]domain.Rule, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open rules workbook: %w", err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, fmt.Errorf("%w: sheet %q in %s", domain.ErrNotFound, sheet, s.path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rulesFromRows(rows), nil
}

type columns struct {
	id, group, description, criteria int
}

// detectColumns maps header cells to rule fields. Unmatched fields take
// the first, second and third columns.
func detectColumns(header []string) columns {
	c := columns{id: -1, group: -1, description: -1, criteria: -1}
	for i, cell := range header {
		h := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case c.id == -1 && (h == "id" || h == "rule id" || h == "rule_id"):
			c.id = i
		case c.group == -1 && strings.Contains(h, "check group"):
			c.group = i
		case c.description == -1 && strings.Contains(h, "example rule") && strings.Contains(h, "business"):
			c.description = i
		case c.criteria == -1 && (strings.Contains(h, "example logic") ||
			(strings.Contains(h, "logic") && strings.Contains(h, "pseudo"))):
			c.criteria = i
		}
	}
	if c.group == -1 && len(header) > 0 {
		c.group = 0
	}
	if c.description == -1 && len(header) > 1 {
		c.description = 1
	}
	if c.criteria == -1 && len(header) > 2 {
		c.criteria = 2
	}
	return c
}

func rulesFromRows(rows [][]string) []domain.Rule {
	if len(rows) == 0 {
		return nil
	}
	cols := detectColumns(rows[0])
	raw := make([]domain.Rule, 0, len(rows)-1)
	for _, row := range rows[1:] {
		raw = append(raw, domain.Rule{
			ID:                 cell(row, cols.id),
			CheckGroup:         cell(row, cols.group),
			Description:        cell(row, cols.description),
			ValidationCriteria: cell(row, cols.criteria),
		})
	}
	return normalise(raw)
}

// cell returns row[i], "" when the row is short or i is unset.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
