// Package export renders canonical estimate documents as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// Sheet names of an exported workbook.
const (
	SheetSummary     = "Summary"
	SheetLineItems   = "Line Items"
	SheetFeatures    = "Features"
	SheetValidations = "Validations"
)

var (
	lineItemHeaders   = []string{"Grouping", "Room", "Sub-area", "Description", "Quantity", "Other Fields"}
	featureHeaders    = []string{"Grouping", "Room", "Sub-area", "Feature", "Dimensions", "Action"}
	validationHeaders = []string{"Grouping", "Room", "Rule", "Status", "Severity", "Details"}
)

// Workbook writes doc as an .xlsx file with one sheet per table.
func Workbook(doc *domain.CanonicalDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetLineItems, SheetFeatures, SheetValidations} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	w := &sheetWriter{f: f}
	w.summary(doc)
	w.lineItems(doc)
	w.features(doc)
	w.validations(doc)
	if w.err != nil {
		return nil, fmt.Errorf("xlsx write: %w", w.err)
	}

	_ = f.SetColWidth(SheetLineItems, "A", "C", 18)
	_ = f.SetColWidth(SheetLineItems, "D", "D", 48)
	_ = f.SetColWidth(SheetLineItems, "F", "F", 60)
	_ = f.SetColWidth(SheetValidations, "F", "F", 60)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first cell error so callers check once.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) row(sheet string, r int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) summary(doc *domain.CanonicalDocument) {
	r := 1
	w.row(SheetSummary, r, "Field", "Value")
	r++
	w.row(SheetSummary, r, "Rules checked", doc.Summary.TotalRulesChecked)
	r++
	w.row(SheetSummary, r, "Critical flags", doc.Summary.CriticalFlags)
	r++
	w.row(SheetSummary, r, "Status", doc.Summary.Status)
	r++
	w.row(SheetSummary, r, "Rooms", len(doc.Rooms))
	r++
	for _, k := range doc.Metadata.Keys() {
		v, _ := doc.Metadata.Get(k)
		w.row(SheetSummary, r, k, cellText(v))
		r++
	}
	for _, k := range doc.Run.Keys() {
		v, _ := doc.Run.Get(k)
		w.row(SheetSummary, r, "metadata."+k, cellText(v))
		r++
	}
}

func (w *sheetWriter) lineItems(doc *domain.CanonicalDocument) {
	w.row(SheetLineItems, 1, toAny(lineItemHeaders)...)
	r := 2
	emit := func(grouping, room, sub string, items []domain.LineItem) {
		for _, li := range items {
			w.row(SheetLineItems, r, grouping, room, sub,
				li.Description().Text(), cellText(li.Quantity()), otherFields(li.Fields))
			r++
		}
	}
	for _, room := range doc.Rooms {
		grouping, name := text(room.Grouping), text(room.Name)
		emit(grouping, name, "", room.LineItems)
		for _, sa := range room.SubAreas {
			emit(grouping, name, text(sa.Name), sa.LineItems)
		}
	}
}

func (w *sheetWriter) features(doc *domain.CanonicalDocument) {
	w.row(SheetFeatures, 1, toAny(featureHeaders)...)
	r := 2
	emit := func(grouping, room, sub string, features []domain.Feature) {
		for _, f := range features {
			w.row(SheetFeatures, r, grouping, room, sub,
				text(f.FeatureType), text(f.DimensionsRaw), text(f.ActionDescription))
			r++
		}
	}
	for _, room := range doc.Rooms {
		grouping, name := text(room.Grouping), text(room.Name)
		emit(grouping, name, "", room.Features)
		for _, sa := range room.SubAreas {
			emit(grouping, name, text(sa.Name), sa.Features)
		}
	}
}

func (w *sheetWriter) validations(doc *domain.CanonicalDocument) {
	w.row(SheetValidations, 1, toAny(validationHeaders)...)
	r := 2
	for _, room := range doc.Rooms {
		for _, v := range room.Validations {
			w.row(SheetValidations, r, text(room.Grouping), text(room.Name),
				text(v.Rule), text(v.Status), cellText(v.Severity), cellText(v.Details))
			r++
		}
	}
}

// cellText renders scalars as text and containers as compact JSON.
func cellText(v domain.Value) string {
	switch v.Kind() {
	case domain.KindList, domain.KindObject:
		raw, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(raw)
	default:
		return v.Text()
	}
}

// otherFields joins the line item fields besides description and quantity.
func otherFields(fields *domain.Object) string {
	var parts []string
	for _, k := range fields.Keys() {
		if k == domain.KeyDescription || k == domain.KeyQuantity {
			continue
		}
		v, _ := fields.Get(k)
		parts = append(parts, k+"="+cellText(v))
	}
	return strings.Join(parts, "; ")
}

func text(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
