package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Top-level keys of a partial or canonical estimate document.
const (
	KeyDocumentMetadata   = "document_metadata"
	KeyValidationSummary  = "validation_summary"
	KeyRooms              = "rooms"
	KeyAreas              = "areas"
	KeyGrandTotalAreas    = "grand_total_areas"
	KeySummaryForDwelling = "summary_for_dwelling"
	KeyTaxRecap           = "Recap of Taxes Overhead and Profit"
	KeyRoomRecap          = "Recap by Room"
	KeyCategoryRecap      = "recap_by_category"
	KeyReviewFindings     = "review_findings"
	KeyUnparsedResponses  = "unparsed_responses"
	KeyMetadata           = "metadata"

	KeyTotalRulesChecked = "total_rules_checked"
	KeyCriticalFlags     = "critical_flags"
)

// ValidationSummary aggregates rule outcomes over a document.
type ValidationSummary struct {
	TotalRulesChecked int
	CriticalFlags     int
	Status            string
}

// ToObject encodes the summary.
func (s ValidationSummary) ToObject() *Object {
	obj := NewObject()
	obj.Set(KeyTotalRulesChecked, Int(s.TotalRulesChecked))
	obj.Set(KeyCriticalFlags, Int(s.CriticalFlags))
	status := s.Status
	if status == "" {
		status = StatusPassed
	}
	obj.Set(KeyStatus, String(status))
	return obj
}

// UnparsedResponse records an oracle response no parse strategy accepted.
type UnparsedResponse struct {
	ChunkIndex int
	Warning    string
	Raw        string
}

// ToObject encodes the unparsed response.
func (u UnparsedResponse) ToObject() *Object {
	obj := NewObject()
	obj.Set("chunk_index", Int(u.ChunkIndex))
	obj.Set("warning", String(u.Warning))
	obj.Set("raw_response", String(u.Raw))
	return obj
}

// PartialDocument is the structured result decoded from one chunk.
// The zero value is the empty document a failed chunk contributes.
type PartialDocument struct {
	Metadata           *Object
	Rooms              []Room
	GrandTotalAreas    *Object
	SummaryForDwelling *Object
	TaxRecap           []Value
	RoomRecap          []Value
	CategoryRecap      []Value
	ReviewFindings     []Value

	// Summary holds the per-chunk counters when the oracle reported them.
	Summary *ValidationSummary

	// Unparsed is set when the response could not be decoded at all.
	Unparsed *UnparsedResponse
}

// IsEmpty reports whether the partial carries nothing at all.
func (p *PartialDocument) IsEmpty() bool {
	return p.Metadata == nil && p.Rooms == nil && p.GrandTotalAreas == nil &&
		p.SummaryForDwelling == nil && p.TaxRecap == nil && p.RoomRecap == nil &&
		p.CategoryRecap == nil && p.ReviewFindings == nil && p.Summary == nil && p.Unparsed == nil
}

// DecodePartial converts a decoded oracle object into a PartialDocument.
// Rooms fall back to the areas key when rooms holds no objects. Fields of
// the wrong shape are skipped.
func DecodePartial(obj *Object) PartialDocument {
	var p PartialDocument
	if obj == nil {
		return p
	}
	if v, ok := obj.Get(KeyDocumentMetadata); ok {
		if m, ok := v.AsObject(); ok {
			p.Metadata = m
		}
	}
	if obj.Has(KeyRooms) || obj.Has(KeyAreas) {
		p.Rooms = []Room{}
		for _, ro := range roomObjects(obj) {
			p.Rooms = append(p.Rooms, RoomFromObject(ro))
		}
	}
	p.GrandTotalAreas = objectField(obj, KeyGrandTotalAreas)
	p.SummaryForDwelling = objectField(obj, KeySummaryForDwelling)
	p.TaxRecap = listField(obj, KeyTaxRecap)
	p.RoomRecap = listField(obj, KeyRoomRecap)
	p.CategoryRecap = listField(obj, KeyCategoryRecap)
	p.ReviewFindings = listField(obj, KeyReviewFindings)

	if v, ok := obj.Get(KeyValidationSummary); ok {
		if so, ok := v.AsObject(); ok {
			s := ValidationSummary{Status: StatusPassed}
			s.TotalRulesChecked = intField(so, KeyTotalRulesChecked)
			s.CriticalFlags = intField(so, KeyCriticalFlags)
			if st, ok := so.Get(KeyStatus); ok && st.Text() != "" {
				s.Status = strings.ToUpper(strings.TrimSpace(st.Text()))
			}
			p.Summary = &s
		}
	}
	return p
}

// roomObjects returns the room entries under rooms, or under areas when
// rooms is missing, null or has no object entries.
func roomObjects(obj *Object) []*Object {
	if v, ok := obj.Get(KeyRooms); ok {
		if rooms := objects(v); len(rooms) > 0 {
			return rooms
		}
	}
	if v, ok := obj.Get(KeyAreas); ok {
		return objects(v)
	}
	return nil
}

func objectField(obj *Object, key string) *Object {
	v, ok := obj.Get(key)
	if !ok {
		return nil
	}
	o, _ := v.AsObject()
	return o
}

func listField(obj *Object, key string) []Value {
	v, ok := obj.Get(key)
	if !ok {
		return nil
	}
	items, ok := v.AsList()
	if !ok {
		return nil
	}
	return items
}

// intField reads a counter leniently: numbers, numeric strings, and
// float literals truncated toward zero.
func intField(obj *Object, key string) int {
	v, ok := obj.Get(key)
	if !ok {
		return 0
	}
	text := strings.TrimSpace(v.Text())
	if n, err := strconv.Atoi(text); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int(f)
	}
	return 0
}

// CanonicalDocument is the single merged record for one estimate.
type CanonicalDocument struct {
	Metadata           *Object
	Summary            ValidationSummary
	Rooms              []Room
	GrandTotalAreas    *Object
	SummaryForDwelling *Object
	TaxRecap           []Value
	RoomRecap          []Value
	CategoryRecap      []Value
	ReviewFindings     []Value
	Unparsed           []UnparsedResponse

	// Run holds processing metadata stamped after reconciliation.
	Run *Object
}

// NewCanonicalDocument returns an empty document with a PASSED summary.
func NewCanonicalDocument() *CanonicalDocument {
	return &CanonicalDocument{
		Metadata:           NewObject(),
		Summary:            ValidationSummary{Status: StatusPassed},
		Rooms:              []Room{},
		GrandTotalAreas:    NewObject(),
		SummaryForDwelling: NewObject(),
		TaxRecap:           []Value{},
		RoomRecap:          []Value{},
		CategoryRecap:      []Value{},
		ReviewFindings:     []Value{},
	}
}

// ToObject encodes the document in its stable key order.
func (d *CanonicalDocument) ToObject() *Object {
	obj := NewObject()
	obj.Set(KeyDocumentMetadata, ObjectValue(cloneObject(d.Metadata)))
	obj.Set(KeyValidationSummary, ObjectValue(d.Summary.ToObject()))

	rooms := make([]Value, len(d.Rooms))
	for i, r := range d.Rooms {
		rooms[i] = ObjectValue(r.ToObject())
	}
	obj.Set(KeyRooms, List(rooms...))
	obj.Set(KeyGrandTotalAreas, ObjectValue(cloneObject(d.GrandTotalAreas)))
	obj.Set(KeySummaryForDwelling, ObjectValue(cloneObject(d.SummaryForDwelling)))
	obj.Set(KeyTaxRecap, List(d.TaxRecap...))
	obj.Set(KeyRoomRecap, List(d.RoomRecap...))
	obj.Set(KeyCategoryRecap, List(d.CategoryRecap...))
	obj.Set(KeyReviewFindings, List(d.ReviewFindings...))

	if len(d.Unparsed) > 0 {
		items := make([]Value, len(d.Unparsed))
		for i, u := range d.Unparsed {
			items[i] = ObjectValue(u.ToObject())
		}
		obj.Set(KeyUnparsedResponses, List(items...))
	}
	if d.Run != nil {
		obj.Set(KeyMetadata, ObjectValue(d.Run))
	}
	return obj
}

// MarshalJSON encodes the document in its stable key order.
func (d *CanonicalDocument) MarshalJSON() ([]byte, error) {
	return d.ToObject().MarshalJSON()
}

// MarshalIndent encodes the document with two-space indentation.
func (d *CanonicalDocument) MarshalIndent() ([]byte, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// DecodeCanonical reads a previously saved canonical document.
func DecodeCanonical(obj *Object) *CanonicalDocument {
	p := DecodePartial(obj)
	d := NewCanonicalDocument()
	if p.Metadata != nil {
		d.Metadata = p.Metadata
	}
	if p.Summary != nil {
		d.Summary = *p.Summary
	}
	if p.Rooms != nil {
		d.Rooms = p.Rooms
	}
	if p.GrandTotalAreas != nil {
		d.GrandTotalAreas = p.GrandTotalAreas
	}
	if p.SummaryForDwelling != nil {
		d.SummaryForDwelling = p.SummaryForDwelling
	}
	if p.TaxRecap != nil {
		d.TaxRecap = p.TaxRecap
	}
	if p.RoomRecap != nil {
		d.RoomRecap = p.RoomRecap
	}
	if p.CategoryRecap != nil {
		d.CategoryRecap = p.CategoryRecap
	}
	if p.ReviewFindings != nil {
		d.ReviewFindings = p.ReviewFindings
	}
	for _, u := range objects(listValue(obj, KeyUnparsedResponses)) {
		raw, _ := u.Get("raw_response")
		warning, _ := u.Get("warning")
		d.Unparsed = append(d.Unparsed, UnparsedResponse{
			ChunkIndex: intField(u, "chunk_index"),
			Warning:    warning.Text(),
			Raw:        raw.Text(),
		})
	}
	d.Run = objectField(obj, KeyMetadata)
	return d
}

func listValue(obj *Object, key string) Value {
	v, _ := obj.Get(key)
	return v
}

// ParseCanonical decodes a canonical document from its JSON form.
func ParseCanonical(data []byte) (*CanonicalDocument, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: document is %s, want object", ErrInvalidInput, v.Kind())
	}
	return DecodeCanonical(obj), nil
}
