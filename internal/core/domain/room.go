package domain

import "strings"

// Wire keys used by the extraction schema.
const (
	KeyName                  = "name"
	KeyGrouping              = "grouping"
	KeyDimensions            = "dimensions"
	KeyLineItems             = "line_items"
	KeySubAreas              = "sub_areas"
	KeyArchitecturalFeatures = "architectural_features"
	KeyRuleValidations       = "rule_validations"
	KeyDescription           = "description"
	KeyQuantity              = "quantity"
	KeyFeatureType           = "feature_type"
	KeyDimensionsRaw         = "dimensions_raw"
	KeyActionDescription     = "action_description"
	KeyRule                  = "rule"
	KeyStatus                = "status"
	KeyDetails               = "details"
	KeySeverity              = "severity"

	// KeyItems is accepted in place of line_items.
	KeyItems = "items"
)

// Validation statuses.
const (
	StatusPassed  = "PASSED"
	StatusFlagged = "FLAGGED"
)

// Room is one top-level area of an estimate.
type Room struct {
	// Name is the room header as printed, nil when the oracle omitted it.
	Name *string

	// Grouping is the parent grouping header (e.g. "Main Level").
	Grouping *string

	// Dimensions is usually an object of measurements. Null when absent.
	Dimensions Value

	LineItems   []LineItem
	SubAreas    []SubArea
	Features    []Feature
	Validations []Validation

	// Extra holds keys this package does not model, in input order.
	Extra *Object
}

// SubArea is a nested area (closet, alcove, stairs) inside a Room.
type SubArea struct {
	Name       *string
	Dimensions Value
	LineItems  []LineItem
	Features   []Feature
	Extra      *Object
}

// LineItem is an estimate line. Only description and quantity are
// interpreted; every other field is carried through untouched.
type LineItem struct {
	Fields *Object
}

// Feature is an architectural feature such as a door or missing wall.
type Feature struct {
	FeatureType       *string
	DimensionsRaw     *string
	ActionDescription *string
	Extra             *Object
}

// Validation is the outcome of one rule checked against a room.
type Validation struct {
	Rule     *string
	Status   *string
	Details  Value
	Severity Value
	Extra    *Object
}

// FeatureSignature identifies a feature for deduplication.
type FeatureSignature struct {
	Type       string
	Dimensions string
}

// LineItemSignature identifies a line item for deduplication.
type LineItemSignature struct {
	Description string
	Quantity    string
}

// normalise lowercases and trims s.
func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// deref returns the pointed-to string or "".
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// NameKey returns the normalised name, "" when absent.
func (r *Room) NameKey() string {
	return normalise(deref(r.Name))
}

// GroupingKey returns the normalised grouping, "" when absent.
func (r *Room) GroupingKey() string {
	return normalise(deref(r.Grouping))
}

// Clone returns a deep copy of r.
func (r Room) Clone() Room {
	out := Room{
		Name:       clonePtr(r.Name),
		Grouping:   clonePtr(r.Grouping),
		Dimensions: r.Dimensions.Clone(),
		Extra:      cloneObject(r.Extra),
	}
	if r.LineItems != nil {
		out.LineItems = make([]LineItem, len(r.LineItems))
		for i, li := range r.LineItems {
			out.LineItems[i] = li.Clone()
		}
	}
	if r.SubAreas != nil {
		out.SubAreas = make([]SubArea, len(r.SubAreas))
		for i, sa := range r.SubAreas {
			out.SubAreas[i] = sa.Clone()
		}
	}
	out.Features = cloneFeatures(r.Features)
	if r.Validations != nil {
		out.Validations = make([]Validation, len(r.Validations))
		for i, v := range r.Validations {
			out.Validations[i] = v.Clone()
		}
	}
	return out
}

// NameKey returns the normalised sub-area name.
func (s *SubArea) NameKey() string {
	return normalise(deref(s.Name))
}

// Clone returns a deep copy of s.
func (s SubArea) Clone() SubArea {
	out := SubArea{
		Name:       clonePtr(s.Name),
		Dimensions: s.Dimensions.Clone(),
		Extra:      cloneObject(s.Extra),
		Features:   cloneFeatures(s.Features),
	}
	if s.LineItems != nil {
		out.LineItems = make([]LineItem, len(s.LineItems))
		for i, li := range s.LineItems {
			out.LineItems[i] = li.Clone()
		}
	}
	return out
}

// Description returns the description field, null when absent.
func (li LineItem) Description() Value {
	v, _ := li.Fields.Get(KeyDescription)
	return v
}

// Quantity returns the quantity field, null when absent.
func (li LineItem) Quantity() Value {
	v, _ := li.Fields.Get(KeyQuantity)
	return v
}

// Signature returns the deduplication key of the line item.
func (li LineItem) Signature() LineItemSignature {
	return LineItemSignature{
		Description: normalise(li.Description().Text()),
		Quantity:    li.Quantity().Text(),
	}
}

// Clone returns a deep copy of li.
func (li LineItem) Clone() LineItem {
	return LineItem{Fields: cloneObject(li.Fields)}
}

// TypeKey returns the normalised feature type.
func (f *Feature) TypeKey() string {
	return normalise(deref(f.FeatureType))
}

// HasDimensions reports whether the feature carries a usable dimension
// string. Blank values and the literal "none" count as missing.
func (f *Feature) HasDimensions() bool {
	d := normalise(deref(f.DimensionsRaw))
	return d != "" && d != "none" && d != "null"
}

// HasAction reports whether the feature carries an action description.
func (f *Feature) HasAction() bool {
	return strings.TrimSpace(deref(f.ActionDescription)) != ""
}

// IsOpensIntoFragment reports whether the feature type is really an
// action description ("Opens into Kitchen") split from its feature.
func (f *Feature) IsOpensIntoFragment() bool {
	return strings.HasPrefix(f.TypeKey(), "opens into")
}

// Signature returns the deduplication key of the feature.
func (f *Feature) Signature() FeatureSignature {
	sig := FeatureSignature{Type: f.TypeKey()}
	if f.HasDimensions() {
		sig.Dimensions = normalise(*f.DimensionsRaw)
	}
	return sig
}

// Clone returns a deep copy of f.
func (f Feature) Clone() Feature {
	return Feature{
		FeatureType:       clonePtr(f.FeatureType),
		DimensionsRaw:     clonePtr(f.DimensionsRaw),
		ActionDescription: clonePtr(f.ActionDescription),
		Extra:             cloneObject(f.Extra),
	}
}

// RuleKey returns the trimmed rule id.
func (v *Validation) RuleKey() string {
	return strings.TrimSpace(deref(v.Rule))
}

// IsFlagged reports whether the status is FLAGGED, ignoring case.
func (v *Validation) IsFlagged() bool {
	return strings.EqualFold(strings.TrimSpace(deref(v.Status)), StatusFlagged)
}

// Clone returns a deep copy of v.
func (v Validation) Clone() Validation {
	return Validation{
		Rule:     clonePtr(v.Rule),
		Status:   clonePtr(v.Status),
		Details:  v.Details.Clone(),
		Severity: v.Severity.Clone(),
		Extra:    cloneObject(v.Extra),
	}
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

func cloneObject(o *Object) *Object {
	if o == nil {
		return nil
	}
	return o.Clone()
}

func cloneFeatures(in []Feature) []Feature {
	if in == nil {
		return nil
	}
	out := make([]Feature, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}
