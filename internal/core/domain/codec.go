package domain

// Conversions between the typed estimate entities and their Value form.
// Entries of the wrong shape are skipped rather than rejected.

// optString converts a scalar to a string pointer. ok is false for
// containers, which callers keep verbatim in Extra.
func optString(v Value) (p *string, ok bool) {
	switch v.Kind() {
	case KindNull:
		return nil, true
	case KindString, KindNumber, KindBool:
		s := v.Text()
		return &s, true
	default:
		return nil, false
	}
}

// objects returns the object entries of a list value.
func objects(v Value) []*Object {
	items, ok := v.AsList()
	if !ok {
		return nil
	}
	out := make([]*Object, 0, len(items))
	for _, item := range items {
		if obj, ok := item.AsObject(); ok {
			out = append(out, obj)
		}
	}
	return out
}

// stringField reads key as a string pointer. Containers move to extra;
// numbers and booleans are also kept there so they encode unchanged.
func stringField(obj *Object, key string, extra *Object) *string {
	v, present := obj.Get(key)
	if !present {
		return nil
	}
	p, ok := optString(v)
	if !ok || (p != nil && v.Kind() != KindString) {
		extra.Set(key, v)
	}
	return p
}

func extraFrom(obj *Object, known map[string]bool) *Object {
	extra := NewObject()
	for _, k := range obj.Keys() {
		if known[k] {
			continue
		}
		v, _ := obj.Get(k)
		extra.Set(k, v)
	}
	return extra
}

var roomKnown = map[string]bool{
	KeyName: true, KeyGrouping: true, KeyDimensions: true, KeyLineItems: true, KeyItems: true,
	KeySubAreas: true, KeyArchitecturalFeatures: true, KeyRuleValidations: true,
}

// RoomFromObject decodes a room. A missing line_items list falls back to items.
func RoomFromObject(obj *Object) Room {
	extra := extraFrom(obj, roomKnown)
	r := Room{
		Name:     stringField(obj, KeyName, extra),
		Grouping: stringField(obj, KeyGrouping, extra),
	}
	r.Dimensions, _ = obj.Get(KeyDimensions)

	items, ok := obj.Get(KeyLineItems)
	if !ok {
		items, ok = obj.Get(KeyItems)
	} else if alt, has := obj.Get(KeyItems); has {
		extra.Set(KeyItems, alt)
	}
	if ok {
		r.LineItems = lineItemsFrom(items)
	}
	if v, ok := obj.Get(KeySubAreas); ok {
		for _, sa := range objects(v) {
			r.SubAreas = append(r.SubAreas, SubAreaFromObject(sa))
		}
		if r.SubAreas == nil {
			r.SubAreas = []SubArea{}
		}
	}
	if v, ok := obj.Get(KeyArchitecturalFeatures); ok {
		r.Features = featuresFrom(v)
	}
	if v, ok := obj.Get(KeyRuleValidations); ok {
		for _, vo := range objects(v) {
			r.Validations = append(r.Validations, ValidationFromObject(vo))
		}
		if r.Validations == nil {
			r.Validations = []Validation{}
		}
	}
	if extra.Len() > 0 {
		r.Extra = extra
	}
	return r
}

var subAreaKnown = map[string]bool{
	KeyName: true, KeyDimensions: true, KeyLineItems: true, KeyItems: true, KeyArchitecturalFeatures: true,
}

// SubAreaFromObject decodes a sub-area.
func SubAreaFromObject(obj *Object) SubArea {
	extra := extraFrom(obj, subAreaKnown)
	s := SubArea{Name: stringField(obj, KeyName, extra)}
	s.Dimensions, _ = obj.Get(KeyDimensions)

	items, ok := obj.Get(KeyLineItems)
	if !ok {
		items, ok = obj.Get(KeyItems)
	} else if alt, has := obj.Get(KeyItems); has {
		extra.Set(KeyItems, alt)
	}
	if ok {
		s.LineItems = lineItemsFrom(items)
	}
	if v, ok := obj.Get(KeyArchitecturalFeatures); ok {
		s.Features = featuresFrom(v)
	}
	if extra.Len() > 0 {
		s.Extra = extra
	}
	return s
}

func lineItemsFrom(v Value) []LineItem {
	out := []LineItem{}
	for _, obj := range objects(v) {
		out = append(out, LineItem{Fields: obj})
	}
	return out
}

func featuresFrom(v Value) []Feature {
	out := []Feature{}
	for _, obj := range objects(v) {
		out = append(out, FeatureFromObject(obj))
	}
	return out
}

var featureKnown = map[string]bool{KeyFeatureType: true, KeyDimensionsRaw: true, KeyActionDescription: true}

// FeatureFromObject decodes an architectural feature.
func FeatureFromObject(obj *Object) Feature {
	extra := extraFrom(obj, featureKnown)
	f := Feature{
		FeatureType:       stringField(obj, KeyFeatureType, extra),
		DimensionsRaw:     stringField(obj, KeyDimensionsRaw, extra),
		ActionDescription: stringField(obj, KeyActionDescription, extra),
	}
	if extra.Len() > 0 {
		f.Extra = extra
	}
	return f
}

var validationKnown = map[string]bool{KeyRule: true, KeyStatus: true, KeyDetails: true, KeySeverity: true}

// ValidationFromObject decodes a rule validation.
func ValidationFromObject(obj *Object) Validation {
	extra := extraFrom(obj, validationKnown)
	v := Validation{
		Rule:   stringField(obj, KeyRule, extra),
		Status: stringField(obj, KeyStatus, extra),
	}
	v.Details, _ = obj.Get(KeyDetails)
	v.Severity, _ = obj.Get(KeySeverity)
	if extra.Len() > 0 {
		v.Extra = extra
	}
	return v
}

// setString writes p under key. The scalar it was read from is written
// instead while its text still matches.
func setString(obj *Object, key string, p *string, extra *Object) {
	if p == nil {
		return
	}
	if orig, ok := extra.Get(key); ok && orig.Kind() != KindString && orig.Text() == *p {
		obj.Set(key, orig)
		return
	}
	obj.Set(key, String(*p))
}

func setNonNull(obj *Object, key string, v Value) {
	if !v.IsNull() {
		obj.Set(key, v)
	}
}

func appendExtra(obj, extra *Object) {
	for _, k := range extra.Keys() {
		if obj.Has(k) {
			continue
		}
		v, _ := extra.Get(k)
		obj.Set(k, v)
	}
}

// ToObject encodes the room. The three collection keys a merged room
// always carries are emitted even when empty.
func (r Room) ToObject() *Object {
	obj := NewObject()
	setString(obj, KeyName, r.Name, r.Extra)
	setString(obj, KeyGrouping, r.Grouping, r.Extra)
	setNonNull(obj, KeyDimensions, r.Dimensions)
	if r.LineItems != nil {
		obj.Set(KeyLineItems, lineItemsValue(r.LineItems))
	}
	if r.SubAreas != nil {
		items := make([]Value, len(r.SubAreas))
		for i, sa := range r.SubAreas {
			items[i] = ObjectValue(sa.ToObject())
		}
		obj.Set(KeySubAreas, List(items...))
	}
	if r.Features != nil {
		obj.Set(KeyArchitecturalFeatures, featuresValue(r.Features))
	}
	if r.Validations != nil {
		items := make([]Value, len(r.Validations))
		for i, v := range r.Validations {
			items[i] = ObjectValue(v.ToObject())
		}
		obj.Set(KeyRuleValidations, List(items...))
	}
	appendExtra(obj, r.Extra)
	return obj
}

// ToObject encodes the sub-area.
func (s SubArea) ToObject() *Object {
	obj := NewObject()
	setString(obj, KeyName, s.Name, s.Extra)
	setNonNull(obj, KeyDimensions, s.Dimensions)
	if s.LineItems != nil {
		obj.Set(KeyLineItems, lineItemsValue(s.LineItems))
	}
	if s.Features != nil {
		obj.Set(KeyArchitecturalFeatures, featuresValue(s.Features))
	}
	appendExtra(obj, s.Extra)
	return obj
}

// ToObject encodes the feature.
func (f Feature) ToObject() *Object {
	obj := NewObject()
	setString(obj, KeyFeatureType, f.FeatureType, f.Extra)
	setString(obj, KeyDimensionsRaw, f.DimensionsRaw, f.Extra)
	setString(obj, KeyActionDescription, f.ActionDescription, f.Extra)
	appendExtra(obj, f.Extra)
	return obj
}

// ToObject encodes the validation.
func (v Validation) ToObject() *Object {
	obj := NewObject()
	setString(obj, KeyRule, v.Rule, v.Extra)
	setString(obj, KeyStatus, v.Status, v.Extra)
	setNonNull(obj, KeyDetails, v.Details)
	setNonNull(obj, KeySeverity, v.Severity)
	appendExtra(obj, v.Extra)
	return obj
}

func lineItemsValue(items []LineItem) Value {
	out := make([]Value, len(items))
	for i, li := range items {
		out[i] = ObjectValue(cloneObject(li.Fields))
	}
	return List(out...)
}

func featuresValue(features []Feature) Value {
	out := make([]Value, len(features))
	for i, f := range features {
		out[i] = ObjectValue(f.ToObject())
	}
	return List(out...)
}
