package parser

import (
	"strings"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// Unwrap replaces every string whose trimmed content starts with '{' or
// '[' and decodes as JSON with the decoded value, recursively. Strings
// that fail to decode are kept. Applying Unwrap twice equals applying it
// once.
func Unwrap(v domain.Value) domain.Value {
	switch v.Kind() {
	case domain.KindString:
		s, _ := v.AsString()
		t := strings.TrimSpace(s)
		if !strings.HasPrefix(t, "{") && !strings.HasPrefix(t, "[") {
			return v
		}
		nested, err := domain.DecodeString(t)
		if err != nil {
			return v
		}
		return Unwrap(nested)
	case domain.KindList:
		items, _ := v.AsList()
		out := make([]domain.Value, len(items))
		for i, item := range items {
			out[i] = Unwrap(item)
		}
		return domain.List(out...)
	case domain.KindObject:
		obj, _ := v.AsObject()
		out := domain.NewObject()
		for _, k := range obj.Keys() {
			item, _ := obj.Get(k)
			out.Set(k, Unwrap(item))
		}
		return domain.ObjectValue(out)
	default:
		return v
	}
}

// UnwrapObject is Unwrap over an object.
func UnwrapObject(obj *domain.Object) *domain.Object {
	out, _ := Unwrap(domain.ObjectValue(obj)).AsObject()
	return out
}
