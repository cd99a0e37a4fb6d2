package reconcile

import (
	"strings"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// recapKeys names the natural key fields of each recap list.
var recapKeys = map[string][]string{
	domain.KeyTaxRecap:       {domain.KeyDescription},
	domain.KeyRoomRecap:      {"room_name"},
	domain.KeyCategoryRecap:  {"category", "section_type"},
	domain.KeyReviewFindings: {domain.KeyDescription},
}

// recapList accumulates one recap list, keeping the first entry per key.
type recapList struct {
	fields []string
	items  []domain.Value
	seen   map[string]bool
}

func newRecapList(name string) *recapList {
	return &recapList{fields: recapKeys[name], items: []domain.Value{}, seen: make(map[string]bool)}
}

func (l *recapList) add(items []domain.Value) {
	for _, item := range items {
		key := l.key(item)
		if l.seen[key] {
			continue
		}
		l.seen[key] = true
		l.items = append(l.items, item.Clone())
	}
}

// key joins the natural key fields of item. Entries that are not objects
// are keyed by their encoding.
func (l *recapList) key(item domain.Value) string {
	obj, ok := item.AsObject()
	if !ok {
		raw, _ := item.MarshalJSON()
		return "\x00" + string(raw)
	}
	parts := make([]string, len(l.fields))
	for i, f := range l.fields {
		v, _ := obj.Get(f)
		parts[i] = v.Text()
	}
	return strings.Join(parts, "\x1f")
}

// fillTotals copies non-null values from incoming into keys of existing
// that are absent or null. Present values are never overwritten.
func fillTotals(existing, incoming *domain.Object) {
	for _, k := range incoming.Keys() {
		v, _ := incoming.Get(k)
		if v.IsNull() {
			continue
		}
		if cur, ok := existing.Get(k); ok && !cur.IsNull() {
			continue
		}
		existing.Set(k, v.Clone())
	}
}
