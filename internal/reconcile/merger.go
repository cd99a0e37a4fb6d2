package reconcile

import (
	"fmt"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

// unknownRoomName is treated like a missing name.
const unknownRoomName = "unknown"

// RoomMerger deduplicates rooms by identity key and deep-merges the
// duplicates into the first occurrence.
type RoomMerger struct {
	log *logger.Logger
}

// NewRoomMerger creates a merger. A nil logger discards output.
func NewRoomMerger(log *logger.Logger) *RoomMerger {
	if log == nil {
		log = logger.Nop()
	}
	return &RoomMerger{log: log}
}

// Merge folds rooms in order and returns one room per identity key, in
// order of first occurrence. The input is not modified.
func (m *RoomMerger) Merge(rooms []domain.Room) []domain.Room {
	out := make([]domain.Room, 0, len(rooms))
	index := make(map[string]int, len(rooms))
	unnamed := 0
	duplicates := 0

	for _, r := range rooms {
		key := roomKey(&r)
		if key == "" {
			key = fmt.Sprintf("\x00unnamed_room_%d", unnamed)
			unnamed++
		}

		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, m.seedRoom(r))
			continue
		}

		duplicates++
		m.mergeRoom(&out[i], r)
		m.log.Debug("reconcile.room.merged", "room", deref(r.Name), "key", key)
	}

	m.log.Info("reconcile.rooms.deduplicated", "input", len(rooms), "unique", len(out), "duplicates", duplicates)
	return out
}

// roomKey returns the identity key of r, "" when r has no usable name.
func roomKey(r *domain.Room) string {
	name := r.NameKey()
	if name == "" || name == unknownRoomName {
		return ""
	}
	if g := r.GroupingKey(); g != "" {
		return name + "::" + g
	}
	return name
}

// seedRoom copies the first occurrence of a room. Its collections are
// folded from empty, so duplicates inside one room collapse as they do
// across rooms.
func (m *RoomMerger) seedRoom(r domain.Room) domain.Room {
	out := r.Clone()
	out.LineItems = mergeLineItems(nil, r.LineItems)
	out.SubAreas = m.mergeSubAreas(nil, r.SubAreas, deref(r.Name))
	out.Validations = mergeValidations(nil, r.Validations)
	out.Features = seedFeatures(out.Features)
	return out
}

func (m *RoomMerger) mergeRoom(existing *domain.Room, incoming domain.Room) {
	existing.Dimensions = m.mergeDimensions(existing.Dimensions, incoming.Dimensions, deref(existing.Name))
	existing.LineItems = mergeLineItems(existing.LineItems, incoming.LineItems)
	existing.SubAreas = m.mergeSubAreas(existing.SubAreas, incoming.SubAreas, deref(existing.Name))

	if incoming.Features != nil {
		base := existing.Features
		if base == nil {
			base = []domain.Feature{}
		}
		existing.Features, _ = mergeFeatures(base, incoming.Features)
	}

	existing.Validations = mergeValidations(existing.Validations, incoming.Validations)
	existing.Extra = fillExtra(existing.Extra, incoming.Extra)
}

// mergeDimensions adopts incoming when existing is blank and, when both
// are objects, fills the keys existing lacks. Any other combination keeps
// existing untouched.
func (m *RoomMerger) mergeDimensions(existing, incoming domain.Value, room string) domain.Value {
	if incoming.IsBlank() {
		return existing
	}
	if existing.IsBlank() {
		return incoming.Clone()
	}
	eo, eok := existing.AsObject()
	in, iok := incoming.AsObject()
	if !eok || !iok {
		m.log.Debug("reconcile.dimensions.skipped", "room", room,
			"existing", existing.Kind().String(), "incoming", incoming.Kind().String())
		return existing
	}
	for _, k := range in.Keys() {
		v, _ := in.Get(k)
		if v.IsNull() {
			continue
		}
		if cur, ok := eo.Get(k); !ok || cur.IsNull() {
			eo.Set(k, v.Clone())
		}
	}
	return existing
}

// mergeLineItems appends incoming items whose signature is not yet present.
func mergeLineItems(existing, incoming []domain.LineItem) []domain.LineItem {
	if existing == nil {
		existing = []domain.LineItem{}
	}
	seen := make(map[domain.LineItemSignature]bool, len(existing))
	for _, li := range existing {
		seen[li.Signature()] = true
	}
	for _, li := range incoming {
		sig := li.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		existing = append(existing, li.Clone())
	}
	return existing
}

// mergeSubAreas matches incoming sub-areas by name within one room.
func (m *RoomMerger) mergeSubAreas(existing, incoming []domain.SubArea, room string) []domain.SubArea {
	if existing == nil {
		existing = []domain.SubArea{}
	}
	for _, sa := range incoming {
		i := findSubArea(existing, sa.NameKey())
		if i < 0 {
			seeded := sa.Clone()
			if seeded.LineItems != nil {
				seeded.LineItems = mergeLineItems(nil, sa.LineItems)
			}
			seeded.Features = seedFeatures(seeded.Features)
			existing = append(existing, seeded)
			continue
		}
		target := &existing[i]
		target.Dimensions = m.mergeDimensions(target.Dimensions, sa.Dimensions, room)
		if sa.LineItems != nil {
			target.LineItems = mergeLineItems(target.LineItems, sa.LineItems)
		}
		if sa.Features != nil {
			base := target.Features
			if base == nil {
				base = []domain.Feature{}
			}
			target.Features, _ = mergeFeatures(base, sa.Features)
		}
		target.Extra = fillExtra(target.Extra, sa.Extra)
	}
	return existing
}

func findSubArea(areas []domain.SubArea, key string) int {
	for i := range areas {
		if areas[i].NameKey() == key {
			return i
		}
	}
	return -1
}

// mergeValidations appends new rule ids and upgrades an existing entry to
// FLAGGED when incoming flags it. A FLAGGED entry is never downgraded.
func mergeValidations(existing, incoming []domain.Validation) []domain.Validation {
	if existing == nil {
		existing = []domain.Validation{}
	}
	for _, v := range incoming {
		key := v.RuleKey()
		if key == "" {
			continue
		}
		i := findValidation(existing, key)
		if i < 0 {
			existing = append(existing, v.Clone())
			continue
		}
		target := &existing[i]
		if !v.IsFlagged() || target.IsFlagged() {
			continue
		}
		target.Status = domain.StringPtr(domain.StatusFlagged)
		if !v.Details.IsNull() {
			target.Details = v.Details.Clone()
		}
		if !v.Severity.IsNull() {
			target.Severity = v.Severity.Clone()
		}
	}
	return existing
}

func findValidation(validations []domain.Validation, key string) int {
	for i := range validations {
		if validations[i].RuleKey() == key {
			return i
		}
	}
	return -1
}

// fillExtra copies keys existing lacks from incoming.
func fillExtra(existing, incoming *domain.Object) *domain.Object {
	if incoming.Len() == 0 {
		return existing
	}
	if existing == nil {
		return incoming.Clone()
	}
	for _, k := range incoming.Keys() {
		if existing.Has(k) {
			continue
		}
		v, _ := incoming.Get(k)
		existing.Set(k, v.Clone())
	}
	return existing
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
