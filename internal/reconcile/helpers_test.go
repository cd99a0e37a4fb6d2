package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// roomsFrom decodes a JSON array of rooms.
func roomsFrom(t *testing.T, raw string) []domain.Room {
	t.Helper()
	v, err := domain.DecodeString(raw)
	require.NoError(t, err)
	items, ok := v.AsList()
	require.True(t, ok, "want a JSON array")

	rooms := make([]domain.Room, 0, len(items))
	for _, item := range items {
		obj, ok := item.AsObject()
		require.True(t, ok)
		rooms = append(rooms, domain.RoomFromObject(obj))
	}
	return rooms
}

// partialFrom decodes a JSON object into a partial document.
func partialFrom(t *testing.T, raw string) domain.PartialDocument {
	t.Helper()
	v, err := domain.DecodeString(raw)
	require.NoError(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok, "want a JSON object")
	return domain.DecodePartial(obj)
}

// encodeRooms renders rooms as a JSON array.
func encodeRooms(t *testing.T, rooms []domain.Room) string {
	t.Helper()
	items := make([]domain.Value, len(rooms))
	for i, r := range rooms {
		items[i] = domain.ObjectValue(r.ToObject())
	}
	raw, err := domain.List(items...).MarshalJSON()
	require.NoError(t, err)
	return string(raw)
}

func encodeFeatures(t *testing.T, features []domain.Feature) string {
	t.Helper()
	items := make([]domain.Value, len(features))
	for i, f := range features {
		items[i] = domain.ObjectValue(f.ToObject())
	}
	raw, err := domain.List(items...).MarshalJSON()
	require.NoError(t, err)
	return string(raw)
}
