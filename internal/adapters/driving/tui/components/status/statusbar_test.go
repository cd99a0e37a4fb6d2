package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.Count())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_Update(t *testing.T) {
	bar := NewBar(nil, nil)

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
	assert.Nil(t, bar.Init())
}

func TestStatusBar_Setters(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetState(StateLoading)
	bar.SetMessage("FLAGGED")
	bar.SetCount(4)
	bar.SetWidth(120)

	assert.Equal(t, StateLoading, bar.State())
	assert.Equal(t, "FLAGGED", bar.Message())
	assert.Equal(t, 4, bar.Count())
	assert.Equal(t, 120, bar.Width())
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetCount(3)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.Count())
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		message string
		count   int
		want    []string
	}{
		{"ready", StateReady, "", 0, []string{"Ready", "quit"}},
		{"loading", StateLoading, "", 0, []string{"Loading..."}},
		{"error", StateError, "", 0, []string{"Error"}},
		{"error with message", StateError, "db locked", 0, []string{"Error: db locked"}},
		{"help", StateHelp, "", 0, []string{"Help"}},
		{"runs", StateRuns, "", 7, []string{"7 runs", "select"}},
		{"rooms", StateRooms, "FLAGGED", 3, []string{"3 rooms", "FLAGGED", "flagged only"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(160)
			bar.SetState(tt.state)
			bar.SetMessage(tt.message)
			bar.SetCount(tt.count)

			view := bar.View()
			for _, want := range tt.want {
				assert.Contains(t, view, want)
			}
		})
	}
}

func TestState_Constants(t *testing.T) {
	assert.Equal(t, State("ready"), StateReady)
	assert.Equal(t, State("loading"), StateLoading)
	assert.Equal(t, State("error"), StateError)
	assert.Equal(t, State("help"), StateHelp)
	assert.Equal(t, State("runs"), StateRuns)
	assert.Equal(t, State("rooms"), StateRooms)
}
