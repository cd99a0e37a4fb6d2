// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// RoomList displays the rooms of a document in a navigable list.
type RoomList struct {
	rooms    []domain.Room
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewRoomList creates a new room list component.
func NewRoomList(s *styles.Styles) *RoomList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &RoomList{
		styles: s,
		width:  32,
		height: 10,
	}
}

// Init initialises the room list.
func (r *RoomList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *RoomList) Update(msg tea.Msg) (*RoomList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		case "home", "g":
			r.selected = 0
		case "end", "G":
			if len(r.rooms) > 0 {
				r.selected = len(r.rooms) - 1
			}
		}
	}
	return r, nil
}

// View renders the room list.
func (r *RoomList) View() string {
	if len(r.rooms) == 0 {
		return r.styles.Muted.Render("No rooms")
	}

	lines := make([]string, 0, len(r.rooms)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Rooms (%d)", len(r.rooms))), "")

	visible := r.height - 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := start + visible
	if end > len(r.rooms) {
		end = len(r.rooms)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderRoom(i, &r.rooms[i]))
	}
	return strings.Join(lines, "\n")
}

// renderRoom formats one room line: name, then a flag marker.
func (r *RoomList) renderRoom(index int, room *domain.Room) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	name := RoomTitle(room)
	maxLen := r.width - 6
	if maxLen < 8 {
		maxLen = 8
	}
	if len(name) > maxLen {
		name = name[:maxLen-3] + "..."
	}

	marker := " "
	if FlaggedCount(room) > 0 {
		marker = "!"
	}
	line := fmt.Sprintf("%s%-*s %s", indicator, maxLen, name, marker)

	switch {
	case index == r.selected:
		return r.styles.Selected.Render(line)
	case marker == "!":
		return r.styles.Flagged.Render(line)
	default:
		return r.styles.Normal.Render(line)
	}
}

// RoomTitle returns the display name of a room.
func RoomTitle(room *domain.Room) string {
	if room.Name == nil || strings.TrimSpace(*room.Name) == "" {
		return "(unnamed)"
	}
	return *room.Name
}

// FlaggedCount returns the number of FLAGGED validations on a room.
func FlaggedCount(room *domain.Room) int {
	n := 0
	for i := range room.Validations {
		if room.Validations[i].IsFlagged() {
			n++
		}
	}
	return n
}

// SetRooms replaces the rooms and resets the cursor.
func (r *RoomList) SetRooms(rooms []domain.Room) {
	r.rooms = rooms
	r.selected = 0
}

// Rooms returns the current rooms.
func (r *RoomList) Rooms() []domain.Room {
	return r.rooms
}

// Selected returns the index of the selected room.
func (r *RoomList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *RoomList) SetSelected(index int) {
	if index >= 0 && index < len(r.rooms) {
		r.selected = index
	}
}

// SelectedRoom returns the currently selected room, or nil if none.
func (r *RoomList) SelectedRoom() *domain.Room {
	if len(r.rooms) == 0 || r.selected < 0 || r.selected >= len(r.rooms) {
		return nil
	}
	return &r.rooms[r.selected]
}

// MoveUp moves selection up.
func (r *RoomList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *RoomList) MoveDown() {
	if r.selected < len(r.rooms)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *RoomList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Width returns the current width.
func (r *RoomList) Width() int {
	return r.width
}

// Count returns the number of rooms.
func (r *RoomList) Count() int {
	return len(r.rooms)
}

// IsEmpty returns whether the list is empty.
func (r *RoomList) IsEmpty() bool {
	return len(r.rooms) == 0
}
