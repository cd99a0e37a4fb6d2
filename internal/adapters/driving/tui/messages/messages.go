// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewRuns lists processing runs.
	ViewRuns ViewType = iota
	// ViewRooms browses the rooms of one canonical document.
	ViewRooms
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewRuns:
		return "runs"
	case ViewRooms:
		return "rooms"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// RunsLoaded carries the run history from the service.
type RunsLoaded struct {
	Runs []domain.Run
	Err  error
}

// RunSelected signals a run was chosen for browsing.
type RunSelected struct {
	Run domain.Run
}

// DocumentLoaded carries a decoded canonical document.
type DocumentLoaded struct {
	// Title names the document in headers, usually the output name.
	Title    string
	Document *domain.CanonicalDocument
	Err      error
}

// RoomSelected is sent when the room cursor moves.
type RoomSelected struct {
	Index int
}
