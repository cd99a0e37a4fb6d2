// Package rooms provides the room browser for one canonical document.
package rooms

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// listWidth is the width of the room list column.
const listWidth = 34

// View is a two-pane browser: rooms on the left, the selected room on the right.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap

	list   *list.RoomList
	detail viewport.Model
	filter textinput.Model

	title       string
	doc         *domain.CanonicalDocument
	filtering   bool
	flaggedOnly bool
	width       int
	height      int
}

// NewView creates a new rooms view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "room name"
	ti.CharLimit = 64

	v := &View{
		styles: s,
		keymap: km,
		list:   list.NewRoomList(s),
		detail: viewport.New(40, 10),
		filter: ti,
	}
	v.SetDimensions(80, 24)
	return v
}

// SetDocument replaces the document being browsed.
func (v *View) SetDocument(title string, doc *domain.CanonicalDocument) {
	v.title = title
	v.doc = doc
	v.filtering = false
	v.flaggedOnly = false
	v.filter.Reset()
	v.filter.Blur()
	v.applyFilter()
}

// Document returns the document being browsed.
func (v *View) Document() *domain.CanonicalDocument {
	return v.doc
}

// Filtering reports whether the name filter has focus.
func (v *View) Filtering() bool {
	return v.filtering
}

// FlaggedOnly reports whether only flagged rooms are listed.
func (v *View) FlaggedOnly() bool {
	return v.flaggedOnly
}

// VisibleRooms returns the rooms currently listed.
func (v *View) VisibleRooms() []domain.Room {
	return v.list.Rooms()
}

// SelectedRoom returns the room under the cursor, or nil.
func (v *View) SelectedRoom() *domain.Room {
	return v.list.SelectedRoom()
}

// Init implements the view lifecycle.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the rooms view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	if v.filtering {
		switch km.Type {
		case tea.KeyEnter:
			v.filtering = false
			v.filter.Blur()
			return v, nil
		case tea.KeyEsc:
			v.filtering = false
			v.filter.Reset()
			v.filter.Blur()
			v.applyFilter()
			return v, nil
		}
		var cmd tea.Cmd
		v.filter, cmd = v.filter.Update(msg)
		v.applyFilter()
		return v, cmd
	}

	key := km.String()
	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewRuns} }
	case keymap.Matches(key, v.keymap.Filter):
		v.filtering = true
		return v, v.filter.Focus()
	case keymap.Matches(key, v.keymap.Flagged):
		v.flaggedOnly = !v.flaggedOnly
		v.applyFilter()
		return v, nil
	case keymap.Matches(key, v.keymap.ScrollUp):
		v.detail.HalfViewUp()
		return v, nil
	case keymap.Matches(key, v.keymap.ScrollDown):
		v.detail.HalfViewDown()
		return v, nil
	}

	before := v.list.Selected()
	v.list, _ = v.list.Update(msg)
	if v.list.Selected() != before {
		v.refreshDetail()
		index := v.list.Selected()
		return v, func() tea.Msg { return messages.RoomSelected{Index: index} }
	}
	return v, nil
}

// applyFilter rebuilds the room list from the document and the filters.
func (v *View) applyFilter() {
	var rooms []domain.Room
	if v.doc != nil {
		needle := strings.ToLower(strings.TrimSpace(v.filter.Value()))
		for i := range v.doc.Rooms {
			r := &v.doc.Rooms[i]
			if v.flaggedOnly && list.FlaggedCount(r) == 0 {
				continue
			}
			if needle != "" && !strings.Contains(r.NameKey(), needle) {
				continue
			}
			rooms = append(rooms, *r)
		}
	}
	v.list.SetRooms(rooms)
	v.refreshDetail()
}

func (v *View) refreshDetail() {
	room := v.list.SelectedRoom()
	if room == nil {
		v.detail.SetContent(v.styles.Muted.Render("Nothing selected"))
	} else {
		v.detail.SetContent(renderRoom(v.styles, room, v.detail.Width))
	}
	v.detail.GotoTop()
}

// View renders the rooms view.
func (v *View) View() string {
	if v.doc == nil {
		return v.styles.Muted.Render("No document loaded")
	}

	header := v.styles.Title.Render(v.title)
	s := v.doc.Summary
	status := s.Status
	if status == "" {
		status = domain.StatusPassed
	}
	summary := fmt.Sprintf("rules %d  flags %d  ", s.TotalRulesChecked, s.CriticalFlags) +
		v.styles.Status(status).Render(status)
	if len(v.doc.Unparsed) > 0 {
		summary += v.styles.Warning.Render(fmt.Sprintf("  unparsed chunks %d", len(v.doc.Unparsed)))
	}
	if v.flaggedOnly {
		summary += v.styles.Muted.Render("  [flagged only]")
	}

	left := v.styles.Panel.Width(listWidth).Render(v.list.View())
	right := v.styles.Panel.Render(v.detail.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	parts := []string{header + "  " + summary, body}
	if v.filtering || v.filter.Value() != "" {
		parts = append(parts, v.styles.InputField.Render(v.filter.View()))
	}
	return strings.Join(parts, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height

	paneHeight := height - 6
	if paneHeight < 3 {
		paneHeight = 3
	}
	detailWidth := width - listWidth - 8
	if detailWidth < 20 {
		detailWidth = 20
	}
	v.list.SetDimensions(listWidth, paneHeight)
	v.detail.Width = detailWidth
	v.detail.Height = paneHeight
	v.refreshDetail()
}
