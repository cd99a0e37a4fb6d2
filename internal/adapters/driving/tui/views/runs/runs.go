// Package runs provides the run history view for the TUI.
package runs

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

// DefaultLimit is the number of runs loaded.
const DefaultLimit = 50

// View lists processing runs, newest first.
type View struct {
	styles     *styles.Styles
	runService driving.RunService
	ctx        context.Context

	runs     []domain.Run
	selected int
	width    int
	height   int
	loading  bool
	err      error
}

// NewView creates a new runs view.
func NewView(s *styles.Styles, runService driving.RunService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:     s,
		runService: runService,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
}

// SetContext sets the context used for service calls.
func (v *View) SetContext(ctx context.Context) {
	if ctx != nil {
		v.ctx = ctx
	}
}

// Init loads the run history.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadRuns()
}

func (v *View) loadRuns() tea.Cmd {
	svc, ctx := v.runService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.RunsLoaded{Err: fmt.Errorf("run service not available")}
		}
		runs, err := svc.List(ctx, DefaultLimit)
		return messages.RunsLoaded{Runs: runs, Err: err}
	}
}

// Update handles messages for the runs view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.RunsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.runs = msg.Runs
			if v.selected >= len(v.runs) {
				v.selected = 0
			}
		}
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
		case "down", "j":
			if v.selected < len(v.runs)-1 {
				v.selected++
			}
		case "r":
			return v, v.Init()
		case "enter":
			if run := v.SelectedRun(); run != nil {
				selected := *run
				return v, func() tea.Msg { return messages.RunSelected{Run: selected} }
			}
		}
	}
	return v, nil
}

// View renders the runs view.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("tally runs"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading runs..."))
		return b.String()
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %v", v.err)))
		return b.String()
	case len(v.runs) == 0:
		b.WriteString(v.styles.Muted.Render("No runs yet. Process a document with 'tally process'."))
		return b.String()
	}

	header := fmt.Sprintf("  %-10s %-28s %-10s %5s %5s  %s", "ID", "DOCUMENT", "STATUS", "ROOMS", "FLAGS", "STARTED")
	b.WriteString(v.styles.Subtitle.Render(header))
	b.WriteString("\n")

	visible := v.height - 6
	if visible < 1 {
		visible = 1
	}
	start := 0
	if v.selected >= visible {
		start = v.selected - visible + 1
	}
	end := start + visible
	if end > len(v.runs) {
		end = len(v.runs)
	}
	for i := start; i < end; i++ {
		b.WriteString(v.renderRun(i, &v.runs[i]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *View) renderRun(index int, r *domain.Run) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := r.DocumentName
	if len(name) > 28 {
		name = name[:25] + "..."
	}
	line := fmt.Sprintf("%s%-10s %-28s %-10s %5d %5d  %s", indicator, id, name, r.Status,
		r.RoomCount, r.CriticalFlags, r.StartedAt.Local().Format("2006-01-02 15:04"))

	switch {
	case index == v.selected:
		return v.styles.Selected.Render(line)
	case r.Status == domain.RunStatusFailed:
		return v.styles.Error.Render(line)
	case r.Status == domain.RunStatusPartial:
		return v.styles.Warning.Render(line)
	default:
		return v.styles.Normal.Render(line)
	}
}

// SelectedRun returns the run under the cursor, or nil.
func (v *View) SelectedRun() *domain.Run {
	if v.selected < 0 || v.selected >= len(v.runs) {
		return nil
	}
	return &v.runs[v.selected]
}

// Runs returns the loaded runs.
func (v *View) Runs() []domain.Run {
	return v.runs
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}
