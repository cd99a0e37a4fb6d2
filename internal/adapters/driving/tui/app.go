package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/views/rooms"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/views/runs"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	bar    *status.Bar

	runsView  *runs.View
	roomsView *rooms.View

	// standalone is set when the app browses a single document and has
	// no run history to return to.
	standalone bool

	currentView  messages.ViewType
	previousView messages.ViewType

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a TUI that starts on the run history.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	a := newApp(ports)
	a.currentView = messages.ViewRuns
	a.bar.SetState(status.StateLoading)
	return a, nil
}

// NewDocumentApp creates a TUI that browses one canonical document.
func NewDocumentApp(title string, doc *domain.CanonicalDocument) (*App, error) {
	if doc == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingDocument)
	}
	a := newApp(&Ports{})
	a.standalone = true
	a.openDocument(title, doc)
	return a, nil
}

func newApp(ports *Ports) *App {
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:     ports,
		ctx:       context.Background(),
		styles:    s,
		keymap:    km,
		bar:       status.NewBar(s, km),
		runsView:  runs.NewView(s, ports.Runs),
		roomsView: rooms.NewView(s, km),
	}
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	if ctx != nil {
		a.ctx = ctx
		a.runsView.SetContext(ctx)
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	title := tea.SetWindowTitle("tally")
	if a.standalone {
		return title
	}
	return tea.Batch(title, a.runsView.Init())
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewRooms && a.roomsView.Filtering() {
			a.roomsView, cmd = a.roomsView.Update(msg)
			return a, cmd
		}
		switch {
		case keymap.Matches(key, a.keymap.Quit):
			return a, tea.Quit
		case keymap.Matches(key, a.keymap.Help):
			a.toggleHelp()
			return a, nil
		}

		switch a.currentView {
		case messages.ViewRuns:
			a.runsView, cmd = a.runsView.Update(msg)
		case messages.ViewRooms:
			a.roomsView, cmd = a.roomsView.Update(msg)
		case messages.ViewHelp:
			if keymap.Matches(key, a.keymap.Back) {
				a.toggleHelp()
			}
		}
		return a, cmd

	case messages.RunsLoaded:
		a.runsView, cmd = a.runsView.Update(msg)
		if msg.Err != nil {
			a.setError(msg.Err)
		} else {
			a.bar.Clear()
			a.bar.SetState(status.StateRuns)
			a.bar.SetCount(len(msg.Runs))
		}
		return a, cmd

	case messages.RunSelected:
		a.bar.SetState(status.StateLoading)
		return a, a.loadRunDocument(msg.Run)

	case messages.DocumentLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.openDocument(msg.Title, msg.Document)
		return a, nil

	case messages.ViewChanged:
		if msg.View == messages.ViewRuns {
			if a.standalone {
				return a, tea.Quit
			}
			a.currentView = messages.ViewRuns
			a.err = nil
			a.bar.Clear()
			a.bar.SetState(status.StateRuns)
			a.bar.SetCount(len(a.runsView.Runs()))
			return a, nil
		}
		a.currentView = msg.View
		return a, nil

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) toggleHelp() {
	if a.currentView == messages.ViewHelp {
		a.currentView = a.previousView
		a.bar.SetState(a.stateFor(a.currentView))
		return
	}
	a.previousView = a.currentView
	a.currentView = messages.ViewHelp
	a.bar.SetState(status.StateHelp)
}

func (a *App) stateFor(v messages.ViewType) status.State {
	switch v {
	case messages.ViewRuns:
		return status.StateRuns
	case messages.ViewRooms:
		return status.StateRooms
	default:
		return status.StateReady
	}
}

func (a *App) setError(err error) {
	a.err = err
	a.bar.SetState(status.StateError)
	a.bar.SetMessage(err.Error())
}

func (a *App) openDocument(title string, doc *domain.CanonicalDocument) {
	a.roomsView.SetDocument(title, doc)
	a.currentView = messages.ViewRooms
	a.err = nil
	a.bar.Clear()
	a.bar.SetState(status.StateRooms)
	a.bar.SetCount(len(doc.Rooms))
	a.bar.SetMessage(doc.Summary.Status)
}

// loadRunDocument fetches and decodes the canonical document of a run.
func (a *App) loadRunDocument(run domain.Run) tea.Cmd {
	svc, ctx := a.ports.Runs, a.ctx
	return func() tea.Msg {
		data := run.Canonical
		if len(data) == 0 && svc != nil {
			full, err := svc.Get(ctx, run.ID)
			if err != nil {
				return messages.DocumentLoaded{Err: fmt.Errorf("loading run %s: %w", run.ID, err)}
			}
			data = full.Canonical
		}
		if len(data) == 0 {
			return messages.DocumentLoaded{Err: fmt.Errorf("run %s has no saved document", run.ID)}
		}
		doc, err := domain.ParseCanonical(data)
		if err != nil {
			return messages.DocumentLoaded{Err: fmt.Errorf("decoding run %s: %w", run.ID, err)}
		}
		title := run.OutputName
		if title == "" {
			title = run.DocumentName
		}
		return messages.DocumentLoaded{Title: title, Document: doc}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewRuns:
		body = a.runsView.View()
	case messages.ViewRooms:
		body = a.roomsView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	}
	return body + "\n" + a.bar.View()
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n")
	for _, group := range a.keymap.FullHelp() {
		b.WriteString("\n")
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-12s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\n")
	b.WriteString(a.styles.Muted.Render("Runs: r reloads the history, enter opens a run's document."))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.bar.SetWidth(width)
	a.runsView.SetDimensions(width, height-1)
	a.roomsView.SetDimensions(width, height-1)
}
