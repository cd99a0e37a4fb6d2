package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

const canonicalJSON = `{"validation_summary":{"status":"FLAGGED","critical_flags":1},` +
	`"rooms":[{"name":"Kitchen","rule_validations":[{"rule":"R_001","status":"FLAGGED"}]},{"name":"Den"}]}`

func sampleRuns() []domain.Run {
	return []domain.Run{
		{ID: "with-doc", DocumentName: "a.txt", OutputName: "a.json", Canonical: []byte(canonicalJSON)},
		{ID: "no-doc", DocumentName: "b.txt"},
	}
}

func newRunsApp(t *testing.T, svc *mockRunService) *App {
	t.Helper()
	app, err := NewApp(&Ports{Runs: svc})
	require.NoError(t, err)
	app.SetDimensions(120, 40)
	return app
}

func update(t *testing.T, app *App, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := app.Update(msg)
	return cmd
}

func TestNewApp(t *testing.T) {
	_, err := NewApp(&Ports{})
	assert.ErrorIs(t, err, ErrMissingRunService)

	app, err := NewApp(&Ports{Runs: &mockRunService{}})
	require.NoError(t, err)
	assert.Equal(t, messages.ViewRuns, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
	assert.NotNil(t, app.Init())
}

func TestNewDocumentApp(t *testing.T) {
	_, err := NewDocumentApp("x.json", nil)
	assert.ErrorIs(t, err, ErrMissingDocument)

	doc, err := domain.ParseCanonical([]byte(canonicalJSON))
	require.NoError(t, err)
	app, err := NewDocumentApp("house.json", doc)
	require.NoError(t, err)
	app.SetDimensions(120, 40)

	assert.Equal(t, messages.ViewRooms, app.CurrentView())
	view := app.View()
	assert.Contains(t, view, "house.json")
	assert.Contains(t, view, "Kitchen")
	assert.Contains(t, view, "2 rooms")
}

func TestApp_StandaloneBackQuits(t *testing.T) {
	app, err := NewDocumentApp("house.json", domain.NewCanonicalDocument())
	require.NoError(t, err)

	cmd := update(t, app, messages.ViewChanged{View: messages.ViewRuns})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_RunsToRooms(t *testing.T) {
	svc := &mockRunService{runs: sampleRuns()}
	app := newRunsApp(t, svc)
	app.WithContext(t.Context())

	update(t, app, messages.RunsLoaded{Runs: svc.runs})
	assert.Contains(t, app.View(), "2 runs")

	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	selected := cmd()
	require.IsType(t, messages.RunSelected{}, selected)

	cmd = update(t, app, selected)
	require.NotNil(t, cmd)
	loaded, ok := cmd().(messages.DocumentLoaded)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Equal(t, "a.json", loaded.Title)
	assert.Equal(t, 0, svc.gets)

	update(t, app, loaded)
	assert.Equal(t, messages.ViewRooms, app.CurrentView())
	assert.Contains(t, app.View(), "Kitchen")

	cmd = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	update(t, app, cmd())
	assert.Equal(t, messages.ViewRuns, app.CurrentView())
}

func TestApp_RunWithoutCanonicalFetchesRun(t *testing.T) {
	svc := &mockRunService{runs: sampleRuns()}
	app := newRunsApp(t, svc)

	loaded, ok := app.loadRunDocument(domain.Run{ID: "with-doc"})().(messages.DocumentLoaded)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Equal(t, 1, svc.gets)
	assert.Len(t, loaded.Document.Rooms, 2)

	loaded = app.loadRunDocument(svc.runs[1])().(messages.DocumentLoaded)
	assert.ErrorContains(t, loaded.Err, "no saved document")

	svc.getErr = errors.New("db closed")
	loaded = app.loadRunDocument(domain.Run{ID: "x"})().(messages.DocumentLoaded)
	assert.ErrorContains(t, loaded.Err, "db closed")
}

func TestApp_DocumentLoadError(t *testing.T) {
	app := newRunsApp(t, &mockRunService{})

	update(t, app, messages.DocumentLoaded{Err: errors.New("decode failed")})
	assert.Equal(t, messages.ViewRuns, app.CurrentView())
	assert.EqualError(t, app.Err(), "decode failed")
	assert.Contains(t, app.View(), "decode failed")
}

func TestApp_RunsLoadError(t *testing.T) {
	app := newRunsApp(t, &mockRunService{})

	update(t, app, messages.RunsLoaded{Err: errors.New("locked")})
	assert.Error(t, app.Err())
}

func TestApp_Help(t *testing.T) {
	app := newRunsApp(t, &mockRunService{})

	update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "flagged only")

	update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewRuns, app.CurrentView())
}

func TestApp_Quit(t *testing.T) {
	app := newRunsApp(t, &mockRunService{})

	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	cmd = update(t, app, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)

	cmd = update(t, app, messages.Quit{})
	assert.NotNil(t, cmd)
}

func TestApp_FilterSwallowsQuit(t *testing.T) {
	doc, err := domain.ParseCanonical([]byte(canonicalJSON))
	require.NoError(t, err)
	app, err := NewDocumentApp("house.json", doc)
	require.NoError(t, err)

	update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, app.roomsView.Filtering())
	assert.Empty(t, app.roomsView.VisibleRooms())
}

func TestApp_WindowSize(t *testing.T) {
	app := newRunsApp(t, &mockRunService{})
	update(t, app, tea.WindowSizeMsg{Width: 90, Height: 30})
	assert.True(t, app.Ready())
	assert.Equal(t, 90, app.width)
}
