// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// Theme is the colour palette of the estimate browser.
type Theme struct {
	// Accent colours titles and the selection bar.
	Accent lipgloss.Color

	// Heading colours room groupings and field labels.
	Heading lipgloss.Color

	// Text is the default text colour.
	Text lipgloss.Color

	// Dim is for counts, hints and empty values.
	Dim lipgloss.Color

	// Passed marks PASSED validations and completed runs.
	Passed lipgloss.Color

	// Partial marks runs with failed or unparsed chunks.
	Partial lipgloss.Color

	// Flagged marks FLAGGED validations and load errors.
	Flagged lipgloss.Color

	// Frame colours pane borders.
	Frame lipgloss.Color

	// Bar is the status bar background.
	Bar lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#2563EB"),
		Heading: lipgloss.Color("#0EA5E9"),
		Text:    lipgloss.Color("#E2E8F0"),
		Dim:     lipgloss.Color("#64748B"),
		Passed:  lipgloss.Color("#22C55E"),
		Partial: lipgloss.Color("#F59E0B"),
		Flagged: lipgloss.Color("#EF4444"),
		Frame:   lipgloss.Color("#334155"),
		Bar:     lipgloss.Color("#0F172A"),
	}
}

// Styles contains the lipgloss styles the views render with.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style

	// Error renders load failures.
	Error lipgloss.Style

	// Success renders PASSED validations.
	Success lipgloss.Style

	// Warning renders partial runs and filter hints.
	Warning lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style

	// Panel frames the room detail pane.
	Panel lipgloss.Style

	// Label renders field names in the detail pane.
	Label lipgloss.Style

	// Flagged renders FLAGGED validations and rooms carrying them.
	Flagged lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	framed := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Frame).
		Padding(0, 1)

	return &Styles{
		theme:    theme,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Heading),
		Normal:   lipgloss.NewStyle().Foreground(theme.Text),
		Muted:    lipgloss.NewStyle().Foreground(theme.Dim),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(theme.Text).Background(theme.Accent),
		Error:    lipgloss.NewStyle().Foreground(theme.Flagged),
		Success:  lipgloss.NewStyle().Foreground(theme.Passed),
		Warning:  lipgloss.NewStyle().Foreground(theme.Partial),

		InputField: framed,
		StatusBar:  lipgloss.NewStyle().Foreground(theme.Dim).Background(theme.Bar).Padding(0, 1),
		Help:       lipgloss.NewStyle().Foreground(theme.Dim),
		Panel:      framed,
		Label:      lipgloss.NewStyle().Bold(true).Foreground(theme.Heading),
		Flagged:    lipgloss.NewStyle().Bold(true).Foreground(theme.Flagged),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Status returns the style for a validation status, ignoring case.
func (s *Styles) Status(status string) lipgloss.Style {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case domain.StatusFlagged:
		return s.Flagged
	case domain.StatusPassed:
		return s.Success
	default:
		return s.Muted
	}
}
