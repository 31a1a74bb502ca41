// ABOUTME: Defines lipgloss styles for the review dialogs plus selection markers and tier colors.
// ABOUTME: Provides Marker to map tri-state selection values to their display glyphs.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/ark/review"
	"github.com/2389-research/ark/selection"
)

var (
	// Dialog frame
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Rows
	CursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	DirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	FileStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	CategoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Underline(true)

	// Selection markers
	CheckedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	PartialStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	UncheckedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Tier colors
	Tier1Style    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	Tier2Style    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	Tier3Style    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	ExcludedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	// Progress lines
	StageTagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	RemoteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FallbackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Confirmation and recovery prompts
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(1, 2)
)

// Marker glyphs for tri-state selection.
const (
	MarkerChecked   = "●"
	MarkerPartial   = "◐"
	MarkerUnchecked = "○"
)

// Marker returns the styled glyph for a selection state.
func Marker(s selection.State) string {
	switch s {
	case selection.Checked:
		return CheckedStyle.Render(MarkerChecked)
	case selection.Partial:
		return PartialStyle.Render(MarkerPartial)
	default:
		return UncheckedStyle.Render(MarkerUnchecked)
	}
}

// StyleForTier returns the display style for a review tier.
func StyleForTier(t review.Tier) lipgloss.Style {
	switch t {
	case review.Tier1:
		return Tier1Style
	case review.Tier2:
		return Tier2Style
	case review.Tier3:
		return Tier3Style
	default:
		return ExcludedStyle
	}
}
