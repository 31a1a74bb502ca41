// ABOUTME: NavigatorModel renders one page of the final review tree and turns a key press into a review action.
// ABOUTME: Each review step runs a fresh model; the chosen action ends the program.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/2389-research/ark/review"
)

// NavigatorModel shows a review.View and waits for one action.
type NavigatorModel struct {
	view    review.View
	cursor  int
	action  *review.Action
	aborted bool
	width   int
}

// NewNavigatorModel creates a model for v with the cursor at cursor, clamped
// to the visible entries.
func NewNavigatorModel(v review.View, cursor int) NavigatorModel {
	m := NavigatorModel{view: v, cursor: cursor}
	m.clamp()
	return m
}

// Action returns the chosen action, or false when none was chosen.
func (m NavigatorModel) Action() (review.Action, bool) {
	if m.action == nil {
		return review.Action{}, false
	}
	return *m.action, true
}

// Aborted reports whether the user pressed ctrl+c.
func (m NavigatorModel) Aborted() bool { return m.aborted }

// Cursor returns the highlighted entry index.
func (m NavigatorModel) Cursor() int { return m.cursor }

func (m *NavigatorModel) clamp() {
	if m.cursor >= len(m.view.Entries) {
		m.cursor = len(m.view.Entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Init implements tea.Model.
func (m NavigatorModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m NavigatorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m NavigatorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.view.Entries)-1 {
			m.cursor++
		}
		return m, nil
	case " ", "x":
		if e, ok := m.current(); ok {
			return m.choose(review.Action{Kind: review.ActionToggle, Node: e.Path})
		}
	case "enter", "right", "l":
		if e, ok := m.current(); ok {
			return m.choose(review.Action{Kind: review.ActionOpen, Node: e.Path})
		}
	case "backspace", "left", "h":
		if m.view.CurrentDir != "" {
			return m.choose(review.Action{Kind: review.ActionUp})
		}
	case "n", "pgdown":
		if m.view.Page < m.view.TotalPages-1 {
			return m.choose(review.Action{Kind: review.ActionNextPage})
		}
	case "p", "pgup":
		if m.view.Page > 0 {
			return m.choose(review.Action{Kind: review.ActionPrevPage})
		}
	case "f":
		return m.choose(review.Action{Kind: review.ActionToggleLowValue})
	case "a":
		return m.choose(review.Action{Kind: review.ActionShowAll})
	case "r":
		return m.choose(review.Action{Kind: review.ActionShowFiltered})
	case "d", "q", "esc":
		return m.choose(review.Action{Kind: review.ActionDone})
	}
	return m, nil
}

func (m NavigatorModel) current() (review.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Entries) {
		return review.Entry{}, false
	}
	return m.view.Entries[m.cursor], true
}

func (m NavigatorModel) choose(a review.Action) (tea.Model, tea.Cmd) {
	m.action = &a
	return m, tea.Quit
}

// View implements tea.Model.
func (m NavigatorModel) View() string {
	if m.action != nil || m.aborted {
		return ""
	}
	v := m.view
	var b strings.Builder

	dir := v.CurrentDir
	if dir == "" {
		dir = "(roots)"
	}
	b.WriteString(TitleStyle.Render("Final review: "+dir) + "\n\n")

	if len(v.Entries) == 0 {
		b.WriteString(DimStyle.Render("  nothing to show here") + "\n")
	}
	for i, e := range v.Entries {
		pointer := "  "
		if i == m.cursor {
			pointer = CursorStyle.Render("> ")
		}
		name := FileStyle.Render(e.Name)
		detail := StyleForTier(e.Tier).Render(string(e.Tier))
		if e.IsDir {
			name = DirStyle.Render(e.Name + "/")
			detail = DimStyle.Render("dir")
		}
		fmt.Fprintf(&b, "%s%s %s  %s %s\n", pointer, Marker(e.State), name, DimStyle.Render(humanize.IBytes(uint64(e.Size))), detail)
	}

	b.WriteString("\n")
	status := fmt.Sprintf("page %d/%d | selected %d/%d files (%s)",
		v.Page+1, max(v.TotalPages, 1), v.SelectedCount, v.TotalCount, humanize.IBytes(uint64(v.SelectedBytes)))
	if v.Hidden > 0 {
		status += fmt.Sprintf(" | %d low-value hidden", v.Hidden)
	}
	if v.ShowLowValue {
		status += " | showing all"
	}
	bar := StatusBarStyle
	if m.width > 0 {
		bar = bar.Width(m.width)
	}
	b.WriteString(bar.Render(status) + "\n")
	b.WriteString(HelpStyle.Render("↑/↓ move · space toggle · enter open · ← up · n/p page · f low-value · a all · r filtered · d done"))
	return b.String()
}
