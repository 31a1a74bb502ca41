// ABOUTME: SuffixModel lets the user adjust the stage-one extension whitelist, grouped by category.
// ABOUTME: The list scrolls inside a bubbles viewport; enter confirms the checked extensions.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/ark/review"
	"github.com/2389-research/ark/selection"
)

// suffixLine is one rendered line: a category header or a suffix row.
type suffixLine struct {
	header string
	row    review.SuffixRow
}

// SuffixModel is the stage-one review dialog.
type SuffixModel struct {
	lines    []suffixLine
	rowIdx   []int // indices into lines that hold rows
	cursor   int   // index into rowIdx
	checked  map[string]bool
	defaults []string
	viewport viewport.Model
	done     bool
	aborted  bool
}

// NewSuffixModel groups rows by category and pre-checks the default whitelist.
func NewSuffixModel(rows []review.SuffixRow) SuffixModel {
	m := SuffixModel{
		checked:  make(map[string]bool),
		defaults: review.DefaultWhitelist(rows),
		viewport: viewport.New(80, 20),
	}
	for _, g := range review.GroupSuffixRows(rows) {
		m.lines = append(m.lines, suffixLine{header: g.Category})
		for _, r := range g.Rows {
			m.rowIdx = append(m.rowIdx, len(m.lines))
			m.lines = append(m.lines, suffixLine{row: r})
		}
	}
	m.reset()
	m.sync()
	return m
}

func (m *SuffixModel) reset() {
	clear(m.checked)
	for _, ext := range m.defaults {
		m.checked[ext] = true
	}
}

// Whitelist returns the checked extensions, sorted.
func (m SuffixModel) Whitelist() []string {
	out := []string{}
	for ext, ok := range m.checked {
		if ok {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// Done reports whether the user confirmed the list.
func (m SuffixModel) Done() bool { return m.done }

// Aborted reports whether the user pressed ctrl+c.
func (m SuffixModel) Aborted() bool { return m.aborted }

// Init implements tea.Model.
func (m SuffixModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m SuffixModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		// title, blank, status, help
		m.viewport.Height = max(msg.Height-4, 1)
		m.sync()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			m.done = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rowIdx)-1 {
				m.cursor++
			}
		case " ", "x":
			if len(m.rowIdx) > 0 {
				ext := m.lines[m.rowIdx[m.cursor]].row.Ext
				m.checked[ext] = !m.checked[ext]
			}
		case "a":
			for _, i := range m.rowIdx {
				m.checked[m.lines[i].row.Ext] = true
			}
		case "n":
			clear(m.checked)
		case "D":
			m.reset()
		}
		m.sync()
	}
	return m, nil
}

// sync rewrites the viewport content and keeps the cursor line visible.
func (m *SuffixModel) sync() {
	var b strings.Builder
	cursorLine := 0
	for i, l := range m.lines {
		if l.header != "" {
			b.WriteString(CategoryStyle.Render(l.header) + "\n")
			continue
		}
		pointer := "  "
		if len(m.rowIdx) > 0 && m.rowIdx[m.cursor] == i {
			pointer = CursorStyle.Render("> ")
			cursorLine = i
		}
		state := selection.Unchecked
		if m.checked[l.row.Ext] {
			state = selection.Checked
		}
		label := Tier1Style.Render(l.row.Label)
		if l.row.Label != "keep" {
			label = Tier3Style.Render(l.row.Label)
		}
		fmt.Fprintf(&b, "%s%s %-10s %s %s %s\n", pointer, Marker(state), l.row.Ext, label,
			DimStyle.Render(fmt.Sprintf("%.2f", l.row.Confidence)), DimStyle.Render(l.row.Reason))
	}
	m.viewport.SetContent(strings.TrimSuffix(b.String(), "\n"))

	switch {
	case cursorLine < m.viewport.YOffset:
		m.viewport.SetYOffset(cursorLine)
	case cursorLine >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(cursorLine - m.viewport.Height + 1)
	}
}

// View implements tea.Model.
func (m SuffixModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Stage 1: Suffix Screening") + "\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(StatusBarStyle.Render(fmt.Sprintf("%d of %d extensions kept", len(m.Whitelist()), len(m.rowIdx))) + "\n")
	b.WriteString(HelpStyle.Render("↑/↓ move · space toggle · a all · n none · D defaults · enter confirm"))
	return b.String()
}
