// ABOUTME: Yes/no confirmation and startup recovery dialogs.
// ABOUTME: ConfirmModel answers review.Confirmer questions; RecoveryModel picks resume, new, or cancel.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/2389-research/ark/pipeline"
	"github.com/2389-research/ark/runstore"
)

// ConfirmModel asks one yes/no question.
type ConfirmModel struct {
	message  string
	def      bool
	answer   bool
	answered bool
	aborted  bool
}

// NewConfirmModel creates a dialog for message; enter picks def.
func NewConfirmModel(message string, def bool) ConfirmModel {
	return ConfirmModel{message: message, def: def}
}

// Answer returns the answer and whether one was given.
func (m ConfirmModel) Answer() (bool, bool) { return m.answer, m.answered }

// Aborted reports whether the user pressed ctrl+c.
func (m ConfirmModel) Aborted() bool { return m.aborted }

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	case "y":
		m.answer, m.answered = true, true
		return m, tea.Quit
	case "n", "esc":
		m.answer, m.answered = false, true
		return m, tea.Quit
	case "enter":
		m.answer, m.answered = m.def, true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.answered || m.aborted {
		return ""
	}
	hint := "[y/N]"
	if m.def {
		hint = "[Y/n]"
	}
	return PromptStyle.Render(TitleStyle.Render(m.message) + "\n\n" + HelpStyle.Render(hint))
}

// RecoveryModel offers to resume an unfinished run.
type RecoveryModel struct {
	run     *runstore.Summary
	cursor  int
	choice  pipeline.RecoveryChoice
	chosen  bool
	aborted bool
}

var recoveryOptions = []struct {
	choice pipeline.RecoveryChoice
	key    string
	label  string
}{
	{pipeline.RecoveryResume, "r", "Resume where it stopped"},
	{pipeline.RecoveryNew, "n", "Start a new run (discard the old one)"},
	{pipeline.RecoveryCancel, "c", "Cancel"},
}

// NewRecoveryModel creates the dialog for run.
func NewRecoveryModel(run *runstore.Summary) RecoveryModel {
	return RecoveryModel{run: run}
}

// Choice returns the selection and whether one was made.
func (m RecoveryModel) Choice() (pipeline.RecoveryChoice, bool) { return m.choice, m.chosen }

// Aborted reports whether the user pressed ctrl+c.
func (m RecoveryModel) Aborted() bool { return m.aborted }

// Init implements tea.Model.
func (m RecoveryModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m RecoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(recoveryOptions)-1 {
			m.cursor++
		}
	case "enter":
		m.choice, m.chosen = recoveryOptions[m.cursor].choice, true
		return m, tea.Quit
	case "esc", "q":
		m.choice, m.chosen = pipeline.RecoveryCancel, true
		return m, tea.Quit
	default:
		for _, opt := range recoveryOptions {
			if key.String() == opt.key {
				m.choice, m.chosen = opt.choice, true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m RecoveryModel) View() string {
	if m.chosen || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Unfinished backup run found") + "\n\n")
	if m.run != nil {
		fmt.Fprintf(&b, "Run:        %s\n", m.run.RunID)
		fmt.Fprintf(&b, "Status:     %s\n", m.run.Status)
		fmt.Fprintf(&b, "Updated:    %s\n", humanize.Time(m.run.UpdatedAt))
		stage := m.run.LastStage
		if stage == "" {
			stage = "none"
		}
		fmt.Fprintf(&b, "Last stage: %s\n", stage)
	}
	b.WriteString("\n")
	for i, opt := range recoveryOptions {
		pointer := "  "
		if i == m.cursor {
			pointer = CursorStyle.Render("> ")
		}
		fmt.Fprintf(&b, "%s(%s) %s\n", pointer, opt.key, opt.label)
	}
	return PromptStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}
