// ABOUTME: Terminal wires the dialog models to the pipeline's interactive roles by running one Bubble Tea program per question.
// ABOUTME: Also provides a styled progress printer for stage messages.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/ark/pipeline"
	"github.com/2389-research/ark/review"
	"github.com/2389-research/ark/runstore"
)

// ErrAborted is returned when the user presses ctrl+c inside a dialog.
var ErrAborted = review.ErrAborted

// Compile-time interface assertions.
var (
	_ review.Navigator        = (*Terminal)(nil)
	_ review.SuffixReviewer   = (*Terminal)(nil)
	_ review.Confirmer        = (*Terminal)(nil)
	_ pipeline.RecoveryPrompt = (*Terminal)(nil)
	_ pipeline.ProgressSink   = (*ProgressPrinter)(nil)
)

// Terminal implements every interactive role against a terminal. The zero
// value uses stdin and stdout.
type Terminal struct {
	In  io.Reader
	Out io.Writer
	// AltScreen runs dialogs in the alternate screen buffer.
	AltScreen bool

	mu      sync.Mutex
	lastDir string
	lastPg  int
	cursor  int
}

func (t *Terminal) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	if t.Out != nil {
		opts = append(opts, tea.WithOutput(t.Out))
	}
	if t.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	final, err := tea.NewProgram(m, opts...).Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("terminal dialog: %w", err)
	}
	return final, nil
}

// Next shows one page of the review tree and returns the chosen action. The
// cursor is kept while the user stays on the same directory page.
func (t *Terminal) Next(ctx context.Context, v review.View) (review.Action, error) {
	t.mu.Lock()
	cursor := 0
	if v.CurrentDir == t.lastDir && v.Page == t.lastPg {
		cursor = t.cursor
	}
	t.mu.Unlock()

	final, err := t.run(ctx, NewNavigatorModel(v, cursor))
	if err != nil {
		return review.Action{}, err
	}
	m := final.(NavigatorModel)
	if m.Aborted() {
		return review.Action{}, ErrAborted
	}

	t.mu.Lock()
	t.lastDir, t.lastPg, t.cursor = v.CurrentDir, v.Page, m.Cursor()
	t.mu.Unlock()

	a, ok := m.Action()
	if !ok {
		return review.Action{Kind: review.ActionDone}, nil
	}
	return a, nil
}

// ReviewSuffixes lets the user edit the default whitelist.
func (t *Terminal) ReviewSuffixes(ctx context.Context, rows []review.SuffixRow) ([]string, error) {
	if len(rows) == 0 {
		return []string{}, nil
	}
	final, err := t.run(ctx, NewSuffixModel(rows))
	if err != nil {
		return nil, err
	}
	m := final.(SuffixModel)
	if m.Aborted() {
		return nil, ErrAborted
	}
	return m.Whitelist(), nil
}

// Confirm asks message; a dialog closed without an answer counts as def.
func (t *Terminal) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	final, err := t.run(ctx, NewConfirmModel(message, def))
	if err != nil {
		return false, err
	}
	m := final.(ConfirmModel)
	if m.Aborted() {
		return false, ErrAborted
	}
	if answer, ok := m.Answer(); ok {
		return answer, nil
	}
	return def, nil
}

// ChooseRecovery asks what to do with an unfinished run. Aborting the dialog
// cancels.
func (t *Terminal) ChooseRecovery(ctx context.Context, run *runstore.Summary) (pipeline.RecoveryChoice, error) {
	final, err := t.run(ctx, NewRecoveryModel(run))
	if err != nil {
		return pipeline.RecoveryCancel, err
	}
	m := final.(RecoveryModel)
	if choice, ok := m.Choice(); ok && !m.Aborted() {
		return choice, nil
	}
	return pipeline.RecoveryCancel, nil
}

// ProgressPrinter writes stage messages as styled lines. Fallback messages
// stand out so degraded classification is visible.
type ProgressPrinter struct {
	Out io.Writer
	mu  sync.Mutex
}

// Progress implements pipeline.ProgressSink.
func (p *ProgressPrinter) Progress(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintln(out, FormatProgress(msg))
}

// FormatProgress styles the leading stage tag of msg.
func FormatProgress(msg string) string {
	stage := pipeline.StageOf(msg)
	tag := "[" + stage + "]"
	if !strings.HasPrefix(msg, tag) {
		return msg
	}
	rest := strings.TrimPrefix(msg, tag)
	switch stage {
	case "ai:fallback":
		return FallbackStyle.Render(tag) + rest
	case "ai:remote":
		return RemoteStyle.Render(tag) + rest
	default:
		return StageTagStyle.Render(tag) + rest
	}
}
