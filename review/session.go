// ABOUTME: Final review session: paged tree navigation with tri-state toggles and low-value filtering.
// ABOUTME: Persists a checkpoint after every action and on interruption, then asks for confirmation.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/propagate"
	"github.com/2389-research/ark/selection"
)

// DefaultPageSize is the number of entries shown per page.
const DefaultPageSize = 20

// ConfirmMessage is asked once navigation finishes.
const ConfirmMessage = "Proceed with backup execution?"

var (
	// ErrNoNavigator is returned when a session is started without a navigator.
	ErrNoNavigator = errors.New("review session requires a navigator")
	// ErrAborted is returned by an interactive role when the user quits the
	// dialog. The run is paused, not failed.
	ErrAborted = errors.New("aborted by user")
)

// Checkpoint is the persisted state of a review session.
type Checkpoint struct {
	SelectedPaths []string `json:"selected_paths"`
	CurrentDir    string   `json:"current_dir"`
	PageIndex     int      `json:"page_index"`
	ShowLowValue  bool     `json:"show_low_value"`
	Complete      bool     `json:"complete"`
}

// ActionKind names what the user asked for.
type ActionKind int

const (
	ActionDone ActionKind = iota
	ActionOpen
	ActionToggle
	ActionUp
	ActionNextPage
	ActionPrevPage
	ActionToggleLowValue
	ActionShowAll
	ActionShowFiltered
)

// Action is one navigation step. Node is used by Open and Toggle.
type Action struct {
	Kind ActionKind
	Node string
}

// Entry is one visible child of the current directory.
type Entry struct {
	Path  string
	Name  string
	IsDir bool
	State selection.State
	Size  int64
	Tier  Tier
}

// View is what a navigator is shown before choosing an action.
type View struct {
	CurrentDir    string
	Entries       []Entry
	Page          int
	TotalPages    int
	Hidden        int
	ShowLowValue  bool
	SelectedCount int
	TotalCount    int
	SelectedBytes int64
}

// Navigator chooses the next action for a view. Returning an error ends the
// session after a checkpoint is written.
type Navigator interface {
	Next(ctx context.Context, v View) (Action, error)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, v View) (Action, error)

// Next calls f.
func (f NavigatorFunc) Next(ctx context.Context, v View) (Action, error) { return f(ctx, v) }

// Confirmer answers a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string, def bool) (bool, error)
}

// Options configures one review session.
type Options struct {
	PageSize int
	// HideLowValue hides branches whose files are all low value.
	HideLowValue bool
	// IncludeExcluded adds stage1_filtered and ignored rows to the tree, unselected.
	IncludeExcluded bool
	// Resume restores a previous session. A non-empty selection replaces the
	// tier1 defaults and skips the directory pre-pass.
	Resume *Checkpoint
	// Gateway enables the directory decision pre-pass when non-nil.
	Gateway      classify.Gateway
	OnDecision   func(propagate.Decision)
	OnCheckpoint func(Checkpoint) error
	Navigator    Navigator
	Confirmer    Confirmer
	Logger       *slog.Logger
}

// Result is the outcome of a session.
type Result struct {
	Selected       []string
	Approved       bool
	Decisions      []propagate.Decision
	PrePassSkipped bool
}

type session struct {
	tree     *selection.Tree
	rows     map[string]Row
	lowValue map[string]bool
	opts     Options
	logger   *slog.Logger
	dir      string
	page     int
	showLow  bool
}

// Run drives a review over rows and returns the approved selection. Declining
// the final confirmation yields an empty selection.
func Run(ctx context.Context, rows []Row, opts Options) (Result, error) {
	if opts.Navigator == nil {
		return Result{}, ErrNoNavigator
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &session{
		rows:     make(map[string]Row),
		lowValue: make(map[string]bool),
		opts:     opts,
		logger:   logger,
		showLow:  !opts.HideLowValue,
	}

	var paths, candidates, defaults []string
	for _, r := range rows {
		if !r.Tier.Reviewable() && !opts.IncludeExcluded {
			continue
		}
		p := selection.NormalizePath(r.Path)
		s.rows[p] = r
		paths = append(paths, p)
		if r.Tier.Reviewable() {
			candidates = append(candidates, p)
		}
		if r.Tier == Tier1 {
			defaults = append(defaults, p)
		}
		if r.AIRisk == classify.LowValue {
			s.lowValue[p] = true
		}
	}

	resumed := opts.Resume != nil && len(opts.Resume.SelectedPaths) > 0
	if resumed {
		defaults = opts.Resume.SelectedPaths
	}
	if opts.Resume != nil {
		s.dir = opts.Resume.CurrentDir
		s.page = opts.Resume.PageIndex
		s.showLow = opts.Resume.ShowLowValue
	}
	s.tree = selection.Build(paths, defaults)
	if s.dir != "" && !s.tree.IsDirectory(s.dir) {
		s.dir = ""
	}

	var res Result
	switch {
	case opts.Gateway == nil:
	case resumed:
		res.PrePassSkipped = true
		logger.Info("directory pre-pass skipped", "component", "review", "action", "prepass_skip", "reason", "resumed selection")
	default:
		// The walk only sees scored candidates. Excluded rows keep their
		// selection whatever the directory verdicts say.
		walked := s.tree
		if len(candidates) != len(paths) {
			walked = selection.Build(candidates, defaults)
		}
		decisions, err := propagate.New(walked, opts.Gateway, propagate.Options{
			OnDecision: opts.OnDecision,
			Logger:     logger,
		}).Run(ctx)
		if walked != s.tree {
			s.tree = selection.Build(paths, walked.SelectedFiles())
		}
		res.Decisions = decisions
		if err != nil {
			_ = s.checkpoint()
			return res, err
		}
	}

	if err := s.loop(ctx); err != nil {
		return res, err
	}

	approved := true
	if opts.Confirmer != nil {
		ok, err := opts.Confirmer.Confirm(ctx, ConfirmMessage, true)
		if err != nil {
			_ = s.checkpoint()
			return res, err
		}
		approved = ok
	}
	res.Approved = approved
	if approved {
		res.Selected = s.tree.SelectedFiles()
	} else {
		res.Selected = []string{}
	}
	return res, nil
}

func (s *session) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			_ = s.checkpoint()
			return err
		}

		view := s.view()
		s.page = view.Page
		action, err := s.opts.Navigator.Next(ctx, view)
		if err != nil {
			if cpErr := s.checkpoint(); cpErr != nil {
				return errors.Join(err, cpErr)
			}
			return err
		}

		if action.Kind == ActionDone {
			return nil
		}
		s.apply(action)
		if err := s.checkpoint(); err != nil {
			return err
		}
	}
}

func (s *session) apply(a Action) {
	switch a.Kind {
	case ActionOpen:
		node := selection.NormalizePath(a.Node)
		if s.tree.IsDirectory(node) {
			s.dir = node
			s.page = 0
		} else {
			s.tree.Toggle(node)
		}
	case ActionToggle:
		s.tree.Toggle(a.Node)
	case ActionUp:
		s.dir = s.tree.Parent(s.dir)
		s.page = 0
	case ActionNextPage:
		s.page++
	case ActionPrevPage:
		s.page--
	case ActionToggleLowValue:
		s.showLow = !s.showLow
		s.page = 0
	case ActionShowAll:
		s.showLow = true
		s.page = 0
	case ActionShowFiltered:
		s.showLow = false
		s.page = 0
	}
}

func (s *session) view() View {
	children := s.tree.Children(s.dir)
	visible := children[:0:0]
	for _, node := range children {
		if s.visible(node) {
			visible = append(visible, node)
		}
	}
	pageItems, total, idx, _ := selection.Paginate(visible, s.opts.PageSize, s.page)

	v := View{
		CurrentDir:   s.dir,
		Page:         idx,
		TotalPages:   total,
		Hidden:       len(children) - len(visible),
		ShowLowValue: s.showLow,
		TotalCount:   s.tree.FileCount(),
	}
	for _, node := range pageItems {
		e := Entry{
			Path:  node,
			Name:  selection.BaseName(node),
			IsDir: s.tree.IsDirectory(node),
			State: s.tree.SelectionState(node),
		}
		if e.IsDir {
			for _, f := range s.tree.DescendantFiles(node) {
				e.Size += s.rows[f].SizeBytes
			}
		} else {
			e.Size = s.rows[node].SizeBytes
			e.Tier = s.rows[node].Tier
		}
		v.Entries = append(v.Entries, e)
	}
	selected := s.tree.SelectedFiles()
	v.SelectedCount = len(selected)
	for _, f := range selected {
		v.SelectedBytes += s.rows[f].SizeBytes
	}
	return v
}

// visible hides low-value files and directories holding only low-value files
// unless low-value entries are shown. Empty directories stay visible.
func (s *session) visible(node string) bool {
	if s.showLow {
		return true
	}
	if s.tree.IsDirectory(node) {
		desc := s.tree.DescendantFiles(node)
		if len(desc) == 0 {
			return true
		}
		for _, f := range desc {
			if !s.lowValue[f] {
				return true
			}
		}
		return false
	}
	return !s.lowValue[node]
}

func (s *session) checkpoint() error {
	if s.opts.OnCheckpoint == nil {
		return nil
	}
	cp := Checkpoint{
		SelectedPaths: s.tree.SelectedFiles(),
		CurrentDir:    s.dir,
		PageIndex:     s.page,
		ShowLowValue:  s.showLow,
	}
	if err := s.opts.OnCheckpoint(cp); err != nil {
		return fmt.Errorf("review checkpoint: %w", err)
	}
	return nil
}

// SelectedSize sums the sizes of the selected rows.
func SelectedSize(rows []Row, selected []string) int64 {
	want := make(map[string]bool, len(selected))
	for _, p := range selected {
		want[selection.NormalizePath(p)] = true
	}
	var total int64
	for _, r := range rows {
		if want[selection.NormalizePath(r.Path)] {
			total += r.SizeBytes
		}
	}
	return total
}

// DefaultSelection is the tier1 set, sorted.
func DefaultSelection(rows []Row) []string {
	var out []string
	for _, r := range rows {
		if r.Tier == Tier1 {
			out = append(out, selection.NormalizePath(r.Path))
		}
	}
	sort.Strings(out)
	return out
}
