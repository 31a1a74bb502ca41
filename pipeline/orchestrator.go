// ABOUTME: Pipeline orchestrator: runs scan, stage1, stage2, final_review and copy against one persisted run.
// ABOUTME: Completed stages are skipped on resume; interruption pauses the run, other errors fail it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/copier"
	"github.com/2389-research/ark/propagate"
	"github.com/2389-research/ark/review"
	"github.com/2389-research/ark/runstore"
)

// ErrInterrupted wraps the context error when a run stops part way through.
// The run is left paused and can be resumed.
var ErrInterrupted = errors.New("pipeline interrupted")

// Result summarizes one execution.
type Result struct {
	RunID      string
	Resumed    bool
	SampleData bool
	DryRun     bool
	Logs       []string

	SuffixRows []review.SuffixRow
	Whitelist  []string
	Rows       []review.Row
	Decisions  []propagate.Decision
	Selected   []string
	Approved   bool

	Copied      []copier.Result
	CopiedPaths []string
	Manifest    string
}

// Orchestrator executes the staged pipeline for one run.
type Orchestrator struct {
	cfg   Config
	runID string
	state *runstore.RunState
	sink  ProgressSink
	res   *Result
	// localDirs is set when directory verdicts come from local rules.
	localDirs bool
}

// New validates cfg and returns an orchestrator ready to Run.
func New(cfg Config) (*Orchestrator, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, validationError(problems)
	}
	cfg.applyDefaults()
	return &Orchestrator{cfg: cfg}, nil
}

// RunID is the run being executed. Empty until Run has opened the run.
func (o *Orchestrator) RunID() string { return o.runID }

// Run executes every stage. On cancellation, or when a role reports
// review.ErrAborted, it returns an error wrapping both ErrInterrupted and the
// cause, with the run marked paused.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if err := o.open(); err != nil {
		return nil, err
	}
	o.res = &Result{RunID: o.runID, Resumed: o.state != nil, DryRun: o.cfg.DryRun}
	logger := o.cfg.Logger.With("component", "pipeline", "run_id", o.runID)
	logger.Info("run started", "action", "start", "resumed", o.res.Resumed, "dry_run", o.cfg.DryRun)

	err := o.execute(ctx)
	switch {
	case err == nil:
		o.mark(runstore.StatusCompleted)
		logger.Info("run completed", "action", "complete", "selected", len(o.res.Selected), "copied", len(o.res.Copied))
		return o.res, nil
	case ctx.Err() != nil || isContextErr(err) || errors.Is(err, review.ErrAborted):
		o.mark(runstore.StatusPaused)
		o.progress("[pipeline] interrupted; run paused")
		logger.Warn("run interrupted", "action", "pause", "error", err)
		cause := context.Cause(ctx)
		if cause == nil {
			cause = err
		}
		return o.res, fmt.Errorf("%w: %w", ErrInterrupted, cause)
	default:
		o.mark(runstore.StatusFailed)
		o.progress(fmt.Sprintf("[pipeline] failed: %v", err))
		logger.Error("run failed", "action", "fail", "error", err)
		return o.res, err
	}
}

// open loads, adopts or creates the run and wires the progress fan-out.
func (o *Orchestrator) open() error {
	store := o.cfg.Store
	switch {
	case store == nil:
		o.runID = o.cfg.RunID
	case o.cfg.Resume:
		state, err := store.LoadRun(o.cfg.RunID)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		// A resumed run keeps the identity it was created with.
		o.cfg.Target = state.Meta.Target
		o.cfg.SourceRoots = state.Meta.SourceRoots
		o.cfg.DryRun = state.Meta.DryRun
		o.state = state
		o.runID = state.RunID
		if err := store.MarkStatus(o.runID, runstore.StatusRunning); err != nil {
			return err
		}
	case o.cfg.RunID != "":
		if _, err := store.LoadRun(o.cfg.RunID); err != nil {
			return err
		}
		o.runID = o.cfg.RunID
	default:
		id, err := store.CreateRun(o.cfg.Target, o.cfg.SourceRoots, o.cfg.DryRun)
		if err != nil {
			return err
		}
		o.runID = id
	}

	o.sink = MultiSink{o.cfg.Progress, StoreSink{Store: store, RunID: o.runID, Logger: o.cfg.Logger}}
	return nil
}

func (o *Orchestrator) execute(ctx context.Context) error {
	res := o.res
	if res.Resumed {
		o.log("Resumed run: " + o.runID)
	}

	scan, err := o.scan(ctx)
	if err != nil {
		return err
	}
	sample := len(scan.Roots) == 0
	switch {
	case sample:
		res.SampleData = true
		o.log(msgUsingSample)
		o.progress("[scan] " + msgUsingSample)
	case scan.fileCount() == 0 && scan.ignoredCount() == 0:
		o.log(msgNoFiles)
		o.progress("[scan] " + msgNoFiles)
	}

	o.log("Stage 1: Suffix Screening")
	whitelist, suffixRows, err := o.stage1(ctx, scan, sample)
	if err != nil {
		return err
	}
	res.Whitelist = whitelist
	res.SuffixRows = suffixRows
	o.log(fmt.Sprintf("Whitelist size: %d", len(whitelist)))

	o.log("Stage 2: Final Review and Backup")
	if sample {
		res.Rows = samplePathRows(o.homeDir())
	} else {
		scored, err := o.stage2(ctx, candidatesFor(scan, whitelist))
		if err != nil {
			return err
		}
		res.Rows = finalRows(scan, scored)
	}

	if err := o.finalReview(ctx, res.Rows); err != nil {
		return err
	}
	o.log(fmt.Sprintf("Selected paths: %d", len(res.Selected)))
	o.log("Target: " + o.cfg.Target)
	o.log(fmt.Sprintf("Dry run: %t", o.cfg.DryRun))

	out, err := o.copyStage(ctx, scan, res.Selected)
	res.Copied = out.Copied
	res.CopiedPaths = out.CopiedPaths
	res.Manifest = out.Manifest
	if err != nil {
		return err
	}
	if o.cfg.DryRun {
		o.log("Dry run complete. No files copied.")
	} else {
		o.log(fmt.Sprintf("Copied files: %d", len(out.Copied)))
	}
	return nil
}

func (o *Orchestrator) finalReview(ctx context.Context, rows []review.Row) error {
	res := o.res
	var prev review.Checkpoint
	found, err := restoreCheckpoint(o.state, StageFinalReview, &prev)
	if err != nil {
		return err
	}
	if found && prev.Complete {
		res.Selected = prev.SelectedPaths
		res.Approved = true
		o.progress(fmt.Sprintf("[final_review] restored completed review selected=%d", len(prev.SelectedPaths)))
		return nil
	}
	if len(rows) == 0 {
		res.Selected = []string{}
		res.Approved = true
		if err := o.save(StageFinalReview, review.Checkpoint{SelectedPaths: []string{}, Complete: true}); err != nil {
			return err
		}
		o.progress("[final_review] selected=0")
		return nil
	}

	var resume *review.Checkpoint
	if found {
		resume = &prev
	}
	var gateway classify.Gateway
	if o.cfg.AIDirectoryEnabled {
		gateway = o.cfg.Gateway
		if gateway == nil {
			gateway = classify.Heuristic{}
			o.localDirs = true
		}
	}

	out, err := review.Run(ctx, rows, review.Options{
		PageSize:        o.cfg.PageSize,
		HideLowValue:    o.cfg.PruneMode == PruneHideLowValue,
		IncludeExcluded: o.cfg.IncludeExcluded,
		Resume:          resume,
		Gateway:         gateway,
		OnDecision:      o.reportDecision,
		OnCheckpoint: func(cp review.Checkpoint) error {
			return o.save(StageFinalReview, cp)
		},
		Navigator: o.cfg.Navigator,
		Confirmer: o.cfg.Confirmer,
		Logger:    o.cfg.Logger,
	})
	res.Decisions = out.Decisions
	if err != nil {
		return err
	}
	res.Selected = out.Selected
	res.Approved = out.Approved

	if err := o.save(StageFinalReview, review.Checkpoint{SelectedPaths: out.Selected, Complete: true}); err != nil {
		return err
	}
	o.progress(fmt.Sprintf("[final_review] selected=%d", len(out.Selected)))
	return nil
}

func (o *Orchestrator) reportDecision(d propagate.Decision) {
	tag := "[ai:remote]"
	switch {
	case o.localDirs:
		tag = "[ai:local]"
	case d.Fallback:
		tag = "[ai:fallback]"
	}
	o.progress(fmt.Sprintf("%s dir=%s decision=%s confidence=%.2f affected=%d", tag, d.Directory, d.Decision, d.Confidence, d.Affected))
}

func (o *Orchestrator) save(stage string, payload any) error {
	if o.cfg.Store == nil || o.runID == "" {
		return nil
	}
	return o.cfg.Store.SaveCheckpoint(o.runID, stage, payload)
}

func (o *Orchestrator) mark(status runstore.Status) {
	if o.cfg.Store == nil || o.runID == "" {
		return
	}
	if err := o.cfg.Store.MarkStatus(o.runID, status); err != nil {
		o.cfg.Logger.Warn("mark status failed", "component", "pipeline", "action", "mark_status", "run_id", o.runID, "status", string(status), "error", err)
	}
}

func (o *Orchestrator) progress(msg string) {
	if o.sink != nil {
		o.sink.Progress(msg)
	}
}

func (o *Orchestrator) log(line string) {
	o.res.Logs = append(o.res.Logs, line)
}

func (o *Orchestrator) homeDir() string {
	if o.cfg.HomeDir != "" {
		return o.cfg.HomeDir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return filepath.FromSlash("/")
}
