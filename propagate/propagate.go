// ABOUTME: Breadth-first directory decision walk that folds keep/drop verdicts into a selection tree.
// ABOUTME: Each level is classified concurrently, then committed in sorted order after a barrier.
package propagate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/selection"
)

// DefaultSampleFiles is how many descendant files are sent with each directory.
const DefaultSampleFiles = 8

// Decision records the verdict applied to one visited directory.
type Decision struct {
	Directory  string            `json:"directory"`
	Decision   classify.Decision `json:"decision"`
	Confidence float64           `json:"confidence"`
	Reason     string            `json:"reason"`
	Depth      int               `json:"depth"`
	Fallback   bool              `json:"fallback"`
	Affected   int               `json:"affected"`
}

// Options tunes a propagation walk.
type Options struct {
	// SampleFiles caps the descendant files sent per directory. Zero uses
	// DefaultSampleFiles.
	SampleFiles int
	// OnDecision, when set, is called on the control goroutine after each
	// decision is applied.
	OnDecision func(Decision)
	Logger     *slog.Logger
}

// Propagator walks the directories of one selection tree.
type Propagator struct {
	tree    *selection.Tree
	gateway classify.Gateway
	opts    Options
	logger  *slog.Logger
}

// New returns a propagator over tree. The tree is mutated only from the
// goroutine that calls Run.
func New(tree *selection.Tree, gateway classify.Gateway, opts Options) *Propagator {
	if opts.SampleFiles <= 0 {
		opts.SampleFiles = DefaultSampleFiles
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Propagator{tree: tree, gateway: gateway, opts: opts, logger: logger}
}

type request struct {
	dir      string
	children []string
	samples  []string
}

type outcome struct {
	verdict classify.DirectoryVerdict
	err     error
}

// Run classifies every directory level by level, starting at the root's
// directory children. Deeper verdicts are applied after shallower ones and so
// override them. A failed classification becomes not_sure and never stops the
// walk. Run returns early only when ctx is cancelled between levels.
func (p *Propagator) Run(ctx context.Context) ([]Decision, error) {
	var decisions []Decision
	level := p.tree.ChildDirectories("")
	depth := 0

	for len(level) > 0 {
		if err := ctx.Err(); err != nil {
			return decisions, err
		}
		sort.Strings(level)

		reqs := make([]request, len(level))
		for i, dir := range level {
			samples := p.tree.DescendantFiles(dir)
			if len(samples) > p.opts.SampleFiles {
				samples = samples[:p.opts.SampleFiles]
			}
			reqs[i] = request{dir: dir, children: p.tree.ChildDirectories(dir), samples: samples}
		}

		results := p.classifyLevel(ctx, reqs)

		var next []string
		for i, req := range reqs {
			d := p.apply(req.dir, depth, results[i])
			decisions = append(decisions, d)
			if p.opts.OnDecision != nil {
				p.opts.OnDecision(d)
			}
			next = append(next, req.children...)
		}

		p.logger.Debug("level classified", "component", "propagate", "action", "level_done", "depth", depth, "directories", len(reqs))
		level = next
		depth++
	}
	return decisions, nil
}

// classifyLevel issues one request per directory, all in flight at once, and
// waits for every one to return. Results are indexed like reqs.
func (p *Propagator) classifyLevel(ctx context.Context, reqs []request) []outcome {
	results := make([]outcome, len(reqs))
	var g errgroup.Group
	g.SetLimit(len(reqs))
	for i, req := range reqs {
		g.Go(func() error {
			v, err := p.gateway.ClassifyDirectory(ctx, req.dir, req.children, req.samples)
			results[i] = outcome{verdict: v, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Propagator) apply(dir string, depth int, res outcome) Decision {
	d := Decision{Directory: dir, Depth: depth}
	if res.err != nil {
		d.Decision = classify.NotSure
		d.Reason = fmt.Sprintf("%s: %v", classify.FallbackReason, res.err)
		d.Fallback = true
		p.logger.Warn("directory classification failed", "component", "propagate", "action", "classify", "dir", dir, "error", res.err)
		return d
	}

	d.Decision = classify.NormalizeDecision(string(res.verdict.Decision))
	d.Confidence = res.verdict.Confidence
	d.Reason = res.verdict.Reason
	d.Fallback = classify.IsFallback(res.verdict.Reason)

	switch d.Decision {
	case classify.Keep:
		d.Affected = p.tree.SelectSubtree(dir)
	case classify.Drop:
		d.Affected = p.tree.DeselectSubtree(dir)
	}
	return d
}

// Count tallies decisions by verdict.
func Count(decisions []Decision) map[classify.Decision]int {
	out := map[classify.Decision]int{classify.Keep: 0, classify.Drop: 0, classify.NotSure: 0}
	for _, d := range decisions {
		out[d.Decision]++
	}
	return out
}
