// ABOUTME: Runtime configuration for one pipeline execution and its validation rules.
// ABOUTME: Collaborators (gateway, reviewers, copier, progress sink) are injected here.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/copier"
	"github.com/2389-research/ark/review"
	"github.com/2389-research/ark/rules"
	"github.com/2389-research/ark/runstore"
)

// PruneMode controls whether low-value branches start hidden in the review.
type PruneMode string

const (
	PruneHideLowValue PruneMode = "hide_low_value"
	PruneShowAll      PruneMode = "show_all"
)

// Valid reports whether m is a known prune mode.
func (m PruneMode) Valid() bool {
	return m == PruneHideLowValue || m == PruneShowAll
}

// ErrInvalidConfig is returned by New when Validate reports problems.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Config is everything one run needs.
type Config struct {
	Target      string
	SourceRoots []string
	DryRun      bool

	// RunID names an existing run. With Resume set, its checkpoints and
	// identity (target, roots, dry run) are restored. Empty RunID creates a run.
	RunID  string
	Resume bool

	Store *runstore.Store

	// Gateway is the classification service. Nil disables every AI stage.
	Gateway            classify.Gateway
	AISuffixEnabled    bool
	AIPathEnabled      bool
	AIDirectoryEnabled bool
	SendFullPathToAI   bool
	PruneMode          PruneMode
	IncludeExcluded    bool

	RulesDir    string
	SuffixRules *rules.SuffixRules

	SuffixReviewer review.SuffixReviewer
	Navigator      review.Navigator
	Confirmer      review.Confirmer
	Copier         copier.Executor
	Progress       ProgressSink
	PageSize       int

	// HomeDir anchors the sample dataset paths. Defaults to the user's home.
	HomeDir string
	// FreeSpace reports bytes available at a path. Defaults to a disk usage query.
	FreeSpace func(ctx context.Context, path string) (uint64, error)
	Now       func() time.Time
	Logger    *slog.Logger
}

// Validate returns every problem blocking execution, or nil.
func (c Config) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Target) == "" && !c.Resume {
		errs = append(errs, "target is required")
	}
	if c.Resume && c.RunID == "" {
		errs = append(errs, "resume requires a run id")
	}
	if c.Resume && c.Store == nil {
		errs = append(errs, "resume requires a run store")
	}
	if c.PruneMode != "" && !c.PruneMode.Valid() {
		errs = append(errs, "ai prune mode must be hide_low_value or show_all")
	}
	if c.PageSize < 0 {
		errs = append(errs, "page size must not be negative")
	}
	return errs
}

func (c *Config) applyDefaults() {
	if c.PruneMode == "" {
		c.PruneMode = PruneHideLowValue
	}
	if c.SuffixRules == nil {
		c.SuffixRules = rules.DefaultSuffixRules()
	}
	if c.SuffixReviewer == nil {
		c.SuffixReviewer = review.AutoSuffixReviewer{}
	}
	if c.Navigator == nil {
		c.Navigator = review.AutoNavigator{}
	}
	if c.Copier == nil {
		c.Copier = copier.Mirror{}
	}
	if c.FreeSpace == nil {
		c.FreeSpace = DiskFree
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

func validationError(problems []string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}
