// ABOUTME: CLI entrypoint for ark: runs a resumable backup curation, or inspects past runs (serve, report, runs).
// ABOUTME: Wires config, logger, run store, classification gateway, interactive roles and signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/pipeline"
	"github.com/2389-research/ark/review"
	"github.com/2389-research/ark/rules"
	"github.com/2389-research/ark/runstore"
	"github.com/2389-research/ark/tui"
)

var version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// connectivityTimeout bounds the model reachability check at startup.
const connectivityTimeout = 20 * time.Second

func main() {
	loadDotEnvAuto()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand or a backup run and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			return runServe(args[1:], stderr)
		case "report":
			return runReport(args[1:], stdout, stderr)
		case "runs":
			return runList(args[1:], stdout, stderr)
		case "help":
			printHelp(stdout, version)
			return exitOK
		}
	}

	rc, err := parseRunArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if rc.showVersion {
		fmt.Fprintf(stdout, "ark %s\n", version)
		return exitOK
	}
	return runBackup(rc, stdout, stderr)
}

// roles bundles the interactive collaborators for one run.
type roles struct {
	suffix    review.SuffixReviewer
	navigator review.Navigator
	confirmer review.Confirmer
	recovery  pipeline.RecoveryPrompt
}

// newRoles returns terminal dialogs when interactive, otherwise roles that
// accept every default and resume unfinished runs.
func newRoles(interactive bool) roles {
	if interactive {
		t := &tui.Terminal{}
		return roles{suffix: t, navigator: t, confirmer: t, recovery: t}
	}
	return roles{
		suffix:    review.AutoSuffixReviewer{},
		navigator: review.AutoNavigator{},
		confirmer: review.StaticConfirmer{Answer: true},
		recovery:  pipeline.StaticRecoveryPrompt{Choice: pipeline.RecoveryResume},
	}
}

// isInteractive reports whether both stdin and stdout are terminals.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// openStore opens the run store under dataDir and, when withIndex is set,
// attaches the SQLite event index. The returned func closes the index.
func openStore(dataDir string, withIndex bool, logger *slog.Logger) (*runstore.Store, *runstore.EventIndex, func(), error) {
	store, err := runstore.Open(stateDir(dataDir), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if !withIndex {
		return store, nil, func() {}, nil
	}
	idx, err := runstore.OpenEventIndex(filepath.Join(stateDir(dataDir), "events.db"))
	if err != nil {
		return nil, nil, nil, err
	}
	store.AttachIndex(idx)
	return store, idx, func() { idx.Close() }, nil
}

// runBackup executes one backup run end to end.
func runBackup(rc runConfig, stdout, stderr io.Writer) int {
	if problems := rc.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(stderr, "error: %s\n", p)
		}
		return exitUsage
	}

	dataDir, err := resolveDataDir(rc.dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	logger, closeLog, err := newLogger(rc.LogLevel, stderr, filepath.Join(dataDir, "logs"))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	defer closeLog()

	store, _, closeStore, err := openStore(dataDir, rc.EventIndex, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rulesDir := rc.RulesDir
	if rulesDir == "" {
		if dir, err := defaultConfigDir(); err == nil {
			rulesDir = filepath.Join(dir, "rules")
		}
	}
	suffixRules, err := rules.LoadSuffixRules(rulesDir)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	r := newRoles(!rc.NonInteractive && isInteractive())
	cfg := pipeline.Config{
		Target:             rc.Target,
		SourceRoots:        rc.SourceRoots,
		DryRun:             rc.DryRun,
		Store:              store,
		Gateway:            buildGateway(ctx, rc.fileConfig, rulesDir, logger, stderr),
		AISuffixEnabled:    rc.AISuffixEnabled,
		AIPathEnabled:      rc.AIPathEnabled,
		AIDirectoryEnabled: rc.AIDirectoryEnabled,
		SendFullPathToAI:   rc.SendFullPathToAI,
		PruneMode:          pipeline.PruneMode(rc.AIPruneMode),
		IncludeExcluded:    rc.IncludeExcluded,
		RulesDir:           rulesDir,
		SuffixRules:        suffixRules,
		SuffixReviewer:     r.suffix,
		Navigator:          r.navigator,
		Confirmer:          r.confirmer,
		Progress:           &tui.ProgressPrinter{Out: stderr},
		PageSize:           rc.PageSize,
		Logger:             logger,
	}

	if rc.resumeID != "" {
		cfg.RunID, cfg.Resume = rc.resumeID, true
	} else {
		res, err := pipeline.ResolveRun(ctx, store, r.recovery, rc.Target, rc.SourceRoots, rc.DryRun)
		if errors.Is(err, pipeline.ErrCancelled) {
			fmt.Fprintln(stderr, "Cancelled.")
			return exitOK
		}
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
		if res.Discarded != "" {
			logger.Info("unfinished run discarded", "component", "cli", "action", "discard", "run_id", res.Discarded)
		}
		cfg.RunID, cfg.Resume = res.RunID, res.Resume
	}

	orch, err := pipeline.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	result, err := orch.Run(ctx)
	if result != nil {
		for _, line := range result.Logs {
			fmt.Fprintln(stdout, line)
		}
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, tui.ErrAborted):
		fmt.Fprintf(stderr, "Aborted. Resume with: ark -resume %s\n", orch.RunID())
		return exitInterrupted
	case errors.Is(err, pipeline.ErrInterrupted):
		fmt.Fprintf(stderr, "Run paused. Resume with: ark -resume %s\n", orch.RunID())
		return exitInterrupted
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
}

// buildGateway returns the model-backed gateway, or nil when the model is
// disabled, the key is missing, or the model cannot be reached. Without a
// gateway the screening stages use built-in signals and the directory
// pre-pass uses classify.Heuristic.
func buildGateway(ctx context.Context, cfg fileConfig, rulesDir string, logger *slog.Logger, stderr io.Writer) classify.Gateway {
	if !cfg.LLM.Enabled {
		return nil
	}
	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		fmt.Fprintf(stderr, "warning: %s is not set; classifying with local heuristics\n", cfg.LLM.APIKeyEnv)
		return nil
	}
	completer := classify.NewOpenAICompleter(apiKey, cfg.LLM.Model, cfg.LLM.BaseURL)

	checkCtx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()
	if err := classify.CheckConnectivity(checkCtx, completer); err != nil {
		logger.Warn("model connectivity check failed", "component", "cli", "action", "connect", "model", cfg.LLM.Model, "error", err)
		fmt.Fprintf(stderr, "warning: model %s unreachable (%v); classifying with local heuristics\n", cfg.LLM.Model, err)
		return nil
	}

	rulesContext, err := rules.LoadRulesContext(rulesDir)
	if err != nil {
		logger.Warn("rules context unreadable", "component", "cli", "action", "rules", "error", err)
	}
	return classify.NewLLM(completer, rulesContext)
}
