// ABOUTME: Inspection subcommands: "ark serve" (HTTP API), "ark report <run-id>", and "ark runs".
// ABOUTME: Each follows the same pattern as the backup run with its own flag set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/2389-research/ark/report"
	"github.com/2389-research/ark/runstore"
	"github.com/2389-research/ark/web"
)

// runServe starts the read-only inspection server.
func runServe(args []string, stderr io.Writer) int {
	var (
		addr     string
		dataDir  string
		index    bool
		logLevel string
	)
	fs := flag.NewFlagSet("ark serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&addr, "addr", "127.0.0.1:2389", "Listen address")
	fs.StringVar(&dataDir, "data-dir", "", "Data directory (default: $XDG_DATA_HOME/ark)")
	fs.BoolVar(&index, "index", false, "Rebuild and serve the SQLite event index")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	if code, done := parseSubcommand(fs, args); done {
		return code
	}

	dir, err := resolveDataDir(dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	logger, closeLog, err := newLogger(logLevel, stderr, "")
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	defer closeLog()

	store, idx, closeStore, err := openStore(dir, index, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	defer closeStore()
	if idx != nil {
		n, err := idx.Rebuild(store)
		if err != nil {
			fmt.Fprintf(stderr, "error: rebuild event index: %v\n", err)
			return exitFailure
		}
		logger.Info("event index rebuilt", "component", "cli", "action", "reindex", "events", n)
	}

	srv, err := web.NewServer(web.ServerConfig{Addr: addr, Store: store, Index: idx, Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stderr, "listening on http://%s\n", srv.Addr())
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// runReport prints one run's report as Markdown or HTML.
func runReport(args []string, stdout, stderr io.Writer) int {
	var (
		dataDir string
		format  string
	)
	fs := flag.NewFlagSet("ark report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&dataDir, "data-dir", "", "Data directory (default: $XDG_DATA_HOME/ark)")
	fs.StringVar(&format, "format", "md", "Output format: md or html")
	if code, done := parseSubcommand(fs, args); done {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: ark report [-format md|html] <run-id>")
		return exitUsage
	}

	store, code := openReadOnlyStore(dataDir, stderr)
	if store == nil {
		return code
	}
	rep, err := report.Build(store, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if errors.Is(err, runstore.ErrNotFound) {
			return exitUsage
		}
		return exitFailure
	}

	switch strings.ToLower(format) {
	case "md", "markdown":
		fmt.Fprint(stdout, rep.Markdown())
	case "html":
		html, err := rep.HTML()
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
		fmt.Fprint(stdout, html)
	default:
		fmt.Fprintf(stderr, "error: unknown format %q\n", format)
		return exitUsage
	}
	return exitOK
}

// runList prints every run, most recently updated first.
func runList(args []string, stdout, stderr io.Writer) int {
	var (
		dataDir string
		status  string
	)
	fs := flag.NewFlagSet("ark runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&dataDir, "data-dir", "", "Data directory (default: $XDG_DATA_HOME/ark)")
	fs.StringVar(&status, "status", "", "Only list runs with this status")
	if code, done := parseSubcommand(fs, args); done {
		return code
	}
	if status != "" && !runstore.Status(status).Valid() {
		fmt.Fprintf(stderr, "error: unknown status %q\n", status)
		return exitUsage
	}

	store, code := openReadOnlyStore(dataDir, stderr)
	if store == nil {
		return code
	}
	runs, err := store.ListRuns()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTATUS\tLAST STAGE\tUPDATED\tTARGET")
	for _, r := range runs {
		if status != "" && string(r.Meta.Status) != status {
			continue
		}
		stage := r.Meta.LastStage
		if stage == "" {
			stage = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.RunID, r.Meta.Status, stage, humanize.Time(r.Meta.UpdatedAt), r.Meta.Target)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// parseSubcommand parses fs and reports whether the caller should return
// immediately with the given code.
func parseSubcommand(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, true
		}
		return exitUsage, true
	}
	return 0, false
}

func openReadOnlyStore(dataDir string, stderr io.Writer) (*runstore.Store, int) {
	dir, err := resolveDataDir(dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, exitFailure
	}
	store, err := runstore.Open(stateDir(dir), nil)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, exitFailure
	}
	return store, exitOK
}
