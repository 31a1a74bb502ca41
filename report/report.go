// ABOUTME: Run report: summarizes a persisted run (status, checkpoints, event counts, copied files) as Markdown.
// ABOUTME: The same Markdown is rendered to HTML with goldmark for the inspection API.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389-research/ark/copier"
	"github.com/2389-research/ark/runstore"
)

// stageOrder is the display order of pipeline checkpoints.
var stageOrder = []string{"scan", "stage1", "stage2", "final_review", "copy"}

// Report gathers what is known about one run.
type Report struct {
	State    *runstore.RunState
	Events   *runstore.EventSummary
	Manifest *copier.Manifest
	// Now is used for relative times. Zero means time.Now.
	Now time.Time
}

// Build loads the run, its event summary, and the target manifest when the
// manifest belongs to this run.
func Build(store *runstore.Store, runID string) (*Report, error) {
	state, err := store.LoadRun(runID)
	if err != nil {
		return nil, err
	}
	events, err := store.SummarizeEvents(runID)
	if err != nil {
		return nil, fmt.Errorf("summarize events: %w", err)
	}
	r := &Report{State: state, Events: events}

	m, err := copier.ReadManifest(state.Meta.Target)
	switch {
	case err == nil && m.RunID == runID:
		r.Manifest = m
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return r, nil
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	now := r.Now
	if now.IsZero() {
		now = time.Now()
	}
	meta := r.State.Meta

	var b strings.Builder
	fmt.Fprintf(&b, "# Backup run %s\n\n", r.State.RunID)
	fmt.Fprintf(&b, "- **Status:** %s\n", meta.Status)
	fmt.Fprintf(&b, "- **Target:** `%s`\n", meta.Target)
	if len(meta.SourceRoots) == 0 {
		b.WriteString("- **Sources:** none configured\n")
	} else {
		fmt.Fprintf(&b, "- **Sources:** %s\n", codeList(meta.SourceRoots))
	}
	fmt.Fprintf(&b, "- **Dry run:** %t\n", meta.DryRun)
	fmt.Fprintf(&b, "- **Started:** %s (%s)\n", meta.StartedAt.UTC().Format(time.RFC3339), humanize.RelTime(meta.StartedAt, now, "ago", "from now"))
	fmt.Fprintf(&b, "- **Updated:** %s\n", meta.UpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Checkpoints written:** %d\n", meta.CheckpointSeq)
	if meta.LastStage != "" {
		fmt.Fprintf(&b, "- **Last stage:** %s\n", meta.LastStage)
	}

	b.WriteString("\n## Stages\n\n")
	b.WriteString("| Stage | Checkpoint | Detail |\n|---|---|---|\n")
	for _, stage := range stageOrder {
		raw, ok := r.State.Checkpoints[stage]
		if !ok {
			fmt.Fprintf(&b, "| %s | none | |\n", stage)
			continue
		}
		fmt.Fprintf(&b, "| %s | saved | %s |\n", stage, stageDetail(stage, raw))
	}

	if r.Events != nil && r.Events.TotalEvents > 0 {
		b.WriteString("\n## Events\n\n")
		fmt.Fprintf(&b, "%d events", r.Events.TotalEvents)
		if r.Events.FirstEvent != nil && r.Events.LastEvent != nil {
			fmt.Fprintf(&b, " between %s and %s",
				r.Events.FirstEvent.UTC().Format(time.RFC3339),
				r.Events.LastEvent.UTC().Format(time.RFC3339))
		}
		b.WriteString(".\n\n| Stage | Events |\n|---|---|\n")
		for _, stage := range sortedKeys(r.Events.ByStage) {
			fmt.Fprintf(&b, "| %s | %d |\n", stage, r.Events.ByStage[stage])
		}
	}

	if r.Manifest != nil {
		b.WriteString("\n## Copied files\n\n")
		fmt.Fprintf(&b, "%d files, %s total.\n\n", len(r.Manifest.Files), humanize.IBytes(uint64(r.Manifest.TotalBytes)))
		b.WriteString("| Source | Destination | Size |\n|---|---|---|\n")
		for _, f := range r.Manifest.Files {
			fmt.Fprintf(&b, "| `%s` | `%s` | %s |\n", f.Source, f.Dest, humanize.IBytes(uint64(f.Bytes)))
		}
	}
	return b.String()
}

// HTML renders the Markdown report with tables enabled. Raw HTML in the
// Markdown is not passed through.
func (r *Report) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := md.Convert([]byte(r.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// stageDetail pulls the headline number out of a checkpoint payload.
func stageDetail(stage string, raw json.RawMessage) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "unreadable"
	}
	count := func(key string) int {
		var items []json.RawMessage
		if err := json.Unmarshal(payload[key], &items); err != nil {
			return 0
		}
		return len(items)
	}
	flag := func(key string) bool {
		var v bool
		_ = json.Unmarshal(payload[key], &v)
		return v
	}

	switch stage {
	case "scan":
		var byRoot map[string][]string
		_ = json.Unmarshal(payload["files_by_root"], &byRoot)
		files := 0
		for _, fs := range byRoot {
			files += len(fs)
		}
		return fmt.Sprintf("%d files in %d roots, complete=%t", files, len(byRoot), flag("scan_complete"))
	case "stage1":
		return fmt.Sprintf("%d whitelisted suffixes", count("whitelist"))
	case "stage2":
		var next int
		_ = json.Unmarshal(payload["next_index"], &next)
		return fmt.Sprintf("%d paths classified", next)
	case "final_review":
		return fmt.Sprintf("%d selected, complete=%t", count("selected_paths"), flag("complete"))
	case "copy":
		return fmt.Sprintf("%d copied, complete=%t", count("copied_paths"), flag("copy_complete"))
	}
	return ""
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
