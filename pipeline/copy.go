// ABOUTME: Copy stage: mirrors the approved selection into the target, checkpointing after every file.
// ABOUTME: Files already recorded as copied are skipped on resume; a manifest is written at the end.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/2389-research/ark/copier"
	"github.com/2389-research/ark/selection"
)

type copyOutcome struct {
	Copied      []copier.Result
	CopiedPaths []string
	Manifest    string
}

type copyJob struct {
	root string
	path string
}

func (o *Orchestrator) copyStage(ctx context.Context, scan scanResult, selected []string) (copyOutcome, error) {
	var out copyOutcome
	var prev CopyCheckpoint
	if _, err := restoreCheckpoint(o.state, StageCopy, &prev); err != nil {
		return out, err
	}
	if prev.CopyComplete {
		out.CopiedPaths = prev.CopiedPaths
		o.progress(fmt.Sprintf("[copy] restored completed copy checkpoint copied=%d", len(prev.CopiedPaths)))
		return out, nil
	}

	if o.cfg.DryRun {
		out.CopiedPaths = []string{}
		if err := o.save(StageCopy, CopyCheckpoint{CopiedPaths: []string{}, CopyComplete: true}); err != nil {
			return out, err
		}
		o.progress("[copy] dry run complete")
		return out, nil
	}

	want := make(map[string]bool, len(selected))
	for _, p := range selected {
		want[selection.NormalizePath(p)] = true
	}
	copied := mergeSeen(nil, prev.CopiedPaths)
	rootOf := map[string]string{}

	var jobs []copyJob
	var need uint64
	for _, root := range scan.Roots {
		files := append(append([]string(nil), scan.FilesByRoot[root]...), scan.IgnoredByRoot[root]...)
		sort.Strings(files)
		for _, f := range files {
			rootOf[f] = root
			if !want[selection.NormalizePath(f)] {
				continue
			}
			if _, done := copied[f]; done {
				continue
			}
			jobs = append(jobs, copyJob{root: root, path: f})
			need += uint64(fileSize(f))
		}
	}

	if len(jobs) > 0 {
		result := RunPreflight(ctx, CopyPreflightChecks(o.cfg.Target, need, o.cfg.FreeSpace))
		if !result.OK() {
			return out, fmt.Errorf("%w: %w", ErrPreflight, result)
		}
		o.progress(fmt.Sprintf("[copy] files=%d size=%s", len(jobs), humanize.IBytes(need)))
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			_ = o.save(StageCopy, CopyCheckpoint{CopiedPaths: sortedKeys(copied), CopyComplete: false})
			return out, err
		}
		o.progress(fmt.Sprintf("[copy] copying %s", job.path))
		res, err := o.cfg.Copier.CopyOne(job.root, job.path, o.cfg.Target)
		if err != nil {
			return out, fmt.Errorf("copy %s: %w", job.path, err)
		}
		out.Copied = append(out.Copied, res)
		copied[job.path] = struct{}{}
		if err := o.save(StageCopy, CopyCheckpoint{CopiedPaths: sortedKeys(copied), CopyComplete: false}); err != nil {
			return out, err
		}
	}

	out.CopiedPaths = sortedKeys(copied)
	if err := o.save(StageCopy, CopyCheckpoint{CopiedPaths: out.CopiedPaths, CopyComplete: true}); err != nil {
		return out, err
	}
	o.progress(fmt.Sprintf("[copy] copied=%d", len(out.Copied)))

	manifest, err := copier.WriteManifest(o.cfg.Target, o.runID, o.manifestEntries(out, rootOf), o.cfg.Now())
	if err != nil {
		return out, err
	}
	out.Manifest = manifest
	return out, nil
}

// manifestEntries lists every copied file, including ones copied by an
// earlier attempt of the same run.
func (o *Orchestrator) manifestEntries(out copyOutcome, rootOf map[string]string) []copier.Result {
	fresh := make(map[string]bool, len(out.Copied))
	entries := append([]copier.Result(nil), out.Copied...)
	for _, r := range out.Copied {
		fresh[r.Source] = true
	}
	for _, p := range out.CopiedPaths {
		if fresh[p] {
			continue
		}
		root, ok := rootOf[p]
		if !ok {
			continue
		}
		dest, err := copier.Destination(root, p, o.cfg.Target)
		if err != nil {
			continue
		}
		entries = append(entries, copier.Result{Source: p, Dest: dest, Bytes: fileSize(dest)})
	}
	return entries
}
