// ABOUTME: Scan stage: walks each accessible source root and splits files into candidates and ignored.
// ABOUTME: Partial results are checkpointed every few hundred files so a restart keeps what was seen.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/2389-research/ark/rules"
)

// scanCheckpointEvery is how many newly discovered files trigger a partial checkpoint.
const scanCheckpointEvery = 200

type scanResult struct {
	Roots         []string
	FilesByRoot   map[string][]string
	IgnoredByRoot map[string][]string
	// Configured reports that at least one root was configured, accessible or not.
	Configured bool
}

func (r scanResult) fileCount() int {
	n := 0
	for _, files := range r.FilesByRoot {
		n += len(files)
	}
	return n
}

func (r scanResult) ignoredCount() int {
	n := 0
	for _, files := range r.IgnoredByRoot {
		n += len(files)
	}
	return n
}

func (r scanResult) checkpoint(complete bool) ScanCheckpoint {
	return ScanCheckpoint{FilesByRoot: r.FilesByRoot, IgnoredByRoot: r.IgnoredByRoot, ScanComplete: complete}
}

func (o *Orchestrator) scan(ctx context.Context) (scanResult, error) {
	res := scanResult{
		FilesByRoot:   make(map[string][]string),
		IgnoredByRoot: make(map[string][]string),
		Configured:    len(o.cfg.SourceRoots) > 0,
	}

	var prev ScanCheckpoint
	found, err := restoreCheckpoint(o.state, StageScan, &prev)
	if err != nil {
		return res, err
	}
	if found && prev.ScanComplete {
		for root, files := range prev.FilesByRoot {
			res.FilesByRoot[root] = files
		}
		for root, files := range prev.IgnoredByRoot {
			res.IgnoredByRoot[root] = files
		}
		res.Roots = o.orderedRoots(res.FilesByRoot, res.IgnoredByRoot)
		o.progress("[scan] restored completed scan checkpoint")
		return res, nil
	}

	discovered := 0
	for _, configured := range o.cfg.SourceRoots {
		root := filepath.Clean(configured)
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			o.progress(fmt.Sprintf("[scan] skipping unavailable root=%s", root))
			continue
		}
		matcher, err := rules.LoadMatcher(o.cfg.RulesDir, root)
		if err != nil {
			return res, fmt.Errorf("load ignore rules for %s: %w", root, err)
		}
		o.progress(fmt.Sprintf("[scan] scanning root=%s", root))

		files := mergeSeen(nil, prev.FilesByRoot[root])
		ignored := mergeSeen(nil, prev.IgnoredByRoot[root])
		res.Roots = append(res.Roots, root)

		walkErr := walkRoot(ctx, root, matcher, func(path string, isIgnored bool) error {
			if isIgnored {
				ignored[path] = struct{}{}
				return nil
			}
			if _, seen := files[path]; seen {
				return nil
			}
			files[path] = struct{}{}
			discovered++
			if discovered%scanCheckpointEvery == 0 {
				res.FilesByRoot[root] = sortedKeys(files)
				res.IgnoredByRoot[root] = sortedKeys(ignored)
				o.progress(fmt.Sprintf("[scan] discovered=%d current=%s", discovered, filepath.Dir(path)))
				return o.save(StageScan, res.checkpoint(false))
			}
			return nil
		})
		res.FilesByRoot[root] = sortedKeys(files)
		res.IgnoredByRoot[root] = sortedKeys(ignored)
		if walkErr != nil {
			if ctx.Err() != nil {
				_ = o.save(StageScan, res.checkpoint(false))
			}
			return res, walkErr
		}
	}

	if err := o.save(StageScan, res.checkpoint(true)); err != nil {
		return res, err
	}
	o.progress(fmt.Sprintf("[scan] files=%d ignored=%d roots=%d", res.fileCount(), res.ignoredCount(), len(res.Roots)))
	return res, nil
}

// walkRoot visits every regular file below root. Directories matched by the
// ignore rules are still walked so their files can be offered as ignored.
// Unreadable entries below the root are skipped.
func walkRoot(ctx context.Context, root string, matcher *rules.Matcher, visit func(path string, ignored bool) error) error {
	ignoredDirs := map[string]bool{}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		parentIgnored := ignoredDirs[filepath.Dir(path)]

		if d.IsDir() {
			ignoredDirs[path] = parentIgnored || matcher.ShouldIgnore(rel, true)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return visit(path, parentIgnored || matcher.ShouldIgnore(rel, false))
	})
}

// orderedRoots lists roots in configured order, then any others sorted.
func (o *Orchestrator) orderedRoots(maps ...map[string][]string) []string {
	present := map[string]bool{}
	for _, m := range maps {
		for root := range m {
			present[root] = true
		}
	}
	var out []string
	for _, configured := range o.cfg.SourceRoots {
		root := filepath.Clean(configured)
		if present[root] {
			out = append(out, root)
			delete(present, root)
		}
	}
	var rest []string
	for root := range present {
		rest = append(rest, root)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func mergeSeen(set map[string]struct{}, items []string) map[string]struct{} {
	if set == nil {
		set = make(map[string]struct{}, len(items))
	}
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
