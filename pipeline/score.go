// ABOUTME: Stage two: path-risk classification in resumable batches, fused with local signals into tiers.
// ABOUTME: Also assembles the final review rows, including screened-out and ignored files.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/review"
)

// PathBatchSize is how many path keys go into one gateway call.
const PathBatchSize = 50

const defaultTierReason = "Local signal + heuristic AI fusion"

func (o *Orchestrator) stage2(ctx context.Context, candidates []string) ([]review.Row, error) {
	var prev Stage2Checkpoint
	if _, err := restoreCheckpoint(o.state, StageStage2, &prev); err != nil {
		return nil, err
	}
	lookup := prev.RiskLookup
	if lookup == nil {
		lookup = map[string]classify.PathRisk{}
	}

	keys := make([]string, len(candidates))
	for i, p := range candidates {
		keys[i] = o.pathKey(p)
	}

	if o.cfg.Gateway != nil && o.cfg.AIPathEnabled {
		start := prev.NextIndex
		if start > 0 && start < len(keys) {
			o.progress(fmt.Sprintf("[stage2] resuming at index=%d of %d", start, len(keys)))
		}
		for index := start; index < len(keys); index += PathBatchSize {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			batch := keys[index:min(index+PathBatchSize, len(keys))]
			num := index/PathBatchSize + 1
			got, err := o.cfg.Gateway.ClassifyPaths(ctx, batch)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				o.cfg.Logger.Warn("path classification failed", "component", "pipeline", "action", "stage2", "batch", num, "error", err)
				o.progress(fmt.Sprintf("[ai:fallback] path batch=%d size=%d error=%v", num, len(batch), err))
				got = classify.FallbackPaths(batch)
			} else {
				got = classify.CompletePaths(batch, got)
				o.progress(fmt.Sprintf("[ai:remote] path batch=%d size=%d", num, len(batch)))
			}
			for k, v := range got {
				lookup[k] = v
			}
			if err := o.save(StageStage2, Stage2Checkpoint{NextIndex: index + len(batch), RiskLookup: lookup}); err != nil {
				return nil, err
			}
		}
	}

	rows := make([]review.Row, 0, len(candidates))
	for i, path := range candidates {
		rows = append(rows, scoreCandidate(path, keys[i], lookup))
	}
	if err := o.save(StageStage2, Stage2Checkpoint{NextIndex: len(keys), RiskLookup: lookup, Complete: true}); err != nil {
		return nil, err
	}
	counts := review.TierCounts(rows)
	o.progress(fmt.Sprintf("[stage2] candidates=%d tier1=%d tier2=%d tier3=%d",
		len(rows), counts[review.Tier1], counts[review.Tier2], counts[review.Tier3]))
	return rows, nil
}

func (o *Orchestrator) pathKey(path string) string {
	if o.cfg.SendFullPathToAI {
		return path
	}
	return filepath.Base(path)
}

// scoreCandidate fuses the extension signal, the local path heuristic and any
// genuine classifier answer. Fallback answers leave the local score alone.
func scoreCandidate(path, key string, lookup map[string]classify.PathRisk) review.Row {
	signal := ExtensionScore(path)
	ai := PathAffinityScore(path)
	row := review.Row{
		Path:              path,
		SizeBytes:         fileSize(path),
		Reason:            defaultTierReason,
		AIRisk:            classify.Neutral,
		InternalCandidate: true,
	}

	var overrideConf float64
	risk, ok := lookup[key]
	if !ok {
		risk, ok = lookup[path]
	}
	if ok && !classify.IsFallback(risk.Reason) {
		if risk.Risk != "" {
			row.AIRisk = risk.Risk
		}
		if risk.Reason != "" {
			row.Reason = risk.Reason
		}
		ai = risk.Score
		overrideConf = risk.Confidence
	}

	row.Confidence = max(signal, ai, overrideConf)
	row.Tier = ClassifyTier(signal, ai, row.Confidence)
	return row
}

// candidatesFor returns the non-ignored files whose extension is whitelisted,
// in root order. An empty whitelist admits everything.
func candidatesFor(scan scanResult, whitelist []string) []string {
	allowed := make(map[string]bool, len(whitelist))
	for _, ext := range whitelist {
		allowed[ext] = true
	}
	var out []string
	for _, root := range scan.Roots {
		for _, f := range scan.FilesByRoot[root] {
			if len(allowed) == 0 || allowed[SuffixOf(f)] {
				out = append(out, f)
			}
		}
	}
	return out
}

// finalRows lists every discovered file: scored candidates as given, the
// rest as stage1_filtered or ignored, sorted by path.
func finalRows(scan scanResult, scored []review.Row) []review.Row {
	byPath := make(map[string]review.Row, len(scored))
	for _, r := range scored {
		byPath[r.Path] = r
	}

	var rows []review.Row
	for _, root := range scan.Roots {
		for _, f := range scan.FilesByRoot[root] {
			if r, ok := byPath[f]; ok {
				rows = append(rows, r)
				continue
			}
			rows = append(rows, review.Row{
				Path:      f,
				Tier:      review.Stage1Filtered,
				SizeBytes: fileSize(f),
				Reason:    "Excluded by Stage 1 suffix screening; selectable in final review",
				AIRisk:    classify.Neutral,
			})
		}
		for _, f := range scan.IgnoredByRoot[root] {
			rows = append(rows, review.Row{
				Path:      f,
				Tier:      review.Ignored,
				SizeBytes: fileSize(f),
				Reason:    "Excluded by ignore rules; selectable in final review",
				AIRisk:    classify.Neutral,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
	return rows
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
