// ABOUTME: Stage one: screens discovered extensions into keep/drop suffix rows and asks for a whitelist.
// ABOUTME: Hard-drop suffixes never reach the gateway; fallback answers defer to the local keep list.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/review"
)

// suffixBatchSize bounds how many extensions go into one gateway call.
const suffixBatchSize = 100

func (o *Orchestrator) stage1(ctx context.Context, scan scanResult, sample bool) ([]string, []review.SuffixRow, error) {
	var prev Stage1Checkpoint
	found, err := restoreCheckpoint(o.state, StageStage1, &prev)
	if err != nil {
		return nil, nil, err
	}
	if found && prev.Complete {
		o.progress(fmt.Sprintf("[stage1] restored whitelist=%d", len(prev.Whitelist)))
		return normalizeWhitelist(prev.Whitelist), nil, nil
	}

	var rows []review.SuffixRow
	if sample {
		rows = sampleSuffixRows()
	} else {
		rows, err = o.screenSuffixes(ctx, discoveredSuffixes(scan))
		if err != nil {
			return nil, nil, err
		}
	}

	whitelist, err := o.cfg.SuffixReviewer.ReviewSuffixes(ctx, rows)
	if err != nil {
		_ = o.save(StageStage1, Stage1Checkpoint{Whitelist: review.DefaultWhitelist(rows)})
		return nil, rows, fmt.Errorf("suffix review: %w", err)
	}
	whitelist = normalizeWhitelist(whitelist)
	if err := o.save(StageStage1, Stage1Checkpoint{Whitelist: whitelist, Complete: true}); err != nil {
		return nil, rows, err
	}
	o.progress(fmt.Sprintf("[stage1] whitelist=%d", len(whitelist)))
	return whitelist, rows, nil
}

// screenSuffixes builds one row per extension, sorted by extension.
func (o *Orchestrator) screenSuffixes(ctx context.Context, exts []string) ([]review.SuffixRow, error) {
	sr := o.cfg.SuffixRules
	useAI := o.cfg.Gateway != nil && o.cfg.AISuffixEnabled

	var askable []string
	for _, ext := range exts {
		if !sr.IsHardDrop(ext) {
			askable = append(askable, ext)
		}
	}

	lookup := map[string]classify.SuffixRisk{}
	if useAI {
		for start := 0; start < len(askable); start += suffixBatchSize {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			batch := askable[start:min(start+suffixBatchSize, len(askable))]
			got, err := o.cfg.Gateway.ClassifySuffixes(ctx, batch)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				o.cfg.Logger.Warn("suffix classification failed", "component", "pipeline", "action", "stage1", "error", err)
				o.progress(fmt.Sprintf("[ai:fallback] suffix batch size=%d error=%v", len(batch), err))
				got = classify.FallbackSuffixes(batch)
			} else {
				got = classify.CompleteSuffixes(batch, got)
				o.progress(fmt.Sprintf("[ai:remote] suffix batch size=%d", len(batch)))
			}
			for k, v := range got {
				lookup[k] = v
			}
		}
	}

	rows := make([]review.SuffixRow, 0, len(exts))
	for _, ext := range exts {
		row := review.SuffixRow{Ext: ext, Category: sr.CategoryOf(ext)}
		switch {
		case sr.IsHardDrop(ext):
			row.Label, row.Tag, row.Confidence, row.Reason = "drop", "hard-drop-rule", 0.99, "Hard drop rule: temporary/generated suffix"
		case useAI:
			row.Label, row.Tag, row.Confidence, row.Reason = "keep", "ai-pending", 0.50, "AI-driven suffix selection (default keep)"
			applySuffixRisk(&row, lookup[ext], sr.IsKeepDefault(ext))
		default:
			heuristicSuffix(&row, sr.IsKeepDefault(ext))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func applySuffixRisk(row *review.SuffixRow, risk classify.SuffixRisk, keepDefault bool) {
	if risk.Risk == "" || classify.IsFallback(risk.Reason) {
		heuristicSuffix(row, keepDefault)
		return
	}
	switch risk.Risk {
	case classify.HighValue:
		row.Label, row.Tag = "keep", "ai-high-value"
	case classify.LowValue:
		row.Label, row.Tag = "drop", "ai-low-value"
	}
	row.Confidence = risk.Confidence
	if risk.Reason != "" {
		row.Reason = risk.Reason
	}
}

func heuristicSuffix(row *review.SuffixRow, keepDefault bool) {
	if keepDefault {
		row.Label, row.Tag, row.Confidence, row.Reason = "keep", "likely-user-data", 0.85, "Likely user-created content"
		return
	}
	row.Label, row.Tag, row.Confidence, row.Reason = "drop", "likely-generated", 0.70, "Likely generated or low-value artifact"
}

func discoveredSuffixes(scan scanResult) []string {
	set := map[string]struct{}{}
	for _, files := range scan.FilesByRoot {
		for _, f := range files {
			if ext := SuffixOf(f); ext != "" {
				set[ext] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

func normalizeWhitelist(in []string) []string {
	set := map[string]struct{}{}
	for _, ext := range in {
		if ext == "" {
			continue
		}
		if ext[0] != '.' {
			ext = "." + ext
		}
		set[strings.ToLower(ext)] = struct{}{}
	}
	return sortedKeys(set)
}
