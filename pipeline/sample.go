// ABOUTME: Built-in sample dataset shown when no usable source roots exist.
package pipeline

import (
	"path/filepath"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/review"
)

const (
	msgUsingSample = "No valid source files discovered from configured roots; using sample data."
	msgNoFiles     = "No files discovered under configured source roots; review source paths in Settings."
)

func sampleSuffixRows() []review.SuffixRow {
	return []review.SuffixRow{
		{Ext: ".pdf", Label: "keep", Tag: "document", Confidence: 0.93, Reason: "Likely personal or business document", Category: "Document"},
		{Ext: ".jpg", Label: "keep", Tag: "media", Confidence: 0.90, Reason: "Likely personal photo", Category: "Image"},
		{Ext: ".tmp", Label: "drop", Tag: "cache", Confidence: 0.91, Reason: "Likely temporary cache artifact", Category: "Temp/Cache"},
	}
}

func samplePathRows(home string) []review.Row {
	return []review.Row{
		{Path: filepath.Join(home, "Documents", "report.pdf"), Tier: review.Tier1, SizeBytes: 81234, Reason: "High-value user document path", Confidence: 0.93, AIRisk: classify.HighValue, InternalCandidate: true},
		{Path: filepath.Join(home, "Pictures", "holiday.jpg"), Tier: review.Tier1, SizeBytes: 4202444, Reason: "Personal media with likely irreplaceable value", Confidence: 0.89, AIRisk: classify.HighValue, InternalCandidate: true},
		{Path: filepath.Join(home, "Downloads", "archive.zip"), Tier: review.Tier2, SizeBytes: 132100230, Reason: "Potentially useful archive requiring manual confirmation", Confidence: 0.64, AIRisk: classify.Neutral, InternalCandidate: true},
	}
}
