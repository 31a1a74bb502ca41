// ABOUTME: Classification gateway contract: suffix risk, path risk, and directory keep/drop decisions.
// ABOUTME: Every method answers for every input key; fallback entries carry FallbackReason.
package classify

import (
	"context"
	"strings"
)

// Risk is the value label attached to a suffix or path.
type Risk string

const (
	HighValue Risk = "high_value"
	LowValue  Risk = "low_value"
	Neutral   Risk = "neutral"
)

// Decision is a directory-level verdict.
type Decision string

const (
	Keep    Decision = "keep"
	Drop    Decision = "drop"
	NotSure Decision = "not_sure"
)

// FallbackReason marks an entry that is a default rather than a genuine
// classification. Callers check it to decide whether a local heuristic wins.
const FallbackReason = "LLM parse fallback"

// SuffixRisk classifies one file extension.
type SuffixRisk struct {
	Risk       Risk    `json:"risk"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// PathRisk classifies one path or file name.
type PathRisk struct {
	Risk       Risk    `json:"risk"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// DirectoryVerdict is the gateway's answer for one directory.
type DirectoryVerdict struct {
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

// Gateway classifies backup candidates. Implementations must return one entry
// per input key. An error means the whole call failed; callers convert it to
// fallback values rather than aborting.
type Gateway interface {
	ClassifySuffixes(ctx context.Context, exts []string) (map[string]SuffixRisk, error)
	ClassifyPaths(ctx context.Context, keys []string) (map[string]PathRisk, error)
	ClassifyDirectory(ctx context.Context, dir string, childDirs, sampleFiles []string) (DirectoryVerdict, error)
}

// IsFallback reports whether reason is the fallback marker.
func IsFallback(reason string) bool {
	return strings.TrimSpace(reason) == FallbackReason
}

// FallbackSuffixes returns the neutral default for every extension.
func FallbackSuffixes(exts []string) map[string]SuffixRisk {
	out := make(map[string]SuffixRisk, len(exts))
	for _, ext := range exts {
		out[ext] = SuffixRisk{Risk: Neutral, Confidence: 0, Reason: FallbackReason}
	}
	return out
}

// FallbackPaths returns the neutral default for every key.
func FallbackPaths(keys []string) map[string]PathRisk {
	out := make(map[string]PathRisk, len(keys))
	for _, key := range keys {
		out[key] = PathRisk{Risk: Neutral, Score: 0.5, Confidence: 0, Reason: FallbackReason}
	}
	return out
}

// FallbackDirectory is the verdict used when a directory could not be classified.
func FallbackDirectory() DirectoryVerdict {
	return DirectoryVerdict{Decision: NotSure, Confidence: 0, Reason: FallbackReason}
}

// CompleteSuffixes fills any extension missing from got with the fallback.
func CompleteSuffixes(exts []string, got map[string]SuffixRisk) map[string]SuffixRisk {
	out := FallbackSuffixes(exts)
	for _, ext := range exts {
		if v, ok := got[ext]; ok {
			out[ext] = v
		}
	}
	return out
}

// CompletePaths fills any key missing from got with the fallback.
func CompletePaths(keys []string, got map[string]PathRisk) map[string]PathRisk {
	out := FallbackPaths(keys)
	for _, key := range keys {
		if v, ok := got[key]; ok {
			out[key] = v
		}
	}
	return out
}

// NormalizeDecision maps free-form model output onto the three decisions.
func NormalizeDecision(value string) Decision {
	switch d := Decision(strings.ToLower(strings.TrimSpace(value))); d {
	case Keep, Drop, NotSure:
		return d
	}
	return NotSure
}

// RiskFor maps a decision to the risk label it implies.
func RiskFor(d Decision) Risk {
	switch d {
	case Keep:
		return HighValue
	case Drop:
		return LowValue
	}
	return Neutral
}

// ScoreFor is the default path score implied by a decision.
func ScoreFor(d Decision) float64 {
	switch d {
	case Keep:
		return 0.85
	case Drop:
		return 0.2
	}
	return 0.5
}
