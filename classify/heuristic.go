// ABOUTME: Local rule-based gateway for the directory pre-pass when no model is configured.
// ABOUTME: Scores suffixes and path tokens from fixed high- and low-value lists.
package classify

import (
	"context"
	"path"
	"strings"
)

var (
	highValueSuffixes = map[string]bool{
		".pdf": true, ".doc": true, ".docx": true, ".jpg": true,
		".jpeg": true, ".png": true, ".txt": true, ".md": true,
	}
	lowValueSuffixes = map[string]bool{".tmp": true, ".cache": true, ".log": true}

	lowValueTokens  = []string{"tmp", "cache", "node_modules", ".git"}
	highValueTokens = []string{"documents", "desktop", "pictures", "photo"}
)

// Heuristic is a Gateway that never calls out. The pipeline walks directories
// with it when no model is configured. Its answers are genuine, not
// fallbacks, so callers apply them as-is.
type Heuristic struct{}

var _ Gateway = Heuristic{}

// ClassifySuffixes labels well-known document and media types high value and
// scratch types low value.
func (Heuristic) ClassifySuffixes(_ context.Context, exts []string) (map[string]SuffixRisk, error) {
	out := make(map[string]SuffixRisk, len(exts))
	for _, ext := range exts {
		e := strings.ToLower(ext)
		switch {
		case highValueSuffixes[e]:
			out[ext] = SuffixRisk{Risk: HighValue, Confidence: 0.9, Reason: "heuristic: common user document or media"}
		case lowValueSuffixes[e]:
			out[ext] = SuffixRisk{Risk: LowValue, Confidence: 0.9, Reason: "heuristic: temporary or generated"}
		default:
			out[ext] = SuffixRisk{Risk: Neutral, Confidence: 0.5, Reason: "heuristic: unknown suffix"}
		}
	}
	return out, nil
}

// ClassifyPaths inspects path tokens. Scratch locations win over user folders.
func (Heuristic) ClassifyPaths(_ context.Context, keys []string) (map[string]PathRisk, error) {
	out := make(map[string]PathRisk, len(keys))
	for _, key := range keys {
		lower := strings.ToLower(strings.ReplaceAll(key, "\\", "/"))
		switch {
		case containsAny(lower, lowValueTokens):
			out[key] = PathRisk{Risk: LowValue, Score: 0.2, Confidence: 0.9, Reason: "heuristic: cache or temp path"}
		case containsAny(lower, highValueTokens):
			out[key] = PathRisk{Risk: HighValue, Score: 0.85, Confidence: 0.9, Reason: "heuristic: user content folder"}
		default:
			out[key] = PathRisk{Risk: Neutral, Score: 0.5, Confidence: 0.55, Reason: "heuristic: neutral path"}
		}
	}
	return out, nil
}

// ClassifyDirectory keeps user content folders, drops scratch folders, and
// defers on everything else.
func (Heuristic) ClassifyDirectory(_ context.Context, dir string, _, _ []string) (DirectoryVerdict, error) {
	name := strings.ToLower(path.Base(strings.ReplaceAll(dir, "\\", "/")))
	switch {
	case containsAny(name, lowValueTokens):
		return DirectoryVerdict{Decision: Drop, Confidence: 0.8, Reason: "heuristic: scratch directory"}, nil
	case containsAny(name, highValueTokens):
		return DirectoryVerdict{Decision: Keep, Confidence: 0.8, Reason: "heuristic: user content directory"}, nil
	}
	return DirectoryVerdict{Decision: NotSure, Confidence: 0.5, Reason: "heuristic: no signal"}, nil
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
