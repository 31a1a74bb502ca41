// ABOUTME: Local scoring signals and tier assignment for stage-two candidates.
package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/2389-research/ark/review"
)

var affinityDirs = map[string]bool{
	"document": true, "documents": true, "picture": true, "pictures": true, "photo": true, "desktop": true,
}

var affinitySuffixes = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".jpg": true, ".jpeg": true, ".png": true, ".md": true, ".txt": true,
}

// SuffixOf returns the lowercase final extension of path's base name,
// including the dot. Leading dots do not start an extension, so ".bashrc"
// has none.
func SuffixOf(path string) string {
	name := strings.TrimLeft(filepath.Base(path), ".")
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx:])
}

// ExtensionScore is the baseline signal: files with an extension score higher.
func ExtensionScore(path string) float64 {
	if SuffixOf(path) != "" {
		return 0.6
	}
	return 0.3
}

// PathAffinityScore guesses user value from well-known folder names and
// document or photo extensions.
func PathAffinityScore(path string) float64 {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if affinityDirs[strings.ToLower(part)] {
			return 0.85
		}
	}
	if affinitySuffixes[SuffixOf(path)] {
		return 0.7
	}
	return 0.35
}

// ClassifyTier buckets a candidate. Low overall confidence always lands in
// tier2 so the user sees it.
func ClassifyTier(signal, ai, confidence float64) review.Tier {
	if confidence < 0.6 {
		return review.Tier2
	}
	mean := (signal + ai) / 2
	switch {
	case mean >= 0.75:
		return review.Tier1
	case mean >= 0.4:
		return review.Tier2
	default:
		return review.Tier3
	}
}
