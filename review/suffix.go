// ABOUTME: Stage-one suffix rows, category grouping, and the default keep selection.
package review

import (
	"context"
	"sort"
)

// DefaultKeepThreshold is the confidence a keep row needs to be selected by default.
const DefaultKeepThreshold = 0.8

// CategoryOrder is the display order of suffix categories.
var CategoryOrder = []string{"Document", "Image", "Code", "Archive", "Media", "Executable", "Temp/Cache", "Other"}

// SuffixRow is one discovered extension with its screening verdict.
type SuffixRow struct {
	Ext        string  `json:"ext"`
	Label      string  `json:"label"`
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Category   string  `json:"category"`
}

// SuffixGroup is the rows of one category.
type SuffixGroup struct {
	Category string
	Rows     []SuffixRow
}

// SuffixReviewer turns screened suffix rows into the whitelist of extensions
// to carry forward.
type SuffixReviewer interface {
	ReviewSuffixes(ctx context.Context, rows []SuffixRow) ([]string, error)
}

// AutoSuffixReviewer accepts the default selection without prompting.
type AutoSuffixReviewer struct{}

// ReviewSuffixes returns DefaultWhitelist(rows).
func (AutoSuffixReviewer) ReviewSuffixes(_ context.Context, rows []SuffixRow) ([]string, error) {
	return DefaultWhitelist(rows), nil
}

// DefaultWhitelist selects keep rows at or above DefaultKeepThreshold, sorted.
func DefaultWhitelist(rows []SuffixRow) []string {
	out := []string{}
	for _, r := range rows {
		if r.Label == "keep" && r.Confidence >= DefaultKeepThreshold {
			out = append(out, r.Ext)
		}
	}
	sort.Strings(out)
	return out
}

// GroupSuffixRows buckets rows by category in CategoryOrder. Unknown
// categories fold into Other. Empty groups are omitted.
func GroupSuffixRows(rows []SuffixRow) []SuffixGroup {
	byCat := make(map[string][]SuffixRow)
	known := make(map[string]bool, len(CategoryOrder))
	for _, c := range CategoryOrder {
		known[c] = true
	}
	for _, r := range rows {
		cat := r.Category
		if !known[cat] {
			cat = "Other"
		}
		byCat[cat] = append(byCat[cat], r)
	}
	var out []SuffixGroup
	for _, c := range CategoryOrder {
		if len(byCat[c]) > 0 {
			out = append(out, SuffixGroup{Category: c, Rows: byCat[c]})
		}
	}
	return out
}
