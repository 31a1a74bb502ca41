// ABOUTME: Review row types shared by the scoring stages and the final review session.
// ABOUTME: Tiers are coarse buckets assigned upstream; the review only reads them.
package review

import (
	"github.com/2389-research/ark/classify"
)

// Tier is the coarse bucket a candidate file was scored into.
type Tier string

const (
	Tier1          Tier = "tier1"
	Tier2          Tier = "tier2"
	Tier3          Tier = "tier3"
	Stage1Filtered Tier = "stage1_filtered"
	Ignored        Tier = "ignored"
)

// Reviewable reports whether rows of this tier enter the review tree by default.
func (t Tier) Reviewable() bool {
	return t == Tier1 || t == Tier2
}

// Row is one file under consideration for backup.
type Row struct {
	Path              string        `json:"path"`
	Tier              Tier          `json:"tier"`
	SizeBytes         int64         `json:"size_bytes"`
	Reason            string        `json:"reason"`
	Confidence        float64       `json:"confidence"`
	AIRisk            classify.Risk `json:"ai_risk"`
	InternalCandidate bool          `json:"internal_candidate"`
}

// TierCounts tallies rows by tier.
func TierCounts(rows []Row) map[Tier]int {
	out := make(map[Tier]int)
	for _, r := range rows {
		out[r.Tier]++
	}
	return out
}
