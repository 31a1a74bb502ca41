// ABOUTME: Typed checkpoint payloads for each pipeline stage plus strict decoding on resume.
// ABOUTME: Older runs stored stage2 and final_review under legacy keys; both are still read.
package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/review"
	"github.com/2389-research/ark/runstore"
)

// Stage names used as checkpoint keys and event-log stage tags.
const (
	StageScan        = "scan"
	StageStage1      = "stage1"
	StageStage2      = "stage2"
	StageFinalReview = "final_review"
	StageCopy        = "copy"
)

// legacyKeys maps a stage to the key older runs wrote it under.
var legacyKeys = map[string]string{
	StageStage2:      "internal_tiering",
	StageFinalReview: "review",
}

// ErrSchema is returned when a stored checkpoint does not match its stage's shape.
var ErrSchema = errors.New("checkpoint schema mismatch")

// ScanCheckpoint records discovered files per source root.
type ScanCheckpoint struct {
	FilesByRoot   map[string][]string `json:"files_by_root"`
	IgnoredByRoot map[string][]string `json:"ignored_by_root,omitempty"`
	ScanComplete  bool                `json:"scan_complete"`
}

// Stage1Checkpoint records the approved suffix whitelist.
type Stage1Checkpoint struct {
	Whitelist []string `json:"whitelist"`
	Complete  bool     `json:"complete,omitempty"`
}

// Stage2Checkpoint records path-risk batches classified so far.
type Stage2Checkpoint struct {
	NextIndex  int                          `json:"next_index"`
	RiskLookup map[string]classify.PathRisk `json:"risk_lookup"`
	Complete   bool                         `json:"complete,omitempty"`
}

// CopyCheckpoint records the source paths already copied.
type CopyCheckpoint struct {
	CopiedPaths  []string `json:"copied_paths"`
	CopyComplete bool     `json:"copy_complete"`
}

// restoreCheckpoint decodes the checkpoint for stage (or its legacy key) into
// v. Unknown fields and type mismatches fail with ErrSchema.
func restoreCheckpoint(state *runstore.RunState, stage string, v any) (bool, error) {
	if state == nil {
		return false, nil
	}
	raw, ok := state.Checkpoints[stage]
	if !ok {
		legacy, has := legacyKeys[stage]
		if !has {
			return false, nil
		}
		if raw, ok = state.Checkpoints[legacy]; !ok {
			return false, nil
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrSchema, stage, err)
	}
	if err := validateCheckpoint(v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrSchema, stage, err)
	}
	return true, nil
}

func validateCheckpoint(v any) error {
	switch cp := v.(type) {
	case *Stage2Checkpoint:
		if cp.NextIndex < 0 {
			return fmt.Errorf("next_index %d is negative", cp.NextIndex)
		}
	case *review.Checkpoint:
		if cp.PageIndex < 0 {
			return fmt.Errorf("page_index %d is negative", cp.PageIndex)
		}
	}
	return nil
}
