// ABOUTME: Filesystem-backed checkpoint store for backup runs with atomic whole-document writes.
// ABOUTME: Each run is <id>.json (state) plus <id>.events.jsonl (append-only diagnostic log).
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a run lifecycle value.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
	StatusDiscarded Status = "discarded"
)

// Valid reports whether s is one of the five lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusPaused, StatusFailed, StatusCompleted, StatusDiscarded:
		return true
	}
	return false
}

// Resumable reports whether a run in this status may be picked up again.
func (s Status) Resumable() bool {
	return s == StatusRunning || s == StatusPaused
}

var (
	// ErrNotFound is returned when no state file exists for a run id.
	ErrNotFound = errors.New("run not found")
	// ErrInvalidStatus is returned for a status outside the lifecycle set.
	ErrInvalidStatus = errors.New("invalid run status")
	// ErrCorruptState is returned when a state file cannot be decoded.
	ErrCorruptState = errors.New("corrupt run state")
)

// Meta holds a run's lifecycle status and identifying parameters.
type Meta struct {
	Status        Status    `json:"status"`
	Target        string    `json:"target"`
	SourceRoots   []string  `json:"source_roots"`
	DryRun        bool      `json:"dry_run"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CheckpointSeq int       `json:"checkpoint_seq"`
	LastStage     string    `json:"last_stage,omitempty"`
}

// RunState is the complete persisted document for one run. Checkpoint
// payloads are kept raw; each stage decodes its own shape.
type RunState struct {
	RunID       string                     `json:"run_id"`
	Meta        Meta                       `json:"meta"`
	Checkpoints map[string]json.RawMessage `json:"checkpoints"`
}

// Checkpoint decodes the payload stored for stage into v. It reports false
// when the stage has no checkpoint.
func (r *RunState) Checkpoint(stage string, v any) (bool, error) {
	raw, ok := r.Checkpoints[stage]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s checkpoint: %w", stage, err)
	}
	return true, nil
}

// Summary identifies a resumable run.
type Summary struct {
	RunID     string
	Status    Status
	UpdatedAt time.Time
	LastStage string
	State     *RunState
}

// Store persists run states under a single directory. Writes to one run are
// serialized by the store's mutex; concurrent writers for the same run from
// separate processes are not arbitrated.
type Store struct {
	dir    string
	mu     sync.RWMutex
	now    func() time.Time
	index  *EventIndex
	logger *slog.Logger
}

// Open creates the state directory if needed and returns a store rooted there.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{dir: dir, now: time.Now, logger: logger}, nil
}

// Dir returns the directory holding state files.
func (s *Store) Dir() string { return s.dir }

// AttachIndex mirrors every subsequently appended event into idx.
func (s *Store) AttachIndex(idx *EventIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = idx
}

func (s *Store) statePath(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

func (s *Store) eventsPath(runID string) string {
	return filepath.Join(s.dir, runID+".events.jsonl")
}

// CreateRun allocates a run id and writes the initial running state.
func (s *Store) CreateRun(target string, sourceRoots []string, dryRun bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	state := &RunState{
		RunID: uuid.New().String(),
		Meta: Meta{
			Status:      StatusRunning,
			Target:      target,
			SourceRoots: sortedRoots(sourceRoots),
			DryRun:      dryRun,
			StartedAt:   now,
			UpdatedAt:   now,
		},
		Checkpoints: map[string]json.RawMessage{},
	}
	if err := s.writeState(state); err != nil {
		return "", err
	}
	s.logger.Debug("run created", "component", "runstore", "action", "create", "run_id", state.RunID)
	return state.RunID, nil
}

// LoadRun reads the state for runID. A missing file yields ErrNotFound and an
// undecodable one ErrCorruptState; neither is repaired.
func (s *Store) LoadRun(runID string) (*RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadUnlocked(runID)
}

func (s *Store) loadUnlocked(runID string) (*RunState, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.statePath(runID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read state for %q: %w", runID, err)
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("run %q: %w: %v", runID, ErrCorruptState, err)
	}
	if state.RunID == "" || !state.Meta.Status.Valid() {
		return nil, fmt.Errorf("run %q: %w: missing run_id or status", runID, ErrCorruptState)
	}
	if state.Checkpoints == nil {
		state.Checkpoints = map[string]json.RawMessage{}
	}
	return &state, nil
}

// SaveCheckpoint replaces the payload for stage, bumps checkpoint_seq, records
// the stage as last_stage, and rewrites the whole state atomically.
func (s *Store) SaveCheckpoint(runID, stage string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s checkpoint: %w", stage, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadUnlocked(runID)
	if err != nil {
		return err
	}
	state.Meta.CheckpointSeq++
	state.Meta.LastStage = stage
	state.Meta.UpdatedAt = s.now().UTC()
	state.Checkpoints[stage] = raw
	return s.writeState(state)
}

// MarkStatus sets the lifecycle status. Unknown statuses are rejected before
// any read or write.
func (s *Store) MarkStatus(runID string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadUnlocked(runID)
	if err != nil {
		return err
	}
	state.Meta.Status = status
	state.Meta.UpdatedAt = s.now().UTC()
	if err := s.writeState(state); err != nil {
		return err
	}
	s.logger.Debug("run status changed", "component", "runstore", "action", "mark_status", "run_id", runID, "status", string(status))
	return nil
}

// ListRuns returns every decodable run state, most recently updated first.
// Unreadable files are skipped.
func (s *Store) ListRuns() ([]*RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read state dir: %w", err)
	}

	var runs []*RunState
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		state, err := s.loadUnlocked(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.logger.Debug("skipping unreadable run", "component", "runstore", "action", "list", "file", name, "error", err)
			continue
		}
		runs = append(runs, state)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return newer(runs[i], runs[j])
	})
	return runs, nil
}

// FindLatestResumable returns the most recently updated paused or running run
// whose identity key (target, sorted roots, dry run) matches exactly, or nil.
func (s *Store) FindLatestResumable(target string, sourceRoots []string, dryRun bool) (*Summary, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	roots := sortedRoots(sourceRoots)
	for _, run := range runs {
		if !run.Meta.Status.Resumable() {
			continue
		}
		if run.Meta.Target != target || run.Meta.DryRun != dryRun || !equalStrings(run.Meta.SourceRoots, roots) {
			continue
		}
		return &Summary{
			RunID:     run.RunID,
			Status:    run.Meta.Status,
			UpdatedAt: run.Meta.UpdatedAt,
			LastStage: run.Meta.LastStage,
			State:     run,
		}, nil
	}
	return nil, nil
}

// newer orders runs by updated_at descending, breaking ties by run id so the
// choice among simultaneous updates is stable.
func newer(a, b *RunState) bool {
	if !a.Meta.UpdatedAt.Equal(b.Meta.UpdatedAt) {
		return a.Meta.UpdatedAt.After(b.Meta.UpdatedAt)
	}
	return a.RunID > b.RunID
}

func (s *Store) writeState(state *RunState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := writeFileAtomic(s.dir, s.statePath(state.RunID), data); err != nil {
		return fmt.Errorf("write state for %q: %w", state.RunID, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in dir and renames it over path,
// so readers see either the old document or the new one.
func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func sortedRoots(roots []string) []string {
	out := make([]string, len(roots))
	copy(out, roots)
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkRunID rejects IDs that would name a file outside the runs directory.
func checkRunID(runID string) error {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return nil
}
