// ABOUTME: Append-only per-run event log plus the query API used by the report and inspection server.
// ABOUTME: Events are diagnostic only; resume logic never reads them back.
package runstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is one line of a run's events.jsonl file.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"ts"`
	RunID     string          `json:"run_id"`
	Stage     string          `json:"stage"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AppendEvent appends one record to the run's event log. It does not take the
// state lock, so event writes never wait on a checkpoint write.
func (s *Store) AppendEvent(runID, stage, event string, payload any) error {
	if err := checkRunID(runID); err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	evt := Event{
		ID:        ulid.Make().String(),
		Timestamp: s.now().UTC(),
		RunID:     runID,
		Stage:     stage,
		Event:     event,
		Payload:   raw,
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	f, err := os.OpenFile(s.eventsPath(runID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx != nil {
		if err := idx.Insert(evt); err != nil {
			s.logger.Warn("event index insert failed", "component", "runstore", "action", "index_event", "run_id", runID, "error", err)
		}
	}
	return nil
}

// ReadEvents loads every event for runID in append order. A run without an
// event log has no events. Lines that fail to decode are skipped.
func (s *Store) ReadEvents(runID string) ([]Event, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	f, err := os.Open(s.eventsPath(runID))
	if errors.Is(err, os.ErrNotExist) {
		return []Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	events := []Event{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			continue
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events file: %w", err)
	}
	return events, nil
}

// EventFilter narrows an event query. Zero values match everything.
type EventFilter struct {
	Stages []string
	Event  string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// EventSummary aggregates a run's event log.
type EventSummary struct {
	TotalEvents int
	ByStage     map[string]int
	ByEvent     map[string]int
	FirstEvent  *time.Time
	LastEvent   *time.Time
}

// QueryEvents returns the run's events matching filter, after pagination.
func (s *Store) QueryEvents(runID string, filter EventFilter) ([]Event, error) {
	all, err := s.ReadEvents(runID)
	if err != nil {
		return nil, err
	}
	return paginate(applyFilter(all, filter), filter.Offset, filter.Limit), nil
}

// CountEvents counts the run's events matching filter, ignoring pagination.
func (s *Store) CountEvents(runID string, filter EventFilter) (int, error) {
	all, err := s.ReadEvents(runID)
	if err != nil {
		return 0, err
	}
	return len(applyFilter(all, filter)), nil
}

// TailEvents returns the last n events of the run.
func (s *Store) TailEvents(runID string, n int) ([]Event, error) {
	all, err := s.ReadEvents(runID)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Event{}, nil
	}
	if n >= len(all) {
		return all, nil
	}
	return all[len(all)-n:], nil
}

// SummarizeEvents counts the run's events by stage and by event name.
func (s *Store) SummarizeEvents(runID string) (*EventSummary, error) {
	all, err := s.ReadEvents(runID)
	if err != nil {
		return nil, err
	}
	summary := &EventSummary{
		TotalEvents: len(all),
		ByStage:     make(map[string]int),
		ByEvent:     make(map[string]int),
	}
	for i, evt := range all {
		summary.ByStage[evt.Stage]++
		summary.ByEvent[evt.Event]++
		ts := evt.Timestamp
		if i == 0 || ts.Before(*summary.FirstEvent) {
			summary.FirstEvent = &ts
		}
		if i == 0 || ts.After(*summary.LastEvent) {
			t := ts
			summary.LastEvent = &t
		}
	}
	return summary, nil
}

func applyFilter(events []Event, filter EventFilter) []Event {
	out := make([]Event, 0, len(events))
	for _, evt := range events {
		if matches(evt, filter) {
			out = append(out, evt)
		}
	}
	return out
}

func matches(evt Event, filter EventFilter) bool {
	if len(filter.Stages) > 0 {
		found := false
		for _, stage := range filter.Stages {
			if evt.Stage == stage {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Event != "" && evt.Event != filter.Event {
		return false
	}
	if filter.Since != nil && evt.Timestamp.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && evt.Timestamp.After(*filter.Until) {
		return false
	}
	return true
}

func paginate(events []Event, offset, limit int) []Event {
	if offset > 0 {
		if offset >= len(events) {
			return []Event{}
		}
		events = events[offset:]
	}
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}
