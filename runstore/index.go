// ABOUTME: SQLite mirror of appended run events for cross-run queries.
// ABOUTME: The JSONL logs stay the source of truth; the index can always be rebuilt from them.
package runstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// EventIndex is a queryable cache of events from every run in a store.
type EventIndex struct {
	db *sql.DB
}

// OpenEventIndex opens or creates the index database at path.
func OpenEventIndex(path string) (*EventIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			event TEXT NOT NULL,
			ts TEXT NOT NULL,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS events_run_stage ON events(run_id, stage);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &EventIndex{db: db}, nil
}

// Close closes the database connection.
func (idx *EventIndex) Close() error {
	return idx.db.Close()
}

// Insert upserts one event.
func (idx *EventIndex) Insert(evt Event) error {
	_, err := idx.db.Exec(
		`INSERT INTO events (event_id, run_id, stage, event, ts, payload)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		evt.ID, evt.RunID, evt.Stage, evt.Event,
		evt.Timestamp.UTC().Format(time.RFC3339Nano), string(evt.Payload),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// StageCount is the number of indexed events for one stage.
type StageCount struct {
	Stage string
	Count int
}

// CountByStage aggregates indexed events across every run, or one run when
// runID is non-empty. Results are ordered by stage name.
func (idx *EventIndex) CountByStage(runID string) ([]StageCount, error) {
	query := `SELECT stage, COUNT(*) FROM events`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` GROUP BY stage ORDER BY stage`

	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	var out []StageCount
	for rows.Next() {
		var sc StageCount
		if err := rows.Scan(&sc.Stage, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// RunsWithEvent lists distinct run ids that logged the named event, ordered by
// run id.
func (idx *EventIndex) RunsWithEvent(event string) ([]string, error) {
	rows, err := idx.db.Query(`SELECT DISTINCT run_id FROM events WHERE event = ? ORDER BY run_id`, event)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Rebuild clears the index and reloads it from every run's event log.
func (idx *EventIndex) Rebuild(store *Store) (int, error) {
	if _, err := idx.db.Exec(`DELETE FROM events`); err != nil {
		return 0, fmt.Errorf("clear events: %w", err)
	}
	runs, err := store.ListRuns()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, run := range runs {
		events, err := store.ReadEvents(run.RunID)
		if err != nil {
			return n, err
		}
		for _, evt := range events {
			if err := idx.Insert(evt); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
