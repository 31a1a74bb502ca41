// ABOUTME: Progress sinks: human-readable stage messages fanned out to callers and the run's event log.
// ABOUTME: Messages start with a bracketed stage tag such as "[scan]" or "[ai:remote]".
package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/2389-research/ark/runstore"
)

// ProgressEventName is the event name progress messages are logged under.
const ProgressEventName = "progress"

// ProgressSink receives one progress message at a time.
type ProgressSink interface {
	Progress(msg string)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(msg string)

// Progress calls f.
func (f ProgressFunc) Progress(msg string) { f(msg) }

// StageOf returns the leading bracketed tag of msg, or "pipeline" when there is none.
func StageOf(msg string) string {
	if !strings.HasPrefix(msg, "[") {
		return "pipeline"
	}
	end := strings.Index(msg, "]")
	if end <= 1 {
		return "pipeline"
	}
	return msg[1:end]
}

// StoreSink appends every message to a run's event log tagged with its stage.
// Append failures are logged and otherwise ignored.
type StoreSink struct {
	Store  *runstore.Store
	RunID  string
	Logger *slog.Logger
}

// Progress appends msg as a progress event.
func (s StoreSink) Progress(msg string) {
	if s.Store == nil || s.RunID == "" {
		return
	}
	err := s.Store.AppendEvent(s.RunID, StageOf(msg), ProgressEventName, map[string]string{"message": msg})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("progress append failed", "component", "pipeline", "action", "progress", "run_id", s.RunID, "error", err)
	}
}

// LogSink writes messages to a logger at info level.
type LogSink struct {
	Logger *slog.Logger
}

// Progress logs msg.
func (s LogSink) Progress(msg string) {
	if s.Logger != nil {
		s.Logger.Info(msg, "component", "pipeline", "stage", StageOf(msg))
	}
}

// MultiSink delivers each message to every non-nil sink in order.
type MultiSink []ProgressSink

// Progress fans msg out.
func (m MultiSink) Progress(msg string) {
	for _, s := range m {
		if s != nil {
			s.Progress(msg)
		}
	}
}

// Recorder keeps every message in memory. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

// Progress records msg.
func (r *Recorder) Progress(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
