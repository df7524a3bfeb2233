package event

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ReviewLog appends events as JSON lines for the human review step.
type ReviewLog struct {
	mu     sync.Mutex
	f      *os.File
	enc    *json.Encoder
	logger *slog.Logger
}

// OpenReviewLog opens path for appending, creating it and its directory if
// needed.
func OpenReviewLog(path string, logger *slog.Logger) (*ReviewLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating review log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // path from config
	if err != nil {
		return nil, fmt.Errorf("opening review log: %w", err)
	}
	return &ReviewLog{f: f, enc: json.NewEncoder(f), logger: logger}, nil
}

// Attach subscribes the log to every review event type on the bus.
func (r *ReviewLog) Attach(b *Bus) {
	b.Subscribe(r.Handle, ReviewTypes...)
}

// Handle writes one event. Write failures are logged, not returned, since
// handlers run on the bus goroutine.
func (r *ReviewLog) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(e); err != nil {
		r.logger.Error("writing review event", "type", string(e.Type), "error", err)
	}
}

// Close flushes and closes the file.
func (r *ReviewLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.f.Sync(); err != nil {
		r.f.Close() //nolint:errcheck
		return fmt.Errorf("syncing review log: %w", err)
	}
	return r.f.Close()
}

// Recorder collects published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
