// Package watcher reloads a single file when it changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher calls onChange after path is written, created, or replaced.
// Bursts of events (editors often write a temp file and rename it) are
// coalesced by a debounce interval.
type FileWatcher struct {
	path     string
	onChange func(ctx context.Context) error
	logger   *slog.Logger
	debounce time.Duration
	poll     time.Duration
}

// New creates a watcher for path.
func New(path string, onChange func(ctx context.Context) error, logger *slog.Logger) *FileWatcher {
	return &FileWatcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger.With("component", "file-watcher", "path", path),
		debounce: 500 * time.Millisecond,
		poll:     30 * time.Second,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (w *FileWatcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// SetPollInterval overrides the modification-time poll used when fsnotify
// is unavailable (for testing).
func (w *FileWatcher) SetPollInterval(d time.Duration) {
	w.poll = d
}

// Start blocks until ctx is canceled. It watches the file's directory so
// rename-over-target saves are seen. If fsnotify is unavailable, it polls
// the file's modification time instead.
func (w *FileWatcher) Start(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err == nil {
		if err = fw.Add(filepath.Dir(w.path)); err != nil {
			fw.Close() //nolint:errcheck
		}
	}
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	var pollCh <-chan time.Time
	if err != nil {
		w.logger.Warn("fsnotify unavailable, polling", "error", err)
		ticker := time.NewTicker(w.poll)
		defer ticker.Stop()
		pollCh = ticker.C
	} else {
		defer fw.Close() //nolint:errcheck
		eventCh = fw.Events
		errCh = fw.Errors
	}

	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := false
	lastMod := w.modTime()

	trigger := func() {
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(w.debounce)
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				trigger()
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)

		case <-pollCh:
			if mod := w.modTime(); !mod.Equal(lastMod) {
				lastMod = mod
				trigger()
			}

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false
			w.logger.Info("file changed, reloading")
			if err := w.onChange(ctx); err != nil {
				w.logger.Error("reload failed", "error", err)
			}
		}
	}
}

func (w *FileWatcher) modTime() time.Time {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
