// Package store persists the canonical artist set: a JSON snapshot that is
// the source of truth, and a SQLite index rebuilt from it for queries.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/backup"
	"github.com/sydlexius/cytherea/internal/filesystem"
)

// SnapshotVersion is the current snapshot envelope version.
const SnapshotVersion = 1

// Snapshot is the on-disk envelope. Artists are keyed by name key.
type Snapshot struct {
	Version     int                      `json:"version"`
	GeneratedAt time.Time                `json:"generated_at"`
	Artists     map[string]artist.Record `json:"artists"`
}

// SnapshotStore reads and writes the snapshot file.
type SnapshotStore struct {
	path    string
	backups *backup.Service
	now     func() time.Time
	logger  *slog.Logger
}

// NewSnapshotStore creates a store for path. backups may be nil.
func NewSnapshotStore(path string, backups *backup.Service, logger *slog.Logger) *SnapshotStore {
	return &SnapshotStore{
		path:    path,
		backups: backups,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "snapshot")),
	}
}

// Path returns the snapshot file path.
func (s *SnapshotStore) Path() string { return s.path }

// Load returns the stored records sorted by key. A missing file yields no
// records. Files without the envelope (a bare array or keyed object from an
// older export) are accepted.
func (s *SnapshotStore) Load() ([]artist.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func decodeSnapshot(data []byte) ([]artist.Record, error) {
	var envelope struct {
		Version int             `json:"version"`
		Artists json.RawMessage `json:"artists"`
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Version > 0 && envelope.Artists != nil {
			if envelope.Version > SnapshotVersion {
				return nil, fmt.Errorf("snapshot version %d is newer than supported %d", envelope.Version, SnapshotVersion)
			}
			return artist.DecodeRecords(envelope.Artists)
		}
	}
	return artist.DecodeRecords(trimmed)
}

// Save backs up the current file and atomically replaces it with records.
func (s *SnapshotStore) Save(records []artist.Record) error {
	snap := Snapshot{
		Version:     SnapshotVersion,
		GeneratedAt: s.now().UTC().Truncate(time.Second),
		Artists:     make(map[string]artist.Record, len(records)),
	}
	for _, r := range records {
		key := r.Key()
		if _, dup := snap.Artists[key]; dup {
			return fmt.Errorf("duplicate name key %q in snapshot", key)
		}
		snap.Artists[key] = r
	}

	if s.backups != nil {
		if err := s.backups.Rotate(); err != nil {
			s.logger.Warn("snapshot backup failed", slog.Any("error", err))
		}
	}
	if err := filesystem.WriteJSONAtomic(s.path, snap); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	s.logger.Info("snapshot written", slog.String("path", s.path), slog.Int("artists", len(records)))
	return nil
}
