// Package backup keeps timestamped copies of the snapshot file before it is
// overwritten, pruned to a fixed count.
package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const stampLayout = "20060102-150405.000"

// Info describes a backup file.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages backups of one file.
type Service struct {
	source    string
	backupDir string
	retention int
	prefix    string
	ext       string
	pattern   *regexp.Regexp
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a backup service for source. Backups are named
// <base>-YYYYMMDD-HHMMSS.mmm<ext> inside backupDir; at most retention are
// kept (0 keeps everything).
func NewService(source, backupDir string, retention int, logger *slog.Logger) *Service {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)
	return &Service{
		source:    source,
		backupDir: backupDir,
		retention: retention,
		prefix:    prefix,
		ext:       ext,
		pattern:   regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-\d{8}-\d{6}\.\d{3}` + regexp.QuoteMeta(ext) + `$`),
		now:       time.Now,
		logger:    logger.With(slog.String("component", "backup")),
	}
}

// Backup copies the current source file. It returns nil, nil when the
// source does not exist yet (first run).
func (s *Service) Backup() (*Info, error) {
	in, err := os.Open(s.source)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer in.Close() //nolint:errcheck

	if err := os.MkdirAll(s.backupDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.now().UTC()
	filename := s.prefix + "-" + now.Format(stampLayout) + s.ext
	dest := filepath.Join(s.backupDir, filename)

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // name built from our own pattern
	if err != nil {
		return nil, fmt.Errorf("creating backup: %w", err)
	}
	size, err := io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("copying backup: %w", err)
	}

	s.logger.Debug("backup written", slog.String("filename", filename), slog.Int64("size", size))
	return &Info{Filename: filename, Size: size, CreatedAt: now}, nil
}

// List returns all backups sorted newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !s.pattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), s.prefix+"-"), s.ext)
		ts, err := time.Parse(stampLayout, stamp)
		if err != nil {
			ts = info.ModTime()
		}
		backups = append(backups, Info{Filename: entry.Name(), Size: info.Size(), CreatedAt: ts})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Prune deletes the oldest backups beyond the retention count.
func (s *Service) Prune() error {
	if s.retention <= 0 {
		return nil
	}
	backups, err := s.List()
	if err != nil {
		return err
	}
	if len(backups) <= s.retention {
		return nil
	}
	for _, b := range backups[s.retention:] {
		if err := os.Remove(filepath.Join(s.backupDir, b.Filename)); err != nil {
			s.logger.Warn("failed to remove old backup",
				slog.String("filename", b.Filename),
				slog.Any("error", err))
			continue
		}
		s.logger.Debug("pruned old backup", slog.String("filename", b.Filename))
	}
	return nil
}

// Rotate takes a backup and prunes. Intended to run right before the source
// is overwritten.
func (s *Service) Rotate() error {
	if _, err := s.Backup(); err != nil {
		return err
	}
	return s.Prune()
}
