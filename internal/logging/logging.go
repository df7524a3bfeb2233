// Package logging builds the process logger: a slog handler writing to
// stderr and, optionally, a rotating file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level          string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format         string `yaml:"format" validate:"omitempty,oneof=auto text json"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb" validate:"gte=0"`
	FileMaxFiles   int    `yaml:"file_max_files" validate:"gte=0"`
	FileMaxAgeDays int    `yaml:"file_max_age_days" validate:"gte=0"`
}

// Manager owns the logger lifecycle.
type Manager struct {
	levelVar *slog.LevelVar
	config   Config
	mu       sync.Mutex
	closer   io.Closer // lumberjack writer, if any
}

// NewManager creates a Manager and returns it along with a ready-to-use
// logger. Console output goes to stderr so command output on stdout stays
// machine-readable.
func NewManager(cfg Config) (*Manager, *slog.Logger) {
	return newManager(cfg, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func newManager(cfg Config, console io.Writer, tty bool) (*Manager, *slog.Logger) {
	lvl := &slog.LevelVar{}
	lvl.Set(parseLevel(cfg.Level))
	cfg.Format = resolveFormat(cfg.Format, tty)

	writer, closer := buildWriter(cfg, console)
	m := &Manager{
		levelVar: lvl,
		config:   cfg,
		closer:   closer,
	}
	return m, slog.New(buildHandler(writer, lvl, cfg.Format))
}

// SetLevel changes the level of every logger derived from the manager.
func (m *Manager) SetLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levelVar.Set(parseLevel(level))
	m.config.Level = level
}

// Config returns the current configuration snapshot, with the format
// resolved.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Close releases resources (e.g. the log file writer).
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer != nil {
		err := m.closer.Close()
		m.closer = nil
		return err
	}
	return nil
}

// resolveFormat picks text for an interactive terminal and json otherwise
// when the format is "auto" or unset.
func resolveFormat(format string, tty bool) string {
	if format == "text" || format == "json" {
		return format
	}
	if tty {
		return "text"
	}
	return "json"
}

// parseLevel converts a string to slog.Level, defaulting to Info.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildWriter creates the io.Writer for log output. If a file path is
// configured, it returns a MultiWriter (console + lumberjack) and the
// lumberjack logger as the closer.
func buildWriter(cfg Config, console io.Writer) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return console, nil
	}

	maxSize := cfg.FileMaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxFiles := cfg.FileMaxFiles
	if maxFiles <= 0 {
		maxFiles = 3
	}
	maxAge := cfg.FileMaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    maxSize,
		MaxBackups: maxFiles,
		MaxAge:     maxAge,
	}
	return io.MultiWriter(console, lj), lj
}

func buildHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "auto",
		FileMaxSizeMB:  100,
		FileMaxFiles:   3,
		FileMaxAgeDays: 30,
	}
}

// String returns a human-readable summary of the config.
func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.FilePath != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.FilePath, c.FileMaxSizeMB, c.FileMaxFiles, c.FileMaxAgeDays)
	}
	return s
}
