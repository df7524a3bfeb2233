// Package curation holds the human-maintained decisions that outrank every
// provider: birth-date and genre overrides, per-field record overrides, the
// exclusion list, and labels that automated reclassification must keep.
package curation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/provider"
	"github.com/sydlexius/cytherea/internal/watcher"
)

// fileFormat is the YAML layout of the overrides file.
type fileFormat struct {
	BirthDates    map[string]string         `yaml:"birth_dates"`
	Genres        map[string][]string       `yaml:"genres"`
	Exclude       []string                  `yaml:"exclude"`
	PreservedTags []string                  `yaml:"preserved_tags"`
	Overrides     map[string]overrideFormat `yaml:"overrides"`
}

type overrideFormat struct {
	Name           string   `yaml:"name"`
	BirthDate      string   `yaml:"birth_date"`
	StableID       string   `yaml:"stable_id"`
	MediaID        string   `yaml:"media_id"`
	BackupMediaIDs []string `yaml:"backup_media_ids"`
	Genres         []string `yaml:"genres"`
	Subgenres      []string `yaml:"subgenres"`
	Labels         []string `yaml:"labels"`
}

// Override replaces individual fields of a canonical record. Empty fields
// leave the record's value alone.
type Override struct {
	Name           string
	BirthDate      artist.PartialDate
	StableID       string
	MediaID        string
	BackupMediaIDs []string
	Genres         []genre.Category
	Subgenres      []genre.Subgenre
	Labels         []string
}

// Apply writes the override's non-empty fields into r. A date override is
// normalized with the same rules as any other date.
func (o Override) Apply(r *artist.Record) error {
	if o.Name != "" {
		r.Name = o.Name
	}
	if !o.BirthDate.IsZero() {
		d, approx, err := artist.Normalize(o.BirthDate, time.Now(), artist.DefaultMinYear)
		if err != nil {
			return fmt.Errorf("override for %q: %w", r.Name, err)
		}
		// A full curated date is trusted as written, Jan 1 included.
		r.BirthDate, r.DateApprox = d, approx && !o.BirthDate.Complete()
		r.BirthDateSource = string(provider.NameOverride)
	}
	if o.StableID != "" {
		r.StableID = o.StableID
	}
	if o.MediaID != "" {
		r.MediaID = o.MediaID
	}
	if len(o.BackupMediaIDs) > 0 {
		r.BackupMediaIDs = append([]string(nil), o.BackupMediaIDs...)
	}
	if len(o.Genres) > 0 {
		r.Genres = append([]genre.Category(nil), o.Genres...)
	}
	if len(o.Subgenres) > 0 {
		r.Subgenres = append([]genre.Subgenre(nil), o.Subgenres...)
	}
	if len(o.Labels) > 0 {
		r.Labels = append([]string(nil), o.Labels...)
	}
	return r.Refresh()
}

// named keeps the spelling used in the file next to the value so lookups
// can prefer an exact match over a case-insensitive one.
type named[T any] struct {
	exact map[string]T
	byKey map[string]T
}

func newNamed[T any]() named[T] {
	return named[T]{exact: make(map[string]T), byKey: make(map[string]T)}
}

func (n named[T]) put(name string, v T) {
	n.exact[strings.TrimSpace(name)] = v
	n.byKey[artist.NameKey(name)] = v
}

func (n named[T]) get(name string) (T, bool) {
	if v, ok := n.exact[strings.TrimSpace(name)]; ok {
		return v, true
	}
	v, ok := n.byKey[artist.NameKey(name)]
	return v, ok
}

// Set is one parsed, immutable version of the overrides file.
type Set struct {
	birthDates named[artist.PartialDate]
	genres     named[[]string]
	overrides  named[Override]
	excluded   map[string]bool
	preserved  map[string]bool
}

// Empty returns a set with no curated decisions.
func Empty() *Set {
	return &Set{
		birthDates: newNamed[artist.PartialDate](),
		genres:     newNamed[[]string](),
		overrides:  newNamed[Override](),
		excluded:   make(map[string]bool),
		preserved:  make(map[string]bool),
	}
}

// Parse decodes and validates an overrides document. Every date and genre
// identifier is checked up front so applying a Set cannot fail on input.
func Parse(data []byte) (*Set, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding overrides: %w", err)
	}
	s := Empty()
	var errs []error

	for name, raw := range f.BirthDates {
		p, err := parseDate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("birth_dates[%q]: %w", name, err))
			continue
		}
		s.birthDates.put(name, p)
	}
	for name, tags := range f.Genres {
		var clean []string
		for _, t := range tags {
			if t = strings.TrimSpace(t); t != "" {
				clean = append(clean, t)
			}
		}
		if len(clean) == 0 {
			errs = append(errs, fmt.Errorf("genres[%q]: empty list", name))
			continue
		}
		s.genres.put(name, clean)
	}
	for _, name := range f.Exclude {
		if k := artist.NameKey(name); k != "" {
			s.excluded[k] = true
		}
	}
	for _, tag := range f.PreservedTags {
		if k := strings.ToLower(strings.TrimSpace(tag)); k != "" {
			s.preserved[k] = true
		}
	}
	for name, raw := range f.Overrides {
		o, err := parseOverride(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("overrides[%q]: %w", name, err))
			continue
		}
		s.overrides.put(name, o)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func parseDate(raw string) (artist.PartialDate, error) {
	if p, err := artist.ParsePartialDate(raw); err == nil {
		return p, nil
	}
	return artist.ParseDateText(raw)
}

func parseOverride(raw overrideFormat) (Override, error) {
	o := Override{
		Name:           strings.TrimSpace(raw.Name),
		StableID:       strings.TrimSpace(raw.StableID),
		MediaID:        strings.TrimSpace(raw.MediaID),
		BackupMediaIDs: raw.BackupMediaIDs,
		Labels:         raw.Labels,
	}
	if raw.BirthDate != "" {
		p, err := parseDate(raw.BirthDate)
		if err != nil {
			return Override{}, err
		}
		o.BirthDate = p
	}
	for _, g := range raw.Genres {
		c, err := genre.ParseCategory(g)
		if err != nil {
			return Override{}, err
		}
		o.Genres = append(o.Genres, c)
	}
	for _, sg := range raw.Subgenres {
		v, err := genre.ParseSubgenre(sg)
		if err != nil {
			return Override{}, err
		}
		o.Subgenres = append(o.Subgenres, v)
	}
	return o, nil
}

// IsExcluded reports whether name is on the never-include list.
func (s *Set) IsExcluded(name string) bool { return s.excluded[artist.NameKey(name)] }

// IsPreserved reports whether a label survives automated reclassification.
func (s *Set) IsPreserved(label string) bool {
	return s.preserved[strings.ToLower(strings.TrimSpace(label))]
}

// Override returns the field override for name.
func (s *Set) Override(name string) (Override, bool) { return s.overrides.get(name) }

// BirthDate returns the curated birth date for name.
func (s *Set) BirthDate(name string) (artist.PartialDate, bool) { return s.birthDates.get(name) }

// Tags returns the curated genre tags for name.
func (s *Set) Tags(name string) ([]string, bool) { return s.genres.get(name) }

// Store serves the current Set and swaps in a new one when the file changes.
// It is the override tier of the birth-date chain and the override step of
// the tag chain.
type Store struct {
	path    string
	current atomic.Pointer[Set]
	logger  *slog.Logger
}

// Open loads path. A missing file yields an empty store; an empty path
// yields a store that never reloads.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger.With(slog.String("component", "curation"))}
	s.current.Store(Empty())
	if path == "" {
		return s, nil
	}
	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStatic wraps an already parsed Set (for tests and one-off commands).
func NewStatic(set *Set, logger *slog.Logger) *Store {
	s := &Store{logger: logger}
	s.current.Store(set)
	return s
}

// Reload re-reads the file. On error the previous Set stays in effect.
func (s *Store) Reload(_ context.Context) error {
	data, err := os.ReadFile(s.path) //nolint:gosec // path from config
	if errors.Is(err, fs.ErrNotExist) {
		s.current.Store(Empty())
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading overrides: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return err
	}
	s.current.Store(set)
	s.logger.Debug("overrides loaded",
		slog.Int("birth_dates", len(set.birthDates.exact)),
		slog.Int("genres", len(set.genres.exact)),
		slog.Int("excluded", len(set.excluded)),
		slog.Int("overrides", len(set.overrides.exact)))
	return nil
}

// Watch reloads the file whenever it changes until ctx is canceled.
func (s *Store) Watch(ctx context.Context) {
	if s.path == "" {
		return
	}
	watcher.New(s.path, s.Reload, s.logger).Start(ctx)
}

// Current returns the Set in effect.
func (s *Store) Current() *Set { return s.current.Load() }

// Name returns the provider name.
func (s *Store) Name() provider.ProviderName { return provider.NameOverride }

// LookupBirthDate returns the curated date for the exact name, then for its
// lowercase key.
func (s *Store) LookupBirthDate(_ context.Context, q provider.Query) (provider.Result[artist.PartialDate], error) {
	if p, ok := s.Current().BirthDate(q.Name); ok {
		return provider.Found(provider.NameOverride, p), nil
	}
	return provider.NoResult[artist.PartialDate](provider.NameOverride, "no override"), nil
}

// LookupTags returns the curated genre tags for the name.
func (s *Store) LookupTags(_ context.Context, q provider.Query) (provider.Result[[]string], error) {
	if tags, ok := s.Current().Tags(q.Name); ok {
		return provider.Found(provider.NameOverride, append([]string(nil), tags...)), nil
	}
	return provider.NoResult[[]string](provider.NameOverride, "no override"), nil
}
