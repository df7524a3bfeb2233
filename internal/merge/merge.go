// Package merge combines seed, cached and freshly resolved artist records
// into the canonical set.
package merge

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/curation"
	"github.com/sydlexius/cytherea/internal/event"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/provider"
)

// Tier is the provenance of an input record. Lower tiers win field
// conflicts.
type Tier int

// Input tiers in precedence order. Curated field overrides sit above all of
// them and are applied last.
const (
	TierSeed Tier = iota
	TierCache
	TierFresh
)

func (t Tier) String() string {
	switch t {
	case TierSeed:
		return "seed"
	case TierCache:
		return "cache"
	case TierFresh:
		return "fresh"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Input groups the record sets to merge.
type Input struct {
	Seed  []artist.Record
	Cache []artist.Record
	Fresh []artist.Record
}

// Collision describes an incoming record discarded because its stable ID
// already belongs to a record under a different name key.
type Collision struct {
	KeptKey       string `json:"kept_key"`
	DiscardedName string `json:"discarded_name"`
	StableID      string `json:"stable_id"`
	Tier          string `json:"tier"`
}

// Dropped is a record left out of the canonical set.
type Dropped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result is the outcome of a merge.
type Result struct {
	Records    []artist.Record
	Collisions []Collision
	Excluded   []string
	Dropped    []Dropped
}

// ReasonNoGenres marks records dropped for having no classified genre.
const ReasonNoGenres = "no genres"

// Engine merges record sets under the curated decisions of one override
// set.
type Engine struct {
	curated    *curation.Set
	classifier *genre.Classifier
	events     event.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an engine. A nil set means no curated decisions; a nil
// classifier disables curated genre tags.
func New(curated *curation.Set, classifier *genre.Classifier, events event.Publisher, logger *slog.Logger) *Engine {
	if curated == nil {
		curated = curation.Empty()
	}
	return &Engine{
		curated:    curated,
		classifier: classifier,
		events:     events,
		logger:     logger.With(slog.String("component", "merge")),
		now:        time.Now,
	}
}

type merger struct {
	*Engine
	byKey    map[string]*artist.Record
	byStable map[string]string
	order    []string
	excluded map[string]bool
	res      Result
}

// Merge builds the canonical set. Records are admitted tier by tier; a
// field is taken from the first record that supplies a non-empty value for
// it. Names on the exclusion list never enter, and an incoming record whose
// stable ID is already held under another name key is discarded as a
// duplicate. Curated overrides are applied to the merged records, records
// without genres are dropped, and Venus positions are recomputed.
func (e *Engine) Merge(in Input) Result {
	m := &merger{
		Engine:   e,
		byKey:    make(map[string]*artist.Record),
		byStable: make(map[string]string),
		excluded: make(map[string]bool),
	}
	for tier, records := range [][]artist.Record{in.Seed, in.Cache, in.Fresh} {
		for i := range records {
			m.admit(records[i], Tier(tier))
		}
	}

	for _, key := range m.order {
		r := m.byKey[key]
		m.applyCurated(r)
		if len(r.Genres) == 0 {
			m.logger.Info("dropping record", slog.String("artist", r.Name), slog.String("reason", ReasonNoGenres))
			m.res.Dropped = append(m.res.Dropped, Dropped{Name: r.Name, Reason: ReasonNoGenres})
			continue
		}
		if err := r.Refresh(); err != nil {
			m.logger.Warn("computing venus position", slog.String("artist", r.Name), slog.Any("error", err))
		}
		m.res.Records = append(m.res.Records, *r)
	}
	artist.SortByKey(m.res.Records)
	return m.res
}

func (m *merger) admit(r artist.Record, tier Tier) {
	key := r.Key()
	if key == "" {
		m.res.Dropped = append(m.res.Dropped, Dropped{Name: r.Name, Reason: "empty name"})
		return
	}
	if m.curated.IsExcluded(r.Name) {
		if !m.excluded[key] {
			m.excluded[key] = true
			m.res.Excluded = append(m.res.Excluded, r.Name)
			m.publish(event.Excluded, r.Name, map[string]any{"tier": tier.String()})
		}
		return
	}
	if r.StableID != "" {
		if owner, ok := m.byStable[r.StableID]; ok && owner != key {
			c := Collision{KeptKey: owner, DiscardedName: r.Name, StableID: r.StableID, Tier: tier.String()}
			m.res.Collisions = append(m.res.Collisions, c)
			m.logger.Warn("stable id collision",
				slog.String("artist", r.Name),
				slog.String("kept", owner),
				slog.String("stable_id", r.StableID))
			m.publish(event.StableIDCollision, r.Name, map[string]any{
				"kept_key": owner, "stable_id": r.StableID, "tier": tier.String(),
			})
			return
		}
	}

	if cur, ok := m.byKey[key]; ok {
		fill(cur, r)
	} else {
		c := r.Clone()
		m.byKey[key] = &c
		m.order = append(m.order, key)
	}
	if id := m.byKey[key].StableID; id != "" {
		if _, taken := m.byStable[id]; !taken {
			m.byStable[id] = key
		}
	}
}

// applyCurated writes curated genre tags, birth dates and field overrides
// into r, in that order.
func (m *merger) applyCurated(r *artist.Record) {
	name := r.Name
	if tags, ok := m.curated.Tags(name); ok && m.classifier != nil {
		if c := m.classifier.Classify(tags); !c.Empty() {
			r.SetClassification(c)
			r.RawProviderTags = slices.Clone(tags)
			r.TagSource = string(provider.NameOverride)
		}
	}
	if p, ok := m.curated.BirthDate(name); ok {
		d, approx, err := artist.Normalize(p, m.now(), artist.DefaultMinYear)
		if err != nil {
			m.logger.Warn("curated birth date rejected", slog.String("artist", name), slog.Any("error", err))
		} else {
			r.BirthDate, r.DateApprox = d, approx && !p.Complete()
			r.BirthDateSource = string(provider.NameOverride)
		}
	}
	o, ok := m.curated.Override(name)
	if !ok {
		return
	}
	prevID := r.StableID
	if err := o.Apply(r); err != nil {
		m.logger.Warn("curated override rejected", slog.String("artist", name), slog.Any("error", err))
		return
	}
	if r.StableID == prevID {
		return
	}
	if owner, taken := m.byStable[r.StableID]; taken && owner != r.Key() {
		m.logger.Warn("curated stable id already in use",
			slog.String("artist", r.Name),
			slog.String("kept", owner),
			slog.String("stable_id", r.StableID))
		m.publish(event.StableIDCollision, r.Name, map[string]any{
			"kept_key": owner, "stable_id": r.StableID, "tier": "override",
		})
		r.StableID = prevID
		return
	}
	delete(m.byStable, prevID)
	m.byStable[r.StableID] = r.Key()
}

func (m *merger) publish(t event.Type, name string, data map[string]any) {
	if m.events != nil {
		m.events.Publish(event.Event{Type: t, Artist: name, Data: data})
	}
}

// fill copies every field of src into dst that dst leaves empty.
func fill(dst *artist.Record, src artist.Record) {
	if dst.BirthDate.IsZero() && !src.BirthDate.IsZero() {
		dst.BirthDate, dst.DateApprox, dst.BirthDateSource = src.BirthDate, src.DateApprox, src.BirthDateSource
	}
	if len(dst.Genres) == 0 {
		dst.Genres = slices.Clone(src.Genres)
	}
	if len(dst.Subgenres) == 0 {
		dst.Subgenres = slices.Clone(src.Subgenres)
	}
	if len(dst.Labels) == 0 {
		dst.Labels = slices.Clone(src.Labels)
	}
	if len(dst.RawProviderTags) == 0 && len(src.RawProviderTags) > 0 {
		dst.RawProviderTags, dst.TagSource = slices.Clone(src.RawProviderTags), src.TagSource
	}
	if dst.StableID == "" {
		dst.StableID = src.StableID
	}
	if dst.MediaID == "" {
		dst.MediaID = src.MediaID
	}
	if len(dst.BackupMediaIDs) == 0 {
		dst.BackupMediaIDs = slices.Clone(src.BackupMediaIDs)
	}
}
