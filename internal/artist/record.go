// Package artist defines the canonical artist record, name keys, date
// normalization and tolerant decoding of legacy record files.
package artist

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/venus"
)

// Record is one canonical artist.
type Record struct {
	Name            string           `json:"name"`
	BirthDate       Date             `json:"birth_date,omitzero"`
	DateApprox      bool             `json:"date_approx,omitempty"`
	BirthDateSource string           `json:"birth_date_source,omitempty"`
	Venus           *venus.Position  `json:"venus,omitempty"`
	Genres          []genre.Category `json:"genres"`
	Subgenres       []genre.Subgenre `json:"subgenres,omitempty"`
	Labels          []string         `json:"labels,omitempty"`
	RawProviderTags []string         `json:"raw_provider_tags,omitempty"`
	TagSource       string           `json:"tag_source,omitempty"`
	StableID        string           `json:"stable_id,omitempty"`
	MediaID         string           `json:"media_id,omitempty"`
	BackupMediaIDs  []string         `json:"backup_media_ids,omitempty"`
}

// MarshalJSON writes genres as an empty list rather than null and omits
// date_approx when there is no birth date. A written date always carries
// its flag so a reload never re-derives it.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	out := struct {
		plain
		DateApprox *bool `json:"date_approx,omitempty"`
	}{plain: plain(r)}
	if out.Genres == nil {
		out.Genres = []genre.Category{}
	}
	if !r.BirthDate.IsZero() {
		out.DateApprox = &r.DateApprox
	}
	return json.Marshal(out)
}

// NameKey returns the case-insensitive dedup key for a display name.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Key returns the record's name key.
func (r *Record) Key() string { return NameKey(r.Name) }

// Refresh recomputes the derived Venus position from the birth date.
func (r *Record) Refresh() error {
	if r.BirthDate.IsZero() {
		r.Venus = nil
		return nil
	}
	pos, err := venus.Calculate(r.BirthDate.Noon())
	if err != nil {
		r.Venus = nil
		return err
	}
	r.Venus = &pos
	return nil
}

// SetClassification replaces genres and subgenres.
func (r *Record) SetClassification(c genre.Classification) {
	r.Genres = slices.Clone(c.Categories)
	r.Subgenres = slices.Clone(c.Subgenres)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.Genres = slices.Clone(r.Genres)
	out.Subgenres = slices.Clone(r.Subgenres)
	out.Labels = slices.Clone(r.Labels)
	out.RawProviderTags = slices.Clone(r.RawProviderTags)
	out.BackupMediaIDs = slices.Clone(r.BackupMediaIDs)
	if r.Venus != nil {
		v := *r.Venus
		out.Venus = &v
	}
	return out
}

// SortByKey orders records by name key.
func SortByKey(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.Key(), b.Key())
	})
}
