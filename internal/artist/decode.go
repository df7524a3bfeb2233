package artist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sydlexius/cytherea/internal/genre"
)

// Accepted spellings per field, canonical first. Older exports used
// several naming schemes; all of them load into the same Record.
var fieldAliases = struct {
	name, birthDate, approx, dateSource, genres, subgenres, labels,
	rawTags, tagSource, stableID, mediaID, backupMediaIDs []string
}{
	name:           []string{"name", "artist", "artist_name"},
	birthDate:      []string{"birth_date", "birthDate", "birthdate", "born", "dob"},
	approx:         []string{"date_approx", "dateApprox", "approx", "approximate"},
	dateSource:     []string{"birth_date_source", "birthDateSource", "date_source"},
	genres:         []string{"genres", "genre", "categories"},
	subgenres:      []string{"subgenres", "subGenres", "sub_genres", "subgenre"},
	labels:         []string{"labels", "preserved_tags", "custom_tags"},
	rawTags:        []string{"raw_provider_tags", "rawProviderTags", "raw_tags", "tags"},
	tagSource:      []string{"tag_source", "tagSource"},
	stableID:       []string{"stable_id", "stableId", "mbid", "musicbrainz_id", "musicbrainzId"},
	mediaID:        []string{"media_id", "mediaId", "spotify_id", "spotifyId", "youtube_id", "video_id"},
	backupMediaIDs: []string{"backup_media_ids", "backupMediaIds", "backup_ids", "backupIds"},
}

// UnmarshalJSON decodes a record written under any known field naming. The
// birth date may be partial ("1991-00-00", "1991-03") and is normalized;
// Venus is never read back, it is recomputed.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding artist record: %w", err)
	}
	var out Record
	var err error

	out.Name, err = firstString(raw, fieldAliases.name)
	if err != nil {
		return err
	}
	out.Name = strings.TrimSpace(out.Name)

	approx, err := firstBool(raw, fieldAliases.approx)
	if err != nil {
		return err
	}
	_, approxField := firstRaw(raw, fieldAliases.approx)
	born, err := firstString(raw, fieldAliases.birthDate)
	if err != nil {
		return err
	}
	if born = strings.TrimSpace(born); born != "" {
		p, err := ParsePartialDate(born)
		if err != nil {
			return fmt.Errorf("artist %q: birth date: %w", out.Name, err)
		}
		d, dateApprox, err := Normalize(p, time.Now(), DefaultMinYear)
		if err != nil {
			return fmt.Errorf("artist %q: birth date: %w", out.Name, err)
		}
		out.BirthDate = d
		switch {
		case p.Complete() && approxField != nil:
			// A full date written with its flag is taken as stored.
			out.DateApprox = approx
		default:
			out.DateApprox = approx || dateApprox
		}
	}
	if out.BirthDateSource, err = firstString(raw, fieldAliases.dateSource); err != nil {
		return err
	}

	genres, err := firstStrings(raw, fieldAliases.genres)
	if err != nil {
		return err
	}
	for _, g := range genres {
		c, perr := genre.ParseCategory(g)
		if perr != nil {
			// Out-of-taxonomy labels are kept, not discarded.
			out.Labels = appendUnique(out.Labels, strings.TrimSpace(g))
			continue
		}
		out.Genres = appendUnique(out.Genres, c)
	}
	subs, err := firstStrings(raw, fieldAliases.subgenres)
	if err != nil {
		return err
	}
	for _, s := range subs {
		sg, perr := genre.ParseSubgenre(s)
		if perr != nil {
			out.Labels = appendUnique(out.Labels, strings.TrimSpace(s))
			continue
		}
		out.Subgenres = appendUnique(out.Subgenres, sg)
	}
	labels, err := firstStrings(raw, fieldAliases.labels)
	if err != nil {
		return err
	}
	for _, l := range labels {
		out.Labels = appendUnique(out.Labels, strings.TrimSpace(l))
	}

	if out.RawProviderTags, err = firstStrings(raw, fieldAliases.rawTags); err != nil {
		return err
	}
	if out.TagSource, err = firstString(raw, fieldAliases.tagSource); err != nil {
		return err
	}
	if out.StableID, err = firstString(raw, fieldAliases.stableID); err != nil {
		return err
	}
	if out.MediaID, err = firstString(raw, fieldAliases.mediaID); err != nil {
		return err
	}
	if out.BackupMediaIDs, err = firstStrings(raw, fieldAliases.backupMediaIDs); err != nil {
		return err
	}

	_ = out.Refresh()
	*r = out
	return nil
}

// DecodeRecords reads a list of records from either a JSON array or an
// object keyed by name. For keyed objects a record without a name takes
// its key as the name.
func DecodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var list []Record
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decoding artist list: %w", err)
		}
		return list, nil
	}

	var keyed map[string]Record
	if err := json.Unmarshal(data, &keyed); err != nil {
		return nil, fmt.Errorf("decoding artist map: %w", err)
	}
	out := make([]Record, 0, len(keyed))
	for key, rec := range keyed {
		if rec.Name == "" {
			rec.Name = key
		}
		out = append(out, rec)
	}
	SortByKey(out)
	return out, nil
}

func firstRaw(raw map[string]json.RawMessage, names []string) (string, json.RawMessage) {
	for _, n := range names {
		if v, ok := raw[n]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return n, v
		}
	}
	return "", nil
}

func firstString(raw map[string]json.RawMessage, names []string) (string, error) {
	field, v := firstRaw(raw, names)
	if v == nil {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("field %q: %w", field, err)
	}
	return s, nil
}

// firstStrings accepts either an array of strings or a single string,
// which is split on commas.
func firstStrings(raw map[string]json.RawMessage, names []string) ([]string, error) {
	field, v := firstRaw(raw, names)
	if v == nil {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return compact(list), nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, fmt.Errorf("field %q: expected string or string array", field)
	}
	return compact(strings.Split(s, ",")), nil
}

func firstBool(raw map[string]json.RawMessage, names []string) (bool, error) {
	field, v := firstRaw(raw, names)
	if v == nil {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, fmt.Errorf("field %q: %w", field, err)
	}
	return b, nil
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func appendUnique[T comparable](list []T, v T) []T {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
