package merge

import (
	"slices"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/genre"
)

// Reclassify recomputes genres and subgenres from each record's retained
// raw tags and returns how many records changed. Labels for which
// preserved returns true are kept; other labels are dropped. Records
// without raw tags, or whose tags no longer classify, are left as they are
// so a record's genres are never emptied automatically.
func Reclassify(records []artist.Record, c *genre.Classifier, preserved func(string) bool) int {
	changed := 0
	for i := range records {
		r := &records[i]
		if len(r.RawProviderTags) == 0 {
			continue
		}
		cl := c.Classify(r.RawProviderTags)
		if cl.Empty() {
			continue
		}
		var labels []string
		for _, l := range r.Labels {
			if preserved != nil && preserved(l) {
				labels = append(labels, l)
			}
		}
		if slices.Equal(cl.Categories, r.Genres) && slices.Equal(cl.Subgenres, r.Subgenres) && slices.Equal(labels, r.Labels) {
			continue
		}
		r.SetClassification(cl)
		r.Labels = labels
		changed++
	}
	return changed
}
