package verify

import (
	"time"

	"github.com/sydlexius/cytherea/internal/genre"
)

// Bucket names a verification outcome.
type Bucket string

// Verification buckets. Missing and Extra may both apply to one record.
const (
	BucketOK       Bucket = "ok"
	BucketMissing  Bucket = "missing"
	BucketExtra    Bucket = "extra"
	BucketNotFound Bucket = "not_found"
)

// notFound reasons that are not wrong-geography matches.
const (
	ReasonNotFound      = "not found"
	ReasonNoOverlap     = "no genre overlap"
	wrongMatchReasonFmt = "wrong match (%s)"
)

// Entry is one record's verification evidence.
type Entry struct {
	Name      string           `json:"name"`
	Stored    []genre.Category `json:"stored"`
	Authority []genre.Category `json:"authority,omitempty"`
	Missing   []genre.Category `json:"missing,omitempty"`
	Extra     []genre.Category `json:"extra,omitempty"`
	RawTags   []string         `json:"raw_tags,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// Buckets returns the buckets the entry belongs in.
func (e Entry) Buckets() []Bucket {
	if e.Reason != "" {
		return []Bucket{BucketNotFound}
	}
	var out []Bucket
	if len(e.Missing) > 0 {
		out = append(out, BucketMissing)
	}
	if len(e.Extra) > 0 {
		out = append(out, BucketExtra)
	}
	if len(out) == 0 {
		out = append(out, BucketOK)
	}
	return out
}

// Report is the verifier's output and also its checkpoint format.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Complete  bool      `json:"complete"`
	// Processed holds the name keys already checked or skipped, in order.
	Processed []string `json:"processed"`
	Skipped   int      `json:"skipped"`
	OK        []Entry  `json:"ok"`
	Missing   []Entry  `json:"missing"`
	Extra     []Entry  `json:"extra"`
	NotFound  []Entry  `json:"not_found"`
}

func (r *Report) add(key string, e Entry) []Bucket {
	r.Processed = append(r.Processed, key)
	buckets := e.Buckets()
	for _, b := range buckets {
		switch b {
		case BucketOK:
			r.OK = append(r.OK, e)
		case BucketMissing:
			r.Missing = append(r.Missing, e)
		case BucketExtra:
			r.Extra = append(r.Extra, e)
		case BucketNotFound:
			r.NotFound = append(r.NotFound, e)
		}
	}
	return buckets
}

// skip records a key that was passed over without a check.
func (r *Report) skip(key string) {
	r.Processed = append(r.Processed, key)
	r.Skipped++
}

// Counts returns the number of entries per bucket.
func (r *Report) Counts() map[Bucket]int {
	return map[Bucket]int{
		BucketOK:       len(r.OK),
		BucketMissing:  len(r.Missing),
		BucketExtra:    len(r.Extra),
		BucketNotFound: len(r.NotFound),
	}
}
