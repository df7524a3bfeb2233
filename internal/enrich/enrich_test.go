package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/provider"
	"github.com/sydlexius/cytherea/internal/resolve"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// slowDates answers every name except "Nobody" and tracks concurrency.
type slowDates struct {
	inflight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	asked    []string
}

func (s *slowDates) Name() provider.ProviderName { return provider.NameWikidata }

func (s *slowDates) LookupBirthDate(ctx context.Context, q provider.Query) (provider.Result[artist.PartialDate], error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	s.mu.Lock()
	s.asked = append(s.asked, q.Name)
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return provider.Result[artist.PartialDate]{}, ctx.Err()
	case <-time.After(5 * time.Millisecond):
	}
	if q.Name == "Nobody" {
		return provider.NoResult[artist.PartialDate](provider.NameWikidata, "no match"), nil
	}
	res := provider.Found(provider.NameWikidata, artist.PartialDate{Year: 1980, Month: 3})
	res.StableID = "Q-" + q.Name
	return res, nil
}

type media map[string]provider.MediaRef

func (m media) Name() provider.ProviderName { return provider.NameDeezer }

func (m media) LookupMedia(_ context.Context, q provider.Query) (provider.Result[provider.MediaRef], error) {
	ref, ok := m[q.Name]
	if !ok {
		return provider.NoResult[provider.MediaRef](provider.NameDeezer, "artist not found"), nil
	}
	return provider.Found(provider.NameDeezer, ref), nil
}

func TestRunFillsGapsInBatches(t *testing.T) {
	var records []artist.Record
	for i := range 12 {
		records = append(records, artist.Record{Name: fmt.Sprintf("Artist %02d", i), Genres: []genre.Category{genre.Techno}})
	}
	records = append(records,
		artist.Record{Name: "Nobody", Genres: []genre.Category{genre.Jazz}},
		artist.Record{Name: "Complete", BirthDate: artist.Date{Year: 1970, Month: time.June, Day: 4}, MediaID: "keep", Genres: []genre.Category{genre.Techno}},
	)
	src := &slowDates{}
	chain := resolve.NewChain([]provider.BirthDateSource{src}, testLogger(), resolve.Options{})
	m := media{"Artist 00": {ID: "t1", Backups: []string{"t2", "t3"}}}

	stats, err := New(chain, []provider.MediaSource{m}, nil, 5, testLogger()).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p := src.peak.Load(); p > 5 {
		t.Errorf("peak concurrency = %d, want <= 5", p)
	}
	if slices.Contains(src.asked, "Complete") {
		t.Error("a record with a birth date must not be resolved again")
	}
	want := Stats{Considered: 13, Dates: 12, Media: 1, Unresolved: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	first := records[0]
	if first.BirthDate.String() != "1980-03-15" || !first.DateApprox || first.BirthDateSource != "wikidata" {
		t.Errorf("first = %+v", first)
	}
	if first.Venus == nil || first.StableID != "Q-Artist 00" {
		t.Errorf("venus and stable id should be filled: %+v", first)
	}
	if first.MediaID != "t1" || !slices.Equal(first.BackupMediaIDs, []string{"t2", "t3"}) {
		t.Errorf("media = %q %v", first.MediaID, first.BackupMediaIDs)
	}
	if records[13].MediaID != "keep" || records[13].BirthDate.Year != 1970 {
		t.Errorf("complete record changed: %+v", records[13])
	}
}

func TestStableIDNotStolen(t *testing.T) {
	records := []artist.Record{
		{Name: "Holder", StableID: "Q-Taker", BirthDate: artist.Date{Year: 1970, Month: 1, Day: 2}},
		{Name: "Taker"},
	}
	chain := resolve.NewChain([]provider.BirthDateSource{&slowDates{}}, testLogger(), resolve.Options{})
	if _, err := New(chain, nil, nil, 0, testLogger()).Run(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	if records[1].StableID != "" {
		t.Errorf("stable id %q already belongs to another record", records[1].StableID)
	}
	if records[1].BirthDate.IsZero() {
		t.Error("birth date should still be applied")
	}
}

// fixedDate answers every lookup with the same result.
type fixedDate struct {
	name provider.ProviderName
	res  provider.Result[artist.PartialDate]
}

func (f fixedDate) Name() provider.ProviderName { return f.name }

func (f fixedDate) LookupBirthDate(context.Context, provider.Query) (provider.Result[artist.PartialDate], error) {
	return f.res, nil
}

func TestNamesakeStableIDNotStored(t *testing.T) {
	namesake := provider.Found(provider.NameMusicBrainz, artist.PartialDate{Year: 1550, Month: 3, Day: 2})
	namesake.StableID = "mbid-of-16th-century-namesake"
	chain := resolve.NewChain([]provider.BirthDateSource{
		fixedDate{name: provider.NameMusicBrainz, res: namesake},
		fixedDate{name: provider.NameWikipedia, res: provider.Found(provider.NameWikipedia, artist.PartialDate{Year: 1975, Month: 6, Day: 20})},
	}, testLogger(), resolve.Options{})

	records := []artist.Record{{Name: "Thomas Tallis", Genres: []genre.Category{genre.Ambient}}}
	if _, err := New(chain, nil, nil, 0, testLogger()).Run(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	got := records[0]
	if got.BirthDate.String() != "1975-06-20" || got.BirthDateSource != string(provider.NameWikipedia) {
		t.Errorf("birth = %s from %s", got.BirthDate, got.BirthDateSource)
	}
	if got.StableID != "" {
		t.Errorf("stable id = %q, want none from a rejected tier", got.StableID)
	}
}

func TestCanceledRunKeepsAppliedBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := []artist.Record{{Name: "A"}}
	chain := resolve.NewChain([]provider.BirthDateSource{&slowDates{}}, testLogger(), resolve.Options{})
	_, err := New(chain, nil, nil, 5, testLogger()).Run(ctx, records)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if !records[0].BirthDate.IsZero() {
		t.Error("a canceled batch must not be applied")
	}
}
