package resolve

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/event"
	"github.com/sydlexius/cytherea/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var fixedNow = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

// fakeDates answers every query with the same result and counts calls.
type fakeDates struct {
	name  provider.ProviderName
	res   provider.Result[artist.PartialDate]
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeDates) Name() provider.ProviderName { return f.name }

func (f *fakeDates) LookupBirthDate(_ context.Context, _ provider.Query) (provider.Result[artist.PartialDate], error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.res, f.err
}

func found(name provider.ProviderName, y, m, d int) *fakeDates {
	return &fakeDates{name: name, res: provider.Found(name, artist.PartialDate{Year: y, Month: m, Day: d})}
}

func empty(name provider.ProviderName) *fakeDates {
	return &fakeDates{name: name, res: provider.NoResult[artist.PartialDate](name, "nothing")}
}

func TestOverrideShortCircuits(t *testing.T) {
	override := found(provider.NameOverride, 1985, 1, 1)
	rest := []*fakeDates{
		found(provider.NameWikidata, 1990, 5, 5),
		found(provider.NameMusicBrainz, 1990, 5, 5),
		found(provider.NameWikipedia, 1990, 5, 5),
		found(provider.NameFamousBirthdays, 1990, 5, 5),
	}
	sources := []provider.BirthDateSource{override}
	for _, r := range rest {
		sources = append(sources, r)
	}
	c := NewChain(sources, testLogger(), Options{Now: fixedNow})

	got, err := c.Resolve(context.Background(), provider.Query{Name: "Test Artist"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Date.String() != "1985-01-01" || got.Approx || got.Source != provider.NameOverride {
		t.Errorf("got %+v, want the override date unchanged", got)
	}
	for _, r := range rest {
		if r.calls != 0 {
			t.Errorf("%s was queried %d times after an override hit", r.name, r.calls)
		}
	}
}

func TestFallsThroughEmptyAndFailingTiers(t *testing.T) {
	failing := &fakeDates{name: provider.NameWikidata, err: &provider.ErrProviderUnavailable{Provider: provider.NameWikidata, Cause: errors.New("timeout")}}
	mb := &fakeDates{name: provider.NameMusicBrainz, res: provider.Found(provider.NameMusicBrainz, artist.PartialDate{Year: 1991})}
	mb.res.StableID = "mbid-1"
	wp := found(provider.NameWikipedia, 1980, 1, 1)

	c := NewChain([]provider.BirthDateSource{empty(provider.NameOverride), failing, mb, wp}, testLogger(), Options{Now: fixedNow})
	got, err := c.Resolve(context.Background(), provider.Query{Name: "Someone"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Date.String() != "1991-07-01" || !got.Approx {
		t.Errorf("year-only date should normalize to July 1 approx, got %+v", got)
	}
	if got.Source != provider.NameMusicBrainz || got.StableID != "mbid-1" {
		t.Errorf("got %+v", got)
	}
	if wp.calls != 0 {
		t.Error("chain should stop at the first success")
	}
}

func TestImplausibleYearContinues(t *testing.T) {
	var rec event.Recorder
	old := found(provider.NameWikidata, 1710, 3, 2)
	old.res.StableID = "Q1"
	wp := found(provider.NameWikipedia, 1975, 6, 20)

	c := NewChain([]provider.BirthDateSource{old, wp}, testLogger(), Options{Now: fixedNow, Events: &rec})
	got, err := c.Resolve(context.Background(), provider.Query{Name: "Bach"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Date.Year != 1975 || got.Source != provider.NameWikipedia {
		t.Errorf("got %+v", got)
	}
	if got.StableID != "" {
		t.Errorf("stable id of the rejected namesake leaked: %q", got.StableID)
	}
	if len(rec.OfType(event.ImplausibleYear)) != 1 {
		t.Errorf("events = %+v", rec.Events())
	}
}

func TestDiscoveryFloor(t *testing.T) {
	c := NewChain([]provider.BirthDateSource{found(provider.NameMusicBrainz, 1932, 4, 4)}, testLogger(), Options{Now: fixedNow})
	if _, err := c.Resolve(context.Background(), provider.Query{Name: "Old"}); err != nil {
		t.Fatalf("1932 is plausible for curated input: %v", err)
	}
	if _, err := c.WithMinYear(1940).Resolve(context.Background(), provider.Query{Name: "Old"}); !errors.Is(err, ErrUnresolved) {
		t.Errorf("1932 should be rejected under the 1940 floor, got %v", err)
	}
}

func TestWrongMatchPublished(t *testing.T) {
	var rec event.Recorder
	wrong := &fakeDates{name: provider.NameWikidata, res: provider.WrongMatch[artist.PartialDate](provider.NameWikidata, "not a musician")}
	c := NewChain([]provider.BirthDateSource{wrong}, testLogger(), Options{Now: fixedNow, Events: &rec})

	_, err := c.Resolve(context.Background(), provider.Query{Name: "Politician"})
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("err = %v, want ErrUnresolved", err)
	}
	evs := rec.OfType(event.WrongMatch)
	if len(evs) != 1 || evs[0].Data["reason"] != "not a musician" {
		t.Errorf("events = %+v", rec.Events())
	}
}

func TestCanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	failing := &fakeDates{name: provider.NameWikidata, err: context.Canceled}
	next := found(provider.NameMusicBrainz, 1990, 1, 2)
	c := NewChain([]provider.BirthDateSource{failing, next}, testLogger(), Options{Now: fixedNow})
	if _, err := c.Resolve(ctx, provider.Query{Name: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if next.calls != 0 {
		t.Error("no tier should run after cancellation")
	}
}

type fakeTags struct {
	name provider.ProviderName
	tags []string
}

func (f fakeTags) Name() provider.ProviderName { return f.name }

func (f fakeTags) LookupTags(_ context.Context, _ provider.Query) (provider.Result[[]string], error) {
	if f.tags == nil {
		return provider.NoResult[[]string](f.name, "none"), nil
	}
	return provider.Found(f.name, f.tags), nil
}

func TestTagResolverFirstNonEmptyWins(t *testing.T) {
	r := NewTagResolver([]provider.TagSource{
		fakeTags{name: provider.NameOverride},
		fakeTags{name: provider.NameEveryNoise, tags: []string{" ", ""}},
		fakeTags{name: provider.NameLastFM, tags: []string{"techno", " minimal "}},
		fakeTags{name: provider.NameDiscogs, tags: []string{"house"}},
	}, testLogger(), nil)

	got, err := r.Resolve(context.Background(), provider.Query{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != provider.NameLastFM || !slices.Equal(got.Tags, []string{"techno", "minimal"}) {
		t.Errorf("got %+v", got)
	}
}

func TestTagResolverNothing(t *testing.T) {
	r := NewTagResolver([]provider.TagSource{fakeTags{name: provider.NameLastFM}}, testLogger(), nil)
	got, err := r.Resolve(context.Background(), provider.Query{Name: "x"})
	if err != nil || got.Tags != nil || got.Source != "" {
		t.Errorf("got %+v, %v", got, err)
	}
}
