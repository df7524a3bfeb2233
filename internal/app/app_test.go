package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/config"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/provider"
	"github.com/sydlexius/cytherea/internal/resolve"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestApp(t *testing.T, extraYAML string) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, "data:\n  dir: "+dir+"\n"+extraYAML)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	a, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, dir
}

const seedJSON = `[
  {"name": "Richie Hawtin", "birth_date": "1970-06-04", "genres": ["techno"], "mbid": "mb-hawtin"},
  {"name": "Wrong Person", "birth_date": "1980-01-02", "genres": ["pop"]},
  {"name": "No Genre", "birth_date": "1980-01-02"}
]`

func TestMergeWritesSnapshotAndIndex(t *testing.T) {
	a, dir := newTestApp(t, "")
	writeFile(t, filepath.Join(dir, "seed.json"), seedJSON)
	writeFile(t, filepath.Join(dir, "overrides.yaml"), "exclude: [wrong person]\n")
	if err := a.Curation.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res, err := a.Merge(ctx, MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(res.Records) != 1 || len(res.Excluded) != 1 || len(res.Dropped) != 1 {
		t.Fatalf("result = %+v", res)
	}

	loaded, err := a.Snapshot.Load()
	if err != nil || len(loaded) != 1 || loaded[0].StableID != "mb-hawtin" {
		t.Fatalf("snapshot = %+v, err = %v", loaded, err)
	}

	idx, err := a.Index(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got, err := idx.ByGenre(ctx, genre.Techno)
	if err != nil || len(got) != 1 {
		t.Fatalf("ByGenre = %+v, err = %v", got, err)
	}
	if got[0].Venus == nil || !got[0].Venus.Sign.Valid() {
		t.Errorf("venus = %+v", got[0].Venus)
	}
}

func TestPendingCandidatesMergedAndCleared(t *testing.T) {
	a, dir := newTestApp(t, "")
	candidate := artist.Record{
		Name:      "Burial",
		BirthDate: artist.Date{Year: 1979, Month: 7, Day: 1},
		Genres:    []genre.Category{genre.Dubstep},
	}
	if err := a.writeCandidates([]artist.Record{candidate}); err != nil {
		t.Fatal(err)
	}
	pending, err := a.PendingCandidates()
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %+v, err = %v", pending, err)
	}

	res, err := a.Merge(context.Background(), MergeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 || res.Records[0].Name != "Burial" {
		t.Errorf("records = %+v", res.Records)
	}
	if _, err := os.Stat(filepath.Join(dir, "discovery-checkpoint.json")); !os.IsNotExist(err) {
		t.Errorf("checkpoint should be removed after merge, stat err = %v", err)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	a, dir := newTestApp(t, "")
	writeFile(t, filepath.Join(dir, "seed.json"), seedJSON)
	if _, err := a.Merge(context.Background(), MergeOptions{DryRun: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "artists.json")); !os.IsNotExist(err) {
		t.Error("dry run wrote a snapshot")
	}
}

func TestProviderRegistration(t *testing.T) {
	a, _ := newTestApp(t, "providers:\n  disabled: [everynoise, famousbirthdays]\n")

	if a.Registry.Get(provider.NameEveryNoise) != nil || a.Registry.Get(provider.NameFamousBirthdays) != nil {
		t.Error("disabled providers registered")
	}
	if a.Registry.Get(provider.NameLastFM) != nil {
		t.Error("last.fm registered without an API key")
	}
	var names []string
	for _, s := range a.Registry.BirthDateSources(resolve.BirthDateOrder...) {
		names = append(names, string(s.Name()))
	}
	if strings.Join(names, ",") != "override,wikidata,musicbrainz,wikipedia" {
		t.Errorf("chain tiers = %v", names)
	}
	if a.Authority() != nil {
		t.Error("authority should be nil when disabled")
	}
	if _, err := a.Verify(context.Background(), false); err == nil {
		t.Error("Verify should fail without an authority")
	}
	if a.Judge() != nil {
		t.Error("judge should be disabled without an API key")
	}
}

func TestDiscoverNeedsSeeds(t *testing.T) {
	a, _ := newTestApp(t, "")
	if _, err := a.Discover(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "seeds") {
		t.Errorf("err = %v", err)
	}
}

// countingAuthority stands in for the genre authority and counts lookups.
type countingAuthority struct {
	calls atomic.Int32
}

func (c *countingAuthority) Name() provider.ProviderName { return provider.NameEveryNoise }

func (c *countingAuthority) LookupTags(context.Context, provider.Query) (provider.Result[[]string], error) {
	c.calls.Add(1)
	return provider.Found(provider.NameEveryNoise, []string{"techno"}), nil
}

func TestVerifyAsksAuthorityEveryPass(t *testing.T) {
	a, _ := newTestApp(t, "")
	auth := &countingAuthority{}
	a.Registry.Register(auth)

	rec := artist.Record{Name: "Richie Hawtin", Genres: []genre.Category{genre.Techno}}
	if err := a.Snapshot.Save([]artist.Record{rec}); err != nil {
		t.Fatal(err)
	}
	for pass := 1; pass <= 2; pass++ {
		rep, err := a.Verify(context.Background(), false)
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if len(rep.OK) != 1 {
			t.Errorf("pass %d: report = %+v", pass, rep)
		}
		if got := auth.calls.Load(); got != int32(pass) {
			t.Errorf("after pass %d the authority saw %d lookups", pass, got)
		}
	}
}
