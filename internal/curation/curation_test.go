package curation

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

const sample = `
birth_dates:
  Test Artist: "1985-01-01"
  "DJ Koze": "1972-00-00"
  Moby: "September 11, 1965"
genres:
  Burial: [dubstep, "uk garage", " "]
exclude:
  - "Fake Burial"
preserved_tags:
  - "Berlin School"
overrides:
  Aphex Twin:
    stable_id: f22942a1-6f70-4f48-866e-238cb2308fbd
    genres: [electronic, experimental]
    subgenres: [idm]
    birth_date: "1971-08-18"
  kode9:
    name: Kode9
    media_id: track-99
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookupBirthDate(t *testing.T) {
	s, err := Open(writeFile(t, sample), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name string
		want artist.PartialDate
		ok   bool
	}{
		{"Test Artist", artist.PartialDate{Year: 1985, Month: 1, Day: 1}, true},
		{"test artist", artist.PartialDate{Year: 1985, Month: 1, Day: 1}, true},
		{"dj koze", artist.PartialDate{Year: 1972}, true},
		{"Moby", artist.PartialDate{Year: 1965, Month: 9, Day: 11}, true},
		{"Burial", artist.PartialDate{}, false},
	}
	for _, tt := range tests {
		res, err := s.LookupBirthDate(ctx, provider.Query{Name: tt.name})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if res.OK() != tt.ok || res.Value != tt.want {
			t.Errorf("%s: got %+v (%v), want %+v", tt.name, res.Value, res.Outcome, tt.want)
		}
		if res.Source != provider.NameOverride {
			t.Errorf("%s: source = %q", tt.name, res.Source)
		}
	}
}

func TestLookupTags(t *testing.T) {
	s, err := Open(writeFile(t, sample), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	res, _ := s.LookupTags(context.Background(), provider.Query{Name: "BURIAL"})
	if !slices.Equal(res.Value, []string{"dubstep", "uk garage"}) {
		t.Errorf("tags = %q", res.Value)
	}
	res, _ = s.LookupTags(context.Background(), provider.Query{Name: "Kode9"})
	if res.OK() {
		t.Error("no genre override for Kode9")
	}
}

func TestExclusionAndPreserved(t *testing.T) {
	s, err := Open(writeFile(t, sample), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	set := s.Current()
	if !set.IsExcluded("fake  BURIAL") || set.IsExcluded("Burial") {
		t.Error("exclusion should match by name key only")
	}
	if !set.IsPreserved("berlin school") || set.IsPreserved("techno") {
		t.Error("preserved labels should match case-insensitively")
	}
}

func TestOverrideApply(t *testing.T) {
	s, err := Open(writeFile(t, sample), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	o, ok := s.Current().Override("aphex twin")
	if !ok {
		t.Fatal("override not found by key")
	}
	r := artist.Record{Name: "Aphex Twin", MediaID: "keep-me", Genres: []genre.Category{genre.Ambient}}
	if err := o.Apply(&r); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if r.MediaID != "keep-me" {
		t.Error("empty override field must not clear the record's value")
	}
	if !slices.Equal(r.Genres, []genre.Category{genre.Electronic, genre.Experimental}) {
		t.Errorf("genres = %v", r.Genres)
	}
	if r.BirthDate.String() != "1971-08-18" || r.DateApprox || r.BirthDateSource != "override" {
		t.Errorf("date = %s approx=%v source=%q", r.BirthDate, r.DateApprox, r.BirthDateSource)
	}
	if r.Venus == nil {
		t.Error("venus should be recomputed after a date override")
	}

	k, _ := s.Current().Override("Kode9")
	r2 := artist.Record{Name: "kode9"}
	if err := k.Apply(&r2); err != nil {
		t.Fatal(err)
	}
	if r2.Name != "Kode9" || r2.MediaID != "track-99" {
		t.Errorf("got %+v", r2)
	}
}

func TestFullCuratedJanFirstIsExact(t *testing.T) {
	o := Override{BirthDate: artist.PartialDate{Year: 1985, Month: 1, Day: 1}}
	r := artist.Record{Name: "Test Artist"}
	if err := o.Apply(&r); err != nil {
		t.Fatal(err)
	}
	if r.DateApprox {
		t.Error("a full curated Jan 1 date should not be flagged approximate")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad date", "birth_dates:\n  X: soon\n", `birth_dates["X"]`},
		{"bad genre", "overrides:\n  X:\n    genres: [polka-step]\n", `overrides["X"]`},
		{"empty genres", "genres:\n  X: []\n", `genres["X"]`},
		{"bad yaml", "birth_dates: [", "decoding overrides"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestMissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "absent.yaml"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Current().IsExcluded("anyone") {
		t.Error("empty store should exclude nobody")
	}
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	path := writeFile(t, sample)
	s, err := Open(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("birth_dates:\n  X: never\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if _, ok := s.Current().BirthDate("Test Artist"); !ok {
		t.Error("previous overrides should stay in effect after a bad reload")
	}
}

func TestWatchReloads(t *testing.T) {
	path := writeFile(t, "exclude: []\n")
	s, err := Open(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Watch(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("exclude: [Fake Burial]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for !s.Current().IsExcluded("Fake Burial") {
		if time.Now().After(deadline) {
			t.Fatal("watch did not pick up the new exclusion")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
