package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/backup"
	"github.com/sydlexius/cytherea/internal/database"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/venus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func record(t *testing.T, name, born string, genres ...genre.Category) artist.Record {
	t.Helper()
	r := artist.Record{Name: name, Genres: genres}
	if born != "" {
		d, approx, err := artist.NormalizeString(born, time.Now(), artist.DefaultMinYear)
		if err != nil {
			t.Fatalf("date %q: %v", born, err)
		}
		r.BirthDate, r.DateApprox = d, approx
	}
	if err := r.Refresh(); err != nil {
		t.Fatalf("refresh %s: %v", name, err)
	}
	return r
}

func fixtures(t *testing.T) []artist.Record {
	t.Helper()
	hawtin := record(t, "Richie Hawtin", "1970-06-04", genre.Techno, genre.Electronic)
	hawtin.Subgenres = []genre.Subgenre{genre.MinimalTechno}
	hawtin.StableID = "mbid-hawtin"
	hawtin.MediaID = "track-1"
	hawtin.BackupMediaIDs = []string{"track-2"}
	return []artist.Record{
		hawtin,
		record(t, "Burial", "1979-00-00", genre.Dubstep, genre.Electronic),
		record(t, "Basic Channel", "", genre.Techno, genre.Ambient),
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artists.json")
	s := NewSnapshotStore(path, backup.NewService(path, filepath.Join(dir, "backups"), 2, testLogger()), testLogger())
	s.now = func() time.Time { return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC) }

	in := fixtures(t)
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var env Snapshot
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if env.Version != SnapshotVersion || !env.GeneratedAt.Equal(s.now()) {
		t.Errorf("envelope header = %d %v", env.Version, env.GeneratedAt)
	}
	if _, ok := env.Artists["richie hawtin"]; !ok {
		t.Errorf("artists should be keyed by lowercased name, got keys %v", keys(env.Artists))
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d records", len(out))
	}
	// Sorted by key: basic channel, burial, richie hawtin.
	got := out[2]
	if got.MediaID != "track-1" || got.StableID != "mbid-hawtin" || len(got.BackupMediaIDs) != 1 {
		t.Errorf("identifiers lost: %+v", got)
	}
	if got.Venus == nil || *got.Venus != *in[0].Venus {
		t.Errorf("venus = %+v, want %+v", got.Venus, in[0].Venus)
	}
	if !out[1].DateApprox || out[1].BirthDate.String() != "1979-07-01" {
		t.Errorf("approx date lost: %+v", out[1])
	}

	// Second save backs up the first.
	if err := s.Save(out); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	backups, err := s.backups.List()
	if err != nil || len(backups) != 1 {
		t.Errorf("backups = %v, %v", backups, err)
	}
}

func keys(m map[string]artist.Record) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSnapshotRejectsDuplicateKeys(t *testing.T) {
	s := NewSnapshotStore(filepath.Join(t.TempDir(), "a.json"), nil, testLogger())
	recs := []artist.Record{
		{Name: "Burial", Genres: []genre.Category{genre.Dubstep}},
		{Name: "burial", Genres: []genre.Category{genre.Electronic}},
	}
	if err := s.Save(recs); err == nil {
		t.Error("expected duplicate key error")
	}
}

func TestSnapshotLoadMissing(t *testing.T) {
	s := NewSnapshotStore(filepath.Join(t.TempDir(), "absent.json"), nil, testLogger())
	recs, err := s.Load()
	if err != nil || recs != nil {
		t.Errorf("Load = %v, %v", recs, err)
	}
}

func TestSnapshotLoadLegacy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	legacy := `[{"name":"Kode9","birthdate":"1973-00-00","genre":["dubstep"],"spotify_id":"abc"}]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err := NewSnapshotStore(path, nil, testLogger()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 1 || recs[0].MediaID != "abc" || recs[0].Venus == nil {
		t.Errorf("legacy decode = %+v", recs)
	}
}

func TestSnapshotFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"artists":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSnapshotStore(path, nil, testLogger()).Load(); err == nil {
		t.Error("expected an error for a newer snapshot version")
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	db, err := database.OpenMigrated(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewIndex(db)
}

func TestIndexQueries(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)
	recs := fixtures(t)
	if err := x.Rebuild(ctx, recs); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	n, err := x.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	techno, err := x.ByGenre(ctx, genre.Techno)
	if err != nil {
		t.Fatal(err)
	}
	if len(techno) != 2 || techno[0].Name != "Basic Channel" {
		t.Errorf("ByGenre(techno) = %v", names(techno))
	}

	minimal, err := x.BySubgenre(ctx, genre.MinimalTechno)
	if err != nil || len(minimal) != 1 || minimal[0].Name != "Richie Hawtin" {
		t.Errorf("BySubgenre = %v, %v", names(minimal), err)
	}

	sign := recs[0].Venus.Sign
	bySign, err := x.BySign(ctx, sign)
	if err != nil {
		t.Fatal(err)
	}
	if !containsName(bySign, "Richie Hawtin") {
		t.Errorf("BySign(%s) = %v", sign, names(bySign))
	}
	byElement, err := x.ByElement(ctx, sign.Element())
	if err != nil || !containsName(byElement, "Richie Hawtin") {
		t.Errorf("ByElement = %v, %v", names(byElement), err)
	}

	// Basic Channel has no birth date, so no sign.
	for _, s := range venus.Signs {
		got, _ := x.BySign(ctx, s)
		if containsName(got, "Basic Channel") {
			t.Errorf("undated artist indexed under %s", s)
		}
	}

	got, err := x.Get(ctx, "RICHIE HAWTIN")
	if err != nil || got == nil || got.MediaID != "track-1" {
		t.Errorf("Get = %+v, %v", got, err)
	}
	missing, err := x.Get(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("Get(nobody) = %+v, %v", missing, err)
	}
}

func TestIndexRebuildReplaces(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)
	if err := x.Rebuild(ctx, fixtures(t)); err != nil {
		t.Fatal(err)
	}
	if err := x.Rebuild(ctx, fixtures(t)[:1]); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	n, _ := x.Count(ctx)
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	dub, _ := x.ByGenre(ctx, genre.Dubstep)
	if len(dub) != 0 {
		t.Errorf("stale genre rows survived: %v", names(dub))
	}
}

func TestIndexRejectsStableIDCollision(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)
	recs := []artist.Record{
		{Name: "A", StableID: "same", Genres: []genre.Category{genre.Pop}},
		{Name: "B", StableID: "same", Genres: []genre.Category{genre.Pop}},
	}
	if err := x.Rebuild(ctx, recs); err == nil {
		t.Error("expected the unique stable id index to reject a collision")
	}
	if n, _ := x.Count(ctx); n != 0 {
		t.Errorf("failed rebuild should roll back, count = %d", n)
	}
}

func names(recs []artist.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func containsName(recs []artist.Record, name string) bool {
	for _, r := range recs {
		if r.Name == name {
			return true
		}
	}
	return false
}
