package filesystem

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("unexpected temp file %s remains", e.Name())
		}
	}
}

func TestWriteFileAtomic_NewFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "artists.json")
	data := []byte(`{"version":1}`)

	if err := WriteFileAtomic(target, data, 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("content = %q, want %q", got, data)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
	assertNoTemps(t, dir)
}

func TestWriteFileAtomic_MultipleOverwrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "multi.txt")

	for i := 0; i < 10; i++ {
		data := []byte("iteration " + string(rune('0'+i)))
		if err := WriteFileAtomic(target, data, 0o644); err != nil {
			t.Fatalf("WriteFileAtomic iteration %d: %v", i, err)
		}
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "iteration 9" {
		t.Errorf("content = %q, want %q", got, "iteration 9")
	}
	assertNoTemps(t, dir)
}

func TestWriteFileAtomic_CreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "dir", "test.txt")

	if err := WriteFileAtomic(target, []byte("nested"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "nested" {
		t.Errorf("content = %q, want %q", got, "nested")
	}
}

func TestWriteFileAtomic_TargetIsDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "taken")
	if err := os.MkdirAll(filepath.Join(target, "child"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(target, []byte("x"), 0o644); err == nil {
		t.Fatal("expected an error renaming over a non-empty directory")
	}
	assertNoTemps(t, dir)
}

func TestJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "checkpoint.json")

	type checkpoint struct {
		Processed []string `json:"processed"`
	}
	if err := WriteJSONAtomic(target, checkpoint{Processed: []string{"burial", "kode9"}}); err != nil {
		t.Fatalf("WriteJSONAtomic: %v", err)
	}

	var got checkpoint
	found, err := ReadJSON(target, &got)
	if err != nil || !found {
		t.Fatalf("ReadJSON: found=%v err=%v", found, err)
	}
	if len(got.Processed) != 2 || got.Processed[1] != "kode9" {
		t.Errorf("got %+v", got)
	}
}

func TestReadJSON_Missing(t *testing.T) {
	var v map[string]any
	found, err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &v)
	if err != nil || found {
		t.Errorf("missing file: found=%v err=%v", found, err)
	}
}

func TestReadJSON_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	found, err := ReadJSON(path, &v)
	if err == nil || !found {
		t.Errorf("corrupt file: found=%v err=%v", found, err)
	}
}
