package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestChecksumIsOrderIndependent(t *testing.T) {
	a := []EnvFile{{Path: "b", Content: []byte("2")}, {Path: "a", Content: []byte("1")}}
	b := []EnvFile{{Path: "a", Content: []byte("1")}, {Path: "b", Content: []byte("2")}}
	if Checksum(a) != Checksum(b) {
		t.Fatalf("expected checksum to be independent of input order")
	}
}

func TestChecksumChangesWithContent(t *testing.T) {
	a := []EnvFile{{Path: "a", Content: []byte("1")}}
	b := []EnvFile{{Path: "a", Content: []byte("2")}}
	if Checksum(a) == Checksum(b) {
		t.Fatalf("expected different content to produce different checksum")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := &Record{Items: map[string]string{"tokio::main": "https://docs.rs/tokio/latest/tokio/attr.main.html"}, EnvChecksum: "abc"}

	if err := Save(dir, rec); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if got == nil {
		t.Fatal("expected a loaded record")
	}
	if got.EnvChecksum != "abc" || got.Items["tokio::main"] == "" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestLoadMissingFileReturnsNilNotError(t *testing.T) {
	dir := t.TempDir()
	rec, err := Load(dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for missing cache")
	}
}

func TestLoadCorruptFileIsTreatedAsColdStart(t *testing.T) {
	dir := t.TempDir()
	writeGarbage(t, filepath.Join(dir, FileName))
	rec, err := Load(dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for corrupt cache")
	}
}

func TestHitRequiresSubsetAndMatchingChecksum(t *testing.T) {
	rec := &Record{Items: map[string]string{"a": "u1", "b": "u2"}, EnvChecksum: "x"}

	if !Hit(rec, []string{"a"}, "x") {
		t.Fatal("expected hit for a subset with matching checksum")
	}
	if Hit(rec, []string{"a", "c"}, "x") {
		t.Fatal("expected miss when requested set is not a subset")
	}
	if Hit(rec, []string{"a"}, "y") {
		t.Fatal("expected miss when checksum differs")
	}
	if Hit(nil, []string{"a"}, "x") {
		t.Fatal("expected miss for nil record")
	}
}

func writeGarbage(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
}
