package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jcdickinson/mdbook-linkfix/internal/book"
	"github.com/jcdickinson/mdbook-linkfix/internal/diag"
	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
	"github.com/jcdickinson/mdbook-linkfix/internal/repospec"
)

func TestRunPermalinkModeRewritesExistingRelativePath(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	chapterDir := filepath.Join(root, "crates", "x", "src", "tests")
	if err := os.MkdirAll(chapterDir, 0o755); err != nil {
		t.Fatal(err)
	}
	chapterPath := filepath.Join(chapterDir, "links.md")

	src := []byte(`[Cargo.toml](../../../../Cargo.toml)`)
	stream := markdown.Scan("crates/x/src/tests/links.md", src)

	spec := repospec.New(root, "HEAD", "https://github.com/lorem/ipsum/tree/{ref}/{path}")
	diags := diag.NewCollector(false)

	out := RunPermalinkMode([]ParsedChapter{
		{Node: &book.Chapter{}, Stream: stream, SrcPath: chapterPath},
	}, PermalinkOptions{Spec: spec}, diags)

	got := string(out[stream.ID])
	want := "[Cargo.toml](https://github.com/lorem/ipsum/tree/HEAD/Cargo.toml)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if diags.HasWarnings() {
		t.Fatalf("expected no warnings, got %+v", diags.Items())
	}
}

func TestRunPermalinkModeWarnsOnMissingFile(t *testing.T) {
	root := t.TempDir()
	chapterDir := filepath.Join(root, "crates", "x")
	if err := os.MkdirAll(chapterDir, 0o755); err != nil {
		t.Fatal(err)
	}
	chapterPath := filepath.Join(chapterDir, "links.md")

	src := []byte(`[Cargo.lock](../Cargo.lock)`)
	stream := markdown.Scan("crates/x/links.md", src)

	spec := repospec.New(root, "HEAD", "https://github.com/lorem/ipsum/tree/{ref}/{path}")
	diags := diag.NewCollector(false)

	out := RunPermalinkMode([]ParsedChapter{
		{Node: &book.Chapter{}, Stream: stream, SrcPath: chapterPath},
	}, PermalinkOptions{Spec: spec}, diags)

	if string(out[stream.ID]) != string(src) {
		t.Fatalf("expected unchanged output for unresolved link")
	}
	if !diags.HasWarnings() {
		t.Fatalf("expected a warning for the missing file")
	}
}

func TestRunPermalinkModeImageUsesRawForm(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "selfie.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	chapterDir := root
	chapterPath := filepath.Join(chapterDir, "links.md")

	src := []byte(`![selfie](selfie.jpg)`)
	stream := markdown.Scan("links.md", src)

	spec := repospec.New(root, "HEAD", "https://github.com/lorem/ipsum/tree/HEAD/{path}")
	diags := diag.NewCollector(false)

	out := RunPermalinkMode([]ParsedChapter{
		{Node: &book.Chapter{}, Stream: stream, SrcPath: chapterPath},
	}, PermalinkOptions{Spec: spec}, diags)

	got := string(out[stream.ID])
	if got != "![selfie](https://github.com/lorem/ipsum/raw/HEAD/selfie.jpg)" {
		t.Fatalf("unexpected output: %q", got)
	}
}
