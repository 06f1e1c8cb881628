package bookurl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckRewritesToRelativePath(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	tests := filepath.Join(src, "tests")
	if err := os.MkdirAll(tests, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tests, "links.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := Check("https://example.org/book/tests/links", "https://example.org/book/", src, tests)
	if !out.Rewritten {
		t.Fatalf("expected rewrite, got warning %q", out.Warning)
	}
	if out.RelativeURL != "links.md" {
		t.Fatalf("unexpected relative URL: %q", out.RelativeURL)
	}
}

func TestCheckPreservesFragment(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "links.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := Check("https://example.org/book/links#section", "https://example.org/book/", src, src)
	if !out.Rewritten {
		t.Fatalf("expected rewrite, got warning %q", out.Warning)
	}
	if out.RelativeURL != "links.md#section" {
		t.Fatalf("unexpected relative URL: %q", out.RelativeURL)
	}
}

func TestCheckTrailingSlashOnlyTriesIndexAndReadme(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dir := filepath.Join(src, "chapter")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := Check("https://example.org/book/chapter/", "https://example.org/book/", src, src)
	if !out.Rewritten {
		t.Fatalf("expected rewrite, got warning %q", out.Warning)
	}
}

func TestCheckNoMatchWarns(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	out := Check("https://example.org/book/missing", "https://example.org/book/", src, src)
	if out.Rewritten {
		t.Fatalf("expected no match")
	}
	if out.Warning == "" {
		t.Fatalf("expected warning")
	}
}
