package pathresolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jcdickinson/mdbook-linkfix/internal/repospec"
)

func buildSpec(t *testing.T, root, ref, template string) *repospec.Spec {
	t.Helper()
	return repospec.New(root, ref, template)
}

func TestResolveTreeFormExistingFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	chapterDir := filepath.Join(root, "crates", "x", "src", "tests")
	if err := os.MkdirAll(chapterDir, 0o755); err != nil {
		t.Fatal(err)
	}

	spec := buildSpec(t, root, "HEAD", "https://github.com/lorem/ipsum/tree/HEAD/{path}")

	out := Resolve("../../../../Cargo.toml", chapterDir, spec, Config{}, repospec.FormTree)
	if !out.Rewritten {
		t.Fatalf("expected rewrite, got warning %q", out.Warning)
	}
	want := "https://github.com/lorem/ipsum/tree/HEAD/Cargo.toml"
	if out.URL != want {
		t.Fatalf("got %q, want %q", out.URL, want)
	}
}

func TestResolveMissingFileWarns(t *testing.T) {
	root := t.TempDir()
	chapterDir := filepath.Join(root, "crates", "x")
	if err := os.MkdirAll(chapterDir, 0o755); err != nil {
		t.Fatal(err)
	}
	spec := buildSpec(t, root, "HEAD", "https://github.com/lorem/ipsum/tree/HEAD/{path}")

	out := Resolve("../Cargo.lock", chapterDir, spec, Config{}, repospec.FormTree)
	if out.Rewritten {
		t.Fatalf("expected no rewrite for missing file")
	}
	if out.Warning == "" {
		t.Fatalf("expected a warning")
	}
}

func TestResolveEscapingRepoRootIsRejected(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Dir(root)
	chapterDir := root
	spec := buildSpec(t, root, "HEAD", "https://github.com/lorem/ipsum/tree/HEAD/{path}")

	rel, _ := filepath.Rel(chapterDir, outside)
	out := Resolve(filepath.Join(rel, "etc-passwd"), chapterDir, spec, Config{}, repospec.FormTree)
	if out.Rewritten {
		t.Fatalf("expected escaping path to be rejected")
	}
}

func TestResolveLeavesBookSourceUntouchedUnlessAlwaysLinked(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "book", "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "page.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	spec := buildSpec(t, root, "HEAD", "https://github.com/lorem/ipsum/tree/HEAD/{path}")

	out := Resolve("page.md", src, spec, Config{BookSrcDir: src}, repospec.FormTree)
	if out.Rewritten {
		t.Fatalf("expected book-source markdown to be left alone")
	}

	if err := os.WriteFile(filepath.Join(src, "diagram.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	out = Resolve("diagram.png", src, spec, Config{BookSrcDir: src, AlwaysLink: []string{".png"}}, repospec.FormRaw)
	if !out.Rewritten {
		t.Fatalf("expected always-link extension to still be rewritten")
	}
}
