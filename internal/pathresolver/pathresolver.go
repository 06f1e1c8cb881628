// Package pathresolver implements the permalink core, spec.md §4.D:
// turning a classified path-shaped link into a source-hosting URL anchored
// to the discovered repository revision.
package pathresolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jcdickinson/mdbook-linkfix/internal/repospec"
)

// Outcome is what the resolver decided for one link.
type Outcome struct {
	// Rewritten is false when the link is left alone: either it lives
	// inside the book source tree and isn't in the always-link list, or
	// the target file doesn't exist on disk.
	Rewritten bool

	// URL is the repo-relative URL to substitute, valid only when
	// Rewritten is true.
	URL string

	// Warning is set when the target does not exist; the driver attaches
	// it to the link's span.
	Warning string
}

// Config carries the permalink resolver's book-source and always-link
// settings, both configured per spec.md §6.
type Config struct {
	// BookSrcDir is the absolute path to the book's src/ directory.
	BookSrcDir string
	// AlwaysLink is the set of file extensions (with leading dot) that
	// must be linked even from inside BookSrcDir.
	AlwaysLink []string
}

// Resolve implements the four-step algorithm of spec.md §4.D.
func Resolve(target, chapterDir string, spec *repospec.Spec, cfg Config, form repospec.Form) Outcome {
	var abs string
	if filepath.IsAbs(target) {
		abs = filepath.Join(spec.Root, target)
	} else {
		abs = filepath.Join(chapterDir, target)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(spec.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Outcome{Warning: "path escapes repository root: " + target}
	}

	if cfg.BookSrcDir != "" {
		if withinDir(abs, cfg.BookSrcDir) && !hasAlwaysLinkExt(abs, cfg.AlwaysLink) {
			return Outcome{Rewritten: false}
		}
	}

	if _, err := os.Stat(abs); err != nil {
		return Outcome{Warning: "target does not exist: " + target}
	}

	repoPath := filepath.ToSlash(rel)
	return Outcome{Rewritten: true, URL: spec.BuildURL(repoPath, form)}
}

func withinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasAlwaysLinkExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
