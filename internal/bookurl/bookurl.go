// Package bookurl implements the book-URL checker, spec.md §4.E: it
// validates that a URL under the configured book prefix maps to an extant
// page and, if so, rewrites it to a relative path so downstream link
// handling (the host generator's own preprocessor) keeps working.
package bookurl

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Outcome mirrors pathresolver.Outcome's shape: either a relative-path
// rewrite or a warning, never both.
type Outcome struct {
	Rewritten   bool
	RelativeURL string
	Warning     string
}

// Check implements the candidate-match table of spec.md §4.E. bookURL is
// the full URL as classified (book prefix included); prefix is the
// configured book-url; srcDir is the book's src/ directory on disk;
// chapterDir is the directory of the chapter containing the link, also on
// disk, used to compute the relative path in the rewrite.
func Check(bookURL, prefix, srcDir, chapterDir string) Outcome {
	u, err := url.Parse(bookURL)
	if err != nil {
		return Outcome{Warning: fmt.Sprintf("invalid book URL: %s", bookURL)}
	}

	pagePath := strings.TrimPrefix(bookURL, prefix)
	if pu, err := url.Parse(prefix); err == nil {
		// Prefer comparing decoded paths when both parse as URLs, so a
		// percent-encoded prefix still matches.
		if strings.HasPrefix(u.Path, pu.Path) {
			pagePath = strings.TrimPrefix(u.Path, pu.Path)
		}
	}
	pagePath = strings.TrimPrefix(pagePath, "/")

	trailingSlash := strings.HasSuffix(pagePath, "/")
	trimmed := strings.TrimSuffix(pagePath, ".html")

	var candidates []string
	if trailingSlash {
		base := strings.TrimSuffix(trimmed, "/")
		candidates = []string{
			path.Join(base, "index.md"),
			path.Join(base, "README.md"),
		}
	} else {
		candidates = []string{
			trimmed + ".md",
			path.Join(trimmed, "index.md"),
			path.Join(trimmed, "README.md"),
			trimmed,
		}
	}

	for _, c := range candidates {
		full := filepath.Join(srcDir, filepath.FromSlash(c))
		if _, err := os.Stat(full); err == nil {
			rel, err := filepath.Rel(chapterDir, full)
			if err != nil {
				continue
			}
			relURL := filepath.ToSlash(rel)
			if u.Fragment != "" {
				relURL += "#" + u.Fragment
			}
			return Outcome{Rewritten: true, RelativeURL: relURL}
		}
	}

	return Outcome{Warning: fmt.Sprintf("no page under book source matches %s", bookURL)}
}
