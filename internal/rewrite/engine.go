// Package rewrite implements the rewrite engine, spec.md §4.C: given the
// classified links plus what D/E/G resolved for each, decide the final
// substitution to feed back into markdown.Reserialize.
package rewrite

import (
	"path/filepath"

	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
	"github.com/jcdickinson/mdbook-linkfix/internal/repospec"
)

// FormForRole returns the URL form a rewritten link should use: images
// always resolve to the raw form, plain links to the tree form. Because
// component A already emits an image nested inside a link as two distinct
// Link records — one RoleImage, one RoleLink — the "image-in-link expands
// as tree outer / raw inner" rule in spec.md §4.C falls out of this
// per-record role check without any extra nesting logic here.
func FormForRole(role markdown.Role) repospec.Form {
	if role == markdown.RoleImage {
		return repospec.FormRaw
	}
	return repospec.FormTree
}

// ToRelative converts an absolute repo path (as written in the link, e.g.
// "/Cargo.toml") into a path relative to chapterDir, so that a target
// component D declined to send to an external repo URL (because it lives
// inside the book's own source tree) still resolves under the host
// generator's own relative-link handling instead of being left as a
// path shape mdbook's preprocessor can't follow.
func ToRelative(absRepoPath, chapterDir, repoRoot string) (string, error) {
	full := filepath.Join(repoRoot, absRepoPath)
	rel, err := filepath.Rel(chapterDir, full)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// WithFragment appends a preserved fragment to a rewritten target when the
// fragment is non-empty. The target is not checked for a fragment of its
// own; the book-URL checker attaches its fragment itself and its rewrites
// do not pass through here.
func WithFragment(target, fragment string) string {
	if fragment == "" {
		return target
	}
	return target + "#" + fragment
}

// Substitution is the per-link decision ready for markdown.Reserialize.
type Substitution = markdown.Substitution
