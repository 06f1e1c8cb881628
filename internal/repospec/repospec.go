// Package repospec discovers the RepoSpec spec.md §3 describes: the
// repository's absolute root on disk, the ref to embed in generated URLs
// (a tag name if HEAD is tagged, else the full commit hash), and a
// two-form URL builder (tree vs raw) over the caller's configured
// `{ref}`/`{path}` template.
//
// Discovery shells out to the system git binary, the same way the teacher
// spawns subprocesses for anything it doesn't want to reimplement — the
// pack carries no git-plumbing library to reuse here instead.
package repospec

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
)

// Spec is a resolved RepoSpec: everything the path resolver and rewrite
// engine need to turn a repo-relative path into a URL.
type Spec struct {
	// Root is the absolute path of the repository's working tree.
	Root string

	// Ref is the tag name if HEAD is tagged, else the full commit hash.
	Ref string

	// treeTemplate and rawTemplate are the caller-configured template with
	// {ref} substituted; {path} is left for BuildURL to fill in per link.
	treeTemplate string
	rawTemplate  string
}

// Form selects which of the two URL shapes a source host exposes for the
// same file.
type Form int

const (
	// FormTree renders the file as a browsable page.
	FormTree Form = iota
	// FormRaw serves the file's raw bytes.
	FormRaw
)

func (f Form) String() string {
	if f == FormRaw {
		return "raw"
	}
	return "tree"
}

// New builds a Spec directly from an already-resolved root, ref, and URL
// template, bypassing git discovery. Exposed for callers (and tests) that
// already know the repository's coordinates.
func New(root, ref, template string) *Spec {
	return &Spec{
		Root:         filepath.Clean(root),
		Ref:          ref,
		treeTemplate: strings.Replace(template, "{ref}", ref, 1),
		rawTemplate:  strings.Replace(deriveRawTemplate(template), "{ref}", ref, 1),
	}
}

// Discover runs `git rev-parse --show-toplevel`, then determines whether
// HEAD is tagged (`git describe --tags --exact-match`) or falls back to
// the full commit hash (`git rev-parse HEAD`). template is the
// caller-configured `repo-url-template`, expected to contain both `{ref}`
// and `{path}` placeholders; the tree form is the template verbatim, the
// raw form is derived by substituting the well-known `/tree/` segment for
// `/raw/` the way GitHub, GitLab, and most forges structure these URLs.
func Discover(ctx context.Context, startDir, template string) (*Spec, error) {
	root, err := runGit(ctx, startDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("discovering repo root: %w", err)
	}
	root = filepath.Clean(root)

	ref, err := resolveRef(ctx, startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving repo ref: %w", err)
	}

	treeTemplate := strings.Replace(template, "{ref}", ref, 1)
	rawTemplate := strings.Replace(deriveRawTemplate(template), "{ref}", ref, 1)

	return &Spec{
		Root:         root,
		Ref:          ref,
		treeTemplate: treeTemplate,
		rawTemplate:  rawTemplate,
	}, nil
}

func resolveRef(ctx context.Context, dir string) (string, error) {
	if tag, err := runGit(ctx, dir, "describe", "--tags", "--exact-match"); err == nil && tag != "" {
		return tag, nil
	}
	hash, err := runGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return hash, nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// deriveRawTemplate substitutes the canonical "/tree/" URL segment for
// "/raw/", which is how GitHub- and GitLab-shaped templates distinguish
// the two forms. Templates that don't contain "/tree/" are returned
// unmodified — tree and raw collapse to the same URL, which is a
// configuration choice, not an error here.
func deriveRawTemplate(template string) string {
	return strings.Replace(template, "/tree/", "/raw/", 1)
}

// BuildURL renders the URL for repoPath (forward-slash, percent-encoded
// per segment) in the given form.
func (s *Spec) BuildURL(repoPath string, form Form) string {
	encoded := encodeRepoPath(repoPath)
	tmpl := s.treeTemplate
	if form == FormRaw {
		tmpl = s.rawTemplate
	}
	return strings.Replace(tmpl, "{path}", encoded, 1)
}

// Host returns the URL host of the tree-form template, used by the
// classifier to recognize URLs that already point at this repository.
func (s *Spec) Host() string {
	u, err := url.Parse(s.treeTemplate)
	if err != nil {
		return ""
	}
	return u.Host
}

func encodeRepoPath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
