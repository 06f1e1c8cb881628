// Package classify decides what kind of thing a link target string is
// before any resolver touches it: an item name, a filesystem path (relative
// or repo-absolute), a URL into the book itself, a URL that already points
// at the discovered repository, or something external that is left alone.
package classify

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the outcome of classifying one link target.
type Kind int

const (
	KindExternal Kind = iota
	KindItemName
	KindRelativePath
	KindAbsoluteRepoPath
	KindBookURL
	KindRepoCanonicalURL
)

func (k Kind) String() string {
	switch k {
	case KindItemName:
		return "item-name"
	case KindRelativePath:
		return "relative-path"
	case KindAbsoluteRepoPath:
		return "absolute-repo-path"
	case KindBookURL:
		return "book-url"
	case KindRepoCanonicalURL:
		return "repo-canonical-url"
	default:
		return "external"
	}
}

// Result carries the decision plus whatever pieces downstream resolvers
// need so they don't have to re-parse the target.
type Result struct {
	Kind Kind

	// Path is the target with any fragment/query stripped, for the
	// path-shaped kinds (relative, absolute-repo, book URL).
	Path string

	// Fragment is the `#...` suffix, if any, verbatim (without the `#`).
	Fragment string

	// HasQuery is true when the target carried a `?...` query string,
	// which disqualifies path classification per the tie-break rules.
	HasQuery bool
}

// ItemNameGrammar reports whether s matches the item-name grammar:
// `path :: segment ( "::" segment )*` with an optional leading
// `<receiver as Trait>::` and an optional trailing `!` or `()`, where each
// segment is an identifier optionally followed by `::<...>` or `<...>`
// generic arguments. It is intentionally permissive about generic-argument
// contents (any balanced `<...>` run) since disambiguating generics from
// comparison operators is the language server's job, not the classifier's.
func ItemNameGrammar(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	// Disambiguator prefixes (mod@, macro@, ...) are legal item-name text;
	// strip for the structural check only.
	if i := strings.IndexByte(s, '@'); i > 0 && isIdent(s[:i]) {
		s = s[i+1:]
	}

	if strings.HasPrefix(s, "<") {
		end := matchAngle(s, 0)
		if end < 0 {
			return false
		}
		rest := s[end+1:]
		if !strings.HasPrefix(rest, "::") {
			return false
		}
		s = rest[2:]
	}

	s = strings.TrimSuffix(s, "!")
	s = strings.TrimSuffix(s, "()")
	if s == "" {
		return false
	}

	segs := splitSegments(s)
	if len(segs) == 0 {
		return false
	}
	for _, seg := range segs {
		if !validSegment(seg) {
			return false
		}
	}
	return true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func matchAngle(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitSegments splits on "::" that is not inside a "<...>" generic-args run.
func splitSegments(s string) []string {
	var segs []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 && i+1 < len(s) && s[i+1] == ':' {
				if i+2 < len(s) && s[i+2] == '<' {
					// "::<...>" is a turbofish on the current segment.
					i++
					continue
				}
				segs = append(segs, s[last:i])
				i++
				last = i + 1
			}
		}
	}
	segs = append(segs, s[last:])
	return segs
}

func validSegment(seg string) bool {
	if seg == "" {
		return false
	}
	name := seg
	if i := strings.IndexAny(seg, "<"); i >= 0 {
		if end := matchAngle(seg, i); end != len(seg)-1 {
			return false
		}
		name = seg[:i]
	}
	name = strings.TrimSuffix(name, "::")
	return isIdent(name)
}

// Classify decides the kind of a link target as written. chapterDir is used for
// the "bare filename that exists relative to the chapter" exception, and
// bookPrefix/repoHost are the caller's configured book URL prefix and
// RepoSpec host (both may be empty when not configured for this mode).
func Classify(target string, chapterDir string, bookPrefix string, repoHost string) Result {
	body, fragment, hasQuery := splitTargetParts(target)

	if strings.HasPrefix(body, "//") {
		return Result{Kind: KindExternal, Fragment: fragment, HasQuery: hasQuery}
	}
	if strings.HasPrefix(body, "mailto:") || strings.HasPrefix(body, "data:") {
		return Result{Kind: KindExternal, Fragment: fragment, HasQuery: hasQuery}
	}
	if strings.HasPrefix(body, "#") {
		return Result{Kind: KindExternal, Fragment: fragment, HasQuery: hasQuery}
	}

	// "tokio::main" parses as scheme "tokio" with opaque ":main"; a path
	// separator right after the scheme is an item path, not a URL.
	if u, err := url.Parse(body); err == nil && u.IsAbs() && !strings.HasPrefix(u.Opaque, ":") {
		if bookPrefix != "" && strings.HasPrefix(body, bookPrefix) {
			return Result{Kind: KindBookURL, Path: body, Fragment: fragment, HasQuery: hasQuery}
		}
		if repoHost != "" && u.Host == repoHost && isHeadPath(u.Path) {
			return Result{Kind: KindRepoCanonicalURL, Path: body, Fragment: fragment, HasQuery: hasQuery}
		}
		return Result{Kind: KindExternal, Fragment: fragment, HasQuery: hasQuery}
	}

	if hasQuery {
		return Result{Kind: KindExternal, Fragment: fragment, HasQuery: hasQuery}
	}

	if strings.HasPrefix(body, "/") {
		return Result{Kind: KindAbsoluteRepoPath, Path: body, Fragment: fragment}
	}

	isPathLike := strings.HasPrefix(body, "./") || strings.HasPrefix(body, "../")
	if !isPathLike && ItemNameGrammar(body) && !bareFileExists(body, chapterDir) {
		return Result{Kind: KindItemName, Path: body, Fragment: fragment}
	}

	if decoded, err := url.PathUnescape(body); err == nil {
		if isPathLike || pathResolvesToFile(decoded, chapterDir) {
			return Result{Kind: KindRelativePath, Path: decoded, Fragment: fragment}
		}
	}

	return Result{Kind: KindExternal, Fragment: fragment, HasQuery: hasQuery}
}

func splitTargetParts(target string) (body, fragment string, hasQuery bool) {
	body = target
	if i := strings.IndexByte(body, '#'); i >= 0 {
		fragment = body[i+1:]
		body = body[:i]
	}
	if strings.Contains(body, "?") {
		hasQuery = true
	}
	return body, fragment, hasQuery
}

func isHeadPath(p string) bool {
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg == "HEAD" {
			return true
		}
	}
	return false
}

func bareFileExists(body, chapterDir string) bool {
	if strings.ContainsAny(body, "/\\") {
		return false
	}
	_, err := os.Stat(filepath.Join(chapterDir, body))
	return err == nil
}

func pathResolvesToFile(decoded, chapterDir string) bool {
	if decoded == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(chapterDir, decoded))
	return err == nil
}
