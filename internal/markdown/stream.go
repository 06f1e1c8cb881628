// Package markdown implements the link-rewriting pipeline's Markdown stream
// model (component A): parsing a chapter into a linear, byte-span-aware
// event stream, identifying the link/image constructs eligible for
// rewriting, and re-serializing a chapter with a subset of link targets
// substituted while leaving every other byte untouched.
//
// gomarkdown/markdown is used as a validity oracle (see oracle.go) to cross
// check the constructs this package's own scanner finds, but the scanner
// itself is hand-written: gomarkdown's AST does not carry source byte
// offsets, and the byte-preservation invariant this package must uphold
// requires exact spans a re-parse-and-render round trip cannot guarantee.
package markdown

import "fmt"

// Kind is the syntactic form a link or image was written in.
type Kind int

const (
	KindInline Kind = iota
	KindReference
	KindCollapsed
	KindShortcut
	KindAutolink
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindReference:
		return "reference"
	case KindCollapsed:
		return "collapsed"
	case KindShortcut:
		return "shortcut"
	case KindAutolink:
		return "autolink"
	default:
		return "unknown"
	}
}

// Role distinguishes a plain link from an image.
type Role int

const (
	RoleLink Role = iota
	RoleImage
)

func (r Role) String() string {
	if r == RoleImage {
		return "image"
	}
	return "link"
}

// Span is a byte range [Start, End) within a chapter's source bytes.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) Slice(src []byte) []byte { return src[s.Start:s.End] }

// Contains reports whether s wholly contains o.
func (s Span) Contains(o Span) bool { return s.Start <= o.Start && o.End <= s.End }

// Overlaps reports whether s and o share any bytes without one containing
// the other — this is exactly the shape forbidden by the span-monotonicity
// invariant.
func (s Span) Overlaps(o Span) bool {
	if s.Contains(o) || o.Contains(s) {
		return false
	}
	return s.Start < o.End && o.Start < s.End
}

// ID identifies a Link uniquely within one chapter: by its byte span, which
// spec.md fixes as a link's identity for the lifetime of one invocation.
type ID struct {
	ChapterID string
	Span      Span
}

func (id ID) String() string {
	return fmt.Sprintf("%s@%d:%d", id.ChapterID, id.Span.Start, id.Span.End)
}

// Link is an immutable record of one link or image construct as originally
// written. Rewrites never mutate a Link; they are looked up by ID and
// applied only during re-serialization.
type Link struct {
	ID ID

	Kind Kind
	Role Role

	// Target is the resolved destination text: the literal destination for
	// Inline/Autolink links, or the referenced definition's destination for
	// Reference/Collapsed/Shortcut links whose label was found in the
	// chapter's definition table. If the label was not found, Target is the
	// label itself per spec.md's "degrade to shortcut-as-inline" rule.
	Target string
	// TargetSpan is the exact byte range containing Target as written,
	// wherever that text physically lives (the inline destination, or the
	// destination half of the definition line for reference-style links).
	// It is nil when Target was synthesized (the degrade case) since there
	// is no destination text to overwrite in place.
	TargetSpan *Span

	Title      string
	TitleSpan  *Span

	// Label is set only for Reference, Collapsed and Shortcut links: the
	// text between the second bracket pair (or, for Shortcut, the sole
	// bracket pair).
	Label string

	// Text is the literal source text of the link's visible label/alt text,
	// exactly as written; Reserialize reuses it as the visible text when a
	// rewritten autolink is re-emitted as an inline link.
	Text string
}

// RefDef is a reference-style link definition: "[label]: dest \"title\"".
type RefDef struct {
	Label       string
	NormLabel   string
	Destination string
	Title       string
	DestSpan    Span
	TitleSpan   *Span
	LineSpan    Span
}

// Chapter is the parsed form of one chapter's Markdown source.
type Chapter struct {
	ID     string
	Source []byte
	Links  []Link
	Defs   map[string]RefDef // keyed by NormalizeLabel(label)
}

// LookupLink returns the Link with the given ID, if present.
func (c *Chapter) LookupLink(id ID) (*Link, bool) {
	for i := range c.Links {
		if c.Links[i].ID == id {
			return &c.Links[i], true
		}
	}
	return nil, false
}
