// Package items implements the item collector, spec.md §4.F: it lifts
// item-name links into deduplicated Item requests and assembles the Probe
// document the language server client feeds to the language server.
package items

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
)

// Marker distinguishes the trailing syntax written after an item's path,
// which changes which namespace the language server resolves it in.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerCall        // trailing "()"
	MarkerMacro       // trailing "!"
)

// Item is one deduplicated item-name request, grounded on rustdoc-link's
// Item::parse: a normalized key, the exact written form (markers intact),
// and every link across every chapter that shares this text.
type Item struct {
	// Normalized is the dedup key: disambiguator prefix stripped, generic
	// whitespace collapsed.
	Normalized string

	// Written is the original text with disambiguator prefix stripped but
	// markers preserved exactly.
	Written string

	Marker Marker

	// ProbeOffset is the byte offset, within the Probe document, of the
	// first token after the path separator of the item's final segment —
	// the position used for the "open docs" request. Set by BuildProbe.
	ProbeOffset int

	// Links are every occurrence of this normalized text across all
	// chapters, insertion-ordered by first occurrence.
	Links []markdown.ID
}

// Collector accumulates item-name links across all chapters before the
// LSP client is invoked once for the whole book.
type Collector struct {
	order []string
	byKey map[string]*Item
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{byKey: make(map[string]*Item)}
}

// Add records one item-name link occurrence, deduplicating by normalized
// form; insertion order of first occurrence is preserved.
func (c *Collector) Add(id markdown.ID, text string) {
	written, marker := stripMarker(stripDisambiguator(text))
	key := normalize(written)

	it, ok := c.byKey[key]
	if !ok {
		it = &Item{Normalized: key, Written: written, Marker: marker}
		c.byKey[key] = it
		c.order = append(c.order, key)
	}
	it.Links = append(it.Links, id)
}

// Items returns the deduplicated items in insertion order.
func (c *Collector) Items() []*Item {
	out := make([]*Item, len(c.order))
	for i, k := range c.order {
		out[i] = c.byKey[k]
	}
	return out
}

// stripDisambiguator removes a leading "mod@"/"macro@"/... prefix, which
// changes which namespace a shortcut link resolves in but is never part of
// the path text the language server is given.
func stripDisambiguator(s string) string {
	if i := strings.IndexByte(s, '@'); i > 0 {
		prefix := s[:i]
		if isIdentPrefix(prefix) {
			return s[i+1:]
		}
	}
	return s
}

func isIdentPrefix(s string) bool {
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return s != ""
}

func stripMarker(s string) (string, Marker) {
	if strings.HasSuffix(s, "!") {
		return s, MarkerMacro
	}
	if strings.HasSuffix(s, "()") {
		return s, MarkerCall
	}
	return s, MarkerNone
}

// normalize folds whitespace inside generic-argument angle brackets (dropped
// right after `<` and right before `>`, other runs collapsed to one space) so
// `Vec< u8 >` and `Vec<u8>` dedupe to the same item, while leaving markers
// untouched since "!" and "()" change namespace and must not be folded
// together.
func normalize(s string) string {
	var b strings.Builder
	depth := 0
	lastSpace := false
	for _, r := range s {
		switch {
		case r == '<':
			depth++
			lastSpace = false
			b.WriteRune(r)
		case r == '>':
			if depth > 0 {
				depth--
			}
			lastSpace = false
			b.WriteRune(r)
		case depth > 0 && (r == ' ' || r == '\t'):
			// Held back until the next token, so it is dropped before '>'.
			lastSpace = !strings.HasSuffix(b.String(), "<")
		default:
			if lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// finalSegmentColumn returns the byte offset, within name, of the first
// token of the final "::"-separated path segment — mirrors item.rs's
// `column` tracking during path re-emission.
func finalSegmentColumn(name string) int {
	depth := 0
	last := 0
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 && i+1 < len(name) && name[i+1] == ':' {
				i++
				last = i + 1
			}
		}
	}
	return last
}

// Probe is the synthesized source fragment. Each item's position within it
// is recorded on the Item itself (ProbeOffset), not here.
type Probe struct {
	Source string
}

// BuildProbe assembles the probe document body: a fresh unique identifier
// names the enclosing scope, then one statement per item, and records
// each item's ProbeOffset in place.
//
// Statement shapes, grounded on rustdoc-link's Item::parse:
//   - plain path:     "let _: {name} = {name};"  (offset into the first {name})
//   - function/call:  "{name}();"
//   - macro:          "{name}!();"
func BuildProbe(its []*Item) Probe {
	scope := "probe_" + strings.ReplaceAll(uuid.NewString(), "-", "_")

	var b strings.Builder
	fmt.Fprintf(&b, "mod %s {\n", scope)

	for _, it := range its {
		lineStart := b.Len()
		var stmt string
		var offsetInStmt int

		switch it.Marker {
		case MarkerCall:
			stmt = it.Written + ";\n"
			offsetInStmt = finalSegmentColumn(it.Written)
		case MarkerMacro:
			stmt = it.Written + "();\n"
			offsetInStmt = finalSegmentColumn(strings.TrimSuffix(it.Written, "!"))
		default:
			pattern := "let _: "
			assign := " = "
			stmt = pattern + it.Written + assign + it.Written + ";\n"
			offsetInStmt = len(pattern) + finalSegmentColumn(it.Written)
		}

		b.WriteString(stmt)
		it.ProbeOffset = lineStart + offsetInStmt
	}

	b.WriteString("}\n")
	return Probe{Source: b.String()}
}
