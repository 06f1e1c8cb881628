package markdown

import (
	"fmt"
	"sort"
)

// Substitution is what the rewrite engine (component C) wants written back
// into a chapter for one Link identity: a new destination and, optionally,
// a new title.
type Substitution struct {
	Target string
	Title  *string
}

// Reserialize rewrites chapter source with the given per-link substitutions
// applied, preserving every byte outside a rewritten link's target/title
// spans exactly. Passing a Link with a nil TargetSpan (the reference-style
// degrade case) rewrites its definition destination in place if one exists,
// otherwise the link is left untouched — there is nowhere byte-precise to
// splice a fabricated destination without inventing a definition line the
// source never had.
//
// An autolink (`<https://...>`) is the one construct whose destination
// cannot be swapped in place: `TargetSpan` is the text inside the angle
// brackets, and splicing a relative path there would produce `<links.md>`,
// which CommonMark reads as literal text, not a link. Grounded on the
// original implementation (link_forever/mod.rs), a rewritten autolink is
// instead re-emitted as a whole inline link, replacing the entire ID.Span:
// `[<original text>](<new target>)`.
//
// Edits are sorted by start offset and spliced in one forward pass that
// copies from the original source, so every recorded span is applied
// against the original bytes and no edit shifts another's offsets.
func Reserialize(c *Chapter, rewrites map[ID]Substitution) ([]byte, error) {
	if len(rewrites) == 0 {
		return c.Source, nil
	}

	type edit struct {
		span  Span
		value []byte
	}
	var edits []edit

	for id, sub := range rewrites {
		lnk, ok := c.LookupLink(id)
		if !ok {
			return nil, fmt.Errorf("rewrite for unknown link %s", id)
		}
		if lnk.TargetSpan == nil {
			// Degraded reference-style link with no physical destination
			// text to overwrite; nothing to splice.
			continue
		}
		if lnk.Kind == KindAutolink {
			inline := "[" + lnk.Text + "](" + sub.Target + ")"
			edits = append(edits, edit{span: lnk.ID.Span, value: []byte(inline)})
			continue
		}
		edits = append(edits, edit{span: *lnk.TargetSpan, value: []byte(sub.Target)})
		if sub.Title != nil {
			if lnk.TitleSpan != nil {
				edits = append(edits, edit{span: *lnk.TitleSpan, value: []byte(*sub.Title)})
			}
		}
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].span.Start < edits[j].span.Start })
	for i := 1; i < len(edits); i++ {
		if edits[i].span.Start < edits[i-1].span.End {
			return nil, fmt.Errorf("overlapping rewrite spans %v and %v", edits[i-1].span, edits[i].span)
		}
	}

	out := make([]byte, 0, len(c.Source))
	cursor := 0
	for _, e := range edits {
		out = append(out, c.Source[cursor:e.span.Start]...)
		out = append(out, e.value...)
		cursor = e.span.End
	}
	out = append(out, c.Source[cursor:]...)

	return out, nil
}

// Validate checks the two invariants spec.md calls out for the parsed
// stream itself: every span lies within the chapter's bytes, and no two
// spans overlap without one nesting inside the other (an image inside a
// link is the only legal nesting).
func Validate(c *Chapter) error {
	for _, l := range c.Links {
		if l.ID.Span.Start < 0 || l.ID.Span.End > len(c.Source) || l.ID.Span.Start >= l.ID.Span.End {
			return fmt.Errorf("link %s has invalid span", l.ID)
		}
	}
	for i := range c.Links {
		for j := i + 1; j < len(c.Links); j++ {
			a, b := c.Links[i].ID.Span, c.Links[j].ID.Span
			if a.Overlaps(b) {
				return fmt.Errorf("overlapping spans: %s and %s", c.Links[i].ID, c.Links[j].ID)
			}
		}
	}
	return nil
}
