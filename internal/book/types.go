// Package book models an mdbook book tree: an ordered forest of sections
// whose leaves are chapters carrying Markdown source and a stable
// identifier.
package book

import "encoding/json"

// Chapter is a single leaf of the book tree.
//
// Name and Path come from mdbook verbatim; Path is used as the chapter's
// stable identifier for the lifetime of one preprocessor invocation. No
// rendered-URL field is modelled; a JSON key not listed below is dropped
// when the chapter is re-encoded.
type Chapter struct {
	Name        string          `json:"name"`
	Content     string          `json:"content"`
	Number      json.RawMessage `json:"number,omitempty"`
	Path        *string         `json:"path"`
	SourcePath  *string         `json:"source_path,omitempty"`
	ParentNames []string        `json:"parent_names,omitempty"`
	SubItems    []Item          `json:"sub_items"`
}

// Item is a node of the book tree: either a Chapter, a PartTitle, or a
// Separator. mdbook represents this as a JSON externally-tagged enum. Each
// variant is decoded into the typed fields below and re-encoded from them;
// no raw payload is kept, and an unrecognized variant decodes to an empty
// Item that re-encodes as null.
type Item struct {
	Chapter     *Chapter `json:"-"`
	PartTitle   *string  `json:"-"`
	IsSeparator bool     `json:"-"`
}

func (it Item) MarshalJSON() ([]byte, error) {
	switch {
	case it.Chapter != nil:
		return json.Marshal(map[string]*Chapter{"Chapter": it.Chapter})
	case it.PartTitle != nil:
		return json.Marshal(map[string]string{"PartTitle": *it.PartTitle})
	case it.IsSeparator:
		return json.Marshal("Separator")
	default:
		return json.Marshal(nil)
	}
}

func (it *Item) UnmarshalJSON(data []byte) error {
	if string(data) == `"Separator"` {
		it.IsSeparator = true
		return nil
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if raw, ok := tagged["Chapter"]; ok {
		var ch Chapter
		if err := json.Unmarshal(raw, &ch); err != nil {
			return err
		}
		it.Chapter = &ch
		return nil
	}
	if raw, ok := tagged["PartTitle"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		it.PartTitle = &s
		return nil
	}
	return nil
}

// Book is the top-level structure mdbook hands to preprocessors: a flat
// list of top-level Items (which recursively contain sub-chapters).
type Book struct {
	Sections []Item `json:"sections"`
}

// Walk visits every chapter in the book in traversal order (depth-first,
// parents before children), matching mdbook's own "natural traversal"
// ordering used to make rewrite ordering across chapters stable.
func (b *Book) Walk(fn func(ch *Chapter)) {
	var walkItems func([]Item)
	walkItems = func(items []Item) {
		for i := range items {
			if items[i].Chapter == nil {
				continue
			}
			ch := items[i].Chapter
			fn(ch)
			walkItems(ch.SubItems)
		}
	}
	walkItems(b.Sections)
}

// ID returns the chapter's stable identifier: its source path, or its
// display name if it has no path (mdbook uses this for draft chapters).
func (c *Chapter) ID() string {
	if c.Path != nil && *c.Path != "" {
		return *c.Path
	}
	return c.Name
}
