package markdown

import (
	"strings"
)

// Scan parses chapter source into a Chapter: its reference-definition table
// and the ordered list of link/image constructs it contains, each carrying
// its exact byte span. Scan never allocates a new backing array for src; all
// spans index directly into it, which is what lets Reserialize copy
// untouched regions byte-for-byte.
func Scan(chapterID string, src []byte) *Chapter {
	defs, defSpans := scanDefinitions(src)

	c := &Chapter{ID: chapterID, Source: src, Defs: defs}

	skip := newSkipSet(defSpans)

	i := 0
	for i < len(src) {
		if atLineStart(src, i) {
			if end, ok := tryFencedBlock(src, i); ok {
				i = end
				continue
			}
			if sp, ok := skip.at(i); ok {
				i = sp.End
				continue
			}
		}

		switch b := src[i]; {
		case b == '\\' && i+1 < len(src):
			i += 2
		case b == '`':
			i = skipCodeSpan(src, i)
		case b == '<':
			if lnk, end, ok := tryAutolink(src, i); ok {
				c.Links = append(c.Links, lnk)
				i = end
			} else {
				i++
			}
		case b == '!' && i+1 < len(src) && src[i+1] == '[':
			if lnk, nested, end, ok := tryBracketed(src, i, i+1, RoleImage, defs); ok {
				c.Links = append(c.Links, lnk)
				c.Links = append(c.Links, nested...)
				i = end
			} else {
				i++
			}
		case b == '[':
			if lnk, nested, end, ok := tryBracketed(src, i, i, RoleLink, defs); ok {
				c.Links = append(c.Links, lnk)
				c.Links = append(c.Links, nested...)
				i = end
			} else {
				i++
			}
		default:
			i++
		}
	}

	for i := range c.Links {
		c.Links[i].ID.ChapterID = chapterID
	}

	return c
}

// --- reference definitions -------------------------------------------------

func scanDefinitions(src []byte) (map[string]RefDef, []Span) {
	defs := make(map[string]RefDef)
	var spans []Span

	i := 0
	for i < len(src) {
		lineEnd := indexLineEnd(src, i)
		if def, ok := tryParseDefLine(src, i, lineEnd); ok {
			if _, exists := defs[def.NormLabel]; !exists {
				defs[def.NormLabel] = def
			}
			spans = append(spans, def.LineSpan)
		}
		i = nextLineStart(src, lineEnd)
	}

	return defs, spans
}

func tryParseDefLine(src []byte, lineStart, lineEnd int) (RefDef, bool) {
	p := lineStart
	for p < lineEnd && src[p] == ' ' && p-lineStart < 3 {
		p++
	}
	if p >= lineEnd || src[p] != '[' {
		return RefDef{}, false
	}
	bracketStart := p
	p++
	for p < lineEnd {
		if src[p] == '\\' && p+1 < lineEnd {
			p += 2
			continue
		}
		if src[p] == ']' || src[p] == '[' {
			break
		}
		p++
	}
	if p >= lineEnd || src[p] != ']' {
		return RefDef{}, false
	}
	labelEnd := p
	p++
	if p >= lineEnd || src[p] != ':' {
		return RefDef{}, false
	}
	p++
	for p < lineEnd && (src[p] == ' ' || src[p] == '\t') {
		p++
	}
	if p >= lineEnd {
		return RefDef{}, false
	}

	var dest string
	var destSpan Span
	if src[p] == '<' {
		q := p + 1
		for q < lineEnd && src[q] != '>' {
			q++
		}
		if q >= lineEnd {
			return RefDef{}, false
		}
		dest = string(src[p+1 : q])
		destSpan = Span{p + 1, q}
		p = q + 1
	} else {
		q := p
		for q < lineEnd && src[q] != ' ' && src[q] != '\t' {
			q++
		}
		dest = string(src[p:q])
		destSpan = Span{p, q}
		p = q
	}

	for p < lineEnd && (src[p] == ' ' || src[p] == '\t') {
		p++
	}

	var title string
	var titleSpan *Span
	if p < lineEnd && (src[p] == '"' || src[p] == '\'' || src[p] == '(') {
		closeCh := byte('"')
		switch src[p] {
		case '\'':
			closeCh = '\''
		case '(':
			closeCh = ')'
		}
		q := p + 1
		for q < lineEnd {
			if src[q] == '\\' && q+1 < lineEnd {
				q += 2
				continue
			}
			if src[q] == closeCh {
				break
			}
			q++
		}
		if q < lineEnd {
			title = string(src[p+1 : q])
			ts := Span{p + 1, q}
			titleSpan = &ts
			p = q + 1
		}
	}

	for p < lineEnd && (src[p] == ' ' || src[p] == '\t') {
		p++
	}
	if p != lineEnd {
		return RefDef{}, false
	}

	label := string(src[bracketStart+1 : labelEnd])
	return RefDef{
		Label:       label,
		NormLabel:   NormalizeLabel(label),
		Destination: dest,
		Title:       title,
		DestSpan:    destSpan,
		TitleSpan:   titleSpan,
		LineSpan:    Span{lineStart, lineEnd},
	}, true
}

// NormalizeLabel implements CommonMark's link-label normalization closely
// enough for our purposes: collapse internal whitespace, trim, and
// case-fold.
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// --- bracketed constructs (links / images) ---------------------------------

func tryBracketed(src []byte, start, bracketStart int, role Role, defs map[string]RefDef) (Link, []Link, int, bool) {
	if bracketStart >= len(src) || src[bracketStart] != '[' {
		return Link{}, nil, 0, false
	}

	textStart := bracketStart + 1
	closeIdx, ok := findMatchingBracket(src, textStart)
	if !ok {
		return Link{}, nil, 0, false
	}
	text := string(src[textStart:closeIdx])
	// Images can't legally nest inside CommonMark link text either, but the
	// only nesting spec.md's invariants call out ("images inside links") is
	// exactly this shape, so we still surface it as its own Link identity.
	nested := scanNestedImages(src, textStart, closeIdx, defs)

	j := closeIdx + 1

	// Inline form.
	if j < len(src) && src[j] == '(' {
		if dest, destSpan, title, titleSpan, end, ok := parseInlineTail(src, j); ok {
			return Link{
				ID:         ID{Span: Span{start, end}},
				Kind:       KindInline,
				Role:       role,
				Target:     dest,
				TargetSpan: destSpan,
				Title:      title,
				TitleSpan:  titleSpan,
				Text:       text,
			}, nested, end, true
		}
	}

	// Collapsed / reference form.
	if j < len(src) && src[j] == '[' {
		if j+1 < len(src) && src[j+1] == ']' {
			return buildLabeledLink(src, start, j+2, KindCollapsed, role, text, text, defs), nested, j + 2, true
		}
		labelStart := j + 1
		labelClose, ok := findMatchingBracket(src, labelStart)
		if ok {
			label := string(src[labelStart:labelClose])
			if label == "" {
				label = text
			}
			return buildLabeledLink(src, start, labelClose+1, KindReference, role, text, label, defs), nested, labelClose + 1, true
		}
	}

	// Shortcut form: bare [label] or ![label] with nothing usable following.
	return buildLabeledLink(src, start, closeIdx+1, KindShortcut, role, text, text, defs), nested, closeIdx + 1, true
}

// scanNestedImages finds image constructs written inside a link's label
// text (the "[![alt](img)](page)" shape) so they get their own Link
// identity nested within the outer link's span.
func scanNestedImages(src []byte, from, to int, defs map[string]RefDef) []Link {
	var out []Link
	i := from
	for i < to {
		switch {
		case src[i] == '\\' && i+1 < to:
			i += 2
		case src[i] == '`':
			end := skipCodeSpan(src, i)
			if end > to {
				end = to
			}
			i = end
		case src[i] == '!' && i+1 < to && src[i+1] == '[':
			if lnk, moreNested, end, ok := tryBracketed(src, i, i+1, RoleImage, defs); ok && end <= to {
				out = append(out, lnk)
				out = append(out, moreNested...)
				i = end
			} else {
				i++
			}
		default:
			i++
		}
	}
	return out
}

func buildLabeledLink(src []byte, start, end int, kind Kind, role Role, text, label string, defs map[string]RefDef) Link {
	lnk := Link{
		ID:    ID{Span: Span{start, end}},
		Kind:  kind,
		Role:  role,
		Label: label,
		Text:  text,
	}
	if def, found := defs[NormalizeLabel(label)]; found {
		lnk.Target = def.Destination
		ds := def.DestSpan
		lnk.TargetSpan = &ds
		lnk.Title = def.Title
		lnk.TitleSpan = def.TitleSpan
	} else {
		// spec.md: "links referencing a missing label degrade to
		// shortcut-as-inline (target = label)".
		lnk.Target = label
		lnk.TargetSpan = nil
	}
	return lnk
}

// findMatchingBracket finds the index of the ']' matching the '[' whose
// contents start at from, honoring escapes, nested brackets and inline code
// spans within the label/alt text.
func findMatchingBracket(src []byte, from int) (int, bool) {
	depth := 1
	i := from
	for i < len(src) {
		switch src[i] {
		case '\\':
			if i+1 < len(src) {
				i += 2
				continue
			}
			i++
		case '`':
			i = skipCodeSpan(src, i)
		case '[':
			depth++
			i++
		case ']':
			depth--
			i++
			if depth == 0 {
				return i - 1, true
			}
		case '\n':
			// Labels/alt text may not span more than a couple of blank
			// lines' worth of content; bail out on a paragraph break.
			if i+1 < len(src) && src[i+1] == '\n' {
				return 0, false
			}
			i++
		default:
			i++
		}
	}
	return 0, false
}

// parseInlineTail parses the "(dest \"title\")" tail of an inline link,
// with src[open] == '('. Returns the byte index just past the closing ')'.
func parseInlineTail(src []byte, open int) (dest string, destSpan *Span, title string, titleSpan *Span, end int, ok bool) {
	p := open + 1
	p = skipInlineWhitespace(src, p)

	if p < len(src) && src[p] == ')' {
		return "", nil, "", nil, p + 1, true
	}

	var dSpan Span
	if p < len(src) && src[p] == '<' {
		q := p + 1
		for q < len(src) && src[q] != '>' && src[q] != '\n' {
			if src[q] == '\\' && q+1 < len(src) {
				q += 2
				continue
			}
			q++
		}
		if q >= len(src) || src[q] != '>' {
			return "", nil, "", nil, 0, false
		}
		dest = string(src[p+1 : q])
		dSpan = Span{p + 1, q}
		p = q + 1
	} else {
		q := p
		parenDepth := 0
		for q < len(src) {
			c := src[q]
			if c == '\\' && q+1 < len(src) {
				q += 2
				continue
			}
			if c == '(' {
				parenDepth++
				q++
				continue
			}
			if c == ')' {
				if parenDepth == 0 {
					break
				}
				parenDepth--
				q++
				continue
			}
			if isASCIISpace(c) {
				break
			}
			q++
		}
		dest = string(src[p:q])
		dSpan = Span{p, q}
		p = q
	}
	destSpan = &dSpan

	beforeTitle := p
	p = skipInlineWhitespace(src, p)

	if p < len(src) && (src[p] == '"' || src[p] == '\'' || src[p] == '(') {
		closeCh := byte('"')
		switch src[p] {
		case '\'':
			closeCh = '\''
		case '(':
			closeCh = ')'
		}
		q := p + 1
		for q < len(src) {
			if src[q] == '\\' && q+1 < len(src) {
				q += 2
				continue
			}
			if src[q] == closeCh {
				break
			}
			q++
		}
		if q < len(src) {
			title = string(src[p+1 : q])
			ts := Span{p + 1, q}
			titleSpan = &ts
			p = q + 1
		} else {
			p = beforeTitle
		}
	} else {
		p = beforeTitle
	}

	p = skipInlineWhitespace(src, p)
	if p >= len(src) || src[p] != ')' {
		return "", nil, "", nil, 0, false
	}
	return dest, destSpan, title, titleSpan, p + 1, true
}

func skipInlineWhitespace(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n') {
		i++
	}
	return i
}

// --- autolinks ---------------------------------------------------------

func tryAutolink(src []byte, i int) (Link, int, bool) {
	j := i + 1
	schemeStart := j
	if j >= len(src) || !isASCIILetter(src[j]) {
		return Link{}, 0, false
	}
	j++
	for j < len(src) && j-schemeStart < 32 && isSchemeChar(src[j]) {
		j++
	}
	if j-schemeStart < 2 || j >= len(src) || src[j] != ':' {
		return Link{}, 0, false
	}
	j++
	contentStart := j
	for j < len(src) {
		c := src[j]
		if c == '>' {
			break
		}
		if c == '<' || c <= 0x20 || c == 0x7f {
			return Link{}, 0, false
		}
		j++
	}
	if j >= len(src) || j == contentStart {
		return Link{}, 0, false
	}
	dest := string(src[i+1 : j])
	dSpan := Span{i + 1, j}
	return Link{
		ID:         ID{Span: Span{i, j + 1}},
		Kind:       KindAutolink,
		Role:       RoleLink,
		Target:     dest,
		TargetSpan: &dSpan,
		Text:       dest,
	}, j + 1, true
}

// --- code spans and fenced code blocks -------------------------------------

func skipCodeSpan(src []byte, i int) int {
	openLen := 0
	for i+openLen < len(src) && src[i+openLen] == '`' {
		openLen++
	}
	j := i + openLen
	for j < len(src) {
		if src[j] != '`' {
			j++
			continue
		}
		runStart := j
		for j < len(src) && src[j] == '`' {
			j++
		}
		if j-runStart == openLen {
			return j
		}
	}
	return i + openLen
}

func atLineStart(src []byte, i int) bool {
	return i == 0 || src[i-1] == '\n'
}

func indexLineEnd(src []byte, from int) int {
	for i := from; i < len(src); i++ {
		if src[i] == '\n' {
			return i
		}
	}
	return len(src)
}

func nextLineStart(src []byte, lineEnd int) int {
	if lineEnd >= len(src) {
		return len(src)
	}
	return lineEnd + 1
}

func tryFencedBlock(src []byte, lineStart int) (int, bool) {
	p := lineStart
	indent := 0
	for p < len(src) && src[p] == ' ' && indent < 3 {
		p++
		indent++
	}
	if p >= len(src) {
		return 0, false
	}
	fenceChar := src[p]
	if fenceChar != '`' && fenceChar != '~' {
		return 0, false
	}
	fenceLen := 0
	q := p
	for q < len(src) && src[q] == fenceChar {
		q++
		fenceLen++
	}
	if fenceLen < 3 {
		return 0, false
	}
	// Backtick fences can't have a backtick anywhere in the info string.
	infoEnd := indexLineEnd(src, q)
	if fenceChar == '`' {
		for k := q; k < infoEnd; k++ {
			if src[k] == '`' {
				return 0, false
			}
		}
	}

	i := nextLineStart(src, infoEnd)
	for i < len(src) {
		lineEnd := indexLineEnd(src, i)
		if closesFence(src, i, lineEnd, fenceChar, fenceLen) {
			return nextLineStart(src, lineEnd), true
		}
		i = nextLineStart(src, lineEnd)
	}
	return len(src), true
}

func closesFence(src []byte, lineStart, lineEnd int, fenceChar byte, fenceLen int) bool {
	p := lineStart
	indent := 0
	for p < lineEnd && src[p] == ' ' && indent < 3 {
		p++
		indent++
	}
	q := p
	n := 0
	for q < lineEnd && src[q] == fenceChar {
		q++
		n++
	}
	if n < fenceLen {
		return false
	}
	for ; q < lineEnd; q++ {
		if src[q] != ' ' && src[q] != '\t' {
			return false
		}
	}
	return true
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isSchemeChar(b byte) bool {
	return isASCIILetter(b) || (b >= '0' && b <= '9') || b == '+' || b == '-' || b == '.'
}

// skipSet answers "is byte offset i inside a consumed span" for the
// reference-definition lines already accounted for by scanDefinitions, so
// the main scan doesn't re-interpret a definition line's "[label]:" as a
// shortcut link.
type skipSet struct {
	spans []Span
}

func newSkipSet(spans []Span) skipSet {
	return skipSet{spans: spans}
}

func (s skipSet) at(i int) (Span, bool) {
	for _, sp := range s.spans {
		if sp.Start == i {
			return sp, true
		}
	}
	return Span{}, false
}
