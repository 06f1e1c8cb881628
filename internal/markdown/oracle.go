package markdown

import (
	"sort"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
)

// destinations returns every link/image destination gomarkdown's own
// CommonMark parser recognizes in src. It carries no byte offsets — that is
// exactly why component A's spans come from Scan, not from here — but it
// gives an independent second opinion on what a real parser considers a
// link at all, which CheckAgainstOracle uses to flag scanner drift instead
// of silently mis-classifying constructs the hand-rolled scanner doesn't
// yet handle (nested emphasis, HTML blocks, etc).
func destinations(src []byte) map[string]int {
	doc := gm.Parse(src, gmparser.NewWithExtensions(
		gmparser.CommonExtensions|gmparser.Autolink,
	))

	counts := make(map[string]int)
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.Link:
			counts[string(n.Destination)]++
		case *ast.Image:
			counts[string(n.Destination)]++
		}
		return ast.GoToNext
	})
	return counts
}

// CheckAgainstOracle cross-validates the scanner's link inventory against
// gomarkdown's. It returns the set of destinations gomarkdown parsed as a
// link/image that the scanner missed entirely — a non-empty result means
// the scanner should be treated as having under-collected links for this
// chapter (surfaced by the driver as a diagnostic, never a hard failure,
// since gomarkdown's own destination-only view can't tell us the byte span
// needed to actually rewrite anything).
func CheckAgainstOracle(c *Chapter) []string {
	want := destinations(c.Source)
	have := make(map[string]int, len(c.Links))
	for _, l := range c.Links {
		have[l.Target]++
	}

	var missed []string
	for dest, n := range want {
		if have[dest] < n {
			missed = append(missed, dest)
		}
	}
	sort.Strings(missed)
	return missed
}
