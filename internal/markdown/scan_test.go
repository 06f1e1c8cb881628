package markdown

import "testing"

func TestScanInlineLink(t *testing.T) {
	src := []byte(`[Cargo.toml](../../../../Cargo.toml)`)
	c := Scan("ch1", src)
	if len(c.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(c.Links))
	}
	l := c.Links[0]
	if l.Kind != KindInline || l.Role != RoleLink {
		t.Fatalf("unexpected kind/role: %v/%v", l.Kind, l.Role)
	}
	if l.Target != "../../../../Cargo.toml" {
		t.Fatalf("unexpected target: %q", l.Target)
	}
	if l.ID.Span != (Span{0, len(src)}) {
		t.Fatalf("unexpected span: %v", l.ID.Span)
	}
}

func TestScanImage(t *testing.T) {
	src := []byte(`![selfie](Macaca_nigra_self-portrait_large.jpg)`)
	c := Scan("ch1", src)
	if len(c.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(c.Links))
	}
	if c.Links[0].Role != RoleImage {
		t.Fatalf("expected image role")
	}
	if c.Links[0].Target != "Macaca_nigra_self-portrait_large.jpg" {
		t.Fatalf("unexpected target: %q", c.Links[0].Target)
	}
}

func TestScanAutolink(t *testing.T) {
	src := []byte(`see <https://example.org/book/tests/links> for more`)
	c := Scan("ch1", src)
	if len(c.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(c.Links))
	}
	l := c.Links[0]
	if l.Kind != KindAutolink {
		t.Fatalf("expected autolink, got %v", l.Kind)
	}
	if l.Target != "https://example.org/book/tests/links" {
		t.Fatalf("unexpected target: %q", l.Target)
	}
}

func TestScanReferenceStyle(t *testing.T) {
	src := []byte("see [the docs][docs] for more\n\n[docs]: https://example.org/docs \"Docs\"\n")
	c := Scan("ch1", src)
	if len(c.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(c.Links))
	}
	l := c.Links[0]
	if l.Kind != KindReference {
		t.Fatalf("expected reference kind, got %v", l.Kind)
	}
	if l.Target != "https://example.org/docs" {
		t.Fatalf("unexpected resolved target: %q", l.Target)
	}
	if l.Title != "Docs" {
		t.Fatalf("unexpected title: %q", l.Title)
	}
}

func TestScanCollapsedReference(t *testing.T) {
	src := []byte("see [docs][] for more\n\n[docs]: https://example.org/docs\n")
	c := Scan("ch1", src)
	if len(c.Links) != 1 || c.Links[0].Kind != KindCollapsed {
		t.Fatalf("expected 1 collapsed link, got %+v", c.Links)
	}
	if c.Links[0].Target != "https://example.org/docs" {
		t.Fatalf("unexpected target: %q", c.Links[0].Target)
	}
}

func TestScanShortcutReferenceMissingLabel(t *testing.T) {
	src := []byte(`[tokio::main!]`)
	c := Scan("ch1", src)
	if len(c.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(c.Links))
	}
	l := c.Links[0]
	if l.Kind != KindShortcut {
		t.Fatalf("expected shortcut kind, got %v", l.Kind)
	}
	if l.Target != "tokio::main!" {
		t.Fatalf("expected degrade-to-label target, got %q", l.Target)
	}
	if l.TargetSpan != nil {
		t.Fatalf("degraded link should have no physical target span")
	}
}

func TestScanSkipsFencedCodeBlock(t *testing.T) {
	src := []byte("```\n[not a link](nope)\n```\n\n[a real one](dest)\n")
	c := Scan("ch1", src)
	if len(c.Links) != 1 {
		t.Fatalf("expected 1 link outside the fence, got %d: %+v", len(c.Links), c.Links)
	}
	if c.Links[0].Target != "dest" {
		t.Fatalf("unexpected target: %q", c.Links[0].Target)
	}
}

func TestScanSkipsInlineCodeSpan(t *testing.T) {
	src := []byte("this is `[not a link](nope)` but this [is](dest)")
	c := Scan("ch1", src)
	if len(c.Links) != 1 {
		t.Fatalf("expected 1 link, got %d: %+v", len(c.Links), c.Links)
	}
	if c.Links[0].Target != "dest" {
		t.Fatalf("unexpected target: %q", c.Links[0].Target)
	}
}

func TestScanImageInsideLink(t *testing.T) {
	src := []byte(`[![alt](img.png)](page.html)`)
	c := Scan("ch1", src)
	if len(c.Links) != 2 {
		t.Fatalf("expected 2 links (outer + inner image), got %d: %+v", len(c.Links), c.Links)
	}
	var sawImage, sawLink bool
	for _, l := range c.Links {
		if l.Role == RoleImage && l.Target == "img.png" {
			sawImage = true
		}
		if l.Role == RoleLink && l.Target == "page.html" {
			sawLink = true
		}
	}
	if !sawImage || !sawLink {
		t.Fatalf("did not find both nested constructs: %+v", c.Links)
	}
}

func TestValidateDetectsOverlap(t *testing.T) {
	c := &Chapter{
		ID:     "ch1",
		Source: []byte("0123456789"),
		Links: []Link{
			{ID: ID{ChapterID: "ch1", Span: Span{0, 5}}},
			{ID: ID{ChapterID: "ch1", Span: Span{3, 7}}},
		},
	}
	if err := Validate(c); err == nil {
		t.Fatalf("expected overlap error")
	}
}
