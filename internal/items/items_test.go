package items

import (
	"strings"
	"testing"

	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
)

func id(n int) markdown.ID {
	return markdown.ID{ChapterID: "ch1", Span: markdown.Span{Start: n, End: n + 1}}
}

func TestCollectorDedupesByNormalizedForm(t *testing.T) {
	c := NewCollector()
	c.Add(id(0), "tokio::main!")
	c.Add(id(10), "mod@tokio::main!")

	its := c.Items()
	if len(its) != 1 {
		t.Fatalf("expected 1 deduped item, got %d", len(its))
	}
	if len(its[0].Links) != 2 {
		t.Fatalf("expected 2 occurrences folded into one item, got %d", len(its[0].Links))
	}
}

func TestCollectorPreservesInsertionOrder(t *testing.T) {
	c := NewCollector()
	c.Add(id(0), "b::item")
	c.Add(id(1), "a::item")
	its := c.Items()
	if its[0].Normalized != "b::item" || its[1].Normalized != "a::item" {
		t.Fatalf("expected first-occurrence order, got %+v", its)
	}
}

func TestNormalizeCollapsesGenericWhitespace(t *testing.T) {
	if normalize("Vec< u8 >") != normalize("Vec<u8>") {
		t.Fatalf("expected generic-argument whitespace to fold")
	}
}

func TestBuildProbeMacroStatement(t *testing.T) {
	c := NewCollector()
	c.Add(id(0), "tokio::main!")
	its := c.Items()

	p := BuildProbe(its)
	if !strings.Contains(p.Source, "tokio::main!();") {
		t.Fatalf("expected macro invocation statement, got:\n%s", p.Source)
	}
	if its[0].ProbeOffset <= 0 {
		t.Fatalf("expected a positive probe offset")
	}
}

func TestBuildProbePlainPathStatement(t *testing.T) {
	c := NewCollector()
	c.Add(id(0), "std::option::Option")
	its := c.Items()

	p := BuildProbe(its)
	if !strings.Contains(p.Source, "let _: std::option::Option = std::option::Option;") {
		t.Fatalf("expected plain-path let statement, got:\n%s", p.Source)
	}
}

func TestBuildProbeCallStatement(t *testing.T) {
	c := NewCollector()
	c.Add(id(0), "std::mem::drop()")
	its := c.Items()

	p := BuildProbe(its)
	if !strings.Contains(p.Source, "std::mem::drop();") {
		t.Fatalf("expected call statement, got:\n%s", p.Source)
	}
}
