package book

import (
	"encoding/json"
	"testing"
)

func TestChapterNumberRoundTrips(t *testing.T) {
	src := `{"Chapter":{"name":"intro","content":"hi","number":[1,2],"path":"intro.md","sub_items":[]}}`

	var it Item
	if err := json.Unmarshal([]byte(src), &it); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Chapter == nil {
		t.Fatalf("expected a chapter")
	}
	if string(it.Chapter.Number) != "[1,2]" {
		t.Fatalf("got number %s, want [1,2]", it.Chapter.Number)
	}

	it.Chapter.Content = "rewritten"
	out, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var round Item
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(round.Chapter.Number) != "[1,2]" {
		t.Fatalf("number did not round-trip: got %s", round.Chapter.Number)
	}
	if round.Chapter.Content != "rewritten" {
		t.Fatalf("expected rewritten content to persist, got %q", round.Chapter.Content)
	}
}

func TestChapterWithoutNumberOmitsField(t *testing.T) {
	src := `{"Chapter":{"name":"draft","content":"","path":null,"sub_items":[]}}`

	var it Item
	if err := json.Unmarshal([]byte(src), &it); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Chapter.Number != nil {
		t.Fatalf("expected no number, got %s", it.Chapter.Number)
	}

	out, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := raw["Chapter"]["number"]; ok {
		t.Fatalf("expected no number key in output, got %s", out)
	}
}

func TestSeparatorRoundTrips(t *testing.T) {
	var it Item
	if err := json.Unmarshal([]byte(`"Separator"`), &it); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !it.IsSeparator {
		t.Fatalf("expected IsSeparator to be true")
	}
	out, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"Separator"` {
		t.Fatalf("got %s, want \"Separator\"", out)
	}
}
