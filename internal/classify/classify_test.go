package classify

import "testing"

func TestItemNameGrammarPlainPath(t *testing.T) {
	if !ItemNameGrammar("tokio::main") {
		t.Fatal("expected tokio::main to match item-name grammar")
	}
}

func TestItemNameGrammarMacro(t *testing.T) {
	if !ItemNameGrammar("tokio::main!") {
		t.Fatal("expected macro form to match")
	}
}

func TestItemNameGrammarFunctionCall(t *testing.T) {
	if !ItemNameGrammar("std::mem::drop()") {
		t.Fatal("expected function-call form to match")
	}
}

func TestItemNameGrammarGenericArgs(t *testing.T) {
	if !ItemNameGrammar("Vec::<u8>::new") {
		t.Fatal("expected turbofish generics to match")
	}
}

func TestItemNameGrammarReceiver(t *testing.T) {
	if !ItemNameGrammar("<Foo as Bar>::baz") {
		t.Fatal("expected qualified-receiver form to match")
	}
}

func TestItemNameGrammarRejectsEmpty(t *testing.T) {
	if ItemNameGrammar("") {
		t.Fatal("empty string must not match")
	}
}

func TestClassifyAbsoluteRepoPath(t *testing.T) {
	r := Classify("/Cargo.toml", ".", "", "")
	if r.Kind != KindAbsoluteRepoPath {
		t.Fatalf("expected absolute-repo-path, got %v", r.Kind)
	}
}

func TestClassifyProtocolRelativeIsExternal(t *testing.T) {
	r := Classify("//example.org/x", ".", "", "")
	if r.Kind != KindExternal {
		t.Fatalf("expected external, got %v", r.Kind)
	}
}

func TestClassifyMailtoIsExternal(t *testing.T) {
	r := Classify("mailto:a@example.org", ".", "", "")
	if r.Kind != KindExternal {
		t.Fatalf("expected external, got %v", r.Kind)
	}
}

func TestClassifyQueryStringDisqualifiesPath(t *testing.T) {
	r := Classify("../file.md?x=1", ".", "", "")
	if r.Kind != KindExternal {
		t.Fatalf("expected external due to query string, got %v", r.Kind)
	}
}

func TestClassifyRelativePath(t *testing.T) {
	r := Classify("../../Cargo.lock", ".", "", "")
	if r.Kind != KindRelativePath {
		t.Fatalf("expected relative-path, got %v", r.Kind)
	}
	if r.Path != "../../Cargo.lock" {
		t.Fatalf("unexpected path: %q", r.Path)
	}
}

func TestClassifyBookURL(t *testing.T) {
	r := Classify("https://example.org/book/tests/links", ".", "https://example.org/book/", "")
	if r.Kind != KindBookURL {
		t.Fatalf("expected book-url, got %v", r.Kind)
	}
}

func TestClassifyRepoCanonicalURL(t *testing.T) {
	r := Classify("https://github.com/lorem/ipsum/tree/HEAD/Cargo.toml", ".", "", "github.com")
	if r.Kind != KindRepoCanonicalURL {
		t.Fatalf("expected repo-canonical-url, got %v", r.Kind)
	}
}

func TestClassifyFragmentOnlyIsExternal(t *testing.T) {
	r := Classify("#section", ".", "", "")
	if r.Kind != KindExternal {
		t.Fatalf("expected external, got %v", r.Kind)
	}
}

func TestClassifyItemName(t *testing.T) {
	r := Classify("tokio::main!", "/nonexistent-dir-xyz", "", "")
	if r.Kind != KindItemName {
		t.Fatalf("expected item-name, got %v", r.Kind)
	}
}

func TestClassifyFragmentPreservedAcrossKinds(t *testing.T) {
	r := Classify("../a.md#frag", ".", "", "")
	if r.Fragment != "frag" {
		t.Fatalf("expected fragment to be preserved, got %q", r.Fragment)
	}
}
