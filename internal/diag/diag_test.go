package diag

import (
	"bytes"
	"testing"

	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
)

func TestExitCodeCleanRun(t *testing.T) {
	c := NewCollector(false)
	if c.ExitCode() != 0 {
		t.Fatalf("expected exit code 0, got %d", c.ExitCode())
	}
}

func TestExitCodeFatalError(t *testing.T) {
	c := NewCollector(false)
	c.TopLevel(SeverityError, "boom")
	if c.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", c.ExitCode())
	}
}

func TestExitCodeWarningsUnderFailOnWarnings(t *testing.T) {
	c := NewCollector(true)
	c.Warn("ch1", markdown.Span{Start: 0, End: 3}, "target does not exist")
	if c.ExitCode() != 2 {
		t.Fatalf("expected exit code 2, got %d", c.ExitCode())
	}
}

func TestExitCodeWarningsWithoutFailOnWarnings(t *testing.T) {
	c := NewCollector(false)
	c.Warn("ch1", markdown.Span{Start: 0, End: 3}, "target does not exist")
	if c.ExitCode() != 0 {
		t.Fatalf("expected exit code 0, got %d", c.ExitCode())
	}
}

func TestRenderPlainOutputsSpanBytes(t *testing.T) {
	c := NewCollector(false)
	c.Warn("ch1", markdown.Span{Start: 5, End: 9}, "target does not exist")

	var buf bytes.Buffer
	r := &Renderer{w: &buf, graphical: false}
	r.Render(c.Items(), nil)

	got := buf.String()
	if !bytes.Contains([]byte(got), []byte("ch1")) || !bytes.Contains([]byte(got), []byte("5-9")) {
		t.Fatalf("expected plain rendering to include chapter id and span, got %q", got)
	}
}

func TestRenderGraphicalDrawsCaret(t *testing.T) {
	src := []byte("see [Cargo.lock](../../Cargo.lock) here")
	c := NewCollector(false)
	c.Warn("ch1", markdown.Span{Start: 17, End: 34}, "target does not exist")

	var buf bytes.Buffer
	r := &Renderer{w: &buf, graphical: true}
	r.Render(c.Items(), map[string][]byte{"ch1": src})

	if !bytes.Contains(buf.Bytes(), []byte("^")) {
		t.Fatalf("expected a caret line, got %q", buf.String())
	}
}
