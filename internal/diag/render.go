package diag

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Renderer writes a Collector's diagnostics to a writer, choosing the
// caret-annotated form when the writer is an attached terminal and plain
// log lines otherwise. Detection lives at the boundary, not in the core,
// per spec.md §4.I ("the detection is by the environment, not by the
// core").
type Renderer struct {
	w         io.Writer
	graphical bool
}

// NewRenderer inspects w (normally os.Stderr) to decide which form to
// use. A CI environment is always treated as non-terminal even if the
// underlying file descriptor happens to be a character device.
func NewRenderer(w io.Writer) *Renderer {
	graphical := false
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			graphical = term.IsTerminal(int(f.Fd()))
		}
	}
	return &Renderer{w: w, graphical: graphical}
}

// Render writes every diagnostic. sources maps chapter id to its source
// bytes, used to compute line/column and the caret span in graphical
// mode; a chapter id absent from the map falls back to a spanless line.
func (r *Renderer) Render(items []Diagnostic, sources map[string][]byte) {
	for _, d := range items {
		if r.graphical {
			r.renderGraphical(d, sources)
		} else {
			r.renderPlain(d)
		}
	}
}

func (r *Renderer) renderPlain(d Diagnostic) {
	if d.Span == nil {
		fmt.Fprintf(r.w, "%s: %s\n", d.Severity, d.Message)
		return
	}
	fmt.Fprintf(r.w, "%s: %s: %s (byte %d-%d)\n", d.Severity, d.ChapterID, d.Message, d.Span.Start, d.Span.End)
}

func (r *Renderer) renderGraphical(d Diagnostic, sources map[string][]byte) {
	if d.Span == nil {
		fmt.Fprintf(r.w, "%s: %s\n", d.Severity, d.Message)
		return
	}

	src, ok := sources[d.ChapterID]
	if !ok {
		r.renderPlain(d)
		return
	}

	line, col, lineText := locate(src, d.Span.Start)
	fmt.Fprintf(r.w, "%s: %s\n", d.Severity, d.Message)
	fmt.Fprintf(r.w, "  --> %s:%d:%d\n", d.ChapterID, line, col)
	fmt.Fprintf(r.w, "   | %s\n", lineText)
	fmt.Fprintf(r.w, "   | %s%s\n", pad(col-1), caretRun(caretLen(d.Span, len(lineText), col)))
}

// locate returns the 1-based line and column of offset within src, plus
// the full text of that line (without its trailing newline).
func locate(src []byte, offset int) (line, col int, lineText string) {
	if offset > len(src) {
		offset = len(src)
	}
	line = 1 + bytes.Count(src[:offset], []byte("\n"))

	lineStart := bytes.LastIndexByte(src[:offset], '\n') + 1
	lineEnd := len(src)
	if i := bytes.IndexByte(src[offset:], '\n'); i >= 0 {
		lineEnd = offset + i
	}
	col = offset - lineStart + 1
	return line, col, string(src[lineStart:lineEnd])
}

func caretLen(span interface{ Len() int }, lineLen, col int) int {
	n := span.Len()
	if col-1+n > lineLen {
		n = lineLen - (col - 1)
	}
	if n < 1 {
		n = 1
	}
	return n
}

func pad(n int) string {
	if n < 0 {
		n = 0
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func caretRun(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '^'
	}
	return string(b)
}
