// Package diag implements the diagnostics component, spec.md §4.I: it
// collects warnings/errors carrying byte spans, and applies the
// fail-on-warnings policy at the end of a run.
package diag

import (
	"fmt"
	"os"

	"github.com/jcdickinson/mdbook-linkfix/internal/markdown"
)

// Severity distinguishes a resolution warning from a fatal error, per the
// taxonomy in spec.md §7.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one collected warning or error.
type Diagnostic struct {
	Severity  Severity
	Message   string
	ChapterID string
	Span      *markdown.Span // nil for spanless configuration/environment errors
	Cause     error
}

// Collector accumulates diagnostics for one preprocessor invocation.
type Collector struct {
	items         []Diagnostic
	failOnWarning bool
}

// NewCollector builds a Collector. failOnWarning mirrors the
// `fail-on-warnings` configuration key, itself defaulting to whether the
// CI environment variable is truthy per spec.md §6.
func NewCollector(failOnWarning bool) *Collector {
	return &Collector{failOnWarning: failOnWarning}
}

// DefaultFailOnWarnings reports the default for `fail-on-warnings`: truthy
// when the CI environment variable is set and non-empty.
func DefaultFailOnWarnings() bool {
	return os.Getenv("CI") != ""
}

// Warn records a non-fatal resolution warning with a byte span.
func (c *Collector) Warn(chapterID string, span markdown.Span, message string) {
	c.items = append(c.items, Diagnostic{Severity: SeverityWarning, Message: message, ChapterID: chapterID, Span: &span})
}

// WarnCause is Warn plus a wrapped cause, kept out of Message so renderers
// can format the chain differently from the headline.
func (c *Collector) WarnCause(chapterID string, span markdown.Span, message string, cause error) {
	c.items = append(c.items, Diagnostic{Severity: SeverityWarning, Message: message, ChapterID: chapterID, Span: &span, Cause: cause})
}

// TopLevel records a spanless diagnostic — used for configuration errors,
// environment errors, and the server-timeout warning that names the
// server's reported version.
func (c *Collector) TopLevel(sev Severity, message string) {
	c.items = append(c.items, Diagnostic{Severity: sev, Message: message})
}

// Items returns all collected diagnostics in emission order.
func (c *Collector) Items() []Diagnostic {
	return c.items
}

// HasErrors reports whether any diagnostic is a hard error.
func (c *Collector) HasErrors() bool {
	for _, d := range c.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic is a warning.
func (c *Collector) HasWarnings() bool {
	for _, d := range c.items {
		if d.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ExitCode implements spec.md §6's CLI exit codes: 0 on a clean run, 1 on
// a fatal error, 2 on unresolved warnings under fail-on-warnings.
func (c *Collector) ExitCode() int {
	if c.HasErrors() {
		return 1
	}
	if c.failOnWarning && c.HasWarnings() {
		return 2
	}
	return 0
}

// Error formats a Diagnostic for use as a Go error, mostly for tests and
// non-terminal contexts that don't need the full renderer.
func (d Diagnostic) Error() string {
	if d.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", d.Severity, d.Message, d.Cause)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}
