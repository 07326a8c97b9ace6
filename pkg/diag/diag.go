// Package diag defines the diagnostics produced by the compiler stages:
// severities, source-located messages, an accumulator bag, and plain-text
// rendering with caret lines.
package diag

import (
	"fmt"
	"strings"

	"github.com/aweary/compiler/pkg/source"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is a single user-facing finding with a source location.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     source.Span
	Help     string // optional "did you mean" style hint
}

// Errorf builds an error-severity diagnostic with a formatted message.
func Errorf(span source.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	}
}

// Warningf builds a warning-severity diagnostic with a formatted message.
func Warningf(span source.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	}
}

// WithHelp returns a copy of the diagnostic carrying a help hint.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// Bag accumulates diagnostics across compiler stages.
type Bag struct {
	diags []Diagnostic
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(d Diagnostic) {
	b.diags = append(b.diags, d)
}

// AddAll appends every diagnostic in ds.
func (b *Bag) AddAll(ds []Diagnostic) {
	b.diags = append(b.diags, ds...)
}

// All returns the accumulated diagnostics in insertion order.
func (b *Bag) All() []Diagnostic {
	return b.diags
}

// Len returns the number of accumulated diagnostics.
func (b *Bag) Len() int {
	return len(b.diags)
}

// HasErrors reports whether any diagnostic has error severity.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Render formats a diagnostic as
//
//	name:line:col: severity: message
//	    offending line
//	    ^~~~
//
// followed by an optional "help:" line.
func Render(f *source.File, d Diagnostic) string {
	line, col := f.Position(int(d.Span.Start))
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%d:%d: %s: %s", f.Name, line, col, d.Severity, d.Message)

	text := f.LineText(line)
	if text != "" {
		sb.WriteString("\n    ")
		sb.WriteString(text)
		sb.WriteString("\n    ")
		sb.WriteString(strings.Repeat(" ", col-1))
		sb.WriteString("^")
		// Extend the caret under the span when it stays on one line.
		width := d.Span.Len()
		if width > 1 && col-1+width <= len(text) {
			sb.WriteString(strings.Repeat("~", width-1))
		}
	}
	if d.Help != "" {
		sb.WriteString("\n    help: ")
		sb.WriteString(d.Help)
	}
	return sb.String()
}

// Error wraps a Diagnostic so stages can return it through normal error
// paths. Callers recover the diagnostic with errors.As.
type Error struct {
	Diagnostic Diagnostic
}

func (e *Error) Error() string {
	return e.Diagnostic.Message
}

// NewError wraps a diagnostic as an error.
func NewError(d Diagnostic) *Error {
	return &Error{Diagnostic: d}
}
