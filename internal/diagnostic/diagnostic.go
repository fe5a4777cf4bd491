// Package diagnostic provides span-carrying source errors shared by the
// lexer, parser, and scope packages.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/gogpu/pipeline/ast"
)

// Error is a user-facing error with source location information.
type Error struct {
	Message string
	Span    ast.Span
	Source  string // original source, for FormatWithContext
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Span.Start.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// FormatWithContext renders the error with the offending source line and a
// caret pointing at the column.
func (e *Error) FormatWithContext() string {
	if e.Source == "" || e.Span.Start.Line == 0 {
		return e.Error()
	}

	lines := strings.Split(e.Source, "\n")
	lineNum := e.Span.Start.Line
	if lineNum < 1 || lineNum > len(lines) {
		return e.Error()
	}

	line := lines[lineNum-1]
	col := e.Span.Start.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Message)
	fmt.Fprintf(&sb, "  --> line %d:%d\n", lineNum, col)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))
	return sb.String()
}

// New creates an Error.
func New(message string, span ast.Span, source string) *Error {
	return &Error{Message: message, Span: span, Source: source}
}

// Newf creates an Error with a formatted message.
func Newf(span ast.Span, source string, format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Span: span, Source: source}
}

// List collects multiple diagnostics, as parsing and name resolution may
// want to report more than the first failure.
type List []*Error

// Error implements the error interface.
func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	if len(l) == 1 {
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}

// FormatAll renders every diagnostic with source context.
func (l List) FormatAll() string {
	var sb strings.Builder
	for i, e := range l {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.FormatWithContext())
	}
	return sb.String()
}

// Add appends an error.
func (l *List) Add(err *Error) {
	*l = append(*l, err)
}

// Addf appends a formatted error.
func (l *List) Addf(span ast.Span, source string, format string, args ...interface{}) {
	l.Add(Newf(span, source, format, args...))
}

// HasErrors reports whether the list is non-empty.
func (l List) HasErrors() bool {
	return len(l) > 0
}
