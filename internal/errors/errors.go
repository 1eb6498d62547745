// Package errors implements the error taxonomy of spec.md §7: syntax
// errors (thrown by the lexer/parser, never recovered internally) and the
// rendering shared with environment.RuntimeError (runtime errors, thrown
// by the engine or by script).
//
// Adapted from the teacher's internal/errors package: same header +
// location + stack-trace rendering shape, narrowed to the two kinds
// spec.md actually names (SyntaxError, RuntimeError/TypeError/
// ReferenceError/RangeError are all runtime-error type names, not Go
// types — see environment.RuntimeError).
package errors

import (
	"fmt"
	"strings"
)

// SourceLocation pinpoints a byte offset in a named source unit (§7
// "carries a source origin (file or immediate), a byte index, a row/
// column").
type SourceLocation struct {
	File   string
	Offset int
	Line   int
	Column int
}

// SyntaxError is thrown by the lexer/parser; it carries the offending
// source line for display and is never recovered internally (§7).
type SyntaxError struct {
	Message  string
	Location SourceLocation
	Source   string
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("SyntaxError: %s\n", e.Message))
	sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n", e.Location.File, e.Location.Line, e.Location.Column))
	if e.Source != "" {
		sb.WriteString(fmt.Sprintf("\n  %d | %s\n", e.Location.Line, e.Source))
		sb.WriteString(strings.Repeat(" ", len(fmt.Sprintf("  %d | ", e.Location.Line))))
		if e.Location.Column > 0 {
			sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
		}
		sb.WriteString("^\n")
	}
	return sb.String()
}

func NewSyntaxError(message, file string, offset, line, column int, source string) *SyntaxError {
	return &SyntaxError{
		Message:  message,
		Location: SourceLocation{File: file, Offset: offset, Line: line, Column: column},
		Source:   source,
	}
}
