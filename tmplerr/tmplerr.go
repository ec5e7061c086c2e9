// Package tmplerr is the fatal-diagnostic type shared by every compile-time
// stage (lexer, parser, state builder, codegen). Compilation errors are
// never recoverable (spec.md §7): the first unrecognizable byte, duplicate
// directive, or unresolved reference aborts with a CompileError naming the
// template and, where known, the line and column. The error text does not
// include a source excerpt.
package tmplerr

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// CompileError is a fatal diagnostic produced while compiling one template.
type CompileError struct {
	Template string
	Line     int
	Column   int
	Message  string
	Cause    error
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Template != "" {
		fmt.Fprintf(&sb, " in template %q", e.Template)
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, " at line %d, column %d", e.Line, e.Column)
	}
	return sb.String()
}

func (e *CompileError) Unwrap() error { return e.Cause }

// New builds a CompileError without an underlying cause.
func New(template string, line, column int, format string, args ...interface{}) *CompileError {
	return &CompileError{Template: template, Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches source position to an error surfaced from a lower layer,
// keeping the original cause reachable via errors.Is/As through xerrors.
func Wrap(template string, line, column int, cause error, format string, args ...interface{}) *CompileError {
	msg := fmt.Sprintf(format, args...)
	return &CompileError{
		Template: template,
		Line:     line,
		Column:   column,
		Message:  msg,
		Cause:    xerrors.Errorf("%s: %w", msg, cause),
	}
}

// Excerpt renders a one-line `line | source` view with a '^' caret under
// the offending column. Nothing in this module calls it; CompileError and
// cmd/tmplc's diagnostics do not print an excerpt.
func Excerpt(source string, line, column int) string {
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	src := lines[line-1]
	caret := strings.Repeat(" ", max(column-1, 0)) + "^"
	return fmt.Sprintf("%4d | %s\n     | %s", line, src, caret)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
