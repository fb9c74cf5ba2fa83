package dsl

import (
	"fmt"
	"strings"

	"github.com/npillmayer/chartscript"
)

// ParseError is a syntax error in a routine body or expression.
type ParseError struct {
	Pos chartscript.Position
	Msg string
}

func (e *ParseError) Error() string {
	if !e.Pos.IsKnown() {
		return "syntax error: " + e.Msg
	}
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Msg)
}

// RuntimeError is an error raised while a routine runs.
type RuntimeError struct {
	Pos   chartscript.Position
	Msg   string
	Cause error
}

func (e *RuntimeError) Error() string {
	if !e.Pos.IsKnown() {
		return "runtime error: " + e.Msg
	}
	return fmt.Sprintf("runtime error at %s: %s", e.Pos, e.Msg)
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

func runtimeErrorf(pos chartscript.Position, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// SourceWindow renders the lines around line (1-based) of src, radius lines
// above and below, prefixed with line numbers. The offending line is marked
// with '>', and if col > 0 a caret is put under the column.
//
//      3 | a = 1
//    > 4 | b = (a +
//        |        ^
//      5 | c = 2
//
func SourceWindow(src string, line, col, radius int) string {
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	from, to := line-radius, line+radius
	if from < 1 {
		from = 1
	}
	if to > len(lines) {
		to = len(lines)
	}
	width := len(fmt.Sprint(to))
	var b strings.Builder
	for n := from; n <= to; n++ {
		mark := "  "
		if n == line {
			mark = "> "
		}
		fmt.Fprintf(&b, "%s%*d | %s\n", mark, width, n, strings.TrimRight(lines[n-1], "\r"))
		if n == line && col > 0 {
			fmt.Fprintf(&b, "  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
		}
	}
	return b.String()
}
