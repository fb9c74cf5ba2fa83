package chartscript

import "fmt"

// --- A general purpose interface for tokens --------------------------------

// TokType is a category type for a Token. Constants are defined by the
// lexers which produce tokens.
type TokType int

// Tokens represent input tokens, as produced by a scanner.
//
// An example would be a token for a floating point number:
//
//    TokType = Number      // identifier for this kind of tokens (lexer specific)
//    Lexeme  = "3.1416"    // lexeme how it appeared in the input stream
//    Value   = 3.1416      // a float64 value
//    Span    = 67…73       // occurred from byte position 67 in the input stream
//    Pos     = 4:12        // line 4, column 12
//
type Token interface {
	TokType() TokType
	Lexeme() string
	Value() interface{}
	Span() Span
	Pos() Position
}

// --- Spans ------------------------------------------------------------

// Span is a small type for capturing a run of input bytes.
// A span denotes a start position and the position just behind the end.
type Span [2]uint64 // (x…y)

// From returns the start value of a span.
func (s Span) From() uint64 {
	return s[0]
}

// To returns the end value of a span.
func (s Span) To() uint64 {
	return s[1]
}

// Len returns the length of (x…y)
func (s Span) Len() uint64 {
	return s[1] - s[0]
}

// IsNull is true for the zero span.
func (s Span) IsNull() bool {
	return s == Span{}
}

// Extend returns the smallest span covering s and other.
func (s Span) Extend(other Span) Span {
	if other[0] < s[0] {
		s[0] = other[0]
	}
	if other[1] > s[1] {
		s[1] = other[1]
	}
	return s
}

func (s Span) String() string {
	return fmt.Sprintf("(%d…%d)", s[0], s[1])
}

// --- Positions --------------------------------------------------------

// Position is a line/column position in a source text. Lines and columns
// are 1-based; the zero Position means "unknown".
type Position struct {
	Line int
	Col  int
}

// IsKnown is true for positions produced by a scanner.
func (p Position) IsKnown() bool {
	return p.Line > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}
