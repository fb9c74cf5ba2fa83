package scanner

import (
	"fmt"

	"github.com/npillmayer/chartscript"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'chartscript.scanner'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.scanner")
}

// EOF is the token type of the end-of-input token.
const EOF chartscript.TokType = -1

// Tokenizer is a scanner interface.
type Tokenizer interface {
	NextToken() chartscript.Token
	SetErrorHandler(func(error))
}

// Default error reporting function for scanners
func logError(e error) {
	tracer().Errorf("scanner error: " + e.Error())
}

// --- Default tokens --------------------------------------------------------

// DefaultToken is a very unsophisticated token type, used by the lexmachine
// scanner.
type DefaultToken struct {
	kind   chartscript.TokType
	lexeme string
	Val    interface{}
	span   chartscript.Span
	pos    chartscript.Position
}

var _ chartscript.Token = DefaultToken{}

// MakeDefaultToken creates a token without a value.
func MakeDefaultToken(typ chartscript.TokType, lexeme string, span chartscript.Span,
	pos chartscript.Position) DefaultToken {
	//
	return DefaultToken{
		kind:   typ,
		lexeme: lexeme,
		span:   span,
		pos:    pos,
	}
}

func (t DefaultToken) TokType() chartscript.TokType {
	return t.kind
}

func (t DefaultToken) Value() interface{} {
	return t.Val
}

func (t DefaultToken) Lexeme() string {
	return t.lexeme
}

func (t DefaultToken) Span() chartscript.Span {
	return t.span
}

func (t DefaultToken) Pos() chartscript.Position {
	return t.pos
}

func (t DefaultToken) String() string {
	return fmt.Sprintf("<%d %q @%s>", t.kind, t.lexeme, t.pos)
}

// Lexeme is a helper function to receive a string from a token.
func Lexeme(token interface{}) string {
	switch t := token.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case chartscript.Token:
		return t.Lexeme()
	default:
		return fmt.Sprintf("%v", t)
	}
}
