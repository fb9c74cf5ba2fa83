package dsl

import (
	"fmt"
	"strings"
	"sync"

	"github.com/npillmayer/chartscript"
	"github.com/npillmayer/chartscript/scanner"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// Token categories of routine source.
const (
	TokIdent chartscript.TokType = iota + 1
	TokNumber
	TokString
	TokKeyword
	TokPunct
)

// The keyword tokens
var keywords = []string{
	"if", "else", "for", "of", "while", "break", "continue", "return",
	"function", "var", "let", "const", "true", "false", "null", "undefined",
}

// Operators and punctuation, recognized as literals
var literals = []string{
	"===", "!==", "==", "!=", "<=", ">=", "&&", "||", "??", "=>",
	"++", "--", "+=", "-=", "*=", "/=", "%=",
	"+", "-", "*", "/", "%", "<", ">", "=", "!", "?", ":",
	".", ",", ";", "(", ")", "[", "]", "{", "}",
}

var tokenIds map[string]int // A map from the token names to their token types

var lexer *scanner.LMAdapter
var lexerErr error
var initOnce sync.Once // monitors one-time initialization

func initLexer() {
	initOnce.Do(func() {
		tokenIds = make(map[string]int)
		tokenIds["ID"] = int(TokIdent)
		tokenIds["NUM"] = int(TokNumber)
		tokenIds["STRING"] = int(TokString)
		for _, kw := range keywords {
			tokenIds[kw] = int(TokKeyword)
		}
		for _, lit := range literals {
			tokenIds[lit] = int(TokPunct)
		}
		init := func(lexer *lexmachine.Lexer) {
			lexer.Add([]byte(`//[^\n]*`), scanner.Skip)
			lexer.Add([]byte(`/\*([^*]|\r|\n|(\*+([^*/]|\r|\n)))*\*+/`), scanner.Skip)
			lexer.Add([]byte(`"([^"\\\n]|\\.)*"`), makeToken("STRING"))
			lexer.Add([]byte(`'([^'\\\n]|\\.)*'`), makeToken("STRING"))
			lexer.Add([]byte(`([a-z]|[A-Z]|_|\$)([a-z]|[A-Z]|[0-9]|_|\$)*`), makeToken("ID"))
			lexer.Add([]byte(`[0-9]+(\.[0-9]+)?([eE][\+\-]?[0-9]+)?`), makeToken("NUM"))
			lexer.Add([]byte(`\.[0-9]+([eE][\+\-]?[0-9]+)?`), makeToken("NUM"))
			lexer.Add([]byte(`( |\t|\n|\r)+`), scanner.Skip)
		}
		lexer, lexerErr = scanner.NewLMAdapter(init, keywords, literals, tokenIds)
	})
}

func makeToken(s string) lexmachine.Action {
	id, ok := tokenIds[s]
	if !ok {
		panic(fmt.Errorf("unknown token: %s", s))
	}
	return scanner.MakeToken(s, id)
}

// Lexer returns the lexmachine lexer for routine source. The DFA is compiled
// once, on first use.
func Lexer() (*scanner.LMAdapter, error) {
	initLexer()
	return lexer, lexerErr
}

// exotic quote characters and spaces, as pasted from word processors
var quoteNormalizer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
	"‘", "'", "’", "'", "‚", "'", "´", "'", "`", "'",
	"\u00a0", " ", "\u2009", " ", "\u202f", " ",
)

// Normalize replaces typographic quote characters by their ASCII
// counterparts and exotic spaces by blanks.
func Normalize(src string) string {
	return quoteNormalizer.Replace(src)
}

// Tokenize splits src into tokens, after normalizing quotes. The final token
// is always an EOF token. The first lexical error is returned as *ParseError.
func Tokenize(src string) ([]chartscript.Token, error) {
	lex, err := Lexer()
	if err != nil {
		return nil, err
	}
	sc, err := lex.Scanner(Normalize(src))
	if err != nil {
		return nil, err
	}
	var lexErr *ParseError
	sc.SetErrorHandler(func(e error) {
		if lexErr != nil {
			return
		}
		lexErr = &ParseError{Msg: e.Error()}
		if ui, ok := e.(*machines.UnconsumedInput); ok && ui.StartTC < len(ui.Text) {
			lexErr.Pos = chartscript.Position{Line: ui.StartLine, Col: ui.StartColumn}
			lexErr.Msg = fmt.Sprintf("unexpected character %q", firstRune(ui.Text[ui.StartTC:]))
		}
	})
	var toks []chartscript.Token
	for {
		tok := sc.NextToken()
		toks = append(toks, tok)
		if tok.TokType() == scanner.EOF {
			break
		}
	}
	if lexErr != nil {
		return toks, lexErr
	}
	return toks, nil
}

func firstRune(b []byte) string {
	for _, r := range string(b) {
		return string(r)
	}
	return ""
}

// Unquote decodes a single- or double-quoted string literal.
func Unquote(lit string) (string, error) {
	if len(lit) < 2 || (lit[0] != '"' && lit[0] != '\'') || lit[len(lit)-1] != lit[0] {
		return "", fmt.Errorf("malformed string literal %s", lit)
	}
	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, "\\") {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}
