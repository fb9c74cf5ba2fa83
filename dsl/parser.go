package dsl

import (
	"fmt"
	"strconv"

	"github.com/npillmayer/chartscript"
	"github.com/npillmayer/chartscript/scanner"
)

// Binding powers of infix and postfix operators. Higher binds tighter.
const (
	bpNone    = 0
	bpAssign  = 2
	bpCond    = 3
	bpNullish = 4
	bpOr      = 5
	bpAnd     = 6
	bpEqual   = 9
	bpCompare = 10
	bpSum     = 12
	bpProduct = 13
	bpPrefix  = 15
	bpPostfix = 16
	bpCall    = 17
)

var infixBP = map[string]int{
	"=": bpAssign, "+=": bpAssign, "-=": bpAssign, "*=": bpAssign, "/=": bpAssign, "%=": bpAssign,
	"?":  bpCond,
	"??": bpNullish,
	"||": bpOr,
	"&&": bpAnd,
	"==": bpEqual, "!=": bpEqual, "===": bpEqual, "!==": bpEqual,
	"<": bpCompare, "<=": bpCompare, ">": bpCompare, ">=": bpCompare,
	"+": bpSum, "-": bpSum,
	"*": bpProduct, "/": bpProduct, "%": bpProduct,
	"++": bpPostfix, "--": bpPostfix,
	"(": bpCall, "[": bpCall, ".": bpCall,
}

// parser is a Pratt parser over a pre-scanned token slice.
type parser struct {
	toks []chartscript.Token
	pos  int
}

// bailout carries a syntax error up to the entry points.
type bailout struct {
	err *ParseError
}

// Parse parses a routine body.
func Parse(src string) (prog *Program, err error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	defer p.recover(&err)
	prog = &Program{}
	for !p.atEOF() {
		prog.Stmts = append(prog.Stmts, p.statement())
	}
	tracer().Debugf("parsed program with %d statements", len(prog.Stmts))
	return prog, nil
}

// ParseExpr parses a single expression, which must span all of src.
func ParseExpr(src string) (x Expr, err error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	defer p.recover(&err)
	x = p.expr(bpNone)
	if !p.atEOF() {
		p.failf(p.peek(), "unexpected %q after expression", p.peek().Lexeme())
	}
	return x, nil
}

func (p *parser) recover(err *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*err = b.err
	}
}

func (p *parser) failf(tok chartscript.Token, format string, args ...interface{}) {
	panic(bailout{&ParseError{Pos: tok.Pos(), Msg: fmt.Sprintf(format, args...)}})
}

// --- Token helpers ---------------------------------------------------------

func (p *parser) peek() chartscript.Token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) chartscript.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() chartscript.Token {
	tok := p.toks[p.pos]
	if tok.TokType() != scanner.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) atEOF() bool {
	return p.peek().TokType() == scanner.EOF
}

func isPunct(tok chartscript.Token, lexeme string) bool {
	return tok.TokType() == TokPunct && tok.Lexeme() == lexeme
}

func isKeyword(tok chartscript.Token, lexeme string) bool {
	return tok.TokType() == TokKeyword && tok.Lexeme() == lexeme
}

func (p *parser) accept(lexeme string) bool {
	if isPunct(p.peek(), lexeme) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(lexeme string) chartscript.Token {
	tok := p.peek()
	if !isPunct(tok, lexeme) {
		p.failf(tok, "expected %q, found %s", lexeme, describe(tok))
	}
	return p.next()
}

func (p *parser) ident() chartscript.Token {
	tok := p.peek()
	if tok.TokType() != TokIdent {
		p.failf(tok, "expected identifier, found %s", describe(tok))
	}
	return p.next()
}

func describe(tok chartscript.Token) string {
	if tok.TokType() == scanner.EOF {
		return "end of input"
	}
	return strconv.Quote(tok.Lexeme())
}

// semicolon consumes an optional statement terminator.
func (p *parser) semicolon() {
	p.accept(";")
}

// --- Statements ------------------------------------------------------------

func (p *parser) statement() Stmt {
	tok := p.peek()
	switch {
	case isKeyword(tok, "var"), isKeyword(tok, "let"), isKeyword(tok, "const"):
		s := p.varDecl()
		p.semicolon()
		return s
	case isKeyword(tok, "if"):
		return p.ifStmt()
	case isKeyword(tok, "for"):
		return p.forStmt()
	case isKeyword(tok, "while"):
		p.next()
		p.expect("(")
		test := p.expr(bpNone)
		p.expect(")")
		return &While{at: at{tok.Pos()}, Test: test, Body: p.statement()}
	case isKeyword(tok, "break"):
		p.next()
		p.semicolon()
		return &Break{at: at{tok.Pos()}}
	case isKeyword(tok, "continue"):
		p.next()
		p.semicolon()
		return &Continue{at: at{tok.Pos()}}
	case isKeyword(tok, "return"):
		p.next()
		r := &Return{at: at{tok.Pos()}}
		nx := p.peek()
		if !isPunct(nx, ";") && !isPunct(nx, "}") && nx.TokType() != scanner.EOF &&
			nx.Pos().Line == tok.Pos().Line {
			r.X = p.expr(bpNone)
		}
		p.semicolon()
		return r
	case isKeyword(tok, "function") && p.peekAt(1).TokType() == TokIdent:
		fn := p.funcLit()
		return &FuncDecl{at: at{tok.Pos()}, Fn: fn}
	case isPunct(tok, "{"):
		return p.block()
	case isPunct(tok, ";"):
		p.next()
		return &Empty{at: at{tok.Pos()}}
	}
	x := p.expr(bpNone)
	p.semicolon()
	return &ExprStmt{at: at{tok.Pos()}, X: x}
}

func (p *parser) block() *Block {
	tok := p.expect("{")
	b := &Block{at: at{tok.Pos()}}
	for !isPunct(p.peek(), "}") {
		if p.atEOF() {
			p.failf(p.peek(), "unterminated block opened at %s", tok.Pos())
		}
		b.Stmts = append(b.Stmts, p.statement())
	}
	p.next()
	return b
}

func (p *parser) varDecl() *VarDecl {
	tok := p.next()
	d := &VarDecl{at: at{tok.Pos()}, Kind: tok.Lexeme()}
	for {
		name := p.ident()
		var init Expr
		if p.accept("=") {
			init = p.expr(bpAssign)
		}
		d.Names = append(d.Names, name.Lexeme())
		d.Inits = append(d.Inits, init)
		if !p.accept(",") {
			break
		}
	}
	return d
}

func (p *parser) ifStmt() Stmt {
	tok := p.next()
	p.expect("(")
	test := p.expr(bpNone)
	p.expect(")")
	s := &If{at: at{tok.Pos()}, Test: test, Then: p.statement()}
	if isKeyword(p.peek(), "else") {
		p.next()
		s.Else = p.statement()
	}
	return s
}

func (p *parser) forStmt() Stmt {
	tok := p.next()
	p.expect("(")
	// for (const x of xs) / for (x of xs)
	decl := isKeyword(p.peek(), "var") || isKeyword(p.peek(), "let") || isKeyword(p.peek(), "const")
	off := 0
	if decl {
		off = 1
	}
	if p.peekAt(off).TokType() == TokIdent && isKeyword(p.peekAt(off+1), "of") {
		if decl {
			p.next()
		}
		name := p.next().Lexeme()
		p.next()
		iter := p.expr(bpNone)
		p.expect(")")
		return &ForOf{at: at{tok.Pos()}, Name: name, Iter: iter, Body: p.statement()}
	}
	s := &For{at: at{tok.Pos()}}
	if !isPunct(p.peek(), ";") {
		if decl {
			s.Init = p.varDecl()
		} else {
			init := p.peek()
			s.Init = &ExprStmt{at: at{init.Pos()}, X: p.expr(bpNone)}
		}
	}
	p.expect(";")
	if !isPunct(p.peek(), ";") {
		s.Test = p.expr(bpNone)
	}
	p.expect(";")
	if !isPunct(p.peek(), ")") {
		s.Post = p.expr(bpNone)
	}
	p.expect(")")
	s.Body = p.statement()
	return s
}

// --- Expressions -----------------------------------------------------------

// expr is the Pratt loop: parse a prefix expression, then fold in infix and
// postfix operators as long as they bind tighter than minBP.
func (p *parser) expr(minBP int) Expr {
	left := p.prefix()
	for {
		tok := p.peek()
		if tok.TokType() != TokPunct {
			return left
		}
		op := tok.Lexeme()
		lbp, ok := infixBP[op]
		if !ok || lbp <= minBP {
			return left
		}
		if (op == "++" || op == "--") && tok.Pos().Line != p.toks[p.pos-1].Pos().Line {
			return left // belongs to the next statement
		}
		p.next()
		left = p.infix(left, tok, lbp)
	}
}

func (p *parser) infix(left Expr, tok chartscript.Token, lbp int) Expr {
	pos := at{tok.Pos()}
	switch op := tok.Lexeme(); op {
	case "=", "+=", "-=", "*=", "/=", "%=":
		checkTarget(p, left, tok)
		return &Assign{at: pos, Op: op, Target: left, Value: p.expr(lbp - 1)}
	case "?":
		then := p.expr(bpNone)
		p.expect(":")
		return &Cond{at: pos, Test: left, Then: then, Else: p.expr(lbp - 1)}
	case "&&", "||", "??":
		return &Logical{at: pos, Op: op, L: left, R: p.expr(lbp)}
	case "++", "--":
		checkTarget(p, left, tok)
		return &Update{at: pos, Op: op, Target: left}
	case "(":
		return &Call{at: pos, Fn: left, Args: p.exprList(")")}
	case "[":
		idx := p.expr(bpNone)
		p.expect("]")
		return &Index{at: pos, X: left, Index: idx}
	case ".":
		name := p.next()
		if name.TokType() != TokIdent && name.TokType() != TokKeyword {
			p.failf(name, "expected property name, found %s", describe(name))
		}
		return &Member{at: pos, X: left, Name: name.Lexeme()}
	default:
		return &Binary{at: pos, Op: op, L: left, R: p.expr(lbp)}
	}
}

func checkTarget(p *parser, x Expr, tok chartscript.Token) {
	switch x.(type) {
	case *Ident, *Member, *Index:
		return
	}
	p.failf(tok, "invalid target for %q", tok.Lexeme())
}

func (p *parser) prefix() Expr {
	tok := p.next()
	pos := at{tok.Pos()}
	switch tok.TokType() {
	case TokNumber:
		f, err := strconv.ParseFloat(tok.Lexeme(), 64)
		if err != nil {
			p.failf(tok, "malformed number %s", tok.Lexeme())
		}
		return &NumberLit{at: pos, Val: f}
	case TokString:
		s, err := Unquote(tok.Lexeme())
		if err != nil {
			p.failf(tok, "%v", err)
		}
		return &StringLit{at: pos, Val: s}
	case TokIdent:
		if isPunct(p.peek(), "=>") {
			p.next()
			return p.arrowBody(pos, []string{tok.Lexeme()})
		}
		return &Ident{at: pos, Name: tok.Lexeme()}
	case TokKeyword:
		switch tok.Lexeme() {
		case "true", "false":
			return &BoolLit{at: pos, Val: tok.Lexeme() == "true"}
		case "null", "undefined":
			return &NullLit{at: pos}
		case "function":
			p.pos--
			return p.funcLit()
		}
	case TokPunct:
		switch op := tok.Lexeme(); op {
		case "(":
			if params, ok := p.arrowParams(); ok {
				return p.arrowBody(pos, params)
			}
			x := p.expr(bpNone)
			p.expect(")")
			return x
		case "[":
			return &ArrayLit{at: pos, Elems: p.exprList("]")}
		case "{":
			return p.objectLit(pos)
		case "!", "-", "+":
			return &Unary{at: pos, Op: op, X: p.expr(bpPrefix)}
		case "++", "--":
			x := p.expr(bpPrefix)
			checkTarget(p, x, tok)
			return &Update{at: pos, Op: op, Prefix: true, Target: x}
		}
	}
	p.failf(tok, "unexpected %s", describe(tok))
	return nil
}

// exprList parses comma-separated expressions up to the closing delimiter,
// allowing a trailing comma.
func (p *parser) exprList(closer string) []Expr {
	var xs []Expr
	for !p.accept(closer) {
		xs = append(xs, p.expr(bpAssign-1))
		if !p.accept(",") {
			p.expect(closer)
			break
		}
	}
	return xs
}

func (p *parser) objectLit(pos at) Expr {
	o := &ObjectLit{at: pos}
	for !p.accept("}") {
		key := p.next()
		var name string
		switch key.TokType() {
		case TokIdent, TokKeyword, TokNumber:
			name = key.Lexeme()
		case TokString:
			name, _ = Unquote(key.Lexeme())
		default:
			p.failf(key, "expected property name, found %s", describe(key))
		}
		if p.accept(":") {
			o.Keys = append(o.Keys, name)
			o.Vals = append(o.Vals, p.expr(bpAssign-1))
		} else if key.TokType() == TokIdent { // shorthand {a}
			o.Keys = append(o.Keys, name)
			o.Vals = append(o.Vals, &Ident{at: at{key.Pos()}, Name: name})
		} else {
			p.failf(p.peek(), "expected ':' after property name %q", name)
		}
		if !p.accept(",") {
			p.expect("}")
			break
		}
	}
	return o
}

func (p *parser) funcLit() *FuncLit {
	tok := p.next() // 'function'
	fn := &FuncLit{at: at{tok.Pos()}}
	if p.peek().TokType() == TokIdent {
		fn.Name = p.next().Lexeme()
	}
	p.expect("(")
	for !p.accept(")") {
		fn.Params = append(fn.Params, p.ident().Lexeme())
		if !p.accept(",") {
			p.expect(")")
			break
		}
	}
	fn.Body = p.block()
	return fn
}

// arrowParams checks if the tokens following an opening parenthesis form the
// parameter list of an arrow function. If so, they are consumed.
func (p *parser) arrowParams() ([]string, bool) {
	var params []string
	i := 0
	for {
		tok := p.peekAt(i)
		if isPunct(tok, ")") {
			break
		}
		if tok.TokType() != TokIdent {
			return nil, false
		}
		params = append(params, tok.Lexeme())
		i++
		if isPunct(p.peekAt(i), ",") {
			i++
		} else if !isPunct(p.peekAt(i), ")") {
			return nil, false
		}
	}
	if !isPunct(p.peekAt(i+1), "=>") {
		return nil, false
	}
	p.pos += i + 2
	return params, true
}

func (p *parser) arrowBody(pos at, params []string) Expr {
	fn := &FuncLit{at: pos, Name: "=>", Params: params}
	if isPunct(p.peek(), "{") {
		fn.Body = p.block()
	} else {
		fn.Expr = p.expr(bpAssign - 1)
	}
	return fn
}
