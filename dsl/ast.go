package dsl

import "github.com/npillmayer/chartscript"

// Node is the common interface of AST nodes.
type Node interface {
	Pos() chartscript.Position
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

type at struct {
	pos chartscript.Position
}

func (a at) Pos() chartscript.Position { return a.pos }

// Program is a parsed routine body.
type Program struct {
	Stmts []Stmt
}

// --- Expressions -----------------------------------------------------------

type (
	// NumberLit is a numeric literal.
	NumberLit struct {
		at
		Val float64
	}
	// StringLit is a string literal.
	StringLit struct {
		at
		Val string
	}
	// BoolLit is true or false.
	BoolLit struct {
		at
		Val bool
	}
	// NullLit is null or undefined.
	NullLit struct {
		at
	}
	// Ident is a variable reference.
	Ident struct {
		at
		Name string
	}
	// ArrayLit is [a, b, …].
	ArrayLit struct {
		at
		Elems []Expr
	}
	// ObjectLit is {k: v, …}.
	ObjectLit struct {
		at
		Keys []string
		Vals []Expr
	}
	// Unary is a prefix operation: !x, -x, +x.
	Unary struct {
		at
		Op string
		X  Expr
	}
	// Binary is an arithmetic or comparison operation.
	Binary struct {
		at
		Op   string
		L, R Expr
	}
	// Logical is a short-circuit operation: &&, ||, ??.
	Logical struct {
		at
		Op   string
		L, R Expr
	}
	// Cond is test ? then : else.
	Cond struct {
		at
		Test, Then, Else Expr
	}
	// Assign is target op value, with op one of = += -= *= /= %=.
	Assign struct {
		at
		Op     string
		Target Expr
		Value  Expr
	}
	// Update is ++x, x++, --x or x--.
	Update struct {
		at
		Op     string
		Prefix bool
		Target Expr
	}
	// Member is x.name.
	Member struct {
		at
		X    Expr
		Name string
	}
	// Index is x[index].
	Index struct {
		at
		X     Expr
		Index Expr
	}
	// Call is fn(args…).
	Call struct {
		at
		Fn   Expr
		Args []Expr
	}
	// FuncLit is a function expression, either with a statement body or,
	// for arrow functions, with an expression body.
	FuncLit struct {
		at
		Name   string
		Params []string
		Body   *Block
		Expr   Expr
	}
)

func (*NumberLit) exprNode() {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*NullLit) exprNode()   {}
func (*Ident) exprNode()     {}
func (*ArrayLit) exprNode()  {}
func (*ObjectLit) exprNode() {}
func (*Unary) exprNode()     {}
func (*Binary) exprNode()    {}
func (*Logical) exprNode()   {}
func (*Cond) exprNode()      {}
func (*Assign) exprNode()    {}
func (*Update) exprNode()    {}
func (*Member) exprNode()    {}
func (*Index) exprNode()     {}
func (*Call) exprNode()      {}
func (*FuncLit) exprNode()   {}

// --- Statements ------------------------------------------------------------

type (
	// ExprStmt is an expression evaluated for its side effects.
	ExprStmt struct {
		at
		X Expr
	}
	// VarDecl is var/let/const a = 1, b, ….
	VarDecl struct {
		at
		Kind  string
		Names []string
		Inits []Expr // nil entries for declarations without initializer
	}
	// Block is { stmts }.
	Block struct {
		at
		Stmts []Stmt
	}
	// If is if (test) then else else.
	If struct {
		at
		Test Expr
		Then Stmt
		Else Stmt
	}
	// For is for (init; test; post) body.
	For struct {
		at
		Init Stmt
		Test Expr
		Post Expr
		Body Stmt
	}
	// ForOf is for (name of iter) body.
	ForOf struct {
		at
		Name string
		Iter Expr
		Body Stmt
	}
	// While is while (test) body.
	While struct {
		at
		Test Expr
		Body Stmt
	}
	// Break is break.
	Break struct {
		at
	}
	// Continue is continue.
	Continue struct {
		at
	}
	// Return is return [x].
	Return struct {
		at
		X Expr
	}
	// FuncDecl is function name(params) { body }.
	FuncDecl struct {
		at
		Fn *FuncLit
	}
	// Empty is a lone semicolon.
	Empty struct {
		at
	}
)

func (*ExprStmt) stmtNode() {}
func (*VarDecl) stmtNode()  {}
func (*Block) stmtNode()    {}
func (*If) stmtNode()       {}
func (*For) stmtNode()      {}
func (*ForOf) stmtNode()    {}
func (*While) stmtNode()    {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
func (*Return) stmtNode()   {}
func (*FuncDecl) stmtNode() {}
func (*Empty) stmtNode()    {}

// Walk traverses the AST rooted at n depth-first, calling visit for every
// node. If visit returns false, the children of that node are skipped.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	walkExprs := func(xs ...Expr) {
		for _, x := range xs {
			if x != nil {
				Walk(x, visit)
			}
		}
	}
	walkStmts := func(ss ...Stmt) {
		for _, s := range ss {
			if s != nil {
				Walk(s, visit)
			}
		}
	}
	switch t := n.(type) {
	case *ArrayLit:
		walkExprs(t.Elems...)
	case *ObjectLit:
		walkExprs(t.Vals...)
	case *Unary:
		walkExprs(t.X)
	case *Binary:
		walkExprs(t.L, t.R)
	case *Logical:
		walkExprs(t.L, t.R)
	case *Cond:
		walkExprs(t.Test, t.Then, t.Else)
	case *Assign:
		walkExprs(t.Target, t.Value)
	case *Update:
		walkExprs(t.Target)
	case *Member:
		walkExprs(t.X)
	case *Index:
		walkExprs(t.X, t.Index)
	case *Call:
		walkExprs(t.Fn)
		walkExprs(t.Args...)
	case *FuncLit:
		if t.Body != nil {
			Walk(t.Body, visit)
		}
		walkExprs(t.Expr)
	case *ExprStmt:
		walkExprs(t.X)
	case *VarDecl:
		walkExprs(t.Inits...)
	case *Block:
		walkStmts(t.Stmts...)
	case *If:
		walkExprs(t.Test)
		walkStmts(t.Then, t.Else)
	case *For:
		walkStmts(t.Init)
		walkExprs(t.Test, t.Post)
		walkStmts(t.Body)
	case *ForOf:
		walkExprs(t.Iter)
		walkStmts(t.Body)
	case *While:
		walkExprs(t.Test)
		walkStmts(t.Body)
	case *Return:
		walkExprs(t.X)
	case *FuncDecl:
		Walk(t.Fn, visit)
	}
}
