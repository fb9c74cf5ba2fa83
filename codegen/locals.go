package codegen

import (
	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/runtime"
	"golang.org/x/exp/slices"
)

// analyzer finds routine locals. Top-level statements are analyzed before
// function bodies, so a function assigning to a name the routine assigns
// to as well refers to the routine local.
type analyzer struct {
	scopes  runtime.ScopeTree
	routine *runtime.Scope
	locals  []string
	pending []closure
}

type closure struct {
	fn    *dsl.FuncLit
	scope *runtime.Scope
}

func findLocals(prog *dsl.Program, bindings []Binding) []string {
	a := &analyzer{}
	bound := a.scopes.PushNewScope("bindings")
	for _, b := range bindings {
		bound.DefineTag(b.Name)
	}
	a.routine = a.scopes.PushNewScope("routine")
	for _, s := range prog.Stmts {
		a.stmt(s)
	}
	for len(a.pending) > 0 {
		c := a.pending[0]
		a.pending = a.pending[1:]
		a.scopes.ScopeTOS = c.scope
		fsc := a.scopes.PushNewScope("function")
		for _, p := range c.fn.Params {
			fsc.DefineTag(p)
		}
		if c.fn.Body != nil {
			a.stmt(c.fn.Body)
		} else {
			a.expr(c.fn.Expr)
		}
		a.scopes.PopScope()
	}
	slices.Sort(a.locals)
	return a.locals
}

// declare defines name in the current scope, recording it as a local if
// the current scope is the routine scope.
func (a *analyzer) declare(name string) {
	sc := a.scopes.Current()
	if _, exists := sc.DefineTag(name); exists == nil && sc == a.routine {
		a.locals = append(a.locals, name)
	}
}

func (a *analyzer) assignTo(target dsl.Expr) {
	if id, ok := target.(*dsl.Ident); ok {
		if tag, _ := a.scopes.Current().ResolveTag(id.Name); tag == nil {
			a.declare(id.Name)
		}
	}
}

func (a *analyzer) stmt(s dsl.Stmt) {
	if s == nil {
		return
	}
	switch t := s.(type) {
	case *dsl.VarDecl:
		for i, name := range t.Names {
			a.expr(t.Inits[i])
			a.declare(name)
		}
	case *dsl.FuncDecl:
		a.declare(t.Fn.Name)
		a.expr(t.Fn)
	case *dsl.ForOf:
		a.declare(t.Name)
		a.expr(t.Iter)
		a.stmt(t.Body)
	default:
		dsl.Walk(s, a.visit)
	}
}

func (a *analyzer) expr(x dsl.Expr) {
	if x != nil {
		dsl.Walk(x, a.visit)
	}
}

// visit is the dsl.Walk callback. Function literals are queued; declaring
// statements nested into blocks are routed back to stmt.
func (a *analyzer) visit(n dsl.Node) bool {
	switch t := n.(type) {
	case *dsl.FuncLit:
		a.pending = append(a.pending, closure{fn: t, scope: a.scopes.Current()})
		return false
	case *dsl.VarDecl, *dsl.FuncDecl, *dsl.ForOf:
		a.stmt(t.(dsl.Stmt))
		return false
	case *dsl.Assign:
		a.assignTo(t.Target)
	case *dsl.Update:
		a.assignTo(t.Target)
	}
	return true
}
