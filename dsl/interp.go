package dsl

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/chartscript"
	"github.com/npillmayer/chartscript/runtime"
)

// Defaults for interpreter limits.
const (
	DefaultMaxSteps = 5000000
	DefaultMaxDepth = 200
)

// ErrStepBudget is the cause of a RuntimeError for runs exceeding their step budget.
var ErrStepBudget = errors.New("step budget exhausted")

// Interp evaluates programs against a scope chain. An Interp is not safe
// for concurrent use; create one per run or reuse it sequentially.
type Interp struct {
	MaxSteps int
	MaxDepth int
	steps    int
	rt       *runtime.Runtime
}

// NewInterp creates an interpreter with default limits.
func NewInterp() *Interp {
	return &Interp{MaxSteps: DefaultMaxSteps, MaxDepth: DefaultMaxDepth}
}

// Steps returns the number of steps the last run took.
func (ip *Interp) Steps() int {
	return ip.steps
}

type control int

const (
	ctlNone control = iota
	ctlBreak
	ctlContinue
	ctlReturn
)

// Run executes prog in scope. Top-level declarations and assignments to
// unknown names are stored in scope. Returns the value of a top-level
// return statement, or null.
//
// Run never panics because of script behaviour: panics of native functions
// are converted to a *RuntimeError.
func (ip *Interp) Run(prog *Program, scope *runtime.Scope) (result Value, err error) {
	ip.begin(scope)
	defer ip.catch(&err)
	_, v, err := ip.execList(prog.Stmts, scope)
	if err != nil {
		return Null, err
	}
	return v, nil
}

// Eval evaluates a single expression in scope.
func (ip *Interp) Eval(x Expr, scope *runtime.Scope) (result Value, err error) {
	ip.begin(scope)
	defer ip.catch(&err)
	return ip.eval(x, scope)
}

// Call calls a function value with arguments, outside of a run.
func (ip *Interp) Call(fn Value, args []Value) (result Value, err error) {
	if ip.rt == nil {
		ip.begin(nil)
	}
	defer ip.catch(&err)
	return ip.call(chartscript.Position{}, fn, args)
}

func (ip *Interp) begin(scope *runtime.Scope) {
	ip.steps = 0
	ip.rt = runtime.NewRuntimeEnvironment(scope, ip.MaxDepth)
}

func (ip *Interp) catch(err *error) {
	if r := recover(); r != nil {
		tracer().Errorf("recovered from panic in routine: %v", r)
		*err = &RuntimeError{Msg: fmt.Sprintf("internal error: %v", r)}
	}
}

func (ip *Interp) step(n Node) error {
	return ip.charge(n, 1)
}

// charge counts k steps against the budget.
func (ip *Interp) charge(n Node, k int) error {
	ip.steps += k
	if ip.MaxSteps > 0 && ip.steps > ip.MaxSteps {
		return &RuntimeError{Pos: n.Pos(), Msg: ErrStepBudget.Error(), Cause: ErrStepBudget}
	}
	return nil
}

// --- Statements ------------------------------------------------------------

func (ip *Interp) execList(stmts []Stmt, scope *runtime.Scope) (control, Value, error) {
	for _, s := range stmts {
		ctl, v, err := ip.exec(s, scope)
		if err != nil || ctl != ctlNone {
			return ctl, v, err
		}
	}
	return ctlNone, Null, nil
}

func (ip *Interp) exec(s Stmt, scope *runtime.Scope) (control, Value, error) {
	if err := ip.step(s); err != nil {
		return ctlNone, Null, err
	}
	switch t := s.(type) {
	case *ExprStmt:
		_, err := ip.eval(t.X, scope)
		return ctlNone, Null, err
	case *VarDecl:
		for i, name := range t.Names {
			v := Null
			if t.Inits[i] != nil {
				var err error
				if v, err = ip.eval(t.Inits[i], scope); err != nil {
					return ctlNone, Null, err
				}
			}
			tag, _ := scope.DefineTag(name)
			tag.UData = v
		}
		return ctlNone, Null, nil
	case *Block:
		return ip.execList(t.Stmts, scope)
	case *If:
		test, err := ip.eval(t.Test, scope)
		if err != nil {
			return ctlNone, Null, err
		}
		if test.Truthy() {
			return ip.exec(t.Then, scope)
		} else if t.Else != nil {
			return ip.exec(t.Else, scope)
		}
		return ctlNone, Null, nil
	case *For:
		return ip.execFor(t, scope)
	case *ForOf:
		return ip.execForOf(t, scope)
	case *While:
		for {
			test, err := ip.eval(t.Test, scope)
			if err != nil {
				return ctlNone, Null, err
			}
			if !test.Truthy() {
				return ctlNone, Null, nil
			}
			ctl, v, err := ip.exec(t.Body, scope)
			if err != nil || ctl == ctlReturn {
				return ctl, v, err
			}
			if ctl == ctlBreak {
				return ctlNone, Null, nil
			}
		}
	case *Break:
		return ctlBreak, Null, nil
	case *Continue:
		return ctlContinue, Null, nil
	case *Return:
		if t.X == nil {
			return ctlReturn, Null, nil
		}
		v, err := ip.eval(t.X, scope)
		return ctlReturn, v, err
	case *FuncDecl:
		tag, _ := scope.DefineTag(t.Fn.Name)
		tag.UData = ip.closure(t.Fn, scope)
		return ctlNone, Null, nil
	case *Empty:
		return ctlNone, Null, nil
	}
	return ctlNone, Null, runtimeErrorf(s.Pos(), "unsupported statement %T", s)
}

func (ip *Interp) execFor(t *For, scope *runtime.Scope) (control, Value, error) {
	if t.Init != nil {
		if _, _, err := ip.exec(t.Init, scope); err != nil {
			return ctlNone, Null, err
		}
	}
	for {
		if t.Test != nil {
			test, err := ip.eval(t.Test, scope)
			if err != nil {
				return ctlNone, Null, err
			}
			if !test.Truthy() {
				return ctlNone, Null, nil
			}
		}
		ctl, v, err := ip.exec(t.Body, scope)
		if err != nil || ctl == ctlReturn {
			return ctl, v, err
		}
		if ctl == ctlBreak {
			return ctlNone, Null, nil
		}
		if t.Post != nil {
			if _, err := ip.eval(t.Post, scope); err != nil {
				return ctlNone, Null, err
			}
		}
	}
}

func (ip *Interp) execForOf(t *ForOf, scope *runtime.Scope) (control, Value, error) {
	iter, err := ip.eval(t.Iter, scope)
	if err != nil {
		return ctlNone, Null, err
	}
	var elems []Value
	switch iter.Tag {
	case VTArray:
		elems = iter.AsArray().Values()
	case VTStr:
		for _, r := range iter.AsStr() {
			elems = append(elems, Str(string(r)))
		}
	case VTObject:
		for _, k := range iter.AsObject().Keys() {
			elems = append(elems, Str(k))
		}
	case VTNull:
	default:
		return ctlNone, Null, runtimeErrorf(t.Pos(), "%s is not iterable", iter.Tag)
	}
	tag, _ := scope.ResolveTag(t.Name)
	if tag == nil {
		tag, _ = scope.DefineTag(t.Name)
	}
	for _, e := range elems {
		if err := ip.step(t); err != nil {
			return ctlNone, Null, err
		}
		tag.Set(e)
		ctl, v, err := ip.exec(t.Body, scope)
		if err != nil || ctl == ctlReturn {
			return ctl, v, err
		}
		if ctl == ctlBreak {
			break
		}
	}
	return ctlNone, Null, nil
}

// --- Expressions -----------------------------------------------------------

func (ip *Interp) eval(x Expr, scope *runtime.Scope) (Value, error) {
	switch t := x.(type) {
	case *NumberLit:
		return Num(t.Val), nil
	case *StringLit:
		return Str(t.Val), nil
	case *BoolLit:
		return Bool(t.Val), nil
	case *NullLit:
		return Null, nil
	case *Ident:
		tag, _ := scope.ResolveTag(t.Name)
		if tag == nil {
			return Null, runtimeErrorf(t.Pos(), "%s is not defined", t.Name)
		}
		return tagValue(tag), nil
	case *ArrayLit:
		elems := make([]Value, len(t.Elems))
		for i, e := range t.Elems {
			v, err := ip.eval(e, scope)
			if err != nil {
				return Null, err
			}
			elems[i] = v
		}
		return Arr(NewArray(elems)), nil
	case *ObjectLit:
		o := NewObject()
		for i, k := range t.Keys {
			v, err := ip.eval(t.Vals[i], scope)
			if err != nil {
				return Null, err
			}
			o.Set(k, v)
		}
		return Obj(o), nil
	case *Unary:
		v, err := ip.eval(t.X, scope)
		if err != nil {
			return Null, err
		}
		return unary(t, v)
	case *Binary:
		l, err := ip.eval(t.L, scope)
		if err != nil {
			return Null, err
		}
		r, err := ip.eval(t.R, scope)
		if err != nil {
			return Null, err
		}
		return binary(t.Pos(), t.Op, l, r)
	case *Logical:
		l, err := ip.eval(t.L, scope)
		if err != nil {
			return Null, err
		}
		switch {
		case t.Op == "&&" && !l.Truthy(), t.Op == "||" && l.Truthy(), t.Op == "??" && !l.IsNull():
			return l, nil
		}
		return ip.eval(t.R, scope)
	case *Cond:
		test, err := ip.eval(t.Test, scope)
		if err != nil {
			return Null, err
		}
		if test.Truthy() {
			return ip.eval(t.Then, scope)
		}
		return ip.eval(t.Else, scope)
	case *Assign:
		return ip.assign(t, scope)
	case *Update:
		return ip.update(t, scope)
	case *Member:
		recv, err := ip.eval(t.X, scope)
		if err != nil {
			return Null, err
		}
		return property(recv, t.Name), nil
	case *Index:
		recv, err := ip.eval(t.X, scope)
		if err != nil {
			return Null, err
		}
		idx, err := ip.eval(t.Index, scope)
		if err != nil {
			return Null, err
		}
		return index(recv, idx), nil
	case *Call:
		return ip.evalCall(t, scope)
	case *FuncLit:
		return ip.closure(t, scope), nil
	}
	return Null, runtimeErrorf(x.Pos(), "unsupported expression %T", x)
}

func tagValue(tag *runtime.Tag) Value {
	switch v := tag.Value().(type) {
	case Value:
		return v
	default:
		return FromGo(v)
	}
}

func (ip *Interp) closure(fn *FuncLit, scope *runtime.Scope) Value {
	name := fn.Name
	if name == "" {
		name = "anonymous"
	}
	return Fn(&Func{Name: name, Params: fn.Params, Body: fn.Body, Expr: fn.Expr, Scope: scope})
}

func (ip *Interp) assign(t *Assign, scope *runtime.Scope) (Value, error) {
	v, err := ip.eval(t.Value, scope)
	if err != nil {
		return Null, err
	}
	if t.Op != "=" {
		old, err := ip.eval(t.Target, scope)
		if err != nil {
			return Null, err
		}
		if v, err = binary(t.Pos(), t.Op[:1], old, v); err != nil {
			return Null, err
		}
	}
	return v, ip.store(t.Target, v, scope)
}

func (ip *Interp) update(t *Update, scope *runtime.Scope) (Value, error) {
	old, err := ip.eval(t.Target, scope)
	if err != nil {
		return Null, err
	}
	f, ok := old.Number()
	if !ok {
		return Null, runtimeErrorf(t.Pos(), "cannot apply %s to %s", t.Op, old.Tag)
	}
	nv := f + 1
	if t.Op == "--" {
		nv = f - 1
	}
	if err := ip.store(t.Target, Num(nv), scope); err != nil {
		return Null, err
	}
	if t.Prefix {
		return Num(nv), nil
	}
	return Num(f), nil
}

// store writes v into an assignment target.
func (ip *Interp) store(target Expr, v Value, scope *runtime.Scope) error {
	switch t := target.(type) {
	case *Ident:
		tag, _ := scope.ResolveTag(t.Name)
		if tag == nil {
			tag, _ = scope.DefineTag(t.Name)
		}
		tag.Set(v)
		return nil
	case *Member:
		recv, err := ip.eval(t.X, scope)
		if err != nil {
			return err
		}
		if recv.Tag != VTObject {
			return runtimeErrorf(t.Pos(), "cannot set property %q of %s", t.Name, recv.Tag)
		}
		recv.AsObject().Set(t.Name, v)
		return nil
	case *Index:
		recv, err := ip.eval(t.X, scope)
		if err != nil {
			return err
		}
		idx, err := ip.eval(t.Index, scope)
		if err != nil {
			return err
		}
		switch recv.Tag {
		case VTArray:
			i, ok := idx.Int()
			arr := recv.AsArray()
			if !ok || i < 0 || i >= MaxArrayLen {
				return runtimeErrorf(t.Pos(), "invalid array index %s", idx)
			}
			if gap := i - arr.Len(); gap > 0 {
				// every null filled into the gap is a step
				if err := ip.charge(t, gap); err != nil {
					return err
				}
			}
			if !arr.Set(i, v) {
				return runtimeErrorf(t.Pos(), "invalid array index %s", idx)
			}
			return nil
		case VTObject:
			recv.AsObject().Set(idx.String(), v)
			return nil
		}
		return runtimeErrorf(t.Pos(), "cannot index into %s", recv.Tag)
	}
	return runtimeErrorf(target.Pos(), "invalid assignment target")
}

func (ip *Interp) evalCall(t *Call, scope *runtime.Scope) (Value, error) {
	if err := ip.step(t); err != nil {
		return Null, err
	}
	var fn, recv Value
	var method string
	var err error
	if m, ok := t.Fn.(*Member); ok {
		if recv, err = ip.eval(m.X, scope); err != nil {
			return Null, err
		}
		method = m.Name
		fn = property(recv, method)
	} else if fn, err = ip.eval(t.Fn, scope); err != nil {
		return Null, err
	}
	args := make([]Value, len(t.Args))
	for i, a := range t.Args {
		if args[i], err = ip.eval(a, scope); err != nil {
			return Null, err
		}
	}
	if fn.Tag != VTFunc && method != "" {
		if v, ok, err := ip.callMethod(t.Pos(), recv, method, args); ok {
			return v, err
		}
		if recv.IsNull() {
			return Null, runtimeErrorf(t.Pos(), "cannot call %s of null", method)
		}
		return Null, runtimeErrorf(t.Pos(), "%s has no method %s", recv.Tag, method)
	}
	return ip.call(t.Pos(), fn, args)
}

func (ip *Interp) call(pos chartscript.Position, fn Value, args []Value) (Value, error) {
	f := fn.AsFunc()
	if f == nil {
		return Null, runtimeErrorf(pos, "%s is not a function", fn.Tag)
	}
	if f.Native != nil {
		v, err := f.Native(args)
		if err != nil {
			var rerr *RuntimeError
			if errors.As(err, &rerr) {
				return Null, err
			}
			return Null, &RuntimeError{Pos: pos, Msg: fmt.Sprintf("%s: %v", f.Name, err), Cause: err}
		}
		return v, nil
	}
	mf, err := ip.rt.Call(f.Name, f.Scope)
	if err != nil {
		return Null, &RuntimeError{Pos: pos, Msg: err.Error(), Cause: err}
	}
	defer ip.rt.Return(mf)
	for i, p := range f.Params {
		tag, _ := mf.Scope.DefineTag(p)
		tag.UData = Arg(args, i)
	}
	if f.Expr != nil {
		return ip.eval(f.Expr, mf.Scope)
	}
	ctl, v, err := ip.execList(f.Body.Stmts, mf.Scope)
	if err != nil {
		return Null, err
	}
	if ctl == ctlReturn {
		return v, nil
	}
	return Null, nil
}

// --- Operators -------------------------------------------------------------

func unary(t *Unary, v Value) (Value, error) {
	switch t.Op {
	case "!":
		return Bool(!v.Truthy()), nil
	case "-", "+":
		if v.IsNull() {
			return Null, nil
		}
		f, ok := v.Number()
		if !ok {
			return Null, runtimeErrorf(t.Pos(), "cannot apply %s to %s", t.Op, v.Tag)
		}
		if t.Op == "-" {
			f = -f
		}
		return Num(f), nil
	}
	return Null, runtimeErrorf(t.Pos(), "unknown operator %s", t.Op)
}

func binary(pos chartscript.Position, op string, l, r Value) (Value, error) {
	switch op {
	case "==", "===":
		return Bool(Equal(l, r)), nil
	case "!=", "!==":
		return Bool(!Equal(l, r)), nil
	case "+":
		if l.Tag == VTStr || r.Tag == VTStr {
			return Str(l.String() + r.String()), nil
		}
	case "<", "<=", ">", ">=":
		return compare(op, l, r), nil
	}
	if l.IsNull() || r.IsNull() {
		return Null, nil
	}
	a, ok1 := numeric(l)
	b, ok2 := numeric(r)
	if !ok1 || !ok2 {
		return Null, runtimeErrorf(pos, "invalid operands %s %s %s", l.Tag, op, r.Tag)
	}
	switch op {
	case "+":
		return Num(a + b), nil
	case "-":
		return Num(a - b), nil
	case "*":
		return Num(a * b), nil
	case "/":
		return Num(a / b), nil
	case "%":
		return Num(math.Mod(a, b)), nil
	}
	return Null, runtimeErrorf(pos, "unknown operator %s", op)
}

// numeric accepts numbers and booleans as arithmetic operands.
func numeric(v Value) (float64, bool) {
	if v.Tag != VTNum && v.Tag != VTBool {
		return 0, false
	}
	return v.Number()
}

func compare(op string, l, r Value) Value {
	if l.Tag == VTStr && r.Tag == VTStr {
		a, b := l.AsStr(), r.AsStr()
		switch op {
		case "<":
			return Bool(a < b)
		case "<=":
			return Bool(a <= b)
		case ">":
			return Bool(a > b)
		}
		return Bool(a >= b)
	}
	a, ok1 := numeric(l)
	b, ok2 := numeric(r)
	if !ok1 || !ok2 {
		return Bool(false)
	}
	switch op {
	case "<":
		return Bool(a < b)
	case "<=":
		return Bool(a <= b)
	case ">":
		return Bool(a > b)
	}
	return Bool(a >= b)
}
