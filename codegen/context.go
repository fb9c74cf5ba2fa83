package codegen

import (
	"fmt"

	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/runtime"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Context is the per-invocation environment of a routine. The value maps are
// owned by the caller and may be mutated between invocations; routines
// read them at every access.
type Context struct {
	Channels map[string]dsl.Value
	InputVal map[string]dsl.Value
	StyleVal map[string]dsl.Value
	HTTPVal  map[string]dsl.Value
	MaxSteps int // 0 means the interpreter default
}

func (ctx *Context) source(s Source) map[string]dsl.Value {
	switch s {
	case InputSource:
		return ctx.InputVal
	case StyleSource:
		return ctx.StyleVal
	case HTTPSource:
		return ctx.HTTPVal
	}
	return ctx.Channels
}

func bind(sc *runtime.Scope, name string, m map[string]dsl.Value, key string) {
	tag, _ := sc.DefineTag(name)
	tag.Bind(func() interface{} {
		return m[key]
	})
}

// Invoke runs the routine once against a context. Runtime errors of the
// routine are returned as *dsl.RuntimeError; Invoke does not panic.
func (r *Routine) Invoke(ctx *Context) error {
	if r == nil || r.Program == nil {
		return fmt.Errorf("routine has not been generated")
	}
	bindings := runtime.NewScope("bindings", dsl.Builtins(nil))
	for _, b := range r.Bindings {
		bind(bindings, b.Name, ctx.source(b.Source), b.Key)
	}
	sc := runtime.NewScope("routine", bindings)
	for _, name := range r.Locals {
		tag, _ := sc.DefineTag(name)
		tag.Set(dsl.Null)
	}
	ip := dsl.NewInterp()
	if ctx.MaxSteps > 0 {
		ip.MaxSteps = ctx.MaxSteps
	}
	_, err := ip.Run(r.Program, sc)
	tracer().Debugf("routine #%d ran %d steps", r.ID, ip.Steps())
	return err
}

// EvalArgs evaluates the raw argument text of an HTTP call against a
// context. All keys of the context's maps are visible, channels first, so
// arguments may refer to inputs, styles and other calls' results.
func EvalArgs(raw string, ctx *Context) ([]dsl.Value, error) {
	x, err := dsl.ParseExpr("[" + raw + "]")
	if err != nil {
		return nil, fmt.Errorf("invalid call arguments: %w", err)
	}
	sc := runtime.NewScope("arguments", dsl.Builtins(nil))
	for _, m := range []map[string]dsl.Value{ctx.Channels, ctx.InputVal, ctx.StyleVal, ctx.HTTPVal} {
		keys := maps.Keys(m)
		slices.Sort(keys)
		for _, k := range keys {
			bind(sc, k, m, k)
		}
	}
	v, err := dsl.NewInterp().Eval(x, sc)
	if err != nil {
		return nil, err
	}
	if v.Tag != dsl.VTArray {
		return nil, fmt.Errorf("invalid call arguments %q", raw)
	}
	return v.AsArray().Values(), nil
}
