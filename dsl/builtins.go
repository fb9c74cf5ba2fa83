package dsl

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/npillmayer/chartscript/runtime"
)

// Math returns the math namespace object: abs, min, max, floor, ceil, round,
// sqrt, pow, log, log10, exp, sign, trunc, sin, cos, atan2, PI and E.
func Math() *Object {
	m := NewObject()
	unaryFn := func(name string, f func(float64) float64) {
		m.Set(name, NativeFn(name, func(args []Value) (Value, error) {
			x, ok := Arg(args, 0).Number()
			if !ok || Arg(args, 0).IsNull() {
				return Null, nil
			}
			return Num(f(x)), nil
		}))
	}
	unaryFn("abs", math.Abs)
	unaryFn("floor", math.Floor)
	unaryFn("ceil", math.Ceil)
	unaryFn("round", func(x float64) float64 { return math.Floor(x + 0.5) })
	unaryFn("sqrt", math.Sqrt)
	unaryFn("log", math.Log)
	unaryFn("log10", math.Log10)
	unaryFn("exp", math.Exp)
	unaryFn("trunc", math.Trunc)
	unaryFn("sin", math.Sin)
	unaryFn("cos", math.Cos)
	unaryFn("sign", func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return x
	})
	m.Set("pow", NativeFn("pow", func(args []Value) (Value, error) {
		x, ok1 := Arg(args, 0).Number()
		y, ok2 := Arg(args, 1).Number()
		if !ok1 || !ok2 {
			return Null, nil
		}
		return Num(math.Pow(x, y)), nil
	}))
	m.Set("atan2", NativeFn("atan2", func(args []Value) (Value, error) {
		y, ok1 := Arg(args, 0).Number()
		x, ok2 := Arg(args, 1).Number()
		if !ok1 || !ok2 {
			return Null, nil
		}
		return Num(math.Atan2(y, x)), nil
	}))
	extremum := func(name string, better func(a, b float64) bool) {
		m.Set(name, NativeFn(name, func(args []Value) (Value, error) {
			if len(args) == 1 && args[0].Tag == VTArray {
				args = args[0].AsArray().Values()
			}
			var best Value
			for _, a := range args {
				if a.Tag != VTNum {
					continue
				}
				if best.IsNull() || better(a.AsNum(), best.AsNum()) {
					best = a
				}
			}
			return best, nil
		}))
	}
	extremum("min", func(a, b float64) bool { return a < b })
	extremum("max", func(a, b float64) bool { return a > b })
	m.Set("PI", Num(math.Pi))
	m.Set("E", Num(math.E))
	return m
}

// Builtins returns a scope with global helper functions: Number, String,
// isNaN, isNull, parseFloat, parseInt and Array.isArray. parent may be nil.
func Builtins(parent *runtime.Scope) *runtime.Scope {
	sc := runtime.NewScope("builtins", parent)
	def := func(name string, v Value) {
		tag, _ := sc.DefineTag(name)
		tag.UData = v
	}
	def("Number", NativeFn("Number", func(args []Value) (Value, error) {
		if f, ok := Arg(args, 0).Number(); ok {
			return Num(f), nil
		}
		return Num(math.NaN()), nil
	}))
	def("String", NativeFn("String", func(args []Value) (Value, error) {
		return Str(Arg(args, 0).String()), nil
	}))
	def("isNaN", NativeFn("isNaN", func(args []Value) (Value, error) {
		f, ok := Arg(args, 0).Number()
		return Bool(!ok || math.IsNaN(f)), nil
	}))
	def("isNull", NativeFn("isNull", func(args []Value) (Value, error) {
		return Bool(Arg(args, 0).IsNull()), nil
	}))
	def("parseFloat", NativeFn("parseFloat", func(args []Value) (Value, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(Arg(args, 0).String()), 64)
		if err != nil {
			return Num(math.NaN()), nil
		}
		return Num(f), nil
	}))
	def("parseInt", NativeFn("parseInt", func(args []Value) (Value, error) {
		s := strings.TrimSpace(Arg(args, 0).String())
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Num(math.Trunc(f)), nil
		}
		return Num(math.NaN()), nil
	}))
	array := NewObject()
	array.Set("isArray", NativeFn("isArray", func(args []Value) (Value, error) {
		return Bool(Arg(args, 0).Tag == VTArray), nil
	}))
	def("Array", Obj(array))
	return sc
}

// ErrArgument is returned by native functions for arguments of wrong type.
var ErrArgument = errors.New("invalid argument")
