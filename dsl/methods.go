package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/npillmayer/chartscript"
)

// property reads recv.name. Reading from null, or a missing property, yields null.
func property(recv Value, name string) Value {
	switch recv.Tag {
	case VTObject:
		v, _ := recv.AsObject().Get(name)
		return v
	case VTArray:
		if name == "length" {
			return Num(float64(recv.AsArray().Len()))
		}
	case VTStr:
		if name == "length" {
			return Num(float64(len([]rune(recv.AsStr()))))
		}
	}
	return Null
}

// index reads recv[idx]. Out-of-range and negative indices yield null.
func index(recv Value, idx Value) Value {
	switch recv.Tag {
	case VTArray:
		i, ok := idx.Int()
		if !ok {
			return Null
		}
		return recv.AsArray().At(i)
	case VTObject:
		v, _ := recv.AsObject().Get(idx.String())
		return v
	case VTStr:
		i, ok := idx.Int()
		r := []rune(recv.AsStr())
		if !ok || i < 0 || i >= len(r) {
			return Null
		}
		return Str(string(r[i]))
	}
	return Null
}

// callMethod dispatches built-in methods of arrays, strings and numbers.
// The boolean result is false if there is no such method.
func (ip *Interp) callMethod(pos chartscript.Position, recv Value, name string,
	args []Value) (Value, bool, error) {
	//
	switch recv.Tag {
	case VTArray:
		return ip.arrayMethod(pos, recv.AsArray(), name, args)
	case VTStr:
		v, ok := stringMethod(recv.AsStr(), name, args)
		return v, ok, nil
	case VTNum:
		v, ok := numberMethod(recv.AsNum(), name, args)
		return v, ok, nil
	}
	return Null, false, nil
}

func (ip *Interp) arrayMethod(pos chartscript.Position, a *Array, name string,
	args []Value) (Value, bool, error) {
	//
	switch name {
	case "push":
		for _, v := range args {
			a.Push(v)
		}
		return Num(float64(a.Len())), true, nil
	case "pop":
		return a.Pop(), true, nil
	case "slice":
		vals := a.Values()
		from, to := sliceBounds(len(vals), args)
		return Arr(NewArray(append([]Value(nil), vals[from:to]...))), true, nil
	case "indexOf":
		for i, v := range a.Values() {
			if Equal(v, Arg(args, 0)) {
				return Num(float64(i)), true, nil
			}
		}
		return Num(-1), true, nil
	case "includes":
		for _, v := range a.Values() {
			if Equal(v, Arg(args, 0)) {
				return Bool(true), true, nil
			}
		}
		return Bool(false), true, nil
	case "join":
		sep := ","
		if s := Arg(args, 0); s.Tag == VTStr {
			sep = s.AsStr()
		}
		parts := make([]string, a.Len())
		for i, v := range a.Values() {
			if !v.IsNull() {
				parts[i] = v.String()
			}
		}
		return Str(strings.Join(parts, sep)), true, nil
	case "concat":
		vals := a.Values()
		for _, arg := range args {
			if arg.Tag == VTArray {
				vals = append(vals, arg.AsArray().Values()...)
			} else {
				vals = append(vals, arg)
			}
		}
		return Arr(NewArray(vals)), true, nil
	case "reverse":
		vals := a.Values()
		for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
			vals[i], vals[j] = vals[j], vals[i]
		}
		return Arr(NewArray(vals)), true, nil
	case "map", "filter", "forEach", "find", "some", "every":
		fn := Arg(args, 0)
		var out []Value
		for i, v := range a.Values() {
			r, err := ip.call(pos, fn, []Value{v, Num(float64(i))})
			if err != nil {
				return Null, true, err
			}
			switch name {
			case "map":
				out = append(out, r)
			case "filter":
				if r.Truthy() {
					out = append(out, v)
				}
			case "find":
				if r.Truthy() {
					return v, true, nil
				}
			case "some":
				if r.Truthy() {
					return Bool(true), true, nil
				}
			case "every":
				if !r.Truthy() {
					return Bool(false), true, nil
				}
			}
		}
		switch name {
		case "map", "filter":
			if out == nil {
				out = []Value{}
			}
			return Arr(NewArray(out)), true, nil
		case "some":
			return Bool(false), true, nil
		case "every":
			return Bool(true), true, nil
		}
		return Null, true, nil
	case "reduce":
		fn := Arg(args, 0)
		vals := a.Values()
		acc, start := Arg(args, 1), 0
		if len(args) < 2 {
			if len(vals) == 0 {
				return Null, true, runtimeErrorf(pos, "reduce of empty array with no initial value")
			}
			acc, start = vals[0], 1
		}
		for i := start; i < len(vals); i++ {
			var err error
			if acc, err = ip.call(pos, fn, []Value{acc, vals[i], Num(float64(i))}); err != nil {
				return Null, true, err
			}
		}
		return acc, true, nil
	}
	return Null, false, nil
}

func sliceBounds(n int, args []Value) (int, int) {
	clamp := func(v Value, def int) int {
		i, ok := v.Int()
		if !ok {
			return def
		}
		if i < 0 {
			i += n
		}
		if i < 0 {
			return 0
		}
		if i > n {
			return n
		}
		return i
	}
	from := clamp(Arg(args, 0), 0)
	to := clamp(Arg(args, 1), n)
	if to < from {
		to = from
	}
	return from, to
}

func stringMethod(s string, name string, args []Value) (Value, bool) {
	arg := func(i int) string {
		return Arg(args, i).String()
	}
	switch name {
	case "toUpperCase":
		return Str(strings.ToUpper(s)), true
	case "toLowerCase":
		return Str(strings.ToLower(s)), true
	case "trim":
		return Str(strings.TrimSpace(s)), true
	case "includes":
		return Bool(strings.Contains(s, arg(0))), true
	case "startsWith":
		return Bool(strings.HasPrefix(s, arg(0))), true
	case "endsWith":
		return Bool(strings.HasSuffix(s, arg(0))), true
	case "indexOf":
		return Num(float64(strings.Index(s, arg(0)))), true
	case "replace":
		return Str(strings.Replace(s, arg(0), arg(1), 1)), true
	case "split":
		parts := strings.Split(s, arg(0))
		return FromGo(parts), true
	case "slice", "substring":
		r := []rune(s)
		from, to := sliceBounds(len(r), args)
		return Str(string(r[from:to])), true
	case "toString":
		return Str(s), true
	}
	return Null, false
}

func numberMethod(f float64, name string, args []Value) (Value, bool) {
	switch name {
	case "toFixed":
		digits, _ := Arg(args, 0).Int()
		if digits < 0 || digits > 20 {
			digits = 0
		}
		return Str(strconv.FormatFloat(f, 'f', digits, 64)), true
	case "toString":
		return Str(formatNumber(f)), true
	case "toPrecision":
		p, ok := Arg(args, 0).Int()
		if !ok || p < 1 {
			return Str(formatNumber(f)), true
		}
		return Str(fmt.Sprintf("%.*g", p, f)), true
	}
	return Null, false
}
