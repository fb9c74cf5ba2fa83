package ta

import (
	"fmt"
	"math"
	"strconv"

	"github.com/npillmayer/chartscript/dsl"
)

// Names lists the functions of the namespace for an engine version.
func Names(version int) []string {
	names := []string{"sma", "ema", "smma", "rsi", "highest", "lowest", "change"}
	if version >= 2 {
		names = append(names, "wma", "stdev", "bbands", "crossover", "crossunder")
	}
	return names
}

type periodFunc func([]float64, int) []float64

// Namespace builds the script-facing indicator object for an engine version.
// Version 1 provides sma, ema, smma, rsi, highest, lowest and change;
// version 2 adds wma, stdev, bbands, crossover and crossunder.
func Namespace(version int) *dsl.Object {
	ns := dsl.NewObject()
	def := func(name string, f periodFunc) {
		ns.Set(name, dsl.NativeFn(name, func(args []dsl.Value) (dsl.Value, error) {
			s, n, err := seriesAndPeriod(name, args)
			if err != nil {
				return dsl.Null, err
			}
			return dsl.FromGo(f(s, n)), nil
		}))
	}
	def("sma", SMAOf)
	def("ema", EMAOf)
	def("smma", SMMAOf)
	def("rsi", RSIOf)
	def("highest", Highest)
	def("lowest", Lowest)
	def("change", Change)
	if version < 2 {
		return ns
	}
	def("wma", WMA)
	def("stdev", Stdev)
	ns.Set("bbands", dsl.NativeFn("bbands", func(args []dsl.Value) (dsl.Value, error) {
		s, n, err := seriesAndPeriod("bbands", args)
		if err != nil {
			return dsl.Null, err
		}
		k := 2.0
		if f, ok := dsl.Arg(args, 2).Number(); ok && dsl.Arg(args, 2).Tag == dsl.VTNum {
			k = f
		}
		upper, middle, lower := BBands(s, n, k)
		obj := dsl.NewObject().
			Set("upper", dsl.FromGo(upper)).
			Set("middle", dsl.FromGo(middle)).
			Set("lower", dsl.FromGo(lower))
		return dsl.Obj(obj), nil
	}))
	crossFn := func(name string, f func(a, b []float64) []bool) {
		ns.Set(name, dsl.NativeFn(name, func(args []dsl.Value) (dsl.Value, error) {
			a, err := series(name, dsl.Arg(args, 0), 0)
			if err != nil {
				return dsl.Null, err
			}
			b, err := series(name, dsl.Arg(args, 1), len(a))
			if err != nil {
				return dsl.Null, err
			}
			flags := f(a, b)
			vals := make([]dsl.Value, len(flags))
			for i, c := range flags {
				vals[i] = dsl.Bool(c)
			}
			return dsl.Arr(dsl.NewArray(vals)), nil
		}))
	}
	crossFn("crossover", Crossover)
	crossFn("crossunder", Crossunder)
	tracer().Debugf("built indicator namespace v%d with %d functions", version, ns.Len())
	return ns
}

// series reads a series argument. A number is expanded to a constant series
// of length n.
func series(fn string, v dsl.Value, n int) ([]float64, error) {
	switch v.Tag {
	case dsl.VTArray:
		return v.AsArray().Floats(), nil
	case dsl.VTNum:
		s := make([]float64, n)
		for i := range s {
			s[i] = v.AsNum()
		}
		return s, nil
	}
	return nil, fmt.Errorf("%s: %w: expected series, is %s", fn, dsl.ErrArgument, v.Tag)
}

func seriesAndPeriod(fn string, args []dsl.Value) ([]float64, int, error) {
	s, err := series(fn, dsl.Arg(args, 0), 0)
	if err != nil {
		return nil, 0, err
	}
	p := dsl.Arg(args, 1)
	n, ok := p.Int()
	if p.Tag != dsl.VTNum || !ok || n < 1 {
		return nil, 0, fmt.Errorf("%s: %w: period must be a positive integer, is %s", fn, dsl.ErrArgument, p)
	}
	return s, n, nil
}

// Utils builds the utility namespace: last, sum, avg, nz and fmt.
func Utils() *dsl.Object {
	u := dsl.NewObject()
	u.Set("last", dsl.NativeFn("last", func(args []dsl.Value) (dsl.Value, error) {
		a := dsl.Arg(args, 0).AsArray()
		if a.Len() == 0 {
			return dsl.Null, nil
		}
		fwd := a.Forward()
		return fwd[len(fwd)-1], nil
	}))
	aggregate := func(name string, avg bool) {
		u.Set(name, dsl.NativeFn(name, func(args []dsl.Value) (dsl.Value, error) {
			sum, n := 0.0, 0
			for _, x := range dsl.Arg(args, 0).AsArray().Floats() {
				if !math.IsNaN(x) {
					sum += x
					n++
				}
			}
			if !avg {
				return dsl.Num(sum), nil
			}
			if n == 0 {
				return dsl.Null, nil
			}
			return dsl.Num(sum / float64(n)), nil
		}))
	}
	aggregate("sum", false)
	aggregate("avg", true)
	u.Set("nz", dsl.NativeFn("nz", func(args []dsl.Value) (dsl.Value, error) {
		v := dsl.Arg(args, 0)
		if v.IsNull() || v.Tag == dsl.VTNum && math.IsNaN(v.AsNum()) {
			if len(args) > 1 {
				return args[1], nil
			}
			return dsl.Num(0), nil
		}
		return v, nil
	}))
	u.Set("fmt", dsl.NativeFn("fmt", func(args []dsl.Value) (dsl.Value, error) {
		v := dsl.Arg(args, 0)
		if v.Tag != dsl.VTNum {
			return dsl.Str(v.String()), nil
		}
		digits := 2
		if d, ok := dsl.Arg(args, 1).Int(); ok && dsl.Arg(args, 1).Tag == dsl.VTNum && d >= 0 && d <= 12 {
			digits = d
		}
		return dsl.Str(strconv.FormatFloat(v.AsNum(), 'f', digits, 64)), nil
	}))
	return u
}
