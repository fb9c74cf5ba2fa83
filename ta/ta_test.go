package ta

import (
	"math"
	"testing"

	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.ta")
	defer teardown()
	//
	out := SMAOf([]float64{1, 2, 3, 4, 5}, 3)
	if !math.IsNaN(out[1]) {
		t.Errorf("Expected warm-up value to be NaN, is %g", out[1])
	}
	for i, expected := range map[int]float64{2: 2, 3: 3, 4: 4} {
		if !approx(out[i], expected) {
			t.Errorf("Expected sma[%d] to be %g, is %g", i, expected, out[i])
		}
	}
}

func TestEMASeededWithSMA(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.ta")
	defer teardown()
	//
	out := EMAOf([]float64{2, 4, 6, 8}, 3)
	// seed = 4, multiplier = 0.5: 8*0.5 + 4*0.5 = 6
	if !approx(out[2], 4) || !approx(out[3], 6) {
		t.Errorf("Expected ema 4 then 6, is %g then %g", out[2], out[3])
	}
}

func TestRSI(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.ta")
	defer teardown()
	//
	up := RSIOf([]float64{1, 2, 3, 4, 5}, 3)
	if !math.IsNaN(up[2]) || up[3] != 100 {
		t.Errorf("Expected rsi of rising series to be 100 after warm-up, is %v", up)
	}
	ind := NewRSI(2)
	for _, p := range []float64{10, 11, 10} {
		ind.Update(p)
	}
	if !ind.Ready() || !approx(ind.Value(), 50) {
		t.Errorf("Expected rsi 50 for one gain and one equal loss, is %g", ind.Value())
	}
}

func TestWindowFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.ta")
	defer teardown()
	//
	s := []float64{3, 1, 4, 1, 5}
	for i, test := range []struct {
		name     string
		out      []float64
		expected float64
	}{
		{"highest", Highest(s, 3), 5},
		{"lowest", Lowest(s, 3), 1},
		{"change", Change(s, 2), 1},
		{"wma", WMA(s, 2), (1*1 + 5*2) / 3.0},
		{"stdev", Stdev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8), 2},
	} {
		last := test.out[len(test.out)-1]
		if !approx(last, test.expected) {
			t.Errorf("test #%d: Expected %s to end with %g, is %g", i, test.name, test.expected, last)
		}
	}
}

func TestCrossover(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.ta")
	defer teardown()
	//
	a := []float64{1, 2, 3, 2, 1}
	b := []float64{2, 2, 2, 2, 2}
	over, under := Crossover(a, b), Crossunder(a, b)
	if !over[2] || over[1] || over[3] {
		t.Errorf("Expected crossover only at 2, is %v", over)
	}
	if !under[4] || under[3] {
		t.Errorf("Expected crossunder only at 4, is %v", under)
	}
}

func TestNamespaceVersions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.ta")
	defer teardown()
	//
	if _, ok := Namespace(1).Get("bbands"); ok {
		t.Errorf("Expected bbands not to be part of version 1")
	}
	ns := Namespace(2)
	if ns.Len() != len(Names(2)) {
		t.Errorf("Expected %d functions in version 2, have %d", len(Names(2)), ns.Len())
	}
	fn, _ := ns.Get("sma")
	closes := dsl.FromGo([]float64{1, 2, 3})
	v, err := fn.AsFunc().Native([]dsl.Value{dsl.Arr(closes.AsArray().Reverse()), dsl.Num(2)})
	if err != nil {
		t.Fatal(err)
	}
	a := v.AsArray()
	if !a.At(0).IsNull() || a.At(2).AsNum() != 2.5 {
		t.Errorf("Expected forward sma [null, 1.5, 2.5], is %v", v)
	}
	if _, err := fn.AsFunc().Native([]dsl.Value{closes, dsl.Num(0)}); err == nil {
		t.Errorf("Expected period 0 to be rejected")
	}
}

func TestUtils(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.ta")
	defer teardown()
	//
	u := Utils()
	call := func(name string, args ...dsl.Value) dsl.Value {
		fn, _ := u.Get(name)
		v, err := fn.AsFunc().Native(args)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	s := dsl.List(dsl.Num(1), dsl.Null, dsl.Num(3))
	if v := call("avg", s); v.AsNum() != 2 {
		t.Errorf("Expected avg to skip nulls and be 2, is %v", v)
	}
	if v := call("last", s); v.AsNum() != 3 {
		t.Errorf("Expected last to be 3, is %v", v)
	}
	if v := call("nz", dsl.Null, dsl.Num(7)); v.AsNum() != 7 {
		t.Errorf("Expected nz to substitute 7, is %v", v)
	}
	if v := call("fmt", dsl.Num(3.14159), dsl.Num(3)); v.AsStr() != "3.142" {
		t.Errorf("Expected '3.142', is %v", v)
	}
}
