package dsl

import (
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/chartscript/runtime"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func run(t *testing.T, src string) (Value, *runtime.Scope, error) {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	scope := runtime.NewScope("routine", Builtins(nil))
	tag, _ := scope.DefineTag("Math")
	tag.UData = Obj(Math())
	v, err := NewInterp().Run(prog, scope)
	return v, scope, err
}

func TestTokenize(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	toks, err := Tokenize(`let x = a.b[0] >= 1.5 && !done // comment`)
	if err != nil {
		t.Fatal(err)
	}
	var lexemes []string
	for _, tok := range toks[:len(toks)-1] {
		lexemes = append(lexemes, tok.Lexeme())
	}
	expected := "let x = a . b [ 0 ] >= 1.5 && ! done"
	if s := strings.Join(lexemes, " "); s != expected {
		t.Errorf("Expected tokens %q, are %q", expected, s)
	}
	if toks[0].TokType() != TokKeyword || toks[1].TokType() != TokIdent {
		t.Errorf("Expected keyword followed by identifier, are %d and %d", toks[0].TokType(), toks[1].TokType())
	}
}

func TestExoticQuotes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	v, _, err := run(t, "return “hello” + ‘ world’")
	if err != nil {
		t.Fatal(err)
	}
	if v.AsStr() != "hello world" {
		t.Errorf("Expected 'hello world', is %q", v.AsStr())
	}
}

func TestLexicalError(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	_, err := Parse("a = 1\nb = 2 # 3")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected parse error, got %v", err)
	}
	if perr.Pos.Line != 2 {
		t.Errorf("Expected error on line 2, is %d", perr.Pos.Line)
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	_, err := Parse("a = 1\nif (a > {\n}")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected parse error, got %v", err)
	}
	if perr.Pos.Line < 2 {
		t.Errorf("Expected error on line 2 or later, is %d", perr.Pos.Line)
	}
}

func TestExpressions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	for i, test := range []struct {
		src      string
		expected string
	}{
		{"return 1 + 2 * 3", "7"},
		{"return (1 + 2) * 3", "9"},
		{"return 7 % 4 - -1", "4"},
		{"return 'n=' + 5", "n=5"},
		{"return 1 < 2 && 2 <= 2", "true"},
		{"return null ?? 'dflt'", "dflt"},
		{"return 0 || 'x'", "x"},
		{"return 1 > 2 ? 'a' : 'b'", "b"},
		{"return null + 1", "null"},
		{"return [1, 2, 3].length", "3"},
		{"return [1, 2, 3][5]", "null"},
		{"return [1, 2, 3][-1]", "null"},
		{"let o = {a: 1, b: {c: 2}}; return o.b.c", "2"},
		{"let o = null; return o.x", "null"},
		{"return (3.14159).toFixed(2)", "3.14"},
		{"return 'abc'.toUpperCase()", "ABC"},
		{"return [1, 2, 3].map(x => x * 2)", "[2, 4, 6]"},
		{"return [1, 2, 3, 4].filter((x) => x % 2 == 0).join('-')", "2-4"},
		{"return [1, 2, 3].reduce((a, b) => a + b, 0)", "6"},
		{"return Math.max(3, 9, 4)", "9"},
		{"return Math.round(2.5)", "3"},
		{"return 'abc' == 'abc'", "true"},
	} {
		v, _, err := run(t, test.src)
		if err != nil {
			t.Errorf("test #%d: unexpected error: %v", i, err)
			continue
		}
		if v.String() != test.expected {
			t.Errorf("test #%d: Expected %q to be %s, is %s", i, test.src, test.expected, v.String())
		}
	}
}

func TestStatements(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	src := `
		function fib(n) {
			if (n < 2) return n
			return fib(n - 1) + fib(n - 2)
		}
		let sum = 0
		for (let i = 0; i < 10; i++) {
			if (i == 3) continue
			if (i == 8) break
			sum += i
		}
		let k = 0
		while (k < 5) { k++ }
		let acc = []
		for (const x of [1, 2, 3]) acc.push(x * x)
		total = sum + k + fib(10) + acc[2]
	`
	_, scope, err := run(t, src)
	if err != nil {
		t.Fatal(err)
	}
	tag, _ := scope.ResolveTag("total")
	if tag == nil {
		t.Fatalf("Expected 'total' to be defined")
	}
	// sum = 0+1+2+4+5+6+7 = 25, k = 5, fib(10) = 55, acc[2] = 9
	if v := tagValue(tag); v.AsNum() != 94 {
		t.Errorf("Expected total to be 94, is %s", v)
	}
}

func TestClosures(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	v, _, err := run(t, `
		function counter() {
			let n = 0
			return () => { n = n + 1; return n }
		}
		const c = counter()
		c(); c()
		return c()
	`)
	if err != nil {
		t.Fatal(err)
	}
	if v.AsNum() != 3 {
		t.Errorf("Expected counter to reach 3, is %s", v)
	}
}

func TestReverseArray(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	a := NewArray([]Value{Num(1), Num(2), Num(3)})
	r := a.Reverse()
	if r.At(0).AsNum() != 3 || r.At(2).AsNum() != 1 {
		t.Errorf("Expected reverse view to start with most recent element, is %v", Arr(r))
	}
	if !r.At(3).IsNull() || !r.At(-1).IsNull() {
		t.Errorf("Expected out-of-range reads on reverse view to be null")
	}
	a.Push(Num(4))
	if r.At(0).AsNum() != 4 {
		t.Errorf("Expected reverse view to share storage, At(0) is %v", r.At(0))
	}
	if r.Set(10, Num(0)) {
		t.Errorf("Expected reverse view not to grow")
	}
}

func TestStepBudget(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	prog, err := Parse("while (true) { }")
	if err != nil {
		t.Fatal(err)
	}
	ip := NewInterp()
	ip.MaxSteps = 1000
	_, err = ip.Run(prog, runtime.NewScope("routine", nil))
	if !errors.Is(err, ErrStepBudget) {
		t.Errorf("Expected step budget error, got %v", err)
	}
}

func TestArrayGrowthIsBounded(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	for i, test := range []struct {
		src    string
		budget bool // expect step budget error, else invalid index
	}{
		{"a = []; a[30000000] = 1;", false},
		{"a = []; a[10000000000] = 1;", false},
		{"a = []; a[1000000] = 1;", true},
	} {
		prog, err := Parse(test.src)
		if err != nil {
			t.Fatal(err)
		}
		ip := NewInterp()
		ip.MaxSteps = 50
		_, err = ip.Run(prog, runtime.NewScope("routine", nil))
		var rerr *RuntimeError
		if !errors.As(err, &rerr) {
			t.Errorf("test %d: Expected runtime error, got %v", i, err)
			continue
		}
		if test.budget != errors.Is(err, ErrStepBudget) {
			t.Errorf("test %d: Expected step budget error to be %v, is %v", i, test.budget, err)
		}
	}
	_, scope, err := run(t, "a = [1]; a[3] = 4; n = a.length")
	if err != nil {
		t.Fatal(err)
	}
	tag, _ := scope.ResolveTag("n")
	if tag == nil {
		t.Fatalf("Expected 'n' to be defined")
	}
	if n := tagValue(tag); n.AsNum() != 4 {
		t.Errorf("Expected small gaps to be filled, length is %s", n)
	}
}

func TestRecursionLimit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	_, _, err := run(t, "function f(n) { return f(n + 1) }\nf(0)")
	if err == nil || !strings.Contains(err.Error(), "call depth") {
		t.Errorf("Expected call depth error, got %v", err)
	}
}

func TestUndefinedVariable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	_, _, err := run(t, "x = 1\nreturn y + x")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("Expected runtime error, got %v", err)
	}
	if rerr.Pos.Line != 2 {
		t.Errorf("Expected runtime error on line 2, is %d", rerr.Pos.Line)
	}
}

func TestNativePanicIsCaught(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	prog, _ := Parse("boom()")
	scope := runtime.NewScope("routine", nil)
	tag, _ := scope.DefineTag("boom")
	tag.UData = NativeFn("boom", func([]Value) (Value, error) {
		panic("kaboom")
	})
	if _, err := NewInterp().Run(prog, scope); err == nil {
		t.Errorf("Expected panic of native function to turn into an error")
	}
}

func TestReferenceBinding(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.dsl")
	defer teardown()
	//
	prog, _ := Parse("return period * 2")
	store := map[string]Value{"period": Num(20)}
	scope := runtime.NewScope("routine", nil)
	tag, _ := scope.DefineTag("period")
	tag.Bind(func() interface{} { return store["period"] })
	ip := NewInterp()
	v, _ := ip.Run(prog, scope)
	if v.AsNum() != 40 {
		t.Errorf("Expected 40, is %s", v)
	}
	store["period"] = Num(50)
	v, _ = ip.Run(prog, scope)
	if v.AsNum() != 100 {
		t.Errorf("Expected 100 after updating the reference map, is %s", v)
	}
}

func TestSourceWindow(t *testing.T) {
	src := "a\nb\nc\nd\ne\nf"
	w := SourceWindow(src, 4, 1, 2)
	if !strings.Contains(w, "> 4 | d") || !strings.Contains(w, "  2 | b") || strings.Contains(w, "1 | a") {
		t.Errorf("unexpected window:\n%s", w)
	}
	if SourceWindow(src, 10, 0, 2) != "" {
		t.Errorf("Expected empty window for line out of range")
	}
}

func TestFromGoRoundTrip(t *testing.T) {
	v := FromGo(map[string]interface{}{"color": "#ff0000", "width": 2})
	o := v.AsObject()
	if o == nil || o.Len() != 2 {
		t.Fatalf("Expected object with 2 entries, is %v", v)
	}
	if w, _ := o.Get("width"); w.AsNum() != 2 {
		t.Errorf("Expected width 2, is %v", w)
	}
	back := v.Interface().(map[string]interface{})
	if back["color"] != "#ff0000" {
		t.Errorf("Expected color to survive conversion, is %v", back["color"])
	}
}
