package manager

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/console"
	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/engine"
	"github.com/npillmayer/chartscript/fetch"
	"github.com/npillmayer/chartscript/loop"
	"github.com/npillmayer/chartscript/metrics"
	"github.com/npillmayer/chartscript/script"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const maScript = `// @name = ma
// @position = main
period = input.int(20, min=5, max=100)
stroke = style.line("#ff0000", 2)

avg = ta.sma(close, period)
draw.line(avg, stroke)
print("period", period)
`

const oscScript = `// @name = osc
strength = ta.rsi(close, 14)
draw.line(strength)
main.line(close, "#00ff00")
`

type env struct {
	l    *loop.Loop
	c    *chart.Chart
	m    *Manager
	feed *console.Feed
	mx   *metrics.Metrics
}

func setup(t *testing.T, fetcher fetch.Fetcher) *env {
	t.Helper()
	e := &env{l: loop.New(), feed: console.NewFeed(0), mx: metrics.New(nil)}
	e.c = chart.New(e.l, "BTCUSD", "1h", draw.Size{W: 800, H: 400})
	candles := make([]chart.Candle, 60)
	for i := range candles {
		p := 100 + float64(i%7) + float64(i)/2
		candles[i] = chart.Candle{Time: int64(i) * 3600, Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}
	e.c.SetDataList(candles)
	e.m = New(Options{
		Registry: engine.Standard(),
		Host:     e.c,
		Loop:     e.l,
		Fetcher:  fetcher,
		Console:  e.feed,
		Metrics:  e.mx,
	})
	e.c.OnRender(e.m.DrawPane)
	return e
}

func (e *env) register(t *testing.T, key, src string) *Instance {
	t.Helper()
	inst, errs, err := e.m.Register(key, src, RegisterOptions{Origin: "user"})
	if err != nil {
		t.Fatalf("cannot register %s: %v", key, err)
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected declaration errors:\n%s", script.ErrorList(errs))
	}
	return inst
}

// settle ticks the loop until no external calls are in flight.
func (e *env) settle(t *testing.T, inst *Instance) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for inst.Fetching() {
		if err := e.l.Wait(ctx); err != nil {
			t.Fatalf("external calls did not settle: %v", err)
		}
		e.l.Tick()
	}
	e.l.Tick()
}

func (e *env) lastPrint(key string) string {
	h := e.feed.History(key)
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Kind == console.Print {
			return h[i].Text
		}
	}
	return ""
}

func commands(f *chart.Frame, op string) []draw.Command {
	var cmds []draw.Command
	if f == nil {
		return nil
	}
	for _, l := range f.Layers {
		for _, c := range l.Commands {
			if c.Op == op {
				cmds = append(cmds, c)
			}
		}
	}
	return cmds
}

func warmup(series []float64) int {
	n := 0
	for _, x := range series {
		if math.IsNaN(x) {
			n++
		}
	}
	return n
}

func TestConfigChangeWithoutRecompilation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	inst := e.register(t, "ma", maScript)
	id := inst.RoutineID()
	e.l.Tick()
	lines := commands(e.c.Frame(chart.Primary), "line")
	if len(lines) != 1 || warmup(lines[0].Series) != 19 {
		t.Fatalf("Expected one line with SMA(20) warm-up, have %d lines", len(lines))
	}
	if p := e.lastPrint("ma"); p != "period 20" {
		t.Errorf("Expected print output 'period 20', is %q", p)
	}
	errs, err := e.m.SetConfig("ma", Config{Inputs: []script.Preset{{Key: "period", Value: 50}}})
	if err != nil || len(errs) != 0 {
		t.Fatalf("unexpected config errors %v, %v", err, errs)
	}
	e.l.Tick()
	lines = commands(e.c.Frame(chart.Primary), "line")
	if len(lines) != 1 || warmup(lines[0].Series) != 49 {
		t.Errorf("Expected next draw to use period 50")
	}
	if p := e.lastPrint("ma"); p != "period 50" {
		t.Errorf("Expected print output 'period 50', is %q", p)
	}
	if inst.RoutineID() != id || testutil.ToFloat64(e.mx.Recompiles) != 0 {
		t.Errorf("Expected no recompilation, routine #%d is #%d", id, inst.RoutineID())
	}
	if inst.Cache().Executions() != 2 {
		t.Errorf("Expected 2 executions, are %d", inst.Cache().Executions())
	}
}

func TestStyleOnlyConfigKeepsIdentity(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	inst := e.register(t, "ma", maScript)
	id := inst.RoutineID()
	e.l.Tick()
	e.m.SetConfig("ma", Config{Styles: []script.Preset{{Key: "stroke", Value: map[string]interface{}{"width": 3}}}})
	e.l.Tick()
	if inst.RoutineID() != id {
		t.Errorf("Expected style change to keep routine identity")
	}
	lines := commands(e.c.Frame(chart.Primary), "line")
	if len(lines) != 1 || lines[0].Style["width"] != 3.0 || lines[0].Style["color"] != "#ff0000" {
		t.Errorf("Expected merged line style, is %v", lines)
	}
	if e.m.RecompileWith("ma", inst.LastState()) {
		t.Errorf("Expected unchanged state not to recompile")
	}
}

func TestInvalidConfigIsReported(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	inst := e.register(t, "ma", maScript)
	errs, err := e.m.SetConfig("ma", Config{Inputs: []script.Preset{
		{Key: "period", Value: 500},
		{Key: "nope", Value: 1},
	}})
	if err != nil || len(errs) != 2 {
		t.Fatalf("Expected 2 config errors, are %v (%v)", errs, err)
	}
	if !errors.Is(errs[1], ErrUnknownKey) {
		t.Errorf("Expected unknown key error, is %v", errs[1])
	}
	if inst.Input("period").AsNum() != 20 {
		t.Errorf("Expected period to stay 20, is %v", inst.Input("period"))
	}
	if e.feed.Count("ma", console.Warning) != 2 {
		t.Errorf("Expected 2 warnings on the console")
	}
	if _, err := e.m.SetConfig("none", Config{}); !errors.Is(err, ErrNoInstance) {
		t.Errorf("Expected ErrNoInstance, got %v", err)
	}
}

func TestRecompileOnDataShapeChange(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	inst := e.register(t, "ma", maScript)
	e.l.Tick()
	id := inst.RoutineID()
	last := e.c.DataList()[59]
	last.Close++
	e.c.Append(last)
	e.l.Tick()
	if inst.RoutineID() != id {
		t.Errorf("Expected update of last bar not to recompile")
	}
	if inst.Cache().Executions() != 2 {
		t.Errorf("Expected update of last bar to redraw, executions are %d", inst.Cache().Executions())
	}
	last.Time += 3600
	e.c.Append(last)
	e.l.Tick()
	if inst.RoutineID() == id || inst.LastState().DataLength != 61 {
		t.Errorf("Expected new bar to recompile, state is %+v", inst.LastState())
	}
	if testutil.ToFloat64(e.mx.Recompiles) != 1 {
		t.Errorf("Expected 1 recompilation, are %g", testutil.ToFloat64(e.mx.Recompiles))
	}
	id = inst.RoutineID()
	st := inst.LastState()
	st.Inputs = []InputState{{Key: "period", Value: "30"}}
	if !e.m.RecompileWith("ma", st) || inst.RoutineID() == id {
		t.Errorf("Expected input diff to produce a new routine identity")
	}
	if inst.Phase() != Compiled {
		t.Errorf("Expected instance to be compiled, is %s", inst.Phase())
	}
	e.c.SetSymbol("ETHUSD")
	if inst.LastState().Symbol != "ETHUSD" {
		t.Errorf("Expected symbol change to recompile")
	}
}

func TestReRegisterRetiresOnce(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	first := e.register(t, "osc", oscScript)
	second := e.register(t, "osc", oscScript)
	if len(e.m.Keys()) != 1 || e.m.Instance("osc") != second {
		t.Fatalf("Expected exactly one instance, have %v", e.m.Keys())
	}
	if first.Phase() != Removed {
		t.Errorf("Expected first instance to be removed, is %s", first.Phase())
	}
	if n := e.c.Bookkeeping().Count("user"); n != 1 {
		t.Errorf("Expected ledger count 1, is %d", n)
	}
	if n := testutil.ToFloat64(e.mx.Removals); n != 1 {
		t.Errorf("Expected 1 removal, are %g", n)
	}
	if n := len(e.c.Panes()); n != 2 {
		t.Errorf("Expected primary and one secondary pane, have %d panes", n)
	}
	if e.c.Subscribers() != 1 {
		t.Errorf("Expected 1 subscription, have %d", e.c.Subscribers())
	}
}

func TestRemove(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	e.register(t, "ma", maScript)
	osc := e.register(t, "osc", oscScript)
	vice := osc.Pane()
	if !e.m.Remove("osc") || e.m.Remove("osc") {
		t.Errorf("Expected remove to return true, then false")
	}
	if e.c.Pane(vice) != nil {
		t.Errorf("Expected empty secondary pane to be deleted")
	}
	if !e.m.Remove("ma") {
		t.Errorf("Expected 'ma' to be removed")
	}
	if e.c.PrimaryPane() == nil || !e.c.PrimaryPane().Empty() {
		t.Errorf("Expected primary pane to be kept, and empty")
	}
	if e.c.Bookkeeping().Total() != 0 || e.c.Subscribers() != 0 {
		t.Errorf("Expected bookkeeping and subscriptions to be cleared")
	}
	e.l.Tick()
}

func TestEngineVersionOfInstance(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	for i, test := range []struct {
		src     string
		version int
	}{
		{maScript, 2},
		{"// @version = 1\n" + maScript, 1},
	} {
		inst := e.register(t, "ma", test.src)
		if inst.Engine() != test.version || inst.Script().Meta.Version != test.version {
			t.Errorf("test %d: Expected engine and metadata version %d, are %d and %d", i,
				test.version, inst.Engine(), inst.Script().Meta.Version)
		}
		e.m.RecompileWith("ma", State{Symbol: "ETHUSD"})
		if v := e.m.Instance("ma").Script().Meta.Version; v != test.version {
			t.Errorf("test %d: Expected version %d after recompile, is %d", i, test.version, v)
		}
	}
}

func TestFaultIsolation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	bad := e.register(t, "bad", "// @name = bad\n// @position = main\nx = missing + 1\n")
	e.register(t, "ma", maScript)
	e.l.Tick()
	if n := len(commands(e.c.Frame(chart.Primary), "line")); n != 1 {
		t.Errorf("Expected second instance to draw despite the first failing, lines are %d", n)
	}
	if e.feed.Count("bad", console.Error) != 1 {
		t.Errorf("Expected runtime error on the console, history is %v", e.feed.History("bad"))
	}
	if testutil.ToFloat64(e.mx.DrawErrors) != 1 {
		t.Errorf("Expected 1 draw error")
	}
	if !e.m.Draw(bad, e.c.PrimaryPane().Bounds, nil) {
		t.Errorf("Expected Draw to report success in any case")
	}
}

func TestGenerateErrorKeepsRegistration(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	inst := e.register(t, "broken", "// @name = broken\n// @position = main\nn = 1\nif (close > {\nn(1)\n}\n")
	if inst.Routine() != nil || inst.GenerateError() == nil || inst.Phase() != Registered {
		t.Fatalf("Expected registered instance without routine, phase is %s", inst.Phase())
	}
	found := false
	for _, m := range e.feed.History("broken") {
		found = found || m.Kind == console.Error && strings.Contains(m.Text, "| if (close > {")
	}
	if !found {
		t.Errorf("Expected diagnostic with source window, history is %v", e.feed.History("broken"))
	}
	e.l.Tick()
	if n := len(commands(e.c.Frame(chart.Primary), "line")); n != 0 {
		t.Errorf("Expected nothing to be drawn")
	}
}

func TestFatalParseKeepsInstance(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	inst := e.register(t, "ma", maScript)
	_, _, err := e.m.Register("ma", "period = input.int(5)\n", RegisterOptions{})
	if !errors.Is(err, script.ErrMissingName) {
		t.Errorf("Expected missing name error, got %v", err)
	}
	if e.m.Instance("ma") != inst || inst.Phase() == Removed {
		t.Errorf("Expected previous instance to survive")
	}
	_, _, err = e.m.Register("ma", "// @name = x\n// @version = 9\n", RegisterOptions{})
	if !errors.Is(err, &engine.Error{Kind: engine.ErrUnknownVersion}) {
		t.Errorf("Expected unknown version error, got %v", err)
	}
}

func TestBridgeAndVisibility(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	e := setup(t, nil)
	osc := e.register(t, "osc", oscScript)
	e.l.Tick()
	if n := len(commands(e.c.Frame(osc.Pane()), "line")); n != 1 {
		t.Errorf("Expected one line on the secondary pane, are %d", n)
	}
	main := commands(e.c.Frame(chart.Primary), "line")
	if len(main) != 1 || main[0].Style["color"] != "#00ff00" {
		t.Errorf("Expected bridged line on the primary pane, is %v", main)
	}
	e.m.SetVisible("osc", false)
	e.l.Tick()
	if n := len(commands(e.c.Frame(chart.Primary), "line")); n != 0 {
		t.Errorf("Expected hidden instance not to bridge, lines are %d", n)
	}
	if n := len(commands(e.c.Frame(osc.Pane()), "line")); n != 0 {
		t.Errorf("Expected hidden instance not to draw, lines are %d", n)
	}
	if osc.Cache().Executions() != 1 {
		t.Errorf("Expected visibility not to recompute, executions are %d", osc.Cache().Executions())
	}
}

const quoteScript = `// @name = quotes
// @position = main
sym = input.text("BTC")
quote = http.get("/quote", { symbol: sym })
news = http.get("/news")
print("q", quote, news, positions().length)
`

func TestExternalCalls(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.manager")
	defer teardown()
	//
	var requested []string
	fetcher := fetch.FetcherFunc(func(ctx context.Context, call fetch.Call) (dsl.Value, error) {
		if call.Key == "news" {
			return dsl.Null, errors.New("rejected")
		}
		sym, _ := call.Args[1].AsObject().Get("symbol")
		requested = append(requested, sym.AsStr())
		return dsl.Num(42), nil
	})
	e := setup(t, fetcher)
	e.c.SetBroker(&chart.StaticBroker{Err: errors.New("offline")})
	inst := e.register(t, "q", quoteScript)
	if !inst.HTTP("quote").IsNull() {
		t.Errorf("Expected registration not to wait for external calls")
	}
	e.settle(t, inst)
	if inst.HTTP("quote").AsNum() != 42 || !inst.HTTP("news").IsNull() {
		t.Errorf("Expected quote=42 and news=null, are %v and %v", inst.HTTP("quote"), inst.HTTP("news"))
	}
	if p := e.lastPrint("q"); p != "q 42 null 0" {
		t.Errorf("Expected print 'q 42 null 0', is %q", p)
	}
	e.m.SetConfig("q", Config{Styles: nil, Inputs: []script.Preset{{Key: "sym", Value: "ETH"}}})
	e.settle(t, inst)
	if len(requested) != 2 || requested[1] != "ETH" {
		t.Errorf("Expected input change to re-issue calls with new arguments, requests are %v", requested)
	}
	id := inst.RoutineID()
	last := e.c.DataList()[59]
	last.Time += 3600
	e.c.Append(last)
	e.settle(t, inst)
	if inst.RoutineID() == id {
		t.Errorf("Expected recompilation")
	}
	if len(requested) != 2 {
		t.Errorf("Expected recompilation to re-issue only calls without result, requests are %v", requested)
	}
	if inst.HTTP("quote").AsNum() != 42 {
		t.Errorf("Expected result to be carried over a recompilation, is %v", inst.HTTP("quote"))
	}
}
