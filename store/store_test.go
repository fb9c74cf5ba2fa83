package store

import (
	"context"
	"errors"
	"testing"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/chartscript/engine"
	"github.com/npillmayer/chartscript/loop"
	"github.com/npillmayer/chartscript/manager"
	"github.com/npillmayer/chartscript/script"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

const maScript = `// @name = ma
// @position = main
period = input.int(20, min=5, max=100)
stroke = style.line("#ff0000", 2)
draw.line(ta.sma(close, period), stroke)
`

func newManager() *manager.Manager {
	l := loop.New()
	c := chart.New(l, "BTCUSD", "1h", draw.Size{W: 400, H: 200})
	candles := make([]chart.Candle, 30)
	for i := range candles {
		candles[i] = chart.Candle{Time: int64(i), Open: 1, High: 2, Low: 0, Close: float64(i), Volume: 1}
	}
	c.SetDataList(candles)
	m := manager.New(manager.Options{Registry: engine.Standard(), Host: c, Loop: l})
	c.OnRender(m.DrawPane)
	return m
}

func TestMemory(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.store")
	defer teardown()
	//
	s := NewMemory()
	ctx := context.Background()
	s.Save(ctx, Record{Key: "b", Source: "x"})
	s.Save(ctx, Record{Key: "a", Source: "y"})
	keys, _ := s.Keys(ctx)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Expected keys to be [a b], are %v", keys)
	}
	s.Delete(ctx, "a")
	if _, err := s.Load(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if r, err := s.Load(ctx, "b"); err != nil || r.Source != "x" {
		t.Errorf("Expected record b, is %+v (%v)", r, err)
	}
}

func TestSaveAndRestore(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.store")
	defer teardown()
	//
	m := newManager()
	defer m.Close()
	if _, _, err := m.Register("ma", maScript, manager.RegisterOptions{Origin: "user"}); err != nil {
		t.Fatal(err)
	}
	if errs, err := m.SetConfig("ma", manager.Config{Inputs: []script.Preset{{Key: "period", Value: 50}}}); err != nil || len(errs) > 0 {
		t.Fatalf("cannot configure: %v %v", err, errs)
	}
	m.SetVisible("ma", false)
	s := NewMemory()
	ctx := context.Background()
	if err := SaveAll(ctx, s, m); err != nil {
		t.Fatal(err)
	}
	s.Save(ctx, Record{Key: "broken", Source: "// @version = 9\n"})
	//
	m2 := newManager()
	defer m2.Close()
	n, err := Restore(ctx, s, m2)
	if n != 1 {
		t.Errorf("Expected 1 script to be restored, are %d", n)
	}
	if err == nil {
		t.Errorf("Expected error for script with unknown engine version")
	}
	inst := m2.Instance("ma")
	if inst == nil {
		t.Fatalf("Expected instance ma to be restored")
	}
	if p := inst.Input("period"); p.AsNum() != 50 {
		t.Errorf("Expected period to be 50, is %s", p)
	}
	if inst.Visible() || inst.Origin() != "user" {
		t.Errorf("Expected invisible user script, is visible=%v origin=%q", inst.Visible(), inst.Origin())
	}
}
