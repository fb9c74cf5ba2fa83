package chart

import (
	"errors"
	"testing"

	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/chartscript/loop"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestPanesAndLayout(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.chart")
	defer teardown()
	//
	c := New(loop.New(), "BTCUSD", "1h", draw.Size{W: 800, H: 400})
	if b := c.PrimaryPane().Bounds; b.Size.H != 400 {
		t.Errorf("Expected primary pane to fill the chart, is %v", b)
	}
	p1 := c.AddPane()
	p2 := c.AddPane()
	if p1.ID == Primary || p1.ID == p2.ID {
		t.Fatalf("Expected distinct secondary pane ids, are %v and %v", p1.ID, p2.ID)
	}
	if h := c.PrimaryPane().Bounds.Size.H; h != 200 {
		t.Errorf("Expected primary pane height to be 200, is %g", h)
	}
	if o := p2.Bounds.Origin.Y; o != 300 {
		t.Errorf("Expected second secondary pane at y=300, is %g", o)
	}
	if c.RemovePane(Primary) {
		t.Errorf("Expected primary pane not to be removable")
	}
	if !c.RemovePane(p1.ID) || c.RemovePane(p1.ID) {
		t.Errorf("Expected secondary pane to be removed exactly once")
	}
	if c.Pane(p1.ID) != nil {
		t.Errorf("Expected removed pane to be gone")
	}
	if ids := c.Panes(); len(ids) != 2 || ids[0] != Primary {
		t.Errorf("Expected panes [main, %v], are %v", p2.ID, ids)
	}
}

func TestPaneInstances(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.chart")
	defer teardown()
	//
	p := newPane(3)
	p.Attach("a")
	p.Attach("b")
	p.Attach("a")
	if keys := p.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Expected keys [a b], are %v", keys)
	}
	if !p.Detach("a") || p.Detach("a") {
		t.Errorf("Expected 'a' to be detached exactly once")
	}
	p.Detach("b")
	if !p.Empty() {
		t.Errorf("Expected pane to be empty")
	}
}

func TestFrameRendersPrimaryLast(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.chart")
	defer teardown()
	//
	l := loop.New()
	c := New(l, "X", "1d", draw.Size{W: 100, H: 100})
	vice := c.AddPane()
	var order []PaneID
	c.OnRender(func(p *Pane, target draw.Target) {
		order = append(order, p.ID)
		r := draw.NewRecorder(p.Bounds.Size)
		r.Add(draw.Command{Op: "line"})
		target.Composite(r, p.Bounds.Origin)
	})
	l.Tick()
	if len(order) != 2 || order[0] != vice.ID || order[1] != Primary {
		t.Fatalf("Expected secondary pane to be rendered before primary, order is %v", order)
	}
	order = nil
	c.RequestRedraw(vice.ID)
	c.RequestRedraw(vice.ID)
	l.Tick()
	if len(order) != 2 {
		t.Errorf("Expected coalesced redraw of 2 panes, rendered %v", order)
	}
	f := c.Frame(vice.ID)
	if f == nil || len(f.Ops()) != 1 || f.Layers[0].At.Y != vice.Bounds.Origin.Y {
		t.Errorf("Expected frame of secondary pane with one layer at its origin, is %+v", f)
	}
	order = nil
	l.Tick()
	if len(order) != 0 {
		t.Errorf("Expected no rendering without requests, rendered %v", order)
	}
}

func TestEvents(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.chart")
	defer teardown()
	//
	c := New(nil, "X", "1d", draw.Size{W: 100, H: 100})
	var events []Event
	unsubscribe := c.Subscribe(func(ev Event) { events = append(events, ev) })
	c.SetDataList([]Candle{{Time: 1, Close: 10}, {Time: 2, Close: 11}})
	c.Append(Candle{Time: 2, Close: 12})
	c.Append(Candle{Time: 3, Close: 13})
	c.SetSymbol("Y")
	c.SetPeriod("1h")
	unsubscribe()
	c.SetSymbol("Z")
	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(events))
	}
	if events[1].Len != 2 || events[2].Len != 3 {
		t.Errorf("Expected data lengths 2 and 3, are %d and %d", events[1].Len, events[2].Len)
	}
	if events[3].Kind != SymbolChanged || events[3].Symbol != "Y" || events[4].Kind != PeriodChanged {
		t.Errorf("Expected symbol then period change, got %v", events[3:])
	}
	if c.DataList()[1].Close != 12 {
		t.Errorf("Expected candle of equal time to be replaced")
	}
	if c.Subscribers() != 0 {
		t.Errorf("Expected no subscribers left, are %d", c.Subscribers())
	}
}

func TestLedger(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.chart")
	defer teardown()
	//
	l := NewLedger()
	l.Inc("user")
	l.Inc("user")
	l.Inc("lib")
	l.Dec("user")
	l.Dec("lib")
	l.Dec("lib")
	if l.Count("user") != 1 || l.Count("lib") != 0 || l.Total() != 1 {
		t.Errorf("Expected counts user=1 lib=0, are %d and %d", l.Count("user"), l.Count("lib"))
	}
}

func TestColumnsAndBroker(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.chart")
	defer teardown()
	//
	cols := Columns([]Candle{{Time: 1, Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 100}})
	if cols["high"][0] != 3 || cols["time"][0] != 1 || len(cols) != len(ColumnNames) {
		t.Errorf("Expected column split, got %v", cols)
	}
	b := &StaticBroker{PositionList: []Position{{Symbol: "X", Qty: 2, AvgPrice: 10, LastPrice: 12}}}
	ps, err := b.Positions()
	if err != nil || ps[0].UnrealizedPnL() != 4 {
		t.Errorf("Expected PnL of 4, got %v (%v)", ps, err)
	}
	b.Err = errors.New("offline")
	if _, err := b.Account(); err == nil {
		t.Errorf("Expected failing broker to fail")
	}
}
