package chart

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"

	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/chartscript/loop"
)

// Layer is content composited into a frame.
type Layer struct {
	At       draw.Point
	Commands []draw.Command
}

// Frame records what was composited into a pane during one render.
type Frame struct {
	Pane   PaneID
	Serial uint64
	Layers []Layer
}

// Composite copies the commands of r into the frame.
func (f *Frame) Composite(r *draw.Recorder, at draw.Point) {
	f.Layers = append(f.Layers, Layer{At: at, Commands: r.Commands()})
}

// Ops lists the operations of all layers, in order.
func (f *Frame) Ops() []string {
	var ops []string
	for _, l := range f.Layers {
		for _, c := range l.Commands {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

// RenderFunc renders a pane into a target.
type RenderFunc func(p *Pane, target draw.Target)

// Chart is a headless chart host. It is not safe for concurrent use; all
// methods except those of its loop must be called on the loop thread.
type Chart struct {
	loop     *loop.Loop
	symbol   string
	period   string
	data     []Candle
	viewport Viewport
	size     draw.Size
	panes    map[PaneID]*Pane
	nextID   PaneID
	dirty    intsets.Sparse
	subs     map[int]func(Event)
	nextSub  int
	ledger   *Ledger
	broker   Broker
	render   RenderFunc
	frames   map[PaneID]*Frame
	serial   uint64
}

var _ Host = (*Chart)(nil)

// New creates a chart of a given size with an empty primary pane.
func New(l *loop.Loop, symbol, period string, size draw.Size) *Chart {
	c := &Chart{
		loop:     l,
		symbol:   symbol,
		period:   period,
		size:     size,
		panes:    map[PaneID]*Pane{Primary: newPane(Primary)},
		nextID:   Primary + 1,
		subs:     make(map[int]func(Event)),
		ledger:   NewLedger(),
		broker:   &StaticBroker{},
		frames:   make(map[PaneID]*Frame),
		viewport: Viewport{BarSpacing: 6, Precision: 2},
	}
	c.layout()
	return c
}

// OnRender sets the function rendering panes.
func (c *Chart) OnRender(fn RenderFunc) {
	c.render = fn
}

// SetBroker replaces the broker. A nil broker is replaced by an empty one.
func (c *Chart) SetBroker(b Broker) {
	if b == nil {
		b = &StaticBroker{}
	}
	c.broker = b
}

// DataList returns the candles of the chart, oldest first.
func (c *Chart) DataList() []Candle {
	return c.data
}

// SetDataList replaces the candles and notifies subscribers.
func (c *Chart) SetDataList(candles []Candle) {
	c.data = candles
	c.viewport.From, c.viewport.To = 0, len(candles)-1
	c.publish(DataChanged)
}

// Append adds a candle, or replaces the last one if it has the same time.
func (c *Chart) Append(candle Candle) {
	if n := len(c.data); n > 0 && c.data[n-1].Time == candle.Time {
		c.data[n-1] = candle
	} else {
		c.data = append(c.data, candle)
		c.viewport.To = len(c.data) - 1
	}
	c.publish(DataChanged)
}

// Symbol returns the current symbol.
func (c *Chart) Symbol() string {
	return c.symbol
}

// SetSymbol changes the symbol and notifies subscribers.
func (c *Chart) SetSymbol(symbol string) {
	c.symbol = symbol
	c.publish(SymbolChanged)
}

// Period returns the current period.
func (c *Chart) Period() string {
	return c.period
}

// SetPeriod changes the period and notifies subscribers.
func (c *Chart) SetPeriod(period string) {
	c.period = period
	c.publish(PeriodChanged)
}

// Viewport returns the visible part of the chart.
func (c *Chart) Viewport() Viewport {
	return c.viewport
}

// PrimaryPane returns the primary pane.
func (c *Chart) PrimaryPane() *Pane {
	return c.panes[Primary]
}

// Pane returns a pane by id, or nil.
func (c *Chart) Pane(id PaneID) *Pane {
	return c.panes[id]
}

// Panes returns the ids of all panes, primary first.
func (c *Chart) Panes() []PaneID {
	ids := maps.Keys(c.panes)
	slices.Sort(ids)
	return ids
}

// AddPane adds a secondary pane below the existing ones.
func (c *Chart) AddPane() *Pane {
	p := newPane(c.nextID)
	c.nextID++
	c.panes[p.ID] = p
	c.layout()
	tracer().Debugf("added %s", p.ID)
	return p
}

// RemovePane removes a secondary pane. The primary pane is never removed.
func (c *Chart) RemovePane(id PaneID) bool {
	if id == Primary || c.panes[id] == nil {
		return false
	}
	delete(c.panes, id)
	delete(c.frames, id)
	c.dirty.Remove(int(id))
	c.layout()
	tracer().Debugf("removed %s", id)
	return true
}

// Resize changes the size of the chart and redraws all panes.
func (c *Chart) Resize(size draw.Size) {
	c.size = size
	c.layout()
}

// layout stacks secondary panes below the primary one. Secondary panes get
// a quarter of the height each, but together no more than 60 percent.
func (c *Chart) layout() {
	ids := c.Panes()
	n := float64(len(ids) - 1)
	viceH := 0.0
	if n > 0 {
		viceH = c.size.H / 4
		if viceH*n > c.size.H*0.6 {
			viceH = c.size.H * 0.6 / n
		}
	}
	mainH := c.size.H - viceH*n
	y := 0.0
	for _, id := range ids {
		p := c.panes[id]
		h := viceH
		if id == Primary {
			h = mainH
		}
		p.Bounds = draw.R(0, y, c.size.W, h)
		y += h
		c.dirty.Insert(int(id))
	}
	c.schedule()
}

// RequestRedraw marks a pane for redrawing in the next frame.
func (c *Chart) RequestRedraw(id PaneID) {
	if c.panes[id] == nil {
		return
	}
	c.dirty.Insert(int(id))
	c.schedule()
}

func (c *Chart) schedule() {
	if c.loop != nil {
		c.loop.RequestFrame("chart.frame", c.frame)
	}
}

// frame renders the dirty panes. The primary pane is rendered in every
// frame and always last, as secondary panes may bridge content onto it.
func (c *Chart) frame() {
	ids := c.dirty.AppendTo(nil)
	c.dirty.Clear()
	if len(ids) == 0 || c.render == nil {
		return
	}
	c.serial++
	for _, id := range ids {
		if PaneID(id) != Primary {
			c.renderPane(PaneID(id))
		}
	}
	c.renderPane(Primary)
}

func (c *Chart) renderPane(id PaneID) {
	p := c.panes[id]
	if p == nil {
		return
	}
	f := &Frame{Pane: id, Serial: c.serial}
	c.render(p, f)
	c.frames[id] = f
}

// Frame returns the last frame rendered for a pane, or nil.
func (c *Chart) Frame(id PaneID) *Frame {
	return c.frames[id]
}

// Subscribe registers fn for change events.
func (c *Chart) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		delete(c.subs, id)
	}
}

// Subscribers returns the number of subscriptions.
func (c *Chart) Subscribers() int {
	return len(c.subs)
}

func (c *Chart) publish(kind EventKind) {
	ev := Event{Kind: kind, Symbol: c.symbol, Period: c.period, Len: len(c.data)}
	ids := maps.Keys(c.subs)
	slices.Sort(ids)
	tracer().Debugf("%s changed, %d subscribers", kind, len(ids))
	for _, id := range ids {
		if fn, ok := c.subs[id]; ok {
			fn(ev)
		}
	}
}

// Bookkeeping returns the per-origin instance ledger.
func (c *Chart) Bookkeeping() *Ledger {
	return c.ledger
}

// Broker returns the broker.
func (c *Chart) Broker() Broker {
	return c.broker
}
