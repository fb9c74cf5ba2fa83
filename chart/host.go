package chart

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/npillmayer/chartscript/draw"
)

// Candle is one bar of price data. Time is in Unix seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// ColumnNames are the names of the series of a candle list, in order.
var ColumnNames = []string{"time", "open", "high", "low", "close", "volume"}

// Columns splits candles into forward series, one per column name.
func Columns(candles []Candle) map[string][]float64 {
	cols := make(map[string][]float64, len(ColumnNames))
	for _, name := range ColumnNames {
		cols[name] = make([]float64, len(candles))
	}
	for i, c := range candles {
		cols["time"][i] = float64(c.Time)
		cols["open"][i] = c.Open
		cols["high"][i] = c.High
		cols["low"][i] = c.Low
		cols["close"][i] = c.Close
		cols["volume"][i] = c.Volume
	}
	return cols
}

// PaneID identifies a pane of a chart. The primary pane has id 0.
type PaneID int

// Primary is the id of the primary pane.
const Primary PaneID = 0

func (id PaneID) String() string {
	if id == Primary {
		return "pane#main"
	}
	return fmt.Sprintf("pane#%d", int(id))
}

// Pane is a drawing region of a chart. It holds the keys of the script
// instances drawing on it, in order of attachment.
type Pane struct {
	ID        PaneID
	Bounds    draw.Rect
	Instances *arraylist.List
}

func newPane(id PaneID) *Pane {
	return &Pane{ID: id, Instances: arraylist.New()}
}

// IsPrimary tells whether p is the primary pane of its chart.
func (p *Pane) IsPrimary() bool {
	return p.ID == Primary
}

// Attach appends key to the pane's instances, if not yet present.
func (p *Pane) Attach(key string) {
	if p.index(key) < 0 {
		p.Instances.Add(key)
	}
}

// Detach removes key from the pane's instances. It returns false if key was
// not attached.
func (p *Pane) Detach(key string) bool {
	i := p.index(key)
	if i < 0 {
		return false
	}
	p.Instances.Remove(i)
	return true
}

// Keys returns the keys of attached instances, in order of attachment.
func (p *Pane) Keys() []string {
	keys := make([]string, 0, p.Instances.Size())
	for _, v := range p.Instances.Values() {
		keys = append(keys, v.(string))
	}
	return keys
}

// Empty tells whether no instance is attached.
func (p *Pane) Empty() bool {
	return p.Instances.Empty()
}

func (p *Pane) index(key string) int {
	for i, v := range p.Instances.Values() {
		if v.(string) == key {
			return i
		}
	}
	return -1
}

// Viewport is the visible part of a chart.
type Viewport struct {
	From, To   int     // visible bar index range, inclusive
	BarSpacing float64 // pixels per bar
	Precision  int     // price decimals
}

// EventKind tells what changed in a chart.
type EventKind int8

// Event kinds.
const (
	DataChanged EventKind = iota
	SymbolChanged
	PeriodChanged
)

func (k EventKind) String() string {
	switch k {
	case DataChanged:
		return "data"
	case SymbolChanged:
		return "symbol"
	case PeriodChanged:
		return "period"
	}
	return "?"
}

// Event notifies subscribers of a change.
type Event struct {
	Kind   EventKind
	Symbol string
	Period string
	Len    int // length of the data list
}

// Host is the chart a script engine runs in. Methods are called from the
// loop thread only.
type Host interface {
	DataList() []Candle
	SetDataList([]Candle)
	Symbol() string
	Period() string
	Viewport() Viewport
	PrimaryPane() *Pane
	Pane(id PaneID) *Pane // nil if there is no such pane
	AddPane() *Pane
	RemovePane(id PaneID) bool // the primary pane cannot be removed
	RequestRedraw(id PaneID)   // coalesced, drawn at the next frame
	Subscribe(fn func(Event)) (unsubscribe func())
	Bookkeeping() *Ledger
	Broker() Broker
}

// Ledger counts script instances per origin, e.g. per user or per
// indicator library. It is safe for concurrent use.
type Ledger struct {
	mx     sync.Mutex
	counts map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]int)}
}

// Inc increments the count of origin.
func (l *Ledger) Inc(origin string) {
	l.mx.Lock()
	l.counts[origin]++
	l.mx.Unlock()
}

// Dec decrements the count of origin. Counts do not drop below zero.
func (l *Ledger) Dec(origin string) {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.counts[origin] <= 1 {
		delete(l.counts, origin)
		return
	}
	l.counts[origin]--
}

// Count returns the count of origin.
func (l *Ledger) Count(origin string) int {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.counts[origin]
}

// Total returns the sum of all counts.
func (l *Ledger) Total() int {
	l.mx.Lock()
	defer l.mx.Unlock()
	n := 0
	for _, c := range l.counts {
		n += c
	}
	return n
}
