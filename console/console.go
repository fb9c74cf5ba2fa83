package console

import (
	"fmt"
	"sync"
	"time"
)

// Kind categorizes a console message.
type Kind string

// Message kinds.
const (
	Print   Kind = "print"
	System  Kind = "system"
	Error   Kind = "error"
	Warning Kind = "warning"
	Signal  Kind = "signal"
	Tool    Kind = "tool"
)

// Message is one entry of an instance's console feed.
type Message struct {
	Key  string    `json:"key"`
	Kind Kind      `json:"kind"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s: %s", m.Kind, m.Key, m.Text)
}

// Sink receives console messages.
type Sink interface {
	Emit(Message)
}

// Discard is a sink dropping every message.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Message) {}

// DefaultHistory is the number of messages a feed keeps per key if not
// told otherwise.
const DefaultHistory = 200

// Feed keeps a bounded history of messages per instance key and forwards
// every message to its subscribers. It is safe for concurrent use.
type Feed struct {
	mx      sync.RWMutex
	limit   int
	history map[string][]Message
	subs    map[int]func(Message)
	nextSub int
	now     func() time.Time
}

var _ Sink = (*Feed)(nil)

// NewFeed creates a feed keeping up to limit messages per key. limit <= 0
// selects DefaultHistory.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Feed{
		limit:   limit,
		history: make(map[string][]Message),
		subs:    make(map[int]func(Message)),
		now:     time.Now,
	}
}

// Emit records a message and forwards it to all subscribers. A zero Time is
// set to the current time.
func (f *Feed) Emit(m Message) {
	if m.Time.IsZero() {
		m.Time = f.now()
	}
	f.mx.Lock()
	h := append(f.history[m.Key], m)
	if len(h) > f.limit {
		h = append([]Message(nil), h[len(h)-f.limit:]...)
	}
	f.history[m.Key] = h
	subs := make([]func(Message), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mx.Unlock()
	tracer().Debugf("%s", m)
	for _, fn := range subs {
		fn(m)
	}
}

// History returns a copy of the messages recorded for key, oldest first.
func (f *Feed) History(key string) []Message {
	f.mx.RLock()
	defer f.mx.RUnlock()
	return append([]Message(nil), f.history[key]...)
}

// Count returns the number of messages of kind k recorded for key.
func (f *Feed) Count(key string, k Kind) int {
	f.mx.RLock()
	defer f.mx.RUnlock()
	n := 0
	for _, m := range f.history[key] {
		if m.Kind == k {
			n++
		}
	}
	return n
}

// Clear drops the history of key.
func (f *Feed) Clear(key string) {
	f.mx.Lock()
	delete(f.history, key)
	f.mx.Unlock()
}

// Subscribe registers fn to receive every future message. The returned
// function removes the subscription. fn is called synchronously by Emit and
// must not block.
func (f *Feed) Subscribe(fn func(Message)) (unsubscribe func()) {
	f.mx.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mx.Unlock()
	return func() {
		f.mx.Lock()
		delete(f.subs, id)
		f.mx.Unlock()
	}
}

// Emitter is a convenience wrapper emitting messages of one key to a sink.
type Emitter struct {
	Key  string
	Sink Sink
}

// For returns an emitter for key. A nil sink discards messages.
func For(key string, sink Sink) Emitter {
	if sink == nil {
		sink = Discard
	}
	return Emitter{Key: key, Sink: sink}
}

func (e Emitter) emit(k Kind, format string, args []interface{}) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	e.Sink.Emit(Message{Key: e.Key, Kind: k, Text: text})
}

// Print emits a message of kind print.
func (e Emitter) Print(format string, args ...interface{}) { e.emit(Print, format, args) }

// System emits a message of kind system.
func (e Emitter) System(format string, args ...interface{}) { e.emit(System, format, args) }

// Error emits a message of kind error.
func (e Emitter) Error(format string, args ...interface{}) { e.emit(Error, format, args) }

// Warn emits a message of kind warning.
func (e Emitter) Warn(format string, args ...interface{}) { e.emit(Warning, format, args) }

// Signal emits a message of kind signal.
func (e Emitter) Signal(format string, args ...interface{}) { e.emit(Signal, format, args) }

// Tool emits a message of kind tool.
func (e Emitter) Tool(format string, args ...interface{}) { e.emit(Tool, format, args) }
