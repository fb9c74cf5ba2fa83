/*
Package loop implements a cooperative frame loop.

All chart and script state is owned by a single goroutine, the loop
thread. Other goroutines (e.g. those waiting for network I/O) hand results
back by posting tasks. Tick runs posted tasks first, then the frame
callbacks requested since the last tick; requests for the same key within
one frame are coalesced into a single callback.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package loop

import (
	"context"
	"sync"
	"time"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'chartscript.loop'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.loop")
}

// Loop is a cooperative frame loop. Post and RequestFrame are safe for
// concurrent use; Tick must be called from the loop thread only.
type Loop struct {
	mx     sync.Mutex
	tasks  []func()
	frames map[string]func()
	order  []string
	wake   chan struct{}
	frame  uint64
}

// New creates a loop.
func New() *Loop {
	return &Loop{
		frames: make(map[string]func()),
		wake:   make(chan struct{}, 1),
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Post hands a task to the loop thread. It runs at the next tick.
func (l *Loop) Post(task func()) {
	l.mx.Lock()
	l.tasks = append(l.tasks, task)
	l.mx.Unlock()
	l.signal()
}

// RequestFrame schedules fn for the next frame under key. If a callback is
// already scheduled for key, the request is coalesced and RequestFrame
// returns false.
func (l *Loop) RequestFrame(key string, fn func()) bool {
	l.mx.Lock()
	_, scheduled := l.frames[key]
	if !scheduled {
		l.frames[key] = fn
		l.order = append(l.order, key)
	}
	l.mx.Unlock()
	if !scheduled {
		l.signal()
	}
	return !scheduled
}

// Pending tells whether tasks or frame callbacks are waiting.
func (l *Loop) Pending() bool {
	l.mx.Lock()
	defer l.mx.Unlock()
	return len(l.tasks) > 0 || len(l.order) > 0
}

// Frame returns the number of frames run so far.
func (l *Loop) Frame() uint64 {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.frame
}

// Tick runs all posted tasks, including tasks posted by those tasks, and
// then the frame callbacks requested before the frame started. It returns
// the number of callbacks run.
func (l *Loop) Tick() int {
	n := 0
	for {
		l.mx.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.mx.Unlock()
		if len(tasks) == 0 {
			break
		}
		for _, task := range tasks {
			task()
			n++
		}
	}
	l.mx.Lock()
	order, frames := l.order, l.frames
	l.order, l.frames = nil, make(map[string]func())
	if len(order) > 0 {
		l.frame++
	}
	l.mx.Unlock()
	for _, key := range order {
		frames[key]()
		n++
	}
	if len(order) > 0 {
		tracer().Debugf("frame ran %d callbacks", len(order))
	}
	return n
}

// Wait blocks until work is pending or the context is done.
func (l *Loop) Wait(ctx context.Context) error {
	for !l.Pending() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
	return nil
}

// Settle ticks until no work is pending, or the context is done. Work
// posted from other goroutines while settling is waited for only if it
// arrives before the loop runs dry.
func (l *Loop) Settle(ctx context.Context) error {
	for l.Pending() {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Tick()
	}
	return nil
}

// Run ticks whenever work is pending, at most once per interval, until the
// context is done.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := l.Wait(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Guard is an in-flight flag. It must only be used from the loop thread.
type Guard struct {
	busy bool
}

// TryEnter sets the flag and returns true, or returns false if the flag is
// already set.
func (g *Guard) TryEnter() bool {
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

// Leave clears the flag.
func (g *Guard) Leave() {
	g.busy = false
}

// Busy tells whether the flag is set.
func (g *Guard) Busy() bool {
	return g.busy
}
