package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/loop"
	"github.com/npillmayer/chartscript/metrics"
	"github.com/npillmayer/chartscript/script"
)

// Call is an external call with evaluated arguments.
type Call struct {
	Key    string
	Method string
	Args   []dsl.Value
}

// Fetcher performs external calls. Fetch is called outside the loop thread.
type Fetcher interface {
	Fetch(ctx context.Context, call Call) (dsl.Value, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, call Call) (dsl.Value, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, call Call) (dsl.Value, error) {
	return f(ctx, call)
}

// Batch is one fetch cycle of a script instance. All fields except Eval are
// read and written on the loop thread only.
type Batch struct {
	Key     string                                 // instance key, for diagnostics
	Calls   []*script.HTTPCall                     // in declaration order
	Eval    func(raw string) ([]dsl.Value, error)  // evaluates raw call arguments
	Values  map[string]dsl.Value                   // the instance's httpVal map
	Guard   *loop.Guard                            // in-flight flag of the instance
	Settled func()                                 // called after the batch settled, may be nil
	Failed  func(call *script.HTTPCall, err error) // called per failed call, may be nil
	Redraw  func()                                 // overrides Options.Redraw, may be nil
	// Epoch, if Current is set, is compared to Current() before a result
	// is stored. Results of an outdated epoch are discarded.
	Epoch   uint64
	Current func() uint64
}

// Options configure a coordinator.
type Options struct {
	Fetcher Fetcher
	Loop    *loop.Loop
	Redraw  func()           // schedules a redraw, may be nil
	Metrics *metrics.Metrics // may be nil
	Timeout time.Duration    // per call; 0 means no timeout
}

// Coordinator runs fetch batches.
type Coordinator struct {
	opts Options
}

// NewCoordinator creates a coordinator. Fetcher and Loop are required.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Fetcher == nil || opts.Loop == nil {
		panic("fetch coordinator needs a fetcher and a loop")
	}
	return &Coordinator{opts: opts}
}

// Pending returns the calls whose value is null or absent from values.
func Pending(calls []*script.HTTPCall, values map[string]dsl.Value) []*script.HTTPCall {
	var pending []*script.HTTPCall
	for _, call := range calls {
		if v, ok := values[call.Key]; !ok || v.IsNull() {
			pending = append(pending, call)
		}
	}
	return pending
}

type job struct {
	call *script.HTTPCall
	args []dsl.Value
	err  error
}

// Run starts a fetch cycle. It must be called on the loop thread. It returns
// false, doing nothing, if the batch has no calls or the guard shows a cycle
// in flight.
//
// Arguments are evaluated immediately, against the current state of the
// instance. Calls are then issued one after another, in order, on a
// separate goroutine. Each outcome is posted back to the loop: success
// stores the value in the call and in Values, failure clears both. Once all
// calls are done, the guard is released, Settled is called and a single
// redraw is requested, through b.Redraw if set.
func (c *Coordinator) Run(ctx context.Context, b *Batch) bool {
	if len(b.Calls) == 0 {
		return false
	}
	if !b.Guard.TryEnter() {
		tracer().Debugf("%s: fetch in flight, skipping", b.Key)
		c.opts.Metrics.Skipped()
		return false
	}
	jobs := make([]job, len(b.Calls))
	for i, call := range b.Calls {
		jobs[i].call = call
		if b.Eval != nil {
			jobs[i].args, jobs[i].err = b.Eval(call.Args)
		}
	}
	tracer().Debugf("%s: fetching %d calls", b.Key, len(jobs))
	go func() {
		defer c.opts.Loop.Post(func() { c.settle(b) })
		for _, j := range jobs {
			j := j
			result, err := dsl.Null, j.err
			if err == nil {
				result, err = c.fetch(ctx, j.call, j.args)
			}
			c.opts.Loop.Post(func() { c.apply(b, j.call, result, err) })
		}
	}()
	return true
}

func (c *Coordinator) fetch(ctx context.Context, call *script.HTTPCall,
	args []dsl.Value) (v dsl.Value, err error) {
	//
	if err = ctx.Err(); err != nil {
		return dsl.Null, err
	}
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			v, err = dsl.Null, fmt.Errorf("%s failed: %v", call.Method, r)
		}
		c.opts.Metrics.Fetched(call.Method, start, err)
	}()
	return c.opts.Fetcher.Fetch(ctx, Call{Key: call.Key, Method: call.Method, Args: args})
}

func (c *Coordinator) apply(b *Batch, call *script.HTTPCall, v dsl.Value, err error) {
	if b.Current != nil && b.Current() != b.Epoch {
		tracer().Debugf("%s: discarding stale result of %s", b.Key, call.Key)
		return
	}
	if err != nil {
		tracer().Infof("%s: call %s failed: %v", b.Key, call.Key, err)
		call.Value = dsl.Null
		b.Values[call.Key] = dsl.Null
		if b.Failed != nil {
			b.Failed(call, err)
		}
		return
	}
	call.Value = v
	b.Values[call.Key] = v
}

func (c *Coordinator) settle(b *Batch) {
	b.Guard.Leave()
	if b.Settled != nil {
		b.Settled()
	}
	if b.Redraw != nil {
		b.Redraw()
	} else if c.opts.Redraw != nil {
		c.opts.Redraw()
	}
}
