package manager

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/codegen"
	"github.com/npillmayer/chartscript/console"
	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/engine"
	"github.com/npillmayer/chartscript/fetch"
	"github.com/npillmayer/chartscript/loop"
	"github.com/npillmayer/chartscript/metrics"
	"github.com/npillmayer/chartscript/render"
	"github.com/npillmayer/chartscript/script"
)

// ErrNoInstance is returned for keys without an instance.
var ErrNoInstance = errors.New("no script instance")

// ErrUnknownKey is reported for configuration values of undeclared keys.
var ErrUnknownKey = errors.New("no such declaration")

// Options configure a manager. Registry, Host and Loop are required.
type Options struct {
	Registry     *engine.Registry
	Host         chart.Host
	Loop         *loop.Loop
	Fetcher      fetch.Fetcher    // nil leaves external calls unresolved
	Console      console.Sink     // nil discards messages
	Metrics      *metrics.Metrics // may be nil
	FetchTimeout time.Duration    // per external call; 0 means none
	MaxSteps     int              // per routine execution; 0 means the interpreter default
	// EpochCheck makes results of external calls issued before a
	// recompilation be discarded instead of overwriting newer ones.
	EpochCheck bool
}

// Manager manages the script instances of one chart.
type Manager struct {
	opts      Options
	instances map[string]*Instance
	fetcher   *fetch.Coordinator
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a manager.
func New(opts Options) *Manager {
	if opts.Registry == nil || opts.Host == nil || opts.Loop == nil {
		panic("manager needs a registry, a host and a loop")
	}
	if opts.Console == nil {
		opts.Console = console.Discard
	}
	m := &Manager{
		opts:      opts,
		instances: make(map[string]*Instance),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	if opts.Fetcher != nil {
		m.fetcher = fetch.NewCoordinator(fetch.Options{
			Fetcher: opts.Fetcher,
			Loop:    opts.Loop,
			Metrics: opts.Metrics,
			Timeout: opts.FetchTimeout,
		})
	}
	return m
}

// Close removes all instances and cancels external calls in flight.
func (m *Manager) Close() {
	for _, key := range m.Keys() {
		m.Remove(key)
	}
	m.cancel()
}

// Keys returns the keys of all instances, sorted.
func (m *Manager) Keys() []string {
	keys := maps.Keys(m.instances)
	slices.Sort(keys)
	return keys
}

// Instance returns the instance of key, or nil.
func (m *Manager) Instance(key string) *Instance {
	return m.instances[key]
}

func (m *Manager) console(key string) console.Emitter {
	return console.For(key, m.opts.Console)
}

// RegisterOptions are optional arguments of Register.
type RegisterOptions struct {
	Origin  string // bookkeeping category, e.g. the owner of the script
	Presets script.Presets
}

// Register parses and generates a script and stores it as the instance of
// key. An existing instance of key is retired first, but only once the new
// source has parsed: if the source has neither name nor title, or requests
// an unknown engine version, Register fails and leaves the existing
// instance in place.
//
// Declaration errors are returned, and reported to the console, without
// failing the registration. So are generation errors: the instance is
// registered but does not execute.
func (m *Manager) Register(key, src string, ro RegisterOptions) (*Instance, []error, error) {
	out := m.console(key)
	desc, err := m.opts.Registry.ValidateVersion(src)
	if err != nil {
		out.Error("%v", err)
		return nil, nil, err
	}
	ps, errs, err := desc.Parser.Parse(src, ro.Presets)
	if err != nil {
		out.Error("%v", err)
		return nil, errs, err
	}
	ps.Meta.Version = desc.Version // the engine actually running the script
	if old := m.instances[key]; old != nil {
		tracer().Infof("%s: retiring previous instance", key)
		m.retire(old)
	}
	inst := &Instance{
		key:      key,
		origin:   ro.Origin,
		source:   src,
		engine:   desc,
		inputVal: make(map[string]dsl.Value),
		styleVal: make(map[string]dsl.Value),
		httpVal:  make(map[string]dsl.Value),
		visible:  true,
		cache:    render.NewCache(),
		phase:    Registered,
	}
	host := m.opts.Host
	if ps.Meta.Position == script.Main {
		inst.pane = chart.Primary
	} else {
		inst.pane = host.AddPane().ID
		inst.bridge = draw.NewRecorder(draw.Size{})
	}
	host.Pane(inst.pane).Attach(key)
	m.instances[key] = inst
	inst.fill(ps)
	m.install(inst, ps, errs)
	inst.lastState = m.CurrentState(inst)
	inst.lastHash = inst.lastState.Hash()
	inst.unsubscribe = host.Subscribe(func(ev chart.Event) {
		m.onEvent(inst, ev)
	})
	host.Bookkeeping().Inc(inst.origin)
	m.opts.Metrics.Registered()
	tracer().Infof("%s: registered %q on %s, engine v%d", key, inst.Name(), inst.pane, desc.Version)
	out.System("registered %s (engine v%d)", inst.Name(), desc.Version)
	for _, e := range errs {
		out.Error("%v", e)
	}
	m.startFetch(inst, ps.Calls)
	m.requestRedraw(inst)
	return inst, errs, nil
}

// install generates the routine of a parse result and swaps it into the
// instance, together with the parse result itself.
func (m *Manager) install(inst *Instance, ps *script.ParsedScript, errs []error) {
	routine, err := codegen.Generate(ps, inst.engine.Environment())
	inst.script, inst.errs = ps, errs
	inst.routine, inst.genErr = routine, err
	if err != nil {
		var gerr *codegen.GenerateError
		if errors.As(err, &gerr) && gerr.Window != "" {
			m.console(inst.key).Error("%v\n%s", err, gerr.Window)
		} else {
			m.console(inst.key).Error("%v", err)
		}
		tracer().Infof("%s: %v", inst.key, err)
		inst.phase = Registered
		return
	}
	inst.phase = Compiled
}

// Remove tears down the instance of key. It returns false if there is no
// such instance.
func (m *Manager) Remove(key string) bool {
	inst := m.instances[key]
	if inst == nil {
		return false
	}
	m.retire(inst)
	m.console(key).System("removed %s", inst.Name())
	tracer().Infof("%s: removed", key)
	return true
}

// retire unsubscribes an instance, detaches it from its pane and removes
// the pane if it is a secondary pane left empty.
func (m *Manager) retire(inst *Instance) {
	host := m.opts.Host
	if inst.unsubscribe != nil {
		inst.unsubscribe()
		inst.unsubscribe = nil
	}
	if p := host.Pane(inst.pane); p != nil {
		p.Detach(inst.key)
		if p.Empty() && !p.IsPrimary() {
			host.RemovePane(p.ID)
		} else {
			host.RequestRedraw(p.ID)
		}
	}
	if inst.bridge != nil {
		inst.bridge.Clear()
		host.RequestRedraw(chart.Primary)
	}
	host.Bookkeeping().Dec(inst.origin)
	m.opts.Metrics.Retired()
	inst.phase = Removed
	delete(m.instances, inst.key)
}

func (m *Manager) requestRedraw(inst *Instance) {
	if inst.phase == Removed {
		return
	}
	m.opts.Host.RequestRedraw(inst.pane)
}

// SetVisible shows or hides an instance. It returns false if there is no
// instance of key.
func (m *Manager) SetVisible(key string, visible bool) bool {
	inst := m.instances[key]
	if inst == nil {
		return false
	}
	if inst.visible != visible {
		inst.visible = visible
		m.requestRedraw(inst)
		if inst.bridge != nil {
			m.opts.Host.RequestRedraw(chart.Primary)
		}
	}
	return true
}

// startFetch runs external calls of an instance, if a fetcher is
// configured. Once the batch has settled, the instance is invalidated and
// redrawn.
func (m *Manager) startFetch(inst *Instance, calls []*script.HTTPCall) bool {
	if m.fetcher == nil || len(calls) == 0 {
		return false
	}
	out := m.console(inst.key)
	b := &fetch.Batch{
		Key:   inst.key,
		Calls: calls,
		Eval: func(raw string) ([]dsl.Value, error) {
			return codegen.EvalArgs(raw, m.context(inst, nil))
		},
		Values: inst.httpVal,
		Guard:  &inst.fetching,
		Settled: func() {
			if inst.phase != Removed {
				inst.cache.Invalidate()
			}
		},
		Failed: func(call *script.HTTPCall, err error) {
			out.Warn("%s: %s failed: %v", call.Key, call.Method, err)
		},
		Redraw: func() { m.requestRedraw(inst) },
	}
	if m.opts.EpochCheck {
		b.Epoch = inst.epoch
		b.Current = func() uint64 { return inst.epoch }
	}
	started := m.fetcher.Run(m.ctx, b)
	if started {
		out.Tool("fetching %d external calls", len(calls))
	}
	return started
}
