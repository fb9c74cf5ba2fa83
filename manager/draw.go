package manager

import (
	"fmt"
	"strings"
	"time"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/codegen"
	"github.com/npillmayer/chartscript/console"
	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/chartscript/dsl"
)

// DrawPane draws all visible instances of a pane into target, in order of
// attachment. Drawing the primary pane also composites what secondary
// instances bridged onto it. A failing instance does not keep the others
// from drawing. DrawPane is a chart.RenderFunc.
func (m *Manager) DrawPane(p *chart.Pane, target draw.Target) {
	for _, key := range p.Keys() {
		inst := m.instances[key]
		if inst == nil || !inst.visible {
			continue
		}
		m.Draw(inst, p.Bounds, target)
	}
	if !p.IsPrimary() {
		return
	}
	for _, key := range m.Keys() {
		inst := m.instances[key]
		if inst.bridge != nil && inst.visible && inst.bridge.Len() > 0 {
			target.Composite(inst.bridge, p.Bounds.Origin)
		}
	}
}

// Draw renders an instance through its render cache, executing the routine
// if the cache is dirty. Failures are reported to the console and draw
// nothing; Draw always returns true. Re-entrant calls for the same
// instance return immediately.
func (m *Manager) Draw(inst *Instance, bounds draw.Rect, target draw.Target) bool {
	if inst == nil || inst.phase == Removed {
		return true
	}
	if !inst.drawing.TryEnter() {
		tracer().Debugf("%s: draw re-entered, ignoring", inst.key)
		return true
	}
	defer inst.drawing.Leave()
	inst.cache.Draw(bounds, target, func(s draw.Surface) error {
		return m.execute(inst, s)
	})
	return true
}

// execute runs the routine of an instance once, drawing onto s.
func (m *Manager) execute(inst *Instance, s draw.Surface) (err error) {
	if inst.routine == nil {
		return nil
	}
	prev := inst.phase
	inst.phase = Executing
	if inst.bridge != nil {
		inst.bridge.Clear()
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("routine panicked: %v", r)
		}
		inst.phase = prev
		m.opts.Metrics.Drawn(start, err)
		if err != nil {
			tracer().Errorf("%s: %v", inst.key, err)
			m.console(inst.key).Error("%v", err)
			if inst.bridge != nil {
				inst.bridge.Clear()
			}
		}
	}()
	return inst.routine.Invoke(m.context(inst, s))
}

// context builds the per-execution context of an instance. Without a
// surface, the drawing channels stay null; such contexts serve to evaluate
// arguments of external calls.
func (m *Manager) context(inst *Instance, s draw.Surface) *codegen.Context {
	host := m.opts.Host
	out := m.console(inst.key)
	ch := make(map[string]dsl.Value)
	cols := chart.Columns(host.DataList())
	for _, name := range chart.ColumnNames {
		series := dsl.FromGo(cols[name])
		ch[name] = series
		ch["r"+name] = dsl.Arr(series.AsArray().Reverse())
	}
	ch["rev"] = dsl.NativeFn("rev", rev)
	ch["chart"] = dsl.Obj(m.chartInfo(inst, s))
	desc := inst.engine
	ch[desc.FunctionsName] = dsl.Obj(desc.Functions.Copy())
	if desc.UtilsName != "" && desc.Utils != nil {
		ch[desc.UtilsName] = dsl.Obj(desc.Utils.Copy())
	}
	math := dsl.Obj(dsl.Math())
	ch["math"], ch["Math"] = math, math
	if s != nil {
		ch["draw"] = dsl.Obj(draw.Namespace(s))
	}
	if s != nil && inst.bridge != nil {
		inst.bridge.Resize(m.primarySize())
		ch["main"] = dsl.Obj(draw.Restricted(inst.bridge))
	}
	m.brokerChannels(ch, out)
	ch["print"] = dsl.NativeFn("print", emitter(out.Print))
	ch["warn"] = dsl.NativeFn("warn", emitter(out.Warn))
	ch["signal"] = dsl.NativeFn("signal", emitter(out.Signal))
	return &codegen.Context{
		Channels: ch,
		InputVal: inst.inputVal,
		StyleVal: inst.styleVal,
		HTTPVal:  inst.httpVal,
		MaxSteps: m.opts.MaxSteps,
	}
}

func (m *Manager) primarySize() draw.Size {
	if p := m.opts.Host.PrimaryPane(); p != nil {
		return p.Bounds.Size
	}
	return draw.Size{}
}

func (m *Manager) chartInfo(inst *Instance, s draw.Surface) *dsl.Object {
	host := m.opts.Host
	vp := host.Viewport()
	info := dsl.NewObject().
		Set("symbol", dsl.Str(host.Symbol())).
		Set("period", dsl.Str(host.Period())).
		Set("length", dsl.Num(float64(len(host.DataList())))).
		Set("from", dsl.Num(float64(vp.From))).
		Set("to", dsl.Num(float64(vp.To))).
		Set("barSpacing", dsl.Num(vp.BarSpacing)).
		Set("precision", dsl.Num(float64(vp.Precision))).
		Set("name", dsl.Str(inst.Name())).
		Set("position", dsl.Str(string(inst.script.Meta.Position)))
	if s != nil {
		info.Set("width", dsl.Num(s.Size().W)).Set("height", dsl.Num(s.Size().H))
	}
	return info
}

// rev(series, n) returns the value n bars back, 0 being the most recent.
// Without n, it returns the reverse view of the series.
func rev(args []dsl.Value) (dsl.Value, error) {
	s := dsl.Arg(args, 0)
	if s.Tag != dsl.VTArray {
		return dsl.Null, nil
	}
	r := s.AsArray().Reverse()
	if len(args) < 2 {
		return dsl.Arr(r), nil
	}
	n, ok := dsl.Arg(args, 1).Int()
	if !ok {
		return dsl.Null, nil
	}
	return r.At(n), nil
}

func emitter(emit func(string, ...interface{})) dsl.Native {
	return func(args []dsl.Value) (dsl.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		emit("%s", strings.Join(parts, " "))
		return dsl.Null, nil
	}
}

// brokerChannels adds account, orders and positions. Each accessor is
// guarded on its own: a failing broker yields zero values, and a warning.
func (m *Manager) brokerChannels(ch map[string]dsl.Value, out console.Emitter) {
	broker := m.opts.Host.Broker()
	guarded := func(name string, empty func() dsl.Value, get func() (dsl.Value, error)) {
		ch[name] = dsl.NativeFn(name, func([]dsl.Value) (v dsl.Value, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%v", r)
				}
				if err != nil {
					out.Warn("%s unavailable: %v", name, err)
					v, err = empty(), nil
				}
			}()
			if broker == nil {
				return empty(), nil
			}
			return get()
		})
	}
	emptyList := func() dsl.Value { return dsl.List() }
	guarded("account", func() dsl.Value { return accountValue(chart.Account{}) }, func() (dsl.Value, error) {
		a, err := broker.Account()
		return accountValue(a), err
	})
	guarded("orders", emptyList, func() (dsl.Value, error) {
		orders, err := broker.Orders()
		list := make([]dsl.Value, len(orders))
		for i, o := range orders {
			list[i] = dsl.Obj(dsl.NewObject().
				Set("id", dsl.Str(o.ID)).
				Set("symbol", dsl.Str(o.Symbol)).
				Set("side", dsl.Str(o.Side)).
				Set("type", dsl.Str(o.Type)).
				Set("qty", dsl.Num(o.Qty)).
				Set("price", dsl.Num(o.Price)).
				Set("status", dsl.Str(o.Status)))
		}
		return dsl.List(list...), err
	})
	guarded("positions", emptyList, func() (dsl.Value, error) {
		positions, err := broker.Positions()
		list := make([]dsl.Value, len(positions))
		for i, p := range positions {
			list[i] = dsl.Obj(dsl.NewObject().
				Set("symbol", dsl.Str(p.Symbol)).
				Set("qty", dsl.Num(p.Qty)).
				Set("avgPrice", dsl.Num(p.AvgPrice)).
				Set("lastPrice", dsl.Num(p.LastPrice)).
				Set("pnl", dsl.Num(p.UnrealizedPnL())))
		}
		return dsl.List(list...), err
	})
}

func accountValue(a chart.Account) dsl.Value {
	return dsl.Obj(dsl.NewObject().
		Set("balance", dsl.Num(a.Balance)).
		Set("equity", dsl.Num(a.Equity)).
		Set("margin", dsl.Num(a.Margin)).
		Set("currency", dsl.Str(a.Currency)))
}
