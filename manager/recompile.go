package manager

import (
	"fmt"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/fetch"
	"github.com/npillmayer/chartscript/script"
)

// CurrentState returns the state an instance would be generated for now.
func (m *Manager) CurrentState(inst *Instance) State {
	host := m.opts.Host
	st := State{
		Symbol:     host.Symbol(),
		Period:     host.Period(),
		DataLength: len(host.DataList()),
	}
	for _, d := range inst.script.Inputs {
		st.Inputs = append(st.Inputs, InputState{Key: d.Key, Value: inst.inputVal[d.Key].String()})
	}
	return st
}

// onEvent reacts to a change of the chart. Without a structural change,
// data values may still have changed, so the instance is redrawn anyway.
func (m *Manager) onEvent(inst *Instance, ev chart.Event) {
	if inst.phase == Removed {
		return
	}
	tracer().Debugf("%s: chart %s changed", inst.key, ev.Kind)
	if !m.recompile(inst, m.CurrentState(inst)) {
		inst.cache.Invalidate()
		m.requestRedraw(inst)
	}
}

// Recompile regenerates the routine of key if the current state of the
// chart differs from the state it was generated for. It returns true if a
// new routine was installed.
func (m *Manager) Recompile(key string) bool {
	inst := m.instances[key]
	if inst == nil {
		return false
	}
	return m.recompile(inst, m.CurrentState(inst))
}

// RecompileWith is Recompile for a given state.
func (m *Manager) RecompileWith(key string, state State) bool {
	inst := m.instances[key]
	if inst == nil {
		return false
	}
	return m.recompile(inst, state)
}

// RecompileAll calls Recompile for every instance and returns the number of
// instances recompiled.
func (m *Manager) RecompileAll() int {
	n := 0
	for _, key := range m.Keys() {
		if m.Recompile(key) {
			n++
		}
	}
	return n
}

// recompile re-parses the source of an instance, carrying over the current
// configuration, and swaps in a newly generated routine. Results of
// external calls are kept; only calls without a result are issued again.
// Re-entrant calls are ignored.
func (m *Manager) recompile(inst *Instance, state State) bool {
	if inst.phase == Removed {
		return false
	}
	if !inst.recompiling.TryEnter() {
		tracer().Debugf("%s: recompilation in progress, ignoring", inst.key)
		return false
	}
	defer inst.recompiling.Leave()
	hash := state.Hash()
	if hash == inst.lastHash {
		return false
	}
	prev := inst.phase
	inst.phase = Recompiling
	ps, errs, err := inst.engine.Parser.Parse(inst.source, inst.presets())
	if err != nil {
		m.console(inst.key).Error("recompilation failed: %v", err)
		inst.phase = prev
		return false
	}
	ps.Meta.Version = inst.engine.Version
	for _, e := range errs {
		m.console(inst.key).Warn("%v", e)
	}
	inst.fill(ps)
	m.install(inst, ps, errs)
	inst.lastState, inst.lastHash = state, hash
	inst.epoch++
	inst.cache.Invalidate()
	m.opts.Metrics.Recompiled()
	tracer().Infof("%s: recompiled, routine #%d", inst.key, inst.RoutineID())
	m.startFetch(inst, fetch.Pending(ps.Calls, inst.httpVal))
	m.requestRedraw(inst)
	return true
}

// Config carries configuration values for SetConfig. Values are plain Go
// data or dsl.Value.
type Config struct {
	Inputs []script.Preset
	Styles []script.Preset
}

// SetConfig changes input and style values of an instance in place. The
// routine is not regenerated; it reads the new values at its next
// execution. If inputs changed and the script declares external calls,
// the calls are issued again. Invalid values are reported and skipped.
func (m *Manager) SetConfig(key string, cfg Config) ([]error, error) {
	inst := m.instances[key]
	if inst == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoInstance, key)
	}
	var errs []error
	inputsChanged := false
	for _, p := range cfg.Inputs {
		changed, err := m.configure(inst, p, inst.script.Input, inst.inputVal)
		if err != nil {
			errs = append(errs, err)
		}
		inputsChanged = inputsChanged || changed
	}
	for _, p := range cfg.Styles {
		if _, err := m.configure(inst, p, inst.script.Style, inst.styleVal); err != nil {
			errs = append(errs, err)
		}
	}
	for _, err := range errs {
		m.console(key).Warn("%v", err)
	}
	if inputsChanged && len(inst.script.Calls) > 0 {
		m.startFetch(inst, inst.script.Calls)
	}
	inst.cache.Invalidate()
	m.requestRedraw(inst)
	return errs, nil
}

func (m *Manager) configure(inst *Instance, p script.Preset, find func(string) *script.Declaration,
	values map[string]dsl.Value) (bool, error) {
	//
	d := find(p.Key)
	if d == nil {
		return false, &script.DeclError{Key: p.Key, Err: ErrUnknownKey}
	}
	v, err := d.Coerce(dsl.FromGo(p.Value), values[p.Key])
	if err != nil {
		return false, &script.DeclError{Key: p.Key, Line: d.Line, Err: err}
	}
	if dsl.Equal(values[p.Key], v) {
		return false, nil
	}
	values[p.Key] = v
	tracer().Debugf("%s: %s %s = %s", inst.key, d.Kind, p.Key, v)
	return true, nil
}
