package manager

import (
	"github.com/cnf/structhash"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/codegen"
	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/engine"
	"github.com/npillmayer/chartscript/loop"
	"github.com/npillmayer/chartscript/render"
	"github.com/npillmayer/chartscript/script"
)

// Phase is the life cycle state of an instance.
type Phase int8

// Phases of an instance. An instance whose routine could not be generated
// stays Registered.
const (
	Registered Phase = iota
	Compiled
	Executing
	Recompiling
	Removed
)

func (p Phase) String() string {
	switch p {
	case Registered:
		return "registered"
	case Compiled:
		return "compiled"
	case Executing:
		return "executing"
	case Recompiling:
		return "recompiling"
	case Removed:
		return "removed"
	}
	return "?"
}

// InputState is the value of one input, in its string form.
type InputState struct {
	Key   string
	Value string
}

// State is the data shape a routine was generated for. Styles and results
// of external calls are not part of it.
type State struct {
	Symbol     string
	Period     string
	DataLength int
	Inputs     []InputState
}

// Hash returns a structural fingerprint of the state.
func (s State) Hash() string {
	h, err := structhash.Hash(s, 1)
	if err != nil {
		panic(err) // State holds plain values only
	}
	return h
}

// Instance is one live, registered script.
type Instance struct {
	key         string
	origin      string
	source      string
	engine      *engine.Descriptor
	script      *script.ParsedScript
	errs        []error
	routine     *codegen.Routine
	genErr      error
	lastState   State
	lastHash    string
	inputVal    map[string]dsl.Value
	styleVal    map[string]dsl.Value
	httpVal     map[string]dsl.Value
	visible     bool
	pane        chart.PaneID
	cache       *render.Cache
	bridge      *draw.Recorder // content for the primary pane, secondary instances only
	fetching    loop.Guard
	recompiling loop.Guard
	drawing     loop.Guard
	unsubscribe func()
	phase       Phase
	epoch       uint64
}

// Key returns the instance key.
func (inst *Instance) Key() string { return inst.key }

// Origin returns the origin the instance was registered for.
func (inst *Instance) Origin() string { return inst.origin }

// Source returns the script source.
func (inst *Instance) Source() string { return inst.source }

// Engine returns the engine version the script runs on.
func (inst *Instance) Engine() int { return inst.engine.Version }

// Script returns the current parse result.
func (inst *Instance) Script() *script.ParsedScript { return inst.script }

// Errors returns the declaration errors of the last parse.
func (inst *Instance) Errors() []error { return inst.errs }

// Routine returns the generated routine, or nil if generation failed.
func (inst *Instance) Routine() *codegen.Routine { return inst.routine }

// RoutineID returns the identity of the routine, or 0.
func (inst *Instance) RoutineID() uint64 {
	if inst.routine == nil {
		return 0
	}
	return inst.routine.ID
}

// GenerateError returns the error of the last routine generation, if any.
func (inst *Instance) GenerateError() error { return inst.genErr }

// LastState returns the state the routine was generated for.
func (inst *Instance) LastState() State { return inst.lastState }

// Phase returns the life cycle state.
func (inst *Instance) Phase() Phase { return inst.phase }

// Visible tells whether the instance is drawn.
func (inst *Instance) Visible() bool { return inst.visible }

// Pane returns the id of the pane the instance draws on.
func (inst *Instance) Pane() chart.PaneID { return inst.pane }

// Cache returns the render cache.
func (inst *Instance) Cache() *render.Cache { return inst.cache }

// Bridge returns the content a secondary instance drew onto the primary
// pane, or nil for primary instances.
func (inst *Instance) Bridge() *draw.Recorder { return inst.bridge }

// Input returns the current value of an input.
func (inst *Instance) Input(key string) dsl.Value { return inst.inputVal[key] }

// Style returns the current value of a style.
func (inst *Instance) Style(key string) dsl.Value { return inst.styleVal[key] }

// HTTP returns the current result of an external call.
func (inst *Instance) HTTP(key string) dsl.Value { return inst.httpVal[key] }

// Fetching tells whether external calls are in flight.
func (inst *Instance) Fetching() bool { return inst.fetching.Busy() }

// Name returns the display name of the script.
func (inst *Instance) Name() string { return inst.script.Meta.DisplayName() }

// Config returns the current input and style values as plain Go data,
// suitable for storing as presets.
func (inst *Instance) Config() (inputs, styles map[string]interface{}) {
	inputs = make(map[string]interface{}, len(inst.inputVal))
	for k, v := range inst.inputVal {
		inputs[k] = v.Interface()
	}
	styles = make(map[string]interface{}, len(inst.styleVal))
	for k, v := range inst.styleVal {
		styles[k] = v.Interface()
	}
	return inputs, styles
}

// presets turns the current maps into presets, to carry values over a
// re-parse.
func (inst *Instance) presets() script.Presets {
	var p script.Presets
	for _, d := range inst.script.Inputs {
		if v, ok := inst.inputVal[d.Key]; ok {
			p.Inputs = append(p.Inputs, script.Preset{Key: d.Key, Value: v})
		}
	}
	for _, d := range inst.script.Styles {
		if v, ok := inst.styleVal[d.Key]; ok {
			p.Styles = append(p.Styles, script.Preset{Key: d.Key, Value: v})
		}
	}
	return p
}

// fill sets the reference maps from a parse result. The maps are updated in
// place; keys no longer declared are dropped. Results of external calls are
// kept for calls still declared; new calls start out null.
func (inst *Instance) fill(ps *script.ParsedScript) {
	refill(inst.inputVal, ps.Inputs)
	refill(inst.styleVal, ps.Styles)
	declared := make(map[string]bool, len(ps.Calls))
	for _, c := range ps.Calls {
		declared[c.Key] = true
		if v, ok := inst.httpVal[c.Key]; ok {
			c.Value = v
		} else {
			inst.httpVal[c.Key] = dsl.Null
		}
	}
	for k := range inst.httpVal {
		if !declared[k] {
			delete(inst.httpVal, k)
		}
	}
}

func refill(m map[string]dsl.Value, decls []*script.Declaration) {
	declared := make(map[string]bool, len(decls))
	for _, d := range decls {
		declared[d.Key] = true
		m[d.Key] = d.Value
	}
	for k := range m {
		if !declared[k] {
			delete(m, k)
		}
	}
}
