package codegen

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/script"
)

// Source tells which context map a binding reads from.
type Source int8

const (
	ChannelSource Source = iota
	InputSource
	StyleSource
	HTTPSource
)

func (s Source) String() string {
	switch s {
	case ChannelSource:
		return "channel"
	case InputSource:
		return "inputVal"
	case StyleSource:
		return "styleVal"
	case HTTPSource:
		return "httpVal"
	}
	return "?"
}

// Binding binds a name of the routine to an entry of a context map.
type Binding struct {
	Name   string
	Source Source
	Key    string
}

// Environment names the namespaces an engine provides.
type Environment struct {
	FunctionsName string // numeric functions, e.g. "ta"
	UtilsName     string // utility functions, e.g. "utils"
}

// DefaultEnvironment is the environment of the standard engines.
var DefaultEnvironment = Environment{FunctionsName: "ta", UtilsName: "utils"}

// channels are the context names every routine may use, besides the
// namespaces of an environment.
var channels = []string{
	"open", "high", "low", "close", "volume", "time",
	"ropen", "rhigh", "rlow", "rclose", "rvolume", "rtime",
	"rev", "chart", "draw", "math", "Math", "main",
	"account", "orders", "positions",
	"print", "warn", "signal",
}

// Channels lists all context channel names of an environment.
func Channels(env Environment) []string {
	names := append([]string(nil), channels...)
	for _, ns := range []string{env.FunctionsName, env.UtilsName} {
		if ns != "" {
			names = append(names, ns)
		}
	}
	return names
}

var serial uint64

// Routine is a generated, executable script body.
type Routine struct {
	ID       uint64 // unique per generation
	Program  *dsl.Program
	Bindings []Binding
	Locals   []string
	Body     string
}

// GenerateError is a construction failure of a routine. Window holds the
// source lines around the failing position.
type GenerateError struct {
	Line, Col int
	Msg       string
	Window    string
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("cannot construct routine: %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Generate builds a routine from a parsed script. It fails with a
// *GenerateError if the body does not parse.
func Generate(ps *script.ParsedScript, env Environment) (*Routine, error) {
	prog, err := dsl.Parse(ps.Body)
	if err != nil {
		var perr *dsl.ParseError
		if errors.As(err, &perr) {
			gerr := &GenerateError{Line: perr.Pos.Line, Col: perr.Pos.Col, Msg: perr.Msg}
			gerr.Window = dsl.SourceWindow(ps.Source, perr.Pos.Line, perr.Pos.Col, 2)
			return nil, gerr
		}
		return nil, &GenerateError{Msg: err.Error()}
	}
	r := &Routine{
		ID:      atomic.AddUint64(&serial, 1),
		Program: prog,
		Body:    ps.Body,
	}
	declared := make(map[string]bool)
	for _, d := range ps.Inputs {
		declared[d.Key] = true
	}
	for _, d := range ps.Styles {
		declared[d.Key] = true
	}
	for _, c := range ps.Calls {
		declared[c.Key] = true
	}
	for _, ch := range Channels(env) {
		if !declared[ch] {
			r.Bindings = append(r.Bindings, Binding{Name: ch, Source: ChannelSource, Key: ch})
		}
	}
	for _, d := range ps.Inputs {
		r.Bindings = append(r.Bindings, Binding{Name: d.Key, Source: InputSource, Key: d.Key})
	}
	for _, d := range ps.Styles {
		r.Bindings = append(r.Bindings, Binding{Name: d.Key, Source: StyleSource, Key: d.Key})
	}
	for _, c := range ps.Calls {
		r.Bindings = append(r.Bindings, Binding{Name: c.Key, Source: HTTPSource, Key: c.Key})
	}
	r.Locals = findLocals(prog, r.Bindings)
	tracer().Debugf("generated routine #%d with %d bindings and locals %v", r.ID, len(r.Bindings), r.Locals)
	return r, nil
}

// Binding finds the binding of a name.
func (r *Routine) Binding(name string) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

// Listing renders the routine as text: a prologue of bindings and locals,
// followed by the body.
func (r *Routine) Listing() string {
	var b strings.Builder
	fmt.Fprintf(&b, "// routine #%d\n", r.ID)
	for _, bd := range r.Bindings {
		if bd.Source == ChannelSource {
			fmt.Fprintf(&b, "const %s = context.%s\n", bd.Name, bd.Key)
		} else {
			fmt.Fprintf(&b, "const %s = context.%s.%s\n", bd.Name, bd.Source, bd.Key)
		}
	}
	for _, l := range r.Locals {
		fmt.Fprintf(&b, "let %s = null\n", l)
	}
	b.WriteString(strings.TrimSpace(r.Body))
	b.WriteByte('\n')
	return b.String()
}
