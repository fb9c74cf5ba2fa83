package runtime

import (
	"errors"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'chartscript.runtime'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.runtime")
}

// ErrStackOverflow is returned when a call would exceed the maximum call depth.
var ErrStackOverflow = errors.New("maximum call depth exceeded")

// Runtime is a type implementing a runtime environment for an interpreter.
type Runtime struct {
	Globals       *Scope            // outermost scope, containing bindings
	MemFrameStack *MemoryFrameStack // runtime stack of memory frames
	MaxDepth      int               // maximum depth of the memory frame stack
	UData         interface{}       // extension point
}

// NewRuntimeEnvironment constructs a new runtime environment, initialized
// with a global memory frame for scope globals.
func NewRuntimeEnvironment(globals *Scope, maxDepth int) *Runtime {
	if globals == nil {
		globals = NewScope("globals", nil)
	}
	rt := &Runtime{
		Globals:  globals,
		MaxDepth: maxDepth,
	}
	rt.MemFrameStack = new(MemoryFrameStack)                 // initialize memory frame stack
	mf := rt.MemFrameStack.PushNewMemoryFrame("global", nil) // global memory
	mf.Scope = globals                                       // connect the global frame with the global scope
	mf.SymbolTable = globals.Tags()
	return rt
}

// Call pushes a new memory frame with a fresh scope for a function call.
// The scope's parent is the scope the function has been defined in.
// Clients must call Return with the frame after the call has finished.
func (rt *Runtime) Call(name string, defScope *Scope) (*DynamicMemoryFrame, error) {
	if rt.MaxDepth > 0 && rt.MemFrameStack.Depth() >= rt.MaxDepth {
		tracer().Errorf("call of %s exceeds call depth %d", name, rt.MaxDepth)
		return nil, ErrStackOverflow
	}
	sc := NewScope(name, defScope)
	mf := rt.MemFrameStack.PushNewMemoryFrame(name, sc)
	mf.SymbolTable = sc.Tags()
	return mf, nil
}

// Return pops the memory frame of a finished call.
func (rt *Runtime) Return(mf *DynamicMemoryFrame) {
	for rt.MemFrameStack.Depth() > 1 {
		if rt.MemFrameStack.PopMemoryFrame() == mf {
			return
		}
	}
}
