package engine

import (
	"github.com/npillmayer/chartscript/codegen"
	"github.com/npillmayer/chartscript/script"
	"github.com/npillmayer/chartscript/ta"
)

// builtinNames are the global functions of the routine language.
var builtinNames = []string{"Number", "String", "isNaN", "isNull", "parseFloat", "parseInt", "Array"}

// NewDescriptor builds the descriptor of a standard engine version. Context
// channels, namespaces and language built-ins are reserved words for
// declarations.
func NewDescriptor(version int) *Descriptor {
	env := codegen.DefaultEnvironment
	kw := script.NewKeywords(codegen.Channels(env)...).Reserve(builtinNames...)
	g := script.DefaultGrammar()
	g.Validator = kw
	return &Descriptor{
		Version:       version,
		Parser:        script.NewParser(g),
		FunctionsName: env.FunctionsName,
		Functions:     ta.Namespace(version),
		UtilsName:     env.UtilsName,
		Utils:         ta.Utils(),
		Keywords:      kw,
	}
}

// Standard returns a registry holding the standard engines, versions 1 and 2,
// with version 1 as the default.
func Standard() *Registry {
	r := NewRegistry()
	for _, v := range []int{1, 2} {
		if err := r.Register(NewDescriptor(v)); err != nil {
			panic(err) // versions are distinct
		}
	}
	return r
}
