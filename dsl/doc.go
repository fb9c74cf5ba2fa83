/*
Package dsl implements the expression language of routine bodies.

The language is a small, JavaScript-flavoured subset: variable declarations,
assignments, if/else, for and while loops, functions (declared, anonymous
or arrow style), and the usual operators on numbers, strings, arrays and
objects. It is not a general-purpose runtime: there are no modules, no
user-defined types and no exceptions.

Values are a tagged union (see Value). Arrays may be reverse views onto
another array, where index 0 denotes the most recent element. Reading
outside an array, or reading a property of null, yields null instead of an
error.

Routines run against a runtime.Scope chain. Interpreter runs are bounded by
a step budget and a maximum call depth, so a runaway script cannot hang the
frame loop.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package dsl

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.dsl'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.dsl")
}
