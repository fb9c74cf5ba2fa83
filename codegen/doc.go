/*
Package codegen turns a parsed script into an executable routine.

A routine is the script body, parsed into a syntax tree, together with a
list of bindings. Every context channel and every declared key is bound by
reference: at run time the binding reads the current entry of one of the
context's maps (channels, input values, style values, HTTP values). A
binding never holds a declared default. Changing a value in one of the maps
is observed by the next invocation without generating the routine again.

Names assigned to in the body which are neither bound nor declared are
routine locals. They are reset to null for every invocation and never leak
into the binding scope.

Every generated routine gets a new identity (ID), even if the body is
unchanged.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package codegen

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.codegen'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.codegen")
}
