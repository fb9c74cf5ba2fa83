/*
Package script parses chart script sources into metadata, declarations and
a routine body.

A chart script is a text with three kinds of content. Metadata lines are
comments of the form

	// @name = My Indicator
	// @position = main

Declaration lines bind a key to an input control, a style or a deferred
HTTP call:

	period = input.int(14, min=1, max=200)
	stroke = style.line("#2196f3", 2, "dashed")
	quotes = http.get("https://example.com/q", { limit: 10 })

Declarations may span several lines. Everything else is the body, which is
handed to package codegen unchanged, except that metadata and declaration
lines are blanked out. Blanking keeps line numbers of the body identical
to line numbers of the source.

Parsing is pure: given the same source and presets it yields the same
result. Errors in single declarations are collected and do not abort
parsing; the only fatal error is a script without name or title.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package script

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.script'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.script")
}
