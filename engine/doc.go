/*
Package engine holds the table of script engine versions.

An engine descriptor bundles everything that may change between versions
of the script language: the parser (with its grammar and keyword
validator) and the function namespaces bound into routines. Scripts select
an engine with a `// @version = n` directive.

A Registry is filled once at startup and read afterwards. It is safe for
concurrent use.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package engine

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.engine'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.engine")
}
