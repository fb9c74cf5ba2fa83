/*
Package manager is the runtime manager of script instances.

A Manager belongs to one chart. It registers scripts under keys, keeps one
live instance per key, and drives the life cycle of each instance:

	registered → compiled → idle ⇄ executing → recompiling → compiled → … → removed

Routines read their configuration through reference maps owned by the
instance. Configuration changes therefore mutate those maps in place and
never recompile; recompilation happens only when the data shape (symbol,
period, number of bars) or the inputs differ from the state the routine
was generated for.

Every method must be called on the loop thread of the chart. No runtime
failure of a script escapes the manager: failures are reported to the
instance's console feed, and the affected frame draws nothing.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package manager

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.manager'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.manager")
}
