/*
Package console implements the categorized message channel of script
instances.

Everything a user should see about a running script is emitted as a
Message: output of print statements, signals, warnings, runtime errors and
system notices. Messages are never returned as Go errors to the host; the
host renders them as a per-instance console feed.

A Feed keeps a bounded history per instance key and fans messages out to
subscribers. A Hub streams messages to websocket clients.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package console

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.console'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.console")
}
