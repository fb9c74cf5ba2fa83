/*
Package crepl/main provides an interactive command line tool (C.REPL) for
chart scripts. C.REPL hosts a headless chart with a runtime manager and
lets users load scripts, change their configuration, feed candles and
inspect the frames rendered. It serves as a sandbox for script authors
and for experiments with the engine.

Scripts and candles may be kept in a SQLite database or in Redis.
Optionally C.REPL starts an HTTP server with Prometheus metrics at
/metrics and a websocket console feed at /console?key=<script>.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/

package main

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'chartscript.crepl'
func tracer() tracing.Trace {
	return tracing.Select("chartscript.crepl")
}
