/*
Package chart defines the chart host a script engine runs in, and provides
a headless implementation of it.

A chart owns a list of candles for one symbol and period, and a set of
panes. The primary pane shows the price chart; secondary panes are added
below it for scripts which draw on a scale of their own. Scripts reach
panes by id only; the host resolves ids on demand.

The headless Chart is driven by a loop.Loop. Redraw requests are collected
in a dirty set and rendered in one frame, with the primary pane last.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package chart

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.chart'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.chart")
}
