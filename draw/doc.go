/*
Package draw provides the drawing namespace of chart scripts.

Scripts draw onto a Surface by calling functions of the draw namespace,
e.g. draw.line(series, style). Drawing is recorded as a list of commands;
a Recorder is an offscreen surface which may later be composited onto a
Target, such as the pane of a chart.

Coordinates of commands are in data space: X is a bar index, Y a price.
Mapping to pixels is left to the host.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package draw

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.draw'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.draw")
}
