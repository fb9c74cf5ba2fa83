/*
Package ta provides technical-analysis indicators for chart scripts.

Indicators exist in two forms. Streaming indicators (SMA, EMA, SMMA, RSI)
consume one price at a time and are O(1) per update. Batch functions apply
an indicator to a whole series and return a series of equal length, with
NaN (null, for scripts) during the warm-up phase.

Namespace builds the script-facing object for an engine version. Series
arguments are read in storage order, oldest first; results are forward
series as well.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package ta

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.ta'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.ta")
}
