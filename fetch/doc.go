/*
Package fetch coordinates the external data calls of script instances.

Calls are declared in scripts as http.<method>(args…) and run
asynchronously, outside the loop thread. Their results are handed back to
the loop thread, written into the instance's reference map and followed by
a single redraw once the whole batch has settled. While a batch is in
flight, new batches of the same instance are skipped.

Results arriving late simply overwrite what is in the map. An instance may
opt in to discarding stale results by setting an epoch on the batch.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package fetch

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'chartscript.fetch'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.fetch")
}
