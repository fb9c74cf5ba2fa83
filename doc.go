/*
Package chartscript is a scripting engine for technical-analysis chart overlays.

Authors write short scripts which declare configurable inputs, styles and
external data calls, and whose body computes and draws indicators on a
price chart. The engine parses those scripts, turns them into routines bound
to their configuration by reference, and keeps them running frame by frame.

Package structure is as follows:

■ script: Package script parses script source text into metadata,
declarations and a routine body.

■ dsl: Package dsl implements the small expression language of routine
bodies: values, lexer, parser and interpreter.

■ codegen: Package codegen wraps a parsed script into a reference-bound
routine.

■ engine: Package engine is a registry of engine versions, i.e. parser and
built-in function sets keyed by the version a script declares.

■ manager: Package manager is the runtime manager for script instances:
registration, recompilation, configuration, drawing and teardown.

■ render, fetch, loop: Render caches, the asynchronous data fetch
coordinator, and the cooperative frame loop everything runs on.

■ chart, draw, ta, console: Collaborators of the engine: a headless chart
host, drawing primitives, numeric indicator functions and the per-instance
message feed.

■ store, metrics: Persistence of scripts, configuration and candle history
(SQLite, Redis), and Prometheus metrics of the runtime manager.

■ scanner, runtime: A tokenizer adapter for lexmachine, and scopes and
symbol tables for the interpreter.

■ manager/crepl: An interactive command line tool hosting a chart with a
runtime manager.

The base package contains data types which are used throughout all the other packages.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package chartscript
