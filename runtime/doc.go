/*
Package runtime implements an interpreter runtime, consisting of
scopes, memory frames and tags (variable declarations and references).

For a thorough discussion of an interpreter's runtime environment, refer to
"Language Implementation Patterns" by Terence Parr.

Symbol Table and Scope Tree

This module implements data structures for scope trees and symbol tables
attached to them. Scope trees are used during static analysis of routine
bodies; scope chains are used for name resolution while a routine runs.

Reference Tags

A tag may either hold a value or be bound to a resolver function. A bound
tag reads its value through the resolver on every access. This is how
routines observe configuration changes without being rebuilt: the resolver
reads a mutable map owned by someone else.

Memory Frames

This module implements a stack of memory frames.
Memory frames are used by an interpreter to allocate local storage
for active scopes, i.e. for function calls.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package runtime
