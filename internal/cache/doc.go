// Package cache memoizes idempotent provider calls.
//
// [Wrap1], [Wrap2] and [Wrap3] return a function with the wrapped signature plus an optional trailing
// [CallOption]. Keys are built from the namespace, the function name and the JSON encoding of the
// positional arguments, so an entry is only ever reused for the exact same call. Results are stored as
// JSON through a [Store]; [MemoryStore] keeps them in process and the repositories package provides a
// SQLite backend.
//
// Errors returned by the wrapped function are never stored. Concurrent calls with the same key are not
// merged: each one that misses invokes the wrapped function.
package cache
