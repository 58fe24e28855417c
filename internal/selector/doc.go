// Package selector implements incremental, memoized selectors.
//
// A selector is a pure function of a state snapshot (plus arguments) that may
// call other selectors. Calls made while a selector computes are recorded as
// its inputs; nothing is declared up front. On the next evaluation against a
// new snapshot the engine re-evaluates only those inputs, with the arguments
// they were last called with, and reruns the selector only if one of them
// returns a different result.
//
// # Evaluation
//
// For each call of a selector inside a Context:
//
//  1. Find the cache entry: the selector's shared slot when globally scoped,
//     otherwise the slot in the context's selector map.
//  2. No entry yet: compute. The context's recording list is swapped for a
//     fresh one, the function runs, and the list becomes the entry's inputs.
//  3. Entry present: if the arguments differ (length, then per-index
//     identity) compute. If the snapshot is the one the entry last saw,
//     reuse. Otherwise re-evaluate every recorded input in this context and
//     compare with the recorded result; any difference means compute, none
//     means reuse and remember the new snapshot.
//  4. Whatever happened, the call is appended to the caller's recording list
//     together with the result it returned.
//
// State selectors read the snapshot directly, never record inputs and
// recompute whenever the snapshot changed.
//
// # Scope
//
// Zero-argument selectors are global by default: one slot shared by every
// context. Selectors with arguments are local by default: one slot per
// context. WithScope overrides either default.
//
// # Identity
//
// Results, arguments and snapshots are compared with Identical, a shallow
// reference identity: scalars by value, pointers, maps, channels and
// functions by address, slices by address and length, structs and arrays
// element by element using the same rules.
//
// A Context is not safe for concurrent use, and evaluation must nest
// strictly: the recording list is saved and restored around every
// computation on the one mutable Context.
package selector
