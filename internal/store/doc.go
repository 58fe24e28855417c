// Package store holds namespaced state slices and the selector layer that
// composes them.
//
// A Store owns one state value and the transitions that replace it in
// response to actions. All transitions registered for one action key run in
// registration order against a single draft, and the result is published
// once. Readers only ever see complete snapshots.
//
// Drafts are shallow copies of the current state. A transition that changes
// a map or slice field must replace it with a copy (CloneMap, SetKey,
// DeleteKey, SetIndex, Append) so earlier snapshots stay unchanged.
//
// A Definition registers a store as a container component connected to the
// shared action bus. Super-selectors are selectors that carry the set of
// definitions they read; composing them unions those sets, so a Selection
// can acquire and watch exactly the stores a selector needs.
package store
