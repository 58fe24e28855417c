// Package harness runs navigation scenarios against a live navigator.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: redirect_to_login
//	description: "Guarded routes redirect to the login page"
//	routes: ../routes/app.cue
//	steps:
//	  - navigate: /admin
//	  - navigate: /projects/4
//	    mode: replace
//	  - back: 1
//	expect:
//	  - navigationRequested key=nav-1 origin=push location=/admin
//	  - ...
//	assertions:
//	  - type: trace_contains
//	    line: "navigationCanceled key=nav-1 reason=redirected redirect=/login"
//	  - type: final_location
//	    location: /login
//
// The routes path is relative to the scenario file. Each step waits until
// every navigation it started has finished. Expect, when present, must match
// the whole trace line for line.
//
// # Assertion Types
//
//   - trace_contains: a line appears in the trace
//   - trace_order: lines appear in order, not necessarily adjacent
//   - trace_count: exactly count lines start with prefix
//   - final_location: the router store's location after the last step
//   - active_routes: the ids of the active route chain, root first
//
// # Deterministic Testing
//
// Navigation keys come from a sequence generator ("nav-1", "nav-2", ...;
// the prefix is set with key_prefix), history starts at "/" and the trace
// is also written to an in-memory trace log whose seq numbers appear in
// golden snapshots.
package harness
