// Package router matches locations against a route tree and runs
// navigations through a cancellable check, prepare and commit pipeline.
//
// # Navigation model
//
// A Navigator owns a single-writer loop. Navigate enqueues a request and
// returns its key; the loop matches the location, diffs the new route chain
// against the active one and hands the ordered steps to a worker goroutine.
// Everything the worker produces (intermediate actions, the outcome) goes
// back through the loop, which drops it unless the key is still current.
// That is how supersession works: a newer request cancels the running
// navigation's context, publishes navigationCanceled{overridden} for it and
// from then on nothing for the old key reaches the bus.
//
// # Step order
//
// Given the diff of previous and next chains, each phase visits:
//
//  1. deactivated routes, leaf to root
//  2. updated routes as UpdateLeave, leaf to root
//  3. updated routes as UpdateEnter, root to leaf
//  4. activated routes, root to leaf
//
// The first non-approving check ends the navigation. Prepare runs every
// step's hooks and publishes routeResolved for entered routes. Commit runs
// every step's hooks and publishes routeDeactivated or routeCommitted, then
// navigationCompleted.
//
// # Events
//
// All events live in the "router" namespace and carry the navigation key:
// navigationRequested, navigationStarted, routeResolved, routeDeactivated,
// routeCommitted, navigationCompleted, navigationCanceled, navigationFailed.
package router
