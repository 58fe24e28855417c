// Package query is a keyed resource cache built on the store and effect
// layers.
//
// A query is identified by its hash, "queryKey::canonical(args)". Consumers
// subscribe under a subscriber key; the first subscription starts a fetch.
// Entries move through initial, fetching, idle and error. When the last
// subscriber leaves, collection is scheduled after the cache time and the
// entry is dropped unless someone subscribes again first.
//
// Every state change is an action on the bus (namespace "query"), so the
// cache is fully visible in the trace log.
package query
