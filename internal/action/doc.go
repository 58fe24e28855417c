// Package action implements the typed, namespaced action bus.
//
// An Action is {Namespace, Name, Payload}. Action types are declared eagerly
// in a Set: every name a namespace supports is registered when the Set is
// built, and each registration yields a Type[T] that creates and recognizes
// actions with payload T.
//
// Actions routes a dispatched action to the Source cached for its key
// ("namespace::name"). Sources are singletons per key within one Actions
// instance, so every subscriber for a key shares one delivery list.
//
// Delivery is synchronous and in subscription order. Dispatch is reentrant:
// a subscriber may dispatch further actions, which are delivered before the
// outer Dispatch returns.
package action
