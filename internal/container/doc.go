// Package container manages reference-counted, lazily initialized
// components.
//
// A Component is an identity token plus an initializer. The first Use of a
// component runs its initializer; every Use returns a Handle that must be
// released. When the last handle is released the component is disposed and
// every dependency its initializer acquired through Require is released in
// reverse order.
//
// Provide substitutes the initializer for a component identity. It must be
// called before the component is first used; tests use it to swap stores,
// fetchers or history implementations.
//
// Components are keyed by an explicit ID assigned at construction, never by
// the value they produce.
package container
