package store

import (
	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/metrics"
)

// Definition declares a store as a container component. The store is
// created on first use, connected to the shared action bus and disconnected
// when its last handle is released.
type Definition[S any] struct {
	namespace string
	component *container.Component[*Store[S]]
}

// Define declares a store. initial builds the starting state of each
// instance; setup registers its transitions.
func Define[S any](namespace string, initial func() S, setup func(s *Store[S])) *Definition[S] {
	d := &Definition[S]{namespace: namespace}
	d.component = container.NewComponent(namespace, func(r *container.Resolver) (*Store[S], error) {
		bus, err := container.Require(r, action.Component)
		if err != nil {
			return nil, err
		}
		rec, err := container.Require(r, metrics.Component)
		if err != nil {
			return nil, err
		}

		s := New(namespace, initial(), WithMetrics(rec))
		if setup != nil {
			setup(s)
		}
		r.OnDispose(s.Connect(bus))
		return s, nil
	})
	return d
}

// Component returns the container component of the store.
func (d *Definition[S]) Component() *container.Component[*Store[S]] {
	return d.component
}

// ComponentID returns the component identity.
func (d *Definition[S]) ComponentID() container.ID {
	return d.component.ID()
}

// Namespace returns the store namespace.
func (d *Definition[S]) Namespace() string {
	return d.namespace
}

// Refs returns d itself, so a definition can be listed as a selector dep.
func (d *Definition[S]) Refs() []Ref {
	return []Ref{d}
}

func (d *Definition[S]) acquire(c *container.Container) (liveStore, error) {
	h, err := container.Use(c, d.component)
	if err != nil {
		return nil, err
	}
	return &storeHandle[S]{id: d.ComponentID(), h: h}, nil
}

// Ref is a store a super-selector reads. Only *Definition implements it.
type Ref interface {
	ComponentID() container.ID
	Namespace() string
	acquire(c *container.Container) (liveStore, error)
}

// Dep is anything that contributes stores to a super-selector: a
// *Definition or another super-selector.
type Dep interface {
	Refs() []Ref
}

type liveStore interface {
	componentID() container.ID
	current() any
	watch(fn func()) (stop func())
	release()
}

type storeHandle[S any] struct {
	id container.ID
	h  *container.Handle[*Store[S]]
}

func (s *storeHandle[S]) componentID() container.ID { return s.id }

func (s *storeHandle[S]) current() any { return s.h.Value.State() }

func (s *storeHandle[S]) watch(fn func()) func() {
	return s.h.Value.Subscribe(func(S) { fn() })
}

func (s *storeHandle[S]) release() { s.h.Release() }
