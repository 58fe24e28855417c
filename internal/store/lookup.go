package store

import (
	"fmt"

	"github.com/roach88/tracescope/internal/container"
)

// Lookup is the snapshot a super-selector evaluates against: one state per
// store it depends on. Lookups are immutable once built.
type Lookup struct {
	states map[container.ID]any
}

// NewLookup returns an empty lookup.
func NewLookup() *Lookup {
	return &Lookup{states: make(map[container.ID]any)}
}

// With returns a copy of l holding state for d.
func With[S any](l *Lookup, d *Definition[S], state S) *Lookup {
	next := &Lookup{states: make(map[container.ID]any, len(l.states)+1)}
	for id, st := range l.states {
		next.states[id] = st
	}
	next.states[d.ComponentID()] = state
	return next
}

// Get returns the state of d. Panics if d is not part of the lookup, which
// means a selector read a store it did not declare as a dep.
func Get[S any](l *Lookup, d *Definition[S]) S {
	v, ok := l.states[d.ComponentID()]
	if !ok {
		panic(fmt.Sprintf("store: %s read but not declared as a dependency", d.namespace))
	}
	return v.(S)
}
