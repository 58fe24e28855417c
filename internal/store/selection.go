package store

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/selector"
)

// selection holds live handles to the stores of a super-selector.
type selection struct {
	live []liveStore

	mu     sync.Mutex
	lookup *Lookup

	releaseOnce sync.Once
}

func acquire(c *container.Container, refs []Ref) (*selection, error) {
	s := &selection{live: make([]liveStore, 0, len(refs))}
	for _, ref := range refs {
		l, err := ref.acquire(c)
		if err != nil {
			s.Release()
			return nil, err
		}
		s.live = append(s.live, l)
	}
	return s, nil
}

// snapshot returns the lookup for the current store states. The previous
// lookup is reused when no store changed, so selectors take their fast
// path. Callers hold mu.
func (s *selection) snapshot() *Lookup {
	if s.lookup != nil {
		unchanged := true
		for _, l := range s.live {
			if !selector.Identical(s.lookup.states[l.componentID()], l.current()) {
				unchanged = false
				break
			}
		}
		if unchanged {
			return s.lookup
		}
	}

	next := &Lookup{states: make(map[container.ID]any, len(s.live))}
	for _, l := range s.live {
		next.states[l.componentID()] = l.current()
	}
	s.lookup = next
	return next
}

// Subscribe calls fn whenever a dependency store publishes a new state.
// fn receives no value; call Result to pull the new result.
func (s *selection) Subscribe(fn func()) (unsubscribe func()) {
	stops := make([]func(), 0, len(s.live))
	for _, l := range s.live {
		var ready atomic.Bool
		stops = append(stops, l.watch(func() {
			if ready.Load() {
				fn()
			}
		}))
		ready.Store(true)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, stop := range stops {
				stop()
			}
		})
	}
}

// Release drops the store handles. Releasing twice is a no-op.
func (s *selection) Release() {
	s.releaseOnce.Do(func() {
		for i := len(s.live) - 1; i >= 0; i-- {
			s.live[i].release()
		}
	})
}

// Selection binds a super-selector to live stores.
//
// Thread-safety: safe for concurrent use; evaluations are serialized.
type Selection[R any] struct {
	*selection
	fn func(*Lookup) R
}

// Select acquires the stores of sel from c.
func Select[R any](c *container.Container, sel *SuperSelector[R]) (*Selection[R], error) {
	base, err := acquire(c, sel.deps)
	if err != nil {
		return nil, err
	}
	return &Selection[R]{
		selection: base,
		fn:        selector.NewSelectorFunction[*Lookup](sel.sel),
	}, nil
}

// Result evaluates the selector against the current store states.
func (s *Selection[R]) Result() R {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn(s.snapshot())
}

// Selection1 binds a one-argument super-selector to live stores.
type Selection1[A, R any] struct {
	*selection
	fn func(*Lookup, A) R
}

// Select1 acquires the stores of sel from c.
func Select1[A, R any](c *container.Container, sel *SuperSelector1[A, R]) (*Selection1[A, R], error) {
	base, err := acquire(c, sel.deps)
	if err != nil {
		return nil, err
	}
	return &Selection1[A, R]{
		selection: base,
		fn:        selector.NewSelectorFunction1[*Lookup](sel.sel),
	}, nil
}

// Result evaluates the selector for a against the current store states.
func (s *Selection1[A, R]) Result(a A) R {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn(s.snapshot(), a)
}
