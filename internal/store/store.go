package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/metrics"
)

type transition[S any] struct {
	key   string
	apply func(draft *S, a action.Action) error
}

type subscriber[S any] struct {
	fn func(S)
}

// Store holds the state of one namespace.
//
// Thread-safety: safe for concurrent use. Transitions are serialized;
// subscribers are notified outside every lock, so they may dispatch further
// actions. Transitions themselves must not dispatch.
type Store[S any] struct {
	namespace string
	metrics   metrics.Recorder

	applyMu sync.Mutex

	mu          sync.RWMutex
	state       S
	version     uint64 // bumped on every commit
	delivering  bool   // a goroutine is running publish
	transitions map[string][]transition[S]
	keys        []string
	subs        []*subscriber[S]
}

// Option configures a Store.
type Option func(*options)

type options struct {
	metrics metrics.Recorder
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *options) {
		o.metrics = r
	}
}

// New creates a store holding initial.
func New[S any](namespace string, initial S, opts ...Option) *Store[S] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[S]{
		namespace:   namespace,
		metrics:     metrics.OrNop(o.metrics),
		state:       initial,
		transitions: make(map[string][]transition[S]),
	}
}

// On registers fn as a transition for actions of type t.
func On[S, T any](s *Store[S], t action.Type[T], fn func(draft *S, payload T) error) {
	key := t.Key()
	tr := transition[S]{
		key: key,
		apply: func(draft *S, a action.Action) error {
			payload, _ := a.Payload.(T)
			return fn(draft, payload)
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transitions[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.transitions[key] = append(s.transitions[key], tr)
}

// Namespace returns the store namespace.
func (s *Store[S]) Namespace() string { return s.namespace }

// Keys returns the action keys with registered transitions, in registration
// order.
func (s *Store[S]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// State returns the current snapshot.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply runs every transition registered for a's key on one draft and
// publishes the result. On error, or when a transition panics, the draft is
// discarded, the state is left unchanged and a *StoreError is returned.
// Actions with no transitions are ignored.
func (s *Store[S]) Apply(a action.Action) error {
	changed, err := s.commit(a)
	if err != nil || !changed {
		return err
	}
	s.metrics.StoreUpdated(s.namespace)
	s.publish()
	return nil
}

func (s *Store[S]) commit(a action.Action) (changed bool, err error) {
	key := a.Key()

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.RLock()
	trs := s.transitions[key]
	draft := s.state
	s.mu.RUnlock()

	if len(trs) == 0 {
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			changed, err = false, s.failed(key, fmt.Errorf("panic: %v", r))
		}
	}()
	for _, tr := range trs {
		if err := tr.apply(&draft, a); err != nil {
			return false, s.failed(key, err)
		}
	}

	s.mu.Lock()
	s.state = draft
	s.version++
	s.mu.Unlock()
	return true, nil
}

func (s *Store[S]) failed(key string, err error) error {
	slog.Error("store transition failed",
		"namespace", s.namespace,
		"action", key,
		"error", err)
	return &StoreError{Namespace: s.namespace, Key: key, Cause: err}
}

// publish delivers the latest state to every subscriber. Only one goroutine
// delivers at a time; states committed during a round, by other goroutines or
// by the subscribers themselves, are delivered by the same goroutine in a
// following round. Subscribers see states in commit order and always end on
// the latest one, but may skip states committed during one round.
func (s *Store[S]) publish() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	done := false
	defer func() {
		// A panicking subscriber must not leave delivery claimed.
		if !done {
			s.mu.Lock()
			s.delivering = false
			s.mu.Unlock()
		}
	}()

	for {
		state, version, subs := s.state, s.version, s.subs
		s.mu.Unlock()

		for _, sub := range subs {
			sub.fn(state)
		}

		s.mu.Lock()
		if s.version == version {
			s.delivering = false
			done = true
			s.mu.Unlock()
			return
		}
	}
}

// Subscribe calls fn with the current state and then with every published
// state until unsubscribe is called. Published states arrive in commit order
// (see publish); the initial call may race a delivery already in progress.
func (s *Store[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	sub := &subscriber[S]{fn: fn}

	s.mu.Lock()
	current := s.state
	subs := make([]*subscriber[S], len(s.subs), len(s.subs)+1)
	copy(subs, s.subs)
	s.subs = append(subs, sub)
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, existing := range s.subs {
				if existing == sub {
					next := make([]*subscriber[S], 0, len(s.subs)-1)
					next = append(next, s.subs[:i]...)
					s.subs = append(next, s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Connect subscribes the store to bus for every registered action key.
// Transitions registered after Connect are applied only for keys that were
// already connected.
func (s *Store[S]) Connect(bus *action.Actions) (disconnect func()) {
	keys := s.Keys()
	unsubs := make([]func(), 0, len(keys))
	for _, key := range keys {
		unsubs = append(unsubs, bus.SourceFor(key).Subscribe(s.Apply))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
