package action

import (
	"errors"
	"sync"

	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/metrics"
)

// Handler receives dispatched actions. A returned error is collected by
// Dispatch; delivery to the remaining subscribers continues.
type Handler func(Action) error

type subscription struct {
	handler Handler
}

// Source is the delivery point for one action key.
type Source struct {
	key  string
	mu   sync.RWMutex
	subs []*subscription
}

// Key returns the routing key of the source.
func (s *Source) Key() string { return s.key }

// Subscribe registers h and returns a function that removes it.
func (s *Source) Subscribe(h Handler) (unsubscribe func()) {
	sub := &subscription{handler: h}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, existing := range s.subs {
				if existing == sub {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Source) snapshot() []*subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subs
}

// Len returns the number of subscribers.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Actions is the action bus.
//
// Thread-safety: safe for concurrent use. Subscriber lists are copied on
// write, so dispatch iterates a stable snapshot without holding a lock.
type Actions struct {
	mu        sync.Mutex
	sources   map[string]*Source
	observers *Source
	metrics   metrics.Recorder
}

// Option configures an Actions bus.
type Option func(*Actions)

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(a *Actions) {
		a.metrics = metrics.OrNop(r)
	}
}

// New creates an empty bus.
func New(opts ...Option) *Actions {
	a := &Actions{
		sources:   make(map[string]*Source),
		observers: &Source{key: "*"},
		metrics:   metrics.Nop{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Component is the container identity of the shared bus.
var Component = container.NewComponent("actions", func(r *container.Resolver) (*Actions, error) {
	rec, err := container.Require(r, metrics.Component)
	if err != nil {
		return nil, err
	}
	return New(WithMetrics(rec)), nil
})

// Source returns the source for namespace::name, creating it on first use.
func (a *Actions) Source(namespace, name string) *Source {
	return a.SourceFor(Key(namespace, name))
}

// SourceFor returns the source for a routing key.
func (a *Actions) SourceFor(key string) *Source {
	a.mu.Lock()
	defer a.mu.Unlock()
	src, ok := a.sources[key]
	if !ok {
		src = &Source{key: key}
		a.sources[key] = src
	}
	return src
}

// Subscribe registers h for actions of type t.
func Subscribe[T any](a *Actions, t Type[T], h func(payload T) error) (unsubscribe func()) {
	return a.SourceFor(t.Key()).Subscribe(func(act Action) error {
		payload, ok := t.Payload(act)
		if !ok {
			return nil
		}
		return h(payload)
	})
}

// Observe registers h for every dispatched action. Observers run before
// key subscribers, so nested dispatches are observed in causal order.
func (a *Actions) Observe(h Handler) (unsubscribe func()) {
	return a.observers.Subscribe(h)
}

// Dispatch delivers act to the observers and to the source for its key.
// Errors from subscribers are joined and returned after every subscriber
// has run.
func (a *Actions) Dispatch(act Action) error {
	key := act.Key()
	a.metrics.ActionDispatched(key)

	a.mu.Lock()
	src := a.sources[key]
	a.mu.Unlock()

	var errs []error
	deliver := func(subs []*subscription) {
		for _, sub := range subs {
			if err := sub.handler(act); err != nil {
				a.metrics.HandlerFailed(key)
				errs = append(errs, err)
			}
		}
	}

	deliver(a.observers.snapshot())
	if src != nil {
		deliver(src.snapshot())
	}

	return errors.Join(errs...)
}

// DispatchAll dispatches each action in order and joins the errors.
func (a *Actions) DispatchAll(acts ...Action) error {
	var errs []error
	for _, act := range acts {
		if err := a.Dispatch(act); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
