package harness

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/metrics"
	"github.com/roach88/tracescope/internal/router"
	"github.com/roach88/tracescope/internal/store"
	"github.com/roach88/tracescope/internal/tracelog"
)

// SettleTimeout bounds how long a step may take to finish its navigations.
const SettleTimeout = 5 * time.Second

// SessionOptions configures a Session.
type SessionOptions struct {
	// KeyPrefix prefixes generated navigation keys. Defaults to "nav".
	KeyPrefix string
	// MaxRedirects overrides the navigator's redirect limit when positive.
	MaxRedirects int
	// Log receives the trace. Defaults to an in-memory log owned by the
	// session.
	Log *tracelog.Log
	// Metrics is provided to the container when set.
	Metrics metrics.Recorder
}

// Session is a live navigator in its own container, driven step by step.
//
// Thread-safety: observe and finish run on whichever goroutine dispatches;
// the stepping methods read through the same mutex. Stepping methods must
// not be called concurrently.
type Session struct {
	bus      *action.Actions
	history  *router.MemoryHistory
	recorder *tracelog.Recorder
	location *store.Selection[router.Location]
	routes   *store.Selection[[]router.RouteObject]
	closers  []func()

	mu        sync.Mutex
	trace     []TraceEvent
	requested []string
	finished  map[string]bool
	redirects int // redirect cancellations whose successor is not requested yet
	changed   chan struct{}
}

// NewSession starts a navigator over tree with deterministic keys and a
// memory history at "/".
func NewSession(tree *router.Tree, opts SessionOptions) (*Session, error) {
	s := &Session{
		history:  router.NewMemoryHistory(router.ParseLocation("/")),
		finished: make(map[string]bool),
		changed:  make(chan struct{}, 1),
	}
	started := false
	defer func() {
		if !started {
			s.Close()
		}
	}()

	var err error
	log := opts.Log
	if log == nil {
		if log, err = tracelog.Open(":memory:"); err != nil {
			return nil, fmt.Errorf("failed to create in-memory trace log: %w", err)
		}
		s.onClose(func() { log.Close() })
	}
	if s.recorder, err = tracelog.NewRecorder(context.Background(), log); err != nil {
		return nil, err
	}

	c := container.New()
	if opts.Metrics != nil {
		if err := container.ProvideValue(c, metrics.Component, opts.Metrics); err != nil {
			return nil, err
		}
	}

	busHandle, err := container.Use(c, action.Component)
	if err != nil {
		return nil, err
	}
	s.onClose(busHandle.Release)
	s.bus = busHandle.Value
	s.onClose(s.bus.Observe(s.observe))

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "nav"
	}
	navOpts := []router.Option{
		router.WithKeys(router.NewSequenceGenerator(prefix)),
		router.WithHistory(s.history),
	}
	if opts.MaxRedirects > 0 {
		navOpts = append(navOpts, router.WithMaxRedirects(opts.MaxRedirects))
	}
	nav, err := container.Use(c, router.NewComponent(tree, navOpts...))
	if err != nil {
		return nil, fmt.Errorf("failed to start navigator: %w", err)
	}
	s.onClose(nav.Release)

	// Subscribed after the router store, so its state is applied by the
	// time a navigation counts as finished.
	s.onClose(action.Subscribe(s.bus, router.NavigationCompletedEvent, func(e router.NavigationCompleted) error {
		s.finish(e.Key)
		return nil
	}))
	s.onClose(action.Subscribe(s.bus, router.NavigationCanceledEvent, func(e router.NavigationCanceled) error {
		if e.Reason == router.ReasonRedirected {
			s.mu.Lock()
			s.redirects++
			s.mu.Unlock()
		}
		s.finish(e.Key)
		return nil
	}))
	s.onClose(action.Subscribe(s.bus, router.NavigationFailedEvent, func(e router.NavigationFailed) error {
		s.finish(e.Key)
		return nil
	}))

	if s.location, err = store.Select(c, router.CurrentLocation); err != nil {
		return nil, err
	}
	s.onClose(s.location.Release)
	if s.routes, err = store.Select(c, router.ActiveRoutes); err != nil {
		return nil, err
	}
	s.onClose(s.routes.Release)

	started = true
	return s, nil
}

func (s *Session) onClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// Close stops the navigator and releases everything in reverse order.
func (s *Session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Navigate dispatches a navigate command and waits for it to settle. An
// empty mode pushes.
func (s *Session) Navigate(path string, mode router.Mode) error {
	before := s.requestedCount()
	cmd := router.NavigateCommand{Location: router.ParseLocation(path), Mode: mode}
	if err := s.bus.Dispatch(router.Navigate.Create(cmd)); err != nil {
		return err
	}
	return s.settle(before)
}

// Go moves history by delta and waits for the resulting pop to settle.
func (s *Session) Go(delta int) error {
	before := s.requestedCount()
	s.history.Go(delta)
	return s.settle(before)
}

// Trace returns a copy of the trace so far.
func (s *Session) Trace() []TraceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trace)
}

// Location returns the router store's current pathname.
func (s *Session) Location() string {
	return s.location.Result().Pathname
}

// Routes returns the ids of the active route chain, root first.
func (s *Session) Routes() []string {
	ids := []string{}
	for _, r := range s.routes.Result() {
		ids = append(ids, r.ID)
	}
	return ids
}

func (s *Session) requestedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requested)
}

// settle waits until a navigation beyond the first before has been
// requested and every requested navigation has finished, including the
// targets of redirects.
func (s *Session) settle(before int) error {
	deadline := time.After(SettleTimeout)
	for {
		s.mu.Lock()
		done := len(s.requested) > before && s.redirects == 0
		for _, key := range s.requested {
			if !s.finished[key] {
				done = false
				break
			}
		}
		s.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-s.changed:
		case <-deadline:
			return fmt.Errorf("navigations did not settle within %s", SettleTimeout)
		}
	}
}

func (s *Session) observe(a action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.recorder.Record(a)
	ev := TraceEvent{
		Seq:    s.recorder.Seq(),
		Action: a.Key(),
		Line:   router.Describe(a),
	}
	if c, ok := a.Payload.(tracelog.Correlated); ok {
		ev.Key = c.CorrelationKey()
	}
	s.trace = append(s.trace, ev)

	if e, ok := router.NavigationRequestedEvent.Payload(a); ok && !slices.Contains(s.requested, e.Key) {
		s.requested = append(s.requested, e.Key)
		if s.redirects > 0 {
			s.redirects--
		}
	}
	return err
}

func (s *Session) finish(key string) {
	s.mu.Lock()
	s.finished[key] = true
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}
