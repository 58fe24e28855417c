package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/metrics"
)

// DefaultMaxRedirects bounds a chain of redirects started by one request.
const DefaultMaxRedirects = 10

type navigation struct {
	key       string
	origin    Origin
	mode      Mode
	location  Location
	state     any
	from      Location
	fromState any
	redirects int
	started   time.Time
	cancel    context.CancelFunc
}

type outcomeKind int

const (
	outcomeCompleted outcomeKind = iota + 1
	outcomeRejected
	outcomeRedirected
	outcomeFailed
)

type outcome struct {
	kind     outcomeKind
	routes   []RouteObject
	redirect Location
	err      error
}

type eventKind int

const (
	eventRequest eventKind = iota + 1
	eventEmit
	eventDone
	eventCancel
)

type loopEvent struct {
	kind    eventKind
	key     string
	nav     *navigation
	action  action.Action
	outcome outcome
}

// Navigator runs navigations over a route tree.
//
// Thread-safety model:
//   - Navigate, Cancel, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine; all navigator state
//     is owned by it and every router event is published from it
type Navigator struct {
	tree         *Tree
	bus          *action.Actions
	history      History
	keys         KeyGenerator
	metrics      metrics.Recorder
	maxRedirects int
	queue        *queue[loopEvent]
	workers      sync.WaitGroup
	detach       []func()

	// Owned by Run.
	current  *navigation
	active   []RouteObject
	location Location
	state    any
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithHistory sets the history kept in sync. Defaults to a MemoryHistory
// at "/".
func WithHistory(h History) Option {
	return func(n *Navigator) {
		n.history = h
	}
}

// WithKeys sets the navigation key generator. Defaults to UUIDv7 keys.
func WithKeys(g KeyGenerator) Option {
	return func(n *Navigator) {
		n.keys = g
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(n *Navigator) {
		n.metrics = metrics.OrNop(r)
	}
}

// WithMaxRedirects sets how many consecutive redirects one request may
// cause before it fails.
func WithMaxRedirects(max int) Option {
	return func(n *Navigator) {
		n.maxRedirects = max
	}
}

// New creates a navigator publishing on bus. It listens for history pops
// and for navigate and cancelNavigation commands on the bus.
func New(tree *Tree, bus *action.Actions, opts ...Option) *Navigator {
	n := &Navigator{
		tree:         tree,
		bus:          bus,
		keys:         UUIDv7Generator{},
		metrics:      metrics.Nop{},
		maxRedirects: DefaultMaxRedirects,
		queue:        newQueue[loopEvent](),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.history == nil {
		n.history = NewMemoryHistory(Location{Pathname: "/"})
	}

	current := n.history.Current()
	n.location = current.Location
	n.state = current.State

	n.detach = append(n.detach,
		n.history.OnPop(n.pop),
		action.Subscribe(bus, Navigate, func(cmd NavigateCommand) error {
			_, err := n.Navigate(cmd.Location, cmd.State, cmd.Mode)
			return err
		}),
		action.Subscribe(bus, CancelNavigation, func(cmd CancelCommand) error {
			return n.Cancel(cmd.Key)
		}),
	)
	return n
}

// Navigate requests a navigation and returns its key. An empty mode pushes.
func (n *Navigator) Navigate(loc Location, state any, mode Mode) (string, error) {
	if mode == "" {
		mode = ModePush
	}
	nav := &navigation{
		key:      n.keys.Generate(),
		origin:   mode.origin(),
		mode:     mode,
		location: loc,
		state:    state,
	}
	if !n.queue.Enqueue(loopEvent{kind: eventRequest, key: nav.key, nav: nav}) {
		return "", ErrStopped
	}
	return nav.key, nil
}

// NavigateTo parses path and pushes it.
func (n *Navigator) NavigateTo(path string) (string, error) {
	return n.Navigate(ParseLocation(path), nil, ModePush)
}

// Cancel aborts the navigation with key if it is still running.
func (n *Navigator) Cancel(key string) error {
	if !n.queue.Enqueue(loopEvent{kind: eventCancel, key: key}) {
		return ErrStopped
	}
	return nil
}

func (n *Navigator) pop(e HistoryEntry) {
	nav := &navigation{
		key:      n.keys.Generate(),
		origin:   OriginPop,
		mode:     ModeReplace,
		location: e.Location,
		state:    e.State,
	}
	if !n.queue.Enqueue(loopEvent{kind: eventRequest, key: nav.key, nav: nav}) {
		slog.Warn("history pop after navigator stopped", "location", e.Location.String())
	}
}

// Run processes requests until ctx is done or Stop is called.
func (n *Navigator) Run(ctx context.Context) error {
	slog.Info("navigator starting", "routes", n.tree.Len())
	defer n.shutdown()

	for {
		ev, ok := n.queue.TryDequeue()
		if ok {
			n.handle(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("navigator stopping: context cancelled")
			n.queue.Close()
			return ctx.Err()

		case <-n.queue.Wait():
			if n.queue.Closed() && n.queue.Len() == 0 {
				slog.Info("navigator stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue; Run returns once the queue is drained.
func (n *Navigator) Stop() {
	n.queue.Close()
}

func (n *Navigator) shutdown() {
	for _, fn := range n.detach {
		fn()
	}
	if n.current != nil {
		n.current.cancel()
		n.current = nil
	}
	n.workers.Wait()
}

func (n *Navigator) isCurrent(key string) bool {
	return n.current != nil && n.current.key == key
}

func (n *Navigator) handle(ctx context.Context, ev loopEvent) {
	switch ev.kind {
	case eventRequest:
		n.start(ctx, ev.nav)

	case eventEmit:
		if n.isCurrent(ev.key) {
			n.publish(ev.action)
		}

	case eventDone:
		if n.isCurrent(ev.key) {
			n.finish(ctx, ev.outcome)
		}

	case eventCancel:
		if n.isCurrent(ev.key) {
			nav := n.current
			n.current = nil
			nav.cancel()
			n.canceled(nav, ReasonAborted, nil)
		}
	}
}

func (n *Navigator) start(ctx context.Context, nav *navigation) {
	nav.from = n.location
	nav.fromState = n.state
	nav.started = time.Now()

	slog.Debug("navigation requested",
		"key", nav.key,
		"origin", nav.origin,
		"location", nav.location.String())
	n.publish(NavigationRequestedEvent.Create(NavigationRequested{
		Key:      nav.key,
		Origin:   nav.origin,
		Location: nav.location,
		State:    nav.state,
	}))

	if prev := n.current; prev != nil {
		n.current = nil
		prev.cancel()
		n.canceled(prev, ReasonOverridden, nil)
	}

	if nav.redirects > n.maxRedirects {
		n.failed(nav, &NavigationError{
			Code:  ErrCodeRedirectLimit,
			Key:   nav.key,
			Cause: fmt.Errorf("more than %d consecutive redirects", n.maxRedirects),
		})
		return
	}

	chain, ok := n.tree.Match(nav.location)
	if !ok {
		n.canceled(nav, ReasonUnmatched, nil)
		n.correctPop(nav)
		return
	}

	n.publish(NavigationStartedEvent.Create(NavigationStarted{
		Key:      nav.key,
		Origin:   nav.origin,
		Location: nav.location,
		Routes:   chain,
	}))

	wctx, cancel := context.WithCancel(ctx)
	nav.cancel = cancel
	n.current = nav

	steps := n.plan(n.active, chain)
	n.workers.Add(1)
	go func() {
		defer n.workers.Done()
		n.runPipeline(wctx, nav, steps, chain)
	}()
}

func (n *Navigator) finish(ctx context.Context, o outcome) {
	nav := n.current
	n.current = nil
	nav.cancel()

	switch o.kind {
	case outcomeCompleted:
		n.active = o.routes
		n.location = nav.location
		n.state = nav.state
		if nav.origin != OriginPop {
			n.history.NewEntry(nav.location, nav.state, nav.mode)
		}
		slog.Info("navigation completed",
			"key", nav.key,
			"location", nav.location.String(),
			"routes", len(o.routes))
		n.metrics.NavigationFinished("completed", time.Since(nav.started))
		n.publish(NavigationCompletedEvent.Create(NavigationCompleted{
			Key:      nav.key,
			Origin:   nav.origin,
			Location: nav.location,
			Routes:   o.routes,
		}))

	case outcomeRejected:
		n.canceled(nav, ReasonIntercepted, nil)
		n.correctPop(nav)

	case outcomeRedirected:
		target := o.redirect
		n.canceled(nav, ReasonRedirected, &target)

		mode := nav.mode
		if nav.origin == OriginPop {
			mode = ModeReplace
		}
		n.start(ctx, &navigation{
			key:       n.keys.Generate(),
			origin:    mode.origin(),
			mode:      mode,
			location:  target,
			redirects: nav.redirects + 1,
		})

	case outcomeFailed:
		n.failed(nav, o.err)
		n.correctPop(nav)
	}
}

// correctPop undoes the history move of a pop that did not complete.
func (n *Navigator) correctPop(nav *navigation) {
	if nav.origin == OriginPop {
		n.history.NewEntry(nav.from, nav.fromState, ModeReplace)
	}
}

func (n *Navigator) canceled(nav *navigation, reason CancelReason, redirect *Location) {
	slog.Info("navigation canceled",
		"key", nav.key,
		"reason", reason,
		"location", nav.location.String())
	n.metrics.NavigationFinished(string(reason), time.Since(nav.started))
	n.publish(NavigationCanceledEvent.Create(NavigationCanceled{
		Key:      nav.key,
		Origin:   nav.origin,
		Location: nav.location,
		Reason:   reason,
		Redirect: redirect,
	}))
}

func (n *Navigator) failed(nav *navigation, err error) {
	slog.Error("navigation failed",
		"key", nav.key,
		"location", nav.location.String(),
		"error", err)
	n.metrics.NavigationFinished("failed", time.Since(nav.started))
	n.publish(NavigationFailedEvent.Create(NavigationFailed{
		Key:      nav.key,
		Location: nav.location,
		Error:    err.Error(),
	}))
}

func (n *Navigator) publish(a action.Action) {
	if err := n.bus.Dispatch(a); err != nil {
		slog.Error("router event handler failed",
			"action", a.Key(),
			"error", err)
	}
}
