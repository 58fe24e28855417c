package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/canon"
	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/effect"
	"github.com/roach88/tracescope/internal/metrics"
	"github.com/roach88/tracescope/internal/store"
)

// DefaultCacheTime is how long an unsubscribed entry is kept.
const DefaultCacheTime = 5 * time.Minute

// Option configures a Client.
type Option func(*Client)

// WithQueries registers query definitions.
func WithQueries(defs ...Definition) Option {
	return func(c *Client) {
		for _, d := range defs {
			c.fetchers[d.Key()] = d.fetcher()
		}
	}
}

// WithCacheTime sets the delay between the last unsubscribe and collection.
func WithCacheTime(d time.Duration) Option {
	return func(c *Client) {
		c.cacheTime = d
	}
}

// WithScheduler sets the scheduler used for collection.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) {
		c.scheduler = s
	}
}

// WithErrorHandler sets the handler for effect failures.
func WithErrorHandler(h effect.ErrorHandler) Option {
	return func(c *Client) {
		c.onError = h
	}
}

type flight struct {
	cancel context.CancelFunc
}

type pending struct {
	timer Timer
}

// Client drives the query cache: it reacts to query commands, runs fetches
// and schedules collection.
//
// Thread-safety: safe for concurrent use.
type Client struct {
	bus       *action.Actions
	entries   *store.Selection1[string, *Entry]
	statuses  *store.Selection1[string, Status]
	metrics   metrics.Recorder
	fetchers  map[string]Fetcher
	cacheTime time.Duration
	scheduler Scheduler
	onError   effect.ErrorHandler
	group     singleflight.Group

	mu       sync.Mutex
	inflight map[string]*flight
	timers   map[string]*pending
}

// NewComponent declares a client component. The client acquires the bus,
// the query store and the metrics recorder from the container and starts
// its effects; releasing the last handle stops them and cancels fetches.
func NewComponent(opts ...Option) *container.Component[*Client] {
	return container.NewComponent("query-client", func(r *container.Resolver) (*Client, error) {
		bus, err := container.Require(r, action.Component)
		if err != nil {
			return nil, err
		}
		rec, err := container.Require(r, metrics.Component)
		if err != nil {
			return nil, err
		}
		entries, err := store.Select1(r.Container(), EntrySelector)
		if err != nil {
			return nil, err
		}
		r.OnDispose(entries.Release)
		statuses, err := store.Select1(r.Container(), StatusSelector)
		if err != nil {
			return nil, err
		}
		r.OnDispose(statuses.Release)

		c := &Client{
			bus:       bus,
			entries:   entries,
			statuses:  statuses,
			metrics:   metrics.OrNop(rec),
			fetchers:  make(map[string]Fetcher),
			cacheTime: DefaultCacheTime,
			scheduler: clockScheduler{},
			inflight:  make(map[string]*flight),
			timers:    make(map[string]*pending),
		}
		for _, opt := range opts {
			opt(c)
		}

		ctx, cancel := context.WithCancel(context.Background())
		r.OnDispose(c.stopTimers)
		r.OnDispose(cancel)
		r.OnDispose(effect.Start(ctx, bus, c.onError, c.effects()...))
		return c, nil
	})
}

// Entry returns the cache entry for hash, or nil.
func (c *Client) Entry(hash string) *Entry {
	return c.entries.Result(hash)
}

// Status returns the status of hash.
func (c *Client) Status(hash string) Status {
	return c.statuses.Result(hash)
}

// Fetch runs q directly, sharing any direct fetch already in flight for the
// same hash. The cache is not updated. The shared fetch is not cancelled when
// ctx is; Fetch returns ctx.Err() without waiting for it.
func Fetch[A, R any](ctx context.Context, c *Client, q *Query[A, R], args A) (R, error) {
	var zero R
	hash, err := q.Hash(args)
	if err != nil {
		return zero, err
	}
	fctx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(directKey(hash), func() (any, error) {
		return q.fetch(fctx, args)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		r, _ := res.Val.(R)
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// directKey keeps direct fetches apart from cache flights, which can be
// cancelled.
func directKey(hash string) string {
	return "direct:" + hash
}

func (c *Client) effects() []effect.Effect {
	return []effect.Effect{
		effect.On(Namespace, "subscribe", SubscribeQuery, c.onSubscribe),
		effect.On(Namespace, "unsubscribe", UnsubscribeQuery, c.onUnsubscribe),
		effect.On(Namespace, "fetch", FetchQuery, c.onFetch),
		effect.On(Namespace, "invalidate", InvalidateQuery, c.onInvalidate),
		effect.On(Namespace, "cancel", CancelQuery, c.onCancel),
	}
}

func (c *Client) onSubscribe(ctx context.Context, cmd SubscribeCommand, emit effect.Emit) error {
	if _, ok := c.fetchers[cmd.QueryKey]; !ok {
		return fmt.Errorf("unknown query %q", cmd.QueryKey)
	}
	hash, err := canon.QueryHash(cmd.QueryKey, cmd.Args)
	if err != nil {
		return err
	}

	c.unschedule(hash)
	if err := emit(QuerySubscribed.Create(Subscribed{
		QueryHash:     hash,
		QueryKey:      cmd.QueryKey,
		Args:          cmd.Args,
		SubscriberKey: cmd.SubscriberKey,
	})); err != nil {
		return err
	}

	e := c.Entry(hash)
	if e == nil || (e.HasData && !e.Stale) {
		return nil
	}
	return c.fetch(ctx, e, emit)
}

func (c *Client) onUnsubscribe(_ context.Context, cmd UnsubscribeCommand, emit effect.Emit) error {
	if err := emit(QueryUnsubscribed.Create(Unsubscribed{
		QueryHash:     cmd.QueryHash,
		SubscriberKey: cmd.SubscriberKey,
	})); err != nil {
		return err
	}

	e := c.Entry(cmd.QueryHash)
	if e != nil && e.SubscriberCount() == 0 {
		c.schedule(cmd.QueryHash)
	}
	return nil
}

func (c *Client) onFetch(ctx context.Context, cmd HashCommand, emit effect.Emit) error {
	e := c.Entry(cmd.QueryHash)
	if e == nil {
		return fmt.Errorf("fetch %s: no such query", cmd.QueryHash)
	}
	return c.fetch(ctx, e, emit)
}

func (c *Client) onInvalidate(ctx context.Context, cmd HashCommand, emit effect.Emit) error {
	e := c.Entry(cmd.QueryHash)
	if e == nil {
		return nil
	}
	if err := emit(QueryInvalidated.Create(HashEvent{QueryHash: cmd.QueryHash})); err != nil {
		return err
	}
	if e.SubscriberCount() == 0 {
		return nil
	}
	return c.fetch(ctx, e, emit)
}

func (c *Client) onCancel(_ context.Context, cmd HashCommand, emit effect.Emit) error {
	c.mu.Lock()
	f, ok := c.inflight[cmd.QueryHash]
	if ok {
		delete(c.inflight, cmd.QueryHash)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	f.cancel()
	c.group.Forget(cmd.QueryHash)
	return emit(QueryCancelled.Create(HashEvent{QueryHash: cmd.QueryHash}))
}

// fetch starts a fetch for e unless one is already running.
func (c *Client) fetch(ctx context.Context, e *Entry, emit effect.Emit) error {
	fetcher, ok := c.fetchers[e.Key]
	if !ok {
		return fmt.Errorf("unknown query %q", e.Key)
	}

	c.mu.Lock()
	if _, busy := c.inflight[e.Hash]; busy {
		c.mu.Unlock()
		return nil
	}
	fctx, cancel := context.WithCancel(ctx)
	f := &flight{cancel: cancel}
	c.inflight[e.Hash] = f
	c.mu.Unlock()

	if err := emit(QueryStarted.Create(Started{QueryHash: e.Hash})); err != nil {
		c.finish(e.Hash, f)
		return err
	}

	args := e.Args
	ch := c.group.DoChan(e.Hash, func() (any, error) {
		return fetcher(fctx, args)
	})
	go c.await(fctx, f, e.Hash, e.Key, ch)
	return nil
}

func (c *Client) await(ctx context.Context, f *flight, hash, key string, ch <-chan singleflight.Result) {
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return
	}

	if !c.finish(hash, f) {
		return
	}
	c.metrics.QueryFetched(key, res.Err == nil)

	var act action.Action
	if res.Err != nil {
		slog.Warn("query failed", "hash", hash, "error", res.Err)
		act = QueryFailed.Create(Failed{QueryHash: hash, Error: res.Err.Error()})
	} else {
		act = QueryCompleted.Create(Completed{QueryHash: hash, Data: res.Val})
	}
	if err := c.bus.Dispatch(act); err != nil {
		slog.Error("query result dispatch failed", "hash", hash, "error", err)
	}
}

// finish clears f if it is still the current flight for hash and reports
// whether it was.
func (c *Client) finish(hash string, f *flight) bool {
	c.mu.Lock()
	current := c.inflight[hash] == f
	if current {
		delete(c.inflight, hash)
	}
	c.mu.Unlock()
	f.cancel()
	return current
}

func (c *Client) schedule(hash string) {
	p := &pending{}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.timers[hash]; ok {
		old.timer.Stop()
	}
	c.timers[hash] = p
	p.timer = c.scheduler.AfterFunc(c.cacheTime, func() { c.collect(hash, p) })
}

func (c *Client) unschedule(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.timers[hash]; ok {
		p.timer.Stop()
		delete(c.timers, hash)
	}
}

func (c *Client) collect(hash string, p *pending) {
	c.mu.Lock()
	if c.timers[hash] != p {
		c.mu.Unlock()
		return
	}
	delete(c.timers, hash)
	c.mu.Unlock()

	if e := c.Entry(hash); e == nil || e.SubscriberCount() > 0 {
		return
	}

	c.mu.Lock()
	f, busy := c.inflight[hash]
	if busy {
		delete(c.inflight, hash)
	}
	c.mu.Unlock()
	if busy {
		f.cancel()
		c.group.Forget(hash)
	}

	if err := c.bus.Dispatch(QueryCollected.Create(HashEvent{QueryHash: hash})); err != nil {
		slog.Error("query collect dispatch failed", "hash", hash, "error", err)
	}
}

func (c *Client) stopTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for hash, p := range c.timers {
		p.timer.Stop()
		delete(c.timers, hash)
	}
}
