package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/effect"
)

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) active() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

func (s *manualScheduler) fire() {
	for _, t := range s.active() {
		t.stopped = true
		t.f()
	}
}

type todoArgs struct {
	Filter string `json:"filter"`
}

type testEnv struct {
	c       *container.Container
	client  *Client
	bus     *action.Actions
	sched   *manualScheduler
	release chan struct{}
	fetches *atomic.Int32
	failing bool
	errs    []*effect.EffectError
}

func newTestEnv(t *testing.T, failing bool) (*testEnv, *Query[todoArgs, []string]) {
	t.Helper()
	env := &testEnv{
		c:       container.New(),
		sched:   &manualScheduler{},
		release: make(chan struct{}),
		fetches: &atomic.Int32{},
		failing: failing,
	}

	q := New("todos", func(ctx context.Context, args todoArgs) ([]string, error) {
		env.fetches.Add(1)
		select {
		case <-env.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if env.failing {
			return nil, errors.New("backend down")
		}
		return []string{args.Filter + "-1", args.Filter + "-2"}, nil
	})

	comp := NewComponent(
		WithQueries(q),
		WithCacheTime(time.Minute),
		WithScheduler(env.sched),
		WithErrorHandler(func(err *effect.EffectError) { env.errs = append(env.errs, err) }),
	)
	client, err := container.Use(env.c, comp)
	require.NoError(t, err)
	t.Cleanup(client.Release)
	env.client = client.Value

	bus, err := container.Use(env.c, action.Component)
	require.NoError(t, err)
	t.Cleanup(bus.Release)
	env.bus = bus.Value

	return env, q
}

// waitFor returns a channel closed on the first dispatch of t.
func waitFor[T any](bus *action.Actions, t action.Type[T]) <-chan struct{} {
	done := make(chan struct{})
	var once sync.Once
	action.Subscribe(bus, t, func(T) error {
		once.Do(func() { close(done) })
		return nil
	})
	return done
}

func await(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestQueryLifecycle(t *testing.T) {
	env, q := newTestEnv(t, false)
	hash, err := q.Hash(todoArgs{Filter: "open"})
	require.NoError(t, err)
	assert.Equal(t, `todos::{"filter":"open"}`, hash)

	storeHandle, err := container.Use(env.c, Store.Component())
	require.NoError(t, err)
	defer storeHandle.Release()

	var statuses []Status
	defer storeHandle.Value.Subscribe(func(s State) {
		e, ok := s.Entries[hash]
		if !ok {
			return
		}
		if n := len(statuses); n == 0 || statuses[n-1] != e.Status {
			statuses = append(statuses, e.Status)
		}
	})()

	completed := waitFor(env.bus, QueryCompleted)
	require.NoError(t, env.bus.Dispatch(q.Subscribe(todoArgs{Filter: "open"}, "view-1")))
	assert.Equal(t, StatusFetching, env.client.Status(hash))

	close(env.release)
	await(t, completed)

	assert.Equal(t, []Status{StatusInitial, StatusFetching, StatusIdle}, statuses)
	data, ok := q.Data(env.client.Entry(hash))
	require.True(t, ok)
	assert.Equal(t, []string{"open-1", "open-2"}, data)

	// Last subscriber leaves: collection is scheduled, not immediate.
	require.NoError(t, env.bus.Dispatch(UnsubscribeQuery.Create(UnsubscribeCommand{QueryHash: hash, SubscriberKey: "view-1"})))
	timers := env.sched.active()
	require.Len(t, timers, 1)
	assert.Equal(t, time.Minute, timers[0].d)
	require.NotNil(t, env.client.Entry(hash))

	env.sched.fire()
	assert.Nil(t, env.client.Entry(hash))
	assert.Equal(t, StatusInitial, env.client.Status(hash))
	assert.Equal(t, int32(1), env.fetches.Load())
	assert.Empty(t, env.errs)
}

func TestResubscribeCancelsCollection(t *testing.T) {
	env, q := newTestEnv(t, false)
	hash, _ := q.Hash(todoArgs{Filter: "all"})

	completed := waitFor(env.bus, QueryCompleted)
	require.NoError(t, env.bus.Dispatch(q.Subscribe(todoArgs{Filter: "all"}, "a")))
	close(env.release)
	await(t, completed)

	require.NoError(t, env.bus.Dispatch(UnsubscribeQuery.Create(UnsubscribeCommand{QueryHash: hash, SubscriberKey: "a"})))
	require.Len(t, env.sched.active(), 1)

	require.NoError(t, env.bus.Dispatch(q.Subscribe(todoArgs{Filter: "all"}, "b")))
	assert.Empty(t, env.sched.active())

	env.sched.fire()
	e := env.client.Entry(hash)
	require.NotNil(t, e)
	assert.Equal(t, 1, e.SubscriberCount())
	// Cached data is fresh, so no refetch.
	assert.Equal(t, int32(1), env.fetches.Load())
}

func TestConcurrentSubscribersShareFetch(t *testing.T) {
	env, q := newTestEnv(t, false)
	hash, _ := q.Hash(todoArgs{Filter: "x"})

	var started atomic.Int32
	action.Subscribe(env.bus, QueryStarted, func(Started) error {
		started.Add(1)
		return nil
	})

	completed := waitFor(env.bus, QueryCompleted)
	require.NoError(t, env.bus.Dispatch(q.Subscribe(todoArgs{Filter: "x"}, "a")))
	require.NoError(t, env.bus.Dispatch(q.Subscribe(todoArgs{Filter: "x"}, "b")))
	close(env.release)
	await(t, completed)

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, 2, env.client.Entry(hash).SubscriberCount())
}

func TestFetchFailure(t *testing.T) {
	env, q := newTestEnv(t, true)
	hash, _ := q.Hash(todoArgs{Filter: "y"})

	failed := waitFor(env.bus, QueryFailed)
	require.NoError(t, env.bus.Dispatch(q.Subscribe(todoArgs{Filter: "y"}, "a")))
	close(env.release)
	await(t, failed)

	e := env.client.Entry(hash)
	require.NotNil(t, e)
	assert.Equal(t, StatusError, e.Status)
	assert.Equal(t, "backend down", e.Error)
	_, ok := q.Data(e)
	assert.False(t, ok)
}

func TestCancelQuery(t *testing.T) {
	env, q := newTestEnv(t, false)
	hash, _ := q.Hash(todoArgs{Filter: "z"})

	var names []string
	env.bus.Observe(func(a action.Action) error {
		if a.Namespace == Namespace {
			names = append(names, a.Name)
		}
		return nil
	})

	require.NoError(t, env.bus.Dispatch(q.Subscribe(todoArgs{Filter: "z"}, "a")))
	require.NoError(t, env.bus.Dispatch(CancelQuery.Create(HashCommand{QueryHash: hash})))

	assert.Equal(t, StatusInitial, env.client.Status(hash))
	assert.Equal(t, []string{"subscribeQuery", "querySubscribed", "queryStarted", "cancelQuery", "queryCancelled"}, names)

	// Cancelling again is a no-op.
	require.NoError(t, env.bus.Dispatch(CancelQuery.Create(HashCommand{QueryHash: hash})))
	assert.Len(t, names, 6)
}

func TestRefetchAfterCancelRunsFetcherAgain(t *testing.T) {
	c := container.New()
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	var calls atomic.Int32

	// A cancelled fetch keeps running until release is closed.
	q := New("slow", func(ctx context.Context, args todoArgs) (string, error) {
		calls.Add(1)
		entered <- struct{}{}
		select {
		case <-ctx.Done():
			<-release
			return "", ctx.Err()
		case <-release:
			return args.Filter + "-done", nil
		}
	})
	client, err := container.Use(c, NewComponent(WithQueries(q), WithScheduler(&manualScheduler{})))
	require.NoError(t, err)
	t.Cleanup(client.Release)
	bus, err := container.Use(c, action.Component)
	require.NoError(t, err)
	t.Cleanup(bus.Release)

	hash, err := q.Hash(todoArgs{Filter: "r"})
	require.NoError(t, err)
	completed := waitFor(bus.Value, QueryCompleted)

	require.NoError(t, bus.Value.Dispatch(q.Subscribe(todoArgs{Filter: "r"}, "a")))
	await(t, entered)
	require.NoError(t, bus.Value.Dispatch(CancelQuery.Create(HashCommand{QueryHash: hash})))
	require.NoError(t, bus.Value.Dispatch(FetchQuery.Create(HashCommand{QueryHash: hash})))
	await(t, entered)
	close(release)
	await(t, completed)

	assert.Equal(t, int32(2), calls.Load())
	e := client.Value.Entry(hash)
	require.NotNil(t, e)
	assert.Equal(t, StatusIdle, e.Status)
	data, ok := q.Data(e)
	require.True(t, ok)
	assert.Equal(t, "r-done", data)
}

func TestUnknownQueryReportsEffectError(t *testing.T) {
	env, _ := newTestEnv(t, false)

	require.NoError(t, env.bus.Dispatch(SubscribeQuery.Create(SubscribeCommand{QueryKey: "nope", SubscriberKey: "a"})))
	require.Len(t, env.errs, 1)
	assert.Equal(t, "subscribe", env.errs[0].Key)
}

func TestFetchDirect(t *testing.T) {
	env, q := newTestEnv(t, false)
	close(env.release)

	got, err := Fetch(context.Background(), env.client, q, todoArgs{Filter: "d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d-1", "d-2"}, got)
}

func TestFetchDirectCallerCancelDoesNotFailJoinedCaller(t *testing.T) {
	env, q := newTestEnv(t, false)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Fetch(first, env.client, q, todoArgs{Filter: "j"})
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return env.fetches.Load() == 1 }, 5*time.Second, time.Millisecond)

	second := make(chan []string, 1)
	go func() {
		got, err := Fetch(context.Background(), env.client, q, todoArgs{Filter: "j"})
		assert.NoError(t, err)
		second <- got
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(env.release)
	select {
	case got := <-second:
		assert.Equal(t, []string{"j-1", "j-2"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("joined caller did not return")
	}
}

func TestActionsDeclared(t *testing.T) {
	assert.Contains(t, Actions(), "subscribeQuery")
	assert.Contains(t, Actions(), "queryCollected")
}
