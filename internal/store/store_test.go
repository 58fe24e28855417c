package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracescope/internal/action"
)

type counterState struct {
	Count int
	Log   []string
}

var (
	counterActions = action.NewSet("counter")
	incremented    = action.Define[int](counterActions, "incremented")
	reset          = action.Define[struct{}](counterActions, "reset")
	broken         = action.Define[string](counterActions, "broken")
	exploded       = action.Define[struct{}](counterActions, "exploded")
)

func newCounter() *Store[counterState] {
	s := New("counter", counterState{})
	On(s, incremented, func(draft *counterState, by int) error {
		draft.Count += by
		return nil
	})
	On(s, incremented, func(draft *counterState, by int) error {
		draft.Log = Append(draft.Log, "inc")
		return nil
	})
	On(s, reset, func(draft *counterState, _ struct{}) error {
		*draft = counterState{}
		return nil
	})
	On(s, broken, func(draft *counterState, msg string) error {
		draft.Count = -1
		return errors.New(msg)
	})
	return s
}

func TestStore_OneEmissionPerAction(t *testing.T) {
	s := newCounter()
	bus := action.New()
	disconnect := s.Connect(bus)
	defer disconnect()

	var seen []counterState
	unsub := s.Subscribe(func(st counterState) { seen = append(seen, st) })
	defer unsub()

	require.NoError(t, bus.Dispatch(incremented.Create(2)))

	// Replay of the initial state plus exactly one emission with both
	// transitions applied.
	require.Len(t, seen, 2)
	assert.Equal(t, counterState{}, seen[0])
	assert.Equal(t, 2, seen[1].Count)
	assert.Equal(t, []string{"inc"}, seen[1].Log)
}

func TestStore_TransitionsRunInRegistrationOrder(t *testing.T) {
	s := New("order", []string(nil))
	t1 := action.Define[struct{}](action.NewSet("order"), "go")
	for _, name := range []string{"a", "b", "c"} {
		On(s, t1, func(draft *[]string, _ struct{}) error {
			*draft = Append(*draft, name)
			return nil
		})
	}

	require.NoError(t, s.Apply(t1.Create(struct{}{})))
	assert.Equal(t, []string{"a", "b", "c"}, s.State())
}

func TestStore_OldSnapshotUnchanged(t *testing.T) {
	s := newCounter()
	require.NoError(t, s.Apply(incremented.Create(1)))
	before := s.State()

	require.NoError(t, s.Apply(incremented.Create(1)))
	after := s.State()

	assert.Equal(t, 1, before.Count)
	assert.Equal(t, []string{"inc"}, before.Log)
	assert.Equal(t, 2, after.Count)
	assert.Equal(t, []string{"inc", "inc"}, after.Log)
}

func TestStore_ErrorDiscardsDraft(t *testing.T) {
	s := newCounter()
	require.NoError(t, s.Apply(incremented.Create(5)))

	emissions := 0
	unsub := s.Subscribe(func(counterState) { emissions++ })
	defer unsub()

	err := s.Apply(broken.Create("boom"))
	require.Error(t, err)
	assert.True(t, IsStoreError(err))

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "counter", se.Namespace)
	assert.Equal(t, "counter::broken", se.Key)
	assert.EqualError(t, se.Cause, "boom")

	assert.Equal(t, 5, s.State().Count)
	assert.Equal(t, 1, emissions, "only the replay")
}

func TestStore_PanicBecomesStoreErrorAndReleasesStore(t *testing.T) {
	s := newCounter()
	On(s, exploded, func(draft *counterState, _ struct{}) error {
		draft.Count = 100
		var m map[string]int
		m["boom"] = 1
		return nil
	})
	require.NoError(t, s.Apply(incremented.Create(1)))

	err := s.Apply(exploded.Create(struct{}{}))
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.Contains(t, err.Error(), "store counter: transition counter::exploded: panic:")
	assert.Equal(t, 1, s.State().Count)

	done := make(chan error, 1)
	go func() { done <- s.Apply(incremented.Create(2)) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("store still locked after a panicking transition")
	}
	assert.Equal(t, 3, s.State().Count)
}

func TestStore_ConcurrentApplyDeliversInCommitOrder(t *testing.T) {
	s := newCounter()

	var mu sync.Mutex
	var seen []int
	defer s.Subscribe(func(st counterState) {
		mu.Lock()
		seen = append(seen, st.Count)
		mu.Unlock()
	})()

	const workers, perWorker = 8, 200
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				assert.NoError(t, s.Apply(incremented.Create(1)))
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		require.LessOrEqual(t, seen[i-1], seen[i], "state %d delivered after %d", seen[i], seen[i-1])
	}
	assert.Equal(t, workers*perWorker, seen[len(seen)-1])
	assert.Equal(t, workers*perWorker, s.State().Count)
}

func TestStore_ErrorPropagatesThroughDispatch(t *testing.T) {
	s := newCounter()
	bus := action.New()
	defer s.Connect(bus)()

	err := bus.Dispatch(broken.Create("bad"))
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
}

func TestStore_UnregisteredActionIgnored(t *testing.T) {
	s := newCounter()
	emissions := 0
	defer s.Subscribe(func(counterState) { emissions++ })()

	require.NoError(t, s.Apply(action.Action{Namespace: "other", Name: "x"}))
	assert.Equal(t, 1, emissions)
}

func TestStore_Keys(t *testing.T) {
	s := newCounter()
	assert.Equal(t, []string{"counter::incremented", "counter::reset", "counter::broken"}, s.Keys())
	assert.Equal(t, "counter", s.Namespace())
}

func TestStore_UnsubscribeStopsDelivery(t *testing.T) {
	s := newCounter()
	calls := 0
	unsub := s.Subscribe(func(counterState) { calls++ })
	unsub()
	unsub()

	require.NoError(t, s.Apply(incremented.Create(1)))
	assert.Equal(t, 1, calls)
}

func TestStore_SubscriberMayDispatch(t *testing.T) {
	s := newCounter()
	bus := action.New()
	defer s.Connect(bus)()

	defer s.Subscribe(func(st counterState) {
		if st.Count == 1 {
			require.NoError(t, bus.Dispatch(incremented.Create(10)))
		}
	})()

	require.NoError(t, bus.Dispatch(incremented.Create(1)))
	assert.Equal(t, 11, s.State().Count)
}

func TestCopyOnWriteHelpers(t *testing.T) {
	m := map[string]int{"a": 1}
	m2 := SetKey(m, "b", 2)
	assert.Equal(t, map[string]int{"a": 1}, m)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, m2)

	m3 := DeleteKey(m2, "a")
	assert.Equal(t, map[string]int{"b": 2}, m3)
	assert.Len(t, m2, 2)

	m4 := DeleteKey(m3, "missing")
	assert.Equal(t, m3, m4)

	var nilMap map[string]int
	assert.NotNil(t, CloneMap(nilMap))

	s := []int{1, 2, 3}
	s2 := SetIndex(s, 1, 20)
	assert.Equal(t, []int{1, 2, 3}, s)
	assert.Equal(t, []int{1, 20, 3}, s2)

	base := make([]int, 1, 10)
	a := Append(base, 2)
	b := Append(base, 3)
	assert.Equal(t, []int{0, 2}, a)
	assert.Equal(t, []int{0, 3}, b)
}
