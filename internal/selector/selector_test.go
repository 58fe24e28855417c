package selector

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type todo struct {
	ID    int
	Title string
	Done  bool
}

type todoState struct {
	CurrentID int
	Todos     []*todo
}

func withTodo(s *todoState, i int, t *todo) *todoState {
	next := *s
	next.Todos = append([]*todo(nil), s.Todos...)
	next.Todos[i] = t
	return &next
}

func withCurrent(s *todoState, id int) *todoState {
	next := *s
	next.CurrentID = id
	return &next
}

func initialTodos() *todoState {
	return &todoState{
		CurrentID: 0,
		Todos: []*todo{
			{ID: 0, Title: "first"},
			{ID: 1, Title: "second"},
			{ID: 2, Title: "third"},
		},
	}
}

// todoSelectors builds a fresh selector graph with run counters so every test
// starts with empty global slots.
type todoSelectors struct {
	currentID   *Selector[int]
	byID        *Selector1[int, *todo]
	current     *Selector[*todo]
	titleOf     *Selector1[int, string]
	currentRuns int
	byIDRuns    int
	titleRuns   int
}

func newTodoSelectors() *todoSelectors {
	ts := &todoSelectors{}
	ts.currentID = NewStateSelector(func(s *todoState) int {
		return s.CurrentID
	}, WithName("currentID"))
	ts.byID = NewStateSelector1(func(s *todoState, id int) *todo {
		ts.byIDRuns++
		for _, t := range s.Todos {
			if t.ID == id {
				return t
			}
		}
		return nil
	}, WithName("byID"))
	ts.current = NewSelector(func(ctx *Context) *todo {
		ts.currentRuns++
		return ts.byID.Select(ctx, ts.currentID.Select(ctx))
	}, WithName("current"))
	ts.titleOf = NewSelector1(func(ctx *Context, id int) string {
		ts.titleRuns++
		t := ts.byID.Select(ctx, id)
		if t == nil {
			return ""
		}
		return t.Title
	})
	return ts
}

func TestScopeDefaults(t *testing.T) {
	ts := newTodoSelectors()

	assert.True(t, ts.current.Global(), "zero-arg selectors default to global")
	assert.True(t, ts.currentID.Global())
	assert.False(t, ts.byID.Global(), "argumented selectors default to local")
	assert.False(t, ts.titleOf.Global())

	local := NewSelector(func(*Context) int { return 1 }, WithScope(ScopeLocal))
	assert.False(t, local.Global())
	global := NewSelector1(func(*Context, int) int { return 1 }, WithScope(ScopeGlobal))
	assert.True(t, global.Global())

	stateWithArgs := NewStateSelector1(func(s *todoState, id int) int { return id }, WithScope(ScopeGlobal))
	assert.False(t, stateWithArgs.Global(), "state selectors with arguments stay local")
	stateWithTwoArgs := NewStateSelector2(func(s *todoState, a, b int) int { return a + b }, WithScope(ScopeGlobal))
	assert.False(t, stateWithTwoArgs.Global())
	stateNoArgs := NewStateSelector(func(s *todoState) int { return 0 }, WithScope(ScopeLocal))
	assert.False(t, stateNoArgs.Global())
}

func TestSelectorFunction_ComputesOnFirstCall(t *testing.T) {
	ts := newTodoSelectors()
	fn := NewSelectorFunction[*todoState](ts.current)

	state := initialTodos()
	got := fn(state)

	require.NotNil(t, got)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, 1, ts.currentRuns)
}

func TestSelectorFunction_SameStateReusesResult(t *testing.T) {
	ts := newTodoSelectors()
	fn := NewSelectorFunction[*todoState](ts.current)

	state := initialTodos()
	first := fn(state)
	second := fn(state)

	assert.Same(t, first, second)
	assert.Equal(t, 1, ts.currentRuns)
	assert.Equal(t, 1, ts.byIDRuns)
}

func TestSelectorFunction_UnrelatedChangeDoesNotRecompute(t *testing.T) {
	ts := newTodoSelectors()
	fn := NewSelectorFunction[*todoState](ts.current)

	state := initialTodos()
	first := fn(state)

	// todos[1] changes; currentID and todos[0] stay the same references.
	next := withTodo(state, 1, &todo{ID: 1, Title: "second (edited)"})
	second := fn(next)

	assert.Same(t, first, second)
	assert.Equal(t, 1, ts.currentRuns, "current must not rerun when its inputs are unchanged")
}

func TestSelectorFunction_RelevantChangeRecomputes(t *testing.T) {
	ts := newTodoSelectors()
	fn := NewSelectorFunction[*todoState](ts.current)

	state := initialTodos()
	fn(state)

	edited := &todo{ID: 0, Title: "first (edited)"}
	got := fn(withTodo(state, 0, edited))
	assert.Same(t, edited, got)
	assert.Equal(t, 2, ts.currentRuns)

	got = fn(withCurrent(withTodo(state, 0, edited), 2))
	assert.Equal(t, "third", got.Title)
	assert.Equal(t, 3, ts.currentRuns)
}

func TestSelectorFunction_ArgumentSensitivity(t *testing.T) {
	ts := newTodoSelectors()
	fn := NewSelectorFunction1[*todoState](ts.titleOf)

	state := initialTodos()
	assert.Equal(t, "first", fn(state, 0))
	assert.Equal(t, "second", fn(state, 1))
	assert.Equal(t, 2, ts.titleRuns, "different args against the same state recompute")

	assert.Equal(t, "second", fn(state, 1))
	assert.Equal(t, 2, ts.titleRuns, "same args against the same state reuse")
}

func TestLocalScope_DoesNotLeakAcrossContexts(t *testing.T) {
	ts := newTodoSelectors()
	state := initialTodos()

	ctxA := NewContext(state)
	ctxB := NewContext(state)

	assert.Equal(t, "first", ts.titleOf.Select(ctxA, 0))
	assert.Equal(t, "third", ts.titleOf.Select(ctxB, 2))
	// ctxA's slot still holds id 0; asking again reuses it.
	assert.Equal(t, "first", ts.titleOf.Select(ctxA, 0))
	assert.Equal(t, 2, ts.titleRuns)
}

func TestGlobalScope_SharedAcrossContexts(t *testing.T) {
	runs := 0
	count := NewStateSelector(func(s *todoState) int {
		runs++
		return len(s.Todos)
	})
	state := initialTodos()

	assert.Equal(t, 3, count.Select(NewContext(state)))
	assert.Equal(t, 3, count.Select(NewContext(state)))
	assert.Equal(t, 1, runs, "the shared slot already holds the result for this snapshot")
}

func TestWithEquals_StabilizesResult(t *testing.T) {
	runs := 0
	titleRuns := 0
	titles := NewStateSelector(func(s *todoState) []string {
		titleRuns++
		out := make([]string, 0, len(s.Todos))
		for _, t := range s.Todos {
			out = append(out, t.Title)
		}
		return out
	}, WithScope(ScopeLocal), WithEquals(func(a, b []string) bool {
		return assert.ObjectsAreEqual(a, b)
	}))
	downstream := NewSelector(func(ctx *Context) int {
		runs++
		return len(titles.Select(ctx))
	}, WithScope(ScopeLocal))

	state := initialTodos()
	ctx := NewContext(state)
	first := titles.Select(ctx)
	downstream.Select(ctx)

	// Same titles, new todo pointer: titles recomputes but keeps its old slice.
	ctx.SetState(withTodo(state, 2, &todo{ID: 2, Title: "third", Done: true}))
	second := titles.Select(ctx)
	downstream.Select(ctx)

	assert.Equal(t, 2, titleRuns, "titles recomputed for the new snapshot")
	assert.Equal(t, first, second)
	assert.True(t, Identical(first, second), "equal results keep the cached reference")
	assert.Equal(t, 1, runs)
}

func TestNestedRecordingRestoresParentInputs(t *testing.T) {
	ts := newTodoSelectors()
	var order []string
	pair := NewSelector(func(ctx *Context) [2]string {
		order = append(order, "pair")
		a := ts.titleOf.Select(ctx, 0)
		b := ts.titleOf.Select(ctx, 1)
		return [2]string{a, b}
	}, WithScope(ScopeLocal))

	state := initialTodos()
	ctx := NewContext(state)
	assert.Equal(t, [2]string{"first", "second"}, pair.Select(ctx))
	assert.Nil(t, ctx.inputs, "top-level evaluation leaves no recording list behind")

	e := ctx.selectors[pair.n]
	require.NotNil(t, e)
	require.Len(t, e.lastInputs, 2)
	assert.Equal(t, []any{0}, e.lastInputs[0].args)
	assert.Equal(t, []any{1}, e.lastInputs[1].args)

	// The nested titleOf entry recorded its own input (byID), not pair's.
	inner := ctx.selectors[ts.titleOf.n]
	require.NotNil(t, inner)
	require.Len(t, inner.lastInputs, 1)
	assert.Same(t, ts.byID.n, inner.lastInputs[0].node)

	// Unrelated edit: both recorded inputs revalidate, pair does not rerun.
	ctx.SetState(withTodo(state, 2, &todo{ID: 2, Title: "changed"}))
	assert.Equal(t, [2]string{"first", "second"}, pair.Select(ctx))
	assert.Equal(t, []string{"pair"}, order)
}

func TestPanicPropagatesAndRestoresContext(t *testing.T) {
	boom := NewSelector(func(*Context) int { panic("boom") }, WithScope(ScopeLocal))
	outer := NewSelector(func(ctx *Context) int { return boom.Select(ctx) + 1 }, WithScope(ScopeLocal))

	ctx := NewContext(initialTodos())
	assert.PanicsWithValue(t, "boom", func() { outer.Select(ctx) })
	assert.Nil(t, ctx.inputs)
}

func TestSelector2(t *testing.T) {
	runs := 0
	between := NewStateSelector2(func(s *todoState, from, to int) []string {
		runs++
		var out []string
		for _, t := range s.Todos {
			if t.ID >= from && t.ID <= to {
				out = append(out, t.Title)
			}
		}
		return out
	})
	fn := NewSelectorFunction2[*todoState](between)

	state := initialTodos()
	assert.Equal(t, []string{"first", "second"}, fn(state, 0, 1))
	fn(state, 0, 1)
	assert.Equal(t, 1, runs)
	assert.Equal(t, []string{"second", "third"}, fn(state, 1, 2))
	assert.Equal(t, 2, runs)
}

// naiveCurrentTitle recomputes from scratch; memoized results must always
// match it.
func naiveCurrentTitle(s *todoState) string {
	for _, t := range s.Todos {
		if t.ID == s.CurrentID {
			return t.Title
		}
	}
	return ""
}

func TestMemoizationMatchesNaiveRecomputation(t *testing.T) {
	ts := newTodoSelectors()
	currentTitle := NewSelector(func(ctx *Context) string {
		t := ts.current.Select(ctx)
		if t == nil {
			return ""
		}
		return t.Title
	})
	fn := NewSelectorFunction[*todoState](currentTitle)
	titleFn := NewSelectorFunction1[*todoState](ts.titleOf)

	rng := rand.New(rand.NewSource(7))
	state := initialTodos()
	for step := 0; step < 500; step++ {
		switch rng.Intn(4) {
		case 0:
			state = withCurrent(state, rng.Intn(4))
		case 1, 2:
			i := rng.Intn(len(state.Todos))
			state = withTodo(state, i, &todo{ID: i, Title: string(rune('a' + rng.Intn(26)))})
		case 3:
			// Same snapshot again.
		}

		require.Equal(t, naiveCurrentTitle(state), fn(state), "step %d", step)

		id := rng.Intn(4)
		want := ""
		for _, t := range state.Todos {
			if t.ID == id {
				want = t.Title
			}
		}
		require.Equal(t, want, titleFn(state, id), "step %d id %d", step, id)
	}
}

func TestGlobalScope_ConcurrentContextsKeepTheirOwnResults(t *testing.T) {
	read := NewStateSelector(func(s *int) *int { return s })
	wrap := NewSelector(func(ctx *Context) *int { return read.Select(ctx) })
	require.True(t, wrap.Global())

	const rounds = 20000
	var wg sync.WaitGroup
	wrong := make([]int, 2)
	for g := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn := NewSelectorFunction[*int](wrap)
			states := []*int{new(int), new(int)}
			for i := range rounds {
				want := states[i%2]
				if fn(want) != want {
					wrong[g]++
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{0, 0}, wrong, "a context saw another context's result")
}

func TestSelector1_ClosureArgumentsRecompute(t *testing.T) {
	runs := 0
	call := NewSelector1(func(_ *Context, f func() int) int {
		runs++
		return f()
	})
	constant := func(v int) func() int { return func() int { return v } }

	fn := NewSelectorFunction1[*todoState](call)
	state := initialTodos()

	assert.Equal(t, 1, fn(state, constant(1)))
	assert.Equal(t, 2, fn(state, constant(2)))
	assert.Equal(t, 2, runs)
}
