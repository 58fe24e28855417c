package selector

// Context is one evaluation environment: the current snapshot, the local
// cache entries and the list the running computation records inputs into.
//
// A Context must not be used from more than one goroutine at a time.
// Different contexts may be used concurrently. A selector function must not
// evaluate selectors on another context.
type Context struct {
	state     any
	selectors map[*node]*entry
	inputs    *[]input
	depth     int // nesting of Select calls in progress
}

// NewContext creates a context over state.
func NewContext(state any) *Context {
	return &Context{
		state:     state,
		selectors: make(map[*node]*entry),
	}
}

// State returns the current snapshot.
func (c *Context) State() any {
	return c.state
}

// SetState replaces the snapshot. Cached entries are kept; they are
// revalidated lazily on their next evaluation.
func (c *Context) SetState(state any) {
	c.state = state
}

// entry is the cache slot of one selector.
type entry struct {
	hasRun     bool
	lastArgs   []any
	lastState  any
	lastInputs []input
	lastResult any
}

// input records one nested selector call: what was called, with which
// arguments, and what it returned at the time.
type input struct {
	node   *node
	args   []any
	result any
}
