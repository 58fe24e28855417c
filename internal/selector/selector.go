package selector

import "sync"

// engineMu serializes top-level evaluations. Global entries are shared by
// every context, so two contexts must never evaluate at the same time.
// Nested calls on the same context run under the outer call's lock.
var engineMu sync.Mutex

// Scope selects where a selector's cache entry lives.
type Scope int

const (
	// ScopeDefault is global for zero-argument selectors, local otherwise.
	ScopeDefault Scope = iota
	// ScopeGlobal shares one entry across every context.
	ScopeGlobal
	// ScopeLocal keeps one entry per context.
	ScopeLocal
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeLocal:
		return "local"
	default:
		return "default"
	}
}

type options struct {
	name   string
	scope  Scope
	equals func(a, b any) bool
}

// Option configures a selector.
type Option func(*options)

// WithScope overrides the default scope.
func WithScope(s Scope) Option {
	return func(o *options) {
		o.scope = s
	}
}

// WithName labels the selector for debugging.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithEquals stabilizes results: when a recomputation yields a value equal to
// the cached one under eq, the cached value is kept so downstream identity
// checks see no change.
func WithEquals[R any](eq func(a, b R) bool) Option {
	return func(o *options) {
		o.equals = func(a, b any) bool {
			return eq(cast[R](a), cast[R](b))
		}
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type nodeKind int

const (
	derivedNode nodeKind = iota
	stateNode
)

// node is the untyped selector the engine evaluates.
type node struct {
	name    string
	kind    nodeKind
	global  bool
	equals  func(a, b any) bool
	compute func(ctx *Context, args []any) any
	shared  *entry
}

func newNode(kind nodeKind, arity int, o options, compute func(*Context, []any) any) *node {
	global := arity == 0
	switch o.scope {
	case ScopeGlobal:
		global = true
	case ScopeLocal:
		global = false
	}
	// State selectors called with arguments are always local.
	if kind == stateNode && arity > 0 {
		global = false
	}
	return &node{
		name:    o.name,
		kind:    kind,
		global:  global,
		equals:  o.equals,
		compute: compute,
	}
}

func (n *node) lookup(ctx *Context) *entry {
	if n.global {
		if n.shared == nil {
			n.shared = &entry{}
		}
		return n.shared
	}
	e, ok := ctx.selectors[n]
	if !ok {
		e = &entry{}
		ctx.selectors[n] = e
	}
	return e
}

// evaluate is the entry point of every Select call. The outermost call on a
// context holds engineMu until it returns or panics.
func (n *node) evaluate(ctx *Context, args []any) any {
	if ctx.depth == 0 {
		engineMu.Lock()
		defer engineMu.Unlock()
	}
	ctx.depth++
	defer func() { ctx.depth-- }()
	return n.eval(ctx, args)
}

func (n *node) eval(ctx *Context, args []any) any {
	e := n.lookup(ctx)

	switch {
	case !e.hasRun || !sameArgs(args, e.lastArgs):
		n.run(ctx, e, args)
	case Identical(ctx.state, e.lastState):
		// Same snapshot: nothing can have changed.
	case n.kind == stateNode:
		n.run(ctx, e, args)
	case n.inputsChanged(ctx, e):
		n.run(ctx, e, args)
	default:
		e.lastState = ctx.state
	}

	if ctx.inputs != nil {
		*ctx.inputs = append(*ctx.inputs, input{node: n, args: e.lastArgs, result: e.lastResult})
	}
	return e.lastResult
}

// run computes the selector into e, recording nested calls as its inputs.
func (n *node) run(ctx *Context, e *entry, args []any) {
	parentInputs := ctx.inputs
	var recorded []input
	if n.kind == derivedNode {
		ctx.inputs = &recorded
	} else {
		ctx.inputs = nil
	}
	defer func() { ctx.inputs = parentInputs }()

	result := n.compute(ctx, args)

	e.lastInputs = recorded
	e.lastArgs = cloneArgs(args)
	e.lastState = ctx.state
	if !e.hasRun || n.equals == nil || !n.equals(e.lastResult, result) {
		e.lastResult = result
	}
	e.hasRun = true
}

// inputsChanged re-evaluates the recorded inputs of e in ctx. The checks do
// not record into the caller's list.
func (n *node) inputsChanged(ctx *Context, e *entry) bool {
	parentInputs := ctx.inputs
	ctx.inputs = nil
	defer func() { ctx.inputs = parentInputs }()

	for _, in := range e.lastInputs {
		if !Identical(in.node.eval(ctx, in.args), in.result) {
			return true
		}
	}
	return false
}

func cloneArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	copy(out, args)
	return out
}

func cast[T any](v any) T {
	t, _ := v.(T)
	return t
}

// Selector is a memoized zero-argument selector.
type Selector[R any] struct {
	n *node
}

// NewSelector creates a derived selector. fn may call other selectors with
// ctx; those calls become its inputs.
func NewSelector[R any](fn func(ctx *Context) R, opts ...Option) *Selector[R] {
	n := newNode(derivedNode, 0, buildOptions(opts), func(ctx *Context, _ []any) any {
		return fn(ctx)
	})
	return &Selector[R]{n: n}
}

// NewStateSelector creates a selector reading the snapshot directly.
func NewStateSelector[S, R any](fn func(state S) R, opts ...Option) *Selector[R] {
	n := newNode(stateNode, 0, buildOptions(opts), func(ctx *Context, _ []any) any {
		return fn(cast[S](ctx.state))
	})
	return &Selector[R]{n: n}
}

// Select evaluates the selector in ctx.
func (s *Selector[R]) Select(ctx *Context) R {
	return cast[R](s.n.evaluate(ctx, nil))
}

// Name returns the debugging label.
func (s *Selector[R]) Name() string { return s.n.name }

// Global reports whether the selector uses the shared cache slot.
func (s *Selector[R]) Global() bool { return s.n.global }

// Selector1 is a memoized one-argument selector.
type Selector1[A, R any] struct {
	n *node
}

// NewSelector1 creates a derived one-argument selector.
func NewSelector1[A, R any](fn func(ctx *Context, a A) R, opts ...Option) *Selector1[A, R] {
	n := newNode(derivedNode, 1, buildOptions(opts), func(ctx *Context, args []any) any {
		return fn(ctx, cast[A](args[0]))
	})
	return &Selector1[A, R]{n: n}
}

// NewStateSelector1 creates a one-argument selector reading the snapshot.
func NewStateSelector1[S, A, R any](fn func(state S, a A) R, opts ...Option) *Selector1[A, R] {
	n := newNode(stateNode, 1, buildOptions(opts), func(ctx *Context, args []any) any {
		return fn(cast[S](ctx.state), cast[A](args[0]))
	})
	return &Selector1[A, R]{n: n}
}

// Select evaluates the selector for a in ctx.
func (s *Selector1[A, R]) Select(ctx *Context, a A) R {
	return cast[R](s.n.evaluate(ctx, []any{a}))
}

// Name returns the debugging label.
func (s *Selector1[A, R]) Name() string { return s.n.name }

// Global reports whether the selector uses the shared cache slot.
func (s *Selector1[A, R]) Global() bool { return s.n.global }

// Selector2 is a memoized two-argument selector.
type Selector2[A, B, R any] struct {
	n *node
}

// NewSelector2 creates a derived two-argument selector.
func NewSelector2[A, B, R any](fn func(ctx *Context, a A, b B) R, opts ...Option) *Selector2[A, B, R] {
	n := newNode(derivedNode, 2, buildOptions(opts), func(ctx *Context, args []any) any {
		return fn(ctx, cast[A](args[0]), cast[B](args[1]))
	})
	return &Selector2[A, B, R]{n: n}
}

// NewStateSelector2 creates a two-argument selector reading the snapshot.
func NewStateSelector2[S, A, B, R any](fn func(state S, a A, b B) R, opts ...Option) *Selector2[A, B, R] {
	n := newNode(stateNode, 2, buildOptions(opts), func(ctx *Context, args []any) any {
		return fn(cast[S](ctx.state), cast[A](args[0]), cast[B](args[1]))
	})
	return &Selector2[A, B, R]{n: n}
}

// Select evaluates the selector for (a, b) in ctx.
func (s *Selector2[A, B, R]) Select(ctx *Context, a A, b B) R {
	return cast[R](s.n.evaluate(ctx, []any{a, b}))
}

// Name returns the debugging label.
func (s *Selector2[A, B, R]) Name() string { return s.n.name }

// Global reports whether the selector uses the shared cache slot.
func (s *Selector2[A, B, R]) Global() bool { return s.n.global }
