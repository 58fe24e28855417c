package container

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrAlreadyInstantiated is returned by Provide when the component is live.
var ErrAlreadyInstantiated = errors.New("component already instantiated")

// ErrCycle is returned when a component requires itself transitively.
var ErrCycle = errors.New("component dependency cycle")

// ID identifies a component within every Container.
type ID uint64

var lastID atomic.Uint64

// Initializer builds a component value. Dependencies must be acquired through
// Require so they are released when the component is disposed.
type Initializer[T any] func(r *Resolver) (T, error)

// Component is the identity and default initializer of a managed value.
type Component[T any] struct {
	id      ID
	name    string
	init    Initializer[T]
	dispose func(T)
}

// ComponentOption configures a Component.
type ComponentOption[T any] func(*Component[T])

// WithDispose sets the function called when the last handle is released.
func WithDispose[T any](fn func(T)) ComponentOption[T] {
	return func(c *Component[T]) {
		c.dispose = fn
	}
}

// NewComponent declares a component. name is used in errors and logs only.
func NewComponent[T any](name string, init Initializer[T], opts ...ComponentOption[T]) *Component[T] {
	c := &Component[T]{
		id:   ID(lastID.Add(1)),
		name: name,
		init: init,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the component identity.
func (c *Component[T]) ID() ID { return c.id }

// Name returns the component name.
func (c *Component[T]) Name() string { return c.name }

type instance struct {
	value   any
	refs    int
	dispose func()
}

// Container holds live component instances.
//
// Thread-safety: all methods are safe for concurrent use. Initializers run
// without the container lock held.
type Container struct {
	mu        sync.Mutex
	instances map[ID]*instance
	overrides map[ID]any
}

// New creates an empty container.
func New() *Container {
	return &Container{
		instances: make(map[ID]*instance),
		overrides: make(map[ID]any),
	}
}

// Handle is a counted reference to a live component value.
type Handle[T any] struct {
	Value T

	c    *Container
	id   ID
	once sync.Once
}

// Release drops the reference. Releasing twice is a no-op.
func (h *Handle[T]) Release() {
	h.once.Do(func() {
		h.c.release(h.id)
	})
}

// Use acquires a reference to comp, initializing it on first use.
func Use[T any](c *Container, comp *Component[T]) (*Handle[T], error) {
	return use(c, comp, nil)
}

func use[T any](c *Container, comp *Component[T], parent *Resolver) (*Handle[T], error) {
	for r := parent; r != nil; r = r.parent {
		if r.id == comp.id {
			return nil, fmt.Errorf("%w: %s", ErrCycle, comp.name)
		}
	}

	c.mu.Lock()
	if inst, ok := c.instances[comp.id]; ok {
		inst.refs++
		c.mu.Unlock()
		return &Handle[T]{Value: inst.value.(T), c: c, id: comp.id}, nil
	}
	init := comp.init
	if o, ok := c.overrides[comp.id]; ok {
		init = o.(Initializer[T])
	}
	c.mu.Unlock()

	r := &Resolver{c: c, id: comp.id, parent: parent}
	value, err := init(r)
	if err != nil {
		r.releaseAll()
		return nil, fmt.Errorf("init %s: %w", comp.name, err)
	}

	dispose := func() {
		if comp.dispose != nil {
			comp.dispose(value)
		}
		r.releaseAll()
	}

	c.mu.Lock()
	if inst, ok := c.instances[comp.id]; ok {
		// Another goroutine finished initializing first; keep theirs.
		inst.refs++
		c.mu.Unlock()
		dispose()
		return &Handle[T]{Value: inst.value.(T), c: c, id: comp.id}, nil
	}
	c.instances[comp.id] = &instance{value: value, refs: 1, dispose: dispose}
	c.mu.Unlock()

	slog.Debug("component initialized", "component", comp.name, "id", comp.id)
	return &Handle[T]{Value: value, c: c, id: comp.id}, nil
}

func (c *Container) release(id ID) {
	c.mu.Lock()
	inst, ok := c.instances[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	inst.refs--
	if inst.refs > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.instances, id)
	c.mu.Unlock()

	inst.dispose()
	slog.Debug("component disposed", "id", id)
}

// Provide overrides the initializer of comp in c.
// Returns ErrAlreadyInstantiated if comp is currently live.
func Provide[T any](c *Container, comp *Component[T], init Initializer[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.instances[comp.id]; ok {
		return fmt.Errorf("provide %s: %w", comp.name, ErrAlreadyInstantiated)
	}
	c.overrides[comp.id] = init
	return nil
}

// ProvideValue overrides comp with a fixed value.
func ProvideValue[T any](c *Container, comp *Component[T], value T) error {
	return Provide(c, comp, func(*Resolver) (T, error) { return value, nil })
}

// Refs returns the live reference count of a component (0 if not live).
func (c *Container) Refs(id ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.instances[id]; ok {
		return inst.refs
	}
	return 0
}

// Resolver is handed to initializers to acquire dependencies.
type Resolver struct {
	c        *Container
	id       ID
	parent   *Resolver
	mu       sync.Mutex
	releases []func()
}

// Container returns the container the component is being built in.
func (r *Resolver) Container() *Container { return r.c }

// OnDispose registers fn to run when the component being built is disposed.
// Functions run in reverse registration order, interleaved with dependency
// releases.
func (r *Resolver) OnDispose(fn func()) {
	r.mu.Lock()
	r.releases = append(r.releases, fn)
	r.mu.Unlock()
}

func (r *Resolver) releaseAll() {
	r.mu.Lock()
	releases := r.releases
	r.releases = nil
	r.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

// Require acquires comp as a dependency of the component r is building.
func Require[T any](r *Resolver, comp *Component[T]) (T, error) {
	h, err := use(r.c, comp, r)
	if err != nil {
		var zero T
		return zero, err
	}
	r.OnDispose(h.Release)
	return h.Value, nil
}
