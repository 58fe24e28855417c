package action

import "fmt"

// Action is a namespaced, named message.
type Action struct {
	Namespace string
	Name      string
	Payload   any
}

// Key returns the routing key "namespace::name".
func (a Action) Key() string {
	return Key(a.Namespace, a.Name)
}

func (a Action) String() string {
	return a.Key()
}

// Key builds a routing key.
func Key(namespace, name string) string {
	return namespace + "::" + name
}

// Type creates and recognizes actions of one name with payload T.
type Type[T any] struct {
	namespace string
	name      string
}

// Namespace returns the action namespace.
func (t Type[T]) Namespace() string { return t.namespace }

// Name returns the action name.
func (t Type[T]) Name() string { return t.name }

// Key returns the routing key.
func (t Type[T]) Key() string { return Key(t.namespace, t.name) }

// Create builds an action carrying payload.
func (t Type[T]) Create(payload T) Action {
	return Action{Namespace: t.namespace, Name: t.name, Payload: payload}
}

// Is reports whether a has this type's namespace and name.
func (t Type[T]) Is(a Action) bool {
	return a.Namespace == t.namespace && a.Name == t.name
}

// Payload extracts the typed payload. ok is false if a is another type or
// carries a payload of the wrong Go type.
func (t Type[T]) Payload(a Action) (payload T, ok bool) {
	if !t.Is(a) {
		return payload, false
	}
	payload, ok = a.Payload.(T)
	return payload, ok
}

// Set is the declared schema of one namespace.
type Set struct {
	namespace string
	names     map[string]struct{}
	order     []string
}

// NewSet creates an empty schema for namespace.
func NewSet(namespace string) *Set {
	return &Set{
		namespace: namespace,
		names:     make(map[string]struct{}),
	}
}

// Define registers name in s and returns its typed descriptor.
// Panics if name is already registered; schemas are static.
func Define[T any](s *Set, name string) Type[T] {
	if _, dup := s.names[name]; dup {
		panic(fmt.Sprintf("action: %s already defined", Key(s.namespace, name)))
	}
	s.names[name] = struct{}{}
	s.order = append(s.order, name)
	return Type[T]{namespace: s.namespace, name: name}
}

// Namespace returns the schema namespace.
func (s *Set) Namespace() string { return s.namespace }

// Names returns the registered names in declaration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether name is registered.
func (s *Set) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}
