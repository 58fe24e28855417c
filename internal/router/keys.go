package router

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// KeyGenerator issues navigation keys.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator issues time-ordered UUIDv7 keys, so keys sort by request
// time in the trace log.
type UUIDv7Generator struct{}

// Generate returns a new key.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator issues prefix-1, prefix-2, ... for deterministic traces.
//
// Thread-safety: safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequenceGenerator creates a generator starting at prefix-1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix, next: 1}
}

// Generate returns the next key.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := fmt.Sprintf("%s-%d", g.prefix, g.next)
	g.next++
	return k
}

// FixedGenerator returns predetermined keys and panics when they run out,
// which catches tests that navigate more often than they expect.
type FixedGenerator struct {
	mu   sync.Mutex
	keys []string
}

// NewFixedGenerator creates a generator returning keys in order.
func NewFixedGenerator(keys ...string) *FixedGenerator {
	return &FixedGenerator{keys: keys}
}

// Generate returns the next key.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.keys) == 0 {
		panic("router: FixedGenerator exhausted")
	}
	k := g.keys[0]
	g.keys = g.keys[1:]
	return k
}
