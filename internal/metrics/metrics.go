// Package metrics defines the instrumentation surface used by the bus,
// stores, navigator and query cache. Backends plug in through Recorder;
// Nop is the default.
package metrics

import (
	"time"

	"github.com/roach88/tracescope/internal/container"
)

// Recorder receives instrumentation events.
type Recorder interface {
	// ActionDispatched counts one dispatch of the action key namespace::name.
	ActionDispatched(key string)
	// HandlerFailed counts a subscriber error for the action key.
	HandlerFailed(key string)
	// StoreUpdated counts one published state change of a store.
	StoreUpdated(namespace string)
	// NavigationFinished records a navigation reaching a terminal state.
	// outcome is "completed", "failed" or a cancel reason.
	NavigationFinished(outcome string, elapsed time.Duration)
	// QueryFetched records one query fetch attempt.
	QueryFetched(queryKey string, success bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ActionDispatched(string)                  {}
func (Nop) HandlerFailed(string)                     {}
func (Nop) StoreUpdated(string)                      {}
func (Nop) NavigationFinished(string, time.Duration) {}
func (Nop) QueryFetched(string, bool)                {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Component is the container identity of the shared recorder. Provide an
// implementation before first use to enable a backend.
var Component = container.NewComponent("metrics", func(*container.Resolver) (Recorder, error) {
	return Nop{}, nil
})
