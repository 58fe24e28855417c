package effect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tracescope/internal/action"
)

// EffectError reports a failing effect handler.
type EffectError struct {
	Namespace string
	Key       string // effect name
	Cause     error
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("effect %s: %s: %v", e.Namespace, e.Key, e.Cause)
}

func (e *EffectError) Unwrap() error {
	return e.Cause
}

// IsEffectError reports whether err wraps an *EffectError.
func IsEffectError(err error) bool {
	var ee *EffectError
	return errors.As(err, &ee)
}

// Emit dispatches an action produced by an effect.
type Emit func(action.Action) error

// Effect reacts to one action key.
type Effect struct {
	Namespace string
	Name      string

	trigger string
	run     func(ctx context.Context, a action.Action, emit Emit) error
}

// Trigger returns the action key the effect reacts to.
func (e Effect) Trigger() string { return e.trigger }

// On declares an effect running fn for every action of type t.
func On[T any](namespace, name string, t action.Type[T], fn func(ctx context.Context, payload T, emit Emit) error) Effect {
	return Effect{
		Namespace: namespace,
		Name:      name,
		trigger:   t.Key(),
		run: func(ctx context.Context, a action.Action, emit Emit) error {
			payload, ok := t.Payload(a)
			if !ok {
				return nil
			}
			return fn(ctx, payload, emit)
		},
	}
}

// ErrorHandler receives effect failures.
type ErrorHandler func(err *EffectError)

// LogErrors reports failures through slog.
func LogErrors(err *EffectError) {
	slog.Error("effect failed",
		"namespace", err.Namespace,
		"effect", err.Key,
		"error", err.Cause)
}

// Start subscribes effects to bus. Handlers run synchronously within the
// dispatch that triggered them, in the order effects were given. After ctx
// is done or stop is called, no handler runs again.
func Start(ctx context.Context, bus *action.Actions, onError ErrorHandler, effects ...Effect) (stop func()) {
	if onError == nil {
		onError = LogErrors
	}

	unsubs := make([]func(), 0, len(effects))
	for _, e := range effects {
		unsubs = append(unsubs, bus.SourceFor(e.trigger).Subscribe(func(a action.Action) error {
			if ctx.Err() != nil {
				return nil
			}
			if err := e.run(ctx, a, bus.Dispatch); err != nil {
				onError(&EffectError{Namespace: e.Namespace, Key: e.Name, Cause: err})
			}
			return nil
		}))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, unsub := range unsubs {
				unsub()
			}
		})
	}
}
