package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/metrics"
)

// NewComponent declares a navigator component over tree. The navigator
// shares the container's bus and metrics, keeps the router store live and
// runs until its last handle is released.
func NewComponent(tree *Tree, opts ...Option) *container.Component[*Navigator] {
	return container.NewComponent("navigator", func(r *container.Resolver) (*Navigator, error) {
		bus, err := container.Require(r, action.Component)
		if err != nil {
			return nil, err
		}
		rec, err := container.Require(r, metrics.Component)
		if err != nil {
			return nil, err
		}
		if _, err := container.Require(r, StoreDefinition.Component()); err != nil {
			return nil, err
		}

		n := New(tree, bus, append([]Option{WithMetrics(rec)}, opts...)...)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := n.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("navigator stopped", "error", err)
			}
		}()
		r.OnDispose(func() {
			cancel()
			<-done
		})
		return n, nil
	})
}
