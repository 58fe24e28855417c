package query

import (
	"context"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/canon"
)

// Fetcher loads the data of one query.
type Fetcher func(ctx context.Context, args any) (any, error)

// Definition is a registrable query. Only *Query implements it.
type Definition interface {
	Key() string
	fetcher() Fetcher
}

// Query is a typed query declaration.
type Query[A, R any] struct {
	key   string
	fetch func(ctx context.Context, args A) (R, error)
}

// New declares a query under key.
func New[A, R any](key string, fetch func(ctx context.Context, args A) (R, error)) *Query[A, R] {
	return &Query[A, R]{key: key, fetch: fetch}
}

// Key returns the query key.
func (q *Query[A, R]) Key() string { return q.key }

// Hash returns the cache hash for args.
func (q *Query[A, R]) Hash(args A) (string, error) {
	return canon.QueryHash(q.key, args)
}

// Subscribe builds the command subscribing subscriber to q(args).
func (q *Query[A, R]) Subscribe(args A, subscriber string) action.Action {
	return SubscribeQuery.Create(SubscribeCommand{
		QueryKey:      q.key,
		Args:          args,
		SubscriberKey: subscriber,
	})
}

// Data returns the typed data of e. ok is false if e holds no data.
func (q *Query[A, R]) Data(e *Entry) (data R, ok bool) {
	if e == nil || !e.HasData {
		return data, false
	}
	data, ok = e.Data.(R)
	return data, ok
}

func (q *Query[A, R]) fetcher() Fetcher {
	return func(ctx context.Context, args any) (any, error) {
		a, _ := args.(A)
		return q.fetch(ctx, a)
	}
}
