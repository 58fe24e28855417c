package store

import (
	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/selector"
)

// SuperSelector is a zero-argument selector over a *Lookup together with the
// stores it reads.
type SuperSelector[R any] struct {
	sel  *selector.Selector[R]
	deps []Ref
}

// Select evaluates the selector in ctx. ctx's state must be a *Lookup.
func (s *SuperSelector[R]) Select(ctx *selector.Context) R {
	return s.sel.Select(ctx)
}

// Selector returns the underlying selector.
func (s *SuperSelector[R]) Selector() *selector.Selector[R] { return s.sel }

// Refs returns the deduplicated store dependencies.
func (s *SuperSelector[R]) Refs() []Ref { return s.deps }

// SuperSelector1 is the one-argument variant of SuperSelector.
type SuperSelector1[A, R any] struct {
	sel  *selector.Selector1[A, R]
	deps []Ref
}

// Select evaluates the selector for a in ctx.
func (s *SuperSelector1[A, R]) Select(ctx *selector.Context, a A) R {
	return s.sel.Select(ctx, a)
}

// Selector returns the underlying selector.
func (s *SuperSelector1[A, R]) Selector() *selector.Selector1[A, R] { return s.sel }

// Refs returns the deduplicated store dependencies.
func (s *SuperSelector1[A, R]) Refs() []Ref { return s.deps }

// NewStoreSelector returns a state selector yielding the whole state of d.
func NewStoreSelector[S any](d *Definition[S], opts ...selector.Option) *SuperSelector[S] {
	opts = append([]selector.Option{selector.WithName(d.namespace)}, opts...)
	sel := selector.NewStateSelector(func(l *Lookup) S {
		return Get(l, d)
	}, opts...)
	return &SuperSelector[S]{sel: sel, deps: []Ref{d}}
}

// NewStoreSelector1 returns an argumented state selector over the state of d.
func NewStoreSelector1[S, A, R any](d *Definition[S], fn func(state S, a A) R, opts ...selector.Option) *SuperSelector1[A, R] {
	sel := selector.NewStateSelector1(func(l *Lookup, a A) R {
		return fn(Get(l, d), a)
	}, opts...)
	return &SuperSelector1[A, R]{sel: sel, deps: []Ref{d}}
}

// NewSuperSelector composes selectors. deps lists the definitions and
// super-selectors fn reads; their stores are merged without duplicates.
func NewSuperSelector[R any](deps []Dep, fn func(ctx *selector.Context) R, opts ...selector.Option) *SuperSelector[R] {
	return &SuperSelector[R]{
		sel:  selector.NewSelector(fn, opts...),
		deps: mergeRefs(deps),
	}
}

// NewSuperSelector1 is NewSuperSelector for one-argument selectors.
func NewSuperSelector1[A, R any](deps []Dep, fn func(ctx *selector.Context, a A) R, opts ...selector.Option) *SuperSelector1[A, R] {
	return &SuperSelector1[A, R]{
		sel:  selector.NewSelector1(fn, opts...),
		deps: mergeRefs(deps),
	}
}

func mergeRefs(deps []Dep) []Ref {
	seen := make(map[container.ID]struct{})
	var out []Ref
	for _, d := range deps {
		for _, ref := range d.Refs() {
			if _, ok := seen[ref.ComponentID()]; ok {
				continue
			}
			seen[ref.ComponentID()] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}
