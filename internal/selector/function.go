package selector

// NewSelectorFunction binds s to one persistent context. Each call swaps in
// the given snapshot and evaluates s, so repeated calls with successive
// snapshots reuse every result whose inputs did not change.
func NewSelectorFunction[S, R any](s *Selector[R]) func(state S) R {
	ctx := NewContext(nil)
	return func(state S) R {
		ctx.SetState(state)
		return s.Select(ctx)
	}
}

// NewSelectorFunction1 is NewSelectorFunction for one-argument selectors.
func NewSelectorFunction1[S, A, R any](s *Selector1[A, R]) func(state S, a A) R {
	ctx := NewContext(nil)
	return func(state S, a A) R {
		ctx.SetState(state)
		return s.Select(ctx, a)
	}
}

// NewSelectorFunction2 is NewSelectorFunction for two-argument selectors.
func NewSelectorFunction2[S, A, B, R any](s *Selector2[A, B, R]) func(state S, a A, b B) R {
	ctx := NewContext(nil)
	return func(state S, a A, b B) R {
		ctx.SetState(state)
		return s.Select(ctx, a, b)
	}
}
