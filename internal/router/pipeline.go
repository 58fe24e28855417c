package router

import (
	"context"

	"github.com/roach88/tracescope/internal/action"
)

type step struct {
	kind  StepKind
	route RouteObject
	other *RouteObject
	rules []Rule
}

// plan orders the steps of a navigation from prev to next.
func (n *Navigator) plan(prev, next []RouteObject) []step {
	d := DiffRoutes(prev, next)
	steps := make([]step, 0, len(d.Deactivated)+2*len(d.Updated)+len(d.Activated))

	for i := len(d.Deactivated) - 1; i >= 0; i-- {
		r := d.Deactivated[i]
		steps = append(steps, step{kind: Deactivate, route: r, rules: n.tree.rules(r.ID)})
	}
	for i := len(d.Updated) - 1; i >= 0; i-- {
		p := d.Updated[i]
		next := p.Next
		steps = append(steps, step{kind: UpdateLeave, route: p.Prev, other: &next, rules: n.tree.rules(p.Prev.ID)})
	}
	for _, p := range d.Updated {
		prev := p.Prev
		steps = append(steps, step{kind: UpdateEnter, route: p.Next, other: &prev, rules: n.tree.rules(p.Next.ID)})
	}
	for _, r := range d.Activated {
		steps = append(steps, step{kind: Activate, route: r, rules: n.tree.rules(r.ID)})
	}
	return steps
}

// runPipeline runs check, prepare and commit for one navigation. It runs on
// a worker goroutine and reports only through the queue; once ctx is done
// it stops without reporting.
func (n *Navigator) runPipeline(ctx context.Context, nav *navigation, steps []step, chain []RouteObject) {
	emit := func(a action.Action) {
		if ctx.Err() == nil {
			n.queue.Enqueue(loopEvent{kind: eventEmit, key: nav.key, action: a})
		}
	}
	done := func(o outcome) {
		if ctx.Err() == nil {
			n.queue.Enqueue(loopEvent{kind: eventDone, key: nav.key, outcome: o})
		}
	}
	transition := func(s step) *Transition {
		return &Transition{
			Key:   nav.key,
			Kind:  s.kind,
			From:  nav.from,
			To:    nav.location,
			Route: s.route,
			Other: s.other,
			emit:  emit,
		}
	}
	fail := func(phase string, s step, r Rule, err error) {
		done(outcome{kind: outcomeFailed, err: &NavigationError{
			Code:  ErrCodeRuleFailed,
			Key:   nav.key,
			Phase: phase,
			Route: s.route.ID,
			Rule:  r.Name,
			Cause: err,
		}})
	}

	for _, s := range steps {
		for _, r := range s.rules {
			if r.Check == nil || !r.applies(s.kind) {
				continue
			}
			v, err := r.Check(ctx, transition(s))
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				fail("check", s, r, err)
				return
			}
			switch v.kind {
			case reject:
				done(outcome{kind: outcomeRejected})
				return
			case redirect:
				done(outcome{kind: outcomeRedirected, redirect: v.location})
				return
			}
		}
	}

	for _, s := range steps {
		for _, r := range s.rules {
			if r.Prepare == nil || !r.applies(s.kind) {
				continue
			}
			err := r.Prepare(ctx, transition(s))
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				fail("prepare", s, r, err)
				return
			}
		}
		if s.kind&Entering != 0 {
			emit(RouteResolvedEvent.Create(RouteEvent{Key: nav.key, Route: s.route}))
		}
	}

	for _, s := range steps {
		for _, r := range s.rules {
			if r.Commit == nil || !r.applies(s.kind) {
				continue
			}
			err := r.Commit(ctx, transition(s))
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				fail("commit", s, r, err)
				return
			}
		}
		switch {
		case s.kind == Deactivate:
			emit(RouteDeactivatedEvent.Create(RouteEvent{Key: nav.key, Route: s.route}))
		case s.kind&Entering != 0:
			emit(RouteCommittedEvent.Create(RouteEvent{Key: nav.key, Route: s.route}))
		}
	}

	done(outcome{kind: outcomeCompleted, routes: chain})
}
