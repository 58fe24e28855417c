package router

import (
	"context"

	"github.com/roach88/tracescope/internal/action"
)

// StepKind is the role of a route within one navigation.
type StepKind int

const (
	Deactivate StepKind = 1 << iota
	UpdateLeave
	UpdateEnter
	Activate

	// AllSteps matches every kind.
	AllSteps = Deactivate | UpdateLeave | UpdateEnter | Activate
	// Entering matches the kinds that end up active.
	Entering = UpdateEnter | Activate
	// Leaving matches the kinds that leave a route.
	Leaving = Deactivate | UpdateLeave
)

func (k StepKind) String() string {
	switch k {
	case Deactivate:
		return "deactivate"
	case UpdateLeave:
		return "updateLeave"
	case UpdateEnter:
		return "updateEnter"
	case Activate:
		return "activate"
	}
	return "mixed"
}

type verdictKind int

const (
	approve verdictKind = iota
	reject
	redirect
)

// Verdict is the result of a check.
type Verdict struct {
	kind     verdictKind
	location Location
}

// Approve lets the navigation proceed.
func Approve() Verdict { return Verdict{kind: approve} }

// Reject cancels the navigation as intercepted.
func Reject() Verdict { return Verdict{kind: reject} }

// Redirect cancels the navigation and navigates to loc instead.
func Redirect(loc Location) Verdict { return Verdict{kind: redirect, location: loc} }

// Approved reports whether v approves.
func (v Verdict) Approved() bool { return v.kind == approve }

// Transition is what a rule hook sees of the navigation.
type Transition struct {
	Key  string
	Kind StepKind
	From Location
	To   Location

	// Route is the route the step is about: the previous route for
	// Deactivate and UpdateLeave, the next route otherwise.
	Route RouteObject
	// Other is the counterpart of an updated route, nil otherwise.
	Other *RouteObject

	emit func(action.Action)
}

// Emit publishes an intermediate action. It is dropped if the navigation
// has been superseded by the time the loop sees it.
func (t *Transition) Emit(a action.Action) {
	if t.emit != nil {
		t.emit(a)
	}
}

// Rule intercepts navigations on one route. Hooks are optional and are
// called only for the step kinds in Kinds (AllSteps when zero). Hooks must
// return promptly once ctx is done.
type Rule struct {
	Name    string
	Kinds   StepKind
	Check   func(ctx context.Context, t *Transition) (Verdict, error)
	Prepare func(ctx context.Context, t *Transition) error
	Commit  func(ctx context.Context, t *Transition) error
}

func (r Rule) applies(k StepKind) bool {
	if r.Kinds == 0 {
		return true
	}
	return r.Kinds&k != 0
}
