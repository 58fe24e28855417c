package router

import (
	"fmt"

	"github.com/roach88/tracescope/internal/action"
)

// Namespace of every router action.
const Namespace = "router"

// CancelReason explains a canceled navigation.
type CancelReason string

const (
	// ReasonIntercepted: a check rejected the navigation.
	ReasonIntercepted CancelReason = "intercepted"
	// ReasonRedirected: a check redirected to another location.
	ReasonRedirected CancelReason = "redirected"
	// ReasonOverridden: a newer navigation superseded this one.
	ReasonOverridden CancelReason = "overridden"
	// ReasonAborted: Cancel was called for the key.
	ReasonAborted CancelReason = "aborted"
	// ReasonUnmatched: no route matches the location.
	ReasonUnmatched CancelReason = "unmatched"
)

// NavigationRequested opens a navigation.
type NavigationRequested struct {
	Key      string   `json:"key"`
	Origin   Origin   `json:"origin"`
	Location Location `json:"location"`
	State    any      `json:"state,omitempty"`
}

// NavigationStarted is published once the location matched.
type NavigationStarted struct {
	Key      string        `json:"key"`
	Origin   Origin        `json:"origin"`
	Location Location      `json:"location"`
	Routes   []RouteObject `json:"routes"`
}

// RouteEvent reports one route reaching a pipeline milestone.
type RouteEvent struct {
	Key   string      `json:"key"`
	Route RouteObject `json:"route"`
}

// NavigationCompleted closes a successful navigation.
type NavigationCompleted struct {
	Key      string        `json:"key"`
	Origin   Origin        `json:"origin"`
	Location Location      `json:"location"`
	Routes   []RouteObject `json:"routes"`
}

// NavigationCanceled closes a navigation that did not complete.
type NavigationCanceled struct {
	Key      string       `json:"key"`
	Origin   Origin       `json:"origin"`
	Location Location     `json:"location"`
	Reason   CancelReason `json:"reason"`
	Redirect *Location    `json:"redirect,omitempty"`
}

// NavigationFailed closes a navigation whose rule returned an error.
type NavigationFailed struct {
	Key      string   `json:"key"`
	Location Location `json:"location"`
	Error    string   `json:"error"`
}

// NavigateCommand asks the navigator to navigate.
type NavigateCommand struct {
	Location Location `json:"location"`
	State    any      `json:"state,omitempty"`
	Mode     Mode     `json:"mode,omitempty"`
}

// CancelCommand asks the navigator to abort a navigation.
type CancelCommand struct {
	Key string `json:"key"`
}

func (e NavigationRequested) CorrelationKey() string { return e.Key }
func (e NavigationStarted) CorrelationKey() string   { return e.Key }
func (e RouteEvent) CorrelationKey() string          { return e.Key }
func (e NavigationCompleted) CorrelationKey() string { return e.Key }
func (e NavigationCanceled) CorrelationKey() string  { return e.Key }
func (e NavigationFailed) CorrelationKey() string    { return e.Key }

var (
	actions = action.NewSet(Namespace)

	Navigate         = action.Define[NavigateCommand](actions, "navigate")
	CancelNavigation = action.Define[CancelCommand](actions, "cancelNavigation")

	NavigationRequestedEvent = action.Define[NavigationRequested](actions, "navigationRequested")
	NavigationStartedEvent   = action.Define[NavigationStarted](actions, "navigationStarted")
	RouteResolvedEvent       = action.Define[RouteEvent](actions, "routeResolved")
	RouteDeactivatedEvent    = action.Define[RouteEvent](actions, "routeDeactivated")
	RouteCommittedEvent      = action.Define[RouteEvent](actions, "routeCommitted")
	NavigationCompletedEvent = action.Define[NavigationCompleted](actions, "navigationCompleted")
	NavigationCanceledEvent  = action.Define[NavigationCanceled](actions, "navigationCanceled")
	NavigationFailedEvent    = action.Define[NavigationFailed](actions, "navigationFailed")
)

// Actions returns the declared router action names.
func Actions() []string {
	return actions.Names()
}

// Describe renders a router action as one trace line. Other actions are
// rendered as their key.
func Describe(a action.Action) string {
	switch p := a.Payload.(type) {
	case NavigationRequested:
		return fmt.Sprintf("%s key=%s origin=%s location=%s", a.Name, p.Key, p.Origin, p.Location)
	case NavigationStarted:
		return fmt.Sprintf("%s key=%s routes=%d", a.Name, p.Key, len(p.Routes))
	case RouteEvent:
		return fmt.Sprintf("%s key=%s route=%s", a.Name, p.Key, p.Route.ID)
	case NavigationCompleted:
		return fmt.Sprintf("%s key=%s location=%s", a.Name, p.Key, p.Location)
	case NavigationCanceled:
		if p.Redirect != nil {
			return fmt.Sprintf("%s key=%s reason=%s redirect=%s", a.Name, p.Key, p.Reason, *p.Redirect)
		}
		return fmt.Sprintf("%s key=%s reason=%s", a.Name, p.Key, p.Reason)
	case NavigationFailed:
		return fmt.Sprintf("%s key=%s error=%q", a.Name, p.Key, p.Error)
	case NavigateCommand:
		return fmt.Sprintf("%s location=%s", a.Name, p.Location)
	case CancelCommand:
		return fmt.Sprintf("%s key=%s", a.Name, p.Key)
	}
	return a.Key()
}

// IsTerminal reports whether a closes a navigation, and for which key.
func IsTerminal(a action.Action) (key string, ok bool) {
	switch p := a.Payload.(type) {
	case NavigationCompleted:
		return p.Key, a.Namespace == Namespace
	case NavigationCanceled:
		return p.Key, a.Namespace == Namespace
	case NavigationFailed:
		return p.Key, a.Namespace == Namespace
	}
	return "", false
}
