package router

import (
	"reflect"

	"github.com/roach88/tracescope/internal/selector"
	"github.com/roach88/tracescope/internal/store"
)

// State is the router store state.
type State struct {
	Location Location
	Routes   []RouteObject
	Pending  string // key of the running navigation
	Canceled int    // navigations that ended without completing
}

func setupStore(s *store.Store[State]) {
	store.On(s, NavigationStartedEvent, func(draft *State, e NavigationStarted) error {
		draft.Pending = e.Key
		return nil
	})
	store.On(s, NavigationCompletedEvent, func(draft *State, e NavigationCompleted) error {
		draft.Location = e.Location
		draft.Routes = e.Routes
		if draft.Pending == e.Key {
			draft.Pending = ""
		}
		return nil
	})
	store.On(s, NavigationCanceledEvent, func(draft *State, e NavigationCanceled) error {
		draft.Canceled++
		if draft.Pending == e.Key {
			draft.Pending = ""
		}
		return nil
	})
	store.On(s, NavigationFailedEvent, func(draft *State, e NavigationFailed) error {
		draft.Canceled++
		if draft.Pending == e.Key {
			draft.Pending = ""
		}
		return nil
	})
}

// StoreDefinition is the router store.
var StoreDefinition = store.Define(Namespace, func() State { return State{} }, setupStore)

var (
	stateSelector = store.NewStoreSelector(StoreDefinition)

	// ActiveRoutes returns the active chain, root first.
	ActiveRoutes = store.NewSuperSelector([]store.Dep{stateSelector}, func(ctx *selector.Context) []RouteObject {
		return stateSelector.Select(ctx).Routes
	}, selector.WithName("activeRoutes"))

	// ActiveRoute returns the active route with id, or nil.
	ActiveRoute = store.NewSuperSelector1([]store.Dep{ActiveRoutes}, func(ctx *selector.Context, id string) *RouteObject {
		for _, r := range ActiveRoutes.Select(ctx) {
			if r.ID == id {
				return &r
			}
		}
		return nil
	}, selector.WithName("activeRoute"), selector.WithEquals(func(a, b *RouteObject) bool {
		return reflect.DeepEqual(a, b)
	}))

	// IsPending reports whether a navigation is running.
	IsPending = store.NewSuperSelector([]store.Dep{stateSelector}, func(ctx *selector.Context) bool {
		return stateSelector.Select(ctx).Pending != ""
	}, selector.WithName("isPending"))

	// CurrentLocation returns the location of the last completed navigation.
	CurrentLocation = store.NewSuperSelector([]store.Dep{stateSelector}, func(ctx *selector.Context) Location {
		return stateSelector.Select(ctx).Location
	}, selector.WithName("currentLocation"))
)
