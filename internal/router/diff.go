package router

// RoutePair is a route present in both chains.
type RoutePair struct {
	Prev RouteObject `json:"prev"`
	Next RouteObject `json:"next"`
}

// RoutesDiff classifies the routes of two chains.
type RoutesDiff struct {
	Updated     []RoutePair   `json:"updated"`
	Activated   []RouteObject `json:"activated"`
	Deactivated []RouteObject `json:"deactivated"`
}

// DiffRoutes compares chains by id at each depth. The common prefix is
// updated; after the first mismatch the rest of prev is deactivated and the
// rest of next is activated. All slices are in chain order, root first.
func DiffRoutes(prev, next []RouteObject) RoutesDiff {
	d := RoutesDiff{
		Updated:     []RoutePair{},
		Activated:   []RouteObject{},
		Deactivated: []RouteObject{},
	}

	i := 0
	for i < len(prev) && i < len(next) && prev[i].ID == next[i].ID {
		d.Updated = append(d.Updated, RoutePair{Prev: prev[i], Next: next[i]})
		i++
	}
	d.Deactivated = append(d.Deactivated, prev[i:]...)
	d.Activated = append(d.Activated, next[i:]...)
	return d
}
