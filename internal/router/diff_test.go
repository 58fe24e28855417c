package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(routes ...string) []RouteObject {
	out := make([]RouteObject, len(routes))
	for i, id := range routes {
		out[i] = RouteObject{ID: id}
	}
	return out
}

func TestDiffRoutes(t *testing.T) {
	tests := []struct {
		name        string
		prev, next  []RouteObject
		updated     int
		activated   []RouteObject
		deactivated []RouteObject
	}{
		{
			name:        "identical chains",
			prev:        ids("0", "1", "2"),
			next:        ids("0", "1", "2"),
			updated:     3,
			activated:   []RouteObject{},
			deactivated: []RouteObject{},
		},
		{
			name:        "diverging suffix",
			prev:        ids("0", "1", "2"),
			next:        ids("0", "1", "3", "4"),
			updated:     2,
			activated:   ids("3", "4"),
			deactivated: ids("2"),
		},
		{
			name:        "empty prev",
			prev:        nil,
			next:        ids("a", "b"),
			activated:   ids("a", "b"),
			deactivated: []RouteObject{},
		},
		{
			name:        "empty next",
			prev:        ids("a", "b"),
			next:        nil,
			activated:   []RouteObject{},
			deactivated: ids("a", "b"),
		},
		{
			name:        "root differs",
			prev:        ids("a", "b"),
			next:        ids("c"),
			activated:   ids("c"),
			deactivated: ids("a", "b"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DiffRoutes(tt.prev, tt.next)
			assert.Len(t, d.Updated, tt.updated)
			for i, p := range d.Updated {
				assert.Equal(t, tt.prev[i], p.Prev)
				assert.Equal(t, tt.next[i], p.Next)
			}
			assert.Equal(t, tt.activated, d.Activated)
			assert.Equal(t, tt.deactivated, d.Deactivated)
		})
	}
}

func TestDiffRoutes_UpdatedKeepsBothSides(t *testing.T) {
	prev := []RouteObject{{ID: "p", Params: map[string]any{"id": 1}}}
	next := []RouteObject{{ID: "p", Params: map[string]any{"id": 2}}}

	d := DiffRoutes(prev, next)
	assert.Equal(t, []RoutePair{{Prev: prev[0], Next: next[0]}}, d.Updated)
}
