package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracescope/internal/container"
	"github.com/roach88/tracescope/internal/store"
)

func TestRouterStore_FollowsNavigations(t *testing.T) {
	c := container.New()
	tree := testTree(t, nil)

	nav, err := container.Use(c, NewComponent(tree, WithKeys(NewSequenceGenerator("nav"))))
	require.NoError(t, err)
	defer nav.Release()

	routes, err := store.Select(c, ActiveRoutes)
	require.NoError(t, err)
	defer routes.Release()
	route, err := store.Select1(c, ActiveRoute)
	require.NoError(t, err)
	defer route.Release()
	pending, err := store.Select(c, IsPending)
	require.NoError(t, err)
	defer pending.Release()
	location, err := store.Select(c, CurrentLocation)
	require.NoError(t, err)
	defer location.Release()

	assert.Empty(t, routes.Result())
	assert.False(t, pending.Result())

	_, err = nav.Value.NavigateTo("/parent/5/child/6")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return location.Result().Pathname == "/parent/5/child/6"
	}, 5*time.Second, 5*time.Millisecond)

	assert.False(t, pending.Result())
	chain := routes.Result()
	require.Len(t, chain, 2)
	assert.Equal(t, "child", chain[1].ID)

	parent := route.Result("parent")
	require.NotNil(t, parent)
	assert.Equal(t, map[string]any{"id": 5}, parent.Params)

	// Same params: the memoized pointer is kept.
	_, err = nav.Value.NavigateTo("/parent/5/sibling")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return location.Result().Pathname == "/parent/5/sibling"
	}, 5*time.Second, 5*time.Millisecond)
	assert.Same(t, parent, route.Result("parent"))
	assert.Nil(t, route.Result("child"))
	assert.Nil(t, route.Result("login"))
}

func TestRouterStore_CountsCanceled(t *testing.T) {
	c := container.New()
	tree := testTree(t, map[string][]Rule{
		"admin": {{Name: "deny", Check: func(context.Context, *Transition) (Verdict, error) {
			return Reject(), nil
		}}},
	})

	nav, err := container.Use(c, NewComponent(tree))
	require.NoError(t, err)
	defer nav.Release()

	state, err := store.Select(c, stateSelector)
	require.NoError(t, err)
	defer state.Release()

	_, err = nav.Value.NavigateTo("/admin")
	require.NoError(t, err)
	_, err = nav.Value.NavigateTo("/nowhere")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return state.Result().Canceled == 2
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "", state.Result().Pending)
	assert.Empty(t, state.Result().Routes)
}

func TestNavigatorComponent_StopsOnRelease(t *testing.T) {
	c := container.New()
	h, err := container.Use(c, NewComponent(testTree(t, nil)))
	require.NoError(t, err)
	n := h.Value

	h.Release()
	assert.Equal(t, 0, c.Refs(StoreDefinition.ComponentID()))

	_, err = n.NavigateTo("/login")
	assert.ErrorIs(t, err, ErrStopped)
}
