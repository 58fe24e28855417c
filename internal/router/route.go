package router

import (
	"fmt"
	"net/url"
)

// Route is one node of a route tree.
type Route struct {
	ID       string
	Path     string
	Params   Encoder[map[string]string, any] // nil keeps the raw map
	Search   Encoder[url.Values, any]        // nil ignores the search
	Hash     Encoder[string, any]            // nil ignores the hash
	Children []*Route
	Rules    []Rule
}

// RouteObject is one matched route of a navigation.
type RouteObject struct {
	ID     string   `json:"id"`
	Path   []string `json:"path"`
	Params any      `json:"params,omitempty"`
	Search any      `json:"search,omitempty"`
	Hash   any      `json:"hash,omitempty"`
}

type treeNode struct {
	route    *Route
	pattern  Pattern
	parent   *treeNode
	children []*treeNode
	depth    int
}

// Tree is a validated route tree.
type Tree struct {
	roots []*treeNode
	byID  map[string]*treeNode
}

// NewTree validates routes and compiles their patterns. Route IDs must be
// unique and non-empty.
func NewTree(routes ...*Route) (*Tree, error) {
	t := &Tree{byID: make(map[string]*treeNode)}
	roots, err := t.build(routes, nil)
	if err != nil {
		return nil, err
	}
	t.roots = roots
	return t, nil
}

func (t *Tree) build(routes []*Route, parent *treeNode) ([]*treeNode, error) {
	nodes := make([]*treeNode, 0, len(routes))
	for _, r := range routes {
		if r.ID == "" {
			return nil, fmt.Errorf("route with path %q has no id", r.Path)
		}
		if _, dup := t.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate route id %q", r.ID)
		}
		p, err := ParsePattern(r.Path)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", r.ID, err)
		}
		n := &treeNode{route: r, pattern: p, parent: parent}
		if parent != nil {
			n.depth = parent.depth + 1
		}
		t.byID[r.ID] = n
		children, err := t.build(r.Children, n)
		if err != nil {
			return nil, err
		}
		n.children = children
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Route returns the route with id, or nil.
func (t *Tree) Route(id string) *Route {
	if n, ok := t.byID[id]; ok {
		return n.route
	}
	return nil
}

// Len returns the number of routes.
func (t *Tree) Len() int { return len(t.byID) }

// Walk visits every route depth first in declaration order.
func (t *Tree) Walk(fn func(depth int, r *Route)) {
	var walk func(nodes []*treeNode)
	walk = func(nodes []*treeNode) {
		for _, n := range nodes {
			fn(n.depth, n.route)
			walk(n.children)
		}
	}
	walk(t.roots)
}

// Match resolves loc to a chain of route objects, root first. Siblings are
// tried in declaration order and the first complete match wins. A route
// whose codecs reject the location does not match.
func (t *Tree) Match(loc Location) ([]RouteObject, bool) {
	return t.match(t.roots, loc.Segments(), loc.Query(), loc.Hash)
}

func (t *Tree) match(nodes []*treeNode, segs []string, query url.Values, hash string) ([]RouteObject, bool) {
	for _, n := range nodes {
		consumed, raw, ok := n.pattern.Match(segs)
		if !ok {
			continue
		}
		obj, ok := n.decode(segs[:consumed], raw, query, hash)
		if !ok {
			continue
		}
		rest := segs[consumed:]
		if chain, ok := t.match(n.children, rest, query, hash); ok {
			return append([]RouteObject{obj}, chain...), true
		}
		if len(rest) == 0 {
			return []RouteObject{obj}, true
		}
	}
	return nil, false
}

func (n *treeNode) decode(path []string, raw map[string]string, query url.Values, hash string) (RouteObject, bool) {
	obj := RouteObject{ID: n.route.ID, Path: append([]string{}, path...)}

	if n.route.Params != nil {
		r := n.route.Params.Decode(raw)
		if !r.Valid {
			return RouteObject{}, false
		}
		obj.Params = r.Value
	} else if len(raw) > 0 {
		obj.Params = raw
	}

	if n.route.Search != nil {
		r := n.route.Search.Decode(query)
		if !r.Valid {
			return RouteObject{}, false
		}
		obj.Search = r.Value
	}

	if n.route.Hash != nil {
		r := n.route.Hash.Decode(hash)
		if !r.Valid {
			return RouteObject{}, false
		}
		obj.Hash = r.Value
	}
	return obj, true
}

// Format builds the pathname of route id from raw parameter values. The
// parameters of every ancestor must be present too.
func (t *Tree) Format(id string, params map[string]string) (string, error) {
	n, ok := t.byID[id]
	if !ok {
		return "", fmt.Errorf("unknown route %q", id)
	}

	var chain []*treeNode
	for ; n != nil; n = n.parent {
		chain = append([]*treeNode{n}, chain...)
	}

	var segs []string
	for _, n := range chain {
		s, err := n.pattern.Format(params)
		if err != nil {
			return "", fmt.Errorf("route %q: %w", n.route.ID, err)
		}
		segs = append(segs, s...)
	}
	return JoinSegments(segs), nil
}

// rules returns the rules of route id.
func (t *Tree) rules(id string) []Rule {
	if n, ok := t.byID[id]; ok {
		return n.route.Rules
	}
	return nil
}
