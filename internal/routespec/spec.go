package routespec

import "cuelang.org/go/cue/token"

// Spec is a parsed route tree description.
type Spec struct {
	Routes []RouteSpec `yaml:"routes"`
}

// RouteSpec declares one route.
type RouteSpec struct {
	ID       string      `yaml:"id"`
	Path     string      `yaml:"path"`
	Params   []FieldSpec `yaml:"params"`
	Search   []FieldSpec `yaml:"search"`
	Hash     string      `yaml:"hash"`
	Guards   []Guard     `yaml:"guards"`
	Children []RouteSpec `yaml:"children"`

	pos token.Pos
}

// FieldSpec is a typed parameter.
type FieldSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Guard is a rule with a fixed verdict.
type Guard struct {
	Name string `yaml:"name"`
	// Kinds limits the guard to step kinds: deactivate, updateLeave,
	// updateEnter, activate. Empty means all.
	Kinds []string `yaml:"kinds"`
	// Verdict is approve, reject, redirect or fail.
	Verdict string `yaml:"verdict"`
	// To is the redirect target.
	To string `yaml:"to"`
	// From limits the guard to navigations leaving a path with this prefix.
	From string `yaml:"from"`
	// Message is the error of a failing guard.
	Message string `yaml:"message"`
	// Emit names an action published in the prepare phase.
	Emit string `yaml:"emit"`

	pos token.Pos
}

// Walk calls fn for every route in depth-first order.
func (s *Spec) Walk(fn func(depth int, r *RouteSpec)) {
	var walk func(routes []RouteSpec, depth int)
	walk = func(routes []RouteSpec, depth int) {
		for i := range routes {
			fn(depth, &routes[i])
			walk(routes[i].Children, depth+1)
		}
	}
	walk(s.Routes, 0)
}
