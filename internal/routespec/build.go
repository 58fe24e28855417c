package routespec

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/router"
)

// EmitNamespace is the namespace of actions emitted by guards.
const EmitNamespace = "app"

// Load reads a spec by file extension: .yaml and .yml are YAML, anything
// else is CUE.
func Load(path string) (*Spec, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadCUE(path)
	}
}

// LoadTree loads and builds a route tree.
func LoadTree(path string) (*router.Tree, error) {
	spec, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Build(spec)
}

// Build compiles a spec into a route tree.
func Build(spec *Spec) (*router.Tree, error) {
	routes, err := buildRoutes(spec.Routes)
	if err != nil {
		return nil, err
	}
	tree, err := router.NewTree(routes...)
	if err != nil {
		return nil, &CompileError{Field: "routes", Message: err.Error()}
	}
	return tree, nil
}

func buildRoutes(specs []RouteSpec) ([]*router.Route, error) {
	routes := make([]*router.Route, 0, len(specs))
	for i := range specs {
		r, err := buildRoute(&specs[i])
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func buildRoute(s *RouteSpec) (*router.Route, error) {
	pattern, err := router.ParsePattern(s.Path)
	if err != nil {
		return nil, &CompileError{Field: "path", Message: fmt.Sprintf("route %q: %v", s.ID, err), Pos: s.pos}
	}

	r := &router.Route{ID: s.ID, Path: s.Path}

	if len(s.Params) > 0 {
		fields, err := encoders(s.ID, "params", s.Params)
		if err != nil {
			return nil, err
		}
		for _, name := range pattern.Params() {
			if _, ok := fields[name]; !ok {
				return nil, &CompileError{
					Field:   "params",
					Message: fmt.Sprintf("route %q: no type for path parameter %q", s.ID, name),
					Pos:     s.pos,
				}
			}
		}
		for name := range fields {
			if !slices.Contains(pattern.Params(), name) {
				return nil, &CompileError{
					Field:   "params",
					Message: fmt.Sprintf("route %q: %q is not a path parameter", s.ID, name),
					Pos:     s.pos,
				}
			}
		}
		r.Params = router.Fields(fields)
	}

	if len(s.Search) > 0 {
		fields, err := encoders(s.ID, "search", s.Search)
		if err != nil {
			return nil, err
		}
		r.Search = router.QueryFields(fields)
	}

	if s.Hash != "" {
		enc, err := encoder(s.Hash)
		if err != nil {
			return nil, &CompileError{Field: "hash", Message: fmt.Sprintf("route %q: %v", s.ID, err), Pos: s.pos}
		}
		r.Hash = enc
	}

	for _, g := range s.Guards {
		rule, err := g.rule(s.ID)
		if err != nil {
			return nil, err
		}
		r.Rules = append(r.Rules, rule)
	}

	if r.Children, err = buildRoutes(s.Children); err != nil {
		return nil, err
	}
	return r, nil
}

func encoders(id, field string, specs []FieldSpec) (map[string]router.Encoder[string, any], error) {
	out := make(map[string]router.Encoder[string, any], len(specs))
	for _, f := range specs {
		if _, dup := out[f.Name]; dup {
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("route %q: duplicate field %q", id, f.Name)}
		}
		enc, err := encoder(f.Type)
		if err != nil {
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("route %q: field %q: %v", id, f.Name, err)}
		}
		out[f.Name] = enc
	}
	return out, nil
}

func encoder(typ string) (router.Encoder[string, any], error) {
	switch typ {
	case "string":
		return router.Erase(router.String()), nil
	case "int":
		return router.Erase(router.Int()), nil
	case "bool":
		return router.Erase(router.Bool()), nil
	}
	return nil, fmt.Errorf("unknown type %q (want string, int or bool)", typ)
}

var stepKinds = map[string]router.StepKind{
	"deactivate":  router.Deactivate,
	"updateLeave": router.UpdateLeave,
	"updateEnter": router.UpdateEnter,
	"activate":    router.Activate,
	"entering":    router.Entering,
	"leaving":     router.Leaving,
}

// rule turns a guard into a router rule.
func (g Guard) rule(routeID string) (router.Rule, error) {
	fail := func(field, msg string) error {
		return &CompileError{
			Field:   "guards." + field,
			Message: fmt.Sprintf("route %q guard %q: %s", routeID, g.Name, msg),
			Pos:     g.pos,
		}
	}

	if g.Name == "" {
		return router.Rule{}, fail("name", "name is required")
	}

	var kinds router.StepKind
	for _, k := range g.Kinds {
		kind, ok := stepKinds[k]
		if !ok {
			return router.Rule{}, fail("kinds", fmt.Sprintf("unknown step kind %q", k))
		}
		kinds |= kind
	}

	rule := router.Rule{Name: g.Name, Kinds: kinds}

	var verdict func() (router.Verdict, error)
	switch g.Verdict {
	case "", "approve":
	case "reject":
		verdict = func() (router.Verdict, error) { return router.Reject(), nil }
	case "redirect":
		if g.To == "" {
			return router.Rule{}, fail("to", "redirect needs a target")
		}
		target := router.ParseLocation(g.To)
		verdict = func() (router.Verdict, error) { return router.Redirect(target), nil }
	case "fail":
		msg := g.Message
		if msg == "" {
			msg = "guard failed"
		}
		verdict = func() (router.Verdict, error) { return router.Approve(), errors.New(msg) }
	default:
		return router.Rule{}, fail("verdict", fmt.Sprintf("unknown verdict %q", g.Verdict))
	}

	from := g.From
	if verdict != nil {
		rule.Check = func(_ context.Context, t *router.Transition) (router.Verdict, error) {
			if from != "" && !strings.HasPrefix(t.From.Pathname, from) {
				return router.Approve(), nil
			}
			return verdict()
		}
	}

	if g.Emit != "" {
		name := g.Emit
		rule.Prepare = func(_ context.Context, t *router.Transition) error {
			t.Emit(action.Action{Namespace: EmitNamespace, Name: name, Payload: t.Route})
			return nil
		}
	}

	return rule, nil
}
