package routespec

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadCUE loads a spec from a .cue file or from the CUE package in a
// directory.
func LoadCUE(path string) (*Spec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("route spec: %w", err)
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("route spec %s: no CUE instances loaded", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	ctx := cuecontext.New()
	return ParseCUE(ctx.BuildInstance(inst))
}

// ParseCUEString parses CUE source. filename is used in error positions.
func ParseCUEString(src, filename string) (*Spec, error) {
	ctx := cuecontext.New()
	return ParseCUE(ctx.CompileString(src, cue.Filename(filename)))
}

// ParseCUE reads a spec from a CUE value with a top-level routes field.
func ParseCUE(v cue.Value) (*Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	routesVal := v.LookupPath(cue.ParsePath("routes"))
	if !routesVal.Exists() {
		return nil, &CompileError{
			Field:   "routes",
			Message: "routes is required",
			Pos:     v.Pos(),
		}
	}

	routes, err := parseRoutes(routesVal)
	if err != nil {
		return nil, err
	}
	return &Spec{Routes: routes}, nil
}

// parseRoutes reads a struct of routes keyed by id, in field order.
func parseRoutes(v cue.Value) ([]RouteSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var routes []RouteSpec
	for iter.Next() {
		r, err := parseRoute(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func parseRoute(id string, v cue.Value) (RouteSpec, error) {
	r := RouteSpec{ID: id, pos: v.Pos()}

	pathVal := v.LookupPath(cue.ParsePath("path"))
	if !pathVal.Exists() {
		return r, &CompileError{
			Field:   "path",
			Message: fmt.Sprintf("route %q: path is required", id),
			Pos:     v.Pos(),
		}
	}
	path, err := pathVal.String()
	if err != nil {
		return r, formatCUEError(err)
	}
	r.Path = path

	if r.Params, err = parseFields(v, "params"); err != nil {
		return r, err
	}
	if r.Search, err = parseFields(v, "search"); err != nil {
		return r, err
	}

	if hashVal := v.LookupPath(cue.ParsePath("hash")); hashVal.Exists() {
		if r.Hash, err = hashVal.String(); err != nil {
			return r, formatCUEError(err)
		}
	}

	if guardsVal := v.LookupPath(cue.ParsePath("guards")); guardsVal.Exists() {
		if r.Guards, err = parseGuards(guardsVal); err != nil {
			return r, err
		}
	}

	if childrenVal := v.LookupPath(cue.ParsePath("children")); childrenVal.Exists() {
		if r.Children, err = parseRoutes(childrenVal); err != nil {
			return r, err
		}
	}

	return r, nil
}

// parseFields reads a struct of name: type pairs.
func parseFields(v cue.Value, field string) ([]FieldSpec, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}

	iter, err := fv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []FieldSpec
	for iter.Next() {
		typ, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("type of %q must be a string", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
		fields = append(fields, FieldSpec{Name: iter.Label(), Type: typ})
	}
	return fields, nil
}

func parseGuards(v cue.Value) ([]Guard, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var guards []Guard
	for iter.Next() {
		gv := iter.Value()
		g := Guard{pos: gv.Pos()}

		text := map[string]*string{
			"name":    &g.Name,
			"verdict": &g.Verdict,
			"to":      &g.To,
			"from":    &g.From,
			"message": &g.Message,
			"emit":    &g.Emit,
		}
		for label, dst := range text {
			fv := gv.LookupPath(cue.ParsePath(label))
			if !fv.Exists() {
				continue
			}
			s, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			*dst = s
		}

		if kindsVal := gv.LookupPath(cue.ParsePath("kinds")); kindsVal.Exists() {
			if err := kindsVal.Decode(&g.Kinds); err != nil {
				return nil, formatCUEError(err)
			}
		}
		guards = append(guards, g)
	}
	return guards, nil
}
