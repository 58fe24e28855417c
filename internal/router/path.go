package router

import (
	"fmt"
	"strings"
)

type segmentKind int

const (
	literalSegment segmentKind = iota
	paramSegment
	restSegment
)

type patternSegment struct {
	kind  segmentKind
	value string // literal text or parameter name
}

// Pattern is a compiled route path such as "users/:id" or "files/*path".
type Pattern struct {
	source   string
	segments []patternSegment
}

// ParsePattern compiles a route path. Segments starting with ":" bind one
// path segment; a final segment starting with "*" binds the remainder.
func ParsePattern(path string) (Pattern, error) {
	p := Pattern{source: path}
	seen := make(map[string]bool)
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		switch part[0] {
		case ':':
			name := part[1:]
			if name == "" {
				return Pattern{}, fmt.Errorf("pattern %q: empty parameter name", path)
			}
			if seen[name] {
				return Pattern{}, fmt.Errorf("pattern %q: duplicate parameter %q", path, name)
			}
			seen[name] = true
			p.segments = append(p.segments, patternSegment{kind: paramSegment, value: name})
		case '*':
			if i != len(parts)-1 {
				return Pattern{}, fmt.Errorf("pattern %q: rest segment must be last", path)
			}
			name := part[1:]
			if name == "" {
				name = "*"
			}
			p.segments = append(p.segments, patternSegment{kind: restSegment, value: name})
		default:
			p.segments = append(p.segments, patternSegment{kind: literalSegment, value: part})
		}
	}
	return p, nil
}

// MustParsePattern is ParsePattern that panics on error.
func MustParsePattern(path string) Pattern {
	p, err := ParsePattern(path)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source path.
func (p Pattern) String() string { return p.source }

// Params returns the parameter names in order.
func (p Pattern) Params() []string {
	var names []string
	for _, s := range p.segments {
		if s.kind != literalSegment {
			names = append(names, s.value)
		}
	}
	return names
}

// Match matches a prefix of segs. It returns the number of segments
// consumed and the raw parameter values.
func (p Pattern) Match(segs []string) (consumed int, params map[string]string, ok bool) {
	params = make(map[string]string)
	for i, s := range p.segments {
		if s.kind == restSegment {
			params[s.value] = strings.Join(segs[i:], "/")
			return len(segs), params, true
		}
		if i >= len(segs) {
			return 0, nil, false
		}
		switch s.kind {
		case literalSegment:
			if segs[i] != s.value {
				return 0, nil, false
			}
		case paramSegment:
			params[s.value] = segs[i]
		}
	}
	return len(p.segments), params, true
}

// Format builds the segments for params. Every parameter must be present.
func (p Pattern) Format(params map[string]string) ([]string, error) {
	var segs []string
	for _, s := range p.segments {
		switch s.kind {
		case literalSegment:
			segs = append(segs, s.value)
		case paramSegment:
			v, ok := params[s.value]
			if !ok {
				return nil, fmt.Errorf("pattern %q: missing parameter %q", p.source, s.value)
			}
			segs = append(segs, v)
		case restSegment:
			v := params[s.value]
			if v != "" {
				segs = append(segs, strings.Split(v, "/")...)
			}
		}
	}
	return segs, nil
}
