package router

import (
	"net/url"
	"strings"
)

// Location is a parsed URL location.
type Location struct {
	Pathname string `json:"pathname"`
	Search   string `json:"search,omitempty"`
	Hash     string `json:"hash,omitempty"`
}

// ParseLocation splits "/path?search#hash". The leading "?" and "#" are
// dropped.
func ParseLocation(s string) Location {
	var loc Location
	if i := strings.IndexByte(s, '#'); i >= 0 {
		loc.Hash = s[i+1:]
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		loc.Search = s[i+1:]
		s = s[:i]
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	loc.Pathname = s
	return loc
}

// String formats the location as a URL reference.
func (l Location) String() string {
	var b strings.Builder
	if l.Pathname == "" {
		b.WriteByte('/')
	} else {
		b.WriteString(l.Pathname)
	}
	if l.Search != "" {
		b.WriteByte('?')
		b.WriteString(l.Search)
	}
	if l.Hash != "" {
		b.WriteByte('#')
		b.WriteString(l.Hash)
	}
	return b.String()
}

// Segments returns the non-empty path segments, unescaped.
func (l Location) Segments() []string {
	parts := strings.Split(l.Pathname, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if u, err := url.PathUnescape(p); err == nil {
			p = u
		}
		segs = append(segs, p)
	}
	return segs
}

// Query parses the search string. Malformed pairs are skipped.
func (l Location) Query() url.Values {
	v, _ := url.ParseQuery(l.Search)
	return v
}

// JoinSegments builds a pathname from segments, escaping each one.
func JoinSegments(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}
	escaped := make([]string, len(segs))
	for i, s := range segs {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}
