package router

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		params  []string
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"literal", "about/team", nil, false},
		{"params", "users/:id/posts/:post", []string{"id", "post"}, false},
		{"rest", "files/*path", []string{"path"}, false},
		{"anonymous rest", "files/*", []string{"*"}, false},
		{"empty param", "users/:", nil, true},
		{"duplicate param", ":id/:id", nil, true},
		{"rest not last", "*a/b", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.params, p.Params())
		})
	}
}

func TestPatternMatch(t *testing.T) {
	p := MustParsePattern("users/:id")

	n, params, ok := p.Match([]string{"users", "7", "posts"})
	require.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]string{"id": "7"}, params)

	_, _, ok = p.Match([]string{"users"})
	assert.False(t, ok)
	_, _, ok = p.Match([]string{"groups", "7"})
	assert.False(t, ok)

	rest := MustParsePattern("files/*path")
	n, params, ok = rest.Match([]string{"files", "a", "b.txt"})
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, "a/b.txt", params["path"])

	n, _, ok = MustParsePattern("").Match([]string{"x"})
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestPatternFormat(t *testing.T) {
	segs, err := MustParsePattern("users/:id/files/*path").Format(map[string]string{"id": "3", "path": "a/b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "3", "files", "a", "b"}, segs)

	_, err = MustParsePattern("users/:id").Format(nil)
	assert.Error(t, err)
}

func TestParseLocation(t *testing.T) {
	loc := ParseLocation("/a/b%20c?x=1&y=2#top")
	assert.Equal(t, Location{Pathname: "/a/b%20c", Search: "x=1&y=2", Hash: "top"}, loc)
	assert.Equal(t, []string{"a", "b c"}, loc.Segments())
	assert.Equal(t, url.Values{"x": {"1"}, "y": {"2"}}, loc.Query())
	assert.Equal(t, "/a/b%20c?x=1&y=2#top", loc.String())

	assert.Equal(t, "/rel", ParseLocation("rel").Pathname)
	assert.Equal(t, "/", Location{}.String())
	assert.Equal(t, "/a/b%20c", JoinSegments([]string{"a", "b c"}))
	assert.Equal(t, "/", JoinSegments(nil))
}

func TestCodecs(t *testing.T) {
	assert.Equal(t, Ok(42), Int().Decode("42"))
	assert.False(t, Int().Decode("x").Valid)
	assert.Equal(t, Ok("7"), Int().Encode(7))
	assert.Equal(t, Ok(true), Bool().Decode("true"))

	fields := Fields(map[string]Encoder[string, any]{
		"id":   Erase(Int()),
		"slug": Erase(String()),
	})
	r := fields.Decode(map[string]string{"id": "5", "slug": "post"})
	require.True(t, r.Valid)
	assert.Equal(t, map[string]any{"id": 5, "slug": "post"}, r.Value)
	assert.False(t, fields.Decode(map[string]string{"id": "5"}).Valid)
	assert.False(t, fields.Decode(map[string]string{"id": "x", "slug": "p"}).Valid)

	enc := fields.Encode(map[string]any{"id": 5, "slug": "post"})
	require.True(t, enc.Valid)
	assert.Equal(t, map[string]string{"id": "5", "slug": "post"}, enc.Value)
	assert.False(t, fields.Encode(map[string]any{"id": "five", "slug": "p"}).Valid)

	query := QueryFields(map[string]Encoder[string, any]{"page": Erase(Int())})
	qr := query.Decode(url.Values{"page": {"2"}, "other": {"x"}})
	require.True(t, qr.Valid)
	assert.Equal(t, map[string]any{"page": 2}, qr.Value)
	assert.Equal(t, map[string]any{}, query.Decode(url.Values{}).Value)
	assert.False(t, query.Decode(url.Values{"page": {"two"}}).Valid)
}
