package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ResolvesRoutes(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/redirect_to_login.yaml")
	require.NoError(t, err)

	assert.Equal(t, "redirect_to_login", s.Name)
	assert.Equal(t, filepath.Join("../../testdata/scenarios", "../routes/app.cue"), s.Routes)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "/admin", s.Steps[0].Navigate)
	assert.Len(t, s.Expect, 10)
}

func TestLoadScenario_MissingRoutesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
routes: nowhere.cue
steps:
  - navigate: /
expect: [x]
`), 0o644))

	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "routes file not found")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{
			name: "unknown field",
			yaml: "name: a\ndescription: b\nroutes: r\nstep: []\n",
			err:  "field step not found",
		},
		{
			name: "missing name",
			yaml: "description: b\nroutes: r\nsteps: [{navigate: /}]\nexpect: [x]\n",
			err:  "name is required",
		},
		{
			name: "missing routes",
			yaml: "name: a\ndescription: b\nsteps: [{navigate: /}]\nexpect: [x]\n",
			err:  "routes is required",
		},
		{
			name: "no steps",
			yaml: "name: a\ndescription: b\nroutes: r\nexpect: [x]\n",
			err:  "steps list is required",
		},
		{
			name: "nothing to check",
			yaml: "name: a\ndescription: b\nroutes: r\nsteps: [{navigate: /}]\n",
			err:  "expect or assertions is required",
		},
		{
			name: "two actions in a step",
			yaml: "name: a\ndescription: b\nroutes: r\nsteps: [{navigate: /, back: 1}]\nexpect: [x]\n",
			err:  "steps[0]: exactly one of navigate, back, forward",
		},
		{
			name: "bad mode",
			yaml: "name: a\ndescription: b\nroutes: r\nsteps: [{navigate: /, mode: pop}]\nexpect: [x]\n",
			err:  `unknown mode "pop"`,
		},
		{
			name: "mode without navigate",
			yaml: "name: a\ndescription: b\nroutes: r\nsteps: [{back: 1, mode: push}]\nexpect: [x]\n",
			err:  "mode only applies to navigate",
		},
		{
			name: "unknown assertion",
			yaml: "name: a\ndescription: b\nroutes: r\nsteps: [{navigate: /}]\nassertions: [{type: final_state}]\n",
			err:  `unknown assertion type "final_state"`,
		},
		{
			name: "trace_count without prefix",
			yaml: "name: a\ndescription: b\nroutes: r\nsteps: [{navigate: /}]\nassertions: [{type: trace_count, count: 1}]\n",
			err:  "prefix is required",
		},
		{
			name: "active_routes without routes",
			yaml: "name: a\ndescription: b\nroutes: r\nsteps: [{navigate: /}]\nassertions: [{type: active_routes}]\n",
			err:  "routes is required for active_routes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestParseScenario_EmptyRoutesAssertion(t *testing.T) {
	s, err := ParseScenario([]byte("name: a\ndescription: b\nroutes: r\nsteps: [{navigate: /}]\nassertions: [{type: active_routes, routes: []}]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{}, s.Assertions[0].Routes)
}
