package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutesCommand_Text(t *testing.T) {
	out, err := execute(t, NewRoutesCommand(&RootOptions{Format: "text"}), appRoutes)
	require.NoError(t, err)

	want := "home /\n" +
		"project /projects/:id\n" +
		"  settings /settings [unsaved-changes]\n" +
		"admin /admin [auth]\n" +
		"login /login [load-session]\n" +
		"loop /loop [loop]\n" +
		"broken /broken [explode]\n"
	assert.Equal(t, want, out)
}

func TestRoutesCommand_JSON(t *testing.T) {
	out, err := execute(t, NewRoutesCommand(&RootOptions{Format: "json"}), appRoutes)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []RouteInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 7)
	assert.Equal(t, RouteInfo{ID: "settings", Path: "settings", Depth: 1, Rules: []string{"unsaved-changes"}}, resp.Data[2])
	assert.Empty(t, resp.Data[0].Rules)
}

func TestRoutesCommand_NotFound(t *testing.T) {
	_, err := execute(t, NewRoutesCommand(&RootOptions{Format: "text"}), "/nonexistent/routes.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "path not found")
}

func TestRoutesCommand_InvalidSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`routes: home: {}`), 0644))

	out, err := execute(t, NewRoutesCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
	assert.Contains(t, out, "path is required")
}
