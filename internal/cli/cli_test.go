package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
)

const (
	appRoutes    = "../../testdata/routes/app.cue"
	scenariosDir = "../../testdata/scenarios"
)

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
