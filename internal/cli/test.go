package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracescope/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern on the file name)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{}

	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run navigation scenarios",
		Long: `Run YAML navigation scenarios and check their expected listings and
assertions.

When golden/<name>.golden exists next to a scenario, the run's snapshot must
match it. --update writes the golden files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  tracescope test ./testdata/scenarios
  tracescope test ./testdata/scenarios --filter "redirect_*"
  tracescope test ./testdata/scenarios/pop_intercepted.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(rootOpts.formatter(cmd), opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(out *OutputFormatter, opts *TestOptions, args []string) error {
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return out.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid filter %q", opts.Filter), err)
		}
	}

	var files []string
	for _, arg := range args {
		found, err := scenarioFiles(arg, opts.Filter)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeNotFound, "failed to find scenarios", err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return out.Fail(ExitCommandError, ErrCodeNotFound, "no scenario files found", nil)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		out.VerboseLog("Running %s", file)
		sr := runScenarioFile(file, opts.Update)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	result.Total = len(result.Scenarios)

	if out.JSON() {
		if result.Failed > 0 {
			if err := out.Error(ErrCodeTestFailed, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total), result); err != nil {
				return err
			}
		} else if err := out.Success(result); err != nil {
			return err
		}
	} else {
		for _, sr := range result.Scenarios {
			if sr.Pass {
				fmt.Fprintf(out.Writer, "✓ %s\n", sr.Name)
				continue
			}
			fmt.Fprintf(out.Writer, "✗ %s\n", sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(out.Writer, "    %s\n", strings.ReplaceAll(e, "\n", "\n    "))
			}
		}
		fmt.Fprintf(out.Writer, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// scenarioFiles returns path itself, or the .yaml/.yml files below it when
// it is a directory.
func scenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

func runScenarioFile(file string, update bool) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Errors = append(sr.Errors, fmt.Sprintf(format, args...))
		sr.Pass = false
		return sr
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("load: %v", err)
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return fail("run: %v", err)
	}
	sr.Pass = result.Pass
	sr.Errors = append(sr.Errors, result.Errors...)

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return fail("snapshot: %v", err)
	}
	golden := filepath.Join(filepath.Dir(file), "golden", scenario.Name+".golden")
	if update {
		if err := os.MkdirAll(filepath.Dir(golden), 0o755); err != nil {
			return fail("update golden: %v", err)
		}
		if err := os.WriteFile(golden, snapshot, 0o644); err != nil {
			return fail("update golden: %v", err)
		}
		return sr
	}

	want, err := os.ReadFile(golden)
	if os.IsNotExist(err) {
		return sr
	}
	if err != nil {
		return fail("read golden: %v", err)
	}
	if !bytes.Equal(want, snapshot) {
		return fail("snapshot differs from %s (run with --update to accept)", golden)
	}
	return sr
}
