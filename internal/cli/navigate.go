package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/tracescope/internal/harness"
	"github.com/roach88/tracescope/internal/metrics/prom"
	"github.com/roach88/tracescope/internal/router"
	"github.com/roach88/tracescope/internal/routespec"
	"github.com/roach88/tracescope/internal/tracelog"
)

// NavigateOptions holds flags for the navigate command.
type NavigateOptions struct {
	DB           string // trace database; in-memory when empty
	Prefix       string // navigation key prefix
	MaxRedirects int
	Replace      bool // replace instead of push
	Metrics      bool // print navigation counters
}

// NavigateResult is the JSON payload of the navigate command.
type NavigateResult struct {
	Trace       []harness.TraceEvent `json:"trace"`
	Location    string               `json:"location"`
	Routes      []string             `json:"routes"`
	Navigations map[string]float64   `json:"navigations,omitempty"`
}

// NewNavigateCommand creates the navigate command.
func NewNavigateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NavigateOptions{}

	cmd := &cobra.Command{
		Use:   "navigate <spec> <path>...",
		Short: "Navigate a route tree and print the action trace",
		Long: `Start a navigator over the route spec and navigate to each path in turn,
waiting for every navigation to finish before the next. The trace of every
dispatched action is printed, followed by the final location and active routes.

With --db the trace is appended to a SQLite database that the trace command
reads back.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNavigate(rootOpts.formatter(cmd), opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "append the trace to this SQLite database")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "nav", "navigation key prefix")
	cmd.Flags().IntVar(&opts.MaxRedirects, "max-redirects", 0, "redirect limit (0 keeps the default)")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace the history entry instead of pushing")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report navigation counters")

	return cmd
}

func runNavigate(out *OutputFormatter, opts *NavigateOptions, specPath string, paths []string) error {
	if _, err := os.Stat(specPath); os.IsNotExist(err) {
		return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("path not found: %s", specPath), nil)
	}
	tree, err := routespec.LoadTree(specPath)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeSpecInvalid, "failed to load routes", err)
	}

	sessionOpts := harness.SessionOptions{
		KeyPrefix:    opts.Prefix,
		MaxRedirects: opts.MaxRedirects,
	}
	if opts.DB != "" {
		log, err := tracelog.Open(opts.DB)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer log.Close()
		sessionOpts.Log = log
	}
	reg := prometheus.NewRegistry()
	sessionOpts.Metrics = prom.New(reg)

	session, err := harness.NewSession(tree, sessionOpts)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to start navigator", err)
	}
	defer session.Close()

	mode := router.ModePush
	if opts.Replace {
		mode = router.ModeReplace
	}
	for _, p := range paths {
		out.VerboseLog("Navigating to %s", p)
		if err := session.Navigate(p, mode); err != nil {
			return out.Fail(ExitFailure, ErrCodeNavigation, fmt.Sprintf("navigate %s", p), err)
		}
	}

	result := NavigateResult{
		Trace:    session.Trace(),
		Location: session.Location(),
		Routes:   session.Routes(),
	}
	if opts.Metrics {
		counts, err := navigationCounts(reg)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to gather metrics", err)
		}
		result.Navigations = counts
	}

	if out.JSON() {
		return out.Success(result)
	}
	for _, e := range result.Trace {
		fmt.Fprintf(out.Writer, "%4d  %s\n", e.Seq, e.Line)
	}
	fmt.Fprintf(out.Writer, "\nLocation: %s\n", displayLocation(result.Location))
	fmt.Fprintf(out.Writer, "Routes:   %s\n", strings.Join(result.Routes, " > "))
	if opts.Metrics {
		fmt.Fprintln(out.Writer, "\nNavigations:")
		for _, outcome := range slices.Sorted(maps.Keys(result.Navigations)) {
			fmt.Fprintf(out.Writer, "  %-12s %d\n", outcome, int(result.Navigations[outcome]))
		}
	}
	return nil
}

// navigationCounts reads tracescope_navigations_total by outcome.
func navigationCounts(reg *prometheus.Registry) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "tracescope_navigations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" {
					counts[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	return counts, nil
}

func displayLocation(pathname string) string {
	if pathname == "" {
		return "(none)"
	}
	return pathname
}
