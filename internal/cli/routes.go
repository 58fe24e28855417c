package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracescope/internal/router"
	"github.com/roach88/tracescope/internal/routespec"
)

// RouteInfo describes one route of a tree in JSON output.
type RouteInfo struct {
	ID    string   `json:"id"`
	Path  string   `json:"path"`
	Depth int      `json:"depth"`
	Rules []string `json:"rules,omitempty"`
}

// NewRoutesCommand creates the routes command.
func NewRoutesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes <spec>",
		Short: "Print the route tree of a .cue or .yaml spec",
		Long: `Load a route spec, build it into a route tree and print every route
depth first. Rules (guards) are listed after the route's path.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(rootOpts.formatter(cmd), args[0])
		},
	}
}

func runRoutes(out *OutputFormatter, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("path not found: %s", path), nil)
	}

	out.VerboseLog("Loading routes from %s", path)
	tree, err := routespec.LoadTree(path)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeSpecInvalid, "failed to load routes", err)
	}

	routes := []RouteInfo{}
	tree.Walk(func(depth int, r *router.Route) {
		info := RouteInfo{ID: r.ID, Path: r.Path, Depth: depth}
		for _, rule := range r.Rules {
			info.Rules = append(info.Rules, rule.Name)
		}
		routes = append(routes, info)
	})

	if out.JSON() {
		return out.Success(routes)
	}
	for _, r := range routes {
		line := fmt.Sprintf("%s%s /%s", strings.Repeat("  ", r.Depth), r.ID, r.Path)
		if len(r.Rules) > 0 {
			line += " [" + strings.Join(r.Rules, ", ") + "]"
		}
		fmt.Fprintln(out.Writer, line)
	}
	return nil
}
