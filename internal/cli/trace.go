package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tracescope/internal/tracelog"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	DB   string // path to the trace database
	Key  string // navigation key filter
	Keys bool   // list navigation keys only
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Read back a recorded action trace",
		Long: `Print the actions recorded by navigate --db in sequence order.

Examples:
  tracescope trace --db ./trace.db
  tracescope trace --db ./trace.db --key nav-2
  tracescope trace --db ./trace.db --keys`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), rootOpts.formatter(cmd), opts)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the trace database (required)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "only actions of this navigation key")
	cmd.Flags().BoolVar(&opts.Keys, "keys", false, "list recorded navigation keys")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(ctx context.Context, out *OutputFormatter, opts *TraceOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DB), nil)
	}

	log, err := tracelog.Open(opts.DB)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer log.Close()

	if opts.Keys {
		keys, err := log.Keys(ctx)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeDatabase, "failed to read keys", err)
		}
		if out.JSON() {
			return out.Success(keys)
		}
		for _, k := range keys {
			fmt.Fprintln(out.Writer, k)
		}
		return nil
	}

	var records []tracelog.Record
	if opts.Key != "" {
		records, err = log.ReadByKey(ctx, opts.Key)
	} else {
		records, err = log.ReadAll(ctx)
	}
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeDatabase, "failed to read trace", err)
	}
	if records == nil {
		records = []tracelog.Record{}
	}

	if out.JSON() {
		return out.Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out.Writer, "No actions recorded")
		return nil
	}
	for _, r := range records {
		key := r.Key
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(out.Writer, "%4d  %-10s %s %s\n", r.Seq, key, r.ActionKey(), r.Payload)
	}
	return nil
}
