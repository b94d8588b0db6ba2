package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/firecheck/internal/inspection"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	All   bool
	Limit int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recorded inspections, newest first",
		Long: `Show recorded inspections, newest first.

By default the most recent inspections are shown (latest_limit in the
config file, 5 unless changed). Use --all for the full history.

Example:
  firecheck list
  firecheck list --limit 20
  firecheck list --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "show every inspection")
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "number of recent inspections to show (default latest_limit)")
	cmd.MarkFlagsMutuallyExclusive("all", "limit")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if cmd.Flags().Changed("limit") && opts.Limit < 0 {
		return formatter.Fail("list", inspection.NewInvalidArgument("list", "--limit must be >= 0"))
	}

	a, err := openApp(cmd, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	var records []inspection.Record
	switch {
	case opts.All:
		records, err = a.store.QueryAll(ctx)
	case opts.Limit >= 0:
		records, err = a.store.QueryLatest(ctx, opts.Limit)
	default:
		records, err = a.store.QueryLatest(ctx, a.cfg.LatestLimit)
	}
	if err != nil {
		return formatter.Fail("list", err)
	}

	return formatter.Success(recordList{Records: records, printer: a.printer, tz: a.tz})
}
