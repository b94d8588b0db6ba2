package cli

import (
	"github.com/spf13/cobra"
)

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "count",
		Short:         "Show the total number of recorded inspections",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(rootOpts, cmd)
		},
	}

	return cmd
}

func runCount(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := openApp(cmd, opts, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store.Count(commandContext(cmd))
	if err != nil {
		return formatter.Fail("count", err)
	}

	return formatter.Success(countResult{Count: n, printer: a.printer})
}
