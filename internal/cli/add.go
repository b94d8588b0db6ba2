package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/firecheck/internal/inspection"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Location  string
	Equipment []string
	Notes     string
	At        string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a completed inspection",
		Long: `Record a completed fire safety inspection.

The inspection time defaults to now. Repeat --equipment once per item
checked; the names are stored as a single comma-separated list.

Example:
  firecheck add --location "Building A, Floor 2" --equipment Extinguisher --equipment "Smoke detector"
  firecheck add --location "Warehouse" --notes "Exit sign dim" --at 2024-01-15T09:00:00Z`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Location, "location", "l", "", "where the inspection took place (required)")
	cmd.Flags().StringArrayVarP(&opts.Equipment, "equipment", "e", nil, "equipment checked (repeatable)")
	cmd.Flags().StringVarP(&opts.Notes, "notes", "n", "", "free-text observations")
	cmd.Flags().StringVar(&opts.At, "at", "", "inspection time, RFC 3339 or Unix milliseconds (default now)")
	_ = cmd.MarkFlagRequired("location")

	return cmd
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ts, err := opts.timestamp()
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArgument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --at", err)
	}

	sub := inspection.Submission{
		Location:         opts.Location,
		Timestamp:        ts,
		EquipmentChecked: inspection.JoinEquipment(opts.Equipment...),
		Notes:            opts.Notes,
	}
	// Reject before touching the database so a typo does not create one.
	if err := sub.Validate(); err != nil {
		return formatter.Fail("add", err)
	}

	a, err := openApp(cmd, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.hub.Submit(commandContext(cmd), sub)
	if err != nil {
		return formatter.Fail("add", err)
	}

	rec := sub.Record()
	rec.ID = id
	return formatter.Success(savedResult{ID: id, Record: rec})
}

// timestamp parses --at, defaulting to the current time.
func (o *AddOptions) timestamp() (int64, error) {
	if o.At == "" {
		return o.now().UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(o.At, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, o.At)
	if err != nil {
		return 0, fmt.Errorf("--at %q: want RFC 3339 time or Unix milliseconds", o.At)
	}
	return t.UnixMilli(), nil
}
