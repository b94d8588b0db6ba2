package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/firecheck/internal/inspection"
	"github.com/roach88/firecheck/internal/state"
)

// watchSettle is how long the view waits after a change for the other
// stream to catch up before redrawing. The count and the latest records
// update independently after an insert.
const watchSettle = 50 * time.Millisecond

// watchReadyTimeout bounds the wait for the first real result of each
// stream. It is twice the store's busy timeout.
const watchReadyTimeout = 10 * time.Second

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Limit   int
	Updates int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live summary of inspections",
		Long: `Show the inspection count and the most recent inspections, redrawing
whenever they change, until interrupted.

Changes made by other processes are picked up when watch_external is
enabled in the config file.

Example:
  firecheck watch
  firecheck watch --limit 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "number of recent inspections to show (default latest_limit)")
	cmd.Flags().IntVar(&opts.Updates, "updates", 0, "exit after this many summaries (0 runs until interrupted)")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if cmd.Flags().Changed("limit") && opts.Limit < 0 {
		return formatter.Fail("watch", inspection.NewInvalidArgument("watch", "--limit must be >= 0"))
	}
	if opts.Updates < 0 {
		return formatter.Fail("watch", inspection.NewInvalidArgument("watch", "--updates must be >= 0"))
	}

	a, err := openApp(cmd, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	limit := opts.Limit
	if limit < 0 {
		limit = a.cfg.LatestLimit
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Live queries log failed evaluations and keep waiting, so a store that
	// cannot be read would otherwise leave the view blank.
	if err := checkReadable(ctx, a.store, limit); err != nil {
		return formatter.Fail("watch", err)
	}

	count := a.hub.WatchCount()
	defer count.Close()
	latest, err := a.hub.WatchLatest(limit)
	if err != nil {
		return formatter.Fail("watch", err)
	}
	defer latest.Close()

	err = watchSummary(ctx, count, latest, opts.Updates, watchReadyTimeout, func(s summary) error {
		s.printer = a.printer
		s.tz = a.tz
		return formatter.Success(s)
	})
	if err != nil {
		return formatter.Fail("watch", err)
	}
	return nil
}

// summarySource is the part of the store a summary is read from.
type summarySource interface {
	Count(ctx context.Context) (int, error)
	QueryLatest(ctx context.Context, n int) ([]inspection.Record, error)
}

// checkReadable runs both summary queries once and returns the first error.
func checkReadable(ctx context.Context, src summarySource, limit int) error {
	if _, err := src.Count(ctx); err != nil {
		return err
	}
	_, err := src.QueryLatest(ctx, limit)
	return err
}

// watchSummary emits a summary once both streams hold real results and again
// each time the pair changes. It returns after updates summaries when
// updates > 0, or when ctx is done. A storage fault is returned if either
// stream has no result within readyWithin.
func watchSummary(ctx context.Context, count *state.Observer[int], latest *state.Observer[[]inspection.Record], updates int, readyWithin time.Duration, emit func(summary) error) error {
	deadline := time.NewTimer(readyWithin)
	defer deadline.Stop()
	for _, ready := range []<-chan struct{}{count.Ready(), latest.Ready()} {
		select {
		case <-ready:
		case <-deadline.C:
			return inspection.NewStorageFault("watch", fmt.Errorf("no result within %s", readyWithin))
		case <-ctx.Done():
			return nil
		}
	}

	var last summary
	frames := 0
	redraw := func() (bool, error) {
		cur := summary{Count: count.Value(), Latest: latest.Value()}
		if frames > 0 && cur.equal(last) {
			return false, nil
		}
		last = cur
		frames++
		if err := emit(cur); err != nil {
			return true, err
		}
		return updates > 0 && frames >= updates, nil
	}

	if done, err := redraw(); done || err != nil {
		return err
	}

	settle := time.NewTimer(watchSettle)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-count.Updates():
			if !ok {
				return nil
			}
			settle.Reset(watchSettle)
		case _, ok := <-latest.Updates():
			if !ok {
				return nil
			}
			settle.Reset(watchSettle)
		case <-settle.C:
			if done, err := redraw(); done || err != nil {
				return err
			}
		}
	}
}
