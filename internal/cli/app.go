package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/firecheck/internal/config"
	"github.com/roach88/firecheck/internal/query"
	"github.com/roach88/firecheck/internal/state"
	"github.com/roach88/firecheck/internal/store"
)

// app is the store, query layer and hub wired together for one command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	queries *query.Layer
	hub     *state.Hub
	printer *message.Printer
	tz      *time.Location
	cancel  context.CancelFunc
}

// openApp resolves configuration and opens the database. Failures are
// reported through f and returned as command errors.
func openApp(cmd *cobra.Command, opts *RootOptions, f *OutputFormatter) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := NewLogger(cmd.ErrOrStderr(), cfg.SlogLevel())

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		_ = f.Error(ErrCodeStorageFault, "failed to open database", err.Error())
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))

	if cfg.WatchExternal {
		if err := st.WatchFile(ctx, logger); err != nil {
			logger.Warn("external change watcher disabled", "err", err)
		}
	}

	queries := query.New(st, logger)
	hub := state.New(queries, state.Options{
		GracePeriod: graceOption(cfg.GracePeriod),
		Logger:      logger,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		queries: queries,
		hub:     hub,
		printer: newPrinter(cfg.Locale),
		tz:      opts.location(),
		cancel:  cancel,
	}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// graceOption maps the config value to hub options. A zero grace period in
// the file means "stop immediately", which the hub spells as negative.
func graceOption(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// Close stops every live query, then closes the database.
func (a *app) Close() {
	a.hub.Close()
	a.cancel()
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// newPrinter returns a printer for the BCP 47 tag. Unparsable tags fall back
// to English.
func newPrinter(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}
