package query

import (
	"context"
	"log/slog"

	"github.com/roach88/firecheck/internal/inspection"
)

// Source is the store surface the query layer depends on.
// *store.Store satisfies it.
type Source interface {
	Insert(ctx context.Context, sub inspection.Submission) (int64, error)
	QueryAll(ctx context.Context) ([]inspection.Record, error)
	QueryLatest(ctx context.Context, n int) ([]inspection.Record, error)
	Count(ctx context.Context) (int, error)
	Changes() (<-chan struct{}, func())
}

// Layer exposes the fixed set of live queries and the insert pass-through.
type Layer struct {
	src    Source
	logger *slog.Logger
}

// New creates a query layer over src. A nil logger uses slog.Default().
func New(src Source, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{src: src, logger: logger}
}

// All watches every record, newest first.
func (l *Layer) All(ctx context.Context) *Live[[]inspection.Record] {
	return startLive(ctx, l.src, l.logger, "all", l.src.QueryAll)
}

// Latest watches the n most recent records.
// Returns an invalid argument error if n < 0.
func (l *Layer) Latest(ctx context.Context, n int) (*Live[[]inspection.Record], error) {
	if n < 0 {
		return nil, inspection.NewInvalidArgument("watch latest", "limit must be >= 0")
	}
	return startLive(ctx, l.src, l.logger, "latest", func(ctx context.Context) ([]inspection.Record, error) {
		return l.src.QueryLatest(ctx, n)
	}), nil
}

// Count watches the total number of records.
func (l *Layer) Count(ctx context.Context) *Live[int] {
	return startLive(ctx, l.src, l.logger, "count", l.src.Count)
}

// Insert writes a record and returns its id once the write is committed.
// It never waits for live query delivery.
func (l *Layer) Insert(ctx context.Context, sub inspection.Submission) (int64, error) {
	id, err := l.src.Insert(ctx, sub)
	if err != nil {
		return 0, err
	}
	l.logger.Debug("inspection inserted", "id", id, "location", sub.Location)
	return id, nil
}
