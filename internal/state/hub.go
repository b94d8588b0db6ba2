package state

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/firecheck/internal/inspection"
	"github.com/roach88/firecheck/internal/query"
)

// DefaultGracePeriod keeps an unobserved query warm long enough for a view
// to be recreated.
const DefaultGracePeriod = 5 * time.Second

// Queries is the query layer surface the hub depends on.
// *query.Layer satisfies it.
type Queries interface {
	All(ctx context.Context) *query.Live[[]inspection.Record]
	Latest(ctx context.Context, n int) (*query.Live[[]inspection.Record], error)
	Count(ctx context.Context) *query.Live[int]
	Insert(ctx context.Context, sub inspection.Submission) (int64, error)
}

// Options configures a Hub.
type Options struct {
	// GracePeriod is how long an upstream query outlives its last observer.
	// Zero uses DefaultGracePeriod; a negative value stops immediately.
	GracePeriod time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Hub is the process-wide state holder shared by every view.
type Hub struct {
	queries Queries
	grace   time.Duration
	logger  *slog.Logger

	all     *Shared[[]inspection.Record]
	count   *Shared[int]
	outcome *Cell[Outcome]

	mu     sync.Mutex
	latest map[int]*Shared[[]inspection.Record]
	closed bool
}

// New creates a hub over the query layer. No query runs until it is observed.
func New(queries Queries, opts Options) *Hub {
	grace := opts.GracePeriod
	if grace == 0 {
		grace = DefaultGracePeriod
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		queries: queries,
		grace:   grace,
		logger:  logger,
		latest:  make(map[int]*Shared[[]inspection.Record]),
		outcome: NewCell(OutcomeNone, func(a, b Outcome) bool { return a == b }),
	}

	h.all = NewShared("all", []inspection.Record{}, recordsEqual,
		func(ctx context.Context) (<-chan []inspection.Record, func()) {
			live := queries.All(ctx)
			return live.Results(), live.Close
		}, grace, logger)

	h.count = NewShared("count", 0, func(a, b int) bool { return a == b },
		func(ctx context.Context) (<-chan int, func()) {
			live := queries.Count(ctx)
			return live.Results(), live.Close
		}, grace, logger)

	return h
}

// WatchAll observes every record, newest first. The first value is the
// cached one (empty before the first result arrives).
func (h *Hub) WatchAll() *Observer[[]inspection.Record] {
	return h.all.Observe()
}

// WatchCount observes the total number of records, starting from the cached
// count (zero before the first result arrives).
func (h *Hub) WatchCount() *Observer[int] {
	return h.count.Observe()
}

// WatchLatest observes the n most recent records. Observers of the same n
// share one upstream query. A limit's stream, cache included, is dropped
// once its upstream stops for lack of observers, so the set of limits kept
// is bounded by the ones in use.
func (h *Hub) WatchLatest(n int) (*Observer[[]inspection.Record], error) {
	if n < 0 {
		return nil, inspection.NewInvalidArgument("watch latest", "limit must be >= 0")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Attach under h.mu so eviction never races a new observer.
	return h.latestStreamLocked(n).Observe(), nil
}

func (h *Hub) latestStreamLocked(n int) *Shared[[]inspection.Record] {
	if s, ok := h.latest[n]; ok {
		return s
	}
	s := NewShared("latest", []inspection.Record{}, recordsEqual,
		func(ctx context.Context) (<-chan []inspection.Record, func()) {
			// n was validated by WatchLatest.
			live, err := h.queries.Latest(ctx, n)
			if err != nil {
				h.logger.Error("start latest query", "limit", n, "err", err)
				ch := make(chan []inspection.Record)
				close(ch)
				return ch, func() {}
			}
			return live.Results(), live.Close
		}, h.grace, h.logger)
	s.onIdle = func() { h.evictLatest(n, s) }
	if h.closed {
		s.Close()
	}
	h.latest[n] = s
	return s
}

// evictLatest forgets the stream for n if it is still the registered one
// and nobody re-attached before h.mu was taken.
func (h *Hub) evictLatest(n int, s *Shared[[]inspection.Record]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.latest[n] != s || !s.idle() {
		return
	}
	delete(h.latest, n)
	h.logger.Debug("latest stream dropped", "limit", n)
}

// Submit inserts a record and publishes the outcome. The returned id and
// error belong to this call alone; the shared outcome reflects whichever
// submission finished last. Failed submissions are not retried.
func (h *Hub) Submit(ctx context.Context, sub inspection.Submission) (int64, error) {
	submission := uuid.Must(uuid.NewV7()).String()
	h.logger.Debug("submitting inspection", "submission", submission, "location", sub.Location)

	id, err := h.queries.Insert(ctx, sub)
	if err != nil {
		h.outcome.Store(OutcomeFailure)
		h.logger.Warn("inspection submission failed", "submission", submission, "err", err)
		return 0, err
	}

	h.outcome.Store(OutcomeSuccess)
	h.logger.Info("inspection saved", "submission", submission, "id", id)
	return id, nil
}

// Outcome returns the outcome of the most recently completed submission.
func (h *Hub) Outcome() Outcome {
	return h.outcome.Load()
}

// WatchOutcome observes the submission outcome.
func (h *Hub) WatchOutcome() *Observer[Outcome] {
	return h.outcome.Observe()
}

// ResetOutcome returns the outcome to neutral so a one-shot reaction to the
// last submission does not fire again.
func (h *Hub) ResetOutcome() {
	h.outcome.Store(OutcomeNone)
}

// Close stops every upstream query. Observers keep their last value.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	latest := make([]*Shared[[]inspection.Record], 0, len(h.latest))
	for _, s := range h.latest {
		latest = append(latest, s)
	}
	h.mu.Unlock()

	h.all.Close()
	h.count.Close()
	for _, s := range latest {
		s.Close()
	}
}

func recordsEqual(a, b []inspection.Record) bool {
	return slices.Equal(a, b)
}
