package query

import (
	"context"
	"log/slog"
	"sync"
)

// Live is a cancellable, continuously updated query result.
type Live[T any] struct {
	name    string
	results chan T
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Results returns the delivery channel. It is closed once the subscription
// ends, either through Close, cancellation of the parent context, or the
// store shutting down its change feed.
func (l *Live[T]) Results() <-chan T {
	return l.results
}

// Done is closed when the evaluation goroutine has exited.
func (l *Live[T]) Done() <-chan struct{} {
	return l.done
}

// Close stops the subscription and waits for its goroutine to exit.
// Safe to call more than once.
func (l *Live[T]) Close() {
	l.once.Do(l.cancel)
	<-l.done
}

// startLive subscribes to changes before the first evaluation so that no
// commit between the two can be missed.
func startLive[T any](ctx context.Context, src Source, logger *slog.Logger, name string, eval func(context.Context) (T, error)) *Live[T] {
	ctx, cancel := context.WithCancel(ctx)
	l := &Live[T]{
		name:    name,
		results: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	changes, unsubscribe := src.Changes()

	go func() {
		defer close(l.done)
		defer close(l.results)
		defer unsubscribe()

		l.evaluate(ctx, logger, eval)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					logger.Debug("change feed closed", "query", name)
					return
				}
				l.evaluate(ctx, logger, eval)
			}
		}
	}()

	return l
}

func (l *Live[T]) evaluate(ctx context.Context, logger *slog.Logger, eval func(context.Context) (T, error)) {
	v, err := eval(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("live query evaluation failed", "query", l.name, "err", err)
		return
	}
	l.deliver(v)
}

// deliver replaces any undelivered result with v. Only the evaluation
// goroutine sends, so the loop ends after at most one drain.
func (l *Live[T]) deliver(v T) {
	for {
		select {
		case l.results <- v:
			return
		default:
		}
		select {
		case <-l.results:
		default:
		}
	}
}
