package state

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firecheck/internal/inspection"
	"github.com/roach88/firecheck/internal/query"
	"github.com/roach88/firecheck/internal/store"
)

func newTestHub(t *testing.T, grace time.Duration) (*Hub, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	logger := discardLogger()
	h := New(query.New(st, logger), Options{GracePeriod: grace, Logger: logger})
	t.Cleanup(func() {
		h.Close()
		st.Close()
	})
	return h, st
}

func submission(location string, ts int64) inspection.Submission {
	return inspection.Submission{Location: location, Timestamp: ts, EquipmentChecked: "Hydrant"}
}

// awaitValue reads updates until pred holds.
func awaitValue[T any](t *testing.T, o *Observer[T], pred func(T) bool) T {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case v, ok := <-o.Updates():
			require.True(t, ok, "observer closed")
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out; last value %v", o.Value())
		}
	}
}

func TestHub_InitialValues(t *testing.T) {
	h, _ := newTestHub(t, time.Minute)

	all := h.WatchAll()
	defer all.Close()
	count := h.WatchCount()
	defer count.Close()

	assert.Equal(t, []inspection.Record{}, all.Value())
	assert.Equal(t, 0, count.Value())
	assert.Equal(t, OutcomeNone, h.Outcome())
}

func TestHub_LateSubscriberReplay(t *testing.T) {
	h, st := newTestHub(t, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := st.Insert(ctx, submission("room", int64(i)))
		require.NoError(t, err)
	}

	first := h.WatchCount()
	defer first.Close()
	awaitValue(t, first, func(n int) bool { return n == 3 })

	// Attaches after the value is cached: sees 3 without any new insert.
	late := h.WatchCount()
	defer late.Close()
	assert.Equal(t, 3, late.Value())
	assert.Equal(t, 3, <-late.Updates())
}

func TestHub_FreshnessAfterSubmit(t *testing.T) {
	h, _ := newTestHub(t, time.Minute)
	ctx := context.Background()

	all := h.WatchAll()
	defer all.Close()

	id, err := h.Submit(ctx, submission("Warehouse A", 100))
	require.NoError(t, err)

	records := awaitValue(t, all, func(r []inspection.Record) bool { return len(r) == 1 })
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "Warehouse A", records[0].Location)
}

func TestHub_CacheReuseAcrossObservers(t *testing.T) {
	h, _ := newTestHub(t, time.Minute)
	ctx := context.Background()

	a := h.WatchCount()
	defer a.Close()
	b := h.WatchCount()
	defer b.Close()

	var seenA, seenB []int
	seenA = append(seenA, awaitValue(t, a, func(int) bool { return true }))
	seenB = append(seenB, awaitValue(t, b, func(int) bool { return true }))

	for i := 1; i <= 5; i++ {
		_, err := h.Submit(ctx, submission("room", int64(i)))
		require.NoError(t, err)
		want := i
		seenA = append(seenA, awaitValue(t, a, func(n int) bool { return n == want }))
		seenB = append(seenB, awaitValue(t, b, func(n int) bool { return n == want }))
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, seenA)
	assert.Equal(t, seenA, seenB)
	assert.Equal(t, 1, h.count.Starts(), "one upstream query for both observers")
}

func TestHub_WatchLatestSharedPerLimit(t *testing.T) {
	h, _ := newTestHub(t, time.Minute)
	ctx := context.Background()

	a, err := h.WatchLatest(2)
	require.NoError(t, err)
	defer a.Close()
	b, err := h.WatchLatest(2)
	require.NoError(t, err)
	defer b.Close()
	c, err := h.WatchLatest(5)
	require.NoError(t, err)
	defer c.Close()

	for i := 1; i <= 3; i++ {
		_, err := h.Submit(ctx, submission("room", int64(i*10)))
		require.NoError(t, err)
	}

	latest2 := awaitValue(t, a, func(r []inspection.Record) bool { return len(r) == 2 && r[0].Timestamp == 30 })
	assert.Equal(t, int64(20), latest2[1].Timestamp)
	awaitValue(t, b, func(r []inspection.Record) bool { return len(r) == 2 && r[0].Timestamp == 30 })
	awaitValue(t, c, func(r []inspection.Record) bool { return len(r) == 3 })

	h.mu.Lock()
	assert.Len(t, h.latest, 2)
	assert.Equal(t, 1, h.latest[2].Starts())
	h.mu.Unlock()
}

func TestHub_WatchLatestNegative(t *testing.T) {
	h, _ := newTestHub(t, time.Minute)

	o, err := h.WatchLatest(-1)
	require.Error(t, err)
	assert.Nil(t, o)
	assert.True(t, inspection.IsInvalidArgument(err))
}

func TestHub_GracePeriodReattachReusesQuery(t *testing.T) {
	h, _ := newTestHub(t, time.Hour)

	o := h.WatchAll()
	awaitValue(t, o, func([]inspection.Record) bool { return true })
	o.Close()

	again := h.WatchAll()
	defer again.Close()
	assert.Equal(t, 1, h.all.Starts())
}

func TestHub_GracePeriodExpiry(t *testing.T) {
	h, _ := newTestHub(t, 20*time.Millisecond)
	ctx := context.Background()

	o := h.WatchCount()
	_, err := h.Submit(ctx, submission("room", 1))
	require.NoError(t, err)
	awaitValue(t, o, func(n int) bool { return n == 1 })
	o.Close()

	require.Eventually(t, func() bool { return !h.count.Running() }, 2*time.Second, 5*time.Millisecond)

	// Inserts while nobody watches are picked up on the next attach.
	_, err = h.Submit(ctx, submission("room", 2))
	require.NoError(t, err)

	again := h.WatchCount()
	defer again.Close()
	assert.GreaterOrEqual(t, again.Value(), 1, "cache survives teardown")
	awaitValue(t, again, func(n int) bool { return n == 2 })
	assert.Equal(t, 2, h.count.Starts())
}

func TestHub_SubmitOutcome(t *testing.T) {
	h, _ := newTestHub(t, time.Minute)
	ctx := context.Background()

	outcome := h.WatchOutcome()
	defer outcome.Close()
	assert.Equal(t, OutcomeNone, <-outcome.Updates())

	_, err := h.Submit(ctx, submission("Warehouse A", 1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, h.Outcome())
	assert.True(t, h.Outcome().Succeeded())
	assert.Equal(t, OutcomeSuccess, <-outcome.Updates())

	h.ResetOutcome()
	assert.Equal(t, OutcomeNone, h.Outcome())
	assert.False(t, h.Outcome().Succeeded())
	assert.Equal(t, OutcomeNone, <-outcome.Updates())
}

func TestHub_SubmitFailure(t *testing.T) {
	h, st := newTestHub(t, time.Minute)
	ctx := context.Background()

	_, err := h.Submit(ctx, submission("", 1))
	require.Error(t, err)
	assert.True(t, inspection.IsInvalidArgument(err))
	assert.Equal(t, OutcomeFailure, h.Outcome())

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "failed submission never persists a record")
}

func TestHub_SubmitStorageFault(t *testing.T) {
	h, st := newTestHub(t, time.Minute)
	ctx := context.Background()

	count := h.WatchCount()
	defer count.Close()
	_, err := h.Submit(ctx, submission("first", 1))
	require.NoError(t, err)
	awaitValue(t, count, func(n int) bool { return n == 1 })

	_, err = st.DB().Exec(`CREATE TRIGGER fail_insert BEFORE INSERT ON inspections BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	_, err = h.Submit(ctx, submission("second", 2))
	require.Error(t, err)
	assert.True(t, inspection.IsStorageFault(err))
	assert.Equal(t, OutcomeFailure, h.Outcome())

	// The cached count stays at the last good value.
	assert.Equal(t, 1, count.Value())
}

func TestHub_ConcurrentSubmissionsLastWriteWins(t *testing.T) {
	h, st := newTestHub(t, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loc := "room"
			if i%2 == 1 {
				loc = "" // rejected
			}
			_, errs[i] = h.Submit(ctx, submission(loc, int64(i)))
		}(i)
	}
	wg.Wait()

	// Each call has its own result.
	for i, err := range errs {
		if i%2 == 1 {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Contains(t, []Outcome{OutcomeSuccess, OutcomeFailure}, h.Outcome())

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestHub_CloseStopsQueries(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	h := New(query.New(st, discardLogger()), Options{Logger: discardLogger()})

	all := h.WatchAll()
	latest, err := h.WatchLatest(5)
	require.NoError(t, err)
	h.Close()

	assert.False(t, h.all.Running())
	assert.False(t, h.latest[5].Running())
	all.Close()
	latest.Close()
}

// stubQueries lets the latest stream fail to start.
type stubQueries struct {
	Queries
}

func (stubQueries) Latest(context.Context, int) (*query.Live[[]inspection.Record], error) {
	return nil, errors.New("boom")
}

func TestHub_LatestStartFailureKeepsCache(t *testing.T) {
	h := New(stubQueries{}, Options{GracePeriod: time.Minute, Logger: discardLogger()})
	defer h.Close()

	o, err := h.WatchLatest(3)
	require.NoError(t, err)
	defer o.Close()
	assert.Equal(t, []inspection.Record{}, o.Value())
}

func TestHub_WatchLatestDropsIdleStream(t *testing.T) {
	h, _ := newTestHub(t, -1)
	ctx := context.Background()

	_, err := h.Submit(ctx, submission("room", 10))
	require.NoError(t, err)

	o, err := h.WatchLatest(3)
	require.NoError(t, err)
	awaitValue(t, o, func(r []inspection.Record) bool { return len(r) == 1 })
	o.Close()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		_, ok := h.latest[3]
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	again, err := h.WatchLatest(3)
	require.NoError(t, err)
	defer again.Close()
	awaitValue(t, again, func(r []inspection.Record) bool { return len(r) == 1 })

	h.mu.Lock()
	assert.Len(t, h.latest, 1)
	assert.Equal(t, 1, h.latest[3].Starts(), "a fresh stream replaced the dropped one")
	h.mu.Unlock()
}

func TestHub_WatchLatestKeepsStreamDuringGrace(t *testing.T) {
	h, _ := newTestHub(t, time.Hour)

	o, err := h.WatchLatest(4)
	require.NoError(t, err)
	o.Close()

	h.mu.Lock()
	s, ok := h.latest[4]
	h.mu.Unlock()
	require.True(t, ok)
	assert.True(t, s.Running())

	again, err := h.WatchLatest(4)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, 1, s.Starts())
}

func TestHub_LatestStartFailureDropsStreamOnDetach(t *testing.T) {
	h := New(stubQueries{}, Options{GracePeriod: time.Minute, Logger: discardLogger()})
	defer h.Close()

	o, err := h.WatchLatest(3)
	require.NoError(t, err)
	h.mu.Lock()
	s := h.latest[3]
	h.mu.Unlock()
	require.Eventually(t, func() bool { return !s.Running() }, 2*time.Second, 5*time.Millisecond)
	o.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.NotContains(t, h.latest, 3)
}
