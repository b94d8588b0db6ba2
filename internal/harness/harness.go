package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/firecheck/internal/inspection"
	"github.com/roach88/firecheck/internal/query"
	"github.com/roach88/firecheck/internal/state"
	"github.com/roach88/firecheck/internal/store"
	"github.com/roach88/firecheck/internal/testutil"
)

// DeliveryTimeout bounds how long a step waits for the live count to
// reflect a successful submission.
const DeliveryTimeout = 5 * time.Second

// ClockStep is the spacing of scenario timestamps that are not given
// explicitly.
const ClockStep = time.Minute

// Harness is the test execution engine.
// It runs scenarios through the real store, query layer and hub with a
// deterministic clock.
type Harness struct {
	store  *store.Store
	hub    *state.Hub
	clock  *testutil.MillisClock
	logger *slog.Logger

	// count observes the live count for the whole run so deliveries can be
	// traced after each submission.
	count  *state.Observer[int]
	stored int
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database, query layer and hub
// 2. Attach a live count observer
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions
// 5. Return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	hub := state.New(query.New(st, logger), state.Options{GracePeriod: -1, Logger: logger})
	defer hub.Close()

	h := &Harness{
		store:  st,
		hub:    hub,
		clock:  testutil.NewMillisClock(testutil.DefaultEpoch, ClockStep),
		logger: logger,
		count:  hub.WatchCount(),
	}
	defer h.count.Close()

	ctx := context.Background()

	result := NewResult()
	if err := h.waitReady(ctx); err != nil {
		return nil, err
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Store: st,
		Hub:   hub,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DeliveryTimeout)
	defer cancel()
	select {
	case <-h.count.Ready():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("live count never delivered an initial result")
	}
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Each submit step:
// 1. Takes its timestamp from the step or the scenario clock
// 2. Submits through the hub
// 3. Compares the completion with the expect clause
// 4. On success, waits for the live count to include the new record
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		switch {
		case step.ResetOutcome:
			h.hub.ResetOutcome()
			result.addEvent(TraceEvent{Type: EventReset, Outcome: h.hub.Outcome().String()})

		case step.FailWrites != "":
			if err := h.failWrites(ctx, step.FailWrites); err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			result.addEvent(TraceEvent{Type: EventFailWrites, Error: step.FailWrites})

		case step.Submit != nil:
			h.executeSubmit(ctx, i, step, result)
		}
	}
	return nil
}

func (h *Harness) executeSubmit(ctx context.Context, index int, step FlowStep, result *Result) {
	ts := h.clock.Next()
	if step.Submit.At != nil {
		ts = *step.Submit.At
	}
	sub := inspection.Submission{
		Location:         step.Submit.Location,
		Timestamp:        ts,
		EquipmentChecked: inspection.JoinEquipment(step.Submit.Equipment...),
		Notes:            step.Submit.Notes,
	}
	result.addEvent(TraceEvent{Type: EventSubmit, Location: sub.Location, Timestamp: sub.Timestamp})

	id, err := h.hub.Submit(ctx, sub)
	completion := TraceEvent{Type: EventCompletion, ID: id, Outcome: h.hub.Outcome().String()}
	if err != nil {
		completion.Error = errorCode(err)
	}
	result.addEvent(completion)

	want := step.Expect
	if want == nil {
		want = &ExpectClause{Outcome: "success"}
	}
	if completion.Outcome != want.Outcome {
		result.AddError(fmt.Sprintf("flow[%d]: expected outcome %s, got %s (err: %v)", index, want.Outcome, completion.Outcome, err))
	}
	if want.Error != "" && completion.Error != want.Error {
		result.AddError(fmt.Sprintf("flow[%d]: expected error %s, got %q", index, want.Error, completion.Error))
	}
	if want.ID != 0 && id != want.ID {
		result.AddError(fmt.Sprintf("flow[%d]: expected id %d, got %d", index, want.ID, id))
	}

	h.logger.Info("flow step completed",
		"step", index,
		"location", sub.Location,
		"id", id,
		"outcome", completion.Outcome,
	)

	if err != nil {
		return
	}
	h.stored++
	n, err := h.awaitCount(ctx, h.stored)
	if err != nil {
		result.AddError(fmt.Sprintf("flow[%d]: %v", index, err))
		return
	}
	result.addEvent(TraceEvent{Type: EventDelivery, Count: n})
}

// awaitCount waits until the live count reaches want.
func (h *Harness) awaitCount(ctx context.Context, want int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, DeliveryTimeout)
	defer cancel()

	for {
		if n := h.count.Value(); n >= want {
			return n, nil
		}
		select {
		case _, ok := <-h.count.Updates():
			if !ok {
				return 0, fmt.Errorf("live count closed before reaching %d", want)
			}
		case <-ctx.Done():
			return 0, fmt.Errorf("live count did not reach %d within %s (last %d)", want, DeliveryTimeout, h.count.Value())
		}
	}
}

// failWrites installs a trigger that aborts every later insert.
func (h *Harness) failWrites(ctx context.Context, message string) error {
	_, err := h.store.DB().ExecContext(ctx, `
		CREATE TRIGGER IF NOT EXISTS harness_fail_writes BEFORE INSERT ON inspections
		BEGIN
			SELECT RAISE(ABORT, '`+strings.ReplaceAll(message, "'", "''")+`');
		END
	`)
	if err != nil {
		return fmt.Errorf("failed to install write failure: %w", err)
	}
	return nil
}

// errorCode returns the inspection error code of err, or "UNKNOWN".
func errorCode(err error) string {
	var ie *inspection.Error
	if errors.As(err, &ie) {
		return string(ie.Code)
	}
	return "UNKNOWN"
}
