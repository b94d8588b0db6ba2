package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/firecheck/internal/inspection"
	"github.com/roach88/firecheck/internal/state"
	"github.com/roach88/firecheck/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Submissions for context
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventSubmit:
			fmt.Fprintf(&buf, "  [%d] submit %q at %d\n", event.Seq, event.Location, event.Timestamp)
		case EventCompletion:
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Outcome, event.Error)
		}
	}

	return buf.String()
}

// AssertionContext provides access to the store and hub for assertions
// that inspect final state.
type AssertionContext struct {
	Store *store.Store
	Hub   *state.Hub
	Ctx   context.Context
}

// assertCount checks the stored record count.
func assertCount(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	n, err := actx.Store.Count(actx.Ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d records", assertion.Count),
			Actual:   fmt.Sprintf("%d records", n),
			Trace:    trace,
		}
	}
	return nil
}

// assertAllOrder checks queryAll against the expected locations.
func assertAllOrder(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	records, err := actx.Store.QueryAll(actx.Ctx)
	if err != nil {
		return fmt.Errorf("query all: %w", err)
	}
	return compareLocations(AssertAllOrder, records, assertion.Locations, trace)
}

// assertLatest checks queryLatest(limit) against the expected locations.
func assertLatest(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	records, err := actx.Store.QueryLatest(actx.Ctx, *assertion.Limit)
	if err != nil {
		return fmt.Errorf("query latest: %w", err)
	}
	return compareLocations(AssertLatest, records, assertion.Locations, trace)
}

func compareLocations(kind string, records []inspection.Record, want []string, trace []TraceEvent) error {
	got := make([]string, len(records))
	for i, r := range records {
		got[i] = r.Location
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%q", want),
			Actual:   fmt.Sprintf("%q", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertOutcome checks the hub's submission outcome.
func assertOutcome(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	got := actx.Hub.Outcome().String()
	if got != assertion.Outcome {
		return &AssertionError{
			Type:     AssertOutcome,
			Expected: assertion.Outcome,
			Actual:   got,
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks that events of the given type appear exactly the
// specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store and hub access for state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertCount, AssertAllOrder, AssertLatest:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertCount:
				err = assertCount(actx, result.Trace, assertion)
			case AssertAllOrder:
				err = assertAllOrder(actx, result.Trace, assertion)
			default:
				err = assertLatest(actx, result.Trace, assertion)
			}
		case AssertOutcome:
			if actx == nil || actx.Hub == nil {
				err = fmt.Errorf("assertion[%d]: outcome requires hub context", i)
			} else {
				err = assertOutcome(actx, result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
