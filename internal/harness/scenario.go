package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios submit inspections through the state hub and assert on the
// resulting trace, the stored history and the submission outcome.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Flow contains the steps to execute in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	// Supported types: count, all_order, latest, outcome, trace_count
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one scenario step. Exactly one of Submit, ResetOutcome or
// FailWrites is set.
type FlowStep struct {
	// Submit records an inspection through the hub.
	Submit *SubmitStep `yaml:"submit,omitempty"`

	// ResetOutcome clears the submission outcome.
	ResetOutcome bool `yaml:"reset_outcome,omitempty"`

	// FailWrites makes every later insert fail with this message.
	FailWrites string `yaml:"fail_writes,omitempty"`

	// Expect specifies the expected completion of a submit step.
	// If nil, the submission must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// SubmitStep holds the fields of a submission.
type SubmitStep struct {
	Location  string   `yaml:"location"`
	Equipment []string `yaml:"equipment,omitempty"`
	Notes     string   `yaml:"notes,omitempty"`

	// At is the timestamp in milliseconds. If nil, the scenario clock
	// supplies the next timestamp.
	At *int64 `yaml:"at,omitempty"`
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Outcome is "success" or "failure".
	Outcome string `yaml:"outcome"`

	// Error is the expected error code of a failure
	// (INVALID_ARGUMENT or STORAGE_FAULT).
	Error string `yaml:"error,omitempty"`

	// ID is the expected record id of a success. Zero skips the check.
	ID int64 `yaml:"id,omitempty"`
}

// Assertion validates the state after the flow.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count": total number of records equals Count
	// - "all_order": queryAll returns exactly Locations, in order
	// - "latest": queryLatest(Limit) returns exactly Locations, in order
	// - "outcome": the hub outcome equals Outcome
	// - "trace_count": events of type Event appear exactly Count times
	Type string `yaml:"type"`

	// Count is the expected number (used by count and trace_count).
	Count int `yaml:"count,omitempty"`

	// Locations are the expected record locations, newest first.
	Locations []string `yaml:"locations,omitempty"`

	// Limit is the latest query size (used by latest).
	Limit *int `yaml:"limit,omitempty"`

	// Outcome is none, success or failure (used by outcome).
	Outcome string `yaml:"outcome,omitempty"`

	// Event is the trace event type (used by trace_count).
	Event string `yaml:"event,omitempty"`
}

// Assertion type constants.
const (
	AssertCount      = "count"
	AssertAllOrder   = "all_order"
	AssertLatest     = "latest"
	AssertOutcome    = "outcome"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(p), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(p)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *FlowStep) error {
	kinds := 0
	if step.Submit != nil {
		kinds++
	}
	if step.ResetOutcome {
		kinds++
	}
	if step.FailWrites != "" {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("flow[%d]: exactly one of submit, reset_outcome, fail_writes is required", index)
	}

	if step.Expect == nil {
		return nil
	}
	if step.Submit == nil {
		return fmt.Errorf("flow[%d].expect: only submit steps take an expect clause", index)
	}
	switch step.Expect.Outcome {
	case "success":
		if step.Expect.Error != "" {
			return fmt.Errorf("flow[%d].expect: error is only valid with outcome failure", index)
		}
	case "failure":
		if step.Expect.ID != 0 {
			return fmt.Errorf("flow[%d].expect: id is only valid with outcome success", index)
		}
	default:
		return fmt.Errorf("flow[%d].expect: outcome must be success or failure, got %q", index, step.Expect.Outcome)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertAllOrder:
		if a.Locations == nil {
			return fmt.Errorf("assertions[%d]: locations is required for all_order (use [] for none)", index)
		}
	case AssertLatest:
		if a.Limit == nil {
			return fmt.Errorf("assertions[%d]: limit is required for latest", index)
		}
		if *a.Limit < 0 {
			return fmt.Errorf("assertions[%d]: limit must be non-negative for latest", index)
		}
		if a.Locations == nil {
			return fmt.Errorf("assertions[%d]: locations is required for latest (use [] for none)", index)
		}
	case AssertOutcome:
		switch a.Outcome {
		case "none", "success", "failure":
		default:
			return fmt.Errorf("assertions[%d]: outcome must be none, success or failure, got %q", index, a.Outcome)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
