// Package harness runs inspection scenarios against a fresh store, query
// layer and state hub.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	flow:
//	  - submit:
//	      location: "Warehouse A"
//	      equipment: [Hydrant]
//	      notes: "Near expiry"
//	    expect:
//	      outcome: success
//	      id: 1
//	  - fail_writes: "disk full"
//	  - reset_outcome: true
//	assertions:
//	  - type: count
//	    count: 1
//	  - type: latest
//	    limit: 1
//	    locations: ["Warehouse A"]
//
// # Assertion Types
//
//   - count: the stored record count
//   - all_order: locations returned by queryAll, newest first
//   - latest: locations returned by queryLatest(limit)
//   - outcome: the hub's last submission outcome (none, success, failure)
//   - trace_count: number of trace events of a type
//
// # Deterministic Testing
//
// Timestamps not given in the scenario come from testutil.MillisClock,
// starting at testutil.DefaultEpoch and advancing one minute per
// submission. Each scenario uses its own in-memory SQLite database. After
// every successful submission the run waits for the live count to include
// it and records a delivery event, so traces are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/two_inspections.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
