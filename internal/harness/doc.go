// Package harness runs measurement scenarios end to end against the engine.
//
// A scenario registers one product definition, begins one record and
// drives it through checks, saves and submits, comparing every response
// with an expect clause and the final record with assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: chain_staleness
//	description: "What this scenario validates"
//	product: ../products/chain.yaml   # relative to the scenario file
//	batch: B-001                      # optional
//	steps:
//	  - op: check
//	    item: thickness_a
//	    samples: [10, 10, 10]
//	  - op: save
//	    results:
//	      - {item: thickness_a, samples: [30, 40, 10]}
//	      - {item: room_temp, samples: [20, 25, 30], variables: {K: 1.5}}
//	    expect:
//	      code: VALIDATION_REQUIRED
//	      critical_count: 1
//	      warnings:
//	        - {item: thickness_a, level: CRITICAL}
//	        - {item: room_temp, level: WARNING}
//	assertions:
//	  - type: record
//	    expect: {status: IN_PROGRESS, progress: 16.67}
//	  - type: item
//	    item: thickness_a
//	    tolerance: 0.001
//	    expect: {status: true, samples: [10, 10, 10]}
//
// Samples are written as a number, a [before, after] pair or a string
// for qualitative values. Sample indices are assigned from 1 in order.
//
// # Assertion Types
//
//   - record: compares status, sample_status, progress, overall_result,
//     saved_items, batch_number and version of the final record
//   - item: compares status, samples, variables.<name>, stages.<name> and
//     final.<name> of one stored item result
//
// Matching is by subset: only the listed fields are checked.
//
// # Deterministic Testing
//
// Every run opens a fresh SQLite database in a temporary directory and
// uses testutil.DeterministicClock and testutil.SequenceIDGenerator, so
// the same scenario always produces the same record ids, timestamps and
// fingerprints. RunWithGolden compares a canonical digest of the run with
// testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/chain_staleness.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
