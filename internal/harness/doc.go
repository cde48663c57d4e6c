// Package harness runs declarative SQL scenarios against a fresh shell.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: load_csv
//	description: "Stage a CSV and query it"
//	profile: profiles/default.cue      # optional, relative to this file
//	properties:
//	  sqlite.foreign_keys: "ON"
//	resources:
//	  - target: data/t.csv
//	    data: "a,b\n1,2"
//	  - target: data/u.csv
//	    source: fixtures/u.csv           # relative to this file
//	output: last                         # or "all"
//	steps:
//	  - execute: "CREATE TABLE t(a INT, b INT)"
//	  - query: "SELECT count(*) FROM t"
//	    expect: ["0"]
//	  - execute: "SELECT * FROM missing"
//	    expect_error: "no such table"
//	assertions:
//	  - type: query_rows
//	    query: "SELECT a FROM t"
//	    expect: []
//	  - type: file_contents
//	    path: data/t.csv
//	    contents: "a,b\n1,2"
//
// Each step carries exactly one of execute or query. A step without
// expect_error must succeed; a query step with expect must return exactly
// those rows.
//
// # Assertion Types
//
//   - query_rows: runs a query after the steps and compares its rows
//   - file_contents: compares a file in the sandbox's virtual filesystem
//   - conf_value: compares a key of the live backend configuration
//   - trace_count: counts trace events of a type ("execute", "query",
//     or "failed" for steps that returned an error)
//
// # Deterministic Testing
//
// Every run gets its own owned sandbox, session ids derived from the
// scenario name (testutil.FixedIDGenerator) and a logical clock
// (testutil.DeterministicClock) numbering trace events. Traces carry no
// paths or timestamps, so the canonical JSON of a trace is stable across
// runs and can be compared against golden files.
package harness
