// Package harness runs conformance scenarios against the substitution engine.
//
// A scenario pairs a rule table with an input document and states what the
// engine must produce. Scenarios run fully in memory; no files are written
// except golden files on request.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: phys-a
//	description: "Full journal name is abbreviated"
//	rules:
//	  - "Journal of Physics A: Mathematical and Theoretical = J. Phys. A"
//	input: |
//	  journal={Journal of Physics A: Mathematical and Theoretical},
//	expect:
//	  output: |
//	    journal={J. Phys. A},
//	  substitutions:
//	    - pattern: "Journal of Physics A: Mathematical and Theoretical"
//	      replacement: "J. Phys. A"
//	      count: 1
//	  idempotent: true
//
// Instead of inline rules a scenario may name a rule_file, resolved relative
// to the scenario file. Unknown keys are rejected.
//
// # Golden Files
//
// The output document of a scenario can be pinned in a golden file,
// golden/<scenario-file-name>.golden next to the scenario. Tests use
// RunWithGolden, which stores goldens under testdata/golden and is
// regenerated with:
//
//	go test ./internal/harness -update
package harness
