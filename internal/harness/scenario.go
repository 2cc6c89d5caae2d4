package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules are inline rule-table lines, in file order.
	Rules []string `yaml:"rules,omitempty"`

	// RuleFile is a rule table path, relative to the scenario file.
	// Exactly one of Rules and RuleFile must be set.
	RuleFile string `yaml:"rule_file,omitempty"`

	// Strict aborts on malformed rule lines instead of skipping them.
	Strict bool `yaml:"strict,omitempty"`

	// Input is the bibliography text fed to the engine.
	Input string `yaml:"input"`

	// Expect lists the checks made against the engine output.
	Expect Expect `yaml:"expect"`

	// RunID is an optional fixed run ID. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Expect specifies the expected engine behaviour. Unset fields are not checked.
type Expect struct {
	// Output is the exact expected output document.
	Output *string `yaml:"output,omitempty"`

	// Unchanged requires the output to equal the input byte for byte.
	Unchanged bool `yaml:"unchanged,omitempty"`

	// Substitutions are the expected records, in application order.
	// An explicit empty list requires that nothing was replaced.
	Substitutions []Substitution `yaml:"substitutions"`

	// Skipped lists rule-table line numbers expected to be filtered out
	// or dropped as malformed.
	Skipped []int `yaml:"skipped,omitempty"`

	// Idempotent re-runs the engine on its own output and requires no
	// further replacements.
	Idempotent bool `yaml:"idempotent,omitempty"`

	// Error is a substring of the expected load error (strict scenarios).
	Error string `yaml:"error,omitempty"`
}

// Substitution is one expected substitution record.
type Substitution struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Count       int    `yaml:"count"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative rule_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.RuleFile != "" && !filepath.IsAbs(scenario.RuleFile) {
		scenario.RuleFile = filepath.Join(filepath.Dir(path), scenario.RuleFile)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative rule_file paths are left as is.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Rules) == 0 && s.RuleFile == "" {
		return fmt.Errorf("one of rules or rule_file is required")
	}
	if len(s.Rules) > 0 && s.RuleFile != "" {
		return fmt.Errorf("rules and rule_file are mutually exclusive")
	}

	if s.Expect.Output != nil && s.Expect.Unchanged {
		return fmt.Errorf("expect.output and expect.unchanged are mutually exclusive")
	}

	for i, sub := range s.Expect.Substitutions {
		if sub.Pattern == "" {
			return fmt.Errorf("expect.substitutions[%d]: pattern is required", i)
		}
		if sub.Count < 1 {
			return fmt.Errorf("expect.substitutions[%d]: count must be at least 1", i)
		}
	}

	return nil
}
