package harness

import "github.com/roach88/bibabbrev/internal/engine"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Output is the document produced by the engine.
	Output string `json:"output"`

	// Substitutions are the records produced by the engine.
	Substitutions []engine.Record `json:"substitutions"`

	// Skipped lists rule-table line numbers not compiled into matchers,
	// malformed lines first, then filtered rules in processing order.
	Skipped []int `json:"skipped,omitempty"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Substitutions: []engine.Record{},
		Errors:        []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
