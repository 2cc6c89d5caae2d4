package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/bibabbrev/internal/engine"
	"github.com/roach88/bibabbrev/internal/rules"
	"github.com/roach88/bibabbrev/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Parse the inline rules or load the rule file
//  2. Build an engine with a fixed run ID and silent logger
//  3. Fold the input through the engine
//  4. Evaluate the expectations
//
// An error is returned only when the scenario cannot be executed; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	result := NewResult()

	table, err := loadTable(scenario)
	if err != nil {
		if scenario.Expect.Error != "" {
			if !strings.Contains(err.Error(), scenario.Expect.Error) {
				result.AddError(fmt.Sprintf("error: expected %q in %q", scenario.Expect.Error, err.Error()))
			}
			return result, nil
		}
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	if scenario.Expect.Error != "" {
		result.AddError(fmt.Sprintf("error: expected load error containing %q, got none", scenario.Expect.Error))
		return result, nil
	}

	eng := engine.New(table,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in scenarios
		engine.WithRunIDGenerator(testutil.NewFixedRunID(scenario.RunID)),
	)

	ctx := context.Background()
	res, err := eng.Run(ctx, scenario.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to run engine: %w", err)
	}

	result.Output = res.Document
	if res.Records != nil {
		result.Substitutions = res.Records
	}
	for _, m := range table.Skipped {
		result.Skipped = append(result.Skipped, m.Line)
	}
	for _, pe := range eng.Skipped() {
		result.Skipped = append(result.Skipped, pe.Rule.Line)
	}

	var rerun *engine.Result
	if scenario.Expect.Idempotent {
		rerun, err = eng.Run(ctx, res.Document)
		if err != nil {
			return nil, fmt.Errorf("failed to re-run engine: %w", err)
		}
	}

	for _, msg := range EvaluateExpectations(scenario, result, rerun) {
		result.AddError(msg)
	}

	return result, nil
}

func loadTable(scenario *Scenario) (*rules.Table, error) {
	policy := rules.PolicySkip
	if scenario.Strict {
		policy = rules.PolicyAbort
	}

	if scenario.RuleFile != "" {
		return rules.Load(scenario.RuleFile, policy)
	}
	return rules.Parse([]byte(testutil.RuleTable(scenario.Rules...)), scenario.Name, policy)
}
