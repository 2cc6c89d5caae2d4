package harness

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/bibabbrev/internal/engine"
)

// EvaluateExpectations checks result against the scenario's expectations
// and returns one message per failed check. rerun is the engine result on
// its own output, required only when Expect.Idempotent is set.
func EvaluateExpectations(scenario *Scenario, result *Result, rerun *engine.Result) []string {
	var errs []string
	exp := scenario.Expect

	if exp.Output != nil {
		if diff := cmp.Diff(*exp.Output, result.Output); diff != "" {
			errs = append(errs, fmt.Sprintf("output mismatch (-want +got):\n%s", diff))
		}
	}

	if exp.Unchanged && result.Output != scenario.Input {
		errs = append(errs, fmt.Sprintf("output changed (-input +output):\n%s", cmp.Diff(scenario.Input, result.Output)))
	}

	if exp.Substitutions != nil {
		want := make([]engine.Record, len(exp.Substitutions))
		for i, s := range exp.Substitutions {
			want[i] = engine.Record{Pattern: s.Pattern, Replacement: s.Replacement, Count: s.Count}
		}
		if diff := cmp.Diff(want, result.Substitutions); diff != "" {
			errs = append(errs, fmt.Sprintf("substitutions mismatch (-want +got):\n%s", diff))
		}
	}

	if len(exp.Skipped) > 0 {
		want := sortedCopy(exp.Skipped)
		got := sortedCopy(result.Skipped)
		if diff := cmp.Diff(want, got); diff != "" {
			errs = append(errs, fmt.Sprintf("skipped rules mismatch (-want +got):\n%s", diff))
		}
	}

	if exp.Idempotent {
		switch {
		case rerun == nil:
			errs = append(errs, "idempotent: second run missing")
		case rerun.Changed():
			errs = append(errs, fmt.Sprintf("idempotent: second run replaced %d more occurrence(s): %v", rerun.Total(), rerun.Records))
		}
	}

	return errs
}

func sortedCopy(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}
