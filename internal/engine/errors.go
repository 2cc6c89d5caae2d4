package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/bibabbrev/internal/rules"
)

// ErrNoInput is returned when no input path was given.
var ErrNoInput = errors.New("no input file specified")

// InputError reports that the bibliography could not be read.
// It is fatal: nothing is written when it occurs.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("input unreadable: %v", e.Err)
	}
	return fmt.Sprintf("input unreadable: %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// PatternErrorCode categorizes why a rule was not compiled.
type PatternErrorCode string

const (
	// ErrCodeIneligible marks all-caps or single-word full forms.
	ErrCodeIneligible PatternErrorCode = "PATTERN_INELIGIBLE"

	// ErrCodeInvalid marks a full form whose pattern failed to compile.
	ErrCodeInvalid PatternErrorCode = "PATTERN_INVALID"
)

// PatternError reports a rule that was skipped instead of compiled.
// It never aborts a run.
type PatternError struct {
	Code   PatternErrorCode
	Rule   rules.Rule
	Reason string
	Err    error
}

func (e *PatternError) Error() string {
	msg := fmt.Sprintf("%s: rule %d %q: %s", e.Code, e.Rule.Line, e.Rule.FullForm, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// IsInputError returns true if err is, or wraps, an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsIneligible returns true if err is a PatternError for a filtered rule.
func IsIneligible(err error) bool {
	var pe *PatternError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeIneligible
	}
	return false
}
