package rules

import (
	"errors"
	"fmt"
)

// MalformedRuleError reports a rule-table line that does not split into
// exactly one full form and one abbreviation.
type MalformedRuleError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("%s:%d: malformed rule (%s): %q", e.Source, e.Line, e.Reason, e.Text)
}

// UnavailableError reports that no rule table could be found locally and
// the remote copy could not be fetched.
type UnavailableError struct {
	// Location is the URL or path that was tried last.
	Location string
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule table unavailable from %s: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("rule table unavailable from %s", e.Location)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsMalformed returns true if err is, or wraps, a MalformedRuleError.
func IsMalformed(err error) bool {
	var me *MalformedRuleError
	return errors.As(err, &me)
}

// IsUnavailable returns true if err is, or wraps, an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
