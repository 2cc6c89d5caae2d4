package engine

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/bibabbrev/internal/rules"
)

// whitespaceRun replaces each whitespace character of a full form.
// \s alone is ASCII-only in RE2; \p{Zs} adds no-break and other spaces.
const whitespaceRun = `[\s\p{Zs}]+`

// Matcher is a compiled rule bound to its replacement.
type Matcher struct {
	rule rules.Rule
	re   *regexp.Regexp
}

// Eligible reports whether a full form may be compiled into a matcher.
// It returns the reason when it may not.
//
// Upper-casing uses full Unicode mappings, so "ß" becomes "SS".
func Eligible(fullForm string) (bool, string) {
	if cases.Upper(language.Und).String(fullForm) == fullForm {
		return false, "all upper-case"
	}
	if strings.IndexFunc(fullForm, unicode.IsSpace) < 0 {
		return false, "single word"
	}
	return true, ""
}

// Pattern returns the regular expression source for a full form: every
// character quoted, every whitespace character widened to a whitespace run,
// case-insensitive and multi-line.
func Pattern(fullForm string) string {
	var b strings.Builder
	b.WriteString("(?im)")
	for _, r := range fullForm {
		if unicode.IsSpace(r) {
			b.WriteString(whitespaceRun)
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	return b.String()
}

// BuildMatcher compiles rule. Ineligible rules and patterns that fail to
// compile return a *PatternError; callers skip the rule and continue.
func BuildMatcher(rule rules.Rule) (*Matcher, error) {
	if ok, reason := Eligible(rule.FullForm); !ok {
		return nil, &PatternError{Code: ErrCodeIneligible, Rule: rule, Reason: reason}
	}

	re, err := regexp.Compile(Pattern(rule.FullForm))
	if err != nil {
		return nil, &PatternError{Code: ErrCodeInvalid, Rule: rule, Reason: "pattern does not compile", Err: err}
	}

	return &Matcher{rule: rule, re: re}, nil
}

// Rule returns the rule the matcher was built from.
func (m *Matcher) Rule() rules.Rule {
	return m.rule
}

// String returns the compiled pattern source.
func (m *Matcher) String() string {
	return m.re.String()
}

// Apply replaces every non-overlapping match in doc, left to right, with
// the literal abbreviation. It returns the new document and the number of
// replacements; with no match doc is returned unchanged.
func (m *Matcher) Apply(doc string) (string, int) {
	locs := m.re.FindAllStringIndex(doc, -1)
	if len(locs) == 0 {
		return doc, 0
	}

	var b strings.Builder
	b.Grow(len(doc))
	last := 0
	for _, loc := range locs {
		b.WriteString(doc[last:loc[0]])
		b.WriteString(m.rule.Abbreviation)
		last = loc[1]
	}
	b.WriteString(doc[last:])

	return b.String(), len(locs)
}
