package rules

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Separator splits the full form from the abbreviation on each line.
const Separator = " = "

// Rule maps a full journal name to its abbreviation.
type Rule struct {
	FullForm     string
	Abbreviation string

	// Line is the 1-based line number in the source table.
	Line int
}

func (r Rule) String() string {
	return r.FullForm + Separator + r.Abbreviation
}

// Policy controls what happens when a line cannot be parsed.
type Policy int

const (
	// PolicySkip drops malformed lines and records them in Table.Skipped.
	PolicySkip Policy = iota
	// PolicyAbort fails the whole load on the first malformed line.
	PolicyAbort
)

func (p Policy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	case PolicyAbort:
		return "abort"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Table is an ordered, immutable list of rules in file order.
type Table struct {
	Rules []Rule

	// Source is the path (or name) the table was read from.
	Source string

	// Digest is the hex BLAKE3-256 of the raw table bytes.
	Digest string

	// Skipped holds the malformed lines dropped under PolicySkip.
	Skipped []*MalformedRuleError
}

// Len returns the number of parsed rules.
func (t *Table) Len() int {
	return len(t.Rules)
}

// Reversed returns the rules in processing order: last listed first.
// The table itself is not modified.
func (t *Table) Reversed() []Rule {
	out := make([]Rule, len(t.Rules))
	for i, r := range t.Rules {
		out[len(t.Rules)-1-i] = r
	}
	return out
}

// Load reads and parses the rule table at path.
func Load(path string, policy Policy) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule table: %w", err)
	}
	return Parse(data, path, policy)
}

// Parse parses raw rule-table bytes. Empty lines are ignored. Every other
// line must contain the separator exactly once and a non-empty full form.
//
// A leading byte-order mark is removed; UTF-16 tables with a BOM are
// decoded to UTF-8.
func Parse(data []byte, source string, policy Policy) (*Table, error) {
	sum := blake3.Sum256(data)
	table := &Table{
		Source: source,
		Digest: hex.EncodeToString(sum[:]),
	}

	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule table %s: %w", source, err)
	}

	for i, raw := range strings.Split(string(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		rule, perr := parseLine(line, source, i+1)
		if perr != nil {
			if policy == PolicyAbort {
				return nil, perr
			}
			table.Skipped = append(table.Skipped, perr)
			continue
		}
		table.Rules = append(table.Rules, rule)
	}

	return table, nil
}

func parseLine(line, source string, lineNo int) (Rule, *MalformedRuleError) {
	malformed := func(reason string) *MalformedRuleError {
		return &MalformedRuleError{Source: source, Line: lineNo, Text: line, Reason: reason}
	}

	switch n := strings.Count(line, Separator); {
	case n == 0:
		return Rule{}, malformed("missing separator")
	case n > 1:
		return Rule{}, malformed(fmt.Sprintf("separator appears %d times", n))
	}

	full, abbrev, _ := strings.Cut(line, Separator)
	if strings.TrimSpace(full) == "" {
		return Rule{}, malformed("empty full form")
	}

	return Rule{FullForm: full, Abbreviation: abbrev, Line: lineNo}, nil
}
