// Package engine implements the journal-name substitution engine.
//
// The engine compiles every eligible rule of a rule table into a Matcher and
// folds the document through them, one rule at a time:
//
//	table (file order) -> reverse -> filter -> compile -> fold over document
//
// ORDERING:
//
// Rules are applied last-listed first. Rule tables are sorted
// alphabetically, so "Journal of Physics A" comes after "Journal of
// Physics"; reversing the table replaces the longer name before the shorter
// one can consume its prefix. Each rule's output is the next rule's input,
// so the fold is strictly sequential.
//
// ELIGIBILITY:
//
// A rule is compiled only when its full form is not entirely upper-case and
// contains whitespace. All-caps and single-word full forms are usually
// acronyms or abbreviations already and would corrupt unrelated text.
//
// MATCHING:
//
// Full forms are matched case-insensitively, and every whitespace character
// of the full form matches a run of one or more whitespace characters in the
// document, so names broken across lines are still found. Replacements are
// literal; "$1" in an abbreviation is not expanded.
package engine
