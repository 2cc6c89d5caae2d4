// Package rules loads journal abbreviation rule tables.
//
// A rule table is a UTF-8 text file with one rule per line:
//
//	Journal of Physics A: Mathematical and Theoretical = J. Phys. A
//
// The full form and the abbreviation are separated by the literal " = ".
// Lines are kept in file order; the engine processes them in reverse so
// that, in an alphabetically sorted table, longer names sharing a prefix
// are tried before the shorter ones.
//
// # Locating a table
//
// Resolver.Resolve checks three locations in order:
//   - the preferred local name in the working directory (user override)
//   - a bundled copy next to the installed binary
//   - a remote URL, fetched once and cached under the preferred local name
//
// All three are explicit fields of Locations. Nothing is read from package
// state or the process working directory implicitly.
package rules
