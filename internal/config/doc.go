// Package config loads the optional bibabbrev configuration file.
//
// The file is CUE and is unified with an embedded schema that carries the
// defaults, so an empty or missing file yields the standard behaviour:
//
//	rules_file:    "journalList.txt"
//	output:        "abbreviated.bib"
//	fetch_timeout: "30s"
//	strict:        false
//
// Fields not in the schema are rejected. Command-line flags override
// values loaded here.
package config
