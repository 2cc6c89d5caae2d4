package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/bibabbrev/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// AbbreviateOptions holds flags for the root abbreviation command.
type AbbreviateOptions struct {
	*RootOptions
	Config  string
	Rules   string
	Output  string
	Strict  bool
	Timeout time.Duration

	// WorkDir overrides the process working directory (for testing).
	WorkDir string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bibabbrev CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&AbbreviateOptions{RootOptions: &RootOptions{}})
}

func newRootCommand(opts *AbbreviateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bibabbrev [flags] <input.bib>",
		Short: "Abbreviate journal names in a BibTeX database",
		Long: `Replace full journal names in a BibTeX database with their standard
abbreviations, using a "Full Name = Abbrev." rule table.

The rule table is taken from, in order:
  1. journalList.txt in the working directory
  2. journalList.txt next to the bibabbrev binary
  3. the JabRef journal list, downloaded once and cached as journalList.txt

The result is written to abbreviated.bib in the working directory. The
input file is never modified.

Example:
  bibabbrev refs.bib
  bibabbrev --rules my-journals.txt -o short.bib refs.bib
  bibabbrev --format json refs.bib`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAbbreviate(opts, args, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default .bibabbrev.cue in the working directory, if present)")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "rule table to use instead of the lookup order")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default abbreviated.bib)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "abort on malformed rule-table lines instead of skipping them")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "rule-table download timeout (default 30s)")

	cmd.AddCommand(NewVerifyCommand(opts.RootOptions))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger builds the text logger used for a command run.
// Debug level is enabled by --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
