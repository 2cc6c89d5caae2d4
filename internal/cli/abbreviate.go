package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/bibabbrev/internal/config"
	"github.com/roach88/bibabbrev/internal/engine"
	"github.com/roach88/bibabbrev/internal/rules"
)

// RulesReport describes the rule table used by a run.
type RulesReport struct {
	Path      string `json:"path"`
	Source    string `json:"source"`
	Digest    string `json:"digest"`
	Count     int    `json:"count"`
	Compiled  int    `json:"compiled"`
	Malformed int    `json:"malformed"`
}

// AbbreviateReport is the JSON payload of a successful run.
type AbbreviateReport struct {
	RunID         string          `json:"run_id"`
	Input         string          `json:"input"`
	Output        string          `json:"output"`
	Rules         RulesReport     `json:"rules"`
	Substitutions []engine.Record `json:"substitutions"`
	Total         int             `json:"total"`
}

func runAbbreviate(opts *AbbreviateOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The input is read before anything else; without it nothing is written.
	var inputPath string
	if len(args) > 0 {
		inputPath = args[0]
	}
	doc, err := engine.ReadDocument(inputPath)
	if err != nil {
		return formatter.Fail(ErrCodeInput, ExitCommandError, "cannot read input (specify the BibTeX file to process)", err)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return formatter.Fail(ErrCodeGeneric, ExitCommandError, "cannot determine working directory", err)
		}
	}

	cfg, err := loadConfig(opts, cmd, workDir)
	if err != nil {
		return formatter.Fail(ErrCodeConfig, ExitCommandError, "invalid configuration", err)
	}
	if cfg.Source != "" {
		logger.Debug("config loaded", "path", cfg.Source)
	}

	resolution, err := resolveRules(ctx, opts, cfg, workDir, logger)
	if err != nil {
		return formatter.Fail(ErrorCode(err), ExitCommandError, "no rule table available", err)
	}

	table, err := rules.Load(resolution.Path, cfg.Policy())
	if err != nil {
		return formatter.Fail(ErrorCode(err), ExitCommandError, "cannot load rule table", err)
	}
	for _, m := range table.Skipped {
		logger.Warn("malformed rule skipped", "source", m.Source, "line", m.Line, "reason", m.Reason, "text", m.Text)
	}
	logger.Debug("rule table loaded",
		"path", resolution.Path,
		"source", resolution.Source,
		"rules", table.Len(),
		"digest", table.Digest,
	)
	formatter.VerboseLog("Rule table: %s (%s, %d rules)", resolution.Path, resolution.Source, table.Len())

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	eng := engine.New(table, engOpts...)

	result, err := eng.Run(ctx, doc)
	if err != nil {
		return formatter.Fail(ErrorCode(err), ExitCommandError, "interrupted", err)
	}

	outPath := cfg.Output
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(workDir, outPath)
	}
	if err := engine.WriteDocument(outPath, result.Document); err != nil {
		return formatter.Fail(ErrCodeWriteFailed, ExitCommandError, "cannot write output", err)
	}
	logger.Debug("output written", "path", outPath, "run_id", result.RunID, "replacements", result.Total())

	if opts.Format == "json" {
		records := result.Records
		if records == nil {
			records = []engine.Record{}
		}
		return formatter.Success(AbbreviateReport{
			RunID:  result.RunID,
			Input:  inputPath,
			Output: cfg.Output,
			Rules: RulesReport{
				Path:      resolution.Path,
				Source:    string(resolution.Source),
				Digest:    table.Digest,
				Count:     table.Len(),
				Compiled:  len(eng.Matchers()),
				Malformed: len(table.Skipped),
			},
			Substitutions: records,
			Total:         result.Total(),
		})
	}

	w := cmd.OutOrStdout()
	for _, rec := range result.Records {
		fmt.Fprintf(w, "Replacing '%s' FOR '%s' (%d)\n", rec.Pattern, rec.Replacement, rec.Count)
	}
	fmt.Fprintf(w, "Bibliography with abbreviated journal names saved to '%s'\n", cfg.Output)
	return nil
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig(opts *AbbreviateOptions, cmd *cobra.Command, workDir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		cfg, err = config.LoadOptional(filepath.Join(workDir, config.DefaultFile))
	}
	if err != nil {
		return nil, err
	}

	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = opts.Strict
	}
	if cmd.Flags().Changed("timeout") {
		if opts.Timeout <= 0 {
			return nil, fmt.Errorf("--timeout must be positive, got %s", opts.Timeout)
		}
		cfg.FetchTimeout = opts.Timeout
	}
	return cfg, nil
}

// resolveRules picks the rule table: an explicit --rules path, or the
// local, bundled, remote lookup.
func resolveRules(ctx context.Context, opts *AbbreviateOptions, cfg *config.Config, workDir string, logger *slog.Logger) (rules.Resolution, error) {
	if opts.Rules != "" {
		return rules.ResolveExplicit(opts.Rules)
	}

	resolver := rules.NewResolver(cfg.Locations(workDir), cfg.FetchTimeout)
	resolver.Logger = logger
	return resolver.Resolve(ctx)
}
