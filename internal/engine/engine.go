package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/bibabbrev/internal/rules"
)

// RunIDGenerator generates identifiers that tag one run's logs and report.
// Implemented by UUIDv7Generator (production) and testutil.FixedRunID (tests).
type RunIDGenerator interface {
	Generate() string
}

// Record describes one rule application that replaced at least once.
type Record struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Count       int    `json:"count"`
}

// Result is the outcome of folding a document through the rule table.
type Result struct {
	RunID    string
	Document string

	// Records lists applied substitutions in application order.
	Records []Record
}

// Total returns the number of replacements across all records.
func (r *Result) Total() int {
	n := 0
	for _, rec := range r.Records {
		n += rec.Count
	}
	return n
}

// Changed reports whether any replacement was made.
func (r *Result) Changed() bool {
	return len(r.Records) > 0
}

// Engine holds the compiled matchers of one rule table.
//
// INVARIANTS:
//   - matchers are in processing order (table reversed) and never reordered
//   - every matcher's full form passed Eligible
//
// An Engine is immutable after New and can fold any number of documents.
type Engine struct {
	matchers []*Matcher
	skipped  []*PatternError
	runIDs   RunIDGenerator
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for substitution and skip events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunIDGenerator overrides the UUIDv7 run ID generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = gen
	}
}

// New reverses table and compiles every eligible rule.
//
// Ineligible rules are logged at debug level; rules whose pattern fails to
// compile are logged as warnings. Neither stops construction.
func New(table *rules.Table, opts ...Option) *Engine {
	e := &Engine{
		runIDs: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, rule := range table.Reversed() {
		m, err := BuildMatcher(rule)
		if err != nil {
			var pe *PatternError
			if !errors.As(err, &pe) {
				pe = &PatternError{Code: ErrCodeInvalid, Rule: rule, Reason: "unexpected error", Err: err}
			}
			e.skipped = append(e.skipped, pe)
			if pe.Code == ErrCodeIneligible {
				e.logger.Debug("rule skipped", "line", rule.Line, "full_form", rule.FullForm, "reason", pe.Reason)
			} else {
				e.logger.Warn("rule skipped", "line", rule.Line, "full_form", rule.FullForm, "error", pe)
			}
			continue
		}
		e.matchers = append(e.matchers, m)
	}

	return e
}

// Matchers returns the compiled matchers in processing order.
func (e *Engine) Matchers() []*Matcher {
	return e.matchers
}

// Skipped returns the rules that were not compiled.
func (e *Engine) Skipped() []*PatternError {
	return e.skipped
}

// Run folds doc through every matcher in order.
//
// The context is checked between rules so a large table can be
// interrupted; on cancellation the partial result is discarded.
func (e *Engine) Run(ctx context.Context, doc string) (*Result, error) {
	res := &Result{RunID: e.runIDs.Generate()}
	logger := e.logger.With("run_id", res.RunID)

	for _, m := range e.matchers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var n int
		doc, n = m.Apply(doc)
		if n == 0 {
			continue
		}

		rule := m.Rule()
		res.Records = append(res.Records, Record{
			Pattern:     rule.FullForm,
			Replacement: rule.Abbreviation,
			Count:       n,
		})
		logger.Info("replacing", "pattern", rule.FullForm, "replacement", rule.Abbreviation, "count", n)
	}

	res.Document = doc
	logger.Debug("substitution complete", "rules", len(e.matchers), "replacements", res.Total())
	return res, nil
}
