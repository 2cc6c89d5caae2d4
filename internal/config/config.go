package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/bibabbrev/internal/rules"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = ".bibabbrev.cue"

// Config holds the resolved settings for one run.
type Config struct {
	RulesFile    string
	BundledPath  string
	RemoteURL    string
	Output       string
	FetchTimeout time.Duration
	Strict       bool

	// Source is the file the settings came from; empty for defaults.
	Source string
}

// fileConfig mirrors #Config for decoding.
type fileConfig struct {
	RulesFile    string `json:"rules_file"`
	BundledPath  string `json:"bundled_path"`
	RemoteURL    string `json:"remote_url"`
	Output       string `json:"output"`
	FetchTimeout string `json:"fetch_timeout"`
	Strict       bool   `json:"strict"`
}

// Default returns the schema defaults.
func Default() (*Config, error) {
	return Parse(nil, "")
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, path)
}

// LoadOptional loads path if it exists and returns the defaults otherwise.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return Load(path)
}

// Parse unifies CUE source with the schema and decodes the result.
// A nil or empty src yields the defaults.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	name := filename
	if name == "" {
		name = "<defaults>"
	}
	user := ctx.CompileBytes(src, cue.Filename(name))
	if err := user.Err(); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", name, err)
	}

	value := def.Unify(user)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", name, err)
	}

	var raw fileConfig
	if err := value.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", name, err)
	}

	timeout, err := time.ParseDuration(raw.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: fetch_timeout: %w", name, err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid config %s: fetch_timeout must be positive, got %s", name, raw.FetchTimeout)
	}

	return &Config{
		RulesFile:    raw.RulesFile,
		BundledPath:  raw.BundledPath,
		RemoteURL:    raw.RemoteURL,
		Output:       raw.Output,
		FetchTimeout: timeout,
		Strict:       raw.Strict,
		Source:       filename,
	}, nil
}

// Policy maps Strict to a rule-table parse policy.
func (c *Config) Policy() rules.Policy {
	if c.Strict {
		return rules.PolicyAbort
	}
	return rules.PolicySkip
}

// Locations returns the rule-table lookup for workDir. An unset
// BundledPath falls back to the copy next to the executable.
func (c *Config) Locations(workDir string) rules.Locations {
	loc := rules.DefaultLocations(workDir)
	loc.LocalName = c.RulesFile
	loc.RemoteURL = c.RemoteURL
	if c.BundledPath != "" {
		loc.BundledPath = c.BundledPath
	}
	return loc
}
