package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bibabbrev/internal/engine"
	"github.com/roach88/bibabbrev/internal/rules"
	"github.com/roach88/bibabbrev/internal/testutil"
)

const physA = "Journal of Physics A: Mathematical and Theoretical = J. Phys. A"

type cliRun struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command with ws as working directory.
func runCLI(t *testing.T, ws *testutil.Workspace, args ...string) cliRun {
	t.Helper()
	opts := &AbbreviateOptions{
		RootOptions: &RootOptions{},
		WorkDir:     ws.Dir,
		RunIDs:      testutil.NewFixedRunID("run-1"),
	}
	cmd := newRootCommand(opts)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return cliRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// offlineConfig disables the bundled and remote rule-table sources.
func offlineConfig(t *testing.T, ws *testutil.Workspace) {
	t.Helper()
	ws.WriteFile(t, ".bibabbrev.cue", fmt.Sprintf("bundled_path: %q\nremote_url: %q\n",
		ws.Path("missing/journalList.txt"), "http://127.0.0.1:1/journalList.txt"))
}

func TestAbbreviate_ReplacesJournalName(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA)
	input := ws.WriteFile(t, "refs.bib",
		"@article{k,\n  journal={Journal of Physics A: Mathematical and Theoretical},\n}\n")

	run := runCLI(t, ws, input)
	require.NoError(t, run.err)

	assert.Equal(t, "@article{k,\n  journal={J. Phys. A},\n}\n", ws.ReadFile(t, "abbreviated.bib"))
	assert.Contains(t, run.stdout,
		"Replacing 'Journal of Physics A: Mathematical and Theoretical' FOR 'J. Phys. A' (1)\n")
	assert.Contains(t, run.stdout, "Bibliography with abbreviated journal names saved to 'abbreviated.bib'")
	assert.Contains(t, run.stderr, "msg=replacing")
	assert.Contains(t, run.stderr, "run_id=run-1")

	// The input is never modified.
	assert.Contains(t, ws.ReadFile(t, "refs.bib"), "Journal of Physics A")
}

func TestAbbreviate_NoMatchesCopiesInput(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA, "Physical Review Letters = Phys. Rev. Lett.")
	content := "@book{k,\n  title={Gravitation},\n  publisher={Freeman},\n}\n"
	input := ws.WriteFile(t, "refs.bib", content)

	run := runCLI(t, ws, input)
	require.NoError(t, run.err)

	assert.Equal(t, content, ws.ReadFile(t, "abbreviated.bib"))
	assert.NotContains(t, run.stdout, "Replacing")
	assert.Contains(t, run.stdout, "saved to 'abbreviated.bib'")
}

func TestAbbreviate_NoInputArgument(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA)

	run := runCLI(t, ws)
	require.Error(t, run.err)
	assert.Equal(t, ExitCommandError, GetExitCode(run.err))
	assert.True(t, engine.IsInputError(run.err))
	assert.False(t, ws.Exists("abbreviated.bib"))
}

func TestAbbreviate_MissingInputLeavesOutputAlone(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA)
	ws.WriteFile(t, "abbreviated.bib", "previous run\n")

	run := runCLI(t, ws, ws.Path("nope.bib"))
	require.Error(t, run.err)
	assert.Equal(t, ExitCommandError, GetExitCode(run.err))
	assert.Equal(t, ErrCodeInput, ErrorCode(run.err))
	assert.Equal(t, "previous run\n", ws.ReadFile(t, "abbreviated.bib"))
}

func TestAbbreviate_OverwritesExistingOutput(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA)
	ws.WriteFile(t, "abbreviated.bib", "a much longer previous output that must not survive\n")
	input := ws.WriteFile(t, "refs.bib", "x\n")

	run := runCLI(t, ws, input)
	require.NoError(t, run.err)
	assert.Equal(t, "x\n", ws.ReadFile(t, "abbreviated.bib"))
}

func TestAbbreviate_LaterRulesApplyFirst(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt",
		"Journal of Physics = J. Phys.",
		physA,
	)
	input := ws.WriteFile(t, "refs.bib", "journal={Journal of Physics A: Mathematical and Theoretical},\n")

	run := runCLI(t, ws, input)
	require.NoError(t, run.err)
	assert.Equal(t, "journal={J. Phys. A},\n", ws.ReadFile(t, "abbreviated.bib"))
	assert.NotContains(t, run.stdout, "'Journal of Physics' FOR")
}

func TestAbbreviate_FetchesRemoteTable(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	srv := testutil.ServeRules(t, http.StatusOK, testutil.RuleTable(physA))
	ws.WriteFile(t, ".bibabbrev.cue", fmt.Sprintf("bundled_path: %q\nremote_url: %q\n",
		ws.Path("missing/journalList.txt"), srv.URL+"/journalList.txt"))
	input := ws.WriteFile(t, "refs.bib", "journal={Journal of Physics A: Mathematical and Theoretical},\n")

	run := runCLI(t, ws, input)
	require.NoError(t, run.err, run.stderr)
	assert.Equal(t, "journal={J. Phys. A},\n", ws.ReadFile(t, "abbreviated.bib"))
	assert.Equal(t, testutil.RuleTable(physA), ws.ReadFile(t, "journalList.txt"))
	assert.EqualValues(t, 1, srv.Hits())

	// The cached copy is used from then on.
	run = runCLI(t, ws, input)
	require.NoError(t, run.err)
	assert.EqualValues(t, 1, srv.Hits())
}

func TestAbbreviate_RemoteTableUnavailable(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	srv := testutil.ServeRules(t, http.StatusNotFound, "not found")
	ws.WriteFile(t, ".bibabbrev.cue", fmt.Sprintf("bundled_path: %q\nremote_url: %q\n",
		ws.Path("missing/journalList.txt"), srv.URL+"/journalList.txt"))
	input := ws.WriteFile(t, "refs.bib", "x\n")

	run := runCLI(t, ws, "--format", "json", input)
	require.Error(t, run.err)
	assert.Equal(t, ExitCommandError, GetExitCode(run.err))
	assert.True(t, rules.IsUnavailable(run.err))
	assert.False(t, ws.Exists("abbreviated.bib"))
	assert.False(t, ws.Exists("journalList.txt"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(run.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRulesUnavailable, resp.Error.Code)
}

func TestAbbreviate_ExplicitRulesFile(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", "Physical Review Letters = PRL")
	custom := ws.WriteRules(t, "mine.txt", "Physical Review Letters = Phys. Rev. Lett.")
	input := ws.WriteFile(t, "refs.bib", "journal={Physical Review Letters},\n")

	run := runCLI(t, ws, "--rules", custom, "-o", "short.bib", input)
	require.NoError(t, run.err)
	assert.Equal(t, "journal={Phys. Rev. Lett.},\n", ws.ReadFile(t, "short.bib"))
	assert.False(t, ws.Exists("abbreviated.bib"))
	assert.Contains(t, run.stdout, "saved to 'short.bib'")
}

func TestAbbreviate_ExplicitRulesFileMissing(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	input := ws.WriteFile(t, "refs.bib", "x\n")

	run := runCLI(t, ws, "--rules", ws.Path("absent.txt"), input)
	require.Error(t, run.err)
	assert.True(t, rules.IsUnavailable(run.err))
	assert.False(t, ws.Exists("abbreviated.bib"))
}

func TestAbbreviate_MalformedRules(t *testing.T) {
	lines := []string{"Physical Review Letters = Phys. Rev. Lett.", "not a rule"}

	t.Run("skipped_by_default", func(t *testing.T) {
		ws := testutil.NewWorkspace(t)
		ws.WriteRules(t, "journalList.txt", lines...)
		input := ws.WriteFile(t, "refs.bib", "journal={Physical Review Letters},\n")

		run := runCLI(t, ws, input)
		require.NoError(t, run.err)
		assert.Contains(t, run.stderr, "malformed rule skipped")
		assert.Equal(t, "journal={Phys. Rev. Lett.},\n", ws.ReadFile(t, "abbreviated.bib"))
	})

	t.Run("strict_aborts", func(t *testing.T) {
		ws := testutil.NewWorkspace(t)
		ws.WriteRules(t, "journalList.txt", lines...)
		input := ws.WriteFile(t, "refs.bib", "journal={Physical Review Letters},\n")

		run := runCLI(t, ws, "--strict", input)
		require.Error(t, run.err)
		assert.Equal(t, ExitCommandError, GetExitCode(run.err))
		assert.True(t, rules.IsMalformed(run.err))
		assert.Contains(t, run.err.Error(), "journalList.txt:2")
		assert.False(t, ws.Exists("abbreviated.bib"))
	})

	t.Run("strict_from_config", func(t *testing.T) {
		ws := testutil.NewWorkspace(t)
		ws.WriteRules(t, "journalList.txt", lines...)
		ws.WriteFile(t, ".bibabbrev.cue", "strict: true\n")
		input := ws.WriteFile(t, "refs.bib", "x\n")

		run := runCLI(t, ws, input)
		require.Error(t, run.err)
		assert.True(t, rules.IsMalformed(run.err))
	})

	t.Run("flag_overrides_config", func(t *testing.T) {
		ws := testutil.NewWorkspace(t)
		ws.WriteRules(t, "journalList.txt", lines...)
		ws.WriteFile(t, ".bibabbrev.cue", "strict: true\n")
		input := ws.WriteFile(t, "refs.bib", "x\n")

		run := runCLI(t, ws, "--strict=false", input)
		require.NoError(t, run.err)
	})
}

func TestAbbreviate_JSONReport(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt",
		"PHYSICAL REVIEW = PHYS. REV.",
		physA,
	)
	input := ws.WriteFile(t, "refs.bib",
		"a={Journal of Physics A: Mathematical and Theoretical}\nb={journal of physics a:  mathematical and theoretical}\n")

	run := runCLI(t, ws, "--format", "json", input)
	require.NoError(t, run.err)

	var resp struct {
		Status string           `json:"status"`
		Data   AbbreviateReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(run.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	report := resp.Data
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, input, report.Input)
	assert.Equal(t, "abbreviated.bib", report.Output)
	assert.Equal(t, string(rules.SourceLocal), report.Rules.Source)
	assert.Equal(t, 2, report.Rules.Count)
	assert.Equal(t, 1, report.Rules.Compiled)
	assert.Equal(t, 0, report.Rules.Malformed)
	assert.Len(t, report.Rules.Digest, 64)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, []engine.Record{
		{Pattern: "Journal of Physics A: Mathematical and Theoretical", Replacement: "J. Phys. A", Count: 2},
	}, report.Substitutions)

	assert.Equal(t, "a={J. Phys. A}\nb={J. Phys. A}\n", ws.ReadFile(t, "abbreviated.bib"))
}

func TestAbbreviate_JSONReportNoSubstitutions(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA)
	input := ws.WriteFile(t, "refs.bib", "nothing here\n")

	run := runCLI(t, ws, "--format", "json", input)
	require.NoError(t, run.err)
	assert.Contains(t, run.stdout, `"substitutions": []`)
	assert.Contains(t, run.stdout, `"total": 0`)
}

func TestAbbreviate_ConfigOutput(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "abbrevs.txt", physA)
	ws.WriteFile(t, ".bibabbrev.cue", "rules_file: \"abbrevs.txt\"\noutput: \"out/short.bib\"\n")
	ws.WriteFile(t, "out/.keep", "")
	input := ws.WriteFile(t, "refs.bib", "{Journal of Physics A: Mathematical and Theoretical}\n")

	run := runCLI(t, ws, input)
	require.NoError(t, run.err)
	assert.Equal(t, "{J. Phys. A}\n", ws.ReadFile(t, "out/short.bib"))
}

func TestAbbreviate_InvalidConfig(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA)
	ws.WriteFile(t, ".bibabbrev.cue", "unknown_setting: 1\n")
	input := ws.WriteFile(t, "refs.bib", "x\n")

	run := runCLI(t, ws, input)
	require.Error(t, run.err)
	assert.Equal(t, ExitCommandError, GetExitCode(run.err))
	assert.Contains(t, run.err.Error(), "invalid configuration")
	assert.False(t, ws.Exists("abbreviated.bib"))
}

func TestAbbreviate_ExplicitConfigMissing(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA)
	input := ws.WriteFile(t, "refs.bib", "x\n")

	run := runCLI(t, ws, "--config", ws.Path("absent.cue"), input)
	require.Error(t, run.err)
	assert.Equal(t, ErrCodeGeneric, ErrorCode(run.err))
	assert.Contains(t, run.err.Error(), "invalid configuration")
}

func TestAbbreviate_NonPositiveTimeout(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	offlineConfig(t, ws)
	input := ws.WriteFile(t, "refs.bib", "x\n")

	run := runCLI(t, ws, "--timeout", "0s", input)
	require.Error(t, run.err)
	assert.Contains(t, run.err.Error(), "--timeout must be positive")
}

func TestAbbreviate_VerboseLogsResolution(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteRules(t, "journalList.txt", physA)
	input := ws.WriteFile(t, "refs.bib", "x\n")

	run := runCLI(t, ws, "-v", input)
	require.NoError(t, run.err)
	assert.Contains(t, run.stderr, "level=DEBUG")
	assert.Contains(t, run.stderr, "rule table loaded")
	assert.Contains(t, run.stderr, "Rule table: ")
}
