package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Workspace is a throwaway working directory holding an input
// bibliography, an optional rule table and the output file.
type Workspace struct {
	Dir string
}

// NewWorkspace creates an empty workspace under t.TempDir().
func NewWorkspace(t testing.TB) *Workspace {
	t.Helper()
	return &Workspace{Dir: t.TempDir()}
}

// Path returns name anchored at the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// WriteFile writes content to name and returns the full path.
func (w *Workspace) WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := w.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteRules writes one rule per line to name and returns the full path.
func (w *Workspace) WriteRules(t testing.TB, name string, lines ...string) string {
	t.Helper()
	return w.WriteFile(t, name, RuleTable(lines...))
}

// ReadFile returns the content of name, failing the test if it is missing.
func (w *Workspace) ReadFile(t testing.TB, name string) string {
	t.Helper()
	data, err := os.ReadFile(w.Path(name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// Exists reports whether name exists in the workspace.
func (w *Workspace) Exists(name string) bool {
	_, err := os.Stat(w.Path(name))
	return err == nil
}

// RuleTable joins lines into rule-table text with a trailing newline.
func RuleTable(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
