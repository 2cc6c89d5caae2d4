package rules

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultLocalName is the preferred rule-table file name.
	DefaultLocalName = "journalList.txt"

	// DefaultRemoteURL serves the JabRef journal abbreviation list.
	DefaultRemoteURL = "https://raw.githubusercontent.com/JabRef/jabref/master/src/main/resources/journals/" + DefaultLocalName

	// DefaultFetchTimeout bounds the one-shot remote fetch.
	DefaultFetchTimeout = 30 * time.Second
)

// Source records where a resolved rule table came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceLocal    Source = "local"
	SourceBundled  Source = "bundled"
	SourceRemote   Source = "remote"
)

// Locations lists the candidate rule-table locations, in lookup order.
type Locations struct {
	// WorkDir anchors LocalName when it is relative.
	WorkDir string

	// LocalName is the user-overridable table, and the cache target for
	// a remote fetch.
	LocalName string

	// BundledPath is a copy shipped alongside the binary. Empty disables it.
	BundledPath string

	// RemoteURL is fetched when neither file exists. Empty disables it.
	RemoteURL string
}

// DefaultLocations returns the standard lookup for workDir: the default
// local name, a bundled copy next to the running executable, and the
// JabRef URL.
func DefaultLocations(workDir string) Locations {
	loc := Locations{
		WorkDir:   workDir,
		LocalName: DefaultLocalName,
		RemoteURL: DefaultRemoteURL,
	}
	if exe, err := os.Executable(); err == nil {
		loc.BundledPath = BundledPathFor(exe)
	}
	return loc
}

// BundledPathFor returns the bundled table path for an executable,
// following symlinks so an installed link finds the real install dir.
func BundledPathFor(exe string) string {
	if real, err := filepath.EvalSymlinks(exe); err == nil {
		exe = real
	}
	return filepath.Join(filepath.Dir(exe), DefaultLocalName)
}

// LocalPath returns LocalName anchored at WorkDir.
func (l Locations) LocalPath() string {
	if filepath.IsAbs(l.LocalName) || l.WorkDir == "" {
		return l.LocalName
	}
	return filepath.Join(l.WorkDir, l.LocalName)
}

// Resolution describes the table chosen by Resolve.
type Resolution struct {
	Path   string
	Source Source

	// Fetched is the number of bytes downloaded (SourceRemote only).
	Fetched int64
}

// Resolver finds a rule table, fetching and caching it when required.
type Resolver struct {
	Locations Locations
	Client    *http.Client
	Logger    *slog.Logger
}

// NewResolver creates a resolver whose HTTP client gives up after timeout.
// A non-positive timeout uses DefaultFetchTimeout.
func NewResolver(loc Locations, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Resolver{
		Locations: loc,
		Client:    &http.Client{Timeout: timeout},
		Logger:    slog.Default(),
	}
}

// Resolve returns the path of the rule table to use.
//
// The local file wins over the bundled one; the remote URL is only
// contacted when both are missing. A failed fetch is an *UnavailableError.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	loc := r.Locations

	if local := loc.LocalPath(); local != "" && isFile(local) {
		r.logger().Debug("using local rule table", "path", local)
		return Resolution{Path: local, Source: SourceLocal}, nil
	}

	if loc.BundledPath != "" && isFile(loc.BundledPath) {
		r.logger().Debug("using bundled rule table", "path", loc.BundledPath)
		return Resolution{Path: loc.BundledPath, Source: SourceBundled}, nil
	}

	if loc.RemoteURL == "" {
		return Resolution{}, &UnavailableError{
			Location: loc.LocalPath(),
			Err:      fmt.Errorf("no local or bundled table and no remote URL configured"),
		}
	}

	dest := loc.LocalPath()
	r.logger().Info("fetching rule table", "url", loc.RemoteURL, "dest", dest)
	n, err := r.fetch(ctx, loc.RemoteURL, dest)
	if err != nil {
		return Resolution{}, &UnavailableError{Location: loc.RemoteURL, Err: err}
	}
	r.logger().Info("rule table fetched", "url", loc.RemoteURL, "size", humanize.Bytes(uint64(n)))

	return Resolution{Path: dest, Source: SourceRemote, Fetched: n}, nil
}

// ResolveExplicit checks a user-supplied table path.
func ResolveExplicit(path string) (Resolution, error) {
	if !isFile(path) {
		return Resolution{}, &UnavailableError{Location: path, Err: fmt.Errorf("no such file")}
	}
	return Resolution{Path: path, Source: SourceExplicit}, nil
}

// fetch downloads url into dest via a temp file in the same directory,
// so a failed transfer never leaves a partial cache behind.
func (r *Resolver) fetch(ctx context.Context, url, dest string) (int64, error) {
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".rules-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to download: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to set cache file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, fmt.Errorf("failed to store cache file: %w", err)
	}

	return n, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
