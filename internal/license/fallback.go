package license

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cratehealth/internal/treediff"
)

// Target is what a fallback needs to know about the crate being imported.
type Target struct {
	Name       string
	Dir        string
	Repository string
}

// Fallback tries to supply a license file the crate does not distribute.
// It reports whether it wrote anything.
type Fallback interface {
	Resolve(ctx context.Context, t Target, st State) (bool, error)
}

// Disabled never resolves anything.
type Disabled struct{}

func (Disabled) Resolve(context.Context, Target, State) (bool, error) { return false, nil }

// ApacheFallback handles crates published from a multi-crate GitHub
// repository whose LICENSE-APACHE only lives at the repository root. When
// Apache-2.0 is the only unsatisfied requirement, it downloads that file to
// LICENSE and records a patch that adds it.
type ApacheFallback struct {
	Client *http.Client
	// Branch is the branch the license is fetched from. Defaults to "master".
	Branch string
	// URLTemplate expands {repository} and {branch}. Defaults to
	// DefaultURLTemplate.
	URLTemplate string
}

// DefaultURLTemplate points at the repository root's LICENSE-APACHE.
const DefaultURLTemplate = "{repository}/{branch}/LICENSE-APACHE"

func (f ApacheFallback) Resolve(ctx context.Context, t Target, st State) (bool, error) {
	if len(st.Unsatisfied) != 1 || st.Unsatisfied[0] != "Apache-2.0" || t.Repository == "" {
		return false, nil
	}
	url := f.rawURL(t.Repository)
	body, err := f.fetch(ctx, url)
	if err != nil {
		return false, err
	}

	if err := os.WriteFile(filepath.Join(t.Dir, "LICENSE"), body, 0o644); err != nil {
		return false, fmt.Errorf("write LICENSE: %w", err)
	}
	patchDir := filepath.Join(t.Dir, "patches")
	if err := os.MkdirAll(patchDir, 0o755); err != nil {
		return false, err
	}
	patch := treediff.Added("b/LICENSE", body)
	if err := os.WriteFile(filepath.Join(patchDir, "LICENSE.patch"), []byte(patch), 0o644); err != nil {
		return false, fmt.Errorf("write LICENSE.patch: %w", err)
	}
	return true, nil
}

func (f ApacheFallback) rawURL(repository string) string {
	branch := f.Branch
	if branch == "" {
		branch = "master"
	}
	tmpl := f.URLTemplate
	if tmpl == "" {
		tmpl = DefaultURLTemplate
	}
	repository = strings.Replace(strings.TrimRight(repository, "/"), "github.com", "raw.githubusercontent.com", 1)
	return strings.NewReplacer("{repository}", repository, "{branch}", branch).Replace(tmpl)
}

func (f ApacheFallback) fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
