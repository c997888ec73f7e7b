package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate runs all validations against the config and returns structured
// results. root is the tree root the relative directories resolve against.
func (c Config) Validate(root string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateDirs(root)...)
	results = append(results, c.validateCrateLists()...)
	results = append(results, c.validatePatterns()...)
	results = append(results, c.validateLicenseFallback()...)
	results = append(results, c.validateMetricsTextfile(root)...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateDirs(root string) []ValidationResult {
	var results []ValidationResult
	for _, dir := range []struct{ key, value string }{
		{"managed_repo", c.ManagedRepo},
		{"legacy_dir", c.LegacyDir},
	} {
		if filepath.IsAbs(dir.value) {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("%s %q must be relative to the tree root", dir.key, dir.value),
			})
			continue
		}
		if strings.HasPrefix(filepath.Clean(dir.value), "..") {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("%s %q points outside the tree root", dir.key, dir.value),
			})
			continue
		}
		if _, err := os.Stat(filepath.Join(root, dir.value)); err != nil {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("%s %q does not exist", dir.key, dir.value),
			})
		}
	}
	return results
}

func (c Config) validateCrateLists() []ValidationResult {
	var results []ValidationResult
	for _, list := range []struct {
		key   string
		names []string
	}{
		{"migration_denylist", c.MigrationDenylist},
		{"unpinned", c.Unpinned},
	} {
		for _, name := range duplicates(list.names) {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("%s lists %q more than once", list.key, name),
			})
		}
	}

	var both []string
	for _, name := range c.Unpinned {
		if c.IsMigrationDenied(name) {
			both = append(both, name)
		}
	}
	sort.Strings(both)
	for _, name := range both {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("crate %q is both unpinned and on the migration denylist", name),
		})
	}
	return results
}

func (c Config) validatePatterns() []ValidationResult {
	var results []ValidationResult
	for _, pattern := range c.ExtraIgnoredFiles {
		if _, err := doublestar.Match(pattern, ""); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("extra_ignored_files pattern %q is invalid: %v", pattern, err),
			})
		}
	}
	if _, err := c.IgnoredLineRegexp(); err != nil {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("ignored_line_pattern is invalid: %v", err),
		})
	}
	return results
}

func (c Config) validateLicenseFallback() []ValidationResult {
	if !c.LicenseFallback.EnabledValue() {
		return nil
	}
	if !strings.Contains(c.LicenseFallback.URLTemplate, "{repository}") {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("license_fallback.url_template %q must reference {repository}", c.LicenseFallback.URLTemplate),
		}}
	}
	return nil
}

func (c Config) validateMetricsTextfile(root string) []ValidationResult {
	path := strings.TrimSpace(c.MetricsTextfile)
	if path == "" {
		return nil
	}
	if !strings.HasSuffix(path, ".prom") {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("metrics_textfile %q should end in .prom to be collected", path),
		}}
	}
	dir := filepath.Dir(resolveExternalPath(root, path))
	if _, err := os.Stat(dir); err != nil {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("metrics_textfile directory %q does not exist", dir),
		}}
	}
	return nil
}

func duplicates(names []string) []string {
	seen := map[string]int{}
	for _, name := range names {
		seen[name]++
	}
	var dup []string
	for name, n := range seen {
		if n > 1 {
			dup = append(dup, name)
		}
	}
	sort.Strings(dup)
	return dup
}
