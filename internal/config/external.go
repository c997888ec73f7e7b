package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// resolveExternalPath returns path as-is if absolute, otherwise joins it with baseDir.
func resolveExternalPath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadDenylistFiles reads each file in DenylistFiles, a YAML list of crate
// names, and merges it into MigrationDenylist. A name listed twice is an
// error so that stale entries are noticed.
func (c *Config) LoadDenylistFiles(baseDir string) error {
	if len(c.DenylistFiles) == 0 {
		return nil
	}

	// Track where each name was listed for duplicate detection.
	sources := make(map[string]string, len(c.MigrationDenylist))
	for _, name := range c.MigrationDenylist {
		sources[name] = "inline config"
	}

	for _, relPath := range c.DenylistFiles {
		absPath := resolveExternalPath(baseDir, relPath)
		data, err := os.ReadFile(absPath)
		if err != nil {
			return fmt.Errorf("load denylist file %q: %w", relPath, err)
		}

		var names []string
		if err := yaml.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("parse denylist file %q: %w", relPath, err)
		}

		for _, name := range names {
			if existing, ok := sources[name]; ok {
				return fmt.Errorf("crate %q denylisted in both %s and %q", name, existing, relPath)
			}
			sources[name] = relPath
			c.MigrationDenylist = append(c.MigrationDenylist, name)
		}
	}

	return nil
}
