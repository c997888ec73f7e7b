package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file kept at the top of the managed repo.
const FileName = "crate_health.yaml"

const (
	DefaultManagedRepo        = "external/rust/android-crates-io"
	DefaultLegacyDir          = "external/rust/crates"
	DefaultIgnoredLinePattern = `default_team: "trendy_team_android_rust"`
	DefaultLicenseURLTemplate = "{repository}/{branch}/LICENSE-APACHE"
	DefaultLicenseBranch      = "master"
)

// Config captures repository layout and migration policy.
type Config struct {
	Version int `yaml:"version"`
	// ManagedRepo and LegacyDir are relative to the tree root.
	ManagedRepo string `yaml:"managed_repo"`
	LegacyDir   string `yaml:"legacy_dir"`
	// MigrationDenylist names crates that must never be migrated.
	MigrationDenylist []string `yaml:"migration_denylist"`
	// DenylistFiles are YAML lists of crate names merged into the denylist.
	DenylistFiles []string `yaml:"denylist_files,omitempty"`
	// Unpinned names crates registered with an open version requirement.
	Unpinned           []string              `yaml:"unpinned"`
	ExtraIgnoredFiles  []string              `yaml:"extra_ignored_files"`
	IgnoredLinePattern string                `yaml:"ignored_line_pattern"`
	Tools              ToolsConfig           `yaml:"tools"`
	LicenseFallback    LicenseFallbackConfig `yaml:"license_fallback"`
	MetricsTextfile    string                `yaml:"metrics_textfile,omitempty"`
}

// ToolsConfig overrides the executables invoked for each external tool.
type ToolsConfig struct {
	Cargo        string `yaml:"cargo"`
	CargoEmbargo string `yaml:"cargo_embargo"`
	Patch        string `yaml:"patch"`
}

// LicenseFallbackConfig controls fetching a missing LICENSE-APACHE from the
// crate's upstream repository during import.
type LicenseFallbackConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	// URLTemplate may reference {repository} and {branch}.
	URLTemplate string `yaml:"url_template"`
	Branch      string `yaml:"branch"`
}

// EnabledValue returns the effective enabled flag applying defaults.
func (l LicenseFallbackConfig) EnabledValue() bool {
	if l.Enabled == nil {
		return true
	}
	return *l.Enabled
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:            1,
		ManagedRepo:        DefaultManagedRepo,
		LegacyDir:          DefaultLegacyDir,
		IgnoredLinePattern: DefaultIgnoredLinePattern,
		Tools: ToolsConfig{
			Cargo:        "cargo",
			CargoEmbargo: "cargo_embargo",
			Patch:        "patch",
		},
		LicenseFallback: LicenseFallbackConfig{
			Enabled:     boolPtr(true),
			URLTemplate: DefaultLicenseURLTemplate,
			Branch:      DefaultLicenseBranch,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to defaults when the YAML omits or
// blanks them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if strings.TrimSpace(c.ManagedRepo) == "" {
		c.ManagedRepo = defaults.ManagedRepo
	}
	if strings.TrimSpace(c.LegacyDir) == "" {
		c.LegacyDir = defaults.LegacyDir
	}
	if c.IgnoredLinePattern == "" {
		c.IgnoredLinePattern = defaults.IgnoredLinePattern
	}
	if c.Tools.Cargo == "" {
		c.Tools.Cargo = defaults.Tools.Cargo
	}
	if c.Tools.CargoEmbargo == "" {
		c.Tools.CargoEmbargo = defaults.Tools.CargoEmbargo
	}
	if c.Tools.Patch == "" {
		c.Tools.Patch = defaults.Tools.Patch
	}
	if c.LicenseFallback.Enabled == nil {
		c.LicenseFallback.Enabled = boolPtr(true)
	}
	if c.LicenseFallback.URLTemplate == "" {
		c.LicenseFallback.URLTemplate = defaults.LicenseFallback.URLTemplate
	}
	if c.LicenseFallback.Branch == "" {
		c.LicenseFallback.Branch = defaults.LicenseFallback.Branch
	}
}

// IsMigrationDenied reports whether name is on the denylist.
func (c Config) IsMigrationDenied(name string) bool {
	return contains(c.MigrationDenylist, name)
}

// IsUnpinned reports whether name should be registered without pinning.
func (c Config) IsUnpinned(name string) bool {
	return contains(c.Unpinned, name)
}

// UnpinnedSet returns Unpinned as a set.
func (c Config) UnpinnedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Unpinned))
	for _, name := range c.Unpinned {
		set[name] = struct{}{}
	}
	return set
}

// IgnoredLineRegexp compiles IgnoredLinePattern. The pattern is matched
// literally unless it is wrapped in slashes, e.g. /^\s*owner:/.
func (c Config) IgnoredLineRegexp() (*regexp.Regexp, error) {
	pattern := c.IgnoredLinePattern
	if pattern == "" {
		return nil, nil
	}
	if len(pattern) > 1 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		return regexp.Compile(pattern[1 : len(pattern)-1])
	}
	return regexp.Compile(regexp.QuoteMeta(pattern))
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func boolPtr(v bool) *bool {
	return &v
}
