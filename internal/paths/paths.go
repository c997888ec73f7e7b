package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cratehealth/internal/config"
)

// RootEnv overrides the working directory as the default tree root.
const RootEnv = "CRATE_HEALTH_ROOT"

// RepoPaths captures canonical locations inside a source tree.
type RepoPaths struct {
	Root string
	// ManagedRepoRel is ManagedRepo relative to Root.
	ManagedRepoRel string
	ManagedRepo    string
	ManagedDir     string
	PseudoCrate    string
	LegacyDir      string
	ConfigFile     string
	LogsDir        string
}

// Resolve determines the tree root using the optional --root flag, then
// $CRATE_HEALTH_ROOT, then the current working directory.
func Resolve(rootFlag string) (RepoPaths, error) {
	var (
		root string
		err  error
	)

	switch {
	case rootFlag != "":
		root, err = filepath.Abs(rootFlag)
	case strings.TrimSpace(os.Getenv(RootEnv)) != "":
		root, err = filepath.Abs(strings.TrimSpace(os.Getenv(RootEnv)))
	default:
		root, err = os.Getwd()
	}
	if err != nil {
		return RepoPaths{}, fmt.Errorf("resolve tree root: %w", err)
	}

	return newRepoPaths(root), nil
}

func newRepoPaths(root string) RepoPaths {
	pp := RepoPaths{
		Root:    root,
		LogsDir: filepath.Join(root, "out", "crate_health", "logs"),
	}
	pp = withManagedRepo(pp, config.DefaultManagedRepo)
	pp.LegacyDir = filepath.Join(root, config.DefaultLegacyDir)
	pp.ConfigFile = filepath.Join(pp.ManagedRepo, config.FileName)
	return pp
}

func withManagedRepo(pp RepoPaths, rel string) RepoPaths {
	pp.ManagedRepoRel = filepath.ToSlash(filepath.Clean(rel))
	pp.ManagedRepo = filepath.Join(pp.Root, rel)
	pp.ManagedDir = filepath.Join(pp.ManagedRepo, "crates")
	pp.PseudoCrate = filepath.Join(pp.ManagedRepo, "pseudo_crate")
	return pp
}

// ApplyConfig relocates the managed repo and legacy dir per cfg. The config
// file location itself is left unchanged.
func ApplyConfig(pp RepoPaths, cfg config.Config) RepoPaths {
	if repo := strings.TrimSpace(cfg.ManagedRepo); repo != "" {
		pp = withManagedRepo(pp, repo)
	}
	if legacy := strings.TrimSpace(cfg.LegacyDir); legacy != "" {
		pp.LegacyDir = resolveRootPath(pp.Root, legacy)
	}
	return pp
}

// ManagedDirFor returns the managed location of a crate.
func (p RepoPaths) ManagedDirFor(name string) string {
	return filepath.Join(p.ManagedDir, name)
}

// LegacyDirFor returns the legacy location of a crate.
func (p RepoPaths) LegacyDirFor(name string) string {
	return filepath.Join(p.LegacyDir, name)
}

// Rel returns path relative to Root for display, or path unchanged when it
// is outside the tree.
func (p RepoPaths) Rel(path string) string {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func resolveRootPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureLogsDir creates the logs directory.
func (p RepoPaths) EnsureLogsDir() error {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return fmt.Errorf("create logs directory: %w", err)
	}
	return nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
