// Package managedcrate stages a single crate for inspection: vendored sources
// overlaid with the crate's Android customizations, stored patches applied,
// and build metadata regenerated next to the checked-in copy.
package managedcrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar"

	"cratehealth/internal/buildgen"
	"cratehealth/internal/crate"
	"cratehealth/internal/fsutil"
	"cratehealth/internal/pseudocrate"
	"cratehealth/internal/runner"
)

var (
	ErrPatchFailure     = errors.New("patches did not apply")
	ErrGeneratorFailure = errors.New("cargo_embargo failed")
	ErrDriftDetected    = errors.New("staged crate differs from checked-in crate")
	ErrLegacyCrate      = errors.New("operation not supported for a legacy crate")
)

// Customizations are the top-level entries of a crate directory that are
// ours rather than upstream's. They are carried over onto vendored sources.
var Customizations = []string{
	"Android.bp",
	"*.bp",
	"*.bp.fragment",
	"Android.mk",
	"cargo_embargo.json",
	"cargo2rulesmk.json",
	"rules.mk",
	"patches",
	"android",
	"METADATA",
	"TEST_MAPPING",
	"MODULE_LICENSE_*",
	"NOTICE",
	"OWNERS",
}

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

type Options struct {
	Generator buildgen.Generator
	// Runner runs patch. Defaults to runner.CmdRunner.
	Runner runner.Runner
	// PatchCommand defaults to "patch".
	PatchCommand string
	// TempDir is the parent of staging directories. Defaults to os.TempDir.
	TempDir string
	Logger  Logger
}

// ManagedCrate is a crate that has not been staged yet.
type ManagedCrate struct {
	krate  *crate.Crate
	opts   Options
	legacy bool
}

func New(k *crate.Crate, opts Options) *ManagedCrate {
	if opts.Generator == nil {
		opts.Generator = buildgen.CargoEmbargo{Runner: opts.Runner}
	}
	if opts.Runner == nil {
		opts.Runner = runner.CmdRunner{}
	}
	if opts.PatchCommand == "" {
		opts.PatchCommand = "patch"
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &ManagedCrate{krate: k, opts: opts}
}

// AsLegacy marks the crate as living in the legacy vendoring area. Legacy
// crates can be staged but never written back.
func (m *ManagedCrate) AsLegacy() *ManagedCrate {
	c := *m
	c.legacy = true
	return &c
}

func (m *ManagedCrate) Crate() *crate.Crate { return m.krate }
func (m *ManagedCrate) IsLegacy() bool      { return m.legacy }

// AndroidBP is the checked-in build file location.
func (m *ManagedCrate) AndroidBP() string {
	return filepath.Join(m.krate.Path(), buildgen.BuildFile)
}

// CargoEmbargoJSON is the checked-in generator config location.
func (m *ManagedCrate) CargoEmbargoJSON() string {
	return filepath.Join(m.krate.Path(), buildgen.ConfigFile)
}

func (m *ManagedCrate) PatchDir() string {
	return filepath.Join(m.krate.Path(), "patches")
}

// StageStandalone copies the crate as-is and regenerates its build file,
// checking reproducibility without any vendored reference.
func (m *ManagedCrate) StageStandalone(ctx context.Context) (*Staged, error) {
	s, err := m.newStaged()
	if err != nil {
		return nil, err
	}
	if err := fsutil.CopyDir(m.krate.Path(), s.stagingPath); err != nil {
		s.Close()
		return nil, err
	}
	s.patchSuccess = true
	if err := m.finish(ctx, s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Stage builds a working copy from the vendored sources in v, overlays the
// crate's customizations, applies its patches and regenerates the build file.
func (m *ManagedCrate) Stage(ctx context.Context, v *pseudocrate.Vendored) (*Staged, error) {
	vendoredDir, err := v.VendoredDirFor(m.krate.Name())
	if err != nil {
		return nil, err
	}
	s, err := m.newStaged()
	if err != nil {
		return nil, err
	}
	if err := m.stageFrom(ctx, s, vendoredDir); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (m *ManagedCrate) stageFrom(ctx context.Context, s *Staged, vendoredDir string) error {
	m.opts.Logger.Printf("managedcrate: staging %s from %s in %s", m.krate, vendoredDir, s.stagingPath)
	if err := fsutil.CopyDir(vendoredDir, s.stagingPath); err != nil {
		return err
	}
	if err := m.copyCustomizations(s.stagingPath); err != nil {
		return err
	}
	if err := m.applyPatches(ctx, s); err != nil {
		return err
	}
	return m.finish(ctx, s)
}

func (m *ManagedCrate) newStaged() (*Staged, error) {
	tmp, err := os.MkdirTemp(m.opts.TempDir, "crate-health-"+m.krate.Name()+"-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Staged{
		mc:          m,
		tmp:         tmp,
		stagingPath: filepath.Join(tmp, m.krate.Name()),
	}, nil
}

func (m *ManagedCrate) copyCustomizations(dst string) error {
	entries, err := os.ReadDir(m.krate.Path())
	if err != nil {
		return fmt.Errorf("list %s: %w", m.krate.Path(), err)
	}
	for _, e := range entries {
		src := filepath.Join(m.krate.Path(), e.Name())
		target := filepath.Join(dst, e.Name())
		switch {
		case isCustomization(e.Name()):
			if e.IsDir() {
				if err := os.RemoveAll(target); err != nil {
					return err
				}
				if err := fsutil.CopyDir(src, target); err != nil {
					return err
				}
				continue
			}
			if err := fsutil.CopyEntry(src, target, e); err != nil {
				return err
			}
		case e.Name() == "LICENSE" && fsutil.IsSymlink(src):
			if err := fsutil.CopySymlink(src, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func isCustomization(name string) bool {
	for _, pattern := range Customizations {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// finish runs the generator in the staging directory and records the build
// file diff and vendored version.
func (m *ManagedCrate) finish(ctx context.Context, s *Staged) error {
	original, originalErr := os.ReadFile(m.AndroidBP())
	if originalErr != nil && !errors.Is(originalErr, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", m.AndroidBP(), originalErr)
	}

	out, err := m.opts.Generator.Generate(ctx, s.stagingPath)
	if err != nil {
		return fmt.Errorf("%s: %w", m.krate, err)
	}
	s.generatorOutput = out
	if !out.Success() {
		m.opts.Logger.Printf("managedcrate: %s: %v", m.krate, out.SuccessOrError())
	}

	generated, err := os.ReadFile(filepath.Join(s.stagingPath, buildgen.BuildFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.buildFile = compareBuildFiles(original, originalErr == nil, generated, err == nil)

	staged, err := crate.FromDir(s.stagingPath)
	if err != nil {
		return fmt.Errorf("read staged crate: %w", err)
	}
	s.vendoredVersion = staged.Version()
	return nil
}
