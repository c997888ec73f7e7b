// Package pseudocrate wraps the synthetic Cargo project used to ask cargo
// which versions it would select and to vendor their sources.
//
// The project moves between two states. A *PseudoCrate may have a manifest
// that no longer matches the vendored sources, so it only exposes mutations.
// Vendor returns a *Vendored, which is the only type with read operations on
// the resolution result. Mutating again requires going back through a
// *PseudoCrate, and the *Vendored obtained earlier must not be used for reads
// after that.
package pseudocrate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cratehealth/internal/crate"
	"cratehealth/internal/runner"
	"cratehealth/internal/semver"
)

const (
	// CrateListFile is the flat listing of managed crate names.
	CrateListFile = "crate-list.txt"
	// VendorDir is where `cargo vendor` materializes sources.
	VendorDir = "vendor"
)

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Options configures how the pseudo-crate drives cargo.
type Options struct {
	Runner runner.Runner
	// Cargo is the cargo executable. Defaults to "cargo".
	Cargo  string
	Logger Logger
}

// PseudoCrate is the pseudo-project in its dirty state.
type PseudoCrate struct {
	path   string
	runner runner.Runner
	cargo  string
	logger Logger
}

// Vendored is the pseudo-project immediately after a successful vendor run.
type Vendored struct {
	p *PseudoCrate
}

func New(path string, opts Options) *PseudoCrate {
	p := &PseudoCrate{path: path, runner: opts.Runner, cargo: opts.Cargo, logger: opts.Logger}
	if p.runner == nil {
		p.runner = runner.CmdRunner{}
	}
	if p.cargo == "" {
		p.cargo = "cargo"
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	return p
}

// Path returns the pseudo-crate directory.
func (p *PseudoCrate) Path() string { return p.path }

// ManifestPath returns the location of the pseudo-crate's Cargo.toml.
func (p *PseudoCrate) ManifestPath() string {
	return filepath.Join(p.path, crate.ManifestFile)
}

// AddPinned adds name at exactly version v.
func (p *PseudoCrate) AddPinned(ctx context.Context, name string, v semver.Version) error {
	return p.cargoRun(ctx, "add", name+"@"+v.Pinned())
}

// AddUnpinned adds name with the default caret requirement on v.
func (p *PseudoCrate) AddUnpinned(ctx context.Context, name string, v semver.Version) error {
	return p.cargoRun(ctx, "add", name+"@"+v.Unpinned())
}

// AddUnversioned adds name and lets cargo pick the version.
func (p *PseudoCrate) AddUnversioned(ctx context.Context, name string) error {
	return p.cargoRun(ctx, "add", name)
}

// Remove drops name from the manifest.
func (p *PseudoCrate) Remove(ctx context.Context, name string) error {
	return p.cargoRun(ctx, "remove", name)
}

// Vendor resolves the manifest and materializes all selected sources.
func (p *PseudoCrate) Vendor(ctx context.Context) (*Vendored, error) {
	if err := p.cargoRun(ctx, "vendor"); err != nil {
		return nil, err
	}
	return &Vendored{p: p}, nil
}

func (p *PseudoCrate) cargoRun(ctx context.Context, args ...string) error {
	p.logger.Printf("pseudocrate: %s", runner.CommandLine(p.cargo, args))
	out, err := p.runner.Run(ctx, p.cargo, args, runner.RunOptions{Dir: p.path})
	if err != nil {
		return err
	}
	if err := out.SuccessOrError(); err != nil {
		return fmt.Errorf("pseudo-crate: %w", err)
	}
	return nil
}

// Dirty returns the pseudo-project for further mutation. Reads through v are
// no longer trustworthy once the manifest changes.
func (v *Vendored) Dirty() *PseudoCrate {
	return v.p
}

// Remove drops name from the manifest and returns the now dirty project.
func (v *Vendored) Remove(ctx context.Context, name string) (*PseudoCrate, error) {
	if err := v.p.Remove(ctx, name); err != nil {
		return nil, err
	}
	return v.p, nil
}

// Path returns the pseudo-crate directory.
func (v *Vendored) Path() string { return v.p.path }

// Deps returns the direct dependencies recorded in the manifest mapped to
// their version requirement.
func (v *Vendored) Deps() (map[string]string, error) {
	m, err := crate.ReadManifest(v.p.ManifestPath())
	if err != nil {
		return nil, fmt.Errorf("read pseudo-crate manifest: %w", err)
	}
	return m.Requirements(), nil
}

// DepNames returns the sorted names of the manifest's direct dependencies.
func (v *Vendored) DepNames() ([]string, error) {
	deps, err := v.Deps()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// VendoredDirFor locates the materialized sources of name. cargo uses
// vendor/<name>, or vendor/<name>-<version> when several versions coexist.
func (v *Vendored) VendoredDirFor(name string) (string, error) {
	root := filepath.Join(v.p.path, VendorDir)
	direct := filepath.Join(root, name)
	if isCrateDir(direct, name) {
		return direct, nil
	}

	matches, err := filepath.Glob(filepath.Join(root, name+"-*"))
	if err != nil {
		return "", err
	}
	var found []string
	for _, m := range matches {
		if isCrateDir(m, name) {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no vendored sources for %s in %s: %w", name, root, fs.ErrNotExist)
	case 1:
		return found[0], nil
	default:
		sort.Strings(found)
		return "", fmt.Errorf("%s is vendored at %d versions: %s", name, len(found), strings.Join(found, ", "))
	}
}

// DepsOf returns the direct, non-dev dependencies of a vendored package that
// were themselves vendored. Optional dependencies that cargo did not activate
// are not vendored and so are not reported.
func (v *Vendored) DepsOf(name string) ([]string, error) {
	dir, err := v.VendoredDirFor(name)
	if err != nil {
		return nil, err
	}
	m, err := crate.ReadManifest(filepath.Join(dir, crate.ManifestFile))
	if err != nil {
		return nil, err
	}
	var deps []string
	for _, dep := range m.NormalDependencyNames() {
		if _, err := v.VendoredDirFor(dep); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// VendoredVersion reports the version cargo selected for name.
func (v *Vendored) VendoredVersion(name string) (semver.Version, error) {
	dir, err := v.VendoredDirFor(name)
	if err != nil {
		return semver.Version{}, err
	}
	krate, err := crate.FromDir(dir)
	if err != nil {
		return semver.Version{}, err
	}
	return krate.Version(), nil
}

// CrateListPath returns the location of the persisted crate list.
func (v *Vendored) CrateListPath() string {
	return filepath.Join(v.p.path, CrateListFile)
}

// ReadCrateList returns the names recorded in crate-list.txt, in file order.
func (v *Vendored) ReadCrateList() ([]string, error) {
	data, err := os.ReadFile(v.CrateListPath())
	if err != nil {
		return nil, fmt.Errorf("read crate list: %w", err)
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}

// RegenerateCrateList rewrites crate-list.txt from the manifest.
func (v *Vendored) RegenerateCrateList() error {
	names, err := v.DepNames()
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(v.CrateListPath(), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write crate list: %w", err)
	}
	return nil
}

func isCrateDir(dir, name string) bool {
	m, err := crate.ReadManifest(filepath.Join(dir, crate.ManifestFile))
	if err != nil || m.Package == nil {
		return false
	}
	return m.Package.Name == name
}
