// Package crate describes discovered crate versions and scans directory trees
// for them.
package crate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cratehealth/internal/semver"
)

// ErrNoPackage is returned for manifests without a [package] table, such as
// workspace roots.
var ErrNoPackage = errors.New("manifest has no [package] section")

// NameAndVersion identifies a crate version.
type NameAndVersion struct {
	Name    string
	Version string
}

func (nv NameAndVersion) String() string {
	return nv.Name + " v" + nv.Version
}

// Crate is a read-only record of one crate version found on disk.
type Crate struct {
	name        string
	version     semver.Version
	path        string
	license     string
	licenseFile string
	repository  string
	description string
	manifest    Manifest
}

// FromDir reads dir/Cargo.toml and builds a crate record.
func FromDir(dir string) (*Crate, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	m, err := ReadManifest(filepath.Join(abs, ManifestFile))
	if err != nil {
		return nil, err
	}
	return fromManifest(abs, m)
}

func fromManifest(dir string, m Manifest) (*Crate, error) {
	if m.Package == nil || strings.TrimSpace(m.Package.Name) == "" {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoPackage)
	}
	version, err := semver.ParseVersion(strings.TrimSpace(m.Package.Version))
	if err != nil {
		return nil, fmt.Errorf("crate %s in %s: %w", m.Package.Name, dir, err)
	}
	return &Crate{
		name:        strings.TrimSpace(m.Package.Name),
		version:     version,
		path:        dir,
		license:     strings.TrimSpace(m.Package.License),
		licenseFile: strings.TrimSpace(m.Package.LicenseFile),
		repository:  strings.TrimRight(strings.TrimSpace(m.Package.Repository), "/"),
		description: strings.TrimSpace(m.Package.Description),
		manifest:    m,
	}, nil
}

func (c *Crate) Name() string { return c.name }
func (c *Crate) Version() semver.Version { return c.version }
func (c *Crate) Path() string { return c.path }
func (c *Crate) License() string { return c.license }
func (c *Crate) LicenseFile() string { return c.licenseFile }
func (c *Crate) Description() string { return c.description }
func (c *Crate) Manifest() Manifest { return c.manifest }
func (c *Crate) Key() NameAndVersion { return NameAndVersion{Name: c.name, Version: c.version.String()} }
func (c *Crate) String() string { return c.Key().String() }
func (c *Crate) Repository() (string, bool) { return c.repository, c.repository != "" }
