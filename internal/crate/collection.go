package crate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cratehealth/internal/semver"
)

// ErrAmbiguousVersion is returned when a caller requires exactly one version
// of a crate and a scan found zero or several.
var ErrAmbiguousVersion = errors.New("expected exactly one crate version")

// skippedDirs are never descended into while scanning.
var skippedDirs = map[string]struct{}{
	".git":   {},
	"target": {},
}

// Collection indexes crates found under a root directory by name and version.
type Collection struct {
	root   string
	crates map[NameAndVersion]*Crate
}

// NewCollection creates an empty collection. Relative scan paths are resolved
// against root.
func NewCollection(root string) *Collection {
	return &Collection{root: root, crates: map[NameAndVersion]*Crate{}}
}

// AddFrom scans dir for crates. A directory whose Cargo.toml has a [package]
// table is recorded and not descended into further. A missing dir adds
// nothing.
func (c *Collection) AddFrom(dir string) error {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.root, dir)
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("scan %s: %w", dir, err)
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := skippedDirs[d.Name()]; skip && path != dir {
			return filepath.SkipDir
		}
		manifestPath := filepath.Join(path, ManifestFile)
		if _, err := os.Stat(manifestPath); err != nil {
			return nil
		}
		m, err := ReadManifest(manifestPath)
		if err != nil {
			return err
		}
		if m.Package == nil {
			return nil
		}
		krate, err := fromManifest(path, m)
		if err != nil {
			return err
		}
		if existing, ok := c.crates[krate.Key()]; ok {
			return fmt.Errorf("duplicate crate %s in %s and %s", krate.Key(), existing.Path(), krate.Path())
		}
		c.crates[krate.Key()] = krate
		return filepath.SkipDir
	})
}

func (c *Collection) Len() int {
	return len(c.crates)
}

// Get returns the crate recorded for nv.
func (c *Collection) Get(nv NameAndVersion) (*Crate, bool) {
	krate, ok := c.crates[nv]
	return krate, ok
}

// Crates returns all crates sorted by name, then version.
func (c *Collection) Crates() []*Crate {
	out := make([]*Crate, 0, len(c.crates))
	for _, krate := range c.crates {
		out = append(out, krate)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return semver.Compare(out[i].Version(), out[j].Version()) < 0
	})
	return out
}

// Names returns the distinct crate names in the collection.
func (c *Collection) Names() map[string]struct{} {
	names := make(map[string]struct{}, len(c.crates))
	for nv := range c.crates {
		names[nv.Name] = struct{}{}
	}
	return names
}

// VersionsOf returns every recorded crate with the given name.
func (c *Collection) VersionsOf(name string) []*Crate {
	var out []*Crate
	for _, krate := range c.Crates() {
		if krate.Name() == name {
			out = append(out, krate)
		}
	}
	return out
}

// Single returns the only version of name, failing with ErrAmbiguousVersion
// when zero or several versions were found.
func (c *Collection) Single(name string) (*Crate, error) {
	versions := c.VersionsOf(name)
	if len(versions) != 1 {
		return nil, fmt.Errorf("%w: found %d versions of %s", ErrAmbiguousVersion, len(versions), name)
	}
	return versions[0], nil
}
