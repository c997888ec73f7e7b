package crate

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ManifestFile is the name of a crate's build manifest.
const ManifestFile = "Cargo.toml"

// Manifest is the subset of Cargo.toml the migration workflow reads.
type Manifest struct {
	Package           *PackageSection          `toml:"package"`
	Dependencies      map[string]any           `toml:"dependencies"`
	BuildDependencies map[string]any           `toml:"build-dependencies"`
	DevDependencies   map[string]any           `toml:"dev-dependencies"`
	Target            map[string]TargetSection `toml:"target"`
}

type PackageSection struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	License     string `toml:"license"`
	LicenseFile string `toml:"license-file"`
	Repository  string `toml:"repository"`
	Description string `toml:"description"`
}

type TargetSection struct {
	Dependencies      map[string]any `toml:"dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

// Dependency is one entry of a dependency table. Name is the package name
// after resolving `package = "..."` renames.
type Dependency struct {
	Key         string
	Name        string
	Requirement string
	Optional    bool
}

var manifestCache, _ = lru.New[[sha256.Size]byte, Manifest](512)

// ReadManifest parses the Cargo.toml at path. Parsed manifests are cached by
// content digest, so rewritten files are always re-parsed.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	key := sha256.Sum256(data)
	if m, ok := manifestCache.Get(key); ok {
		return m, nil
	}

	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return Manifest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	manifestCache.Add(key, m)
	return m, nil
}

// ParseDependencies interprets a [dependencies]-style table. Values may be a
// bare requirement string or an inline table.
func ParseDependencies(table map[string]any) []Dependency {
	deps := make([]Dependency, 0, len(table))
	for key, raw := range table {
		dep := Dependency{Key: key, Name: key}
		switch v := raw.(type) {
		case string:
			dep.Requirement = v
		case map[string]any:
			if s, ok := v["version"].(string); ok {
				dep.Requirement = s
			}
			if s, ok := v["package"].(string); ok && s != "" {
				dep.Name = s
			}
			if b, ok := v["optional"].(bool); ok {
				dep.Optional = b
			}
		}
		deps = append(deps, dep)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Key < deps[j].Key })
	return deps
}

// NormalDependencyNames returns the sorted, de-duplicated package names of
// all non-dev dependencies, including target-specific ones.
func (m Manifest) NormalDependencyNames() []string {
	tables := []map[string]any{m.Dependencies, m.BuildDependencies}
	for _, target := range m.Target {
		tables = append(tables, target.Dependencies, target.BuildDependencies)
	}

	seen := map[string]struct{}{}
	for _, table := range tables {
		for _, dep := range ParseDependencies(table) {
			seen[dep.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Requirements maps each direct dependency key to its requirement string.
func (m Manifest) Requirements() map[string]string {
	out := make(map[string]string, len(m.Dependencies))
	for _, dep := range ParseDependencies(m.Dependencies) {
		out[dep.Key] = strings.TrimSpace(dep.Requirement)
	}
	return out
}
