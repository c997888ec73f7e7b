package crate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(content), 0o644))
}

func pkg(name, version string) string {
	return "[package]\nname = \"" + name + "\"\nversion = \"" + version + "\"\nlicense = \"MIT OR Apache-2.0\"\nrepository = \"https://github.com/x/" + name + "/\"\n"
}

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, pkg("foo", "1.2.3")+"description = \"  Foo  \"\n")

	k, err := FromDir(dir)
	require.NoError(t, err)
	require.Equal(t, "foo", k.Name())
	require.Equal(t, "1.2.3", k.Version().String())
	require.Equal(t, "MIT OR Apache-2.0", k.License())
	require.Equal(t, "Foo", k.Description())
	repo, ok := k.Repository()
	require.True(t, ok)
	require.Equal(t, "https://github.com/x/foo", repo)
	require.Equal(t, "foo v1.2.3", k.String())
}

func TestFromDirWorkspaceRoot(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[workspace]\nmembers = [\"a\"]\n")
	_, err := FromDir(dir)
	require.True(t, errors.Is(err, ErrNoPackage))
}

func TestCollectionScansNestedCrates(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "crates", "foo"), pkg("foo", "1.0.0"))
	writeManifest(t, filepath.Join(root, "crates", "bar"), pkg("bar", "0.4.0"))
	// Nested crates inside a recorded crate are not descended into.
	writeManifest(t, filepath.Join(root, "crates", "foo", "inner"), pkg("inner", "0.1.0"))
	writeManifest(t, filepath.Join(root, "crates", "bar", "target", "pkg"), pkg("junk", "0.1.0"))

	cc := NewCollection(root)
	require.NoError(t, cc.AddFrom("crates"))
	require.Equal(t, 2, cc.Len())

	var names []string
	for _, k := range cc.Crates() {
		names = append(names, k.Name())
	}
	require.Equal(t, []string{"bar", "foo"}, names)

	_, ok := cc.Get(NameAndVersion{Name: "foo", Version: "1.0.0"})
	require.True(t, ok)
}

func TestCollectionMissingDir(t *testing.T) {
	cc := NewCollection(t.TempDir())
	require.NoError(t, cc.AddFrom("does-not-exist"))
	require.Zero(t, cc.Len())
}

func TestCollectionSingle(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "v1"), pkg("foo", "1.9.0"))
	writeManifest(t, filepath.Join(root, "v2"), pkg("foo", "1.10.0"))

	cc := NewCollection(root)
	require.NoError(t, cc.AddFrom(root))

	versions := cc.VersionsOf("foo")
	require.Len(t, versions, 2)
	require.Equal(t, "1.9.0", versions[0].Version().String())
	require.Equal(t, "1.10.0", versions[1].Version().String())

	_, err := cc.Single("foo")
	require.ErrorIs(t, err, ErrAmbiguousVersion)
	_, err = cc.Single("bar")
	require.ErrorIs(t, err, ErrAmbiguousVersion)
}

func TestCollectionDuplicate(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "a"), pkg("foo", "1.0.0"))
	writeManifest(t, filepath.Join(root, "b"), pkg("foo", "1.0.0"))

	cc := NewCollection(root)
	require.Error(t, cc.AddFrom(root))
}

func TestNormalDependencyNames(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, pkg("foo", "1.0.0")+`
[dependencies]
serde = "1"
rand_core = { version = "0.6", package = "rand-core", optional = true }

[build-dependencies]
cc = "1.0"

[dev-dependencies]
criterion = "0.5"

[target.'cfg(unix)'.dependencies]
libc = "0.2"
serde = "1"
`)
	m, err := ReadManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	require.Equal(t, []string{"cc", "libc", "rand-core", "serde"}, m.NormalDependencyNames())

	reqs := m.Requirements()
	require.Equal(t, "1", reqs["serde"])
	require.Equal(t, "0.6", reqs["rand_core"])
}

func TestReadManifestReparsesRewrittenFile(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, pkg("foo", "1.0.0"))
	m, err := ReadManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	require.Equal(t, "1.0.0", m.Package.Version)

	writeManifest(t, dir, pkg("foo", "1.0.1"))
	m, err = ReadManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	require.Equal(t, "1.0.1", m.Package.Version)
}
