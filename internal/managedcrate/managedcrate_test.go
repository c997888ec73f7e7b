package managedcrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cratehealth/internal/buildgen"
	"cratehealth/internal/crate"
	"cratehealth/internal/cratetest"
	"cratehealth/internal/metadata"
	"cratehealth/internal/pseudocrate"
	"cratehealth/internal/runner"
	"cratehealth/internal/semver"
)

const androidBP = "rust_library {\n    name: \"libfoo\",\n}\n"

type fixture struct {
	root     string
	crateDir string
	runner   *cratetest.Runner
	vendored *pseudocrate.Vendored
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	foo := cratetest.Package{
		Name:    "foo",
		Version: "1.2.3",
		License: "MIT",
		Files:   map[string]string{"src/lib.rs": "pub fn foo() {}\n"},
	}
	r := &cratetest.Runner{Registry: cratetest.NewRegistry(foo)}

	crateDir := filepath.Join(root, "crates", "foo")
	require.NoError(t, foo.WriteTo(crateDir))
	writeFile(t, crateDir, "Android.bp", androidBP)
	writeFile(t, crateDir, "cargo_embargo.json", "{}\n")
	writeFile(t, crateDir, "patches/0002-second.patch", "second\n")
	writeFile(t, crateDir, "patches/0001-first.patch", "first\n")

	pseudoDir := filepath.Join(root, "pseudo_crate")
	require.NoError(t, cratetest.WritePseudoCrate(pseudoDir))
	pc := pseudocrate.New(pseudoDir, pseudocrate.Options{Runner: r})
	ctx := context.Background()
	require.NoError(t, pc.AddPinned(ctx, "foo", semver.MustParseVersion("1.2.3")))
	v, err := pc.Vendor(ctx)
	require.NoError(t, err)

	return &fixture{root: root, crateDir: crateDir, runner: r, vendored: v}
}

func (f *fixture) managed(t *testing.T) *ManagedCrate {
	t.Helper()
	k, err := crate.FromDir(f.crateDir)
	require.NoError(t, err)
	return New(k, Options{
		Generator: buildgen.CargoEmbargo{Runner: f.runner},
		Runner:    f.runner,
		TempDir:   t.TempDir(),
	})
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStageOverlaysCustomizationsAndAppliesPatchesInOrder(t *testing.T) {
	f := newFixture(t)
	s, err := f.managed(t).Stage(context.Background(), f.vendored)
	require.NoError(t, err)
	defer s.Close()

	for _, name := range []string{"Android.bp", "cargo_embargo.json", "patches/0001-first.patch", "src/lib.rs", ".cargo-checksum.json"} {
		_, err := os.Stat(filepath.Join(s.StagingPath(), name))
		require.NoError(t, err, name)
	}

	patches := f.runner.CallsTo("patch")
	require.Len(t, patches, 2)
	require.True(t, strings.HasSuffix(patches[0], "0001-first.patch"), patches[0])
	require.True(t, strings.HasSuffix(patches[1], "0002-second.patch"), patches[1])

	require.True(t, s.PatchSuccess())
	require.True(t, s.CargoEmbargoSuccess())
	require.True(t, s.AndroidBPUnchanged())
	require.Equal(t, "1.2.3", s.VendoredVersion().String())
	require.Equal(t, "1.2.3", s.AndroidVersion().String())
	require.NoError(t, s.CheckStaged())
}

func TestStageCollectsEveryFailedPatch(t *testing.T) {
	f := newFixture(t)
	f.runner.FailingPatches = map[string]bool{"0001-first.patch": true}

	s, err := f.managed(t).Stage(context.Background(), f.vendored)
	require.NoError(t, err)
	defer s.Close()

	require.False(t, s.PatchSuccess())
	require.Len(t, s.PatchOutput(), 2)
	failed := s.FailedPatches()
	require.Len(t, failed, 1)
	require.Equal(t, "0001-first.patch", failed[0].Patch)
	require.ErrorIs(t, s.CheckStaged(), ErrPatchFailure)
}

func TestStageStandaloneDetectsBuildFileDrift(t *testing.T) {
	f := newFixture(t)
	f.runner.Generate = func(dir string) runner.Output {
		_ = os.WriteFile(filepath.Join(dir, "Android.bp"), []byte("rust_library {\n    name: \"libfoo_v2\",\n}\n"), 0o644)
		return runner.Output{}
	}

	s, err := f.managed(t).AsLegacy().StageStandalone(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.Empty(t, f.runner.CallsTo("patch"))
	require.True(t, s.CargoEmbargoSuccess())
	require.False(t, s.AndroidBPUnchanged())
	require.Contains(t, s.AndroidBPDiff().Unified, "+    name: \"libfoo_v2\",")
	require.ErrorIs(t, s.CheckStaged(), ErrDriftDetected)
}

func TestStageRecordsGeneratorFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.Generate = func(string) runner.Output {
		return runner.Output{ExitCode: 1, Stderr: []byte("could not compile")}
	}

	s, err := f.managed(t).StageStandalone(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.False(t, s.CargoEmbargoSuccess())
	require.Equal(t, "could not compile", string(s.CargoEmbargoOutput().Stderr))
	require.ErrorIs(t, s.CheckStaged(), ErrGeneratorFailure)
}

func TestWhitespaceOnlyBuildFileChange(t *testing.T) {
	f := newFixture(t)
	f.runner.Generate = func(dir string) runner.Output {
		_ = os.WriteFile(filepath.Join(dir, "Android.bp"), []byte("rust_library {\n\tname: \"libfoo\",\n}\n"), 0o644)
		return runner.Output{}
	}
	s, err := f.managed(t).StageStandalone(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.False(t, s.AndroidBPUnchanged())
	require.True(t, s.AndroidBPUnchangedIgnoringSpace())
}

func TestCloseRemovesStagingDir(t *testing.T) {
	f := newFixture(t)
	s, err := f.managed(t).Stage(context.Background(), f.vendored)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = os.Stat(s.StagingPath())
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDiffStaged(t *testing.T) {
	f := newFixture(t)
	s, err := f.managed(t).Stage(context.Background(), f.vendored)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.DiffStaged())

	writeFile(t, f.crateDir, "src/lib.rs", "pub fn foo() { local_edit() }\n")
	err = s.DiffStaged()
	require.ErrorIs(t, err, ErrDriftDetected)
	require.Contains(t, err.Error(), "files differ: src/lib.rs")
}

func TestRegenerateReplacesCheckedInCrate(t *testing.T) {
	f := newFixture(t)
	md, err := metadata.Init(filepath.Join(f.crateDir, metadata.FileName), "foo", "1.0.0", "", "NOTICE")
	require.NoError(t, err)
	require.NoError(t, md.Write())
	writeFile(t, f.crateDir, "stale.txt", "left over\n")

	require.NoError(t, f.managed(t).Regenerate(context.Background(), true, f.vendored))

	_, err = os.Stat(filepath.Join(f.crateDir, "stale.txt"))
	require.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(f.crateDir, "cargo.out"))
	require.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(f.crateDir, "src", "lib.rs"))
	require.NoError(t, err)

	updated, err := metadata.Load(filepath.Join(f.crateDir, metadata.FileName))
	require.NoError(t, err)
	require.Equal(t, "1.2.3", updated.Version())
}

func TestRegenerateStopsOnPatchFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.FailingPatches = map[string]bool{"0002-second.patch": true}
	writeFile(t, f.crateDir, "stale.txt", "kept\n")

	err := f.managed(t).Regenerate(context.Background(), false, f.vendored)
	require.ErrorIs(t, err, ErrPatchFailure)
	_, err = os.Stat(filepath.Join(f.crateDir, "stale.txt"))
	require.NoError(t, err)
}

func TestRegenerateRefusesLegacyCrate(t *testing.T) {
	f := newFixture(t)
	err := f.managed(t).AsLegacy().Regenerate(context.Background(), false, f.vendored)
	require.ErrorIs(t, err, ErrLegacyCrate)
}

func TestRecontextualizePatches(t *testing.T) {
	f := newFixture(t)
	patch := strings.Join([]string{
		"diff --git a/external/rust/crates/foo/src/lib.rs b/external/rust/crates/foo/src/lib.rs",
		"--- a/external/rust/crates/foo/src/lib.rs\t2024-01-01",
		"+++ b/external/rust/crates/foo/src/lib.rs",
		"@@ -1 +1 @@",
		"--- removed line that looks like a header",
		"+pub fn foo() {}",
		"",
	}, "\n")
	writeFile(t, f.crateDir, "patches/0001-first.patch", patch)

	require.NoError(t, f.managed(t).RecontextualizePatches())

	got, err := os.ReadFile(filepath.Join(f.crateDir, "patches", "0001-first.patch"))
	require.NoError(t, err)
	require.Equal(t, strings.Join([]string{
		"diff --git a/src/lib.rs b/src/lib.rs",
		"--- a/src/lib.rs\t2024-01-01",
		"+++ b/src/lib.rs",
		"@@ -1 +1 @@",
		"--- removed line that looks like a header",
		"+pub fn foo() {}",
		"",
	}, "\n"), string(got))
}
