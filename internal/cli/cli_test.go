package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cratehealth/internal/config"
	"cratehealth/internal/cratetest"
	"cratehealth/internal/managedrepo"
	"cratehealth/internal/paths"
	"cratehealth/internal/runner"
)

// newTree lays out an empty managed repo below a temporary root.
func newTree(t *testing.T) paths.RepoPaths {
	t.Helper()
	pp, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	pp = paths.ApplyConfig(pp, config.Default())
	if err := cratetest.WritePseudoCrate(pp.PseudoCrate); err != nil {
		t.Fatalf("write pseudo crate: %v", err)
	}
	for _, dir := range []string{pp.ManagedDir, pp.LegacyDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return pp
}

func useRunner(t *testing.T, r runner.Runner) {
	t.Helper()
	prev := newRunner
	newRunner = func() runner.Runner { return r }
	t.Cleanup(func() { newRunner = prev })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	cmd := newRootCmd()
	want := []string{
		"migration-health", "migrate", "import", "regenerate", "stage",
		"preupload-check", "fix-licenses", "fix-metadata",
		"recontextualize-patches", "crates", "doctor", "config",
	}
	for _, name := range want {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestCratesListsManagedDirs(t *testing.T) {
	pp := newTree(t)
	for _, name := range []string{"zeta", "alpha"} {
		if err := os.MkdirAll(pp.ManagedDirFor(name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	out, err := execute(t, "--root", pp.Root, "crates")
	if err != nil {
		t.Fatalf("crates: %v", err)
	}
	if out != "alpha\nzeta\n" {
		t.Errorf("crates output = %q", out)
	}

	out, err = execute(t, "--root", pp.Root, "--json", "crates")
	if err != nil {
		t.Fatalf("crates --json: %v", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(out), &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" {
		t.Errorf("crates --json = %v", names)
	}
}

func TestMissingManagedRepo(t *testing.T) {
	_, err := execute(t, "--root", t.TempDir(), "crates")
	if err == nil || !strings.Contains(err.Error(), "managed repo does not exist") {
		t.Errorf("expected missing managed repo error, got %v", err)
	}
}

func TestMigrationHealthJSON(t *testing.T) {
	pp := newTree(t)
	foo := cratetest.Package{
		Name:    "foo",
		Version: "1.2.3",
		License: "MIT",
		Files:   map[string]string{"src/lib.rs": "pub fn foo() {}\n"},
	}
	dir := pp.LegacyDirFor("foo")
	if err := foo.WriteTo(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Android.bp"), []byte("rust_library {\n    name: \"libfoo\",\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cargo_embargo.json"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	useRunner(t, &cratetest.Runner{Registry: cratetest.NewRegistry(foo)})

	out, err := execute(t, "--root", pp.Root, "--json", "migration-health", "foo")
	if err != nil {
		t.Fatalf("migration-health: %v", err)
	}
	var reports []managedrepo.HealthReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(reports) != 1 || reports[0].Verdict != managedrepo.VerdictHealthy {
		t.Errorf("unexpected reports %+v", reports)
	}
}

func TestMigrationHealthUnhealthyFails(t *testing.T) {
	pp := newTree(t)
	foo := cratetest.Package{Name: "foo", Version: "1.2.3", License: "MIT"}
	if err := foo.WriteTo(pp.LegacyDirFor("foo")); err != nil {
		t.Fatal(err)
	}
	useRunner(t, &cratetest.Runner{Registry: cratetest.NewRegistry(foo)})

	out, err := execute(t, "--root", pp.Root, "migration-health", "foo")
	if !errors.Is(err, managedrepo.ErrPrerequisiteMissing) {
		t.Fatalf("expected prerequisite error, got %v", err)
	}
	if !strings.Contains(out, "UNHEALTHY") {
		t.Errorf("expected verdict in output, got %q", out)
	}
}

func TestRequireNamesOrAll(t *testing.T) {
	if err := requireNamesOrAll(nil, false); err == nil {
		t.Error("expected error without names or --all")
	}
	if err := requireNamesOrAll([]string{"foo"}, true); err == nil {
		t.Error("expected error with both names and --all")
	}
	if err := requireNamesOrAll([]string{"foo"}, false); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := requireNamesOrAll(nil, true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigShowAndValidate(t *testing.T) {
	pp := newTree(t)

	out, err := execute(t, "--root", pp.Root, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "managed_repo: external/rust/android-crates-io") {
		t.Errorf("config show output missing managed_repo: %q", out)
	}

	out, err = execute(t, "--root", pp.Root, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "config OK") {
		t.Errorf("expected config OK, got %q", out)
	}
}

func TestConfigValidateRejectsAbsoluteDirs(t *testing.T) {
	pp := newTree(t)
	if err := os.WriteFile(pp.ConfigFile, []byte("legacy_dir: /abs/crates\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "--root", pp.Root, "config", "validate")
	if err == nil {
		t.Error("expected validation error for absolute legacy_dir")
	}
}

func TestCheckConfigValid(t *testing.T) {
	pp := newTree(t)
	result := checkConfig(pp, config.Default())
	if result.Status != "ok" {
		t.Errorf("got status=%q (%s), want ok", result.Status, result.Summary)
	}
	if result.Name != "Config" {
		t.Errorf("got name=%q, want Config", result.Name)
	}
}

func TestCheckLayoutMissing(t *testing.T) {
	pp, _ := paths.Resolve(t.TempDir())
	result := checkLayout(pp)
	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
	if !strings.Contains(result.Summary, "crates") {
		t.Errorf("expected missing dirs in summary, got %q", result.Summary)
	}
}
