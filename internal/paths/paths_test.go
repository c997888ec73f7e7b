package paths

import (
	"path/filepath"
	"testing"

	"cratehealth/internal/config"
)

func TestResolveDefaults(t *testing.T) {
	root := t.TempDir()
	pp, err := Resolve(root)
	if err != nil {
		t.Fatal(err)
	}
	if pp.Root != root {
		t.Fatalf("Root = %s, want %s", pp.Root, root)
	}
	wantRepo := filepath.Join(root, "external", "rust", "android-crates-io")
	if pp.ManagedRepo != wantRepo {
		t.Fatalf("ManagedRepo = %s, want %s", pp.ManagedRepo, wantRepo)
	}
	if pp.ManagedDir != filepath.Join(wantRepo, "crates") {
		t.Fatalf("ManagedDir = %s", pp.ManagedDir)
	}
	if pp.PseudoCrate != filepath.Join(wantRepo, "pseudo_crate") {
		t.Fatalf("PseudoCrate = %s", pp.PseudoCrate)
	}
	if pp.LegacyDir != filepath.Join(root, "external", "rust", "crates") {
		t.Fatalf("LegacyDir = %s", pp.LegacyDir)
	}
	if pp.ConfigFile != filepath.Join(wantRepo, config.FileName) {
		t.Fatalf("ConfigFile = %s", pp.ConfigFile)
	}
	if pp.ManagedRepoRel != "external/rust/android-crates-io" {
		t.Fatalf("ManagedRepoRel = %s", pp.ManagedRepoRel)
	}
}

func TestResolveFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv(RootEnv, root)
	pp, err := Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if pp.Root != root {
		t.Fatalf("Root = %s, want %s", pp.Root, root)
	}
}

func TestApplyConfig(t *testing.T) {
	root := t.TempDir()
	pp := newRepoPaths(root)
	configFile := pp.ConfigFile

	cfg := config.Default()
	cfg.ManagedRepo = "third_party/rust"
	cfg.LegacyDir = "/srv/legacy"
	applied := ApplyConfig(pp, cfg)

	if applied.ManagedDir != filepath.Join(root, "third_party", "rust", "crates") {
		t.Fatalf("ManagedDir = %s", applied.ManagedDir)
	}
	if applied.LegacyDir != "/srv/legacy" {
		t.Fatalf("LegacyDir = %s", applied.LegacyDir)
	}
	if applied.ConfigFile != configFile {
		t.Fatalf("ConfigFile moved to %s", applied.ConfigFile)
	}
	if got := applied.LegacyDirFor("foo"); got != "/srv/legacy/foo" {
		t.Fatalf("LegacyDirFor = %s", got)
	}
}

func TestRel(t *testing.T) {
	pp := newRepoPaths("/tree")
	if got := pp.Rel("/tree/external/rust/crates/foo"); got != "external/rust/crates/foo" {
		t.Fatalf("Rel = %s", got)
	}
	if got := pp.Rel("/elsewhere/foo"); got != "/elsewhere/foo" {
		t.Fatalf("Rel = %s", got)
	}
}
