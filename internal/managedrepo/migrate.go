package managedrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cratehealth/internal/buildgen"
	"cratehealth/internal/fsutil"
	"cratehealth/internal/semver"
)

// migratedFiles are removed from a legacy crate once it has moved, in
// addition to every *.bp file.
var migratedFiles = []string{buildgen.ConfigFile, "TEST_MAPPING"}

// Migrate moves the legacy crates names into the managed repo. Each crate
// must pass MigrationHealth first; the first failure stops the batch and
// crates handled before it stay migrated. Crates in unpinned, or listed as
// unpinned in the configuration, are registered with a caret requirement.
func (r *ManagedRepo) Migrate(ctx context.Context, names []string, verbose bool, unpinned map[string]struct{}) error {
	pc := r.pseudoCrate()
	for _, name := range names {
		open := r.isUnpinned(name, unpinned)
		report, err := r.MigrationHealth(ctx, name, verbose, open)
		if err != nil {
			return err
		}
		version, err := semver.ParseVersion(report.Version)
		if err != nil {
			return fmt.Errorf("%s: resolved version: %w", name, err)
		}

		if err := os.MkdirAll(r.paths.ManagedDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", r.paths.Rel(r.paths.ManagedDir), err)
		}
		if err := fsutil.CopyDir(r.paths.LegacyDirFor(name), r.paths.ManagedDirFor(name)); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
		if open {
			err = pc.AddUnpinned(ctx, name, version)
		} else {
			err = pc.AddPinned(ctx, name, version)
		}
		if err != nil {
			return err
		}
		r.log.Info().Str("crate", name).Str("version", version.String()).Bool("unpinned", open).Msg("migrated crate registered")
	}

	if err := r.Regenerate(ctx, names, false); err != nil {
		return err
	}

	for _, name := range names {
		if err := r.leaveMigrationStub(name); err != nil {
			return err
		}
	}
	r.metrics.AddMigrated(len(names))
	return nil
}

func (r *ManagedRepo) isUnpinned(name string, unpinned map[string]struct{}) bool {
	if _, ok := unpinned[name]; ok {
		return true
	}
	return r.cfg.IsUnpinned(name)
}

// leaveMigrationStub strips the legacy crate of its build files and leaves an
// Android.bp pointing at the managed repo.
func (r *ManagedRepo) leaveMigrationStub(name string) error {
	dir := r.paths.LegacyDirFor(name)
	bpFiles, err := filepath.Glob(filepath.Join(dir, "*.bp"))
	if err != nil {
		return err
	}
	for _, path := range bpFiles {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	for _, file := range migratedFiles {
		if err := fsutil.RemoveIfExists(filepath.Join(dir, file)); err != nil {
			return err
		}
	}
	stub := fmt.Sprintf("// This crate has been migrated to %s.\n", r.paths.ManagedRepoRel)
	if err := os.WriteFile(filepath.Join(dir, buildgen.BuildFile), []byte(stub), 0o644); err != nil {
		return fmt.Errorf("write migration stub: %w", err)
	}
	return nil
}
