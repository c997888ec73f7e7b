package managedrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cratehealth/internal/buildgen"
	"cratehealth/internal/crate"
	"cratehealth/internal/fsutil"
	"cratehealth/internal/license"
	"cratehealth/internal/metadata"
	"cratehealth/internal/pseudocrate"
)

// AddCrateAndDependencies registers name in the pseudo-crate together with
// every transitive dependency that is neither managed yet nor still in the
// legacy location. Each crate is added without a version so cargo picks one,
// and the pseudo-crate is vendored after every addition so that the next
// dependency query sees the joint resolution. The added names are returned
// sorted, along with the final vendored state.
func (r *ManagedRepo) AddCrateAndDependencies(ctx context.Context, name string) ([]string, *pseudocrate.Vendored, error) {
	unmigrated, err := r.legacyNames()
	if err != nil {
		return nil, nil, err
	}
	v, err := r.pseudoCrate().Vendor(ctx)
	if err != nil {
		return nil, nil, err
	}
	migratedNames, err := v.DepNames()
	if err != nil {
		return nil, nil, err
	}
	migrated := setOf(migratedNames)

	pending := map[string]struct{}{name: {}}
	added := map[string]struct{}{}
	for len(pending) > 0 {
		cur := sortedNames(pending)[0]
		delete(pending, cur)
		r.printf("Adding %s", cur)

		pc := v.Dirty()
		if err := pc.AddUnversioned(ctx, cur); err != nil {
			return nil, nil, err
		}
		if v, err = pc.Vendor(ctx); err != nil {
			return nil, nil, err
		}
		added[cur] = struct{}{}

		deps, err := v.DepsOf(cur)
		if err != nil {
			return nil, nil, err
		}
		for _, dep := range deps {
			if _, ok := added[dep]; ok {
				continue
			}
			if _, ok := migrated[dep]; ok {
				continue
			}
			if _, ok := unmigrated[dep]; ok {
				continue
			}
			if _, ok := pending[dep]; !ok {
				r.printf("  Depends on %s", dep)
			}
			pending[dep] = struct{}{}
		}
	}

	v, err = v.Dirty().Vendor(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sortedNames(added), v, nil
}

// Import adds name and its missing dependencies to the managed repo. Each new
// crate is copied from its vendored sources and given a cargo_embargo.json,
// license files, METADATA and a placeholder Android.bp, after which all of
// them are regenerated. The first failing crate stops the import.
func (r *ManagedRepo) Import(ctx context.Context, name string) error {
	newDeps, v, err := r.AddCrateAndDependencies(ctx, name)
	if err != nil {
		return err
	}

	for _, dep := range newDeps {
		r.printf("Sprinkling Android glitter on %s", dep)
		if err := r.importOne(ctx, dep, v); err != nil {
			return fmt.Errorf("import %s: %w", dep, err)
		}
	}

	if err := r.Regenerate(ctx, newDeps, true); err != nil {
		return err
	}
	r.metrics.AddImported(len(newDeps))
	return nil
}

func (r *ManagedRepo) importOne(ctx context.Context, name string, v *pseudocrate.Vendored) error {
	if exists, err := r.contains(name); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("crate %s already exists at %s: %w", name, r.paths.Rel(r.paths.ManagedDirFor(name)), ErrAlreadyExists)
	}
	if exists, err := r.legacyContains(name); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("legacy crate %s already exists at %s: %w", name, r.paths.Rel(r.paths.LegacyDirFor(name)), ErrAlreadyExists)
	}

	vendoredDir, err := v.VendoredDirFor(name)
	if err != nil {
		return err
	}
	dir := r.paths.ManagedDirFor(name)
	if err := fsutil.CopyDir(vendoredDir, dir); err != nil {
		return err
	}

	out, err := r.generator.Autoconfig(ctx, dir)
	if err != nil {
		return err
	}
	if err := out.SuccessOrError(); err != nil {
		return fmt.Errorf("failed to generate %s: %w", buildgen.ConfigFile, err)
	}

	k, err := crate.FromDir(dir)
	if err != nil {
		return err
	}
	st, err := r.resolveLicenses(ctx, k)
	if err != nil {
		return err
	}

	if len(st.Satisfied) == 1 && len(st.Unsatisfied) == 0 {
		licenseFile := filepath.Join(dir, "LICENSE")
		if !fsutil.Exists(licenseFile) {
			for _, file := range st.Satisfied {
				if err := os.Symlink(filepath.Base(file), licenseFile); err != nil {
					return fmt.Errorf("link LICENSE: %w", err)
				}
			}
		}
	}
	if err := license.UpdateModuleLicenseFiles(dir, st); err != nil {
		return err
	}

	md, err := metadata.Init(filepath.Join(dir, metadata.FileName), k.Name(), k.Version().String(),
		k.Description(), string(license.MostRestrictiveType(st)))
	if err != nil {
		return err
	}
	if err := md.Write(); err != nil {
		return err
	}

	bp := filepath.Join(dir, buildgen.BuildFile)
	if !fsutil.Exists(bp) {
		if err := os.WriteFile(bp, nil, 0o644); err != nil {
			return fmt.Errorf("write placeholder %s: %w", buildgen.BuildFile, err)
		}
	}
	return nil
}

// resolveLicenses finds the crate's license files. When none of the
// requirements is met the configured fallback gets one chance to supply the
// missing file before the import is refused.
func (r *ManagedRepo) resolveLicenses(ctx context.Context, k *crate.Crate) (license.State, error) {
	st, err := r.licenses.Find(k.Path(), k.Name(), k.License())
	if err != nil {
		if errors.Is(err, license.ErrNoLicense) {
			return st, fmt.Errorf("%s: %w: %v", k.Name(), ErrLicenseUnsatisfied, err)
		}
		return st, err
	}
	if len(st.Unsatisfied) == 0 || len(st.Satisfied) > 0 {
		return st, nil
	}

	repository, _ := k.Repository()
	resolved, err := r.fallback.Resolve(ctx, license.Target{Name: k.Name(), Dir: k.Path(), Repository: repository}, st)
	if err != nil {
		return st, fmt.Errorf("license fallback: %w", err)
	}
	if !resolved {
		return st, fmt.Errorf("could not find license files for all licenses, missing %s: %w",
			strings.Join(st.Unsatisfied, ", "), ErrLicenseUnsatisfied)
	}
	r.log.Info().Str("crate", k.Name()).Msg("license supplied by fallback")
	return r.licenses.Find(k.Path(), k.Name(), k.License())
}
