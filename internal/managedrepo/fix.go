package managedrepo

import (
	"context"
	"path/filepath"

	"cratehealth/internal/crate"
	"cratehealth/internal/license"
	"cratehealth/internal/metadata"
)

// FixLicenses re-checks the license files of every managed crate. Crates with
// unsatisfied requirements are reported; the rest get their MODULE_LICENSE_*
// markers rewritten.
func (r *ManagedRepo) FixLicenses(ctx context.Context) error {
	crates, err := r.managedCrates()
	if err != nil {
		return err
	}
	return r.eachManaged(ctx, crates, "licenses", func(k *crate.Crate) error {
		st, err := r.licenses.Find(k.Path(), k.Name(), k.License())
		if err != nil {
			return err
		}
		if len(st.Unsatisfied) > 0 {
			r.printf("%s", st)
			return nil
		}
		return license.UpdateModuleLicenseFiles(k.Path(), st)
	})
}

// FixMetadata brings every managed crate's METADATA up to date with its
// Cargo.toml version and the current URL conventions.
func (r *ManagedRepo) FixMetadata(ctx context.Context) error {
	crates, err := r.managedCrates()
	if err != nil {
		return err
	}
	return r.eachManaged(ctx, crates, "metadata", func(k *crate.Crate) error {
		md, err := metadata.Load(filepath.Join(k.Path(), metadata.FileName))
		if err != nil {
			return err
		}
		if err := md.SetVersionAndURLs(k.Name(), k.Version().String()); err != nil {
			return err
		}
		md.MigrateArchive()
		md.MigrateHomepage()
		md.RemoveDeprecatedURL()
		return md.Write()
	})
}

// RecontextualizePatches rewrites the patch file paths of each named crate so
// they apply relative to the crate root.
func (r *ManagedRepo) RecontextualizePatches(ctx context.Context, names []string) error {
	return r.eachCrate(ctx, names, "recontextualizing", func(name string) error {
		mc, err := r.managedCrateFor(name)
		if err != nil {
			return err
		}
		return mc.RecontextualizePatches()
	})
}

func (r *ManagedRepo) eachManaged(ctx context.Context, crates []*crate.Crate, step string, fn func(k *crate.Crate) error) error {
	for _, k := range crates {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.progress.Start(k.Name(), step)
		r.printf("%s = \"=%s\"", k.Name(), k.Version())
		err := fn(k)
		r.progress.Done(k.Name(), err)
		if err != nil {
			return err
		}
	}
	return nil
}
