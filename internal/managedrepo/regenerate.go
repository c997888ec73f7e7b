package managedrepo

import (
	"context"
	"time"
)

// Regenerate vendors the pseudo-crate once and rewrites each managed crate
// from its vendored sources, then refreshes the crate list. With
// updateMetadata the METADATA files are moved to the vendored versions.
// The first failure stops the batch.
func (r *ManagedRepo) Regenerate(ctx context.Context, names []string, updateMetadata bool) error {
	v, err := r.pseudoCrate().Vendor(ctx)
	if err != nil {
		return err
	}
	err = r.eachCrate(ctx, names, "regenerating", func(name string) error {
		mc, err := r.managedCrateFor(name)
		if err != nil {
			return err
		}
		start := time.Now()
		defer r.observeStage(start)
		return mc.Regenerate(ctx, updateMetadata, v)
	})
	if err != nil {
		return err
	}
	r.metrics.AddRegenerated(len(names))
	return v.RegenerateCrateList()
}

// Stage vendors the pseudo-crate once and checks that each crate stages
// cleanly: patches apply, cargo_embargo succeeds and Android.bp is unchanged.
// Nothing in the managed repo is modified.
func (r *ManagedRepo) Stage(ctx context.Context, names []string) error {
	v, err := r.pseudoCrate().Vendor(ctx)
	if err != nil {
		return err
	}
	return r.eachCrate(ctx, names, "staging", func(name string) error {
		mc, err := r.managedCrateFor(name)
		if err != nil {
			return err
		}
		start := time.Now()
		s, err := mc.Stage(ctx, v)
		if err != nil {
			return err
		}
		defer s.Close()
		r.observeStage(start)
		return s.CheckStaged()
	})
}
