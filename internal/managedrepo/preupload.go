package managedrepo

import (
	"context"
	"path"
	"slices"
	"strings"
	"time"
)

// PreuploadCheck verifies that the pseudo-crate manifest, the managed crate
// directories and crate-list.txt name the same crates, then re-stages every
// crate touched by files (paths relative to the managed repo) and fails if
// its checked-in tree is not what staging produces.
func (r *ManagedRepo) PreuploadCheck(ctx context.Context, files []string) (err error) {
	defer func() { r.metrics.ObservePreupload(err == nil) }()

	v, err := r.pseudoCrate().Vendor(ctx)
	if err != nil {
		return err
	}
	depNames, err := v.DepNames()
	if err != nil {
		return err
	}
	deps := setOf(depNames)

	dirNames, err := r.AllCrateNames()
	if err != nil {
		return err
	}
	dirs := setOf(dirNames)

	ce := &ConsistencyError{
		DirsNotInManifest:  difference(dirs, deps),
		ManifestWithoutDir: difference(deps, dirs),
	}
	if !ce.empty() {
		return ce
	}

	list, err := v.ReadCrateList()
	if err != nil {
		return err
	}
	if !slices.Equal(depNames, list) {
		listed := setOf(list)
		ce.ListNotInManifest = difference(listed, deps)
		ce.ManifestNotInList = difference(deps, listed)
		ce.ListOutOfOrder = len(ce.ListNotInManifest) == 0 && len(ce.ManifestNotInList) == 0
		return ce
	}

	return r.eachCrate(ctx, ChangedCrates(files), "checking", func(name string) error {
		r.printf("Checking %s", name)
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
		return s.DiffStaged()
	})
}

// ChangedCrates returns the sorted names of crates with a changed file below
// crates/<name>/.
func ChangedCrates(files []string) []string {
	set := map[string]struct{}{}
	for _, file := range files {
		parts := strings.Split(path.Clean(strings.ReplaceAll(file, "\\", "/")), "/")
		if len(parts) > 2 && parts[0] == "crates" {
			set[parts[1]] = struct{}{}
		}
	}
	return sortedNames(set)
}
