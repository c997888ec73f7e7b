package managedcrate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"cratehealth/internal/buildgen"
	"cratehealth/internal/runner"
	"cratehealth/internal/semver"
	"cratehealth/internal/treediff"
)

// PatchResult is the outcome of applying one stored patch.
type PatchResult struct {
	Patch  string
	Output runner.Output
}

func (p PatchResult) Success() bool { return p.Output.Success() }

// BuildFileDiff compares the checked-in build file with the regenerated one.
type BuildFileDiff struct {
	Unchanged              bool
	UnchangedIgnoringSpace bool
	Unified                string
	CheckedInMissing       bool
	GeneratedMissing       bool
}

func compareBuildFiles(original []byte, haveOriginal bool, generated []byte, haveGenerated bool) BuildFileDiff {
	d := BuildFileDiff{CheckedInMissing: !haveOriginal, GeneratedMissing: !haveGenerated}
	if !haveOriginal || !haveGenerated {
		if haveGenerated {
			d.Unified = treediff.Added("b/"+buildgen.BuildFile, generated)
		}
		return d
	}
	d.Unchanged = bytes.Equal(original, generated)
	d.UnchangedIgnoringSpace = treediff.Equivalent(original, generated, treediff.Options{IgnoreWhitespace: true})
	if !d.Unchanged {
		d.Unified = treediff.Unified("a/"+buildgen.BuildFile, "b/"+buildgen.BuildFile, original, generated, 3)
	}
	return d
}

// Staged is a scratch working copy. It owns a temporary directory that is
// removed by Close.
type Staged struct {
	mc              *ManagedCrate
	tmp             string
	stagingPath     string
	generatorOutput runner.Output
	buildFile       BuildFileDiff
	patches         []PatchResult
	patchSuccess    bool
	vendoredVersion semver.Version
}

// Close removes the staging directory.
func (s *Staged) Close() error {
	if s == nil || s.tmp == "" {
		return nil
	}
	return os.RemoveAll(s.tmp)
}

func (s *Staged) StagingPath() string { return s.stagingPath }

// AndroidCratePath is the checked-in crate the staged copy was built for.
func (s *Staged) AndroidCratePath() string { return s.mc.krate.Path() }

func (s *Staged) AndroidVersion() semver.Version  { return s.mc.krate.Version() }
func (s *Staged) VendoredVersion() semver.Version { return s.vendoredVersion }

func (s *Staged) CargoEmbargoSuccess() bool             { return s.generatorOutput.Success() }
func (s *Staged) CargoEmbargoOutput() runner.Output     { return s.generatorOutput }
func (s *Staged) AndroidBPUnchanged() bool              { return s.buildFile.Unchanged }
func (s *Staged) AndroidBPUnchangedIgnoringSpace() bool { return s.buildFile.UnchangedIgnoringSpace }
func (s *Staged) AndroidBPDiff() BuildFileDiff          { return s.buildFile }
func (s *Staged) PatchSuccess() bool                    { return s.patchSuccess }
func (s *Staged) PatchOutput() []PatchResult            { return s.patches }

// FailedPatches returns the results of patches that did not apply.
func (s *Staged) FailedPatches() []PatchResult {
	var out []PatchResult
	for _, p := range s.patches {
		if !p.Success() {
			out = append(out, p)
		}
	}
	return out
}

// CheckStaged returns an error describing the first failed step.
func (s *Staged) CheckStaged() error {
	name := s.mc.krate.Name()
	if !s.patchSuccess {
		var failed []string
		for _, p := range s.FailedPatches() {
			failed = append(failed, p.Patch)
		}
		return fmt.Errorf("%s: %v: %w", name, failed, ErrPatchFailure)
	}
	if !s.CargoEmbargoSuccess() {
		return fmt.Errorf("%s: %v: %w", name, s.generatorOutput.SuccessOrError(), ErrGeneratorFailure)
	}
	if !s.buildFile.Unchanged {
		return fmt.Errorf("%s: %s changed: %w", name, buildgen.BuildFile, ErrDriftDetected)
	}
	return nil
}

// Diff compares the checked-in crate with the staged copy.
func (s *Staged) Diff(opt treediff.Options) (treediff.Result, error) {
	return treediff.Dirs(s.AndroidCratePath(), s.stagingPath, opt)
}

// DiffStaged fails when the checked-in crate is not what staging would
// produce from its vendored sources.
func (s *Staged) DiffStaged() error {
	opt := treediff.DefaultOptions()
	res, err := s.Diff(opt)
	if err != nil {
		return err
	}
	if res.Equal() {
		return nil
	}
	return fmt.Errorf("%s:\n%s%w", s.mc.krate.Name(), res.Summary(), ErrDriftDetected)
}

// removeIntermediates deletes generator leftovers from the staging copy.
func (s *Staged) removeIntermediates() error {
	for _, name := range buildgen.Intermediates {
		if err := os.RemoveAll(filepath.Join(s.stagingPath, name)); err != nil {
			return err
		}
	}
	return nil
}
