package managedrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cratehealth/internal/crate"
	"cratehealth/internal/fsutil"
	"cratehealth/internal/managedcrate"
)

// healthCheck accumulates the diagnostics of one migration health check and
// forwards each to the reporter as it is recorded.
type healthCheck struct {
	r      *ManagedRepo
	report HealthReport
	failed bool
}

func (h *healthCheck) add(code Code, sev Severity, detail string, format string, v ...any) {
	d := Diagnostic{
		Crate:    h.report.Crate,
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, v...),
		Detail:   detail,
	}
	if sev == SeverityError {
		h.failed = true
	}
	h.report.Diagnostics = append(h.report.Diagnostics, d)
	h.r.reporter.Report(d)
	h.r.metrics.ObserveDiagnostic(string(code))

	ev := h.r.log.Info()
	switch sev {
	case SeverityWarning:
		ev = h.r.log.Warn()
	case SeverityError:
		ev = h.r.log.Error()
	}
	ev.Str("crate", d.Crate).Str("code", string(code)).Msg(d.Message)
}

func (h *healthCheck) info(code Code, format string, v ...any) {
	h.add(code, SeverityInfo, "", format, v...)
}

func (h *healthCheck) fail(code Code, detail string, format string, v ...any) {
	h.add(code, SeverityError, detail, format, v...)
}

// finish records the verdict. An unhealthy verdict is returned as an
// *UnhealthyError carrying the report.
func (h *healthCheck) finish(verdict Verdict) (HealthReport, error) {
	h.report.Verdict = verdict
	name := h.report.Crate
	switch verdict {
	case VerdictHealthy:
		h.add(CodeVerdict, SeverityInfo, "", "Crate %s is healthy", name)
	case VerdictNeedsReview:
		h.add(CodeNeedsReview, SeverityWarning, "",
			"The crate was added with an unpinned version, and diffs were found which must be inspected manually")
	default:
		h.add(CodeVerdict, SeverityInfo, "", "Crate %s is UNHEALTHY", name)
	}
	h.r.metrics.ObserveHealth(string(verdict))
	if !verdict.Healthy() {
		return h.report, &UnhealthyError{Report: h.report}
	}
	return h.report, nil
}

// MigrationHealth checks whether the legacy crate name can be migrated
// without changes: its build file must be reproducible from its own
// directory and from the sources cargo vendors for it, its patches must
// apply, and the vendored tree must match the legacy tree. The pseudo-crate
// manifest is left as it was found.
//
// An unhealthy verdict returns the report together with an *UnhealthyError.
func (r *ManagedRepo) MigrationHealth(ctx context.Context, name string, verbose, unpinned bool) (HealthReport, error) {
	exists, err := r.contains(name)
	if err != nil {
		return HealthReport{}, err
	}
	if exists {
		return HealthReport{}, fmt.Errorf("crate %s already exists in %s: %w", name, r.paths.Rel(r.paths.ManagedDir), ErrAlreadyExists)
	}

	legacy, err := r.legacyCrate(name)
	if err != nil {
		return HealthReport{}, fmt.Errorf("%s: %w", name, err)
	}
	h := &healthCheck{r: r, report: HealthReport{Crate: name, LegacyVersion: legacy.Version().String()}}
	h.info(CodeFound, "Found %s v%s in %s", legacy.Name(), legacy.Version(), r.paths.Rel(legacy.Path()))

	if r.cfg.IsMigrationDenied(name) {
		h.fail(CodeMigrationDenied, "", "This crate is on the migration denylist")
	}
	mc := r.newManagedCrate(legacy).AsLegacy()
	if !fsutil.Exists(mc.AndroidBP()) {
		h.fail(CodeMissingBuildFile, "", "There is no Android.bp file in %s", r.paths.Rel(legacy.Path()))
	}
	if !fsutil.Exists(mc.CargoEmbargoJSON()) {
		h.fail(CodeMissingConfig, "", "There is no cargo_embargo.json file in %s", r.paths.Rel(legacy.Path()))
	}
	if !h.failed {
		if err := r.checkStandalone(ctx, h, mc, verbose); err != nil {
			return h.report, err
		}
	}
	if h.failed {
		return h.finish(VerdictUnhealthy)
	}

	s, err := r.stageRegistered(ctx, mc, legacy, unpinned)
	if err != nil {
		return h.report, err
	}
	defer s.Close()

	h.report.Version = s.VendoredVersion().String()
	if !s.AndroidVersion().Equal(s.VendoredVersion()) {
		h.info(CodeVersionChanged, "Source and destination versions are different: %s -> %s", s.AndroidVersion(), s.VendoredVersion())
	}
	if !s.PatchSuccess() {
		h.fail(CodePatchFailed, patchDetail(s, verbose), "Patches did not apply successfully to the migrated crate")
	}
	if !s.CargoEmbargoSuccess() {
		h.fail(CodeGeneratorFailed, generatorDetail(s, verbose), "cargo_embargo execution did not succeed for the migrated crate")
	} else if !s.AndroidBPUnchangedIgnoringSpace() {
		h.fail(CodeBuildFileChanged, buildFileDetail(s, verbose),
			"Running cargo_embargo for the migrated crate produced changes to the Android.bp file")
	}

	res, err := s.Diff(r.diffOptions(verbose))
	if err != nil {
		return h.report, err
	}
	if !res.Equal() {
		detail := ""
		if verbose {
			detail = "All diffs:\n" + res.Summary()
		}
		sev := SeverityError
		if unpinned {
			sev = SeverityWarning
		}
		h.add(CodeTreeDiff, sev, detail, "Found differences between %s and %s",
			r.paths.Rel(s.AndroidCratePath()), s.StagingPath())
	}

	switch {
	case h.failed:
		return h.finish(VerdictUnhealthy)
	case res.Equal():
		return h.finish(VerdictHealthy)
	default:
		return h.finish(VerdictNeedsReview)
	}
}

// checkStandalone verifies that the crate's build file is reproducible from
// the legacy directory alone.
func (r *ManagedRepo) checkStandalone(ctx context.Context, h *healthCheck, mc *managedcrate.ManagedCrate, verbose bool) error {
	start := time.Now()
	s, err := mc.StageStandalone(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	r.observeStage(start)

	if !s.CargoEmbargoSuccess() {
		h.fail(CodeGeneratorFailed, generatorDetail(s, verbose), "cargo_embargo execution did not succeed for %s", s.StagingPath())
	} else if !s.AndroidBPUnchangedIgnoringSpace() {
		h.fail(CodeBuildFileChanged, buildFileDetail(s, verbose),
			"Running cargo_embargo on %s produced changes to the Android.bp file", s.StagingPath())
	}
	return nil
}

// stageRegistered temporarily registers k in the pseudo-crate, vendors and
// stages mc against the result. The registration is always removed again.
func (r *ManagedRepo) stageRegistered(ctx context.Context, mc *managedcrate.ManagedCrate, k *crate.Crate, unpinned bool) (s *managedcrate.Staged, err error) {
	pc := r.pseudoCrate()
	add := pc.AddPinned
	if unpinned {
		add = pc.AddUnpinned
	}
	if err := add(ctx, k.Name(), k.Version()); err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := pc.Remove(ctx, k.Name()); rmErr != nil && err == nil {
			s.Close()
			s, err = nil, rmErr
		}
	}()

	v, err := pc.Vendor(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	s, err = mc.Stage(ctx, v)
	if err != nil {
		return nil, err
	}
	r.observeStage(start)
	return s, nil
}

func generatorDetail(s *managedcrate.Staged, verbose bool) string {
	if !verbose {
		return ""
	}
	out := s.CargoEmbargoOutput()
	return fmt.Sprintf("stdout:\n%s\nstderr:\n%s\n", out.Stdout, out.Stderr)
}

func buildFileDetail(s *managedcrate.Staged, verbose bool) string {
	if !verbose {
		return ""
	}
	return s.AndroidBPDiff().Unified
}

func patchDetail(s *managedcrate.Staged, verbose bool) string {
	if !verbose {
		return ""
	}
	var b strings.Builder
	for _, p := range s.FailedPatches() {
		fmt.Fprintf(&b, "Failed to apply %s\nstdout:\n%s\nstderr:\n%s\n", p.Patch, p.Output.Stdout, p.Output.Stderr)
	}
	return b.String()
}
