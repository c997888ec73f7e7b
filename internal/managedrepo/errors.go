package managedrepo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"cratehealth/internal/crate"
	"cratehealth/internal/managedcrate"
)

var (
	ErrAlreadyExists        = errors.New("crate already exists")
	ErrAmbiguousVersion     = crate.ErrAmbiguousVersion
	ErrPrerequisiteMissing  = errors.New("migration prerequisite missing")
	ErrMigrationDenied      = errors.New("crate is on the migration denylist")
	ErrLicenseUnsatisfied   = errors.New("license requirements not satisfied")
	ErrConsistencyViolation = errors.New("managed repo is inconsistent")

	ErrGeneratorFailure = managedcrate.ErrGeneratorFailure
	ErrDriftDetected    = managedcrate.ErrDriftDetected
	ErrPatchFailure     = managedcrate.ErrPatchFailure
)

// UnhealthyError is returned by a health check whose verdict is unhealthy.
// It unwraps to the sentinel of every failing diagnostic.
type UnhealthyError struct {
	Report HealthReport
}

func (e *UnhealthyError) Error() string {
	var reasons []string
	for _, d := range e.Report.Failures() {
		reasons = append(reasons, d.Message)
	}
	if len(reasons) == 0 {
		return fmt.Sprintf("crate %s is unhealthy", e.Report.Crate)
	}
	return fmt.Sprintf("crate %s is unhealthy: %s", e.Report.Crate, strings.Join(reasons, "; "))
}

func (e *UnhealthyError) Unwrap() []error {
	seen := map[error]bool{}
	var out []error
	for _, d := range e.Report.Failures() {
		if err := d.Code.sentinel(); err != nil && !seen[err] {
			seen[err] = true
			out = append(out, err)
		}
	}
	return out
}

// ConsistencyError describes how the manifest, the managed directory and the
// crate list disagree.
type ConsistencyError struct {
	// DirsNotInManifest are managed directories with no manifest dependency.
	DirsNotInManifest []string
	// ManifestWithoutDir are manifest dependencies with no managed directory.
	ManifestWithoutDir []string
	// ListNotInManifest are crate-list entries with no manifest dependency.
	ListNotInManifest []string
	// ManifestNotInList are manifest dependencies missing from the crate list.
	ManifestNotInList []string
	// ListOutOfOrder is set when the crate list holds the right names but is
	// not sorted or repeats an entry.
	ListOutOfOrder bool
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	b.WriteString(ErrConsistencyViolation.Error())
	write := func(label string, names []string) {
		if len(names) > 0 {
			fmt.Fprintf(&b, "\n%s: %s", label, strings.Join(names, ", "))
		}
	}
	write("Directories not in Cargo.toml", e.DirsNotInManifest)
	write("Cargo.toml deps with no directory", e.ManifestWithoutDir)
	write("crate-list.txt entries not in Cargo.toml", e.ListNotInManifest)
	write("Cargo.toml deps not in crate-list.txt", e.ManifestNotInList)
	if e.ListOutOfOrder {
		b.WriteString("\ncrate-list.txt is not sorted or has duplicate entries")
	}
	return b.String()
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistencyViolation
}

func (e *ConsistencyError) empty() bool {
	return len(e.DirsNotInManifest) == 0 && len(e.ManifestWithoutDir) == 0 &&
		len(e.ListNotInManifest) == 0 && len(e.ManifestNotInList) == 0 && !e.ListOutOfOrder
}

// difference returns the sorted members of a that are not in b.
func difference(a, b map[string]struct{}) []string {
	var out []string
	for name := range a {
		if _, ok := b[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func setOf(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
