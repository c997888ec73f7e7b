package managedrepo

import (
	"fmt"
	"io"
	"strings"
)

// Severity ranks a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Code identifies the kind of finding a diagnostic reports.
type Code string

const (
	CodeFound            Code = "found"
	CodeMigrationDenied  Code = "migration-denied"
	CodeMissingBuildFile Code = "missing-android-bp"
	CodeMissingConfig    Code = "missing-cargo-embargo-json"
	CodeGeneratorFailed  Code = "generator-failed"
	CodeBuildFileChanged Code = "android-bp-changed"
	CodeVersionChanged   Code = "version-changed"
	CodePatchFailed      Code = "patch-failed"
	CodeTreeDiff         Code = "tree-diff"
	CodeNeedsReview      Code = "needs-review"
	CodeVerdict          Code = "verdict"
)

func (c Code) sentinel() error {
	switch c {
	case CodeMigrationDenied:
		return ErrMigrationDenied
	case CodeMissingBuildFile, CodeMissingConfig:
		return ErrPrerequisiteMissing
	case CodeGeneratorFailed:
		return ErrGeneratorFailure
	case CodeBuildFileChanged, CodeTreeDiff:
		return ErrDriftDetected
	case CodePatchFailed:
		return ErrPatchFailure
	}
	return nil
}

// Diagnostic is one finding of a health check.
type Diagnostic struct {
	Crate    string   `json:"crate"`
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Detail holds verbose output such as tool stdout or a unified diff.
	Detail string `json:"detail,omitempty"`
}

// Verdict is the outcome of a migration health check.
type Verdict string

const (
	VerdictHealthy     Verdict = "healthy"
	VerdictNeedsReview Verdict = "healthy-needs-review"
	VerdictUnhealthy   Verdict = "unhealthy"
)

// Healthy reports whether the crate may be migrated.
func (v Verdict) Healthy() bool {
	return v == VerdictHealthy || v == VerdictNeedsReview
}

// HealthReport is the full result of a migration health check.
type HealthReport struct {
	Crate         string `json:"crate"`
	LegacyVersion string `json:"legacy_version,omitempty"`
	// Version is the version cargo resolved for the crate. It is empty when
	// the check stopped before vendoring.
	Version     string       `json:"version,omitempty"`
	Verdict     Verdict      `json:"verdict"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// NeedsReview reports whether the crate passed only because it was checked
// unpinned and its differences still need a human look.
func (r HealthReport) NeedsReview() bool {
	return r.Verdict == VerdictNeedsReview
}

// Failures returns the error-severity diagnostics.
func (r HealthReport) Failures() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Has reports whether a diagnostic with the given code was recorded.
func (r HealthReport) Has(code Code) bool {
	for _, d := range r.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Reporter receives diagnostics as soon as they are discovered.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(d Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// PlainReporter writes one line per diagnostic, followed by its detail.
type PlainReporter struct {
	W io.Writer
}

func (p PlainReporter) Report(d Diagnostic) {
	if p.W == nil {
		return
	}
	fmt.Fprintln(p.W, d.Message)
	if d.Detail != "" {
		fmt.Fprint(p.W, d.Detail)
		if !strings.HasSuffix(d.Detail, "\n") {
			fmt.Fprintln(p.W)
		}
	}
}

// Progress follows per-crate work in batch operations.
type Progress interface {
	Start(name, step string)
	Done(name string, err error)
}

type nopProgress struct{}

func (nopProgress) Start(string, string) {}
func (nopProgress) Done(string, error)   {}
