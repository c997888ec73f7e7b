package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"cratehealth/internal/managedrepo"
)

func TestDiagnosticReporterHidesDetailUnlessVerbose(t *testing.T) {
	var buf bytes.Buffer
	r := &DiagnosticReporter{W: &buf}
	r.Report(managedrepo.Diagnostic{
		Crate:    "foo",
		Code:     managedrepo.CodeTreeDiff,
		Severity: managedrepo.SeverityError,
		Message:  "Found differences",
		Detail:   "--- a\n+++ b\n",
	})
	out := buf.String()
	if !strings.Contains(out, "Found differences") {
		t.Errorf("expected message in output, got %q", out)
	}
	if strings.Contains(out, "+++ b") {
		t.Errorf("expected detail to be hidden, got %q", out)
	}

	buf.Reset()
	r.Verbose = true
	r.Report(managedrepo.Diagnostic{
		Severity: managedrepo.SeverityError,
		Message:  "Found differences",
		Detail:   "--- a\n+++ b\n",
	})
	if !strings.Contains(buf.String(), "        +++ b") {
		t.Errorf("expected indented detail, got %q", buf.String())
	}
}

func TestVerdictStatus(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Crate foo is healthy", StatusHealthy},
		{"Crate foo is UNHEALTHY", StatusUnhealthy},
		{"something else", ""},
	}
	for _, tt := range tests {
		if got := verdictStatus(tt.message); got != tt.want {
			t.Errorf("verdictStatus(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestProgressReporterSendsRowUpdates(t *testing.T) {
	var msgs []tea.Msg
	r := NewProgressReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })

	r.Start("foo", StatusRegenerating)
	r.Done("foo", nil)
	r.Done("bar", errors.New("boom"))

	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	start := msgs[0].(RowUpdateMsg)
	if start.Key != "foo" || start.Fields["STATUS"] != StatusRegenerating {
		t.Errorf("unexpected start message %+v", start)
	}
	ok := msgs[1].(RowUpdateMsg)
	if ok.Fields["STATUS"] != StatusOK {
		t.Errorf("expected ok status, got %+v", ok)
	}
	failed := msgs[2].(RowUpdateMsg)
	if failed.Fields["STATUS"] != StatusFailed || failed.Fields["STEP"] != "boom" {
		t.Errorf("unexpected failure message %+v", failed)
	}
}

func TestProgressReporterDrivesModel(t *testing.T) {
	m := NewCrateProgressModel("regenerate", []string{"foo", "bar"})
	r := NewProgressReporter(func(msg tea.Msg) {
		updated, _ := m.Update(msg)
		m = updated.(ProgressModel)
	})

	r.Start("foo", StatusRegenerating)
	r.Done("foo", nil)

	processed, total := m.progressCounts()
	if processed != 1 || total != 2 {
		t.Errorf("progressCounts() = %d/%d, want 1/2", processed, total)
	}
}

func TestPlainProgress(t *testing.T) {
	var buf bytes.Buffer
	p := &PlainProgress{W: &buf}
	p.Start("foo", StatusStaging)
	p.Done("foo", nil)
	p.Done("bar", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "foo") || !strings.Contains(out, StatusOK) {
		t.Errorf("expected ok line for foo, got %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("expected failure reason, got %q", out)
	}
}

func TestDetectModeNonFile(t *testing.T) {
	var buf bytes.Buffer
	if got := DetectMode(&buf, false, false); got != ModePlain {
		t.Errorf("DetectMode(buffer) = %v, want ModePlain", got)
	}
	if got := DetectMode(&buf, false, true); got != ModeJSON {
		t.Errorf("DetectMode(json) = %v, want ModeJSON", got)
	}
}

func TestStatusWriterWriteUsesLastLine(t *testing.T) {
	sw := &StatusWriter{w: &bytes.Buffer{}, done: make(chan struct{})}
	n, err := sw.Write([]byte("Vendoring crates\nImporting foo\n\n"))
	if err != nil || n == 0 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if sw.message != "Importing foo" {
		t.Errorf("message = %q, want %q", sw.message, "Importing foo")
	}
}
