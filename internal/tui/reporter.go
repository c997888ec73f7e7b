package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"cratehealth/internal/managedrepo"
)

// DiagnosticReporter prints diagnostics with a colored severity label.
// Detail blocks are indented and only shown when Verbose is set.
type DiagnosticReporter struct {
	W       io.Writer
	Verbose bool

	mu sync.Mutex
}

// Report implements managedrepo.Reporter.
func (r *DiagnosticReporter) Report(d managedrepo.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	label := SeverityStyle(string(d.Severity)).Render(pad(string(d.Severity), 7))
	if d.Code == managedrepo.CodeVerdict {
		label = StatusStyle(verdictStatus(d.Message)).Render(pad("verdict", 7))
	}
	fmt.Fprintf(r.W, "%s %s\n", label, d.Message)
	if !r.Verbose || d.Detail == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(d.Detail, "\n"), "\n") {
		fmt.Fprintf(r.W, "        %s\n", line)
	}
}

func verdictStatus(message string) string {
	message = strings.ToLower(message)
	switch {
	case strings.Contains(message, string(managedrepo.VerdictUnhealthy)):
		return StatusUnhealthy
	case strings.Contains(message, string(managedrepo.VerdictHealthy)):
		return StatusHealthy
	}
	return ""
}

// ProgressReporter adapts bubbletea message sending to managedrepo.Progress.
// Rows are keyed by crate name and must carry STATUS and STEP columns.
type ProgressReporter struct {
	send func(tea.Msg)
}

// NewProgressReporter wraps the send callback handed out by RunWithWork.
func NewProgressReporter(send func(tea.Msg)) *ProgressReporter {
	return &ProgressReporter{send: send}
}

// Start implements managedrepo.Progress.
func (r *ProgressReporter) Start(name, step string) {
	r.send(RowUpdateMsg{
		Key: name,
		Fields: map[string]string{
			"STATUS": step,
			"STEP":   step,
		},
	})
}

// Done implements managedrepo.Progress.
func (r *ProgressReporter) Done(name string, err error) {
	fields := map[string]string{"STATUS": StatusOK, "STEP": "-"}
	if err != nil {
		fields["STATUS"] = StatusFailed
		fields["STEP"] = err.Error()
	}
	r.send(RowUpdateMsg{Key: name, Fields: fields})
}

// CrateColumns is the table layout used by batch crate commands.
func CrateColumns() []Column {
	return []Column{
		{Header: "CRATE", Width: 28},
		{Header: "STATUS", Width: 20},
		{Header: "STEP", Width: 40},
	}
}

// NewCrateProgressModel builds a progress table with one pending row per crate.
func NewCrateProgressModel(title string, names []string) ProgressModel {
	m := NewProgressModel(title, CrateColumns())
	for _, name := range names {
		m.AddRow(name, []string{name, StatusPending, "-"})
	}
	return m
}

// PlainProgress writes one line per finished crate. It is used when the
// output is not a terminal.
type PlainProgress struct {
	W io.Writer

	mu sync.Mutex
}

// Start implements managedrepo.Progress.
func (p *PlainProgress) Start(name, step string) {}

// Done implements managedrepo.Progress.
func (p *PlainProgress) Done(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		fmt.Fprintf(p.W, "%-28s  %s  %v\n", name, StatusFailed, err)
		return
	}
	fmt.Fprintf(p.W, "%-28s  %s\n", name, StatusOK)
}
