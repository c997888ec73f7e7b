package tui

import "github.com/charmbracelet/lipgloss"

// Crate row statuses shown in the STATUS column.
const (
	StatusPending      = "pending"
	StatusVendoring    = "vendoring"
	StatusRegenerating = "regenerating"
	StatusStaging      = "staging"
	StatusChecking     = "checking"
	StatusOK           = "ok"
	StatusHealthy      = "healthy"
	StatusNeedsReview  = "healthy-needs-review"
	StatusUnhealthy    = "unhealthy"
	StatusFailed       = "failed"
	StatusSkipped      = "skipped"
)

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	blue   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		StatusOK:          green,
		StatusHealthy:     green,
		StatusNeedsReview: yellow,
		StatusSkipped:     yellow,
		StatusUnhealthy:   red,
		StatusFailed:      red,

		// Active states
		StatusVendoring:    blue,
		StatusRegenerating: blue,
		StatusStaging:      blue,
		StatusChecking:     blue,

		StatusPending: lipgloss.NewStyle().Faint(true),
	}

	severityStyles = map[string]lipgloss.Style{
		"info":    lipgloss.NewStyle().Faint(true),
		"warning": yellow.Bold(true),
		"error":   red.Bold(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// SeverityStyle returns the style used for a diagnostic severity label.
func SeverityStyle(severity string) lipgloss.Style {
	if s, ok := severityStyles[severity]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// IsTerminalStatus reports whether a row has finished processing.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusOK, StatusHealthy, StatusNeedsReview, StatusUnhealthy, StatusFailed, StatusSkipped:
		return true
	}
	return false
}
