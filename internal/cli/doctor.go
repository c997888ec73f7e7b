package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"cratehealth/internal/config"
	"cratehealth/internal/paths"
	"cratehealth/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, configuration and repository layout",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, cfg, cfgErr := loadConfig()
	if cfgErr != nil {
		checks := []healthCheck{{Name: "Config", Status: "error", Summary: cfgErr.Error()}}
		return writeDoctorResult(cmd, rootDir, checks)
	}

	var checks []healthCheck
	checks = append(checks, checkTools(cmd, cfg))
	checks = append(checks, checkConfig(pp, cfg))
	checks = append(checks, checkLayout(pp))

	return writeDoctorResult(cmd, pp.Root, checks)
}

func checkTools(cmd *cobra.Command, cfg config.Config) healthCheck {
	statuses := tools.Detect(cmd.Context(), newRunner(), tools.Executables(cfg.Tools))

	var toolInfo []string
	for _, st := range statuses {
		if st.Satisfied {
			label := st.Tool
			if st.Version != "" {
				label += " " + st.Version
			}
			toolInfo = append(toolInfo, label)
		}
	}

	missing := tools.Missing(statuses)
	if len(missing) == 0 {
		return healthCheck{Name: "Tools", Status: "ok", Summary: strings.Join(toolInfo, ", ")}
	}
	var problems []string
	for _, st := range missing {
		problems = append(problems, fmt.Sprintf("%s: %s", st.Tool, st.Error))
	}
	return healthCheck{Name: "Tools", Status: "error", Summary: strings.Join(problems, "; ")}
}

func checkConfig(pp paths.RepoPaths, cfg config.Config) healthCheck {
	results := cfg.Validate(pp.Root)
	var errs, warns int
	for _, r := range results {
		if r.Level == "error" {
			errs++
		} else {
			warns++
		}
	}
	switch {
	case errs > 0:
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%d errors, %d warnings", errs, warns)}
	case warns > 0:
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%d warnings", warns)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: pp.Rel(pp.ConfigFile)}
}

func checkLayout(pp paths.RepoPaths) healthCheck {
	var missing []string
	for _, dir := range []string{pp.ManagedDir, pp.PseudoCrate, pp.LegacyDir} {
		exists, err := paths.DirExists(dir)
		if err != nil {
			return healthCheck{Name: "Layout", Status: "error", Summary: err.Error()}
		}
		if !exists {
			missing = append(missing, pp.Rel(dir))
		}
	}
	if len(missing) > 0 {
		return healthCheck{Name: "Layout", Status: "error", Summary: "missing " + strings.Join(missing, ", ")}
	}
	return healthCheck{Name: "Layout", Status: "ok", Summary: pp.ManagedRepoRel}
}

func writeDoctorResult(cmd *cobra.Command, root string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("TREE HEALTH:")+" "+root)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}
