package cli

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cratehealth/internal/managedrepo"
	"cratehealth/internal/tui"
)

// runBatch runs a per-crate operation behind the progress table when stdout
// is a terminal, otherwise with one plain line per crate.
func runBatch(cmd *cobra.Command, env *commandEnv, title string, names []string, fn func(ctx context.Context, repo *managedrepo.ManagedRepo) error) error {
	out := cmd.OutOrStdout()

	if tui.DetectMode(out, noProgress || verbose, outputJSON) != tui.ModeTUI || len(names) == 0 {
		reporter := &tui.DiagnosticReporter{W: out, Verbose: verbose}
		repo, err := env.repo(out, reporter, &tui.PlainProgress{W: out})
		if err != nil {
			return err
		}
		return fn(cmd.Context(), repo)
	}

	var workErr error
	model := tui.NewCrateProgressModel(title, names)
	err := tui.RunWithWork(cmd.Context(), out, model, func(ctx context.Context, send func(tea.Msg)) {
		// Output lines would tear the table; they still reach the log.
		repo, err := env.repo(io.Discard, nil, tui.NewProgressReporter(send))
		if err != nil {
			workErr = err
			return
		}
		workErr = fn(ctx, repo)
	})
	if err != nil {
		return err
	}
	return workErr
}

// namesOrAll returns args, or every managed crate when all is set.
func namesOrAll(env *commandEnv, args []string, all bool) ([]string, error) {
	if !all {
		return args, nil
	}
	repo, err := env.repo(io.Discard, nil, nil)
	if err != nil {
		return nil, err
	}
	return repo.AllCrateNames()
}
