package cli

import (
	"io"

	"github.com/spf13/cobra"

	"cratehealth/internal/tui"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <crate>",
		Short: "Add a crate from crates.io together with its missing dependencies",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	return withRepoEnv(cmd, func(env *commandEnv) error {
		out := cmd.OutOrStdout()
		var progress io.Writer = out
		if tui.DetectMode(out, noProgress || verbose, outputJSON) == tui.ModeTUI {
			status := tui.NewStatusWriter(cmd.ErrOrStderr())
			status.Update("importing " + args[0])
			defer status.Stop()
			progress = status
		}

		repo, err := env.repo(progress, &tui.DiagnosticReporter{W: out, Verbose: verbose}, nil)
		if err != nil {
			return err
		}
		return repo.Import(cmd.Context(), args[0])
	})
}
