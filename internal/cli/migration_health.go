package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cratehealth/internal/managedrepo"
	"cratehealth/internal/tui"
)

var healthUnpinned bool

func newMigrationHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migration-health <crate>...",
		Short: "Check whether legacy crates can be migrated without changes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMigrationHealth,
	}
	cmd.Flags().BoolVar(&healthUnpinned, "unpinned", false, "Check with an open version requirement and tolerate differences")
	return cmd
}

func runMigrationHealth(cmd *cobra.Command, args []string) error {
	return withRepoEnv(cmd, func(env *commandEnv) error {
		out := cmd.OutOrStdout()

		var reporter managedrepo.Reporter = &tui.DiagnosticReporter{W: out, Verbose: verbose}
		progressOut := out
		if outputJSON {
			reporter = nil
			progressOut = nil
		}
		repo, err := env.repo(progressOut, reporter, nil)
		if err != nil {
			return err
		}

		var (
			reports  []managedrepo.HealthReport
			failures []error
		)
		for _, name := range args {
			unpinned := healthUnpinned || env.cfg.IsUnpinned(name)
			report, err := repo.MigrationHealth(cmd.Context(), name, verbose, unpinned)
			reports = append(reports, report)
			if err != nil {
				var unhealthy *managedrepo.UnhealthyError
				if !errors.As(err, &unhealthy) {
					return err
				}
				failures = append(failures, err)
			}
		}

		if outputJSON {
			data, err := json.MarshalIndent(reports, "", "  ")
			if err != nil {
				return fmt.Errorf("encode json: %w", err)
			}
			fmt.Fprintln(out, string(data))
		}

		if len(failures) > 0 {
			return fmt.Errorf("%d of %d crates unhealthy: %w", len(failures), len(args), errors.Join(failures...))
		}
		return nil
	})
}
