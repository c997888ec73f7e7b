package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootDir    string
	configPath string
	outputJSON bool
	verbose    bool
	noProgress bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crate-health",
		Short:         "Migrate, import and check crates in the managed crates repository",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "Path to the source tree root (default $CRATE_HEALTH_ROOT or cwd)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to crate_health.yaml (default inside the managed repo)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show tool output and diffs, and mirror logs to stderr")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the interactive progress table")

	cmd.AddCommand(newMigrationHealthCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newRegenerateCmd())
	cmd.AddCommand(newStageCmd())
	cmd.AddCommand(newPreuploadCheckCmd())
	cmd.AddCommand(newFixLicensesCmd())
	cmd.AddCommand(newFixMetadataCmd())
	cmd.AddCommand(newRecontextualizePatchesCmd())
	cmd.AddCommand(newCratesCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}
