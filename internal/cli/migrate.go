package cli

import (
	"github.com/spf13/cobra"

	"cratehealth/internal/tui"
)

var migrateUnpinned []string

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <crate>...",
		Short: "Move healthy legacy crates into the managed repo",
		Long: `Checks each crate's migration health, then copies it into the managed repo,
replaces the legacy Android.bp with a pointer stub and regenerates the crate
list. Stops at the first crate that fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMigrate,
	}
	cmd.Flags().StringSliceVar(&migrateUnpinned, "unpinned", nil, "Crates to migrate with an open version requirement (adds to the config list)")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return withRepoEnv(cmd, func(env *commandEnv) error {
		out := cmd.OutOrStdout()
		repo, err := env.repo(out, &tui.DiagnosticReporter{W: out, Verbose: verbose}, nil)
		if err != nil {
			return err
		}

		unpinned := env.cfg.UnpinnedSet()
		for _, name := range migrateUnpinned {
			unpinned[name] = struct{}{}
		}
		return repo.Migrate(cmd.Context(), args, verbose, unpinned)
	})
}
