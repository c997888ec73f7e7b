package cli

import (
	"context"

	"github.com/spf13/cobra"

	"cratehealth/internal/managedrepo"
)

func newFixLicensesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-licenses",
		Short: "Rewrite MODULE_LICENSE files for every managed crate",
		Args:  cobra.NoArgs,
		RunE:  runFixLicenses,
	}
}

func runFixLicenses(cmd *cobra.Command, _ []string) error {
	return withRepoEnv(cmd, func(env *commandEnv) error {
		names, err := namesOrAll(env, nil, true)
		if err != nil {
			return err
		}
		return runBatch(cmd, env, "fix-licenses", names, func(ctx context.Context, repo *managedrepo.ManagedRepo) error {
			return repo.FixLicenses(ctx)
		})
	})
}
