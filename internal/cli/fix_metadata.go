package cli

import (
	"context"

	"github.com/spf13/cobra"

	"cratehealth/internal/managedrepo"
)

func newFixMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-metadata",
		Short: "Refresh version and URLs in METADATA for every managed crate",
		Args:  cobra.NoArgs,
		RunE:  runFixMetadata,
	}
}

func runFixMetadata(cmd *cobra.Command, _ []string) error {
	return withRepoEnv(cmd, func(env *commandEnv) error {
		names, err := namesOrAll(env, nil, true)
		if err != nil {
			return err
		}
		return runBatch(cmd, env, "fix-metadata", names, func(ctx context.Context, repo *managedrepo.ManagedRepo) error {
			return repo.FixMetadata(ctx)
		})
	})
}
