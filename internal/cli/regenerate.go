package cli

import (
	"context"

	"github.com/spf13/cobra"

	"cratehealth/internal/managedrepo"
)

var (
	regenerateAll            bool
	regenerateUpdateMetadata bool
)

func newRegenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regenerate [crate...]",
		Short: "Re-vendor crates and regenerate their build files",
		RunE:  runRegenerate,
	}
	cmd.Flags().BoolVar(&regenerateAll, "all", false, "Regenerate every managed crate")
	cmd.Flags().BoolVar(&regenerateUpdateMetadata, "update-metadata", false, "Also rewrite METADATA for each crate")
	return cmd
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	if err := requireNamesOrAll(args, regenerateAll); err != nil {
		return err
	}
	return withRepoEnv(cmd, func(env *commandEnv) error {
		names, err := namesOrAll(env, args, regenerateAll)
		if err != nil {
			return err
		}
		return runBatch(cmd, env, "regenerate", names, func(ctx context.Context, repo *managedrepo.ManagedRepo) error {
			return repo.Regenerate(ctx, names, regenerateUpdateMetadata)
		})
	})
}
