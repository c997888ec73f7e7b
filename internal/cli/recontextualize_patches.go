package cli

import (
	"context"

	"github.com/spf13/cobra"

	"cratehealth/internal/managedrepo"
)

var recontextualizeAll bool

func newRecontextualizePatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recontextualize-patches [crate...]",
		Short: "Rewrite patch file paths relative to the crate root",
		RunE:  runRecontextualizePatches,
	}
	cmd.Flags().BoolVar(&recontextualizeAll, "all", false, "Process every managed crate")
	return cmd
}

func runRecontextualizePatches(cmd *cobra.Command, args []string) error {
	if err := requireNamesOrAll(args, recontextualizeAll); err != nil {
		return err
	}
	return withRepoEnv(cmd, func(env *commandEnv) error {
		names, err := namesOrAll(env, args, recontextualizeAll)
		if err != nil {
			return err
		}
		return runBatch(cmd, env, "recontextualize-patches", names, func(ctx context.Context, repo *managedrepo.ManagedRepo) error {
			return repo.RecontextualizePatches(ctx, names)
		})
	})
}
