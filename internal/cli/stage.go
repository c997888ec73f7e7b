package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"cratehealth/internal/managedrepo"
)

var stageAll bool

func newStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage [crate...]",
		Short: "Stage crates from freshly vendored sources and check the result",
		RunE:  runStage,
	}
	cmd.Flags().BoolVar(&stageAll, "all", false, "Stage every managed crate")
	return cmd
}

func runStage(cmd *cobra.Command, args []string) error {
	if err := requireNamesOrAll(args, stageAll); err != nil {
		return err
	}
	return withRepoEnv(cmd, func(env *commandEnv) error {
		names, err := namesOrAll(env, args, stageAll)
		if err != nil {
			return err
		}
		return runBatch(cmd, env, "stage", names, func(ctx context.Context, repo *managedrepo.ManagedRepo) error {
			return repo.Stage(ctx, names)
		})
	})
}

func requireNamesOrAll(args []string, all bool) error {
	if all && len(args) > 0 {
		return errors.New("pass crate names or --all, not both")
	}
	if !all && len(args) == 0 {
		return errors.New("no crates given; pass crate names or --all")
	}
	return nil
}
