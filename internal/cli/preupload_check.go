package cli

import (
	"context"

	"github.com/spf13/cobra"

	"cratehealth/internal/managedrepo"
)

func newPreuploadCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preupload-check [file...]",
		Short: "Check the managed repo is consistent before upload",
		Long: `Verifies that the managed crate directories, the pseudo-crate Cargo.toml
and the crate list agree, then stages every changed crate and checks the
result. Files are paths relative to the managed repo, as passed by a
pre-upload hook.`,
		RunE: runPreuploadCheck,
	}
}

func runPreuploadCheck(cmd *cobra.Command, args []string) error {
	return withRepoEnv(cmd, func(env *commandEnv) error {
		names := managedrepo.ChangedCrates(args)
		return runBatch(cmd, env, "preupload-check", names, func(ctx context.Context, repo *managedrepo.ManagedRepo) error {
			return repo.PreuploadCheck(ctx, args)
		})
	})
}
