package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newCratesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crates",
		Short: "List the crates in the managed repo",
		Args:  cobra.NoArgs,
		RunE:  runCrates,
	}
}

func runCrates(cmd *cobra.Command, _ []string) error {
	return withRepoEnv(cmd, func(env *commandEnv) error {
		repo, err := env.repo(io.Discard, nil, nil)
		if err != nil {
			return err
		}
		names, err := repo.AllCrateNames()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			if names == nil {
				names = []string{}
			}
			data, err := json.MarshalIndent(names, "", "  ")
			if err != nil {
				return fmt.Errorf("encode json: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	})
}
