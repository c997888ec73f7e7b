package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cratehealth/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the crate_health.yaml configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration in YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration against the source tree",
		Args:  cobra.NoArgs,
		RunE:  runConfigValidate,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	results := cfg.Validate(pp.Root)

	out := cmd.OutOrStdout()
	if outputJSON {
		if results == nil {
			results = []config.ValidationResult{}
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		for _, r := range results {
			fmt.Fprintf(out, "%s: %s\n", r.Level, r.Message)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "config OK")
		}
	}

	if config.HasErrors(results) {
		return errors.New("config has errors")
	}
	return nil
}
