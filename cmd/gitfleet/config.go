// SPDX-License-Identifier: MIT
package gitfleet

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/config"
)

var errInitAborted = errors.New("config init aborted")

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the gitfleet configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: "Writes the default configuration to the resolved config path " +
		"(--config, GITFLEET_CONFIG, or the user config directory). Paths ending in .toml are written as TOML.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		override := getStringFlag(cmd, "path")
		if override == "" {
			override = flagConfig
		}
		cfgPath, err := config.ConfigPath(override)
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfgPath); err == nil && !force {
			ok, err := cliio.PromptYesNo(cmd.ErrOrStderr(), cmd.InOrStdin(),
				fmt.Sprintf("Config already exists at %s. Overwrite? [y/N] ", cfgPath))
			if err != nil {
				return err
			}
			if !ok {
				return errInitAborted
			}
		}

		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		debugf(cmd, "config written to %s", cfgPath)
		return writeLine(cmd, "Wrote config to %s", cfgPath)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, cfgPath, err := config.Resolve(flagConfig)
		if err != nil {
			return err
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		if format == cliio.FormatTable {
			format = cliio.FormatYAML
		}
		infof(cmd, "# %s", cfgPath)
		return writeStructured(cmd, format, cfg)
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config without prompting")
	configInitCmd.Flags().String("path", "", "write the config to this path instead")
	addFormatFlags(configShowCmd)

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
