// Package cmd provides command-line interface for UMD image processing.
// This file contains the command that writes a configuration file.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

// configInitCmd writes the effective configuration, defaults merged with
// the global flags, so it can be edited and passed back with --config.
var configInitCmd = &cobra.Command{
	Use:   "init [output_file]",
	Short: "Write a configuration file",
	Long: `Write the current configuration as YAML.

The file holds the defaults overridden by any global flag given, e.g.:

  buffering: true
  tmp_directory: /tmp
  block_cache_size: 16
  verbose: false

Example:
  umdtools config init --buffer umdtools.yaml
  umdtools iso ls -c umdtools.yaml game.cso`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Save(args[0]); err != nil {
			return fmt.Errorf("failed to write configuration: %w", err)
		}
		fmt.Printf("Configuration written to: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}
