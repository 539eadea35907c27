// Package cmd provides command-line interface for UMD image processing.
// This file contains the commands that manage the sector buffer files.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/umd"
)

// bufferCmd represents the parent command for the sector buffer.
var bufferCmd = &cobra.Command{
	Use:   "buffer",
	Short: "Manage the sector buffer files",
	Long: `Manage the sector buffer files written when --buffer is used.

Commands:
  clean     Remove the buffer files from the tmp directory

Examples:
  umdtools buffer clean
  umdtools buffer clean --tmp-dir ./cache`,
}

var bufferCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the buffer files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := umd.DeleteBufferFiles(cfg.ReaderOptions()); err != nil {
			return fmt.Errorf("failed to remove buffer files: %w", err)
		}
		common.LogInfo(common.InfoBufferFilesFreed, cfg.TmpDirectory)
		return nil
	},
}

// init initializes the buffer command with its subcommands.
func init() {
	rootCmd.AddCommand(bufferCmd)
	bufferCmd.AddCommand(bufferCleanCmd)
}
