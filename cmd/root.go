// Package cmd provides command-line interface functionality for UMDTools.
// UMDTools reads PSP UMD disc images (ISO, CSO, ZSO and PBP) and gives
// access to their files, sectors and metadata.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hansbonini/umdtools/pkg"
	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/config"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "umdtools",
	Short: "Tools for reading PSP UMD disc images",
	Long: `UMDTools - A collection of utilities for reading PSP UMD disc images.

Currently supports:
  - ISO, CSO (deflate), ZSO (LZ4) and PBP (EBOOT) images
  - Images packed in ZIP, 7z, RAR or gzip archives
  - Direct sector access through sce_lbn<start>_size<length> paths
  - Sector buffering to a host-side cache file
  - Mounting an image read-only through FUSE

Examples:
  umdtools iso ls game.cso PSP_GAME
  umdtools iso cat game.iso PSP_GAME/PARAM.SFO > PARAM.SFO
  umdtools iso cat game.iso sce_lbn0x5fa0_size0x1428 > chunk.bin
  umdtools iso extract game.zip ./output/
  umdtools iso index game.iso index.txt
  umdtools iso info game.pbp
  umdtools mount game.iso /mnt/umd
  umdtools buffer clean

Use 'umdtools [command] --help' for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main() and serves as the entry point for command execution.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig builds the configuration from the optional config file and
// the global flags. Flags given on the command line win over the file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return cfg, fmt.Errorf("error getting config flag: %w", err)
	}
	if configFile != "" {
		if cfg, err = config.Load(configFile); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("buffer") {
		cfg.Buffering, _ = flags.GetBool("buffer")
	}
	if flags.Changed("tmp-dir") {
		cfg.TmpDirectory, _ = flags.GetString("tmp-dir")
	}
	if flags.Changed("cache-blocks") {
		cfg.BlockCacheSize, _ = flags.GetInt("cache-blocks")
	}

	common.SetVerboseMode(cfg.Verbose)
	return cfg, nil
}

// newProcessor loads the configuration and creates the image processor
func newProcessor(cmd *cobra.Command) (*pkg.UMDProcessor, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return pkg.NewUMDProcessor(cfg), nil
}

// addGlobalFlags defines the flags shared by every command
func addGlobalFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "YAML configuration file")
	flags.BoolP("verbose", "v", false, "Enable verbose output")
	flags.Bool("buffer", false, "Buffer every sector read into the tmp directory")
	flags.String("tmp-dir", os.TempDir(), "Directory for buffer files and staged archives")
	flags.Int("cache-blocks", 0, "Decompressed CSO/ZSO blocks kept in memory")
}

// init initializes the root command with the global flags.
func init() {
	addGlobalFlags(rootCmd.PersistentFlags())
}
