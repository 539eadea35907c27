// Package cmd provides command-line interface for UMD image processing.
// This file contains the commands that list, read and extract the files
// of an image.
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// isoCmd represents the parent command for all image operations.
var isoCmd = &cobra.Command{
	Use:   "iso",
	Short: "Read files and metadata from UMD images",
	Long: `Read files and metadata from PSP UMD images.

Commands:
  ls        List a directory of the image
  cat       Write one file of the image to standard output
  extract   Extract every file of the image
  index     Write the sector index of the image
  name      Find the file starting at a sector
  info      Show volume and PARAM.SFO information

Paths inside the image use '/' or '\' as separator. The empty path ""
is the whole image, and sce_lbn<start>_size<length> (hexadecimal) reads a
raw sector range.

With --buffer, an empty image path reopens the buffer of a previous run.

Examples:
  umdtools iso ls game.iso PSP_GAME/SYSDIR
  umdtools iso cat game.cso PSP_GAME/ICON0.PNG > ICON0.PNG`,
}

var isoLsCmd = &cobra.Command{
	Use:   "ls [image_file] [directory]",
	Short: "List a directory of the image",
	Long: `List a directory of the image.

Each line shows a D flag for directories, the start sector (LBA) in
hexadecimal, the size in bytes and the name. Without a directory the root
is listed.

Example:
  umdtools iso ls game.iso
  umdtools iso ls game.iso PSP_GAME`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, err := newProcessor(cmd)
		if err != nil {
			return err
		}

		dir := ""
		if len(args) > 1 {
			dir = args[1]
		}
		entries, err := processor.List(args[0], dir)
		if err != nil {
			return fmt.Errorf("failed to list directory: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, e := range entries {
			flag := " "
			if e.Dir {
				flag = "D"
			}
			fmt.Fprintf(out, "%s %08X %10d %s\n", flag, e.LBA, e.Size, e.Name)
		}
		return nil
	},
}

var isoCatCmd = &cobra.Command{
	Use:   "cat [image_file] [file_path]",
	Short: "Write one file of the image to standard output",
	Long: `Write one file of the image to standard output.

The file path may be a sce_lbn<start>_size<length> path to read a raw
sector range.

Example:
  umdtools iso cat game.iso PSP_GAME/PARAM.SFO > PARAM.SFO
  umdtools iso cat game.iso sce_lbn0x5fa0_size0x1428 > chunk.bin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		if err := processor.Cat(args[0], args[1], cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		return nil
	},
}

var isoExtractCmd = &cobra.Command{
	Use:   "extract [image_file] [output_directory]",
	Short: "Extract every file of the image",
	Long: `Extract every file of the image.

The directory structure of the image is recreated below the output
directory and each file keeps its recording date.

Example:
  umdtools iso extract game.iso ./output/
  umdtools iso extract -v game.7z ./output/`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, err := newProcessor(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Processing UMD image file: %s\n", args[0])
		fmt.Printf("Output directory: %s\n", args[1])

		count, err := processor.Extract(args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to extract image: %w", err)
		}

		fmt.Printf("%d files extracted to: %s\n", count, args[1])
		return nil
	},
}

var isoIndexCmd = &cobra.Command{
	Use:   "index [image_file] [output_file]",
	Short: "Write the sector index of the image",
	Long: `Write the sector index of the image.

Every file and directory is listed with its start sector and size,
followed by the total size of the files, the image size and the number of
bytes not covered by any file. Use "-" or omit the output file to print
the index.

Example:
  umdtools iso index game.iso index.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, err := newProcessor(cmd)
		if err != nil {
			return err
		}

		outputFile := "-"
		if len(args) > 1 {
			outputFile = args[1]
		}
		if err := processor.Index(args[0], outputFile); err != nil {
			return fmt.Errorf("failed to write index: %w", err)
		}
		return nil
	},
}

var isoNameCmd = &cobra.Command{
	Use:   "name [image_file] [sector]",
	Short: "Find the file starting at a sector",
	Long: `Find the file or directory whose first sector is the given one.

The sector may be decimal or hexadecimal with a 0x prefix.

Example:
  umdtools iso name game.iso 0x5fa0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sector, err := strconv.ParseInt(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid sector %q: %w", args[1], err)
		}

		processor, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		name, found, err := processor.Name(args[0], int(sector))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no file starts at sector %d", sector)
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var isoInfoCmd = &cobra.Command{
	Use:   "info [image_file]",
	Short: "Show volume and PARAM.SFO information",
	Long: `Show the container format, volume descriptor, disc id and the
PARAM.SFO entries of the image as YAML.

Example:
  umdtools iso info game.pbp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		info, err := processor.Info(args[0])
		if err != nil {
			return fmt.Errorf("failed to read image information: %w", err)
		}

		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent(2)
		if err := encoder.Encode(info); err != nil {
			return err
		}
		return encoder.Close()
	},
}

// init initializes the iso command with its subcommands.
func init() {
	rootCmd.AddCommand(isoCmd)

	isoCmd.AddCommand(isoLsCmd)
	isoCmd.AddCommand(isoCatCmd)
	isoCmd.AddCommand(isoExtractCmd)
	isoCmd.AddCommand(isoIndexCmd)
	isoCmd.AddCommand(isoNameCmd)
	isoCmd.AddCommand(isoInfoCmd)
}
