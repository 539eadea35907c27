// Package cmd provides command-line interface for UMD image processing.
// This file contains the command that mounts an image through FUSE.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/umdfs"
)

// mountCmd serves the files of an image read-only on a mount point
// until it is unmounted or interrupted.
var mountCmd = &cobra.Command{
	Use:   "mount [image_file] [mount_point]",
	Short: "Mount a UMD image read-only through FUSE",
	Long: `Mount a UMD image read-only through FUSE.

The directory tree of the image is exposed below the mount point. The
command runs until the file system is unmounted (fusermount -u) or the
process is interrupted.

Example:
  umdtools mount game.cso /mnt/umd
  umdtools mount --debug game.iso /mnt/umd`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		processor, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		debug, err := cmd.Flags().GetBool("debug")
		if err != nil {
			return fmt.Errorf("error getting debug flag: %w", err)
		}

		reader, closeImage, err := processor.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, closeImage()) }()

		server, err := umdfs.Mount(args[1], reader, debug)
		if err != nil {
			return fmt.Errorf("failed to mount %s: %w", args[1], err)
		}
		common.LogInfo("Mounted %s on %s", args[0], args[1])

		signals := make(chan os.Signal, 1)
		done := make(chan struct{})
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		go unmountOnSignal(server, args[1], signals, done)

		server.Wait()
		signal.Stop(signals)
		close(done)
		return nil
	},
}

// unmounter is the part of *fuse.Server used on interrupt
type unmounter interface {
	Unmount() error
}

// unmountOnSignal unmounts server on the first signal. It returns without
// unmounting once done is closed.
func unmountOnSignal(server unmounter, mountPoint string, signals <-chan os.Signal, done <-chan struct{}) {
	select {
	case <-signals:
		if err := server.Unmount(); err != nil {
			common.LogError("Failed to unmount %s: %v", mountPoint, err)
		}
	case <-done:
	}
}

// init initializes the mount command and its flags.
func init() {
	rootCmd.AddCommand(mountCmd)

	mountCmd.Flags().Bool("debug", false, "Log every FUSE request")
}
