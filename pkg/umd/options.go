package umd

import (
	"os"

	"github.com/spf13/afero"
)

// Options configures how Open builds the sector device of a reader
type Options struct {
	// Buffering wraps the image in a device.BufferedDevice whose files
	// live in BufferDir.
	Buffering bool
	// BufferDir holds umdbuffer.toc and umdbuffer.iso. Defaults to os.TempDir().
	BufferDir string
	// Fs is the host filesystem used for the buffer files. Defaults to the OS.
	Fs afero.Fs
	// BlockCacheSize is the number of decompressed CSO/ZSO blocks kept in memory.
	BlockCacheSize int
}

func (o Options) bufferDir() string {
	if o.BufferDir == "" {
		return os.TempDir()
	}
	return o.BufferDir
}

func (o Options) fs() afero.Fs {
	if o.Fs == nil {
		return afero.NewOsFs()
	}
	return o.Fs
}
