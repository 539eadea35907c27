package umd

import (
	"github.com/hansbonini/umdtools/pkg/device"
)

// DeleteBufferFiles removes the buffer files Open creates when buffering
// is enabled. It is safe to call when none exist.
func DeleteBufferFiles(opts Options) error {
	return device.RemoveBufferFiles(opts.fs(), opts.bufferDir())
}
