package umd

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrFileNotFound is returned when a path does not resolve to an entry,
	// or resolves to a directory where a file is required (or the reverse).
	ErrFileNotFound = fmt.Errorf("file not found: %w", fs.ErrNotExist)

	// ErrUnsupportedFormat is returned by Open when the image is neither a
	// metadata-serving container nor a valid ISO9660 volume.
	ErrUnsupportedFormat = errors.New("unsupported file format or corrupted file")

	// ErrInvalidSector is returned for a direct sector path starting outside the image.
	ErrInvalidSector = errors.New("invalid start sector")

	// ErrInvalidPath is returned for a malformed direct sector path.
	ErrInvalidPath = errors.New("invalid direct sector path")
)

func notFound(path, reason string) error {
	return fmt.Errorf("%w: '%s' %s", ErrFileNotFound, path, reason)
}
