package archive

import (
	"fmt"
	"io"

	"github.com/bodgit/sevenzip"
)

// extractFrom7z hands the first disc image of a 7z archive to stage
func extractFrom7z(path string, stage func(string, io.Reader) error) error {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open 7z: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isImageFile(f.Name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		defer rc.Close()
		return stage(f.Name, rc)
	}

	return ErrNoImageFile
}
