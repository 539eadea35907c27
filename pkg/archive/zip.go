package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// extractFromZIP hands the first disc image of a ZIP archive to stage
func extractFromZIP(path string, stage func(string, io.Reader) error) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
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
