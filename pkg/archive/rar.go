package archive

import (
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"
)

// extractFromRAR hands the first disc image of a RAR archive to stage
func extractFromRAR(path string, stage func(string, io.Reader) error) error {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read rar entry: %w", err)
		}
		if header.IsDir || !isImageFile(header.Name) {
			continue
		}
		return stage(header.Name, r)
	}

	return ErrNoImageFile
}
