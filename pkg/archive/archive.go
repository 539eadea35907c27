// Package archive stages disc images stored inside ZIP, 7z, gzip or RAR
// archives to a temporary file, so they can be opened by sector.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hansbonini/umdtools/pkg/common"
)

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
)

// ImageExtensions lists the member extensions Stage looks for
var ImageExtensions = []string{".iso", ".cso", ".zso", ".pbp"}

// ErrNoImageFile is returned when an archive holds no disc image
var ErrNoImageFile = errors.New("no disc image found in archive")

type formatType int

const (
	formatRaw formatType = iota
	formatZIP
	format7z
	formatGzip
	formatRAR
)

// Staged is a disc image ready to be opened from Path
type Staged struct {
	// Path is the image on the host filesystem
	Path string
	// Name is the base name of the image, inside the archive when staged
	Name string
	temp bool
}

// Close removes the staged copy, if one was made
func (s *Staged) Close() error {
	if !s.temp {
		return nil
	}
	s.temp = false
	return os.Remove(s.Path)
}

// Stage returns path unchanged when it is not an archive. Otherwise the
// first member with an image extension is copied into dir.
func Stage(path, dir string) (*Staged, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	header := make([]byte, 16)
	n, err := f.Read(header)
	f.Close()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}

	var extract func(string, func(string, io.Reader) error) error
	switch detectFormat(header[:n], path) {
	case formatZIP:
		extract = extractFromZIP
	case format7z:
		extract = extractFrom7z
	case formatGzip:
		extract = extractFromGzip
	case formatRAR:
		extract = extractFromRAR
	default:
		return &Staged{Path: path, Name: filepath.Base(path)}, nil
	}

	var staged *Staged
	err = extract(path, func(name string, r io.Reader) error {
		s, err := copyToTemp(dir, name, r)
		staged = s
		return err
	})
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToStageArchive, err)
	}
	common.LogInfo(common.InfoArchiveStaged, staged.Name, path)
	return staged, nil
}

// detectFormat checks magic bytes first, then the archive extension
func detectFormat(header []byte, path string) formatType {
	switch {
	case bytes.HasPrefix(header, magicZIP) || bytes.HasPrefix(header, magicZIPEnd):
		return formatZIP
	case bytes.HasPrefix(header, magicRAR):
		return formatRAR
	case bytes.HasPrefix(header, magic7z):
		return format7z
	case bytes.HasPrefix(header, magicGzip):
		return formatGzip
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz":
		return formatGzip
	case ".rar":
		return formatRAR
	}
	return formatRaw
}

// isImageFile checks if a member name has a disc image extension (case-insensitive)
func isImageFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range ImageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func copyToTemp(dir, name string, r io.Reader) (*Staged, error) {
	base := filepath.Base(name)
	out, err := os.CreateTemp(dir, "umdtools-*-"+base)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToCreateOutput, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return nil, err
	}
	return &Staged{Path: out.Name(), Name: base, temp: true}, nil
}
