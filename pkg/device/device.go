// Package device provides sector-level access to UMD disc images.
// A SectorDevice hides the on-disk container format (plain ISO, block
// compressed CSO/ZSO, PBP package, or a host-side buffering overlay)
// behind a single read-by-sector contract.
package device

import (
	"bytes"
	"errors"
	"io"

	"github.com/hansbonini/umdtools/pkg/common"
)

// SectorLength is the size of every sector served by a SectorDevice
const SectorLength = common.SectorLength

// HeaderLength is the number of bytes Detect needs to identify a container
const HeaderLength = 24

// Magic bytes for format detection
var (
	magicCSO = []byte{'C', 'I', 'S', 'O'}
	magicZSO = []byte{'Z', 'I', 'S', 'O'}
	magicPBP = []byte{0x00, 'P', 'B', 'P'}
)

// ErrInvalidHeader is returned when a container header cannot be parsed
var ErrInvalidHeader = errors.New("invalid container header")

// ErrShortBuffer is returned when the destination cannot hold the requested sectors
var ErrShortBuffer = errors.New("buffer too small for requested sectors")

// SectorDevice reads fixed-size sectors from a disc image.
// Implementations are not safe for concurrent use.
type SectorDevice interface {
	// NumSectors returns the total number of sectors in the image.
	NumSectors() int
	// ReadSector reads one sector into buffer[:SectorLength].
	ReadSector(sector int, buffer []byte) error
	// ReadSectors reads count consecutive sectors into buffer and
	// returns the number of sectors read.
	ReadSectors(sector, count int, buffer []byte) (int, error)
	io.Closer
}

// Browser is implemented by devices that can serve the well-known PSP
// metadata files directly, without walking an ISO9660 tree.
type Browser interface {
	ReadParamSFO() ([]byte, error)
	ReadIcon0() ([]byte, error)
	ReadIcon1() ([]byte, error)
	ReadPic0() ([]byte, error)
	ReadPic1() ([]byte, error)
	ReadSnd0() ([]byte, error)
	ReadPspData() ([]byte, error)
	ReadPsarData() ([]byte, error)
}

// Wrapper is implemented by decorating devices.
type Wrapper interface {
	Unwrap() SectorDevice
}

// Source is the host-side storage a device reads from.
type Source interface {
	io.ReaderAt
	io.Closer
}

// Format identifies the container format of an image file
type Format int

const (
	FormatISO Format = iota
	FormatCSO
	FormatZSO
	FormatPBP
)

func (f Format) String() string {
	switch f {
	case FormatCSO:
		return "CSO"
	case FormatZSO:
		return "ZSO"
	case FormatPBP:
		return "PBP"
	default:
		return "ISO"
	}
}

// Detect determines the container format from the first bytes of a file.
// Anything unrecognized is treated as a raw ISO.
func Detect(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, magicCSO):
		return FormatCSO
	case bytes.HasPrefix(header, magicZSO):
		return FormatZSO
	case bytes.HasPrefix(header, magicPBP):
		return FormatPBP
	default:
		return FormatISO
	}
}

// New builds the device matching header on top of src.
// src is not closed when New fails; the caller still owns it.
func New(src Source, size int64, header []byte, blockCacheSize int) (SectorDevice, Format, error) {
	format := Detect(header)
	var (
		dev SectorDevice
		err error
	)
	switch format {
	case FormatCSO, FormatZSO:
		dev, err = NewCSODevice(src, header, blockCacheSize)
	case FormatPBP:
		dev, err = NewPBPDevice(src, size)
	default:
		dev = NewISODevice(src, size)
	}
	if err != nil {
		return nil, format, err
	}
	return dev, format, nil
}

// AsBrowser returns the Browser capability of dev or of any device it wraps.
func AsBrowser(dev SectorDevice) (Browser, bool) {
	for dev != nil {
		if b, ok := dev.(Browser); ok {
			return b, true
		}
		w, ok := dev.(Wrapper)
		if !ok {
			break
		}
		dev = w.Unwrap()
	}
	return nil, false
}

func checkBuffer(count int, buffer []byte) error {
	if count < 0 || len(buffer) < count*SectorLength {
		return ErrShortBuffer
	}
	return nil
}
