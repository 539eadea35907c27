package device

import (
	"io"

	"github.com/hansbonini/umdtools/pkg/common"
)

// ISODevice reads a plain image of 2048-byte sectors
type ISODevice struct {
	src        Source
	numSectors int
}

// NewISODevice creates a device over a raw ISO of size bytes.
// A trailing partial sector is not counted.
func NewISODevice(src Source, size int64) *ISODevice {
	return &ISODevice{
		src:        src,
		numSectors: int(size / SectorLength),
	}
}

func (d *ISODevice) NumSectors() int {
	return d.numSectors
}

func (d *ISODevice) ReadSector(sector int, buffer []byte) error {
	_, err := d.ReadSectors(sector, 1, buffer)
	return err
}

func (d *ISODevice) ReadSectors(sector, count int, buffer []byte) (int, error) {
	if err := checkBuffer(count, buffer); err != nil {
		return 0, err
	}
	length := count * SectorLength
	n, err := d.src.ReadAt(buffer[:length], int64(sector)*SectorLength)
	if err != nil && err != io.EOF {
		return n / SectorLength, common.FormatError(common.ErrFailedToReadSectors, err)
	}
	if n < length {
		common.ZeroFill(buffer[n:length])
	}
	return count, nil
}

func (d *ISODevice) Close() error {
	return d.src.Close()
}
