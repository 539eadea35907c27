package device

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/hansbonini/umdtools/pkg/common"
)

// Buffer file names created in the buffer directory
const (
	BufferTocName  = "umdbuffer.toc"
	BufferDataName = "umdbuffer.iso"
)

const unbufferedSlot = -1

// BufferedDevice copies every sector it reads from the wrapped device into
// a host-side data file, and records where each sector went in a TOC file.
// Later reads of the same sector are served from the data file. The TOC is
// a little-endian uint32 sector count followed by one int32 slot per sector
// (-1 when the sector has not been buffered yet).
//
// A BufferedDevice opened without a wrapped device serves only what a
// previous session left in the buffer files.
type BufferedDevice struct {
	toc        afero.File
	data       afero.File
	inner      SectorDevice
	numSectors int
	slots      []int32
	nextSlot   int32
	dirty      bool
}

var _ Wrapper = (*BufferedDevice)(nil)

// BufferPaths returns the TOC and data file paths inside dir
func BufferPaths(dir string) (string, string) {
	return filepath.Join(dir, BufferTocName), filepath.Join(dir, BufferDataName)
}

// NewBufferedDevice opens (or creates) the buffer files on fsys and wraps
// inner, which may be nil. The returned device owns inner.
func NewBufferedDevice(fsys afero.Fs, tocPath, dataPath string, inner SectorDevice) (*BufferedDevice, error) {
	toc, err := fsys.OpenFile(tocPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToOpenBuffer, err)
	}
	data, err := fsys.OpenFile(dataPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, multierr.Append(common.FormatError(common.ErrFailedToOpenBuffer, err), toc.Close())
	}

	d := &BufferedDevice{
		toc:   toc,
		data:  data,
		inner: inner,
	}
	if err := d.load(); err != nil {
		return nil, multierr.Combine(err, toc.Close(), data.Close())
	}
	return d, nil
}

func (d *BufferedDevice) load() error {
	raw, err := io.ReadAll(io.NewSectionReader(d.toc, 0, 1<<40))
	if err != nil {
		return common.FormatError(common.ErrFailedToOpenBuffer, err)
	}

	stored := -1
	if len(raw) >= 4 {
		count := int(binary.LittleEndian.Uint32(raw))
		if len(raw) >= 4+count*4 {
			stored = count
		}
	}

	switch {
	case d.inner == nil && stored >= 0:
		d.numSectors = stored
	case d.inner != nil && stored == d.inner.NumSectors():
		d.numSectors = stored
	default:
		if d.inner != nil {
			d.numSectors = d.inner.NumSectors()
		}
		if stored >= 0 {
			common.LogWarn(common.WarnBufferTocMismatch, stored, d.numSectors)
		}
		return d.reset()
	}

	d.slots = make([]int32, d.numSectors)
	for i := range d.slots {
		d.slots[i] = int32(binary.LittleEndian.Uint32(raw[4+i*4:]))
		if d.slots[i] >= d.nextSlot {
			d.nextSlot = d.slots[i] + 1
		}
	}
	return nil
}

func (d *BufferedDevice) reset() error {
	if err := d.data.Truncate(0); err != nil {
		return common.FormatError(common.ErrFailedToWriteBuffer, err)
	}
	d.slots = make([]int32, d.numSectors)
	for i := range d.slots {
		d.slots[i] = unbufferedSlot
	}
	d.nextSlot = 0
	d.dirty = true
	return d.Flush()
}

// Unwrap returns the wrapped device, or nil
func (d *BufferedDevice) Unwrap() SectorDevice {
	return d.inner
}

// BufferedSectors returns how many sectors are held in the data file
func (d *BufferedDevice) BufferedSectors() int {
	return int(d.nextSlot)
}

func (d *BufferedDevice) NumSectors() int {
	return d.numSectors
}

func (d *BufferedDevice) ReadSector(sector int, buffer []byte) error {
	_, err := d.ReadSectors(sector, 1, buffer)
	return err
}

func (d *BufferedDevice) ReadSectors(sector, count int, buffer []byte) (int, error) {
	if err := checkBuffer(count, buffer); err != nil {
		return 0, err
	}
	for i := 0; i < count; i++ {
		if err := d.readOne(sector+i, buffer[i*SectorLength:(i+1)*SectorLength]); err != nil {
			return i, err
		}
	}
	return count, nil
}

func (d *BufferedDevice) readOne(sector int, dst []byte) error {
	if sector < 0 || sector >= d.numSectors {
		common.ZeroFill(dst)
		return nil
	}

	if slot := d.slots[sector]; slot != unbufferedSlot {
		n, err := d.data.ReadAt(dst, int64(slot)*SectorLength)
		if err != nil && err != io.EOF {
			return common.FormatError(common.ErrFailedToReadSectors, err)
		}
		common.ZeroFill(dst[n:])
		return nil
	}

	if d.inner == nil {
		common.LogWarn(common.WarnBufferNoSource, sector)
		common.ZeroFill(dst)
		return nil
	}

	if err := d.inner.ReadSector(sector, dst); err != nil {
		return err
	}
	slot := d.nextSlot
	if _, err := d.data.WriteAt(dst, int64(slot)*SectorLength); err != nil {
		return common.FormatError(common.ErrFailedToWriteBuffer, err)
	}
	d.slots[sector] = slot
	d.nextSlot++
	d.dirty = true
	common.LogDebug(common.DebugBufferedSector, sector, slot)
	return nil
}

// Flush writes the TOC if it changed since the last flush
func (d *BufferedDevice) Flush() error {
	if !d.dirty {
		return nil
	}
	count, err := common.SafeIntToUint32(d.numSectors)
	if err != nil {
		return err
	}
	raw := make([]byte, 4+len(d.slots)*4)
	binary.LittleEndian.PutUint32(raw, count)
	for i, slot := range d.slots {
		binary.LittleEndian.PutUint32(raw[4+i*4:], uint32(slot))
	}
	if err := d.toc.Truncate(0); err != nil {
		return common.FormatError(common.ErrFailedToWriteBuffer, err)
	}
	if _, err := d.toc.WriteAt(raw, 0); err != nil {
		return common.FormatError(common.ErrFailedToWriteBuffer, err)
	}
	d.dirty = false
	return nil
}

// Close flushes the TOC and closes both buffer files and the wrapped device
func (d *BufferedDevice) Close() error {
	err := multierr.Combine(d.Flush(), d.toc.Close(), d.data.Close())
	if d.inner != nil {
		err = multierr.Append(err, d.inner.Close())
	}
	return err
}

// RemoveBufferFiles deletes the buffer files in dir. Missing files are ignored.
func RemoveBufferFiles(fsys afero.Fs, dir string) error {
	tocPath, dataPath := BufferPaths(dir)
	var err error
	for _, path := range []string{tocPath, dataPath} {
		if rmErr := fsys.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			err = multierr.Append(err, fmt.Errorf("remove %s: %w", path, rmErr))
		}
	}
	return err
}
