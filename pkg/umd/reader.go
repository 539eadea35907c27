// Package umd reads PSP UMD disc images.
//
// A Reader owns one device.SectorDevice and resolves slash-separated paths
// to ISO9660 entries through two lazily filled caches: one keyed by file
// path, one keyed by directory path. Entries are never evicted while the
// Reader is open.
//
// A Reader is not safe for concurrent use; callers must serialize access.
package umd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/device"
	"github.com/hansbonini/umdtools/pkg/iso9660"
)

// SectorLength is the size of one UMD sector
const SectorLength = common.SectorLength

// Reader resolves paths and reads sectors of one disc image
type Reader struct {
	dev        device.SectorDevice
	browser    device.Browser
	format     device.Format
	numSectors int
	hasJoliet  bool
	isPBP      bool
	volume     *iso9660.VolumeDescriptor
	fileCache  map[string]*iso9660.File
	dirCache   map[string]*iso9660.Directory
	closed     bool
}

var _ device.Browser = (*Reader)(nil)

// Open opens the image at path, selecting the device from the file's magic
// bytes. With opts.Buffering set, the device is wrapped in a buffering
// overlay; an empty path then reopens the buffer left by a previous session.
func Open(path string, opts Options) (*Reader, error) {
	var dev device.SectorDevice
	format := device.FormatISO

	if path != "" || !opts.Buffering {
		f, err := os.Open(path)
		if err != nil {
			return nil, common.FormatError(common.ErrFailedToOpenImage, err)
		}
		dev, format, err = openDevice(f, opts)
		if err != nil {
			return nil, multierr.Append(err, f.Close())
		}
	}

	if opts.Buffering {
		tocPath, dataPath := device.BufferPaths(opts.bufferDir())
		buffered, err := device.NewBufferedDevice(opts.fs(), tocPath, dataPath, dev)
		if err != nil {
			if dev != nil {
				err = multierr.Append(err, dev.Close())
			}
			return nil, err
		}
		dev = buffered
	}

	r, err := newReader(dev, format)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("'%s': %w", path, err), dev.Close())
	}
	return r, nil
}

func openDevice(f *os.File, opts Options) (device.SectorDevice, device.Format, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, device.FormatISO, common.FormatError(common.ErrFailedToOpenImage, err)
	}
	header := make([]byte, device.HeaderLength)
	n, err := f.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return nil, device.FormatISO, common.FormatError(common.ErrFailedToReadHeader, err)
	}
	return device.New(f, info.Size(), header[:n], opts.BlockCacheSize)
}

// NewReader creates a reader over an already built device.
// On success the reader owns dev; on failure the caller still does.
func NewReader(dev device.SectorDevice) (*Reader, error) {
	return newReader(dev, formatOf(dev))
}

func formatOf(dev device.SectorDevice) device.Format {
	for dev != nil {
		switch d := dev.(type) {
		case *device.CSODevice:
			return d.Format()
		case *device.PBPDevice:
			return device.FormatPBP
		case device.Wrapper:
			dev = d.Unwrap()
		default:
			return device.FormatISO
		}
	}
	return device.FormatISO
}

func newReader(dev device.SectorDevice, format device.Format) (*Reader, error) {
	r := &Reader{
		dev:        dev,
		format:     format,
		numSectors: dev.NumSectors(),
		isPBP:      format == device.FormatPBP,
		fileCache:  make(map[string]*iso9660.File),
		dirCache:   make(map[string]*iso9660.Directory),
	}
	r.browser, _ = device.AsBrowser(dev)

	if err := r.probeIsoHeader(); err != nil {
		return nil, err
	}
	if r.browser == nil && r.volume == nil {
		return nil, ErrUnsupportedFormat
	}
	return r, nil
}

// probeIsoHeader looks for the primary volume descriptor and the Joliet
// supplementary descriptor. A missing header is not an error here.
func (r *Reader) probeIsoHeader() error {
	if r.numSectors <= 0 {
		return nil
	}

	sector := make([]byte, SectorLength)
	if err := r.ReadSector(iso9660.PrimaryVolumeSector, sector); err != nil {
		return err
	}
	if !bytes.HasPrefix(sector, iso9660.PrimaryIdentifier) {
		return nil
	}
	volume, err := iso9660.ParseVolumeDescriptor(sector)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	r.volume = volume

	if err := r.ReadSector(iso9660.SupplementaryVolumeSector, sector); err != nil {
		return err
	}
	r.hasJoliet = bytes.HasPrefix(sector, iso9660.SupplementaryIdentifier)
	if r.hasJoliet {
		common.LogDebug(common.InfoJolietDetected)
	}
	return nil
}

// Close releases the sector device. Calling Close again is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.dev.Close()
}

// NumSectors returns the number of sectors in the image
func (r *Reader) NumSectors() int {
	return r.numSectors
}

// Device returns the sector device the reader was built on
func (r *Reader) Device() device.SectorDevice {
	return r.dev
}

// Format returns the container format of the image
func (r *Reader) Format() device.Format {
	return r.format
}

// HasJolietExtension reports whether sector 17 holds a Joliet descriptor
func (r *Reader) HasJolietExtension() bool {
	return r.hasJoliet
}

// IsPBP reports whether the image is embedded in a PBP package
func (r *Reader) IsPBP() bool {
	return r.isPBP
}

// VolumeDescriptor returns the primary volume descriptor, or nil for
// images served only through a metadata browser
func (r *Reader) VolumeDescriptor() *iso9660.VolumeDescriptor {
	return r.volume
}

// ReadSectors reads count sectors starting at sector into buffer.
// Sectors outside the image are zero-filled and logged, not reported as
// errors, so truncated images stay readable.
func (r *Reader) ReadSectors(sector, count int, buffer []byte) (int, error) {
	if count < 0 || len(buffer) < count*SectorLength {
		return 0, device.ErrShortBuffer
	}
	if sector >= 0 && sector+count <= r.numSectors {
		return r.dev.ReadSectors(sector, count, buffer)
	}

	common.LogWarn(common.WarnSectorsOutOfRange, sector, sector+count, r.numSectors)
	common.ZeroFill(buffer[:count*SectorLength])
	first, last := sector, sector+count
	if first < 0 {
		first = 0
	}
	if last > r.numSectors {
		last = r.numSectors
	}
	if first < last {
		offset := (first - sector) * SectorLength
		if _, err := r.dev.ReadSectors(first, last-first, buffer[offset:]); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// ReadSector reads one sector into buffer. A sector outside the image
// yields zeros and a warning.
func (r *Reader) ReadSector(sector int, buffer []byte) error {
	if len(buffer) < SectorLength {
		return device.ErrShortBuffer
	}
	if sector < 0 || sector >= r.numSectors {
		common.ZeroFill(buffer[:SectorLength])
		common.LogWarn(common.WarnSectorOutOfRange, sector, r.numSectors)
		return nil
	}
	return r.dev.ReadSector(sector, buffer)
}

// SectorBytes returns a new sector-length slice holding one sector
func (r *Reader) SectorBytes(sector int) ([]byte, error) {
	buffer := make([]byte, SectorLength)
	if err := r.ReadSector(sector, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}
