package umd

import (
	"errors"
	"io"
	"time"
)

var errNegativeOffset = errors.New("negative offset")

// File is a read-only view over a contiguous run of sectors of the image.
// It implements io.Reader, io.ReaderAt and io.Seeker.
type File struct {
	reader      *Reader
	startSector int
	length      int64
	timestamp   time.Time
	name        string
	offset      int64
}

func newFile(r *Reader, startSector int, length int64, timestamp time.Time, name string) *File {
	return &File{
		reader:      r,
		startSector: startSector,
		length:      length,
		timestamp:   timestamp,
		name:        name,
	}
}

// Name returns the identifier of the file, empty for direct sector views
func (f *File) Name() string { return f.name }

// Length returns the length of the file in bytes
func (f *File) Length() int64 { return f.length }

// StartSector returns the first sector of the file
func (f *File) StartSector() int { return f.startSector }

// Timestamp returns the recording time of the file
func (f *File) Timestamp() time.Time { return f.timestamp }

// Read reads from the current position
func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

// ReadAt reads len(p) bytes starting at byte offset off of the file.
// Whole sectors are read straight into p; partial sectors go through a
// scratch buffer.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off >= f.length {
		return 0, io.EOF
	}

	want := p
	if remaining := f.length - off; int64(len(want)) > remaining {
		want = want[:remaining]
	}

	var scratch []byte
	n := 0
	for n < len(want) {
		pos := off + int64(n)
		sector := f.startSector + int(pos/SectorLength)
		within := int(pos % SectorLength)

		if within == 0 && len(want)-n >= SectorLength {
			count := (len(want) - n) / SectorLength
			if _, err := f.reader.ReadSectors(sector, count, want[n:n+count*SectorLength]); err != nil {
				return n, err
			}
			n += count * SectorLength
			continue
		}

		if scratch == nil {
			scratch = make([]byte, SectorLength)
		}
		if err := f.reader.ReadSector(sector, scratch); err != nil {
			return n, err
		}
		n += copy(want[n:], scratch[within:])
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek sets the position for the next Read
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += f.offset
	case io.SeekEnd:
		offset += f.length
	default:
		return 0, errors.New("invalid whence")
	}
	if offset < 0 {
		return 0, errNegativeOffset
	}
	f.offset = offset
	return offset, nil
}

// Close releases the view. The underlying device stays open.
func (f *File) Close() error {
	return nil
}
