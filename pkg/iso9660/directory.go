package iso9660

import (
	"strings"

	"github.com/hansbonini/umdtools/pkg/common"
)

// Directory is the list of records of one directory extent,
// in on-disc order. It includes the "." and 0x01 (parent) records.
type Directory struct {
	entries []*File
}

// NewDirectory reads and parses the records of the extent at lba
func NewDirectory(r SectorReader, lba int, size int64) (*Directory, error) {
	numSectors := int(common.GetSizeInSectors(size))
	buffer := make([]byte, numSectors*common.SectorLength)
	if numSectors > 0 {
		if _, err := r.ReadSectors(lba, numSectors, buffer); err != nil {
			return nil, common.FormatError(common.ErrFailedToReadDirectory, err)
		}
	}

	d := &Directory{}
	for sector := 0; sector < numSectors; sector++ {
		data := buffer[sector*common.SectorLength : (sector+1)*common.SectorLength]
		offset := 0
		for offset < common.SectorLength {
			entry, length, err := ParseRecord(data[offset:])
			if err != nil {
				common.LogDebug(common.DebugSkippedRecord, lba+sector, offset, err)
				break
			}
			if entry == nil {
				// Records never cross a sector boundary; the rest is padding
				break
			}
			d.entries = append(d.entries, entry)
			offset += length
		}
	}
	return d, nil
}

// ReadVolumeDescriptor reads the Primary Volume Descriptor at sector 16
func ReadVolumeDescriptor(r SectorReader) (*VolumeDescriptor, error) {
	buffer := make([]byte, common.SectorLength)
	if _, err := r.ReadSectors(PrimaryVolumeSector, 1, buffer); err != nil {
		return nil, err
	}
	return ParseVolumeDescriptor(buffer)
}

// NewRootDirectory reads the root directory named by the Primary Volume Descriptor
func NewRootDirectory(r SectorReader) (*Directory, error) {
	vd, err := ReadVolumeDescriptor(r)
	if err != nil {
		return nil, err
	}
	return NewDirectory(r, vd.Root.LBA, vd.Root.Size)
}

// FileIndex returns the index of the entry called name, ignoring case, or -1
func (d *Directory) FileIndex(name string) int {
	for i, entry := range d.entries {
		if strings.EqualFold(entry.Name, name) {
			return i
		}
	}
	return -1
}

// EntryByIndex returns the entry at index, or nil when index is out of range
func (d *Directory) EntryByIndex(index int) *File {
	if index < 0 || index >= len(d.entries) {
		return nil
	}
	return d.entries[index]
}

// Entry returns the entry called name, or nil
func (d *Directory) Entry(name string) *File {
	return d.EntryByIndex(d.FileIndex(name))
}

// FileList returns the names of all entries
func (d *Directory) FileList() []string {
	names := make([]string, len(d.entries))
	for i, entry := range d.entries {
		names[i] = entry.Name
	}
	return names
}

// Len returns the number of entries
func (d *Directory) Len() int {
	return len(d.entries)
}
