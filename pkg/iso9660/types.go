// Package iso9660 provides the ISO9660 entry model used by UMD images.
// This file contains the file entry and volume descriptor structures.
package iso9660

import (
	"time"
)

// Fixed locations of the volume descriptors
const (
	PrimaryVolumeSector       = 16 // Primary Volume Descriptor
	SupplementaryVolumeSector = 17 // Joliet Supplementary Volume Descriptor
)

// PropertyDirectory is the file flags bit marking a directory
const PropertyDirectory = 0x02

// Standard identifiers of the volume descriptors
var (
	PrimaryIdentifier       = []byte{0x01, 'C', 'D', '0', '0', '1'}
	SupplementaryIdentifier = []byte{0x02, 'C', 'D', '0', '0', '1'}
)

// SectorReader is the sector access a directory needs to load its records
type SectorReader interface {
	ReadSectors(sector, count int, buffer []byte) (int, error)
}

// File is one directory record: a file or a subdirectory
type File struct {
	LBA        int       // First sector of the extent
	Size       int64     // Length in bytes
	Timestamp  time.Time // Recording date and time
	Name       string    // Identifier without version suffix
	Properties int       // File flags
}

// IsDir reports whether the entry is a directory
func (f *File) IsDir() bool {
	return f.Properties&PropertyDirectory != 0
}

// VolumeDescriptor holds the fields of the Primary Volume Descriptor used by the reader
type VolumeDescriptor struct {
	SystemID        string
	VolumeID        string
	VolumeSetID     string
	PublisherID     string
	ApplicationID   string
	VolumeSpaceSize uint32 // Number of logical blocks
	LogicalBlock    uint16 // Logical block size
	Root            *File  // Root directory record
}
