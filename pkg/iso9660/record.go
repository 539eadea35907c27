package iso9660

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hansbonini/umdtools/pkg/common"
)

// Directory record layout
const (
	MinRecordLength   = 33
	recordFlagsOffset = 25
	recordNameLength  = 32
	recordDateOffset  = 18
)

// ParseRecord decodes the directory record at the start of data.
// It returns the entry and the record length.
func ParseRecord(data []byte) (*File, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("empty record")
	}
	length := int(data[0])
	if length == 0 {
		return nil, 0, nil
	}
	if length < MinRecordLength {
		return nil, length, fmt.Errorf("record too short: %d bytes", length)
	}
	if length > len(data) {
		return nil, length, fmt.Errorf("record exceeds sector bounds")
	}

	nameLength := int(data[recordNameLength])
	if MinRecordLength+nameLength > length {
		return nil, length, fmt.Errorf("filename exceeds entry bounds")
	}

	var date [7]byte
	copy(date[:], data[recordDateOffset:recordDateOffset+7])

	entry := &File{
		LBA:        int(common.ExtractLBAFromDirRecord(data)),
		Size:       int64(common.ExtractSizeFromDirRecord(data)),
		Timestamp:  parseRecordDate(date),
		Name:       cleanIdentifier(string(data[MinRecordLength : MinRecordLength+nameLength])),
		Properties: int(data[recordFlagsOffset]),
	}
	return entry, length, nil
}

// cleanIdentifier maps the "." record to "." and strips the version suffix.
// The ".." record keeps its raw 0x01 name.
func cleanIdentifier(name string) string {
	if name == "\x00" {
		return "."
	}
	if common.IsSpecialDirEntry(name) {
		return name
	}
	return common.CleanFileName(name)
}

// parseRecordDate decodes the 7-byte recording date of a directory record
func parseRecordDate(date [7]byte) time.Time {
	if date[1] == 0 || date[2] == 0 {
		return time.Time{}
	}
	// GMT offset in 15 minute intervals
	offset := int(int8(date[6])) * 15 * 60
	return time.Date(1900+int(date[0]), time.Month(date[1]), int(date[2]),
		int(date[3]), int(date[4]), int(date[5]), 0, time.FixedZone("", offset))
}

// ParseVolumeDescriptor decodes a Primary Volume Descriptor sector
func ParseVolumeDescriptor(data []byte) (*VolumeDescriptor, error) {
	if len(data) < common.SectorLength {
		return nil, fmt.Errorf("volume descriptor too short: %d bytes", len(data))
	}
	if err := common.ValidateMagic(data, PrimaryIdentifier, "ISO9660"); err != nil {
		return nil, err
	}
	root, _, err := ParseRecord(data[156:190])
	if err != nil {
		return nil, fmt.Errorf("root directory record: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("root directory record: empty record")
	}
	root.Name = ""

	return &VolumeDescriptor{
		SystemID:        trimIdentifier(data[8:40]),
		VolumeID:        trimIdentifier(data[40:72]),
		VolumeSpaceSize: binary.LittleEndian.Uint32(data[80:84]),
		LogicalBlock:    binary.LittleEndian.Uint16(data[128:130]),
		Root:            root,
		VolumeSetID:     trimIdentifier(data[190:318]),
		PublisherID:     trimIdentifier(data[318:446]),
		ApplicationID:   trimIdentifier(data[574:702]),
	}, nil
}

func trimIdentifier(data []byte) string {
	end := len(data)
	for end > 0 && (data[end-1] == ' ' || data[end-1] == 0) {
		end--
	}
	return string(data[:end])
}
