// Package common provides shared helpers for UMD image handling.
// This file contains sector arithmetic and ISO9660 record helpers.
package common

import "strings"

// SectorLength is the size in bytes of one UMD data sector
const SectorLength = 2048

// GetSizeInSectors calculates the number of sectors needed for a given size in bytes
func GetSizeInSectors(sizeBytes int64) int64 {
	return (sizeBytes + SectorLength - 1) / SectorLength
}

// RoundUpToSector rounds a byte count up to the next sector boundary
func RoundUpToSector(sizeBytes int64) int64 {
	return (sizeBytes + SectorLength - 1) &^ (SectorLength - 1)
}

// CleanFileName removes version numbers from ISO9660 file names
func CleanFileName(fileName string) string {
	// Remove version suffix (e.g., "FILE.EXT;1" -> "FILE.EXT")
	if idx := strings.LastIndexByte(fileName, ';'); idx > 0 {
		return fileName[:idx]
	}
	return fileName
}

// IsSpecialDirEntry checks if a raw directory record name is "." (0x00) or ".." (0x01)
func IsSpecialDirEntry(fileName string) bool {
	return fileName == "\x00" || fileName == "\x01"
}

// ExtractLBAFromDirRecord extracts LBA from ISO9660 directory record
func ExtractLBAFromDirRecord(dirRecord []byte) uint32 {
	if len(dirRecord) < 6 {
		return 0
	}
	// LBA is at offset 2 (little-endian)
	return uint32(dirRecord[2]) |
		uint32(dirRecord[3])<<8 |
		uint32(dirRecord[4])<<16 |
		uint32(dirRecord[5])<<24
}

// ExtractSizeFromDirRecord extracts size from ISO9660 directory record
func ExtractSizeFromDirRecord(dirRecord []byte) uint32 {
	if len(dirRecord) < 14 {
		return 0
	}
	// Size is at offset 10 (little-endian)
	return uint32(dirRecord[10]) |
		uint32(dirRecord[11])<<8 |
		uint32(dirRecord[12])<<16 |
		uint32(dirRecord[13])<<24
}
