package common

import (
	"fmt"
	"log"
)

// Global variable to control debug output
var VerboseMode bool = false

// SetVerboseMode enables or disables verbose/debug output
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
}

// Error messages
const (
	ErrFailedToOpenImage       = "failed to open disc image"
	ErrFailedToReadHeader      = "failed to read image header"
	ErrFailedToReadSectors     = "failed to read sectors"
	ErrFailedToReadDirectory   = "failed to read directory"
	ErrFailedToReadBlockIndex  = "failed to read block index"
	ErrFailedToDecompressBlock = "failed to decompress block"
	ErrFailedToOpenBuffer      = "failed to open buffer file"
	ErrFailedToWriteBuffer     = "failed to write buffer file"
	ErrFailedToCreateOutput    = "failed to create output file"
	ErrFailedToLoadConfig      = "failed to load configuration"
	ErrFailedToParseSFO        = "failed to parse PARAM.SFO"
	ErrFailedToStageArchive    = "failed to stage archive member"
)

// Info messages
const (
	InfoImageOpened      = "Opened %s image %s (%d sectors)"
	InfoJolietDetected   = "Joliet supplementary volume descriptor present"
	InfoIndexWritten     = "Index written to %s"
	InfoFilesExtracted   = "Extracted %d files to %s"
	InfoBufferFilesFreed = "Removed buffer files from %s"
	InfoArchiveStaged    = "Staged %s from archive %s"
)

// Debug messages
const (
	DebugFileCacheHit     = "File cache hit: %s"
	DebugDirCacheHit      = "Directory cache hit: %s (parent of %s)"
	DebugDirectoryWalk    = "Walking %s from root (%d components)"
	DebugDirectoryCached  = "Cached directory %s (LBA %d, %d bytes)"
	DebugSyntheticFile    = "Direct sector access: start=0x%X length=0x%X"
	DebugShortRead        = "Short read on %s: got %d of %d bytes"
	DebugBlockCacheMiss   = "Decompressing block %d"
	DebugBufferedSector   = "Buffered sector %d into slot %d"
	DebugEncryptedPSAR    = "DATA.PSAR is not readable as sectors: %v"
	DebugSkippedRecord    = "Skipping directory record at sector %d offset %d: %v"
	DebugLookupIgnoredErr = "Ignoring error while searching for sector %d: %v"
)

// Warning messages
const (
	WarnSectorOutOfRange  = "Sector number %d out of ISO (numSectors=%d)"
	WarnSectorsOutOfRange = "Sectors start=%d, end=%d out of ISO (numSectors=%d)"
	WarnBufferTocMismatch = "Buffer TOC holds %d sectors, image has %d: starting a new buffer"
	WarnBufferNoSource    = "Sector %d is not buffered and no source image is attached"
)

// LogInfo logs an informational message
func LogInfo(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[INFO] "+message, args...)
	} else {
		log.Printf("[INFO] %s", message)
	}
}

// LogWarn logs a warning message
func LogWarn(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[WARN] "+message, args...)
	} else {
		log.Printf("[WARN] %s", message)
	}
}

// LogError logs an error message
func LogError(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[ERROR] "+message, args...)
	} else {
		log.Printf("[ERROR] %s", message)
	}
}

// LogDebug logs a debug message (only if VerboseMode is enabled)
func LogDebug(message string, args ...interface{}) {
	if !VerboseMode {
		return
	}
	if len(args) > 0 {
		log.Printf("[DEBUG] "+message, args...)
	} else {
		log.Printf("[DEBUG] %s", message)
	}
}

// FormatError creates a formatted error with additional context
func FormatError(baseMessage string, details interface{}) error {
	if err, ok := details.(error); ok {
		return fmt.Errorf("%s: %w", baseMessage, err)
	}
	return fmt.Errorf("%s: %v", baseMessage, details)
}

// FormatErrorString creates a formatted error with string details
func FormatErrorString(baseMessage, details string, args ...interface{}) error {
	if len(args) > 0 {
		return fmt.Errorf("%s: "+details, append([]interface{}{baseMessage}, args...)...)
	}
	return fmt.Errorf("%s: %s", baseMessage, details)
}
