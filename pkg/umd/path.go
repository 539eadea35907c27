package umd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/iso9660"
)

// Direct sector access on UMD uses file names of the form
//
//	sce_lbnSSSS_sizeLLLL
//
// where SSSS is the first sector and LLLL the length in bytes, both in
// hexadecimal with an optional "0x" prefix, e.g. sce_lbn0x5fa0_size0x1428
// or sce_lbn7050_sizeee850. Anything following a number is ignored.
const (
	directSectorPrefix    = "sce_lbn"
	directSectorSeparator = "_size"
)

// splitPath splits on both separators and drops empty components
func splitPath(filePath string) []string {
	return strings.FieldsFunc(filePath, func(c rune) bool {
		return c == '/' || c == '\\'
	})
}

// canonicalize removes every "." component, and every ".." component
// together with the component before it. A ".." with nothing before it
// removes only itself.
func canonicalize(components []string) []string {
	path := append([]string(nil), components...)
	for i := 0; i < len(path); {
		switch path[i] {
		case ".":
			path = removeComponent(path, i)
		case "..":
			path = removeComponent(path, i)
			if i > 0 {
				path = removeComponent(path, i-1)
				i--
			}
		default:
			i++
		}
	}
	return path
}

func removeComponent(path []string, index int) []string {
	if index < 0 || index >= len(path) {
		return path
	}
	return append(path[:index], path[index+1:]...)
}

// canonicalKey is the cache key of a path once "." and ".." are resolved
func canonicalKey(filePath string) string {
	return strings.Join(canonicalize(splitPath(filePath)), "/")
}

// parseHex parses leading hexadecimal digits, after an optional "0x"
// prefix, and ignores whatever follows them. No digits parse as 0.
func parseHex(s string) (int64, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	end := 0
	for end < len(s) && isHexDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0, nil
	}
	value, err := strconv.ParseInt(s[:end], 16, 64)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseDirectSectorPath extracts the start sector and byte length of a
// sce_lbn path
func parseDirectSectorPath(filePath string) (int, int64, error) {
	rest := strings.TrimPrefix(filePath, directSectorPrefix)
	sep := strings.Index(rest, directSectorSeparator)
	if sep < 0 {
		return 0, 0, fmt.Errorf("%w: '%s'", ErrInvalidPath, filePath)
	}
	start, err := parseHex(rest[:sep])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: '%s': %v", ErrInvalidPath, filePath, err)
	}
	length, err := parseHex(rest[sep+len(directSectorSeparator):])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: '%s': %v", ErrInvalidPath, filePath, err)
	}
	startSector, err := common.SafeInt64ToInt32(start)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: '%s': %v", ErrInvalidSector, filePath, err)
	}
	return int(startSector), length, nil
}

// rootDirectory reads the root directory. The root's extent comes from the
// volume descriptor read at open time.
func (r *Reader) rootDirectory() (*iso9660.Directory, error) {
	if r.volume == nil {
		return nil, notFound("", "not found (no ISO9660 volume)")
	}
	return iso9660.NewDirectory(r, r.volume.Root.LBA, r.volume.Root.Size)
}

// getFileEntry resolves filePath through the file cache, then the cached
// parent directory, then a walk from the root.
func (r *Reader) getFileEntry(filePath string) (*iso9660.File, error) {
	if info, ok := r.fileCache[filePath]; ok {
		common.LogDebug(common.DebugFileCacheHit, filePath)
		return info, nil
	}

	if sep := strings.LastIndexByte(filePath, '/'); sep >= 0 {
		parent := filePath[:sep]
		if dir, ok := r.dirCache[parent]; ok {
			if info := dir.Entry(filePath[sep+1:]); info != nil {
				common.LogDebug(common.DebugDirCacheHit, parent, filePath)
				r.fileCache[filePath] = info
				return info, nil
			}
		}
	}

	dir, err := r.rootDirectory()
	if err != nil {
		return nil, err
	}

	path := canonicalize(splitPath(filePath))
	common.LogDebug(common.DebugDirectoryWalk, filePath, len(path))
	if len(path) == 0 {
		return nil, notFound(filePath, "not found")
	}

	var info *iso9660.File
	for i, name := range path {
		if info != nil && !info.IsDir() {
			return nil, notFound(filePath, "not found")
		}
		info = dir.Entry(name)
		if info == nil {
			return nil, notFound(filePath, "not found")
		}
		if info.IsDir() {
			dirPath := strings.Join(path[:i+1], "/")
			if cached, ok := r.dirCache[dirPath]; ok {
				dir = cached
				continue
			}
			dir, err = iso9660.NewDirectory(r, info.LBA, info.Size)
			if err != nil {
				return nil, err
			}
			r.dirCache[dirPath] = dir
			common.LogDebug(common.DebugDirectoryCached, dirPath, info.LBA, info.Size)
		}
	}

	r.fileCache[filePath] = info
	return info, nil
}

// GetFile opens a view over a file of the image.
//
// The empty path is the whole image. A sce_lbn path is a direct view over
// a sector range and never touches the directory structure.
func (r *Reader) GetFile(filePath string) (*File, error) {
	if r.numSectors == 0 {
		return nil, notFound(filePath, "not found (empty image)")
	}

	switch {
	case strings.HasPrefix(filePath, directSectorPrefix):
		start, length, err := parseDirectSectorPath(filePath)
		if err != nil {
			return nil, err
		}
		if start < 0 || start >= r.numSectors {
			return nil, fmt.Errorf("%w: file '%s' starts at sector %d of %d", ErrInvalidSector, filePath, start, r.numSectors)
		}
		common.LogDebug(common.DebugSyntheticFile, start, length)
		return newFile(r, start, length, time.Now(), ""), nil

	case filePath == "":
		return newFile(r, 0, int64(r.numSectors)*SectorLength, time.Now(), ""), nil
	}

	info, err := r.getFileEntry(filePath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, notFound(filePath, "not found or not a file")
	}
	return newFile(r, info.LBA, info.Size, info.Timestamp, info.Name), nil
}

// HasFile reports whether GetFile would succeed
func (r *Reader) HasFile(filePath string) bool {
	f, err := r.GetFile(filePath)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Stat returns the directory record of filePath
func (r *Reader) Stat(filePath string) (*iso9660.File, error) {
	return r.getFileEntry(filePath)
}

// ListDirectory returns the names of the entries of a directory, including
// the "." and parent (0x01) records. The empty path is the root.
func (r *Reader) ListDirectory(filePath string) ([]string, error) {
	dir, err := r.directory(filePath)
	if err != nil {
		return nil, err
	}
	return dir.FileList(), nil
}

func (r *Reader) directory(filePath string) (*iso9660.Directory, error) {
	if filePath == "" {
		return r.rootDirectory()
	}

	info, err := r.getFileEntry(filePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, notFound(filePath, "not found or not a directory")
	}

	key := canonicalKey(filePath)
	if dir, ok := r.dirCache[key]; ok {
		return dir, nil
	}
	dir, err := iso9660.NewDirectory(r, info.LBA, info.Size)
	if err != nil {
		return nil, err
	}
	r.dirCache[key] = dir
	return dir, nil
}

// GetFileProperties returns the ISO9660 file flags of filePath.
// The empty path is the root directory.
func (r *Reader) GetFileProperties(filePath string) (int, error) {
	if filePath == "" {
		return iso9660.PropertyDirectory, nil
	}
	info, err := r.getFileEntry(filePath)
	if err != nil {
		return 0, err
	}
	return info.Properties, nil
}

// IsDirectory reports whether filePath names a directory
func (r *Reader) IsDirectory(filePath string) (bool, error) {
	properties, err := r.GetFileProperties(filePath)
	if err != nil {
		return false, err
	}
	return properties&iso9660.PropertyDirectory != 0, nil
}
