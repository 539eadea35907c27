package umd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/iso9660"
)

// skipEntry reports whether name is the "." or parent record of a directory
func skipEntry(name string) bool {
	return name == "." || name == "\x01"
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// GetFileName returns the path of the entry whose extent starts at sector.
// Errors met during the search are logged and skipped.
func (r *Reader) GetFileName(sector int) (string, bool) {
	names, err := r.ListDirectory("")
	if err != nil {
		common.LogDebug(common.DebugLookupIgnoredErr, sector, err)
		return "", false
	}
	return r.findFileName(sector, "", names)
}

func (r *Reader) findFileName(sector int, dir string, names []string) (string, bool) {
	for _, name := range names {
		if skipEntry(name) {
			continue
		}
		filePath := joinPath(dir, name)
		info, err := r.getFileEntry(filePath)
		if err != nil {
			common.LogDebug(common.DebugLookupIgnoredErr, sector, err)
			continue
		}
		if info.LBA == sector {
			return filePath, true
		}
		if info.IsDir() {
			children, err := r.ListDirectory(filePath)
			if err != nil {
				common.LogDebug(common.DebugLookupIgnoredErr, sector, err)
				continue
			}
			if found, ok := r.findFileName(sector, filePath, children); ok {
				return found, true
			}
		}
	}
	return "", false
}

// DumpIndex writes a listing of every entry with its start sector and size,
// followed by the used space, the image size and the space no entry covers.
//
// The "." and parent records of each directory are neither listed nor
// counted, so every directory extent is counted once. Total Size and
// Missing therefore differ from indexes that add those records to the
// used space.
func (r *Reader) DumpIndex(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "  Start    Size       Name"); err != nil {
		return err
	}
	names, err := r.ListDirectory("")
	if err != nil {
		return err
	}
	used, err := r.dumpDirectory(w, "", names)
	if err != nil {
		return err
	}

	imageSize := int64(r.numSectors) * SectorLength
	missing := imageSize - used
	_, err = fmt.Fprintf(w, "Total Size %10d\nImage Size %10d\nMissing    %10d (%d sectors)\n",
		used, imageSize, missing, missing/SectorLength)
	return err
}

func (r *Reader) dumpDirectory(w io.Writer, dir string, names []string) (int64, error) {
	var used int64
	for _, name := range names {
		if skipEntry(name) {
			continue
		}
		filePath := joinPath(dir, name)
		info, err := r.getFileEntry(filePath)
		if err != nil {
			return used, err
		}
		used += common.RoundUpToSector(info.Size)

		if !info.IsDir() {
			if _, err := fmt.Fprintf(w, "  %08X %10d %s\n", info.LBA, info.Size, filePath); err != nil {
				return used, err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "D %08X %10d %s\n", info.LBA, info.Size, filePath); err != nil {
			return used, err
		}
		children, err := r.ListDirectory(filePath)
		if err != nil {
			return used, err
		}
		childUsed, err := r.dumpDirectory(w, filePath, children)
		used += childUsed
		if err != nil {
			return used, err
		}
	}
	return used, nil
}

// DumpIndexFile writes the index to a host file
func (r *Reader) DumpIndexFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return common.FormatError(common.ErrFailedToCreateOutput, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	w := bufio.NewWriter(f)
	if err := r.DumpIndex(w); err != nil {
		return err
	}
	return w.Flush()
}

// Walk calls fn for every entry below the root in depth-first order,
// skipping the "." and parent records. Returning an error stops the walk.
func (r *Reader) Walk(fn func(filePath string, info *iso9660.File) error) error {
	names, err := r.ListDirectory("")
	if err != nil {
		return err
	}
	return r.walk("", names, fn)
}

func (r *Reader) walk(dir string, names []string, fn func(string, *iso9660.File) error) error {
	for _, name := range names {
		if skipEntry(name) {
			continue
		}
		filePath := joinPath(dir, name)
		info, err := r.getFileEntry(filePath)
		if err != nil {
			return err
		}
		if err := fn(filePath, info); err != nil {
			return err
		}
		if info.IsDir() {
			children, err := r.ListDirectory(filePath)
			if err != nil {
				return err
			}
			if err := r.walk(filePath, children, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
