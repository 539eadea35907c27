// Package isotest builds small ISO9660 images in memory for tests.
package isotest

import (
	"encoding/binary"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

// SectorLength is the logical block size of generated images
const SectorLength = 2048

const firstDirectorySector = 20

// Timestamp is the recording date written into every record
var Timestamp = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.FixedZone("", 0))

type fileSpec struct {
	path string
	data []byte
	lba  int // 0 means allocate
	size int64
}

type dirSpec struct {
	path     string
	lba      int
	sectors  int
	children []string
}

// Builder describes the content of an image
type Builder struct {
	files      []*fileSpec
	dirs       map[string]bool
	joliet     bool
	volumeID   string
	minSectors int
	truncate   int
}

// New returns an empty image builder
func New() *Builder {
	return &Builder{
		dirs:     map[string]bool{"": true},
		volumeID: "UMD_TEST",
	}
}

// AddFile adds a file; missing parent directories are created
func (b *Builder) AddFile(p string, data []byte) *Builder {
	b.files = append(b.files, &fileSpec{path: p, data: data, size: int64(len(data))})
	b.addParents(p)
	return b
}

// AddFileAt adds a file stored at a fixed sector
func (b *Builder) AddFileAt(p string, lba int, data []byte) *Builder {
	b.files = append(b.files, &fileSpec{path: p, data: data, lba: lba, size: int64(len(data))})
	b.addParents(p)
	return b
}

// AddRecord adds a file record that claims size bytes at lba without storing any data
func (b *Builder) AddRecord(p string, lba int, size int64) *Builder {
	b.files = append(b.files, &fileSpec{path: p, lba: lba, size: size})
	b.addParents(p)
	return b
}

// AddDir adds an (empty) directory
func (b *Builder) AddDir(p string) *Builder {
	b.dirs[p] = true
	b.addParents(p)
	return b
}

// Joliet adds a supplementary volume descriptor at sector 17
func (b *Builder) Joliet() *Builder {
	b.joliet = true
	return b
}

// VolumeID sets the volume identifier of the primary descriptor
func (b *Builder) VolumeID(id string) *Builder {
	b.volumeID = id
	return b
}

// MinSectors pads the image to at least n sectors
func (b *Builder) MinSectors(n int) *Builder {
	b.minSectors = n
	return b
}

// TruncateTo cuts the encoded image to n sectors, leaving records that
// point past the end of the image
func (b *Builder) TruncateTo(n int) *Builder {
	b.truncate = n
	return b
}

func (b *Builder) addParents(p string) {
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		b.dirs[dir] = true
	}
}

// Bytes lays out and encodes the image
func (b *Builder) Bytes() []byte {
	dirs := b.layoutDirectories()

	next := firstDirectorySector
	for _, d := range dirs {
		if end := d.lba + d.sectors; end > next {
			next = end
		}
	}
	for _, f := range b.files {
		if f.lba != 0 {
			if end := f.lba + sectorsFor(f.size); end > next {
				next = end
			}
		}
	}
	for _, f := range b.files {
		if f.lba == 0 {
			f.lba = next
			next += sectorsFor(f.size)
		}
	}
	total := next
	if total < b.minSectors {
		total = b.minSectors
	}

	image := make([]byte, total*SectorLength)
	root := dirs[""]
	b.writePrimaryDescriptor(image, root, total)
	terminator := 17
	if b.joliet {
		b.writeSupplementaryDescriptor(image[17*SectorLength:], root, total)
		terminator = 18
	}
	copy(image[terminator*SectorLength:], []byte{0xFF, 'C', 'D', '0', '0', '1', 0x01})

	byPath := map[string]*fileSpec{}
	for _, f := range b.files {
		byPath[f.path] = f
		copy(image[f.lba*SectorLength:], f.data)
	}
	for _, d := range dirs {
		b.writeDirectory(image, d, dirs, byPath)
	}
	if b.truncate > 0 && b.truncate < total {
		image = image[:b.truncate*SectorLength]
	}
	return image
}

// WriteFile writes the image to a temporary directory and returns its path
func (b *Builder) WriteFile(t testing.TB, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, b.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write test image: %v", err)
	}
	return p
}

func (b *Builder) layoutDirectories() map[string]*dirSpec {
	dirs := map[string]*dirSpec{}
	for p := range b.dirs {
		dirs[p] = &dirSpec{path: p}
	}
	for p := range b.dirs {
		if p != "" {
			parent := parentOf(p)
			dirs[parent].children = append(dirs[parent].children, p)
		}
	}
	for _, f := range b.files {
		parent := parentOf(f.path)
		dirs[parent].children = append(dirs[parent].children, f.path)
	}

	paths := make([]string, 0, len(dirs))
	for p, d := range dirs {
		paths = append(paths, p)
		sort.Strings(d.children)
		lengths := []int{recordLength(1), recordLength(1)}
		for _, child := range d.children {
			lengths = append(lengths, recordLength(len(identifier(child, b.dirs[child]))))
		}
		d.sectors = sectorsForRecords(lengths)
	}
	sort.Strings(paths)

	next := firstDirectorySector
	for _, p := range paths {
		dirs[p].lba = next
		next += dirs[p].sectors
	}
	return dirs
}

func (b *Builder) writeDirectory(image []byte, d *dirSpec, dirs map[string]*dirSpec, files map[string]*fileSpec) {
	parent := d
	if d.path != "" {
		parent = dirs[parentOf(d.path)]
	}

	records := [][]byte{
		encodeRecord("\x00", d.lba, int64(d.sectors*SectorLength), true),
		encodeRecord("\x01", parent.lba, int64(parent.sectors*SectorLength), true),
	}
	for _, child := range d.children {
		if sub, ok := dirs[child]; ok {
			records = append(records, encodeRecord(identifier(child, true), sub.lba, int64(sub.sectors*SectorLength), true))
			continue
		}
		f := files[child]
		records = append(records, encodeRecord(identifier(child, false), f.lba, f.size, false))
	}

	offset := d.lba * SectorLength
	used := 0
	for _, record := range records {
		if used+len(record) > SectorLength {
			offset += SectorLength - used
			used = 0
		}
		copy(image[offset:], record)
		offset += len(record)
		used += len(record)
	}
}

func (b *Builder) writePrimaryDescriptor(image []byte, root *dirSpec, total int) {
	pvd := image[16*SectorLength : 17*SectorLength]
	pvd[0] = 0x01
	copy(pvd[1:6], "CD001")
	pvd[6] = 0x01
	copy(pvd[8:40], padIdentifier("PSP GAME", 32))
	copy(pvd[40:72], padIdentifier(b.volumeID, 32))
	putBoth32(pvd[80:88], uint32(total))
	putBoth16(pvd[120:124], 1)
	putBoth16(pvd[124:128], 1)
	putBoth16(pvd[128:132], SectorLength)
	copy(pvd[156:190], encodeRecord("\x00", root.lba, int64(root.sectors*SectorLength), true))
	copy(pvd[574:702], padIdentifier("PSP GAME", 128))
	pvd[881] = 0x01
}

func (b *Builder) writeSupplementaryDescriptor(svd []byte, root *dirSpec, total int) {
	svd[0] = 0x02
	copy(svd[1:6], "CD001")
	svd[6] = 0x01
	putBoth32(svd[80:88], uint32(total))
	// UCS-2 level 3 escape sequence
	copy(svd[88:91], "%/E")
	putBoth16(svd[128:132], SectorLength)
	copy(svd[156:190], encodeRecord("\x00", root.lba, int64(root.sectors*SectorLength), true))
}

func encodeRecord(name string, lba int, size int64, dir bool) []byte {
	length := recordLength(len(name))
	record := make([]byte, length)
	record[0] = byte(length)
	putBoth32(record[2:10], uint32(lba))
	putBoth32(record[10:18], uint32(size))
	record[18] = byte(Timestamp.Year() - 1900)
	record[19] = byte(Timestamp.Month())
	record[20] = byte(Timestamp.Day())
	record[21] = byte(Timestamp.Hour())
	record[22] = byte(Timestamp.Minute())
	record[23] = byte(Timestamp.Second())
	if dir {
		record[25] = 0x02
	}
	putBoth16(record[28:32], 1)
	record[32] = byte(len(name))
	copy(record[33:], name)
	return record
}

// sectorsForRecords counts the sectors needed when records may not cross a sector boundary
func sectorsForRecords(lengths []int) int {
	sectors, used := 1, 0
	for _, length := range lengths {
		if used+length > SectorLength {
			sectors++
			used = 0
		}
		used += length
	}
	return sectors
}

func recordLength(nameLength int) int {
	length := 33 + nameLength
	if length%2 != 0 {
		length++
	}
	return length
}

func identifier(p string, dir bool) string {
	name := strings.ToUpper(path.Base(p))
	if dir {
		return name
	}
	return name + ";1"
}

func parentOf(p string) string {
	parent := path.Dir(p)
	if parent == "." || parent == "/" {
		return ""
	}
	return parent
}

func sectorsFor(size int64) int {
	return int((size + SectorLength - 1) / SectorLength)
}

func padIdentifier(s string, n int) []byte {
	out := []byte(strings.Repeat(" ", n))
	copy(out, s)
	return out
}

func putBoth16(dst []byte, v uint16) {
	binary.LittleEndian.PutUint16(dst[0:2], v)
	binary.BigEndian.PutUint16(dst[2:4], v)
}

func putBoth32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], v)
	binary.BigEndian.PutUint32(dst[4:8], v)
}
