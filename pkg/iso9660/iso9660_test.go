// Package iso9660 provides tests for directory record parsing
package iso9660

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/hansbonini/umdtools/pkg/isotest"
)

// memImage serves sectors from an in-memory image
type memImage []byte

func (m memImage) ReadSectors(sector, count int, buffer []byte) (int, error) {
	start := sector * isotest.SectorLength
	end := start + count*isotest.SectorLength
	for i := range buffer[:count*isotest.SectorLength] {
		buffer[i] = 0
	}
	if start < len(m) {
		if end > len(m) {
			end = len(m)
		}
		copy(buffer, m[start:end])
	}
	return count, nil
}

func makeRecord(name string, lba, size uint32, flags byte) []byte {
	length := 33 + len(name)
	if length%2 != 0 {
		length++
	}
	record := make([]byte, length)
	record[0] = byte(length)
	binary.LittleEndian.PutUint32(record[2:], lba)
	binary.BigEndian.PutUint32(record[6:], lba)
	binary.LittleEndian.PutUint32(record[10:], size)
	binary.BigEndian.PutUint32(record[14:], size)
	copy(record[18:25], []byte{106, 3, 15, 9, 30, 0, 8})
	record[25] = flags
	record[32] = byte(len(name))
	copy(record[33:], name)
	return record
}

func TestParseRecord(t *testing.T) {
	entry, length, err := ParseRecord(makeRecord("EBOOT.BIN;1", 0x1234, 5000, 0))
	if err != nil {
		t.Fatalf("ParseRecord() failed: %v", err)
	}
	if length != 44 {
		t.Errorf("length = %d, want 44", length)
	}
	if entry.Name != "EBOOT.BIN" {
		t.Errorf("Name = %q, want %q", entry.Name, "EBOOT.BIN")
	}
	if entry.LBA != 0x1234 || entry.Size != 5000 {
		t.Errorf("LBA/Size = %d/%d, want %d/%d", entry.LBA, entry.Size, 0x1234, 5000)
	}
	if entry.IsDir() {
		t.Error("IsDir() = true for a file record")
	}

	want := time.Date(2006, time.March, 15, 9, 30, 0, 0, time.FixedZone("", 2*60*60))
	if !entry.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", entry.Timestamp, want)
	}
}

func TestParseRecordSpecialNames(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"\x00", "."},
		{"\x01", "\x01"},
		{"PSP_GAME", "PSP_GAME"},
		{"A;1", "A"},
	}

	for _, tt := range tests {
		entry, _, err := ParseRecord(makeRecord(tt.raw, 20, 2048, PropertyDirectory))
		if err != nil {
			t.Fatalf("ParseRecord(%q) failed: %v", tt.raw, err)
		}
		if entry.Name != tt.expected {
			t.Errorf("Name = %q, want %q", entry.Name, tt.expected)
		}
		if !entry.IsDir() {
			t.Errorf("IsDir() = false for %q", tt.raw)
		}
	}
}

func TestParseRecordInvalid(t *testing.T) {
	entry, length, err := ParseRecord(make([]byte, 40))
	if entry != nil || length != 0 || err != nil {
		t.Errorf("zero length record = (%v, %d, %v), want padding", entry, length, err)
	}

	if _, _, err := ParseRecord(nil); err == nil {
		t.Error("expected error for empty data")
	}

	short := makeRecord("A", 1, 1, 0)
	short[0] = 20
	if _, _, err := ParseRecord(short); err == nil {
		t.Error("expected error for record shorter than the fixed fields")
	}

	long := makeRecord("A", 1, 1, 0)
	if _, _, err := ParseRecord(long[:30]); err == nil {
		t.Error("expected error for record past the end of data")
	}

	badName := makeRecord("AB", 1, 1, 0)
	badName[32] = 100
	if _, _, err := ParseRecord(badName); err == nil {
		t.Error("expected error for name past the end of the record")
	}
}

func TestParseVolumeDescriptor(t *testing.T) {
	image := isotest.New().VolumeID("ULUS10000").AddFile("A.TXT", []byte("x")).Bytes()

	vd, err := ParseVolumeDescriptor(image[16*isotest.SectorLength : 17*isotest.SectorLength])
	if err != nil {
		t.Fatalf("ParseVolumeDescriptor() failed: %v", err)
	}
	if vd.VolumeID != "ULUS10000" {
		t.Errorf("VolumeID = %q, want %q", vd.VolumeID, "ULUS10000")
	}
	if vd.SystemID != "PSP GAME" {
		t.Errorf("SystemID = %q, want %q", vd.SystemID, "PSP GAME")
	}
	if vd.LogicalBlock != isotest.SectorLength {
		t.Errorf("LogicalBlock = %d, want %d", vd.LogicalBlock, isotest.SectorLength)
	}
	if int(vd.VolumeSpaceSize) != len(image)/isotest.SectorLength {
		t.Errorf("VolumeSpaceSize = %d, want %d", vd.VolumeSpaceSize, len(image)/isotest.SectorLength)
	}
	if vd.Root == nil || vd.Root.LBA != 20 || !vd.Root.IsDir() || vd.Root.Name != "" {
		t.Errorf("Root = %+v, want directory at LBA 20", vd.Root)
	}

	if _, err := ParseVolumeDescriptor(make([]byte, isotest.SectorLength)); err == nil {
		t.Error("expected error for a sector without identifier")
	}
	if _, err := ParseVolumeDescriptor(image[:100]); err == nil {
		t.Error("expected error for a short sector")
	}
}

func TestDirectory(t *testing.T) {
	image := memImage(isotest.New().
		AddFile("B.BIN", []byte("bb")).
		AddFile("A.TXT", []byte("a")).
		AddDir("SUB").
		Bytes())

	root, err := NewRootDirectory(image)
	if err != nil {
		t.Fatalf("NewRootDirectory() failed: %v", err)
	}

	want := []string{".", "\x01", "A.TXT", "B.BIN", "SUB"}
	got := root.FileList()
	if len(got) != len(want) {
		t.Fatalf("FileList() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FileList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if root.Len() != 5 {
		t.Errorf("Len() = %d, want 5", root.Len())
	}

	if idx := root.FileIndex("b.BIN"); idx != 3 {
		t.Errorf("FileIndex(b.BIN) = %d, want 3", idx)
	}
	if idx := root.FileIndex("MISSING"); idx != -1 {
		t.Errorf("FileIndex(MISSING) = %d, want -1", idx)
	}
	if root.EntryByIndex(-1) != nil || root.EntryByIndex(5) != nil {
		t.Error("EntryByIndex out of range should return nil")
	}

	sub := root.Entry("SUB")
	if sub == nil || !sub.IsDir() {
		t.Fatalf("Entry(SUB) = %+v, want directory", sub)
	}
	dir, err := NewDirectory(image, sub.LBA, sub.Size)
	if err != nil {
		t.Fatalf("NewDirectory() failed: %v", err)
	}
	if dir.Len() != 2 {
		t.Errorf("empty directory has %d entries, want 2", dir.Len())
	}

	a := root.Entry("A.TXT")
	if a == nil || a.Size != 1 || !a.Timestamp.Equal(isotest.Timestamp) {
		t.Errorf("Entry(A.TXT) = %+v", a)
	}
}

func TestDirectorySpanningSectors(t *testing.T) {
	b := isotest.New()
	for i := 0; i < 80; i++ {
		b.AddFile(string(rune('A'+i/26))+string(rune('A'+i%26))+"_LONG_FILE_NAME.BIN", []byte{byte(i)})
	}
	image := memImage(b.Bytes())

	root, err := NewRootDirectory(image)
	if err != nil {
		t.Fatalf("NewRootDirectory() failed: %v", err)
	}
	if root.Len() != 82 {
		t.Errorf("Len() = %d, want 82", root.Len())
	}
	if root.Entry("DB_LONG_FILE_NAME.BIN") == nil {
		t.Error("entry from the last directory sector not found")
	}
}

func TestDirectoryStopsAtBadRecord(t *testing.T) {
	sector := make([]byte, isotest.SectorLength)
	good := makeRecord("A;1", 30, 10, 0)
	copy(sector, good)
	sector[len(good)] = 10 // shorter than the fixed fields

	image := make(memImage, 2*isotest.SectorLength)
	copy(image[isotest.SectorLength:], sector)

	dir, err := NewDirectory(image, 1, isotest.SectorLength)
	if err != nil {
		t.Fatalf("NewDirectory() failed: %v", err)
	}
	if dir.Len() != 1 {
		t.Errorf("Len() = %d, want 1", dir.Len())
	}
	if dir.FileList()[0] != "A" {
		t.Errorf("FileList() = %q", dir.FileList())
	}
}
