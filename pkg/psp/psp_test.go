package psp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sfoValue struct {
	key    string
	format uint16
	data   []byte
}

// buildSFO encodes entries with 4-byte aligned keys and values
func buildSFO(values []sfoValue) []byte {
	var keys, data, index bytes.Buffer
	for _, v := range values {
		binary.Write(&index, binary.LittleEndian, sfoIndexEntry{
			KeyOffset:  uint16(keys.Len()),
			Format:     v.format,
			Length:     uint32(len(v.data)),
			MaxLength:  uint32(len(v.data)),
			DataOffset: uint32(data.Len()),
		})
		keys.WriteString(v.key)
		keys.WriteByte(0)
		data.Write(v.data)
		for data.Len()%4 != 0 {
			data.WriteByte(0)
		}
	}
	for keys.Len()%4 != 0 {
		keys.WriteByte(0)
	}

	keyStart := sfoHeaderLength + index.Len()
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, SFOHeader{
		Magic:          [4]byte{0x00, 'P', 'S', 'F'},
		Version:        0x0101,
		KeyTableStart:  uint32(keyStart),
		DataTableStart: uint32(keyStart + keys.Len()),
		Entries:        uint32(len(values)),
	})
	out.Write(index.Bytes())
	out.Write(keys.Bytes())
	out.Write(data.Bytes())
	return out.Bytes()
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestParseSFO(t *testing.T) {
	data := buildSFO([]sfoValue{
		{"CATEGORY", FormatUTF8, []byte("UG\x00")},
		{"DISC_ID", FormatUTF8, []byte("ULUS10041\x00")},
		{"PARENTAL_LEVEL", FormatInt32, le32(3)},
		{"TITLE", FormatUTF8, []byte("Some Game\x00\x00\x00")},
		{"APP_VER", FormatUTF8Special, []byte("01.00")},
	})

	sfo, err := ParseSFO(data)
	require.NoError(t, err)
	require.Len(t, sfo.Entries, 5)
	assert.Equal(t, uint32(0x0101), sfo.Header.Version)

	assert.Equal(t, "UG", sfo.String("CATEGORY"))
	assert.Equal(t, "ULUS10041", sfo.String("DISC_ID"))
	assert.Equal(t, "Some Game", sfo.String("TITLE"))
	assert.Equal(t, "01.00", sfo.String("APP_VER"))
	assert.Equal(t, "", sfo.String("MISSING"))

	level, ok := sfo.Int("PARENTAL_LEVEL")
	assert.True(t, ok)
	assert.Equal(t, uint32(3), level)
	_, ok = sfo.Int("TITLE")
	assert.False(t, ok)

	m := sfo.Map()
	assert.Equal(t, uint32(3), m["PARENTAL_LEVEL"])
	assert.Equal(t, "Some Game", m["TITLE"])
	assert.Equal(t, "CATEGORY", sfo.Entries[0].Key)
}

func TestParseSFOErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("\x00PSX\x01\x01\x00\x00")},
		{"header truncated", []byte("\x00PSF\x01\x01")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSFO(tt.data)
			assert.Error(t, err)
		})
	}

	t.Run("too many entries", func(t *testing.T) {
		data := buildSFO([]sfoValue{{"TITLE", FormatUTF8, []byte("x\x00")}})
		binary.LittleEndian.PutUint32(data[16:], 1000)
		_, err := ParseSFO(data)
		assert.Error(t, err)
	})

	t.Run("value out of bounds", func(t *testing.T) {
		data := buildSFO([]sfoValue{{"TITLE", FormatUTF8, []byte("x\x00")}})
		binary.LittleEndian.PutUint32(data[sfoHeaderLength+4:], 5000)
		_, err := ParseSFO(data)
		assert.Error(t, err)
	})
}

func TestParseUMDData(t *testing.T) {
	data := append([]byte("ULUS-10041|0000000000000001|0001|G"), make([]byte, 16)...)
	umd := ParseUMDData(data)
	assert.Equal(t, "ULUS-10041", umd.DiscID)
	assert.Equal(t, []string{"ULUS-10041", "0000000000000001", "0001", "G"}, umd.Fields)

	umd = ParseUMDData([]byte("NPJH50001"))
	assert.Equal(t, "NPJH50001", umd.DiscID)
	assert.Len(t, umd.Fields, 1)
}
