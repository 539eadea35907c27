// Package psp decodes PSP metadata files found on UMD images:
// PARAM.SFO and UMD_DATA.BIN.
package psp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hansbonini/umdtools/pkg/common"
)

// SFO value formats
const (
	FormatUTF8Special = 0x0004 // not NUL terminated
	FormatUTF8        = 0x0204
	FormatInt32       = 0x0404
)

const (
	sfoHeaderLength = 20
	sfoEntryLength  = 16
)

var sfoMagic = []byte{0x00, 'P', 'S', 'F'}

// SFOHeader is the fixed header of a PARAM.SFO file
type SFOHeader struct {
	Magic          [4]byte
	Version        uint32
	KeyTableStart  uint32
	DataTableStart uint32
	Entries        uint32
}

type sfoIndexEntry struct {
	KeyOffset  uint16
	Format     uint16
	Length     uint32
	MaxLength  uint32
	DataOffset uint32
}

// SFOEntry is one key/value pair. Integer is set for FormatInt32 values,
// String for the others.
type SFOEntry struct {
	Key     string
	Format  uint16
	String  string
	Integer uint32
}

// Value returns the entry value as a string or uint32
func (e SFOEntry) Value() interface{} {
	if e.Format == FormatInt32 {
		return e.Integer
	}
	return e.String
}

// SFO is a decoded PARAM.SFO, entries in file order
type SFO struct {
	Header  SFOHeader
	Entries []SFOEntry
}

// ParseSFO decodes a PARAM.SFO file
func ParseSFO(data []byte) (*SFO, error) {
	if err := common.ValidateMagic(data, sfoMagic, "PARAM.SFO"); err != nil {
		return nil, err
	}
	if len(data) < sfoHeaderLength {
		return nil, common.FormatErrorString(common.ErrFailedToParseSFO, "header truncated")
	}

	sfo := &SFO{}
	if err := binary.Read(bytes.NewReader(data[:sfoHeaderLength]), binary.LittleEndian, &sfo.Header); err != nil {
		return nil, common.FormatError(common.ErrFailedToParseSFO, err)
	}

	count := int(sfo.Header.Entries)
	if sfoHeaderLength+count*sfoEntryLength > len(data) {
		return nil, common.FormatErrorString(common.ErrFailedToParseSFO, "%d index entries exceed file size", count)
	}

	index := make([]sfoIndexEntry, count)
	if err := binary.Read(bytes.NewReader(data[sfoHeaderLength:]), binary.LittleEndian, index); err != nil {
		return nil, common.FormatError(common.ErrFailedToParseSFO, err)
	}

	for i, entry := range index {
		key, err := readKey(data, int(sfo.Header.KeyTableStart)+int(entry.KeyOffset))
		if err != nil {
			return nil, common.FormatErrorString(common.ErrFailedToParseSFO, "entry %d: %v", i, err)
		}

		start := int(sfo.Header.DataTableStart) + int(entry.DataOffset)
		end := start + int(entry.Length)
		if start < 0 || end > len(data) || end < start {
			return nil, common.FormatErrorString(common.ErrFailedToParseSFO, "entry %s: data out of bounds", key)
		}
		value := data[start:end]

		e := SFOEntry{Key: key, Format: entry.Format}
		switch entry.Format {
		case FormatInt32:
			if len(value) < 4 {
				return nil, common.FormatErrorString(common.ErrFailedToParseSFO, "entry %s: integer too short", key)
			}
			e.Integer = binary.LittleEndian.Uint32(value)
		default:
			e.String = string(bytes.TrimRight(value, "\x00"))
		}
		sfo.Entries = append(sfo.Entries, e)
	}
	return sfo, nil
}

func readKey(data []byte, offset int) (string, error) {
	if offset < 0 || offset >= len(data) {
		return "", fmt.Errorf("key offset %d out of bounds", offset)
	}
	end := bytes.IndexByte(data[offset:], 0)
	if end < 0 {
		return "", fmt.Errorf("key at %d is not terminated", offset)
	}
	return string(data[offset : offset+end]), nil
}

// Entry returns the entry called key
func (s *SFO) Entry(key string) (SFOEntry, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return SFOEntry{}, false
}

// String returns the string value of key, or ""
func (s *SFO) String(key string) string {
	e, _ := s.Entry(key)
	return e.String
}

// Int returns the integer value of key
func (s *SFO) Int(key string) (uint32, bool) {
	e, ok := s.Entry(key)
	if !ok || e.Format != FormatInt32 {
		return 0, false
	}
	return e.Integer, true
}

// Map returns every entry keyed by name
func (s *SFO) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(s.Entries))
	for _, e := range s.Entries {
		m[e.Key] = e.Value()
	}
	return m
}
