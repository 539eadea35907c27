package psp

import (
	"bytes"
	"strings"
)

// UMDDataPath is the location of UMD_DATA.BIN at the root of a UMD image
const UMDDataPath = "UMD_DATA.BIN"

// UMDData holds the '|' separated fields of UMD_DATA.BIN.
// The first field is the disc id, e.g. ULUS-10041.
type UMDData struct {
	DiscID string
	Fields []string
}

// ParseUMDData splits UMD_DATA.BIN. Trailing NUL padding is ignored.
func ParseUMDData(data []byte) UMDData {
	text := string(bytes.TrimRight(data, "\x00"))
	fields := strings.Split(text, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return UMDData{
		DiscID: fields[0],
		Fields: fields,
	}
}
