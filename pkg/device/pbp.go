package device

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/hansbonini/umdtools/pkg/common"
)

const pbpHeaderLength = 40

// PBP section indices, in header order
const (
	SectionParamSFO = iota
	SectionIcon0
	SectionIcon1
	SectionPic0
	SectionPic1
	SectionSnd0
	SectionDataPSP
	SectionDataPSAR
	numSections
)

// SectionNames lists the file name of every PBP section, in header order
var SectionNames = [numSections]string{
	"PARAM.SFO", "ICON0.PNG", "ICON1.PMF", "PIC0.PNG",
	"PIC1.PNG", "SND0.AT3", "DATA.PSP", "DATA.PSAR",
}

// ErrEncryptedImage is reported when DATA.PSAR holds an encrypted disc image
var ErrEncryptedImage = errors.New("encrypted disc image in DATA.PSAR")

var encryptedSignatures = [][]byte{
	[]byte("NPUMDIMG"),
	[]byte("PSISOIMG"),
	[]byte("PSTITLEIMG"),
}

// PBPHeader is the fixed header of a PBP package
type PBPHeader struct {
	Magic   [4]byte
	Version uint32
	Offsets [numSections]uint32
}

// PBPDevice exposes the sections of a PBP package. Its sectors are the
// DATA.PSAR section read as a plain image; encrypted images expose none.
// PBPDevice implements Browser.
type PBPDevice struct {
	src        Source
	header     PBPHeader
	bounds     [numSections + 1]int64
	numSectors int
}

var _ Browser = (*PBPDevice)(nil)

// NewPBPDevice parses the PBP header of a file of size bytes
func NewPBPDevice(src Source, size int64) (*PBPDevice, error) {
	raw := make([]byte, pbpHeaderLength)
	if _, err := src.ReadAt(raw, 0); err != nil {
		return nil, common.FormatError(common.ErrFailedToReadHeader, err)
	}
	if err := common.ValidateMagic(raw, magicPBP, "PBP"); err != nil {
		return nil, errors.Join(ErrInvalidHeader, err)
	}

	d := &PBPDevice{src: src}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &d.header); err != nil {
		return nil, common.FormatError(common.ErrFailedToReadHeader, err)
	}
	for i, offset := range d.header.Offsets {
		d.bounds[i] = int64(offset)
	}
	d.bounds[numSections] = size
	for i := 0; i < numSections; i++ {
		if d.bounds[i] > size || d.bounds[i+1] < d.bounds[i] {
			return nil, common.FormatErrorString(ErrInvalidHeader.Error(), "section %s out of bounds", SectionNames[i])
		}
	}

	psarLength := d.sectionLength(SectionDataPSAR)
	if err := d.checkPSAR(psarLength); err != nil {
		common.LogDebug(common.DebugEncryptedPSAR, err)
	} else {
		d.numSectors = int(psarLength / SectorLength)
	}
	return d, nil
}

func (d *PBPDevice) checkPSAR(length int64) error {
	if length == 0 {
		return nil
	}
	probe := make([]byte, 16)
	n, err := d.src.ReadAt(probe, d.bounds[SectionDataPSAR])
	if err != nil && err != io.EOF {
		return err
	}
	for _, signature := range encryptedSignatures {
		if bytes.HasPrefix(probe[:n], signature) {
			return ErrEncryptedImage
		}
	}
	return nil
}

func (d *PBPDevice) sectionLength(section int) int64 {
	return d.bounds[section+1] - d.bounds[section]
}

// Header returns the parsed PBP header
func (d *PBPDevice) Header() PBPHeader {
	return d.header
}

// ReadSection returns the content of one section, or nil when it is empty
func (d *PBPDevice) ReadSection(section int) ([]byte, error) {
	if section < 0 || section >= numSections {
		return nil, nil
	}
	length := d.sectionLength(section)
	if length <= 0 {
		return nil, nil
	}
	data := make([]byte, length)
	n, err := d.src.ReadAt(data, d.bounds[section])
	if err != nil && err != io.EOF {
		return nil, common.FormatError(common.ErrFailedToReadSectors, err)
	}
	return data[:n], nil
}

func (d *PBPDevice) ReadParamSFO() ([]byte, error) { return d.ReadSection(SectionParamSFO) }
func (d *PBPDevice) ReadIcon0() ([]byte, error)    { return d.ReadSection(SectionIcon0) }
func (d *PBPDevice) ReadIcon1() ([]byte, error)    { return d.ReadSection(SectionIcon1) }
func (d *PBPDevice) ReadPic0() ([]byte, error)     { return d.ReadSection(SectionPic0) }
func (d *PBPDevice) ReadPic1() ([]byte, error)     { return d.ReadSection(SectionPic1) }
func (d *PBPDevice) ReadSnd0() ([]byte, error)     { return d.ReadSection(SectionSnd0) }
func (d *PBPDevice) ReadPspData() ([]byte, error)  { return d.ReadSection(SectionDataPSP) }
func (d *PBPDevice) ReadPsarData() ([]byte, error) { return d.ReadSection(SectionDataPSAR) }

func (d *PBPDevice) NumSectors() int {
	return d.numSectors
}

func (d *PBPDevice) ReadSector(sector int, buffer []byte) error {
	_, err := d.ReadSectors(sector, 1, buffer)
	return err
}

func (d *PBPDevice) ReadSectors(sector, count int, buffer []byte) (int, error) {
	if err := checkBuffer(count, buffer); err != nil {
		return 0, err
	}
	length := int64(count) * SectorLength
	offset := int64(sector) * SectorLength
	available := d.sectionLength(SectionDataPSAR) - offset
	if available > length {
		available = length
	}
	n := 0
	if available > 0 {
		var err error
		n, err = d.src.ReadAt(buffer[:available], d.bounds[SectionDataPSAR]+offset)
		if err != nil && err != io.EOF {
			return n / SectorLength, common.FormatError(common.ErrFailedToReadSectors, err)
		}
	}
	common.ZeroFill(buffer[n:length])
	return count, nil
}

func (d *PBPDevice) Close() error {
	return d.src.Close()
}
