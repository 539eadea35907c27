package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"

	"github.com/hansbonini/umdtools/pkg/common"
)

// DefaultBlockCacheSize is the number of decompressed blocks kept in memory
const DefaultBlockCacheSize = 32

const (
	csoHeaderLength  = 24
	csoPlainBlockBit = 0x80000000
	csoOffsetMask    = 0x7FFFFFFF
)

// CSOHeader is the 24-byte header shared by CISO and ZISO containers
type CSOHeader struct {
	Magic      [4]byte
	HeaderSize uint32
	TotalBytes uint64
	BlockSize  uint32
	Version    uint8
	Align      uint8
	Reserved   [2]byte
}

// CSODevice reads block-compressed images: deflate for CISO, LZ4 for ZISO.
// Each index entry holds the block's file offset (shifted right by Align)
// and a high bit marking blocks stored without compression.
type CSODevice struct {
	src        Source
	header     CSOHeader
	format     Format
	numSectors int
	numBlocks  int
	index      []uint32
	cache      *lru.Cache[int, []byte]
}

// ParseCSOHeader decodes a CISO/ZISO header
func ParseCSOHeader(data []byte) (CSOHeader, error) {
	var header CSOHeader
	if len(data) < csoHeaderLength {
		return header, common.FormatErrorString(common.ErrFailedToReadHeader, "got %d bytes", len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:csoHeaderLength]), binary.LittleEndian, &header); err != nil {
		return header, common.FormatError(common.ErrFailedToReadHeader, err)
	}
	if header.BlockSize == 0 || header.BlockSize%SectorLength != 0 {
		return header, fmt.Errorf("%w: block size %d is not a multiple of %d", ErrInvalidHeader, header.BlockSize, SectorLength)
	}
	return header, nil
}

// NewCSODevice parses the header and block index of a CISO/ZISO image
func NewCSODevice(src Source, headerData []byte, blockCacheSize int) (*CSODevice, error) {
	header, err := ParseCSOHeader(headerData)
	if err != nil {
		return nil, err
	}

	numSectors, err := common.SafeUint64ToInt32(header.TotalBytes / SectorLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	numBlocks := int((header.TotalBytes + uint64(header.BlockSize) - 1) / uint64(header.BlockSize))

	raw := make([]byte, (numBlocks+1)*4)
	if _, err := src.ReadAt(raw, csoHeaderLength); err != nil && err != io.EOF {
		return nil, common.FormatError(common.ErrFailedToReadBlockIndex, err)
	}
	index := make([]uint32, numBlocks+1)
	for i := range index {
		index[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}

	if blockCacheSize <= 0 {
		blockCacheSize = DefaultBlockCacheSize
	}
	cache, err := lru.New[int, []byte](blockCacheSize)
	if err != nil {
		return nil, err
	}

	return &CSODevice{
		src:        src,
		header:     header,
		format:     Detect(headerData),
		numSectors: int(numSectors),
		numBlocks:  numBlocks,
		index:      index,
		cache:      cache,
	}, nil
}

// Header returns the parsed container header
func (d *CSODevice) Header() CSOHeader {
	return d.header
}

// Format reports whether the image is CISO or ZISO
func (d *CSODevice) Format() Format {
	return d.format
}

func (d *CSODevice) NumSectors() int {
	return d.numSectors
}

func (d *CSODevice) ReadSector(sector int, buffer []byte) error {
	_, err := d.ReadSectors(sector, 1, buffer)
	return err
}

func (d *CSODevice) ReadSectors(sector, count int, buffer []byte) (int, error) {
	if err := checkBuffer(count, buffer); err != nil {
		return 0, err
	}
	blockSize := int64(d.header.BlockSize)
	for i := 0; i < count; i++ {
		dst := buffer[i*SectorLength : (i+1)*SectorLength]
		offset := int64(sector+i) * SectorLength
		blockIndex := int(offset / blockSize)
		if blockIndex < 0 || blockIndex >= d.numBlocks {
			common.ZeroFill(dst)
			continue
		}
		block, err := d.readBlock(blockIndex)
		if err != nil {
			return i, err
		}
		copy(dst, block[offset%blockSize:])
	}
	return count, nil
}

func (d *CSODevice) readBlock(blockIndex int) ([]byte, error) {
	if block, ok := d.cache.Get(blockIndex); ok {
		return block, nil
	}
	common.LogDebug(common.DebugBlockCacheMiss, blockIndex)

	entry := d.index[blockIndex]
	start := int64(entry&csoOffsetMask) << d.header.Align
	end := int64(d.index[blockIndex+1]&csoOffsetMask) << d.header.Align
	if end < start {
		return nil, fmt.Errorf("%w: block %d ends before it starts", ErrInvalidHeader, blockIndex)
	}

	raw := make([]byte, end-start)
	n, err := d.src.ReadAt(raw, start)
	if err != nil && err != io.EOF {
		return nil, common.FormatError(common.ErrFailedToReadSectors, err)
	}
	raw = raw[:n]

	block := make([]byte, d.header.BlockSize)
	if entry&csoPlainBlockBit != 0 {
		copy(block, raw)
	} else if err := d.decompress(raw, block); err != nil {
		return nil, fmt.Errorf("%s %d: %w", common.ErrFailedToDecompressBlock, blockIndex, err)
	}

	d.cache.Add(blockIndex, block)
	return block, nil
}

func (d *CSODevice) decompress(src, dst []byte) error {
	if d.format == FormatZSO {
		_, err := lz4.UncompressBlock(src, dst)
		return err
	}
	fr := flate.NewReader(bytes.NewReader(src))
	defer fr.Close()
	// The last block of an image may be shorter than the block size
	_, err := io.ReadFull(fr, dst)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return nil
	}
	return err
}

func (d *CSODevice) Close() error {
	d.cache.Purge()
	return d.src.Close()
}
