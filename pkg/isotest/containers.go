package isotest

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"
)

const (
	containerHeaderLength = 24
	plainBlockBit         = 0x80000000
)

// EncodeCSO compresses image into a CISO container with raw deflate blocks.
// Blocks that do not shrink are stored plain.
func EncodeCSO(image []byte, blockSize int) []byte {
	return encodeBlocks("CISO", image, blockSize, func(block []byte) []byte {
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.BestCompression)
		if err != nil {
			panic(err)
		}
		w.Write(block)
		w.Close()
		return buf.Bytes()
	})
}

// EncodeZSO compresses image into a ZISO container with LZ4 blocks.
// Blocks that do not shrink are stored plain.
func EncodeZSO(image []byte, blockSize int) []byte {
	return encodeBlocks("ZISO", image, blockSize, func(block []byte) []byte {
		dst := make([]byte, lz4.CompressBlockBound(len(block)))
		n, err := lz4.CompressBlock(block, dst, nil)
		if err != nil || n == 0 {
			return nil
		}
		return dst[:n]
	})
}

func encodeBlocks(magic string, image []byte, blockSize int, compress func([]byte) []byte) []byte {
	numBlocks := (len(image) + blockSize - 1) / blockSize

	header := make([]byte, containerHeaderLength)
	copy(header, magic)
	binary.LittleEndian.PutUint32(header[4:], containerHeaderLength)
	binary.LittleEndian.PutUint64(header[8:], uint64(len(image)))
	binary.LittleEndian.PutUint32(header[16:], uint32(blockSize))
	header[20] = 1

	index := make([]byte, (numBlocks+1)*4)
	var data bytes.Buffer
	offset := uint32(containerHeaderLength + len(index))
	for i := 0; i < numBlocks; i++ {
		end := (i + 1) * blockSize
		if end > len(image) {
			end = len(image)
		}
		block := image[i*blockSize : end]

		entry := offset
		compressed := compress(block)
		if compressed == nil || len(compressed) >= len(block) {
			compressed = block
			entry |= plainBlockBit
		}
		binary.LittleEndian.PutUint32(index[i*4:], entry)
		data.Write(compressed)
		offset += uint32(len(compressed))
	}
	binary.LittleEndian.PutUint32(index[numBlocks*4:], offset)

	out := append(header, index...)
	return append(out, data.Bytes()...)
}

// EncodePBP packs sections, in PBP header order, into a PBP package.
// Missing trailing sections are empty.
func EncodePBP(sections ...[]byte) []byte {
	const numSections = 8
	const headerLength = 8 + numSections*4

	header := make([]byte, headerLength)
	copy(header, []byte{0x00, 'P', 'B', 'P'})
	binary.LittleEndian.PutUint32(header[4:], 0x00010000)

	var body bytes.Buffer
	for i := 0; i < numSections; i++ {
		binary.LittleEndian.PutUint32(header[8+i*4:], uint32(headerLength+body.Len()))
		if i < len(sections) {
			body.Write(sections[i])
		}
	}
	return append(header, body.Bytes()...)
}
