// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// blockDirEntry is one 32-byte row of an array container's block
// directory (§4.3).
type blockDirEntry struct {
	compOff     uint64
	compSize    uint64
	uncompBytes uint64
	// reserved 8 bytes, always zero on write
}

// container is a single numeric-array region (spectrum/chromatogram
// X/Y): a block directory followed by concatenated, independently
// compressed block payloads. Decoded blocks are cached per-call so that
// repeated slices into the same block only pay the inflate cost once.
type container struct {
	data             []byte // region bytes, directory + payload
	dir              []blockDirEntry
	blockStartElems  []uint64 // len(dir)+1, cumulative element counts
	cache            [][]byte
	codec            uint8
	compressionLevel uint8
	elemSize         int
	arrayFilter      uint8
}

// emptyContainer returns a container with no blocks, used when a
// header's size/block-count pair is zero (an mzML file with no
// spectra, or an absent chromatogram list).
func emptyContainer(codec uint8, elemSize int, filter uint8) *container {
	return &container{
		blockStartElems:  []uint64{0},
		codec:            codec,
		elemSize:         elemSize,
		arrayFilter:      filter,
	}
}

// newContainer slices region out of file and parses its block
// directory. blockCount is taken from the header rather than inferred,
// matching the trusted-header-derived-counts approach of the rest of
// the codec.
func newContainer(file []byte, off, size uint64, blockCount uint32, codec uint8, compressionLevel uint8, elemSize int, filter uint8) (*container, error) {
	if size == 0 || blockCount == 0 {
		return emptyContainer(codec, elemSize, filter), nil
	}
	if elemSize == 0 {
		return nil, fmt.Errorf("%w: zero element size", ErrBadArrayLayout)
	}

	region, err := readSlice(file, off, size)
	if err != nil {
		return nil, err
	}

	dirBytes := uint64(blockCount) * blockDirEntrySize
	if dirBytes > uint64(len(region)) {
		return nil, fmt.Errorf("%w: container too small for block directory", ErrTruncated)
	}

	dir := make([]blockDirEntry, blockCount)
	blockStarts := make([]uint64, blockCount+1)
	var cumElems uint64
	for i := uint32(0); i < blockCount; i++ {
		base := uint64(i) * blockDirEntrySize
		e := blockDirEntry{
			compOff:     leUint64(region[base : base+8]),
			compSize:    leUint64(region[base+8 : base+16]),
			uncompBytes: leUint64(region[base+16 : base+24]),
		}
		dir[i] = e
		blockStarts[i] = cumElems
		cumElems += e.uncompBytes / uint64(elemSize)
	}
	blockStarts[blockCount] = cumElems

	return &container{
		data:             region,
		dir:              dir,
		blockStartElems:  blockStarts,
		cache:            make([][]byte, blockCount),
		codec:            codec,
		compressionLevel: compressionLevel,
		elemSize:         elemSize,
		arrayFilter:      filter,
	}, nil
}

func (c *container) blockCount() int { return len(c.dir) }

// blockBytes returns the decoded (decompressed + unshuffled) bytes of
// block id, decoding and caching it on first use.
func (c *container) blockBytes(id uint32) ([]byte, error) {
	if int(id) >= c.blockCount() {
		return nil, fmt.Errorf("%w: block id %d out of range", ErrBadArrayLayout, id)
	}
	if c.cache[id] != nil {
		return c.cache[id], nil
	}

	e := c.dir[id]
	// compOff is relative to the end of the block directory (§4.3).
	start := uint64(len(c.dir))*blockDirEntrySize + e.compOff
	end := start + e.compSize
	if end > uint64(len(c.data)) {
		return nil, fmt.Errorf("%w: block %d payload past end of container", ErrTruncated, id)
	}
	comp := c.data[start:end]

	needsOwned := c.compressionLevel != 0 ||
		(c.arrayFilter == arrayFilterByteShuffle && c.elemSize > 1)
	if !needsOwned {
		return comp, nil
	}

	var block []byte
	if c.compressionLevel == 0 {
		if e.uncompBytes != 0 && uint64(len(comp)) != e.uncompBytes {
			return nil, fmt.Errorf("%w: uncompressed block size mismatch", ErrBadCompression)
		}
		block = append([]byte(nil), comp...)
	} else {
		inflated, err := decompressBlock(c.codec, comp)
		if err != nil {
			return nil, err
		}
		if e.uncompBytes != 0 && uint64(len(inflated)) != e.uncompBytes {
			return nil, fmt.Errorf("%w: inflated block size mismatch", ErrBadCompression)
		}
		block = inflated
	}

	if c.arrayFilter == arrayFilterByteShuffle && c.elemSize > 1 && len(block) > 0 {
		unshuffled := make([]byte, len(block))
		if err := byteUnshuffle(unshuffled, block, c.elemSize); err != nil {
			return nil, err
		}
		block = unshuffled
	}

	c.cache[id] = block
	return block, nil
}

// sliceElems returns the byte range within block id covering elemLen
// elements starting at the file-global element offset globalElemOff.
func (c *container) sliceElems(blockID uint32, globalElemOff uint64, elemLen uint32) ([]byte, error) {
	if int(blockID)+1 >= len(c.blockStartElems) {
		return nil, fmt.Errorf("%w: block id %d out of range", ErrBadArrayLayout, blockID)
	}
	blockStart := c.blockStartElems[blockID]
	if globalElemOff < blockStart {
		return nil, fmt.Errorf("%w: element offset before block start", ErrBadArrayLayout)
	}

	localElems := globalElemOff - blockStart
	byteOff := localElems * uint64(c.elemSize)
	byteLen := uint64(elemLen) * uint64(c.elemSize)
	end := byteOff + byteLen

	block, err := c.blockBytes(blockID)
	if err != nil {
		return nil, err
	}
	if end > uint64(len(block)) {
		return nil, fmt.Errorf("%w: slice runs past block end", ErrBadArrayLayout)
	}
	return block[byteOff:end], nil
}

// byteUnshuffle reverses the plane-transpose filter applied by the
// encoder: src is laid out as elemSize contiguous byte-planes of n
// elements each, dst is restored to elemSize-byte rows.
func byteUnshuffle(dst, src []byte, elemSize int) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: unshuffle size mismatch", ErrBadArrayLayout)
	}
	if elemSize <= 1 {
		copy(dst, src)
		return nil
	}
	if len(src)%elemSize != 0 {
		return fmt.Errorf("%w: unshuffle invalid byte length", ErrBadArrayLayout)
	}
	n := len(src) / elemSize
	for b := 0; b < elemSize; b++ {
		col := b * n
		for i := 0; i < n; i++ {
			dst[i*elemSize+b] = src[col+i]
		}
	}
	return nil
}

// byteShuffle applies the encoder-side plane-transpose filter: src is
// elemSize-byte rows, dst becomes elemSize contiguous byte-planes.
func byteShuffle(dst, src []byte, elemSize int) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: shuffle size mismatch", ErrBadArrayLayout)
	}
	if elemSize <= 1 {
		copy(dst, src)
		return nil
	}
	if len(src)%elemSize != 0 {
		return fmt.Errorf("%w: shuffle invalid byte length", ErrBadArrayLayout)
	}
	n := len(src) / elemSize
	for b := 0; b < elemSize; b++ {
		col := b * n
		for i := 0; i < n; i++ {
			dst[col+i] = src[i*elemSize+b]
		}
	}
	return nil
}

// decompressBlock dispatches to the codec named by the header's low
// nibble. Unlike metadata decompression, array block payloads carry an
// exact uncompressed-size check from the directory, so no zero-pad
// tolerance is needed here.
func decompressBlock(codec uint8, comp []byte) ([]byte, error) {
	switch codec {
	case codecZlib:
		r, err := zlib.NewReader(bytes.NewReader(comp))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		return out, nil
	case codecZstd:
		d, err := zstd.NewReader(bytes.NewReader(comp))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		defer d.Close()
		out, err := io.ReadAll(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported container codec %d", ErrBadCompression, codec)
	}
}

// compressBlock compresses data with the codec named by codec, at the
// given level (0 disables compression and is handled by the caller
// before reaching here). level is the CLI's 0..22 scale (§6); zlib
// only defines 0..9, so levels above 9 clamp to best compression.
func compressBlock(codec uint8, level uint8, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch codec {
	case codecZlib:
		zlibLevel := int(level)
		if zlibLevel > 9 {
			zlibLevel = 9
		}
		w, err := zlib.NewWriterLevel(&buf, zlibLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
	case codecZstd:
		w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstdLevelFromInt(level)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCompression, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported container codec %d", ErrBadCompression, codec)
	}
	return buf.Bytes(), nil
}

// zstdLevelFromInt maps the CLI's 0..22 zstd-style level scale onto
// klauspost/compress/zstd's four-tier EncoderLevel.
func zstdLevelFromInt(level uint8) zstd.EncoderLevel {
	switch {
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 19:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// decompressAllowTrailingPad0 decompresses input, and if that fails,
// retries with up to 7 trailing zero bytes trimmed. Some encoders pad
// compressed metadata streams to an alignment boundary with zeros; a
// clean decompress is tried first so the common case pays no extra
// cost.
func decompressAllowTrailingPad0(codec uint8, input []byte) ([]byte, error) {
	if out, err := decompressBlock(codec, input); err == nil {
		return out, nil
	}
	end := len(input)
	for i := 0; i < 7; i++ {
		if end == 0 || input[end-1] != 0 {
			break
		}
		end--
		if out, err := decompressBlock(codec, input[:end]); err == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: decompression failed", ErrBadCompression)
}

func leUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

// readSlice bounds-checks a [off, off+size) window of file, mirroring
// saferwall-pe's structUnpack-style bounds checks ahead of any binary
// read.
func readSlice(file []byte, off, size uint64) ([]byte, error) {
	if off > uint64(len(file)) {
		return nil, fmt.Errorf("%w: offset %d past end of file", ErrTruncated, off)
	}
	end := off + size
	if end < off || end > uint64(len(file)) {
		return nil, fmt.Errorf("%w: range [%d,%d) past end of file", ErrTruncated, off, end)
	}
	return file[off:end], nil
}
