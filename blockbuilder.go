// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

// defaultBlockThresholdBytes is the uncompressed-size watermark at
// which a pending block is finalized (§4.7 step 5). A single container
// in a typical mzML conversion comfortably fits in memory, so this
// mainly bounds how much has to be re-decoded on a single random
// access once the file is read back.
const defaultBlockThresholdBytes = 4 << 20

// blockBuilder accumulates one array container (spectrum/chromatogram
// X or Y) for the encoder: elements are appended one array at a time,
// and a pending block is flushed to the compressed payload once it
// crosses the threshold.
type blockBuilder struct {
	elemSize         int
	codec            uint8
	compressionLevel uint8
	arrayFilter      uint8
	thresholdBytes   int

	pending    []byte
	directory  []blockDirEntry
	payload    []byte
	globalElem uint64
}

func newBlockBuilder(elemSize int, codec uint8, compressionLevel uint8, arrayFilter uint8) *blockBuilder {
	return &blockBuilder{
		elemSize:         elemSize,
		codec:            codec,
		compressionLevel: compressionLevel,
		arrayFilter:      arrayFilter,
		thresholdBytes:   defaultBlockThresholdBytes,
	}
}

// append adds one array's raw little-endian element bytes to the
// builder, returning the block id and global element offset the index
// entry for this array should record.
func (b *blockBuilder) append(elemBytes []byte) (blockID uint32, elemOff uint64) {
	blockID = uint32(len(b.directory))
	elemOff = b.globalElem

	b.pending = append(b.pending, elemBytes...)
	b.globalElem += uint64(len(elemBytes) / b.elemSize)

	if len(b.pending) >= b.thresholdBytes {
		b.flush()
	}
	return blockID, elemOff
}

// flush finalizes the current pending block, applying the byte-shuffle
// filter and compression before appending it to the payload.
func (b *blockBuilder) flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	block := b.pending
	b.pending = nil

	if b.arrayFilter == arrayFilterByteShuffle && b.elemSize > 1 {
		shuffled := make([]byte, len(block))
		if err := byteShuffle(shuffled, block, b.elemSize); err != nil {
			return err
		}
		block = shuffled
	}

	var stored []byte
	if b.compressionLevel == 0 {
		stored = block
	} else {
		compressed, err := compressBlock(b.codec, b.compressionLevel, block)
		if err != nil {
			return err
		}
		stored = compressed
	}

	b.directory = append(b.directory, blockDirEntry{
		compOff:     uint64(len(b.payload)),
		compSize:    uint64(len(stored)),
		uncompBytes: uint64(len(block)),
	})
	b.payload = append(b.payload, stored...)
	return nil
}

// finish flushes any remaining pending bytes and serializes the
// container's block directory followed by its payload, ready to be
// written out as one container region (§4.3).
func (b *blockBuilder) finish() ([]byte, uint32, error) {
	if err := b.flush(); err != nil {
		return nil, 0, err
	}
	out := make([]byte, 0, len(b.directory)*blockDirEntrySize+len(b.payload))
	var entryBuf [blockDirEntrySize]byte
	for _, e := range b.directory {
		putU64(entryBuf[0:8], e.compOff)
		putU64(entryBuf[8:16], e.compSize)
		putU64(entryBuf[16:24], e.uncompBytes)
		putU64(entryBuf[24:32], 0)
		out = append(out, entryBuf[:]...)
	}
	out = append(out, b.payload...)
	return out, uint32(len(b.directory)), nil
}

func putU64(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}
