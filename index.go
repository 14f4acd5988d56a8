// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"encoding/binary"
	"fmt"
)

// indexEntry is one packed 32-byte row of the spectrum or chromatogram
// index (§4.2): element offsets into the X/Y containers, element
// counts, and the block each range lives in.
type indexEntry struct {
	xOff   uint64
	yOff   uint64
	xLen   uint32
	yLen   uint32
	xBlock uint32
	yBlock uint32
}

// readIndexEntry reads the entry at item position idx out of a raw
// index region (spectrum or chromatogram).
func readIndexEntry(region []byte, idx int) (indexEntry, error) {
	base := idx * indexEntrySize
	end := base + indexEntrySize
	if end > len(region) {
		return indexEntry{}, fmt.Errorf("%w: index entry %d out of range", ErrTruncated, idx)
	}
	b := region[base:end]
	return indexEntry{
		xOff:   binary.LittleEndian.Uint64(b[0:8]),
		yOff:   binary.LittleEndian.Uint64(b[8:16]),
		xLen:   binary.LittleEndian.Uint32(b[16:20]),
		yLen:   binary.LittleEndian.Uint32(b[20:24]),
		xBlock: binary.LittleEndian.Uint32(b[24:28]),
		yBlock: binary.LittleEndian.Uint32(b[28:32]),
	}, nil
}

// writeIndexEntry appends the packed encoding of e to dst, returning the
// extended slice.
func writeIndexEntry(dst []byte, e indexEntry) []byte {
	var b [indexEntrySize]byte
	binary.LittleEndian.PutUint64(b[0:8], e.xOff)
	binary.LittleEndian.PutUint64(b[8:16], e.yOff)
	binary.LittleEndian.PutUint32(b[16:20], e.xLen)
	binary.LittleEndian.PutUint32(b[20:24], e.yLen)
	binary.LittleEndian.PutUint32(b[24:28], e.xBlock)
	binary.LittleEndian.PutUint32(b[28:32], e.yBlock)
	return append(dst, b[:]...)
}

// indexEntryCount returns how many whole entries fit in an index region
// of the given byte length.
func indexEntryCount(regionLen int) int {
	return regionLen / indexEntrySize
}
