// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"encoding/binary"
	"fmt"
)

// headerSize is the fixed length of the B000 header (§4.1).
const headerSize = 192

// indexEntrySize is the packed size of one spectrum/chromatogram index
// entry (§4.2).
const indexEntrySize = 32

// blockDirEntrySize is the packed size of one block-directory entry in
// an array container (§4.3).
const blockDirEntrySize = 32

var magic = [4]byte{'B', '0', '0', '0'}

// Codec identifiers packed into the low nibble of codecFlags.
const (
	codecZlib uint8 = 0
	codecZstd uint8 = 1

	codecMask uint8 = 0x0F
)

// Per-region metadata compression bits of codecFlags.
const (
	flagSpecMetaCompressed   uint8 = 1 << 4
	flagChromMetaCompressed  uint8 = 1 << 5
	flagGlobalMetaCompressed uint8 = 1 << 6
)

// Array element format codes (§4.1). 0 is reserved/unused; real arrays
// are always one of these two.
const (
	arrayFmt32 uint8 = 1
	arrayFmt64 uint8 = 2
)

// fmtElemSize returns the byte width of one array element for a format
// code, or 0 for an unrecognized code.
func fmtElemSize(fmt uint8) int {
	switch fmt {
	case arrayFmt32:
		return 4
	case arrayFmt64:
		return 8
	default:
		return 0
	}
}

// Array prefilter applied before block compression (§4.3).
const (
	arrayFilterNone        uint8 = 0
	arrayFilterByteShuffle uint8 = 1
)

const arrayFilterOffset = 178

// header mirrors the 192-byte B000 file header field for field. Offsets
// in comments are absolute byte positions, matching original_source's
// decode() reads.
type header struct {
	offSpecIndex  uint64 // 8
	offChromIndex uint64 // 16
	offSpecMeta   uint64 // 24
	offChromMeta  uint64 // 32
	offGlobalMeta uint64 // 40

	sizeContainerSpecX uint64 // 48
	offContainerSpecX  uint64 // 56
	sizeContainerSpecY uint64 // 64
	offContainerSpecY  uint64 // 72
	sizeContainerChromX uint64 // 80
	offContainerChromX  uint64 // 88
	sizeContainerChromY uint64 // 96
	offContainerChromY  uint64 // 104

	spectrumCount uint32 // 112
	chromCount    uint32 // 116

	specMetaCount uint32 // 120
	specNumCount  uint32 // 124
	specStrCount  uint32 // 128

	chromMetaCount uint32 // 132
	chromNumCount  uint32 // 136
	chromStrCount  uint32 // 140

	globalMetaCount uint32 // 144
	globalNumCount  uint32 // 148
	globalStrCount  uint32 // 152

	blockCountSpecX  uint32 // 156
	blockCountSpecY  uint32 // 160
	blockCountChromX uint32 // 164
	blockCountChromY uint32 // 168

	codecFlags uint8 // 172

	chromXFmt         uint8 // 173
	chromYFmt         uint8 // 174
	specXFmt          uint8 // 175
	specYFmt          uint8 // 176
	compressionLevel  uint8 // 177
	arrayFilter       uint8 // 178
}

func (h *header) codec() uint8 {
	return h.codecFlags & codecMask
}

func (h *header) specMetaCompressed() bool {
	return h.codecFlags&flagSpecMetaCompressed != 0
}

func (h *header) chromMetaCompressed() bool {
	return h.codecFlags&flagChromMetaCompressed != 0
}

func (h *header) globalMetaCompressed() bool {
	return h.codecFlags&flagGlobalMetaCompressed != 0
}

// parseHeader reads and validates the fixed header region of buf. It
// performs no cross-region validation; that is the caller's job once
// the file length is known (see validateOffsets).
func parseHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: file shorter than header", ErrTruncated)
	}
	b := buf[:headerSize]
	if b[0] != magic[0] || b[1] != magic[1] || b[2] != magic[2] || b[3] != magic[3] {
		return nil, ErrBadMagic
	}
	if b[4] != 0 {
		return nil, fmt.Errorf("%w: unsupported endianness byte %d", ErrBadMagic, b[4])
	}

	h := &header{
		offSpecIndex:  binary.LittleEndian.Uint64(b[8:16]),
		offChromIndex: binary.LittleEndian.Uint64(b[16:24]),
		offSpecMeta:   binary.LittleEndian.Uint64(b[24:32]),
		offChromMeta:  binary.LittleEndian.Uint64(b[32:40]),
		offGlobalMeta: binary.LittleEndian.Uint64(b[40:48]),

		sizeContainerSpecX: binary.LittleEndian.Uint64(b[48:56]),
		offContainerSpecX:  binary.LittleEndian.Uint64(b[56:64]),
		sizeContainerSpecY: binary.LittleEndian.Uint64(b[64:72]),
		offContainerSpecY:  binary.LittleEndian.Uint64(b[72:80]),
		sizeContainerChromX: binary.LittleEndian.Uint64(b[80:88]),
		offContainerChromX:  binary.LittleEndian.Uint64(b[88:96]),
		sizeContainerChromY: binary.LittleEndian.Uint64(b[96:104]),
		offContainerChromY:  binary.LittleEndian.Uint64(b[104:112]),

		spectrumCount: binary.LittleEndian.Uint32(b[112:116]),
		chromCount:    binary.LittleEndian.Uint32(b[116:120]),

		specMetaCount: binary.LittleEndian.Uint32(b[120:124]),
		specNumCount:  binary.LittleEndian.Uint32(b[124:128]),
		specStrCount:  binary.LittleEndian.Uint32(b[128:132]),

		chromMetaCount: binary.LittleEndian.Uint32(b[132:136]),
		chromNumCount:  binary.LittleEndian.Uint32(b[136:140]),
		chromStrCount:  binary.LittleEndian.Uint32(b[140:144]),

		globalMetaCount: binary.LittleEndian.Uint32(b[144:148]),
		globalNumCount:  binary.LittleEndian.Uint32(b[148:152]),
		globalStrCount:  binary.LittleEndian.Uint32(b[152:156]),

		blockCountSpecX:  binary.LittleEndian.Uint32(b[156:160]),
		blockCountSpecY:  binary.LittleEndian.Uint32(b[160:164]),
		blockCountChromX: binary.LittleEndian.Uint32(b[164:168]),
		blockCountChromY: binary.LittleEndian.Uint32(b[168:172]),

		codecFlags: b[172],

		chromXFmt:        b[173],
		chromYFmt:        b[174],
		specXFmt:         b[175],
		specYFmt:         b[176],
		compressionLevel: b[177],
		arrayFilter:      b[arrayFilterOffset],
	}

	if h.codec() != codecZlib && h.codec() != codecZstd {
		return nil, fmt.Errorf("%w: unknown codec %d", ErrBadCompression, h.codec())
	}
	if h.arrayFilter != arrayFilterNone && h.arrayFilter != arrayFilterByteShuffle {
		return nil, fmt.Errorf("%w: unknown array filter %d", ErrBadArrayLayout, h.arrayFilter)
	}
	return h, nil
}

// writeHeader serializes h into a freshly allocated headerSize buffer.
func writeHeader(h *header) []byte {
	b := make([]byte, headerSize)
	copy(b[0:4], magic[:])
	b[4] = 0

	binary.LittleEndian.PutUint64(b[8:16], h.offSpecIndex)
	binary.LittleEndian.PutUint64(b[16:24], h.offChromIndex)
	binary.LittleEndian.PutUint64(b[24:32], h.offSpecMeta)
	binary.LittleEndian.PutUint64(b[32:40], h.offChromMeta)
	binary.LittleEndian.PutUint64(b[40:48], h.offGlobalMeta)

	binary.LittleEndian.PutUint64(b[48:56], h.sizeContainerSpecX)
	binary.LittleEndian.PutUint64(b[56:64], h.offContainerSpecX)
	binary.LittleEndian.PutUint64(b[64:72], h.sizeContainerSpecY)
	binary.LittleEndian.PutUint64(b[72:80], h.offContainerSpecY)
	binary.LittleEndian.PutUint64(b[80:88], h.sizeContainerChromX)
	binary.LittleEndian.PutUint64(b[88:96], h.offContainerChromX)
	binary.LittleEndian.PutUint64(b[96:104], h.sizeContainerChromY)
	binary.LittleEndian.PutUint64(b[104:112], h.offContainerChromY)

	binary.LittleEndian.PutUint32(b[112:116], h.spectrumCount)
	binary.LittleEndian.PutUint32(b[116:120], h.chromCount)

	binary.LittleEndian.PutUint32(b[120:124], h.specMetaCount)
	binary.LittleEndian.PutUint32(b[124:128], h.specNumCount)
	binary.LittleEndian.PutUint32(b[128:132], h.specStrCount)

	binary.LittleEndian.PutUint32(b[132:136], h.chromMetaCount)
	binary.LittleEndian.PutUint32(b[136:140], h.chromNumCount)
	binary.LittleEndian.PutUint32(b[140:144], h.chromStrCount)

	binary.LittleEndian.PutUint32(b[144:148], h.globalMetaCount)
	binary.LittleEndian.PutUint32(b[148:152], h.globalNumCount)
	binary.LittleEndian.PutUint32(b[152:156], h.globalStrCount)

	binary.LittleEndian.PutUint32(b[156:160], h.blockCountSpecX)
	binary.LittleEndian.PutUint32(b[160:164], h.blockCountSpecY)
	binary.LittleEndian.PutUint32(b[164:168], h.blockCountChromX)
	binary.LittleEndian.PutUint32(b[168:172], h.blockCountChromY)

	b[172] = h.codecFlags
	b[173] = h.chromXFmt
	b[174] = h.chromYFmt
	b[175] = h.specXFmt
	b[176] = h.specYFmt
	b[177] = h.compressionLevel
	b[arrayFilterOffset] = h.arrayFilter

	return b
}

// validateOffsets checks monotonicity of the region layout against the
// total file size, once fileLen is known (§4.1 invariants).
func validateOffsets(h *header, fileLen uint64) error {
	// A zero offset means "no region" (an all-zero header with no
	// spectra or chromatograms decodes to an empty document, §9 edge
	// case); only nonzero offsets are required to be non-decreasing.
	regions := []uint64{
		h.offSpecIndex,
		h.offChromIndex,
		h.offSpecMeta,
		h.offChromMeta,
		h.offGlobalMeta,
	}
	prev := uint64(headerSize)
	for i, r := range regions {
		if r == 0 {
			continue
		}
		if r < prev {
			return fmt.Errorf("%w: region %d precedes preceding region", ErrInconsistentOffsets, i)
		}
		prev = r
	}
	containers := []struct {
		off, size uint64
	}{
		{h.offContainerSpecX, h.sizeContainerSpecX},
		{h.offContainerSpecY, h.sizeContainerSpecY},
		{h.offContainerChromX, h.sizeContainerChromX},
		{h.offContainerChromY, h.sizeContainerChromY},
	}
	firstContainerOff := minNonzero(h.offContainerSpecX, h.offContainerSpecY, h.offContainerChromX, h.offContainerChromY)
	if firstContainerOff != 0 && firstContainerOff < h.offGlobalMeta {
		return fmt.Errorf("%w: container region precedes global meta region", ErrInconsistentOffsets)
	}
	for _, c := range containers {
		if c.off == 0 && c.size == 0 {
			continue
		}
		if c.off+c.size > fileLen {
			return fmt.Errorf("%w: container runs past end of file", ErrTruncated)
		}
	}
	return nil
}
