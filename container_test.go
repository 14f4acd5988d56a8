// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"bytes"
	"testing"
)

func TestByteShuffleRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		elemSize int
		n        int
	}{
		{"f64x3", 8, 3},
		{"f32x5", 4, 5},
		{"f64x0", 8, 0},
		{"byteElem", 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := make([]byte, tt.elemSize*tt.n)
			for i := range src {
				src[i] = byte(i*7 + 3)
			}

			shuffled := make([]byte, len(src))
			if err := byteShuffle(shuffled, src, tt.elemSize); err != nil {
				t.Fatalf("byteShuffle failed: %v", err)
			}

			unshuffled := make([]byte, len(src))
			if err := byteUnshuffle(unshuffled, shuffled, tt.elemSize); err != nil {
				t.Fatalf("byteUnshuffle failed: %v", err)
			}

			if !bytes.Equal(unshuffled, src) {
				t.Errorf("shuffle/unshuffle round trip mismatch, got %v, want %v", unshuffled, src)
			}
		})
	}
}

func TestBlockBytesCorruptSizeMismatch(t *testing.T) {
	payload := []byte("123456789012345678901234567890123456789012345678901234567890123456789012")
	compressed, err := compressBlock(codecZlib, 6, payload)
	if err != nil {
		t.Fatalf("compressBlock failed: %v", err)
	}

	var dirEntry [blockDirEntrySize]byte
	putU64(dirEntry[0:8], 0)
	putU64(dirEntry[8:16], uint64(len(compressed)))
	putU64(dirEntry[16:24], 80) // claims 80 uncompressed bytes; payload decompresses to 72

	region := append(append([]byte(nil), dirEntry[:]...), compressed...)

	c := &container{
		data: region,
		dir: []blockDirEntry{{
			compOff:     0,
			compSize:    uint64(len(compressed)),
			uncompBytes: 80,
		}},
		blockStartElems:  []uint64{0, 10},
		cache:            make([][]byte, 1),
		codec:            codecZlib,
		compressionLevel: 6,
		elemSize:         8,
		arrayFilter:      arrayFilterNone,
	}

	_, err = c.blockBytes(0)
	if err == nil {
		t.Fatal("expected size mismatch error, got nil")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("size mismatch")) {
		t.Errorf("expected error to mention size mismatch, got: %v", err)
	}
}

func TestEmptyContainerHasOneBlockStart(t *testing.T) {
	c := emptyContainer(codecZlib, 8, arrayFilterNone)
	if c.blockCount() != 0 {
		t.Errorf("expected 0 blocks, got %d", c.blockCount())
	}
	if len(c.blockStartElems) != 1 || c.blockStartElems[0] != 0 {
		t.Errorf("expected a single zero block-start entry, got %v", c.blockStartElems)
	}
}
