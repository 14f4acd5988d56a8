// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"errors"
	"testing"
)

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode(make([]byte, headerSize-1))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeWrongMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	copy(buf[0:4], []byte("XXXX"))
	_, err := Decode(buf)
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDecodeAllZeroHeaderIsEmptyDocument(t *testing.T) {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])

	doc, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed on all-zero header: %v", err)
	}
	if doc.Run.SpectrumList == nil || len(doc.Run.SpectrumList.Spectra) != 0 {
		t.Errorf("expected an empty spectrum list, got %+v", doc.Run.SpectrumList)
	}
	if doc.Run.ChromatogramList == nil || len(doc.Run.ChromatogramList.Chromatograms) != 0 {
		t.Errorf("expected an empty chromatogram list, got %+v", doc.Run.ChromatogramList)
	}
}
