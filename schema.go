// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"strconv"

	"go.uber.org/zap"
)

// tagID names an mzML element kind for the purposes of the attribute
// encoding convention (§4.5): every attrTail belongs to the tag it was
// read off of, so encode.go can tell "index" the XML attribute of a
// <spectrum> apart from "index" on some other element if the need ever
// arises.
type tagID uint8

const (
	tagSpectrum tagID = iota + 1
	tagChromatogram
	tagScan
	tagPrecursor
	tagIsolationWindow
	tagSelectedIon
	tagActivation
	tagProduct
	tagBinaryDataArray
	tagSourceFile
	tagSample
	tagInstrument
	tagSoftware
	tagDataProcessing
	tagScanSettings
	tagCv
	tagRun
	tagSpectrumList
	tagChromatogramList
)

// attrTailsFor lists the attrTail values that can legally appear as
// synthetic B000: attributes on the given tag. Neither encode.go nor
// decode.go calls it: encodeSpectrum/encodeChromatogram emit their
// attributes directly, and decodeMetaBlock reconstructs params
// positionally per item.
func attrTailsFor(t tagID) []attrTail {
	switch t {
	case tagSpectrum:
		return []attrTail{attrID, attrIndex, attrMSLevel, attrScanNumber, attrNativeID,
			attrSpotID, attrSourceFileRef, attrDataProcessingRef, attrDefaultArrayLength}
	case tagChromatogram:
		return []attrTail{attrID, attrIndex, attrDataProcessingRef, attrDefaultArrayLength}
	case tagBinaryDataArray:
		return []attrTail{attrArrayLength, attrEncodedLength}
	case tagSpectrumList, tagChromatogramList:
		return []attrTail{attrCount, attrDefaultDataProcessingRef}
	case tagPrecursor:
		return []attrTail{attrSpectrumRef}
	case tagScan:
		return []attrTail{attrScanInstrumentConfigRef}
	case tagProduct:
		// A product only ever carries a nested isolationWindow of real CV
		// params; it has no XML attributes of its own to encode.
		return nil
	case tagSourceFile:
		return []attrTail{attrID}
	case tagCv:
		return []attrTail{attrID, attrFullName, attrVersion, attrURI}
	default:
		return nil
	}
}

// takeB000Attr scans params for a synthetic B000:<tail> CvParam, removes
// it, and returns its value. ok is false if the tag isn't present.
func takeB000Attr(params *[]CvParam, tail attrTail) (string, bool) {
	want := b000Accession(tail)
	for i, p := range *params {
		if p.Accession != want {
			continue
		}
		v := p.Value
		*params = append((*params)[:i], (*params)[i+1:]...)
		return v, true
	}
	return "", false
}

func takeB000AttrInt(params *[]CvParam, tail attrTail) (int, bool) {
	v, ok := takeB000Attr(params, tail)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// applySpectrumAttrs pulls the synthetic B000: attribute params
// (§4.5) out of s.CVParams and into the corresponding struct fields,
// the decode-side counterpart of the encoder's attribute convention.
func applySpectrumAttrs(s *Spectrum) {
	if id, ok := takeB000Attr(&s.CVParams, attrID); ok {
		s.ID = id
	}
	if idx, ok := takeB000AttrInt(&s.CVParams, attrIndex); ok {
		s.Index = idx
	}
	if ms, ok := takeB000AttrInt(&s.CVParams, attrMSLevel); ok {
		s.MSLevel = ms
	}
	if sn, ok := takeB000AttrInt(&s.CVParams, attrScanNumber); ok {
		s.ScanNumber = sn
	}
	if nid, ok := takeB000Attr(&s.CVParams, attrNativeID); ok {
		s.NativeID = nid
	}
	if spot, ok := takeB000Attr(&s.CVParams, attrSpotID); ok {
		s.SpotID = spot
	}
	if sfr, ok := takeB000Attr(&s.CVParams, attrSourceFileRef); ok {
		s.SourceFileRef = sfr
	}
	if dpr, ok := takeB000Attr(&s.CVParams, attrDataProcessingRef); ok {
		s.DataProcessingRef = dpr
	}
	// default_array_length is never taken from the attribute: the index
	// entry's x_element_len is authoritative (§9 Open Question a). The
	// attribute is discarded here; checkDefaultArrayLength logs if it
	// disagreed with the value already on s.
	if dal, ok := takeB000AttrInt(&s.CVParams, attrDefaultArrayLength); ok {
		checkDefaultArrayLength(s.ID, dal, s.DefaultArrayLength)
	}
}

// checkDefaultArrayLength logs a warning when a spectrum's
// B000:default_array_length attribute disagrees with the index-derived
// length mzbin actually used to read the arrays.
func checkDefaultArrayLength(id string, attrVal, indexVal int) {
	if attrVal != indexVal {
		log.Warn("default_array_length attribute disagrees with index entry",
			zap.String("id", id), zap.Int("attribute", attrVal), zap.Int("index", indexVal))
	}
}

// applyChromatogramAttrs is applySpectrumAttrs' counterpart for
// chromatograms, which carry a smaller attribute set (§4.5).
func applyChromatogramAttrs(c *Chromatogram) {
	if id, ok := takeB000Attr(&c.CVParams, attrID); ok {
		c.ID = id
	}
	if idx, ok := takeB000AttrInt(&c.CVParams, attrIndex); ok {
		c.Index = idx
	}
	if dpr, ok := takeB000Attr(&c.CVParams, attrDataProcessingRef); ok {
		c.DataProcessingRef = dpr
	}
	if dal, ok := takeB000AttrInt(&c.CVParams, attrDefaultArrayLength); ok {
		checkDefaultArrayLength(c.ID, dal, c.DefaultArrayLength)
	}
}
