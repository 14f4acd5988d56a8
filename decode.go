// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decode parses a complete B000 container (as produced by Encode) into
// an in-memory document tree. It performs no XML work; see the mzmlio
// package for mzML <-> MzML conversion.
func Decode(buf []byte) (*MzML, error) {
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	if err := validateOffsets(h, uint64(len(buf))); err != nil {
		return nil, err
	}

	specXElemSize := fmtElemSize(h.specXFmt)
	specYElemSize := fmtElemSize(h.specYFmt)
	chromXElemSize := fmtElemSize(h.chromXFmt)
	chromYElemSize := fmtElemSize(h.chromYFmt)
	if h.spectrumCount > 0 && (specXElemSize == 0 || specYElemSize == 0) {
		return nil, fmt.Errorf("%w: invalid spectrum array format", ErrBadArrayLayout)
	}
	if h.chromCount > 0 && (chromXElemSize == 0 || chromYElemSize == 0) {
		return nil, fmt.Errorf("%w: invalid chromatogram array format", ErrBadArrayLayout)
	}

	specIndex, err := readSlice(buf, h.offSpecIndex, uint64(h.spectrumCount)*indexEntrySize)
	if err != nil {
		return nil, err
	}
	chromIndex, err := readSlice(buf, h.offChromIndex, uint64(h.chromCount)*indexEntrySize)
	if err != nil {
		return nil, err
	}

	if h.offChromMeta < h.offSpecMeta || h.offGlobalMeta < h.offChromMeta {
		return nil, fmt.Errorf("%w: invalid metadata region offsets", ErrInconsistentOffsets)
	}
	specMetaRaw, err := readSlice(buf, h.offSpecMeta, h.offChromMeta-h.offSpecMeta)
	if err != nil {
		return nil, err
	}
	chromMetaRaw, err := readSlice(buf, h.offChromMeta, h.offGlobalMeta-h.offChromMeta)
	if err != nil {
		return nil, err
	}

	var globalMetaRaw []byte
	if h.offGlobalMeta != 0 {
		firstContainerOff := minNonzero(
			h.offContainerSpecX, h.offContainerSpecY,
			h.offContainerChromX, h.offContainerChromY,
		)
		if firstContainerOff == 0 {
			firstContainerOff = uint64(len(buf))
		}
		if firstContainerOff < h.offGlobalMeta {
			return nil, fmt.Errorf("%w: invalid global meta/container offsets", ErrInconsistentOffsets)
		}
		globalMetaRaw, err = readSlice(buf, h.offGlobalMeta, firstContainerOff-h.offGlobalMeta)
		if err != nil {
			return nil, err
		}
	}

	codec := h.codec()
	specMeta, err := decompressMetaIfNeeded(codec, h.specMetaCompressed(), specMetaRaw)
	if err != nil {
		return nil, err
	}
	chromMeta, err := decompressMetaIfNeeded(codec, h.chromMetaCompressed(), chromMetaRaw)
	if err != nil {
		return nil, err
	}
	globalMeta, err := decompressMetaIfNeeded(codec, h.globalMetaCompressed(), globalMetaRaw)
	if err != nil {
		return nil, err
	}

	specXContainer, err := newContainer(buf, h.offContainerSpecX, h.sizeContainerSpecX, h.blockCountSpecX, codec, h.compressionLevel, specXElemSize, h.arrayFilter)
	if err != nil {
		return nil, err
	}
	specYContainer, err := newContainer(buf, h.offContainerSpecY, h.sizeContainerSpecY, h.blockCountSpecY, codec, h.compressionLevel, specYElemSize, h.arrayFilter)
	if err != nil {
		return nil, err
	}
	chromXContainer, err := newContainer(buf, h.offContainerChromX, h.sizeContainerChromX, h.blockCountChromX, codec, h.compressionLevel, chromXElemSize, h.arrayFilter)
	if err != nil {
		return nil, err
	}
	chromYContainer, err := newContainer(buf, h.offContainerChromY, h.sizeContainerChromY, h.blockCountChromY, codec, h.compressionLevel, chromYElemSize, h.arrayFilter)
	if err != nil {
		return nil, err
	}

	specMetaByItem, err := decodeMetaBlock(specMeta, h.spectrumCount, h.specMetaCount, h.specNumCount, h.specStrCount)
	if err != nil {
		return nil, err
	}
	chromMetaByItem, err := decodeMetaBlock(chromMeta, h.chromCount, h.chromMetaCount, h.chromNumCount, h.chromStrCount)
	if err != nil {
		return nil, err
	}

	cvList, fileDescription, rpgList, sampleList, instList, softList, dpList, acqList, err :=
		decodeGlobalMetaStructs(globalMeta, h.globalMetaCount, h.globalNumCount, h.globalStrCount)
	if err != nil {
		return nil, err
	}

	spectra := make([]Spectrum, h.spectrumCount)
	for i := uint32(0); i < h.spectrumCount; i++ {
		entry, err := readIndexEntry(specIndex, int(i))
		if err != nil {
			return nil, err
		}
		mzBytes, err := specXContainer.sliceElems(entry.xBlock, entry.xOff, entry.xLen)
		if err != nil {
			return nil, err
		}
		inBytes, err := specYContainer.sliceElems(entry.yBlock, entry.yOff, entry.yLen)
		if err != nil {
			return nil, err
		}

		mzBA := decodeArrayByFmt(mzBytes, h.specXFmt)
		mzBA.ArrayLength = int(entry.xLen)
		mzBA.CVParams = decodedArrayParams(accMZArray, h.specXFmt)

		inBA := decodeArrayByFmt(inBytes, h.specYFmt)
		inBA.ArrayLength = int(entry.yLen)
		inBA.CVParams = decodedArrayParams(accIntensityArray, h.specYFmt)

		params := stripBinaryArrayCVParams(specMetaByItem[i])

		spectra[i] = Spectrum{
			ID:                 fmt.Sprintf("spectrum_%d", i),
			Index:              int(i),
			DefaultArrayLength: int(entry.xLen),
			CVParams:           params,
			BinaryDataArrayList: &BinaryDataArrayList{
				Count:            2,
				BinaryDataArrays: []BinaryDataArray{mzBA, inBA},
			},
		}
		applySpectrumAttrs(&spectra[i])
		// The encoder flattens the precursor ahead of the scan/product
		// groups, so the tail-sliced scan/product runs come off first and
		// a product's isolation window is not mistaken for the precursor's.
		spectra[i].ScanList, spectra[i].ProductList = inferScanAndProductListsFromSpectrumCV(&spectra[i].CVParams)
		spectra[i].PrecursorList = inferPrecursorListFromSpectrumCV(&spectra[i].CVParams)
	}

	chroms := make([]Chromatogram, h.chromCount)
	for j := uint32(0); j < h.chromCount; j++ {
		entry, err := readIndexEntry(chromIndex, int(j))
		if err != nil {
			return nil, err
		}
		tBytes, err := chromXContainer.sliceElems(entry.xBlock, entry.xOff, entry.xLen)
		if err != nil {
			return nil, err
		}
		inBytes, err := chromYContainer.sliceElems(entry.yBlock, entry.yOff, entry.yLen)
		if err != nil {
			return nil, err
		}

		timeBA := decodeArrayByFmt(tBytes, h.chromXFmt)
		timeBA.ArrayLength = int(entry.xLen)
		timeBA.CVParams = decodedArrayParams(accTimeArray, h.chromXFmt)

		inBA := decodeArrayByFmt(inBytes, h.chromYFmt)
		inBA.ArrayLength = int(entry.yLen)
		inBA.CVParams = decodedArrayParams(accIntensityArray, h.chromYFmt)

		params := stripBinaryArrayCVParams(chromMetaByItem[j])

		chroms[j] = Chromatogram{
			ID:                 fmt.Sprintf("chromatogram_%d", j),
			Index:              int(j),
			DefaultArrayLength: int(entry.xLen),
			CVParams:           params,
			BinaryDataArrayList: &BinaryDataArrayList{
				Count:            2,
				BinaryDataArrays: []BinaryDataArray{timeBA, inBA},
			},
		}
		applyChromatogramAttrs(&chroms[j])
	}

	doc := &MzML{
		CvList:                      cvList,
		FileDescription:             fileDescription,
		ReferenceableParamGroupList: rpgList,
		SampleList:                  sampleList,
		InstrumentList:              instList,
		SoftwareList:                softList,
		DataProcessingList:          dpList,
		ScanSettingsList:            acqList,
		Run: Run{
			ID: "run",
			SpectrumList: &SpectrumList{
				Count:   int(h.spectrumCount),
				Spectra: spectra,
			},
			ChromatogramList: &ChromatogramList{
				Count:         int(h.chromCount),
				Chromatograms: chroms,
			},
		},
	}
	return doc, nil
}

// decompressMetaIfNeeded returns bytes unchanged if compressed is
// false, otherwise decompresses with the header's codec, tolerating up
// to 7 trailing zero-padding bytes (§9 Open Question b).
func decompressMetaIfNeeded(codec uint8, compressed bool, bytes []byte) ([]byte, error) {
	if !compressed {
		return bytes, nil
	}
	return decompressAllowTrailingPad0(codec, bytes)
}

// decodeArrayByFmt materializes a BinaryDataArray's numeric payload
// from raw little-endian bytes according to the header's format code.
func decodeArrayByFmt(raw []byte, fmt_ uint8) BinaryDataArray {
	switch fmt_ {
	case arrayFmt32:
		n := len(raw) / 4
		vals := make([]float32, n)
		for i := 0; i < n; i++ {
			vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return BinaryDataArray{IsF32: true, DecodedF32: vals}
	default:
		n := len(raw) / 8
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return BinaryDataArray{IsF64: true, DecodedF64: vals}
	}
}

// decodedArrayParams rebuilds the per-array identity, width, and
// compression-marker CV params a BinaryDataArray carries in mzML,
// mirroring arrayIdentityParams on the encode side. The spectrum/
// chromatogram item's own flat param list never carries these; the
// metadata codec stores them there only transiently, stripped out by
// stripBinaryArrayCVParams before the item's CVParams are set.
func decodedArrayParams(identityTail uint32, fmt_ uint8) []CvParam {
	widthTail := acc32BitFloat
	if fmt_ == arrayFmt64 {
		widthTail = acc64BitFloat
	}
	return []CvParam{
		msCVParam(identityTail),
		msCVParam(widthTail),
		msCVParam(accNoCompression),
	}
}

// inferPrecursorListFromSpectrumCV pulls isolation-window, selected-ion
// and activation CV params back out of a spectrum's flat param list and
// regroups them into a single-precursor PrecursorList, reversing the
// flattening the encoder performs for spectra that only ever carry one
// precursor (§4.5 Design Notes). params is rewritten in place to hold
// only the params that don't belong to a precursor.
func inferPrecursorListFromSpectrumCV(params *[]CvParam) *PrecursorList {
	spectrumRef, hasRef := takeB000Attr(params, attrSpectrumRef)

	var iso, sel, act, rest []CvParam
	for _, p := range *params {
		tail := parseAccessionTail(p.Accession)
		switch {
		case isIsolationWindowTail(tail):
			iso = append(iso, p)
		case isSelectedIonTail(tail):
			sel = append(sel, p)
		case isActivationTail(tail):
			act = append(act, p)
		default:
			rest = append(rest, p)
		}
	}
	*params = rest

	if !hasRef && len(iso) == 0 && len(sel) == 0 && len(act) == 0 {
		return nil
	}

	var isoWin *IsolationWindow
	if len(iso) > 0 {
		isoWin = &IsolationWindow{CVParams: iso}
	}
	var selList *SelectedIonList
	if len(sel) > 0 {
		selList = &SelectedIonList{Count: 1, SelectedIons: []SelectedIon{{CVParams: sel}}}
	}
	var activation *Activation
	if len(act) > 0 {
		activation = &Activation{CVParams: act}
	}

	return &PrecursorList{
		Count: 1,
		Precursors: []Precursor{{
			SpectrumRef:     spectrumRef,
			IsolationWindow: isoWin,
			SelectedIonList: selList,
			Activation:      activation,
		}},
	}
}

// inferScanAndProductListsFromSpectrumCV reverses
// flattenScanAndProductLists, pulling a spectrum's scan and product
// groups back off the tail of its flat param list by their recorded
// counts (§4.5 Design Notes). Only one scan and one product are
// represented, the same single-item simplification
// inferPrecursorListFromSpectrumCV applies to precursors. params is
// rewritten in place to hold only the params belonging to neither group.
func inferScanAndProductListsFromSpectrumCV(params *[]CvParam) (*ScanList, *ProductList) {
	instRef, _ := takeB000Attr(params, attrScanInstrumentConfigRef)
	productN, hasProduct := takeB000AttrInt(params, attrProductCVCount)
	scanN, hasScan := takeB000AttrInt(params, attrScanCVCount)

	rest := *params

	var productList *ProductList
	if hasProduct {
		if productN > len(rest) {
			productN = len(rest)
		}
		cut := len(rest) - productN
		productCV := append([]CvParam(nil), rest[cut:]...)
		rest = rest[:cut]
		product := Product{}
		if len(productCV) > 0 {
			product.IsolationWindow = &IsolationWindow{CVParams: productCV}
		}
		productList = &ProductList{Count: 1, Products: []Product{product}}
	}

	var scanList *ScanList
	if hasScan {
		if scanN > len(rest) {
			scanN = len(rest)
		}
		cut := len(rest) - scanN
		scanCV := append([]CvParam(nil), rest[cut:]...)
		rest = rest[:cut]
		scanList = &ScanList{Count: 1, Scans: []Scan{{
			InstrumentConfigurationRef: instRef,
			CVParams:                   scanCV,
		}}}
	}

	*params = rest
	return scanList, productList
}

func minNonzero(xs ...uint64) uint64 {
	var m uint64
	for _, x := range xs {
		if x == 0 {
			continue
		}
		if m == 0 || x < m {
			m = x
		}
	}
	return m
}
