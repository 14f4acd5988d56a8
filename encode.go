// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Exported array format and codec identifiers, for callers (the CLI,
// mainly) that build an EncodeOptions without reaching into the
// package's internal header constants.
const (
	FormatF32 = arrayFmt32
	FormatF64 = arrayFmt64

	CodecZlib = codecZlib
	CodecZstd = codecZstd
)

// EncodeOptions controls the container codec's compression and array
// format choices (§4.7, §6's --level/--mzml-to-b32 flags).
type EncodeOptions struct {
	// Format selects the stored element width for every numeric array:
	// arrayFmt64 for .b64, arrayFmt32 for .b32 (downcast, §8 scenario 5).
	Format uint8

	// Codec selects the compression codec (codecZlib or codecZstd) used
	// whenever Level > 0.
	Codec uint8

	// Level is the compression level on the CLI's 0..22 scale; 0 means
	// store blocks uncompressed.
	Level uint8

	// ArrayFilter enables the byte-shuffle prefilter on array blocks
	// (arrayFilterNone or arrayFilterByteShuffle).
	ArrayFilter uint8

	// CompressMeta enables whole-region compression of the three
	// metadata regions.
	CompressMeta bool
}

// DefaultEncodeOptions mirrors a plain "mzml-to-b64" conversion with no
// compression: the simplest, always-valid encoding.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Format:      arrayFmt64,
		Codec:       codecZlib,
		Level:       0,
		ArrayFilter: arrayFilterNone,
	}
}

// Encode serializes a document tree to the B000 binary layout (§4.7).
func Encode(doc *MzML, opts EncodeOptions) ([]byte, error) {
	elemSize := fmtElemSize(opts.Format)
	if elemSize == 0 {
		return nil, fmt.Errorf("%w: invalid array format %d", ErrBadArrayLayout, opts.Format)
	}

	specX := newBlockBuilder(elemSize, opts.Codec, opts.Level, opts.ArrayFilter)
	specY := newBlockBuilder(elemSize, opts.Codec, opts.Level, opts.ArrayFilter)
	chromX := newBlockBuilder(elemSize, opts.Codec, opts.Level, opts.ArrayFilter)
	chromY := newBlockBuilder(elemSize, opts.Codec, opts.Level, opts.ArrayFilter)

	var specIndex, chromIndex []byte
	specMeta := newMetaBuilder()
	chromMeta := newMetaBuilder()

	spectra := doc.Run.SpectrumList
	if spectra != nil {
		for i, s := range spectra.Spectra {
			entry, params, err := encodeSpectrum(&s, i, opts.Format, specX, specY)
			if err != nil {
				return nil, err
			}
			specIndex = writeIndexEntry(specIndex, entry)
			specMeta.addItem(params)
		}
	}

	chroms := doc.Run.ChromatogramList
	if chroms != nil {
		for j, c := range chroms.Chromatograms {
			entry, params, err := encodeChromatogram(&c, j, opts.Format, chromX, chromY)
			if err != nil {
				return nil, err
			}
			chromIndex = writeIndexEntry(chromIndex, entry)
			chromMeta.addItem(params)
		}
	}

	globalMeta, globalMetaCount, globalNumCount, globalStrCount := encodeGlobalMetaStructs(doc)

	specMetaData, specMetaCount, specNumCount, specStrCount := specMeta.finish()
	chromMetaData, chromMetaCount, chromNumCount, chromStrCount := chromMeta.finish()

	specXBytes, specXBlocks, err := specX.finish()
	if err != nil {
		return nil, err
	}
	specYBytes, specYBlocks, err := specY.finish()
	if err != nil {
		return nil, err
	}
	chromXBytes, chromXBlocks, err := chromX.finish()
	if err != nil {
		return nil, err
	}
	chromYBytes, chromYBlocks, err := chromY.finish()
	if err != nil {
		return nil, err
	}

	if opts.CompressMeta {
		var err error
		if specMetaData, err = compressBlock(opts.Codec, maxU8(opts.Level, 1), specMetaData); err != nil {
			return nil, err
		}
		if chromMetaData, err = compressBlock(opts.Codec, maxU8(opts.Level, 1), chromMetaData); err != nil {
			return nil, err
		}
		if globalMeta, err = compressBlock(opts.Codec, maxU8(opts.Level, 1), globalMeta); err != nil {
			return nil, err
		}
	}

	// Region layout, in the order the header's offsets name them.
	off := uint64(headerSize)
	offSpecIndex := off
	off += uint64(len(specIndex))
	offChromIndex := off
	off += uint64(len(chromIndex))
	offSpecMeta := off
	off += uint64(len(specMetaData))
	offChromMeta := off
	off += uint64(len(chromMetaData))
	offGlobalMeta := off
	off += uint64(len(globalMeta))

	offContainerSpecX := off
	off += uint64(len(specXBytes))
	offContainerSpecY := off
	off += uint64(len(specYBytes))
	offContainerChromX := off
	off += uint64(len(chromXBytes))
	offContainerChromY := off
	off += uint64(len(chromYBytes))

	var codecFlags uint8 = opts.Codec & codecMask
	if opts.CompressMeta {
		codecFlags |= flagSpecMetaCompressed | flagChromMetaCompressed | flagGlobalMetaCompressed
	}

	h := &header{
		offSpecIndex:  offSpecIndex,
		offChromIndex: offChromIndex,
		offSpecMeta:   offSpecMeta,
		offChromMeta:  offChromMeta,
		offGlobalMeta: offGlobalMeta,

		sizeContainerSpecX:  uint64(len(specXBytes)),
		offContainerSpecX:   offContainerSpecX,
		sizeContainerSpecY:  uint64(len(specYBytes)),
		offContainerSpecY:   offContainerSpecY,
		sizeContainerChromX: uint64(len(chromXBytes)),
		offContainerChromX:  offContainerChromX,
		sizeContainerChromY: uint64(len(chromYBytes)),
		offContainerChromY:  offContainerChromY,

		spectrumCount: countSpectra(doc),
		chromCount:    countChromatograms(doc),

		specMetaCount: specMetaCount,
		specNumCount:  specNumCount,
		specStrCount:  specStrCount,

		chromMetaCount: chromMetaCount,
		chromNumCount:  chromNumCount,
		chromStrCount:  chromStrCount,

		globalMetaCount: globalMetaCount,
		globalNumCount:  globalNumCount,
		globalStrCount:  globalStrCount,

		blockCountSpecX:  specXBlocks,
		blockCountSpecY:  specYBlocks,
		blockCountChromX: chromXBlocks,
		blockCountChromY: chromYBlocks,

		codecFlags: codecFlags,

		chromXFmt:        opts.Format,
		chromYFmt:        opts.Format,
		specXFmt:         opts.Format,
		specYFmt:         opts.Format,
		compressionLevel: opts.Level,
		arrayFilter:      opts.ArrayFilter,
	}

	out := make([]byte, 0, off)
	out = append(out, writeHeader(h)...)
	out = append(out, specIndex...)
	out = append(out, chromIndex...)
	out = append(out, specMetaData...)
	out = append(out, chromMetaData...)
	out = append(out, globalMeta...)
	out = append(out, specXBytes...)
	out = append(out, specYBytes...)
	out = append(out, chromXBytes...)
	out = append(out, chromYBytes...)
	return out, nil
}

func countSpectra(doc *MzML) uint32 {
	if doc.Run.SpectrumList == nil {
		return 0
	}
	return uint32(len(doc.Run.SpectrumList.Spectra))
}

func countChromatograms(doc *MzML) uint32 {
	if doc.Run.ChromatogramList == nil {
		return 0
	}
	return uint32(len(doc.Run.ChromatogramList.Chromatograms))
}

func maxU8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// encodeSpectrum flattens one spectrum into its index entry and its
// full item param list (own params + synthetic attributes + scan/
// product/precursor params + array-identifying params), appending its
// m/z and intensity arrays to the given block builders.
func encodeSpectrum(s *Spectrum, fallbackIndex int, format uint8, xBuilder, yBuilder *blockBuilder) (indexEntry, []CvParam, error) {
	mzBA, inBA, err := findXYArrays(s.BinaryDataArrayList, accMZArray, accIntensityArray)
	if err != nil {
		return indexEntry{}, nil, fmt.Errorf("spectrum %s: %w", s.ID, err)
	}

	xBytes, xLen := encodeArrayBytes(mzBA, format)
	yBytes, yLen := encodeArrayBytes(inBA, format)
	if xLen != yLen {
		return indexEntry{}, nil, fmt.Errorf("%w: spectrum %s m/z and intensity arrays differ in length", ErrBadArrayLayout, s.ID)
	}

	xBlock, xOff := xBuilder.append(xBytes)
	yBlock, yOff := yBuilder.append(yBytes)

	params := make([]CvParam, 0, len(s.CVParams)+8)
	params = append(params, s.CVParams...)
	params = flattenPrecursorList(params, s.PrecursorList)
	params = flattenScanAndProductLists(params, s.ScanList, s.ProductList)
	params = append(params, arrayIdentityParams(mzBA, accMZArray, format)...)
	params = append(params, arrayIdentityParams(inBA, accIntensityArray, format)...)

	index := fallbackIndex
	if s.Index != 0 {
		index = s.Index
	}
	params = appendAttr(params, attrID, s.ID)
	params = appendAttrInt(params, attrIndex, index)
	if s.MSLevel != 0 {
		params = appendAttrInt(params, attrMSLevel, s.MSLevel)
	}
	if s.ScanNumber != 0 {
		params = appendAttrInt(params, attrScanNumber, s.ScanNumber)
	}
	if s.NativeID != "" {
		params = appendAttr(params, attrNativeID, s.NativeID)
	}
	if s.SpotID != "" {
		params = appendAttr(params, attrSpotID, s.SpotID)
	}
	if s.SourceFileRef != "" {
		params = appendAttr(params, attrSourceFileRef, s.SourceFileRef)
	}
	if s.DataProcessingRef != "" {
		params = appendAttr(params, attrDataProcessingRef, s.DataProcessingRef)
	}
	params = appendAttrInt(params, attrDefaultArrayLength, xLen)

	return indexEntry{
		xOff: xOff, yOff: yOff,
		xLen: uint32(xLen), yLen: uint32(yLen),
		xBlock: xBlock, yBlock: yBlock,
	}, params, nil
}

// encodeChromatogram is encodeSpectrum's chromatogram counterpart.
func encodeChromatogram(c *Chromatogram, fallbackIndex int, format uint8, xBuilder, yBuilder *blockBuilder) (indexEntry, []CvParam, error) {
	timeBA, inBA, err := findXYArrays(c.BinaryDataArrayList, accTimeArray, accIntensityArray)
	if err != nil {
		return indexEntry{}, nil, fmt.Errorf("chromatogram %s: %w", c.ID, err)
	}

	xBytes, xLen := encodeArrayBytes(timeBA, format)
	yBytes, yLen := encodeArrayBytes(inBA, format)
	if xLen != yLen {
		return indexEntry{}, nil, fmt.Errorf("%w: chromatogram %s time and intensity arrays differ in length", ErrBadArrayLayout, c.ID)
	}

	xBlock, xOff := xBuilder.append(xBytes)
	yBlock, yOff := yBuilder.append(yBytes)

	params := make([]CvParam, 0, len(c.CVParams)+6)
	params = append(params, c.CVParams...)
	params = append(params, arrayIdentityParams(timeBA, accTimeArray, format)...)
	params = append(params, arrayIdentityParams(inBA, accIntensityArray, format)...)

	index := fallbackIndex
	if c.Index != 0 {
		index = c.Index
	}
	params = appendAttr(params, attrID, c.ID)
	params = appendAttrInt(params, attrIndex, index)
	if c.DataProcessingRef != "" {
		params = appendAttr(params, attrDataProcessingRef, c.DataProcessingRef)
	}
	params = appendAttrInt(params, attrDefaultArrayLength, xLen)

	return indexEntry{
		xOff: xOff, yOff: yOff,
		xLen: uint32(xLen), yLen: uint32(yLen),
		xBlock: xBlock, yBlock: yBlock,
	}, params, nil
}

func appendAttr(params []CvParam, tail attrTail, value string) []CvParam {
	return append(params, CvParam{CVRef: cvRefAttr, Accession: b000Accession(tail), Value: value})
}

func appendAttrInt(params []CvParam, tail attrTail, value int) []CvParam {
	return appendAttr(params, tail, fmt.Sprintf("%d", value))
}

// findXYArrays locates the two BinaryDataArrays in list whose CV params
// carry xTail and yTail (§4.7 step 4). Order in the slice is not
// assumed; the identifying CV param is what matters.
func findXYArrays(list *BinaryDataArrayList, xTail, yTail uint32) (x, y *BinaryDataArray, err error) {
	if list == nil {
		return nil, nil, fmt.Errorf("%w: missing binaryDataArrayList", ErrSchemaViolation)
	}
	for i := range list.BinaryDataArrays {
		ba := &list.BinaryDataArrays[i]
		for _, p := range ba.CVParams {
			tail := parseAccessionTail(p.Accession)
			if tail == xTail {
				x = ba
			} else if tail == yTail {
				y = ba
			}
		}
	}
	if x == nil || y == nil {
		return nil, nil, fmt.Errorf("%w: missing identifying array", ErrSchemaViolation)
	}
	return x, y, nil
}

// encodeArrayBytes converts a BinaryDataArray's populated vector to
// little-endian bytes in the requested container format, downcasting
// f64→f32 when necessary (§8 scenario 5: overflow saturates to ±Inf,
// which is plain Go float32 conversion behavior).
func encodeArrayBytes(ba *BinaryDataArray, format uint8) ([]byte, int) {
	var n int
	if ba.IsF64 {
		n = len(ba.DecodedF64)
	} else {
		n = len(ba.DecodedF32)
	}
	out := make([]byte, n*fmtElemSize(format))
	for i := 0; i < n; i++ {
		switch format {
		case arrayFmt32:
			var v float32
			if ba.IsF64 {
				v = float32(ba.DecodedF64[i])
			} else {
				v = ba.DecodedF32[i]
			}
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		default:
			var v float64
			if ba.IsF64 {
				v = ba.DecodedF64[i]
			} else {
				v = float64(ba.DecodedF32[i])
			}
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
		}
	}
	return out, n
}

// arrayIdentityParams rebuilds the synthetic per-array CV params
// (array kind, float width, compression marker) that decode strips out
// of the item's own param list (§4.6). identityTail is accMZArray,
// accIntensityArray, or accTimeArray.
func arrayIdentityParams(ba *BinaryDataArray, identityTail uint32, format uint8) []CvParam {
	widthTail := acc32BitFloat
	if format == arrayFmt64 {
		widthTail = acc64BitFloat
	}
	_ = ba
	return []CvParam{
		msCVParam(identityTail),
		msCVParam(widthTail),
		msCVParam(accNoCompression),
	}
}

// flattenPrecursorList reverses inferPrecursorListFromSpectrumCV,
// folding a spectrum's single precursor's isolation-window, selected-
// ion, and activation CV params back into the flat per-item param list
// the metadata codec stores (§4.5 Design Notes).
func flattenPrecursorList(params []CvParam, pl *PrecursorList) []CvParam {
	if pl == nil || len(pl.Precursors) == 0 {
		return params
	}
	p := pl.Precursors[0]
	if p.SpectrumRef != "" {
		params = appendAttr(params, attrSpectrumRef, p.SpectrumRef)
	}
	if p.IsolationWindow != nil {
		params = append(params, p.IsolationWindow.CVParams...)
	}
	if p.SelectedIonList != nil {
		for _, ion := range p.SelectedIonList.SelectedIons {
			params = append(params, ion.CVParams...)
		}
	}
	if p.Activation != nil {
		params = append(params, p.Activation.CVParams...)
	}
	return params
}

// flattenScanAndProductLists reverses inferScanAndProductListsFromSpectrumCV,
// folding a spectrum's scan list and product list back into the flat
// per-item param list, the scanList/productList counterpart of
// flattenPrecursorList. Only the first scan and first product survive a
// round trip (§4.5 Design Notes' single-precursor simplification applies
// here too: real mzML overwhelmingly carries exactly one of each).
func flattenScanAndProductLists(params []CvParam, sl *ScanList, pl *ProductList) []CvParam {
	if sl != nil && len(sl.Scans) > 0 {
		scan := sl.Scans[0]
		params = append(params, scan.CVParams...)
		params = appendAttrInt(params, attrScanCVCount, len(scan.CVParams))
		if scan.InstrumentConfigurationRef != "" {
			params = appendAttr(params, attrScanInstrumentConfigRef, scan.InstrumentConfigurationRef)
		}
	}
	if pl != nil && len(pl.Products) > 0 {
		product := pl.Products[0]
		var cvParams []CvParam
		if product.IsolationWindow != nil {
			cvParams = product.IsolationWindow.CVParams
		}
		params = append(params, cvParams...)
		params = appendAttrInt(params, attrProductCVCount, len(cvParams))
	}
	return params
}
