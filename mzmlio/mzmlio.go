// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package mzmlio is the mzbin module's own mzML XML reader and writer,
// standing in for a third-party mzML library so the document tree
// defined by mzbin can be exercised end to end without one. It covers
// exactly the element set mzbin's document tree names; it is not a
// general mzML validator. The contents of <binary> elements are neither
// read nor written: a parsed binaryDataArray carries only its cvParams,
// its DecodedF32/DecodedF64 vectors stay empty, and WriteMzML emits no
// array data.
package mzmlio

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-mzbin/mzbin"
)

const (
	accMSLevel = "MS:1000511"
)

// mzmlDoc adds the root element name mzbin.MzML itself doesn't carry,
// the way sdrxml.SDRContext tags its own root context element.
type mzmlDoc struct {
	XMLName xml.Name `xml:"mzML"`
	mzbin.MzML
}

// ParseMzML reads a complete mzML document from data into mzbin's
// in-memory tree, deriving the fields mzbin keeps as first-class struct
// members (MSLevel, ScanNumber, NativeID) from the cvParams and id
// conventions a real mzML file expresses them through.
func ParseMzML(data []byte) (*mzbin.MzML, error) {
	var doc mzmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mzmlio: %w", err)
	}

	if doc.Run.SpectrumList != nil {
		for i := range doc.Run.SpectrumList.Spectra {
			fixupSpectrumIn(&doc.Run.SpectrumList.Spectra[i])
		}
	}
	if doc.Run.ChromatogramList != nil {
		for i := range doc.Run.ChromatogramList.Chromatograms {
			fixupChromatogramIn(&doc.Run.ChromatogramList.Chromatograms[i])
		}
	}

	return &doc.MzML, nil
}

// WriteMzML serializes a document tree back to mzML XML, folding
// MSLevel back into its ms level cvParam. ScanNumber and NativeID are
// not written; the spectrum id attribute is the only identity emitted.
func WriteMzML(doc *mzbin.MzML) ([]byte, error) {
	out := *doc
	if out.Run.SpectrumList != nil {
		spectra := make([]mzbin.Spectrum, len(out.Run.SpectrumList.Spectra))
		copy(spectra, out.Run.SpectrumList.Spectra)
		for i := range spectra {
			fixupSpectrumOut(&spectra[i])
		}
		list := *out.Run.SpectrumList
		list.Spectra = spectra
		out.Run.SpectrumList = &list
	}

	wrapped := mzmlDoc{MzML: out}
	wrapped.XMLName = xml.Name{Local: "mzML"}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(wrapped); err != nil {
		return nil, fmt.Errorf("mzmlio: %w", err)
	}
	return buf.Bytes(), nil
}

// fixupSpectrumIn pulls the ms level cvParam and the scan-number
// suffix of the native id out of a freshly parsed spectrum's generic
// fields and into the struct fields mzbin's codec stores natively.
func fixupSpectrumIn(s *mzbin.Spectrum) {
	s.CVParams, s.MSLevel = takeMSLevel(s.CVParams)
	s.NativeID = s.ID
	s.ScanNumber = scanNumberFromNativeID(s.ID)
}

func fixupSpectrumOut(s *mzbin.Spectrum) {
	if s.MSLevel != 0 {
		params := make([]mzbin.CvParam, len(s.CVParams), len(s.CVParams)+1)
		copy(params, s.CVParams)
		params = append(params, mzbin.CvParam{
			CVRef:     "MS",
			Accession: accMSLevel,
			Name:      "ms level",
			Value:     strconv.Itoa(s.MSLevel),
		})
		s.CVParams = params
	}
}

func fixupChromatogramIn(c *mzbin.Chromatogram) {
	// Chromatograms carry no ms level or scan-number convention; the id
	// itself is the only identity mzML exposes.
	_ = c
}

// scanNumberFromNativeID extracts the trailing "scan=N" component a
// vendor-derived native id commonly carries (e.g. Thermo RAW-derived
// mzML), returning 0 when the convention isn't present.
func scanNumberFromNativeID(id string) int {
	idx := strings.LastIndex(id, "scan=")
	if idx < 0 {
		return 0
	}
	tail := id[idx+len("scan="):]
	end := len(tail)
	for i, r := range tail {
		if r < '0' || r > '9' {
			end = i
			break
		}
	}
	n, err := strconv.Atoi(tail[:end])
	if err != nil {
		return 0
	}
	return n
}

// takeMSLevel removes the first MS:1000511 cvParam from params and
// returns its integer value alongside the remaining params, preserving
// order.
func takeMSLevel(params []mzbin.CvParam) ([]mzbin.CvParam, int) {
	for i, p := range params {
		if p.Accession != accMSLevel {
			continue
		}
		level, _ := strconv.Atoi(p.Value)
		rest := make([]mzbin.CvParam, 0, len(params)-1)
		rest = append(rest, params[:i]...)
		rest = append(rest, params[i+1:]...)
		return rest, level
	}
	return params, 0
}
