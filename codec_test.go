// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"math"
	"reflect"
	"testing"
)

func makeArray(values []float64, identityTail uint32) BinaryDataArray {
	return BinaryDataArray{
		ArrayLength: len(values),
		IsF64:       true,
		DecodedF64:  append([]float64(nil), values...),
		CVParams:    []CvParam{msCVParam(identityTail)},
	}
}

func twoSpectrumDoc() *MzML {
	mz := make([]float64, 20)
	intensity := make([]float64, 20)
	for i := range mz {
		mz[i] = 100.0 + float64(i)*2.5
		intensity[i] = 1000.0 * float64(i+1)
	}

	s19 := Spectrum{
		ID:                 "S19",
		Index:               0,
		MSLevel:             1,
		DefaultArrayLength:  20,
		CVParams: []CvParam{
			msCVParam(1000285), // total ion current
		},
		ScanList: &ScanList{
			Count: 1,
			Scans: []Scan{{
				InstrumentConfigurationRef: "IC1",
				CVParams: []CvParam{
					{CVRef: cvPrefixMS, Accession: makeAccession(cvPrefixMS, 1000016), Value: "5.8905", UnitAccession: "UO:0000031"}, // scan start time
					msCVParam(1000512), // filter string
				},
			}},
		},
		BinaryDataArrayList: &BinaryDataArrayList{
			Count:            2,
			BinaryDataArrays: []BinaryDataArray{makeArray(mz, accMZArray), makeArray(intensity, accIntensityArray)},
		},
	}

	mz2 := make([]float64, 20)
	intensity2 := make([]float64, 20)
	for i := range mz2 {
		mz2[i] = 200.0 + float64(i)*1.5
		intensity2[i] = 500.0 * float64(i+1)
	}

	s20 := Spectrum{
		ID:                 "S20",
		Index:              1,
		MSLevel:            2,
		DefaultArrayLength: 20,
		PrecursorList: &PrecursorList{
			Count: 1,
			Precursors: []Precursor{{
				SpectrumRef: "S19",
				IsolationWindow: &IsolationWindow{
					CVParams: []CvParam{{CVRef: cvPrefixMS, Accession: makeAccession(cvPrefixMS, accIsoTargetMZ), Value: "445.34"}},
				},
				SelectedIonList: &SelectedIonList{
					Count: 1,
					SelectedIons: []SelectedIon{{
						CVParams: []CvParam{
							{CVRef: cvPrefixMS, Accession: makeAccession(cvPrefixMS, accSelectedIonMZ), Value: "445.34"},
							{CVRef: cvPrefixMS, Accession: makeAccession(cvPrefixMS, accChargeState), Value: "2"},
						},
					}},
				},
				Activation: &Activation{
					CVParams: []CvParam{{CVRef: cvPrefixMS, Accession: makeAccession(cvPrefixMS, accCollisionEnergy), Value: "35"}},
				},
			}},
		},
		ProductList: &ProductList{
			Count: 1,
			Products: []Product{{
				IsolationWindow: &IsolationWindow{
					CVParams: []CvParam{{CVRef: cvPrefixMS, Accession: makeAccession(cvPrefixMS, accIsoTargetMZ), Value: "145.0"}},
				},
			}},
		},
		BinaryDataArrayList: &BinaryDataArrayList{
			Count:            2,
			BinaryDataArrays: []BinaryDataArray{makeArray(mz2, accMZArray), makeArray(intensity2, accIntensityArray)},
		},
	}

	return &MzML{
		FileDescription: FileDescription{},
		Run: Run{
			ID: "run",
			SpectrumList: &SpectrumList{
				Count:   2,
				Spectra: []Spectrum{s19, s20},
			},
			ChromatogramList: &ChromatogramList{},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := twoSpectrumDoc()

	out, err := Encode(doc, DefaultEncodeOptions())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(got.Run.SpectrumList.Spectra) != 2 {
		t.Fatalf("expected 2 spectra, got %d", len(got.Run.SpectrumList.Spectra))
	}

	gotS19 := got.Run.SpectrumList.Spectra[0]
	if gotS19.ID != "S19" || gotS19.MSLevel != 1 || gotS19.DefaultArrayLength != 20 {
		t.Errorf("S19 round trip mismatch: %+v", gotS19)
	}
	if !reflect.DeepEqual(gotS19.BinaryDataArrayList.BinaryDataArrays[0].DecodedF64, doc.Run.SpectrumList.Spectra[0].BinaryDataArrayList.BinaryDataArrays[0].DecodedF64) {
		t.Errorf("S19 m/z array round trip mismatch")
	}
	if gotS19.ScanList == nil || len(gotS19.ScanList.Scans) != 1 {
		t.Fatalf("expected one reconstructed scan, got %+v", gotS19.ScanList)
	}
	scan := gotS19.ScanList.Scans[0]
	if scan.InstrumentConfigurationRef != "IC1" {
		t.Errorf("expected scan instrumentConfigurationRef to round trip as IC1, got %q", scan.InstrumentConfigurationRef)
	}
	if len(scan.CVParams) != 2 {
		t.Fatalf("expected 2 scan cv params, got %+v", scan.CVParams)
	}
	if scan.CVParams[0].Value != "5.8905" || scan.CVParams[0].UnitAccession != "UO:0000031" {
		t.Errorf("expected scan start time to round trip, got %+v", scan.CVParams[0])
	}
	if len(gotS19.CVParams) != 1 || gotS19.CVParams[0].Accession != makeAccession(cvPrefixMS, 1000285) {
		t.Errorf("expected S19's own cv params not to be swallowed by the scan list, got %+v", gotS19.CVParams)
	}

	gotS20 := got.Run.SpectrumList.Spectra[1]
	if gotS20.ID != "S20" || gotS20.MSLevel != 2 {
		t.Errorf("S20 round trip mismatch: %+v", gotS20)
	}
	if gotS20.ProductList == nil || len(gotS20.ProductList.Products) != 1 {
		t.Fatalf("expected one reconstructed product, got %+v", gotS20.ProductList)
	}
	if prod := gotS20.ProductList.Products[0]; prod.IsolationWindow == nil || len(prod.IsolationWindow.CVParams) != 1 {
		t.Errorf("expected product isolation window to round trip, got %+v", prod.IsolationWindow)
	}
	if gotS20.PrecursorList == nil || len(gotS20.PrecursorList.Precursors) != 1 {
		t.Fatalf("expected one reconstructed precursor, got %+v", gotS20.PrecursorList)
	}
	prec := gotS20.PrecursorList.Precursors[0]
	if prec.SpectrumRef != "S19" {
		t.Errorf("expected precursor spectrumRef to round trip as S19, got %q", prec.SpectrumRef)
	}
	if prec.IsolationWindow == nil || len(prec.IsolationWindow.CVParams) != 1 {
		t.Errorf("expected isolation window to round trip, got %+v", prec.IsolationWindow)
	}
	if prec.SelectedIonList == nil || len(prec.SelectedIonList.SelectedIons) != 1 || len(prec.SelectedIonList.SelectedIons[0].CVParams) != 2 {
		t.Errorf("expected selected ion to round trip, got %+v", prec.SelectedIonList)
	}
	if prec.Activation == nil || len(prec.Activation.CVParams) != 1 {
		t.Errorf("expected activation to round trip, got %+v", prec.Activation)
	}
}

func TestEncodeDecodeB32DowncastSaturatesToInf(t *testing.T) {
	doc := &MzML{
		Run: Run{
			SpectrumList: &SpectrumList{
				Count: 1,
				Spectra: []Spectrum{{
					ID:                 "S1",
					Index:              0,
					DefaultArrayLength: 4,
					BinaryDataArrayList: &BinaryDataArrayList{
						Count: 2,
						BinaryDataArrays: []BinaryDataArray{
							makeArray([]float64{1, 2, 3, 4}, accMZArray),
							makeArray([]float64{1.0, 2.0, 3.0, 1e39}, accIntensityArray), // 1e39 exceeds float32's ~3.4e38 max
						},
					},
				}},
			},
			ChromatogramList: &ChromatogramList{},
		},
	}

	opts := DefaultEncodeOptions()
	opts.Format = arrayFmt32

	out, err := Encode(doc, opts)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	intensity := got.Run.SpectrumList.Spectra[0].BinaryDataArrayList.BinaryDataArrays[1]
	if !intensity.IsF32 {
		t.Fatalf("expected intensity array decoded as float32, got %+v", intensity)
	}
	want := []float32{1.0, 2.0, 3.0, float32(math.Inf(1))}
	if !reflect.DeepEqual(intensity.DecodedF32, want) {
		t.Errorf("expected b32 downcast to saturate to +Inf, got %v", intensity.DecodedF32)
	}

	var foundAcc521, foundAcc523 bool
	for _, p := range intensity.CVParams {
		switch p.Accession {
		case makeAccession(cvPrefixMS, acc32BitFloat):
			foundAcc521 = true
		case makeAccession(cvPrefixMS, acc64BitFloat):
			foundAcc523 = true
		}
	}
	if !foundAcc521 {
		t.Errorf("expected MS:1000521 (32-bit float) cv param on downcast array")
	}
	if foundAcc523 {
		t.Errorf("did not expect MS:1000523 (64-bit float) cv param on downcast array")
	}
}
