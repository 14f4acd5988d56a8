// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

// This file defines the in-memory mzML document tree (§3). Every type
// is JSON-tagged the way saferwall-pe tags its own File/DOSHeader/
// NtHeader structs, with omitempty on anything that doesn't apply to
// every document.

// CvParam is a controlled-vocabulary parameter attached to almost every
// element in the tree (§3, §4.4).
type CvParam struct {
	CVRef         string `json:"cvRef,omitempty" xml:"cvRef,attr"`
	Accession     string `json:"accession,omitempty" xml:"accession,attr"`
	Name          string `json:"name,omitempty" xml:"name,attr"`
	Value         string `json:"value,omitempty" xml:"value,attr,omitempty"`
	UnitCVRef     string `json:"unitCvRef,omitempty" xml:"unitCvRef,attr,omitempty"`
	UnitAccession string `json:"unitAccession,omitempty" xml:"unitAccession,attr,omitempty"`
	UnitName      string `json:"unitName,omitempty" xml:"unitName,attr,omitempty"`
}

// UserParam is a free-form, non-CV parameter (§3).
type UserParam struct {
	Name  string `json:"name,omitempty" xml:"name,attr"`
	Value string `json:"value,omitempty" xml:"value,attr,omitempty"`
	Type  string `json:"type,omitempty" xml:"type,attr,omitempty"`
}

// Cv describes one controlled vocabulary declared by the document.
type Cv struct {
	ID       string `json:"id,omitempty" xml:"id,attr"`
	FullName string `json:"fullName,omitempty" xml:"fullName,attr,omitempty"`
	Version  string `json:"version,omitempty" xml:"version,attr,omitempty"`
	URI      string `json:"uri,omitempty" xml:"URI,attr,omitempty"`
}

// CvList is the document's <cvList>.
type CvList struct {
	Count int  `json:"count,omitempty" xml:"count,attr"`
	Cv    []Cv `json:"cv,omitempty" xml:"cv"`
}

// SourceFile identifies a raw input file referenced by the document.
type SourceFile struct {
	ID                string      `json:"id,omitempty" xml:"id,attr"`
	Name              string      `json:"name,omitempty" xml:"name,attr"`
	Location          string      `json:"location,omitempty" xml:"location,attr"`
	CVParams          []CvParam   `json:"cvParams,omitempty" xml:"cvParam"`
	UserParams        []UserParam `json:"userParams,omitempty" xml:"userParam"`
}

// SourceFileList is the document's <sourceFileList>.
type SourceFileList struct {
	Count       int          `json:"count,omitempty" xml:"count,attr"`
	SourceFiles []SourceFile `json:"sourceFile,omitempty" xml:"sourceFile"`
}

// FileDescription is the document's <fileDescription>.
type FileDescription struct {
	FileContent    FileContent     `json:"fileContent"`
	SourceFileList *SourceFileList `json:"sourceFileList,omitempty" xml:"sourceFileList,omitempty"`
}

// FileContent is <fileDescription><fileContent>.
type FileContent struct {
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// ReferenceableParamGroup is one entry of <referenceableParamGroupList>.
type ReferenceableParamGroup struct {
	ID       string    `json:"id,omitempty" xml:"id,attr"`
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// ReferenceableParamGroupList is the document's top-level param group
// dictionary, referenced elsewhere by id.
type ReferenceableParamGroupList struct {
	Count                     int                       `json:"count,omitempty" xml:"count,attr"`
	ReferenceableParamGroups  []ReferenceableParamGroup `json:"referenceableParamGroup,omitempty" xml:"referenceableParamGroup"`
}

// Sample is one entry of <sampleList>.
type Sample struct {
	ID       string    `json:"id,omitempty" xml:"id,attr"`
	Name     string    `json:"name,omitempty" xml:"name,attr,omitempty"`
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// SampleList is the document's <sampleList>.
type SampleList struct {
	Count   int      `json:"count,omitempty" xml:"count,attr"`
	Samples []Sample `json:"sample,omitempty" xml:"sample"`
}

// Instrument is one entry of <instrumentConfigurationList>.
type Instrument struct {
	ID            string         `json:"id,omitempty" xml:"id,attr"`
	CvParam       []CvParam      `json:"cvParams,omitempty" xml:"cvParam"`
	ComponentList *ComponentList `json:"componentList,omitempty" xml:"componentList,omitempty"`
}

// InstrumentList is the document's <instrumentConfigurationList>.
type InstrumentList struct {
	Count      int          `json:"count,omitempty" xml:"count,attr"`
	Instrument []Instrument `json:"instrumentConfiguration,omitempty" xml:"instrumentConfiguration"`
}

// ComponentList groups the source/analyzer/detector of an instrument.
type ComponentList struct {
	Count     int        `json:"count,omitempty" xml:"count,attr"`
	Sources   []Source   `json:"source,omitempty" xml:"source"`
	Analyzers []Analyzer `json:"analyzer,omitempty" xml:"analyzer"`
	Detectors []Detector `json:"detector,omitempty" xml:"detector"`
}

// Source is an ion source component.
type Source struct {
	Order    int       `json:"order,omitempty" xml:"order,attr"`
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// Analyzer is a mass analyzer component.
type Analyzer struct {
	Order    int       `json:"order,omitempty" xml:"order,attr"`
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// Detector is a detector component.
type Detector struct {
	Order    int       `json:"order,omitempty" xml:"order,attr"`
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// Software is one entry of <softwareList>.
type Software struct {
	ID      string    `json:"id,omitempty" xml:"id,attr"`
	Version string    `json:"version,omitempty" xml:"version,attr,omitempty"`
	CvParam []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// SoftwareList is the document's <softwareList>.
type SoftwareList struct {
	Count    int        `json:"count,omitempty" xml:"count,attr"`
	Software []Software `json:"software,omitempty" xml:"software"`
}

// ProcessingMethod is one step of a <dataProcessing>.
type ProcessingMethod struct {
	Order                int       `json:"order,omitempty" xml:"order,attr"`
	SoftwareRef          string    `json:"softwareRef,omitempty" xml:"softwareRef,attr,omitempty"`
	CvParam              []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// DataProcessing is one entry of <dataProcessingList>.
type DataProcessing struct {
	ID               string             `json:"id,omitempty" xml:"id,attr"`
	ProcessingMethod []ProcessingMethod `json:"processingMethod,omitempty" xml:"processingMethod"`
}

// DataProcessingList is the document's <dataProcessingList>.
type DataProcessingList struct {
	Count          int              `json:"count,omitempty" xml:"count,attr"`
	DataProcessing []DataProcessing `json:"dataProcessing,omitempty" xml:"dataProcessing"`
}

// ScanSettings is one entry of <scanSettingsList>.
type ScanSettings struct {
	ID       string    `json:"id,omitempty" xml:"id,attr"`
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// ScanSettingsList is the document's <scanSettingsList>.
type ScanSettingsList struct {
	Count        int            `json:"count,omitempty" xml:"count,attr"`
	ScanSettings []ScanSettings `json:"scanSettings,omitempty" xml:"scanSettings"`
}

// IsolationWindow is <precursor><isolationWindow>.
type IsolationWindow struct {
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// SelectedIon is one entry of <selectedIonList>.
type SelectedIon struct {
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// SelectedIonList is <precursor><selectedIonList>.
type SelectedIonList struct {
	Count        int           `json:"count,omitempty" xml:"count,attr"`
	SelectedIons []SelectedIon `json:"selectedIon,omitempty" xml:"selectedIon"`
}

// Activation is <precursor><activation>.
type Activation struct {
	CVParams []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// Precursor is one entry of <precursorList>.
type Precursor struct {
	SpectrumRef     string           `json:"spectrumRef,omitempty" xml:"spectrumRef,attr,omitempty"`
	IsolationWindow *IsolationWindow `json:"isolationWindow,omitempty" xml:"isolationWindow,omitempty"`
	SelectedIonList *SelectedIonList `json:"selectedIonList,omitempty" xml:"selectedIonList,omitempty"`
	Activation      *Activation      `json:"activation,omitempty" xml:"activation,omitempty"`
}

// PrecursorList is <spectrum><precursorList>.
type PrecursorList struct {
	Count      int         `json:"count,omitempty" xml:"count,attr"`
	Precursors []Precursor `json:"precursor,omitempty" xml:"precursor"`
}

// Product is one entry of <productList>.
type Product struct {
	IsolationWindow *IsolationWindow `json:"isolationWindow,omitempty" xml:"isolationWindow,omitempty"`
}

// ProductList is <spectrum><productList>.
type ProductList struct {
	Count    int       `json:"count,omitempty" xml:"count,attr"`
	Products []Product `json:"product,omitempty" xml:"product"`
}

// Scan is one entry of <scanList>.
type Scan struct {
	InstrumentConfigurationRef string    `json:"instrumentConfigurationRef,omitempty" xml:"instrumentConfigurationRef,attr,omitempty"`
	CVParams                   []CvParam `json:"cvParams,omitempty" xml:"cvParam"`
}

// ScanList is <spectrum><scanList>.
type ScanList struct {
	Count int    `json:"count,omitempty" xml:"count,attr"`
	Scans []Scan `json:"scan,omitempty" xml:"scan"`
}

// BinaryDataArray is one entry of <binaryDataArrayList>: either the
// m/z, intensity, or time axis of a spectrum or chromatogram.
type BinaryDataArray struct {
	ArrayLength   int       `json:"arrayLength,omitempty" xml:"-"`
	EncodedLength int       `json:"encodedLength,omitempty" xml:"-"`
	IsF32         bool      `json:"isF32,omitempty" xml:"-"`
	IsF64         bool      `json:"isF64,omitempty" xml:"-"`
	CVParams      []CvParam `json:"cvParams,omitempty" xml:"cvParam"`

	// Decoded holds exactly one populated slice; the zero value of the
	// other indicates which format this array was stored as (§3).
	DecodedF32 []float32 `json:"decodedF32,omitempty" xml:"-"`
	DecodedF64 []float64 `json:"decodedF64,omitempty" xml:"-"`
}

// BinaryDataArrayList is the owning element's <binaryDataArrayList>.
type BinaryDataArrayList struct {
	Count            int               `json:"count,omitempty" xml:"count,attr"`
	BinaryDataArrays []BinaryDataArray `json:"binaryDataArray,omitempty" xml:"binaryDataArray"`
}

// Spectrum is one entry of <spectrumList> (§3).
type Spectrum struct {
	ID                       string               `json:"id,omitempty" xml:"id,attr"`
	Index                    int                  `json:"index,omitempty" xml:"index,attr"`
	MSLevel                  int                  `json:"msLevel,omitempty" xml:"-"`
	ScanNumber               int                  `json:"scanNumber,omitempty" xml:"-"`
	NativeID                 string               `json:"nativeId,omitempty" xml:"-"`
	SpotID                   string               `json:"spotId,omitempty" xml:"spotID,attr,omitempty"`
	SourceFileRef            string               `json:"sourceFileRef,omitempty" xml:"-"`
	DataProcessingRef        string               `json:"dataProcessingRef,omitempty" xml:"dataProcessingRef,attr,omitempty"`
	DefaultArrayLength       int                  `json:"defaultArrayLength,omitempty" xml:"defaultArrayLength,attr"`
	CVParams                 []CvParam            `json:"cvParams,omitempty" xml:"cvParam"`
	UserParams               []UserParam          `json:"userParams,omitempty" xml:"userParam"`
	ScanList                 *ScanList            `json:"scanList,omitempty" xml:"scanList,omitempty"`
	PrecursorList            *PrecursorList       `json:"precursorList,omitempty" xml:"precursorList,omitempty"`
	ProductList              *ProductList         `json:"productList,omitempty" xml:"productList,omitempty"`
	BinaryDataArrayList      *BinaryDataArrayList `json:"binaryDataArrayList,omitempty" xml:"binaryDataArrayList,omitempty"`
}

// SpectrumList is the document's <run><spectrumList>.
type SpectrumList struct {
	Count               int        `json:"count,omitempty" xml:"count,attr"`
	DefaultDataProcessingRef string `json:"defaultDataProcessingRef,omitempty" xml:"defaultDataProcessingRef,attr,omitempty"`
	Spectra             []Spectrum `json:"spectrum,omitempty" xml:"spectrum"`
}

// Chromatogram is one entry of <chromatogramList> (§3).
type Chromatogram struct {
	ID                  string               `json:"id,omitempty" xml:"id,attr"`
	Index               int                  `json:"index,omitempty" xml:"index,attr"`
	DataProcessingRef   string               `json:"dataProcessingRef,omitempty" xml:"dataProcessingRef,attr,omitempty"`
	DefaultArrayLength  int                  `json:"defaultArrayLength,omitempty" xml:"defaultArrayLength,attr"`
	CVParams            []CvParam            `json:"cvParams,omitempty" xml:"cvParam"`
	UserParams          []UserParam          `json:"userParams,omitempty" xml:"userParam"`
	PrecursorList       *PrecursorList       `json:"precursorList,omitempty" xml:"precursorList,omitempty"`
	BinaryDataArrayList *BinaryDataArrayList `json:"binaryDataArrayList,omitempty" xml:"binaryDataArrayList,omitempty"`
}

// ChromatogramList is the document's <run><chromatogramList>.
type ChromatogramList struct {
	Count         int            `json:"count,omitempty" xml:"count,attr"`
	Chromatograms []Chromatogram `json:"chromatogram,omitempty" xml:"chromatogram"`
}

// Run is the document's <run>.
type Run struct {
	ID                          string            `json:"id,omitempty" xml:"id,attr"`
	DefaultInstrumentConfigRef  string            `json:"defaultInstrumentConfigurationRef,omitempty" xml:"defaultInstrumentConfigurationRef,attr,omitempty"`
	DefaultSourceFileRef        string            `json:"defaultSourceFileRef,omitempty" xml:"defaultSourceFileRef,attr,omitempty"`
	SpectrumList                *SpectrumList     `json:"spectrumList,omitempty" xml:"spectrumList,omitempty"`
	ChromatogramList            *ChromatogramList `json:"chromatogramList,omitempty" xml:"chromatogramList,omitempty"`
}

// MzML is the decoded document tree root, the unit that Decode and
// Encode operate on (§3).
type MzML struct {
	CvList                      *CvList                      `json:"cvList,omitempty" xml:"cvList,omitempty"`
	FileDescription             FileDescription              `json:"fileDescription" xml:"fileDescription"`
	ReferenceableParamGroupList *ReferenceableParamGroupList `json:"referenceableParamGroupList,omitempty" xml:"referenceableParamGroupList,omitempty"`
	SampleList                  *SampleList                  `json:"sampleList,omitempty" xml:"sampleList,omitempty"`
	InstrumentList              *InstrumentList              `json:"instrumentConfigurationList,omitempty" xml:"instrumentConfigurationList,omitempty"`
	SoftwareList                *SoftwareList                `json:"softwareList,omitempty" xml:"softwareList,omitempty"`
	DataProcessingList          *DataProcessingList          `json:"dataProcessingList,omitempty" xml:"dataProcessingList,omitempty"`
	ScanSettingsList            *ScanSettingsList            `json:"scanSettingsList,omitempty" xml:"scanSettingsList,omitempty"`
	Run                         Run                          `json:"run" xml:"run"`
}
