// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-mzbin/mzbin"
	"github.com/spf13/cobra"
)

var (
	filePath         string
	showGeneral      bool
	showRun          bool
	showSpectrumList bool
	showChromList    bool
	showSpectrum     bool
	showChromatogram bool
	items            string
	showBinary       bool
)

func prettyPrint(buf []byte) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf, "", "  "); err != nil {
		log.Println("JSON parse error:", err)
		return string(buf)
	}
	return pretty.String()
}

// parseItems turns a comma-separated index spec like "0,2,5-7" into the
// set of indices it names. An empty spec means "every item".
func parseItems(spec string) (all bool, set map[int]bool) {
	if spec == "" {
		return true, nil
	}
	set = make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if dash := strings.Index(part, "-"); dash > 0 {
			lo, errLo := strconv.Atoi(part[:dash])
			hi, errHi := strconv.Atoi(part[dash+1:])
			if errLo == nil && errHi == nil {
				for i := lo; i <= hi; i++ {
					set[i] = true
				}
				continue
			}
		}
		if n, err := strconv.Atoi(part); err == nil {
			set[n] = true
		}
	}
	return false, set
}

func stripBinary(doc *mzbin.MzML) {
	strip := func(list *mzbin.BinaryDataArrayList) {
		if list == nil {
			return
		}
		for i := range list.BinaryDataArrays {
			list.BinaryDataArrays[i].DecodedF32 = nil
			list.BinaryDataArrays[i].DecodedF64 = nil
		}
	}
	if doc.Run.SpectrumList != nil {
		for i := range doc.Run.SpectrumList.Spectra {
			strip(doc.Run.SpectrumList.Spectra[i].BinaryDataArrayList)
		}
	}
	if doc.Run.ChromatogramList != nil {
		for i := range doc.Run.ChromatogramList.Chromatograms {
			strip(doc.Run.ChromatogramList.Chromatograms[i].BinaryDataArrayList)
		}
	}
}

func runShow(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatalf("failed to read %s: %v", filePath, err)
	}

	doc, err := mzbin.Decode(data)
	if err != nil {
		log.Fatalf("failed to decode %s: %v", filePath, err)
	}

	if !showBinary {
		stripBinary(doc)
	}

	all, set := parseItems(items)

	switch {
	case showGeneral:
		general := struct {
			CvList                      *mzbin.CvList                      `json:"cvList,omitempty"`
			FileDescription             mzbin.FileDescription              `json:"fileDescription"`
			ReferenceableParamGroupList *mzbin.ReferenceableParamGroupList `json:"referenceableParamGroupList,omitempty"`
			SampleList                  *mzbin.SampleList                  `json:"sampleList,omitempty"`
			InstrumentList              *mzbin.InstrumentList              `json:"instrumentConfigurationList,omitempty"`
			SoftwareList                *mzbin.SoftwareList                `json:"softwareList,omitempty"`
			DataProcessingList          *mzbin.DataProcessingList          `json:"dataProcessingList,omitempty"`
			ScanSettingsList            *mzbin.ScanSettingsList            `json:"scanSettingsList,omitempty"`
		}{
			doc.CvList, doc.FileDescription, doc.ReferenceableParamGroupList,
			doc.SampleList, doc.InstrumentList, doc.SoftwareList,
			doc.DataProcessingList, doc.ScanSettingsList,
		}
		b, _ := json.Marshal(general)
		fmt.Println(prettyPrint(b))

	case showRun:
		run := doc.Run
		run.SpectrumList = nil
		run.ChromatogramList = nil
		b, _ := json.Marshal(run)
		fmt.Println(prettyPrint(b))

	case showSpectrumList:
		if doc.Run.SpectrumList == nil {
			return
		}
		b, _ := json.Marshal(selectedSpectra(doc.Run.SpectrumList, all, set))
		fmt.Println(prettyPrint(b))

	case showChromList:
		if doc.Run.ChromatogramList == nil {
			return
		}
		b, _ := json.Marshal(selectedChromatograms(doc.Run.ChromatogramList, all, set))
		fmt.Println(prettyPrint(b))

	case showSpectrum:
		if doc.Run.SpectrumList == nil {
			return
		}
		b, _ := json.Marshal(selectedSpectra(doc.Run.SpectrumList, all, set))
		fmt.Println(prettyPrint(b))

	case showChromatogram:
		if doc.Run.ChromatogramList == nil {
			return
		}
		b, _ := json.Marshal(selectedChromatograms(doc.Run.ChromatogramList, all, set))
		fmt.Println(prettyPrint(b))

	default:
		b, _ := json.Marshal(doc)
		fmt.Println(prettyPrint(b))
	}
}

func selectedSpectra(list *mzbin.SpectrumList, all bool, set map[int]bool) []mzbin.Spectrum {
	if all {
		return list.Spectra
	}
	var out []mzbin.Spectrum
	for _, s := range list.Spectra {
		if set[s.Index] {
			out = append(out, s)
		}
	}
	return out
}

func selectedChromatograms(list *mzbin.ChromatogramList, all bool, set map[int]bool) []mzbin.Chromatogram {
	if all {
		return list.Chromatograms
	}
	var out []mzbin.Chromatogram
	for _, c := range list.Chromatograms {
		if set[c.Index] {
			out = append(out, c)
		}
	}
	return out
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a binary container's contents as JSON",
		Long:  "Decodes a .b64/.b32 container and pretty-prints the requested section as JSON",
		Run:   runShow,
	}
	cmd.Flags().StringVar(&filePath, "file-path", "", "container file to read (required)")
	cmd.MarkFlagRequired("file-path")
	cmd.Flags().BoolVar(&showGeneral, "general", false, "print file-level metadata (cvList, fileDescription, instrument, software, ...)")
	cmd.Flags().BoolVar(&showRun, "run", false, "print the run element, excluding spectra and chromatograms")
	cmd.Flags().BoolVar(&showSpectrumList, "spectrum-list", false, "print the spectrum list")
	cmd.Flags().BoolVar(&showChromList, "chromatogram-list", false, "print the chromatogram list")
	cmd.Flags().BoolVar(&showSpectrum, "spectrum", false, "print selected spectra (see --items)")
	cmd.Flags().BoolVar(&showChromatogram, "chromatogram", false, "print selected chromatograms (see --items)")
	cmd.Flags().StringVar(&items, "items", "", "index spec for --spectrum/--chromatogram/--spectrum-list/--chromatogram-list, e.g. \"0,2,5-7\" (default: all)")
	cmd.Flags().BoolVar(&showBinary, "binary", false, "include decoded binary array values")
	return cmd
}
