// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-mzbin/mzbin"
	"github.com/go-mzbin/mzbin/mzmlio"
	"github.com/spf13/cobra"
)

var (
	mzmlToB64     bool
	mzmlToB32     bool
	b64ToMzml     bool
	inputPath     string
	outputPath    string
	level         int
	overwrite     bool
)

type conversionCounts struct {
	ok, failed, skipped int
}

func convertDirection() (suffix string, convertFn func(src, dst string) error, err error) {
	switch {
	case mzmlToB64:
		return ".b64", convertMzmlToBin(mzbin.EncodeOptions{
			Format: mzbin.FormatF64,
			Codec:  mzbin.CodecZstd,
			Level:  uint8(level),
		}), nil
	case mzmlToB32:
		return ".b32", convertMzmlToBin(mzbin.EncodeOptions{
			Format: mzbin.FormatF32,
			Codec:  mzbin.CodecZstd,
			Level:  uint8(level),
		}), nil
	case b64ToMzml:
		return ".mzML", convertBinToMzml, nil
	default:
		return "", nil, fmt.Errorf("exactly one of --mzml-to-b64, --mzml-to-b32, --b64-to-mzml is required")
	}
}

func convertMzmlToBin(opts mzbin.EncodeOptions) func(src, dst string) error {
	return func(src, dst string) error {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		doc, err := mzmlio.ParseMzML(data)
		if err != nil {
			return err
		}
		out, err := mzbin.Encode(doc, opts)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, out, 0o644)
	}
}

func convertBinToMzml(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	doc, err := mzbin.Decode(data)
	if err != nil {
		return err
	}
	out, err := mzmlio.WriteMzML(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, out, 0o644)
}

func runConvert(cmd *cobra.Command, args []string) {
	suffix, convertFn, err := convertDirection()
	if err != nil {
		log.Fatal(err)
	}

	in := inputPath
	if in == "" {
		in = "."
	}

	// Inputs whose extension matches the conversion direction.
	inputExts := map[string]bool{".mzml": true}
	if b64ToMzml {
		inputExts = map[string]bool{".b64": true, ".b32": true}
	}

	var files []string
	if !isDirectory(in) {
		files = []string{in}
	} else {
		filepath.Walk(in, func(path string, f os.FileInfo, err error) error {
			if err == nil && !f.IsDir() && inputExts[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
	}

	counts := conversionCounts{}
	for _, src := range files {
		dst := outputDst(src, in, outputPath, suffix)
		if !overwrite {
			if _, err := os.Stat(dst); err == nil {
				log.Printf("skipping %s, %s already exists", src, dst)
				counts.skipped++
				continue
			}
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			log.Printf("failed to prepare output dir for %s: %v", src, err)
			counts.failed++
			continue
		}
		if err := convertFn(src, dst); err != nil {
			log.Printf("failed to convert %s: %v", src, err)
			counts.failed++
			continue
		}
		log.Printf("converted %s -> %s", src, dst)
		counts.ok++
	}

	log.Printf("done: %d converted, %d failed, %d skipped", counts.ok, counts.failed, counts.skipped)
	if counts.failed > 0 {
		os.Exit(1)
	}
}

func outputDst(src, inRoot, outRoot, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + suffix
	if outRoot == "" {
		return filepath.Join(filepath.Dir(src), base)
	}
	rel, err := filepath.Rel(inRoot, filepath.Dir(src))
	if err != nil || rel == "." {
		return filepath.Join(outRoot, base)
	}
	return filepath.Join(outRoot, rel, base)
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between mzML and the B000 binary container",
		Long:  "Walks a file or directory converting each match between mzML and the .b64/.b32 binary container",
		Run:   runConvert,
	}
	cmd.Flags().BoolVar(&mzmlToB64, "mzml-to-b64", false, "convert mzML input to .b64 (64-bit arrays)")
	cmd.Flags().BoolVar(&mzmlToB32, "mzml-to-b32", false, "convert mzML input to .b32 (32-bit arrays)")
	cmd.Flags().BoolVar(&b64ToMzml, "b64-to-mzml", false, "convert a binary container back to mzML")
	cmd.Flags().StringVar(&inputPath, "input-path", "", "file or directory to convert (default: current directory)")
	cmd.Flags().StringVar(&outputPath, "output-path", "", "output directory (default: alongside each input file)")
	cmd.Flags().IntVar(&level, "level", 0, "compression level, 0-22 (0 disables compression)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing output files")
	return cmd
}
