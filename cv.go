// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	_ "embed"
	"encoding/json"
	"sync"
)

//go:embed cv_table.json
var rawCVTable []byte

var cvTableOnce sync.Once
var cvTable map[string]string

// loadCVTable parses the embedded CV lookup table once, lazily, the Go
// equivalent of the teacher's once_cell::Lazy singleton.
func loadCVTable() map[string]string {
	cvTableOnce.Do(func() {
		m := make(map[string]string)
		// Errors here would mean a corrupt build-time asset; the table is
		// advisory (only used to fill in a display name) so a failure
		// degrades to an empty table rather than panicking.
		_ = json.Unmarshal(rawCVTable, &m)
		cvTable = m
	})
	return cvTable
}

// cvNameFromCode looks up the display name for a ref/accession pair,
// formatting the key the same way makeAccession does for MS/UO/PEFF
// prefixes (7-digit zero-padded).
func cvNameFromCode(prefix string, tail uint32) string {
	if tail == 0 || prefix == "" {
		return ""
	}
	key := prefix + ":" + zeroPad7(tail)
	return loadCVTable()[key]
}

// cvLookup returns the display name for a full accession string, e.g.
// "MS:1000514", or "" if unknown.
func cvLookup(accession string) string {
	if accession == "" {
		return ""
	}
	return loadCVTable()[accession]
}
