// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import "testing"

// FuzzDecode exercises Decode against arbitrary input, the stdlib
// testing.F replacement for the teacher's go-fuzz-style Fuzz(data
// []byte) int entry point.
func FuzzDecode(f *testing.F) {
	f.Add([]byte{})
	f.Add(make([]byte, headerSize))
	f.Add(append([]byte("XXXX"), make([]byte, headerSize-4)...))

	f.Fuzz(func(t *testing.T, data []byte) {
		doc, err := Decode(data)
		if err != nil {
			return
		}
		if doc == nil {
			t.Fatal("Decode returned nil document with nil error")
		}
	})
}
