// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import "errors"

// Errors returned by Decode, Encode, and the container/metadata codecs.
// Each is a flat sentinel with no nested kind hierarchy; callers that need
// extra context get it via fmt.Errorf("...: %w", ErrX) at the call site.
var (
	// ErrBadMagic is returned when the first four bytes are not "B000", or
	// the endianness byte at offset 4 is non-zero.
	ErrBadMagic = errors.New("mzbin: bad magic or unsupported endianness")

	// ErrTruncated is returned when a read would exceed the file length:
	// a mis-sized metadata region, a cut-off index entry, or a block
	// payload that runs past the end of the file.
	ErrTruncated = errors.New("mzbin: truncated file")

	// ErrInconsistentOffsets is returned when region offsets are
	// non-monotonic, or a container's first offset precedes the end of
	// the global-meta region.
	ErrInconsistentOffsets = errors.New("mzbin: inconsistent region offsets")

	// ErrBadCompression is returned for a codec failure, a size mismatch
	// after decompression, or an unknown codec code.
	ErrBadCompression = errors.New("mzbin: bad compression")

	// ErrBadArrayLayout is returned when an element offset precedes its
	// block's start, a block id is out of range, a slice runs past the
	// block end, or an element count is not a multiple of the element
	// size.
	ErrBadArrayLayout = errors.New("mzbin: bad array layout")

	// ErrBadMetadata is returned when a value index is out of range, an
	// item-index prefix sum is non-monotonic, or string data is not
	// valid UTF-8.
	ErrBadMetadata = errors.New("mzbin: bad metadata")

	// ErrSchemaViolation is returned by Encode when a spectrum or
	// chromatogram has no binaryDataArrayList or lacks one of its two
	// identifying arrays. Decode does not check reassembled elements
	// against a schema and never returns it.
	ErrSchemaViolation = errors.New("mzbin: schema violation")

	// ErrIO names filesystem failures unrelated to the container format
	// itself. Neither the codec nor the CLI currently returns it; the CLI
	// reports the underlying os errors directly.
	ErrIO = errors.New("mzbin: io error")
)
