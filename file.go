// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"go.uber.org/zap"
)

// A File represents an open B000 container, either memory-mapped from
// disk or backed by an in-memory buffer.
type File struct {
	Doc  *MzML
	data mmap.MMap
	buf  []byte
	f    *os.File
	opts *Options
}

// Options configures how a File is opened and decoded.
type Options struct {
	// Logger receives warn-level diagnostics encountered while decoding,
	// such as a default_array_length attribute that disagrees with the
	// index-derived value.
	Logger *zap.Logger
}

// New memory-maps the file at name and instantiates a File ready for
// Decode. The mapping is read-only; Close unmaps it.
func New(name string, opts *Options) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	file := File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}
	if file.opts.Logger != nil {
		SetLogger(file.opts.Logger)
	}

	file.data = data
	file.f = f
	return &file, nil
}

// NewBytes instantiates a File from an in-memory buffer, useful when the
// container has already been read or received over a transport.
func NewBytes(data []byte, opts *Options) (*File, error) {
	file := File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}
	if file.opts.Logger != nil {
		SetLogger(file.opts.Logger)
	}

	file.buf = data
	return &file, nil
}

// Close releases the memory mapping, if any, and the underlying file
// handle.
func (bf *File) Close() error {
	if bf.data != nil {
		_ = bf.data.Unmap()
	}
	if bf.f != nil {
		return bf.f.Close()
	}
	return nil
}

// bytes returns the file's backing storage regardless of whether it
// came from a mapping or a plain buffer.
func (bf *File) bytes() []byte {
	if bf.data != nil {
		return bf.data
	}
	return bf.buf
}

// Decode parses the container's bytes into a document tree and stores
// it on the File as Doc.
func (bf *File) Decode() error {
	doc, err := Decode(bf.bytes())
	if err != nil {
		return err
	}
	bf.Doc = doc
	return nil
}
