// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package source implements spec.md §4.B: a read-only, zero-copy byte view
// over one source file, with its content hash computed once at open time.
package source

import (
	"crypto/sha256"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
)

// File is a mapped, read-only view of one source file plus its identity.
// Its Bytes slice is valid for the lifetime of the owning ingestion epoch;
// callers must not retain it past the epoch's release (spec.md §4.B).
type File struct {
	FileID       ir.FileID
	CanonicalPath string
	ContentHash  chash.Digest
	Bytes        []byte

	closer func() error
}

// Open maps path read-only, assigns it fileID, and computes its content
// hash immediately. On any mapping failure it returns a FileUnavailable
// error naming the canonical path, per spec.md §4.B.
func Open(path string, fileID ir.FileID) (*File, error) {
	data, closer, err := mapReadOnly(path)
	if err != nil {
		return nil, kernelerr.NewFileUnavailable(path, err)
	}

	sum := sha256.Sum256(data)
	var digest chash.Digest
	copy(digest[:], sum[:])

	return &File{
		FileID:        fileID,
		CanonicalPath: path,
		ContentHash:   digest,
		Bytes:         data,
		closer:        closer,
	}, nil
}

// Close releases the underlying mapping. Callers must not dereference
// Bytes after Close returns.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	err := f.closer()
	f.closer = nil
	f.Bytes = nil
	return err
}
