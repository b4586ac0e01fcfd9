// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chash implements the kernel's canonical hasher: a SHA-256 digest
// over a totally-ordered, fixed-endian, length-prefixed encoding. Every
// aggregate hashed through this package must already be sorted by its
// defined total order before it reaches the hasher; enumerating an
// unordered container here is a programming error, and AssertSorted
// panics rather than let a non-deterministic digest escape.
package chash

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// Digest is the kernel-wide hash type: 32 raw SHA-256 bytes.
type Digest [32]byte

// IsZero reports whether d is the zero digest (never a valid content hash).
func (d Digest) IsZero() bool { return d == Digest{} }

// Canonical accumulates a canonical encoding and produces its digest.
// Field writers never allocate beyond what binary.Write needs, and every
// byte string is length-prefixed so no encoding is ambiguous.
type Canonical struct {
	h hash.Hash
}

// New returns a fresh canonical hasher.
func New() *Canonical {
	return &Canonical{h: sha256.New()}
}

// BeginStruct writes a single tag byte identifying the variant of an
// aggregate about to be encoded (e.g. a CPGNode kind, a CPGEdge kind).
// There is no matching EndStruct: the canonical encoding is self-framing
// because every field writer is fixed-width or length-prefixed, so no
// closing marker is needed to parse it back.
func (c *Canonical) BeginStruct(tag byte) *Canonical {
	c.h.Write([]byte{tag})
	return c
}

// U8 writes a single byte field.
func (c *Canonical) U8(v uint8) *Canonical {
	c.h.Write([]byte{v})
	return c
}

// U32 writes a fixed-width little-endian uint32 field.
func (c *Canonical) U32(v uint32) *Canonical {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	c.h.Write(buf[:])
	return c
}

// U64 writes a fixed-width little-endian uint64 field.
func (c *Canonical) U64(v uint64) *Canonical {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	c.h.Write(buf[:])
	return c
}

// I64 writes a fixed-width little-endian int64 field.
func (c *Canonical) I64(v int64) *Canonical {
	return c.U64(uint64(v))
}

// Bytes writes a length-prefixed byte string field.
func (c *Canonical) Bytes(b []byte) *Canonical {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	c.h.Write(lenBuf[:])
	c.h.Write(b)
	return c
}

// String writes a length-prefixed UTF-8 string field.
func (c *Canonical) String(s string) *Canonical {
	return c.Bytes([]byte(s))
}

// Digest writes a raw 32-byte digest field (no length prefix needed; the
// width is fixed by the type).
func (c *Canonical) Digest(d Digest) *Canonical {
	c.h.Write(d[:])
	return c
}

// Sum finalizes the hash and returns the digest. The Canonical may
// continue to be used afterward (sha256.Hash.Sum does not reset state).
func (c *Canonical) Sum() Digest {
	var d Digest
	copy(d[:], c.h.Sum(nil))
	return d
}

// Sequence hashes a list of opaque byte-encoded items in the order given,
// length-prefixing each one. It does not check that order itself: callers
// run AssertSorted over the items' total order first, which panics loudly
// on a violation rather than letting a non-canonical order be hashed.
func Sequence(items [][]byte) Digest {
	c := New()
	for _, it := range items {
		c.Bytes(it)
	}
	return c.Sum()
}

// AssertSorted panics with an InvariantViolation-shaped message if items
// (length n, ordered by less) is not actually sorted. Every caller that
// enumerates a slice destined for canonical hashing must run it through
// this check first — hashing a map or set directly, without first
// collecting and sorting its entries, is exactly the programming error
// spec.md §4.A forbids.
func AssertSorted(n int, less func(i, j int) bool) {
	for i := 1; i < n; i++ {
		if less(i, i-1) {
			panic("chash: attempted to hash an unsorted aggregate")
		}
	}
}
