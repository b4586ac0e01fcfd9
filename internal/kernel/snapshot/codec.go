// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package snapshot implements spec.md §4.I / §6: the on-disk snapshot
// codec. A sealed CPG epoch is written as a length-prefixed binary
// stream (magic, schema version, epoch id, cpg hash, sorted nodes,
// sorted edges, interned string table), trailer-hashed, then wrapped in
// an outer zstd envelope purely for on-disk size — compression never
// touches the bytes that get hashed.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/cpgkernel/cpgk/internal/kernel/cpg"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
	"github.com/cpgkernel/cpgk/internal/kernel/metrics"
)

// CurrentSchemaVersion is the only schema version this codec accepts on
// load. Spec.md §4.I is explicit that there is no migration path: a
// mismatch is fatal, not a best-effort upconvert.
const CurrentSchemaVersion uint32 = 1

var magic = [8]byte{'V', 'C', 'R', '1', 0, 0, 0, 0}

// nilNodeSentinel is the wire encoding of ir.NilNodeID: all-ones 64 bits,
// per spec.md §6.
const nilNodeSentinel = ^uint64(0)

// Write serializes epoch as spec.md §6's wire format, hashes the
// uncompressed stream for the trailer, then writes the whole thing
// zstd-compressed to w.
func Write(w io.Writer, epochID uint64, ce *cpg.Epoch) error {
	var buf bytes.Buffer

	buf.Write(magic[:])
	writeU32(&buf, CurrentSchemaVersion)
	writeU64(&buf, epochID)
	buf.Write(ce.CPGHash[:])

	writeU32(&buf, uint32(len(ce.Files)))
	for _, fc := range ce.Files {
		if err := writeFileBody(&buf, fc); err != nil {
			return err
		}
	}

	writeU32(&buf, uint32(len(ce.Names)))
	for _, s := range ce.Names {
		writeString(&buf, s)
	}

	trailer := sha256.Sum256(buf.Bytes())
	buf.Write(trailer[:])

	cw := &countingWriter{w: w}
	enc, err := zstd.NewWriter(cw)
	if err != nil {
		return kernelerr.Wrap(kernelerr.InvariantViolation, "construct zstd writer", err)
	}
	if _, err := enc.Write(buf.Bytes()); err != nil {
		enc.Close()
		return kernelerr.Wrap(kernelerr.InvariantViolation, "write snapshot stream", err)
	}
	if err := enc.Close(); err != nil {
		return kernelerr.Wrap(kernelerr.InvariantViolation, "flush snapshot stream", err)
	}
	metrics.SnapshotBytesWritten.Add(float64(cw.n))
	return nil
}

// countingWriter tallies bytes actually handed to the underlying writer —
// the compressed size, since it sits downstream of the zstd encoder.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeFileBody(buf *bytes.Buffer, fc cpg.FileCPG) error {
	writeU32(buf, uint32(len(fc.Nodes)))
	for _, n := range fc.Nodes {
		writeU64(buf, uint64(n.ID))
		buf.WriteByte(byte(n.Kind))
		writeU32(buf, n.Span.Start)
		writeU32(buf, n.Span.End)
		if n.Parent == ir.NilNodeID {
			writeU64(buf, nilNodeSentinel)
		} else {
			writeU64(buf, uint64(n.Parent))
		}
		extra := encodeExtra(n.Extra)
		if len(extra) > 0xFFFF {
			return kernelerr.NewBoundExceeded("extra_len", 0xFFFF)
		}
		writeU16(buf, uint16(len(extra)))
		buf.Write(extra)
	}

	writeU32(buf, uint32(len(fc.Edges)))
	for _, e := range fc.Edges {
		writeU64(buf, uint64(e.From))
		writeU64(buf, uint64(e.To))
		buf.WriteByte(byte(e.Kind))
	}
	return nil
}

// encodeExtra writes ir.Extra's four fields in fixed order — always all
// four, per the "extras always included" resolution recorded for the
// canonical hasher (internal/kernel/ir/hash.go) — so decode is mechanical
// and never needs a variant tag.
func encodeExtra(e ir.Extra) []byte {
	var b bytes.Buffer
	writeU32(&b, e.NameID)
	writeString(&b, e.LiteralText)
	writeU32(&b, e.VarVersion)
	writeString(&b, e.CallTargetName)
	return b.Bytes()
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var a [2]byte
	binary.LittleEndian.PutUint16(a[:], v)
	buf.Write(a[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var a [4]byte
	binary.LittleEndian.PutUint32(a[:], v)
	buf.Write(a[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var a [8]byte
	binary.LittleEndian.PutUint64(a[:], v)
	buf.Write(a[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU16(buf, uint16(len(s)))
	buf.WriteString(s)
}
