// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/cpg"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
)

// Snapshot is a fully decoded, re-verified snapshot: the rebuilt CPG plus
// the header fields that identified it on disk.
type Snapshot struct {
	SchemaVersion uint32
	EpochID       uint64
	Epoch         *cpg.Epoch
}

// Read decompresses, decodes, and re-verifies a snapshot written by Write.
//
// Two independent checks must both pass, per spec.md §4.I:
//  1. the trailer — a SHA-256 over every byte preceding it — must match
//     the trailer stored at the end of the stream. This catches bit
//     corruption or truncation of the file itself.
//  2. cpg_hash, recomputed from the rebuilt node/edge/string sequences
//     using the exact same canonical hasher the CPG merger seals epochs
//     with, must match the cpg_hash recorded in the header. This catches
//     a snapshot that decodes cleanly but no longer represents the CPG
//     it claims to.
//
// Either mismatch is fatal: Read returns a kernelerr HashMismatch rather
// than handing back a partially-trusted epoch.
func Read(r io.Reader) (*Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.InvariantViolation, "construct zstd reader", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.InvariantViolation, "decompress snapshot stream", err)
	}
	if len(raw) < sha256.Size {
		return nil, kernelerr.NewInvariantViolation("snapshot stream shorter than trailer")
	}

	body, storedTrailer := raw[:len(raw)-sha256.Size], raw[len(raw)-sha256.Size:]
	computedTrailer := sha256.Sum256(body)
	if !bytes.Equal(computedTrailer[:], storedTrailer) {
		return nil, kernelerr.NewHashMismatch(fmt.Sprintf("%x", storedTrailer), fmt.Sprintf("%x", computedTrailer), "snapshot trailer")
	}

	br := bytes.NewReader(body)

	var gotMagic [8]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return nil, kernelerr.Wrap(kernelerr.InvariantViolation, "read snapshot magic", err)
	}
	if gotMagic != magic {
		return nil, kernelerr.NewSchemaVersionMismatch("VCR1 magic", fmt.Sprintf("%x", gotMagic))
	}

	schemaVersion, err := readU32(br)
	if err != nil {
		return nil, err
	}
	if schemaVersion != CurrentSchemaVersion {
		return nil, kernelerr.NewSchemaVersionMismatch(fmt.Sprintf("%d", CurrentSchemaVersion), fmt.Sprintf("%d", schemaVersion))
	}

	epochID, err := readU64(br)
	if err != nil {
		return nil, err
	}

	var headerHash chash.Digest
	if _, err := io.ReadFull(br, headerHash[:]); err != nil {
		return nil, kernelerr.Wrap(kernelerr.InvariantViolation, "read cpg_hash header", err)
	}

	fileCount, err := readU32(br)
	if err != nil {
		return nil, err
	}
	files := make([]cpg.FileCPG, fileCount)
	for i := range files {
		fc, err := readFileBody(br, ir.FileID(i))
		if err != nil {
			return nil, err
		}
		files[i] = fc
	}

	stringCount, err := readU32(br)
	if err != nil {
		return nil, err
	}
	names := make([]string, stringCount)
	for i := range names {
		s, err := readString(br)
		if err != nil {
			return nil, err
		}
		names[i] = s
	}

	recomputed := sealFromParts(files, names)
	if recomputed != headerHash {
		return nil, kernelerr.NewHashMismatch(fmt.Sprintf("%x", headerHash), fmt.Sprintf("%x", recomputed), "cpg_hash")
	}

	return &Snapshot{
		SchemaVersion: schemaVersion,
		EpochID:       epochID,
		Epoch:         &cpg.Epoch{Files: files, Names: names, CPGHash: recomputed},
	}, nil
}

// readFileBody decodes one file's node and edge records, the mirror of
// writeFileBody.
func readFileBody(r *bytes.Reader, fileID ir.FileID) (cpg.FileCPG, error) {
	nodeCount, err := readU32(r)
	if err != nil {
		return cpg.FileCPG{}, err
	}
	nodes := make([]ir.CPGNode, nodeCount)
	for i := range nodes {
		id, err := readU64(r)
		if err != nil {
			return cpg.FileCPG{}, err
		}
		var kindByte [1]byte
		if _, err := io.ReadFull(r, kindByte[:]); err != nil {
			return cpg.FileCPG{}, kernelerr.Wrap(kernelerr.InvariantViolation, "read node kind", err)
		}
		start, err := readU32(r)
		if err != nil {
			return cpg.FileCPG{}, err
		}
		end, err := readU32(r)
		if err != nil {
			return cpg.FileCPG{}, err
		}
		parentRaw, err := readU64(r)
		if err != nil {
			return cpg.FileCPG{}, err
		}
		parent := ir.NodeID(parentRaw)
		if parentRaw == nilNodeSentinel {
			parent = ir.NilNodeID
		}
		extraLen, err := readU16(r)
		if err != nil {
			return cpg.FileCPG{}, err
		}
		extraBuf := make([]byte, extraLen)
		if _, err := io.ReadFull(r, extraBuf); err != nil {
			return cpg.FileCPG{}, kernelerr.Wrap(kernelerr.InvariantViolation, "read node extra", err)
		}
		extra, err := decodeExtra(extraBuf)
		if err != nil {
			return cpg.FileCPG{}, err
		}
		nodes[i] = ir.CPGNode{
			ID:     ir.NodeID(id),
			Kind:   ir.NodeKind(kindByte[0]),
			Span:   ir.Span{Start: start, End: end},
			Parent: parent,
			Extra:  extra,
		}
	}

	edgeCount, err := readU32(r)
	if err != nil {
		return cpg.FileCPG{}, err
	}
	edges := make([]ir.CPGEdge, edgeCount)
	for i := range edges {
		from, err := readU64(r)
		if err != nil {
			return cpg.FileCPG{}, err
		}
		to, err := readU64(r)
		if err != nil {
			return cpg.FileCPG{}, err
		}
		var kindByte [1]byte
		if _, err := io.ReadFull(r, kindByte[:]); err != nil {
			return cpg.FileCPG{}, kernelerr.Wrap(kernelerr.InvariantViolation, "read edge kind", err)
		}
		edges[i] = ir.CPGEdge{From: ir.NodeID(from), To: ir.NodeID(to), Kind: ir.EdgeKind(kindByte[0])}
	}

	return cpg.FileCPG{FileID: fileID, Nodes: nodes, Edges: edges}, nil
}

// decodeExtra is the mirror of encodeExtra: all four ir.Extra fields,
// always present, in fixed order.
func decodeExtra(b []byte) (ir.Extra, error) {
	r := bytes.NewReader(b)
	nameID, err := readU32(r)
	if err != nil {
		return ir.Extra{}, err
	}
	literalText, err := readString(r)
	if err != nil {
		return ir.Extra{}, err
	}
	varVersion, err := readU32(r)
	if err != nil {
		return ir.Extra{}, err
	}
	callTarget, err := readString(r)
	if err != nil {
		return ir.Extra{}, err
	}
	return ir.Extra{
		NameID:         nameID,
		LiteralText:    literalText,
		VarVersion:     varVersion,
		CallTargetName: callTarget,
	}, nil
}

// sealFromParts reproduces cpg.Build's seal step exactly (same per-file
// node/edge digests folded in file order, then the string table digest)
// so a rebuilt snapshot hashes identically to the epoch that produced it.
func sealFromParts(files []cpg.FileCPG, names []string) chash.Digest {
	c := chash.New()
	for _, fc := range files {
		c.Digest(ir.HashNodes(fc.Nodes))
		c.Digest(ir.HashEdges(fc.Edges))
	}
	c.Digest(ir.HashStrings(names))
	return c.Sum()
}

func readU16(r *bytes.Reader) (uint16, error) {
	var a [2]byte
	if _, err := io.ReadFull(r, a[:]); err != nil {
		return 0, kernelerr.Wrap(kernelerr.InvariantViolation, "read u16", err)
	}
	return binary.LittleEndian.Uint16(a[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var a [4]byte
	if _, err := io.ReadFull(r, a[:]); err != nil {
		return 0, kernelerr.Wrap(kernelerr.InvariantViolation, "read u32", err)
	}
	return binary.LittleEndian.Uint32(a[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var a [8]byte
	if _, err := io.ReadFull(r, a[:]); err != nil {
		return 0, kernelerr.Wrap(kernelerr.InvariantViolation, "read u64", err)
	}
	return binary.LittleEndian.Uint64(a[:]), nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", kernelerr.Wrap(kernelerr.InvariantViolation, "read string", err)
	}
	return string(buf), nil
}
