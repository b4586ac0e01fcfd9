// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cachestore is the kernel's persistent, cross-run cache: a local
// bbolt file recording every content-hash-addressed parse tree this
// kernel has ever produced, plus the sealed cpg_hash of every epoch
// built. None of it feeds a CPG hash (spec.md I5 forbids that
// categorically) — it exists purely so a later process can skip
// reparsing a file whose content hash it has already seen, complementing
// internal/kernel/parse's in-memory tree cache, which only survives one
// process's lifetime.
package cachestore

import (
	"bytes"
	"encoding/binary"
	"time"

	"go.etcd.io/bbolt"
	"lukechampine.com/blake3"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
)

var (
	bucketEpochs = []byte("epochs")
	bucketTrees  = []byte("trees")
)

// Store is the kernel's persistent cache, backed by a single bbolt file.
// Every stored value is wrapped in a blake3 integrity envelope so a
// truncated or bit-flipped record is detected on read rather than fed
// silently into the pipeline.
type Store struct {
	db *bbolt.DB
}

// Open creates or opens the bbolt file at path, creating the kernel's
// fixed set of buckets if absent.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o644, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, kernelerr.NewFileUnavailable(path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEpochs, bucketTrees} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, kernelerr.Wrap(kernelerr.InvariantViolation, "cachestore: bucket init failed", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// blake3DigestSize is the byte length of blake3.Sum256's output.
const blake3DigestSize = 32

// seal wraps a payload in a blake3 digest envelope: payload bytes followed
// by a 32-byte blake3 sum over those bytes.
func seal(payload []byte) []byte {
	sum := blake3.Sum256(payload)
	out := make([]byte, 0, len(payload)+len(sum))
	out = append(out, payload...)
	out = append(out, sum[:]...)
	return out
}

// unseal verifies and strips an envelope written by seal.
func unseal(envelope []byte) ([]byte, error) {
	if len(envelope) < blake3DigestSize {
		return nil, kernelerr.NewInvariantViolation("cachestore: envelope shorter than its own digest")
	}
	split := len(envelope) - blake3DigestSize
	payload, storedSum := envelope[:split], envelope[split:]
	sum := blake3.Sum256(payload)
	if !bytes.Equal(sum[:], storedSum) {
		return nil, kernelerr.NewHashMismatch("<blake3 envelope>", fmtDigest(sum[:]), "cachestore.unseal")
	}
	return payload, nil
}

func fmtDigest(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}

// EpochCPGHash returns the sealed cpg_hash previously recorded for
// epochID, and whether one was found.
func (s *Store) EpochCPGHash(epochID uint64) (chash.Digest, bool, error) {
	var digest chash.Digest
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketEpochs).Get(epochKey(epochID))
		if raw == nil {
			return nil
		}
		payload, err := unseal(raw)
		if err != nil {
			return err
		}
		if len(payload) != len(digest) {
			return kernelerr.NewInvariantViolation("cachestore: malformed epoch record")
		}
		copy(digest[:], payload)
		found = true
		return nil
	})
	if err != nil {
		return chash.Digest{}, false, err
	}
	return digest, found, nil
}

// PutEpochCPGHash records the sealed cpg_hash for epochID, superseding any
// prior entry.
func (s *Store) PutEpochCPGHash(epochID uint64, digest chash.Digest) error {
	envelope := seal(digest[:])
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEpochs).Put(epochKey(epochID), envelope)
	})
}

// Tree returns the serialized parse tree previously recorded under
// contentHash, and whether one was found. The payload is opaque to the
// store — internal/kernel/parse owns its encoding — and is returned
// unsealed but still envelope-verified, so a corrupted record surfaces as
// an error rather than a silently bad tree.
func (s *Store) Tree(contentHash chash.Digest) ([]byte, bool, error) {
	var payload []byte
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketTrees).Get(contentHash[:])
		if raw == nil {
			return nil
		}
		p, err := unseal(raw)
		if err != nil {
			return err
		}
		payload = append([]byte(nil), p...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return payload, found, nil
}

// PutTree records the serialized parse tree for contentHash, superseding
// any prior entry for that content.
func (s *Store) PutTree(contentHash chash.Digest, payload []byte) error {
	envelope := seal(payload)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTrees).Put(contentHash[:], envelope)
	})
}

func epochKey(epochID uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], epochID)
	return b[:]
}
