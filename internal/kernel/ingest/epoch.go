// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest implements spec.md §4.C: the ingestion epoch. It takes a
// pre-sorted, canonicalized file list, maps every file, assigns FileIDs in
// list order, and seals with a hash over the ordered (path, content_hash)
// pairs. Any single file-level failure aborts the whole epoch — there is
// no partial ingestion.
package ingest

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/epoch"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
	"github.com/cpgkernel/cpgk/internal/kernel/metrics"
	"github.com/cpgkernel/cpgk/internal/kernel/source"
)

// Epoch owns every mapped file for one analysis run. It is immutable once
// Seal succeeds; Files is indexed by ir.FileID.
type Epoch struct {
	EpochID    uint64
	Files      []*source.File
	SealedHash chash.Digest

	// Predecessor links to a prior ingestion epoch, if this run is being
	// compared against one (incremental mode). Nil for a first run.
	Predecessor *epoch.Handle[Epoch]

	sealed bool
}

// FilterExcluded removes paths matching any of the doublestar glob
// patterns in excludeGlobs, replacing the teacher's linear ExcludeGlobs
// matcher with full "**" glob semantics.
func FilterExcluded(paths []string, excludeGlobs []string) ([]string, error) {
	if len(excludeGlobs) == 0 {
		return paths, nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		excluded := false
		for _, g := range excludeGlobs {
			ok, err := doublestar.Match(g, p)
			if err != nil {
				return nil, kernelerr.NewInvariantViolation("invalid exclude glob " + g + ": " + err.Error())
			}
			if ok {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, p)
		}
	}
	return out, nil
}

// New builds and seals an ingestion epoch from a lexicographically-sorted,
// canonicalized path list (spec.md §4.C requires the caller to have
// already sorted and canonicalized; New does not re-sort, since silently
// re-sorting an already-sorted-by-contract input would hide a caller bug).
func New(epochID uint64, sortedCanonicalPaths []string, predecessor *epoch.Handle[Epoch]) (*Epoch, error) {
	e := &Epoch{
		EpochID:     epochID,
		Files:       make([]*source.File, len(sortedCanonicalPaths)),
		Predecessor: predecessor,
	}

	for i, p := range sortedCanonicalPaths {
		f, err := source.Open(p, ir.FileID(i))
		if err != nil {
			// Abort: release any files already mapped before returning.
			for j := 0; j < i; j++ {
				_ = e.Files[j].Close()
			}
			return nil, err
		}
		e.Files[i] = f
	}

	e.seal()
	return e, nil
}

// seal computes the epoch hash over the ordered (canonical_path_bytes,
// content_hash) pairs, per spec.md §4.C.
func (e *Epoch) seal() {
	c := chash.New()
	for _, f := range e.Files {
		c.String(f.CanonicalPath)
		c.Digest(f.ContentHash)
	}
	e.SealedHash = c.Sum()
	e.sealed = true
	metrics.IngestFilesTotal.Add(float64(len(e.Files)))
}

// Sealed reports whether the epoch has been sealed. Any attempt to mutate
// Files after this is true is an InvariantViolation.
func (e *Epoch) Sealed() bool { return e.sealed }

// Recompute re-derives the sealed hash from current Files, for spec.md
// I6's "recomputation must match" check. It never mutates e.SealedHash.
func (e *Epoch) Recompute() chash.Digest {
	c := chash.New()
	for _, f := range e.Files {
		c.String(f.CanonicalPath)
		c.Digest(f.ContentHash)
	}
	return c.Sum()
}

// VerifySeal checks I6: the sealed hash must still match a fresh
// recomputation. Returns a HashMismatch error otherwise.
func (e *Epoch) VerifySeal() error {
	got := e.Recompute()
	if got != e.SealedHash {
		return kernelerr.NewHashMismatch(hexDigest(e.SealedHash), hexDigest(got), "ingestion epoch seal")
	}
	return nil
}

// Close releases every mapped file owned by this epoch. Downstream
// holders of a Handle referencing this epoch must Release first.
func (e *Epoch) Close() error {
	var firstErr error
	for _, f := range e.Files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func hexDigest(d chash.Digest) string {
	const hexdigits = "0123456789abcdef"
	buf := make([]byte, len(d)*2)
	for i, b := range d {
		buf[i*2] = hexdigits[b>>4]
		buf[i*2+1] = hexdigits[b&0xf]
	}
	return string(buf)
}
