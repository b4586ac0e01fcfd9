package cachestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEpochCPGHashRoundTrip(t *testing.T) {
	s := openTestStore(t)

	var digest chash.Digest
	for i := range digest {
		digest[i] = byte(0xAA)
	}
	require.NoError(t, s.PutEpochCPGHash(42, digest))

	got, found, err := s.EpochCPGHash(42)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, digest, got)

	_, found, err = s.EpochCPGHash(43)
	require.NoError(t, err)
	require.False(t, found)
}

func TestTreeRoundTrip(t *testing.T) {
	s := openTestStore(t)

	var digest chash.Digest
	for i := range digest {
		digest[i] = byte(i)
	}
	payload := []byte("serialized syntax tree bytes")
	require.NoError(t, s.PutTree(digest, payload))

	got, found, err := s.Tree(digest)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, payload, got)

	var other chash.Digest
	other[0] = 0xFF
	_, found, err = s.Tree(other)
	require.NoError(t, err)
	require.False(t, found)
}

func TestTreeOverwritesPriorEntry(t *testing.T) {
	s := openTestStore(t)

	var digest chash.Digest
	digest[0] = 1
	require.NoError(t, s.PutTree(digest, []byte("first")))
	require.NoError(t, s.PutTree(digest, []byte("second")))

	got, found, err := s.Tree(digest)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("second"), got)
}

func TestUnsealDetectsCorruption(t *testing.T) {
	envelope := seal([]byte("hello world"))
	envelope[0] ^= 0xFF

	_, err := unseal(envelope)
	require.Error(t, err)
}

func TestUnsealRejectsShortEnvelope(t *testing.T) {
	_, err := unseal([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	s1, err := Open(path)
	require.NoError(t, err)
	var digest chash.Digest
	digest[0] = 7
	require.NoError(t, s1.PutTree(digest, []byte("payload")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, found, err := s2.Tree(digest)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("payload"), got)
}
