package parse

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
)

// fakeTreeStore is an in-memory stand-in for cachestore.Store, satisfying
// persistentTreeStore without this package depending on cachestore.
type fakeTreeStore struct {
	trees map[chash.Digest][]byte
	gets  int
}

func newFakeTreeStore() *fakeTreeStore {
	return &fakeTreeStore{trees: make(map[chash.Digest][]byte)}
}

func (f *fakeTreeStore) Tree(contentHash chash.Digest) ([]byte, bool, error) {
	f.gets++
	payload, ok := f.trees[contentHash]
	return payload, ok, nil
}

func (f *fakeTreeStore) PutTree(contentHash chash.Digest, payload []byte) error {
	f.trees[contentHash] = payload
	return nil
}

func TestTreeCacheReusesOnMatchingHash(t *testing.T) {
	cache := NewTreeCache()
	src := []byte("package main\nfunc main() {}\n")
	h := sha256.Sum256(src)

	t1, err := cache.Get(context.Background(), 0, LangGo, h, src)
	require.NoError(t, err)
	t2, err := cache.Get(context.Background(), 0, LangGo, h, src)
	require.NoError(t, err)

	require.Same(t, t1, t2, "identical (file_id, content_hash) must reuse the cached tree")
	require.Equal(t, 1, cache.Len())
}

func TestTreeCacheReparsesOnChangedHash(t *testing.T) {
	cache := NewTreeCache()
	src1 := []byte("package main\nfunc a() {}\n")
	src2 := []byte("package main\nfunc b() {}\n")

	t1, err := cache.Get(context.Background(), 0, LangGo, sha256.Sum256(src1), src1)
	require.NoError(t, err)
	t2, err := cache.Get(context.Background(), 0, LangGo, sha256.Sum256(src2), src2)
	require.NoError(t, err)

	require.NotSame(t, t1, t2)
}

func TestPersistentTreeCacheServesAcrossFreshCaches(t *testing.T) {
	store := newFakeTreeStore()
	src := []byte("package main\nfunc main() {}\n")
	h := sha256.Sum256(src)

	cache1 := NewPersistentTreeCache(store)
	t1, err := cache1.Get(context.Background(), 0, LangGo, h, src)
	require.NoError(t, err)
	require.Len(t, store.trees, 1, "a fresh parse must be persisted")

	// A brand-new process starts with an empty in-memory cache, but the
	// same persistent store behind it.
	cache2 := NewPersistentTreeCache(store)
	t2, err := cache2.Get(context.Background(), 0, LangGo, h, src)
	require.NoError(t, err)

	require.NotSame(t, t1, t2, "each process decodes its own copy")
	require.Equal(t, t1.Entries, t2.Entries, "decoded tree must match the original")
	require.Equal(t, 1, cache2.Len(), "the persistent hit seeds the in-memory map")
}

func TestPersistentTreeCacheMissFallsBackToParse(t *testing.T) {
	store := newFakeTreeStore()
	src := []byte("package main\nfunc main() {}\n")
	h := sha256.Sum256(src)

	cache := NewPersistentTreeCache(store)
	tree, err := cache.Get(context.Background(), 0, LangGo, h, src)
	require.NoError(t, err)
	require.NotNil(t, tree)
	require.Equal(t, 1, store.gets, "a cold store is still consulted once before reparsing")
}

func TestEpochBuildAndSealDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeGoFiles(t, dir, map[string]string{
		"a.go": "package main\nfunc a() {}\n",
		"b.go": "package main\nfunc b() { a() }\n",
	})
	sorted := []string{filepath.Join(dir, "a.go"), filepath.Join(dir, "b.go")}

	ie, err := ingest.New(1, sorted, nil)
	require.NoError(t, err)
	defer ie.Close()

	pe1, err := Build(context.Background(), ie, NewTreeCache())
	require.NoError(t, err)
	require.True(t, pe1.Sealed())

	pe2, err := Build(context.Background(), ie, NewTreeCache())
	require.NoError(t, err)

	require.Equal(t, pe1.SealedHash, pe2.SealedHash)
}

func writeGoFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}
