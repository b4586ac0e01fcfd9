package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenComputesContentHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("fn main() {}"), 0o644))

	f, err := Open(path, 0)
	require.NoError(t, err)
	defer f.Close()

	require.False(t, f.ContentHash.IsZero())
	require.Equal(t, "fn main() {}", string(f.Bytes))

	f2, err := Open(path, 0)
	require.NoError(t, err)
	defer f2.Close()
	require.Equal(t, f.ContentHash, f2.ContentHash, "identical content must hash identically")
}

func TestOpenEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f, err := Open(path, 0)
	require.NoError(t, err)
	defer f.Close()
	require.Empty(t, f.Bytes)
}

func TestOpenMissingFileIsFileUnavailable(t *testing.T) {
	_, err := Open("/no/such/path/ever", 0)
	require.Error(t, err)
}
