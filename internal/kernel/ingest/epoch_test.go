package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	var paths []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func TestNewAssignsFileIDsInOrder(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, map[string]string{
		"a.rs": "fn main() {}",
		"b.rs": "fn helper() {}",
	})
	// Caller is responsible for sorting; simulate canonical sort.
	sorted := []string{filepath.Join(dir, "a.rs"), filepath.Join(dir, "b.rs")}
	_ = paths

	e, err := New(1, sorted, nil)
	require.NoError(t, err)
	defer e.Close()

	require.Len(t, e.Files, 2)
	require.EqualValues(t, 0, e.Files[0].FileID)
	require.EqualValues(t, 1, e.Files[1].FileID)
	require.True(t, e.Sealed())
}

func TestSealIsIdempotentAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.rs": "fn main() {}", "b.rs": "fn helper() {}"})
	sorted := []string{filepath.Join(dir, "a.rs"), filepath.Join(dir, "b.rs")}

	e1, err := New(1, sorted, nil)
	require.NoError(t, err)
	defer e1.Close()

	e2, err := New(2, sorted, nil)
	require.NoError(t, err)
	defer e2.Close()

	require.Equal(t, e1.SealedHash, e2.SealedHash, "identical input must seal to an identical hash")
}

func TestSealChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.rs": "fn main() {}"})
	sorted := []string{filepath.Join(dir, "a.rs")}

	e1, err := New(1, sorted, nil)
	require.NoError(t, err)
	h1 := e1.SealedHash
	e1.Close()

	require.NoError(t, os.WriteFile(sorted[0], []byte("fn main() { x() }"), 0o644))
	e2, err := New(2, sorted, nil)
	require.NoError(t, err)
	defer e2.Close()

	require.NotEqual(t, h1, e2.SealedHash)
}

func TestNewAbortsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.rs": "fn main() {}"})
	sorted := []string{filepath.Join(dir, "a.rs"), filepath.Join(dir, "missing.rs")}

	_, err := New(1, sorted, nil)
	require.Error(t, err)
}

func TestVerifySealDetectsTamper(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.rs": "fn main() {}"})
	sorted := []string{filepath.Join(dir, "a.rs")}

	e, err := New(1, sorted, nil)
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.VerifySeal())

	e.SealedHash[0] ^= 0xFF
	require.Error(t, e.VerifySeal())
}

func TestFilterExcluded(t *testing.T) {
	paths := []string{"src/a.go", "vendor/b.go", "node_modules/c.js", "src/nested/d.go"}
	out, err := FilterExcluded(paths, []string{"vendor/**", "node_modules/**"})
	require.NoError(t, err)
	require.Equal(t, []string{"src/a.go", "src/nested/d.go"}, out)
}
