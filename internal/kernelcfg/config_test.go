package kernelcfg

import (
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.EqualValues(t, 10, cfg.Kernel.MaxTaintDepth)
	require.EqualValues(t, 3, cfg.Kernel.PointerContextK)
	require.False(t, cfg.Kernel.Parallel)
	require.EqualValues(t, 0, cfg.Kernel.ThreadCount)
	require.NotEmpty(t, cfg.Kernel.SnapshotDir)
}

func TestLoadConfigMissingExplicitFileIsError(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "does-not-exist.yaml"))
	require.Error(t, err) // explicit path that doesn't exist is a real error
	require.Nil(t, cfg)
}

func TestSaveThenLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	cfg := DefaultConfig()
	cfg.Kernel.MaxTaintDepth = 42
	cfg.Kernel.Parallel = true
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.EqualValues(t, 42, loaded.Kernel.MaxTaintDepth)
	require.True(t, loaded.Kernel.Parallel)
}

func TestLoadConfigRejectsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("version: \"99\"\nkernel:\n  max_taint_depth: 5\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestGlobalFlagsMergeOverridesConfig(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	g := RegisterGlobalFlags(fs)
	require.NoError(t, fs.Parse([]string{"--parallel", "--max-taint-depth=20", "--snapshot-dir=/tmp/snaps"}))

	cfg := DefaultConfig()
	g.Merge(cfg)

	require.True(t, cfg.Kernel.Parallel)
	require.EqualValues(t, 20, cfg.Kernel.MaxTaintDepth)
	require.Equal(t, "/tmp/snaps", cfg.Kernel.SnapshotDir)
	// Unset flags must not clobber existing config values.
	require.EqualValues(t, 3, cfg.Kernel.PointerContextK)
}
