//go:build unix

package source

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapReadOnly memory-maps path read-only using mmap(2), returning the
// mapped slice and a closer that unmaps it. Zero-length files cannot be
// mmap'd (mmap rejects a zero-length mapping), so they are special-cased
// to an empty, no-op-close slice.
func mapReadOnly(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, func() error { return nil }, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	closer := func() error {
		return unix.Munmap(data)
	}
	return data, closer, nil
}
