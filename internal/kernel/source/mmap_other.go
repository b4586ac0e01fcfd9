//go:build !unix

package source

import "os"

// mapReadOnly falls back to a plain read on platforms without a POSIX
// mmap (e.g. plan9). It is not zero-copy there, but presents the same
// read-only, epoch-scoped contract.
func mapReadOnly(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
