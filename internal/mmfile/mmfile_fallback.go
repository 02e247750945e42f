//go:build !unix

package mmfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Map reads the file into memory when mmap is not available. The cleanup
// function writes the buffer back to path.
func Map(path string, size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid size %d", size)
	}
	data := make([]byte, size)
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, err
	}
	copy(data, existing)

	done := false
	cleanup := func() error {
		if done {
			return nil
		}
		done = true
		return os.WriteFile(path, data, 0o644)
	}
	return data, cleanup, nil
}
