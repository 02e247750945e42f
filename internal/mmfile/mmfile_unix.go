//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps size bytes of the file at path read-write and shared, so the file
// itself is the arena. The file is created if missing and resized to size;
// existing contents within size are kept. The cleanup function flushes and
// unmaps; calling it more than once is a no-op.
func Map(path string, size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // safe before return; mapping keeps pages alive

	if err := f.Truncate(int64(size)); err != nil {
		return nil, nil, fmt.Errorf("mmfile: resize %s: %w", path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmfile: mmap %s: %w", path, err)
	}

	cleanup := func() error {
		if data == nil {
			return nil
		}
		if err := unix.Msync(data, unix.MS_SYNC); err != nil {
			return err
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, cleanup, nil
}
