//go:build linux || darwin || freebsd || netbsd || openbsd

package allocator

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// osReserve maps size anonymous, private pages directly from the kernel,
// the unix counterpart to original_source's VirtualAlloc path.
func osReserve(size uintptr) ([]byte, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("salloc: mmap %d bytes: %w", size, err)
	}

	return data, nil
}

func osRelease(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("salloc: munmap: %w", err)
	}

	return nil
}
