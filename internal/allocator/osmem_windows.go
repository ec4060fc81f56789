//go:build windows

package allocator

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// osReserve commits size bytes via VirtualAlloc, mirroring
// original_source/Code/Core/Memory/memory_utils.hpp's Windows path.
func osReserve(size uintptr) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("salloc: VirtualAlloc %d bytes: %w", size, err)
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func osRelease(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	addr := uintptr(unsafe.Pointer(&data[0]))
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("salloc: VirtualFree: %w", err)
	}

	return nil
}
