package allocator

// pageSize is the granularity of OS-backed region reservation. It mirrors
// original_source/Code/Core/Memory/byte.hpp's GET_PAGE_SIZE(), fixed at
// the common 4 KiB value rather than queried from the OS, since every
// supported target page-aligns on at least this boundary.
const pageSize = 4096

// alignUpPage rounds size up to the next multiple of pageSize, the Go
// rendition of byte.hpp's align_memory used before every OS reservation.
func alignUpPage(size uintptr) uintptr {
	return (size + pageSize - 1) &^ (pageSize - 1)
}

// reserveOSMemory asks the OS for at least size bytes of zeroed, readable
// and writable memory, rounded up to a whole number of pages, and returns
// the full reserved slice. The actual syscall is build-tag split across
// osmem_unix.go/osmem_windows.go exactly as the teacher splits
// internal/runtime/asyncio's zero-copy file helpers by GOOS.
func reserveOSMemory(size uintptr) ([]byte, error) {
	return osReserve(alignUpPage(size))
}

// releaseOSMemory returns memory obtained from reserveOSMemory to the OS.
func releaseOSMemory(data []byte) error {
	return osRelease(data)
}
