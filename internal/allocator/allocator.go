// Package allocator provides region-style memory allocators: FreeList,
// Stack and Pool, composable through a shared Capability interface, each
// backed either directly by the OS or by another allocator's capability.
package allocator

import (
	"fmt"
	"unsafe"
)

// Capability is the handle+allocate+deallocate triple every allocator in
// this package exposes, letting one allocator be carved out of another's
// backing storage. This is the Go rendition of spec.md §3's "Allocator
// capability" — the teacher's own Config/Option pattern and global-
// allocator style otherwise shapes this package, but the bootstrap
// MemoryPool/OptimizedAllocator machinery it used those options for is
// specific to Orizon's compiler runtime and has no place here.
type Capability struct {
	Alloc func(size uintptr, alignment uintptr) unsafe.Pointer
	Free  func(p unsafe.Pointer)
}

// Config holds the options for the process-wide default allocator,
// narrowed from the teacher's broader Config/Option set
// (internal/allocator/allocator.go in SeleniaProject-Orizon) to what
// this spec actually calls for: alignment floor and default sizing.
type Config struct {
	DefaultAlignment uintptr
	DefaultSize      uintptr
}

// Option mutates a Config, following the teacher's functional-options
// idiom (WithTracking, WithArenaSize, ...).
type Option func(*Config)

// WithDefaultAlignment sets Config.DefaultAlignment. Initialize and
// Alloc do not read it: an Alloc call with alignment 0 is passed as 0 to
// FreeList.Allocate, which rounds it up to wordSize.
func WithDefaultAlignment(alignment uintptr) Option {
	return func(c *Config) { c.DefaultAlignment = alignment }
}

// WithDefaultSize sets how many bytes the default allocator reserves
// from the OS on Initialize.
func WithDefaultSize(size uintptr) Option {
	return func(c *Config) { c.DefaultSize = size }
}

func defaultConfig() Config {
	return Config{
		DefaultAlignment: unsafe.Alignof(uintptr(0)),
		DefaultSize:      pageSize * 256, // 1 MiB
	}
}

// GlobalAllocator is the process-wide default FreeList, nil until
// Initialize is called. Every package-level convenience function panics
// if it is nil, matching the teacher's own
// panic("Global allocator not initialized") style.
var GlobalAllocator *FreeList

// Initialize reserves GlobalAllocator's backing memory from the OS and
// readies it for use. Calling it twice replaces the previous global
// allocator without finalizing it — callers that care must Finalize the
// old one themselves first.
func Initialize(options ...Option) error {
	cfg := defaultConfig()
	for _, opt := range options {
		opt(&cfg)
	}

	fl, err := NewFreeListFromOS(cfg.DefaultSize)
	if err != nil {
		return fmt.Errorf("salloc: initialize global allocator: %w", err)
	}

	GlobalAllocator = fl

	return nil
}

// Alloc reserves size bytes at the given alignment from GlobalAllocator.
func Alloc(size uint32, alignment uintptr) unsafe.Pointer {
	if GlobalAllocator == nil {
		panic("salloc: global allocator not initialized")
	}

	return GlobalAllocator.Allocate(size, alignment)
}

// Free returns a pointer obtained from Alloc to GlobalAllocator.
func Free(p unsafe.Pointer) {
	if GlobalAllocator == nil {
		panic("salloc: global allocator not initialized")
	}

	GlobalAllocator.Deallocate(p)
}
