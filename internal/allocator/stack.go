package allocator

import (
	"fmt"
	"unsafe"
)

// Stack is a bump-pointer allocator: Allocate always grows from the
// current offset, and Deallocate rolls the offset back to any marker at
// or below it, releasing everything allocated after that marker — LIFO
// order. A marker beyond the current offset is silently ignored
// (spec.md §4.2), the Go
// rendition of original_source/Code/Core/Memory/stack_allocator.cpp's
// marker/offset bookkeeping, restructured from the teacher's
// ArenaAllocatorImpl (internal/allocator/arena.go) which tracked
// peak-usage/fragmentation stats this spec has no use for.
type Stack struct {
	rgn     region
	offset  uintptr
	owned   []byte
	parent  *Capability
	guard   affinityGuard
}

// NewStackFromOS reserves size bytes directly from the OS and readies a
// Stack over it.
func NewStackFromOS(size uintptr) (*Stack, error) {
	if size == 0 {
		return nil, fmt.Errorf("salloc: Stack size must be greater than 0")
	}

	data, err := reserveOSMemory(size)
	if err != nil {
		return nil, err
	}

	return &Stack{rgn: region{data: data}, owned: data}, nil
}

// NewStackFromParent carves size bytes out of parent and readies a Stack
// over that sub-range.
func NewStackFromParent(parent *Capability, size uintptr, alignment uintptr) (*Stack, error) {
	if size == 0 {
		return nil, fmt.Errorf("salloc: Stack size must be greater than 0")
	}

	p := parent.Alloc(size, alignment)
	data := unsafe.Slice((*byte)(p), size)

	return &Stack{rgn: region{data: data}, parent: parent}, nil
}

// Marker identifies a point in a Stack's allocation history that
// Deallocate can roll back to.
type Marker uintptr

// Mark returns a Marker for the stack's current offset, to be passed to
// a later Deallocate call.
func (s *Stack) Mark() Marker {
	return Marker(s.offset)
}

// Allocate reserves bytes bytes aligned to alignment by bumping the
// stack's offset. Panics if the stack has no room left.
func (s *Stack) Allocate(bytes uintptr, alignment uintptr) unsafe.Pointer {
	s.guard.check()

	if bytes == 0 {
		panic("salloc: Stack.Allocate: bytes must be greater than 0")
	}

	if alignment == 0 || alignment&(alignment-1) != 0 {
		panic("salloc: Stack.Allocate: alignment must be a power of two")
	}

	base := uintptr(unsafe.Pointer(&s.rgn.data[0]))
	current := base + s.offset
	aligned := (current + alignment - 1) &^ (alignment - 1)
	pad := aligned - current

	if s.offset+pad+bytes > s.rgn.capacity() {
		panic("salloc: Stack.Allocate: out of memory")
	}

	s.offset += pad
	p := unsafe.Pointer(&s.rgn.data[s.offset])
	s.offset += bytes

	return p
}

// Deallocate rolls the stack back to marker if marker is at or below the
// current offset, releasing every allocation made after it; a marker
// beyond the current offset is silently ignored rather than treated as
// an error (spec.md §4.2).
func (s *Stack) Deallocate(marker Marker) {
	s.guard.check()

	if uintptr(marker) > s.offset {
		return
	}

	s.offset = uintptr(marker)
}

// AllocatePointer adapts Allocate to the Capability.Alloc signature.
func (s *Stack) AllocatePointer(size uintptr, alignment uintptr) unsafe.Pointer {
	return s.Allocate(size, alignment)
}

// Capability returns the allocate/deallocate-to-top capability for this
// Stack. Rolling back to the marker captured at the time of the
// matching Alloc call is the caller's responsibility — there is no
// pointer-addressed free for a Stack, only marker rollback, so
// Capability.Free here is a permanent no-op; composed children should
// call Deallocate(marker) directly instead.
func (s *Stack) Capability() *Capability {
	return &Capability{
		Alloc: s.AllocatePointer,
		Free:  func(unsafe.Pointer) {},
	}
}

// Reset rolls the stack back to empty.
func (s *Stack) Reset() {
	s.offset = 0
}

// Finalize releases the stack's backing memory: to the OS if it
// reserved its own, or back to its parent capability otherwise.
func (s *Stack) Finalize() error {
	if s.owned == nil {
		if s.parent != nil && len(s.rgn.data) > 0 {
			s.parent.Free(unsafe.Pointer(&s.rgn.data[0]))
			s.parent = nil
		}

		s.rgn.data = nil

		return nil
	}

	owned := s.owned
	s.owned = nil
	s.rgn.data = nil

	return releaseOSMemory(owned)
}
