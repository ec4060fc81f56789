package allocator

import (
	"fmt"
	"unsafe"
)

// Pool is a fixed-block-size allocator: on initialization it carves its
// region into equal slots and threads them into an intrusive free list
// (the first machine word of each free slot stores the offset of the
// next free slot, noSlot terminating the chain). Allocate snaps a slot
// off the head of the list; Deallocate pushes it back on. This is the Go
// rendition of original_source/Code/Core/Memory/pool_allocator.cpp's
// FreeBlock/freeList pattern, restructured from the teacher's
// PoolAllocatorImpl (internal/allocator/pool.go), which managed multiple
// size classes behind a map and a fallback allocator — machinery this
// spec's single-size-class Pool (§4.3) has no use for.
type Pool struct {
	rgn       region
	slotSize  uintptr
	slotCount uintptr
	freeHead  uintptr // byte offset of the first free slot, or noSlot
	owned     []byte
	parent    *Capability
	guard     affinityGuard
}

const noSlot = ^uintptr(0)

// NewPoolFromOS reserves enough OS memory for count slots of slotSize
// bytes (each at least large enough to hold one uintptr, the intrusive
// free-list link) and readies a Pool over it.
func NewPoolFromOS(slotSize uintptr, count uintptr) (*Pool, error) {
	rgnSize, slotSize, err := poolLayout(slotSize, count)
	if err != nil {
		return nil, err
	}

	data, err := reserveOSMemory(rgnSize)
	if err != nil {
		return nil, err
	}

	p := &Pool{rgn: region{data: data}, slotSize: slotSize, slotCount: count, owned: data}
	p.seed()

	return p, nil
}

// NewPoolFromParent carves count slots of slotSize bytes out of parent.
func NewPoolFromParent(parent *Capability, slotSize uintptr, count uintptr, alignment uintptr) (*Pool, error) {
	rgnSize, slotSize, err := poolLayout(slotSize, count)
	if err != nil {
		return nil, err
	}

	ptr := parent.Alloc(rgnSize, alignment)
	data := unsafe.Slice((*byte)(ptr), rgnSize)

	p := &Pool{rgn: region{data: data}, slotSize: slotSize, slotCount: count, parent: parent}
	p.seed()

	return p, nil
}

// poolLayout validates and rounds slotSize up to a multiple of the
// machine word size — required so every free slot can hold the
// intrusive free-list link (spec.md §4.3: "Initialization requires the
// block size to be a multiple of the machine word size") — and returns
// the total region size to reserve.
func poolLayout(slotSize uintptr, count uintptr) (regionSize uintptr, adjustedSlotSize uintptr, err error) {
	if count == 0 {
		return 0, 0, fmt.Errorf("salloc: Pool slot count must be greater than 0")
	}

	linkSize := unsafe.Sizeof(uintptr(0))
	if slotSize < linkSize {
		slotSize = linkSize
	} else {
		slotSize = (slotSize + linkSize - 1) &^ (linkSize - 1)
	}

	return slotSize * count, slotSize, nil
}

// seed threads every slot into the free list, slot 0 first.
func (p *Pool) seed() {
	for i := uintptr(0); i < p.slotCount; i++ {
		off := i * p.slotSize

		next := off + p.slotSize
		if i == p.slotCount-1 {
			next = noSlot
		}

		*(*uintptr)(unsafe.Pointer(&p.rgn.data[off])) = next
	}

	p.freeHead = 0
}

// Allocate snaps the head slot off the free list and returns it. Panics
// if bytes exceeds the pool's slot size (too-large) or the pool is
// exhausted (out-of-memory), per spec.md §4.3.
func (p *Pool) Allocate(bytes uintptr) unsafe.Pointer {
	p.guard.check()

	if bytes > p.slotSize {
		panic("salloc: Pool.Allocate: requested size exceeds slot size")
	}

	if p.freeHead == noSlot {
		panic("salloc: Pool.Allocate: pool exhausted")
	}

	off := p.freeHead
	p.freeHead = *(*uintptr)(unsafe.Pointer(&p.rgn.data[off]))

	return unsafe.Pointer(&p.rgn.data[off])
}

// Deallocate pushes a slot previously returned by Allocate back onto the
// head of the free list. ptr need not point at the start of its slot —
// spec.md §4.3 snaps any interior pointer down to its owning slot
// (`pointer -= (pointer − base) mod blockSize`), the Go rendition of
// original_source/Code/Core/Memory/pool_allocator.cpp's
// `pointer -= offset % blockSize;`.
func (p *Pool) Deallocate(ptr unsafe.Pointer) {
	p.guard.check()

	if ptr == nil {
		return
	}

	if !p.rgn.contains(ptr) {
		panic("salloc: Pool.Deallocate: pointer does not belong to this pool")
	}

	base := uintptr(unsafe.Pointer(&p.rgn.data[0]))
	off := uintptr(ptr) - base
	off -= off % p.slotSize

	*(*uintptr)(unsafe.Pointer(&p.rgn.data[off])) = p.freeHead
	p.freeHead = off
}

// AllocatePointer adapts Allocate to the Capability.Alloc signature,
// ignoring alignment since a Pool's slots are already word-aligned.
func (p *Pool) AllocatePointer(size uintptr, _ uintptr) unsafe.Pointer {
	return p.Allocate(size)
}

// Capability returns the allocate/deallocate capability for this Pool.
func (p *Pool) Capability() *Capability {
	return &Capability{
		Alloc: p.AllocatePointer,
		Free:  p.Deallocate,
	}
}

// SlotSize reports the (possibly word-size-adjusted) size of each slot.
func (p *Pool) SlotSize() uintptr { return p.slotSize }

// Finalize releases the pool's backing memory: to the OS if it reserved
// its own, or back to its parent capability otherwise.
func (p *Pool) Finalize() error {
	if p.owned == nil {
		if p.parent != nil && len(p.rgn.data) > 0 {
			p.parent.Free(unsafe.Pointer(&p.rgn.data[0]))
			p.parent = nil
		}

		p.rgn.data = nil

		return nil
	}

	owned := p.owned
	p.owned = nil
	p.rgn.data = nil

	return releaseOSMemory(owned)
}
