package allocator

import (
	"fmt"
	"log"
	"unsafe"
)

// FreeList is a region-backed allocator that tracks free space with a
// size-keyed red-black tree (freeTree), serving best-fit allocations and
// eagerly coalescing adjacent free blocks on deallocate. It is the Go
// rendition of original_source/Code/Core/Memory/freelist_allocator.cpp
// and its Serrate sibling, restructured around the offset-based header
// and tree from header.go/rbtree.go.
type FreeList struct {
	rgn     region
	tree    freeTree
	owned   []byte // non-nil when this FreeList reserved its own OS memory
	parent  *Capability
	guard   affinityGuard
}

// NewFreeListFromOS reserves size bytes directly from the OS (rounded up
// to a whole number of pages) and initializes a FreeList over it,
// mirroring FreeListAllocator::initialize's OS-backed overload.
func NewFreeListFromOS(size uintptr) (*FreeList, error) {
	if size == 0 {
		return nil, fmt.Errorf("salloc: FreeList size must be greater than 0")
	}

	data, err := reserveOSMemory(size)
	if err != nil {
		return nil, err
	}

	fl := &FreeList{rgn: region{data: data}, owned: data}
	fl.tree = newFreeTree(&fl.rgn)
	fl.seed()

	return fl, nil
}

// NewFreeListFromParent carves size bytes out of parent (any Capability —
// another FreeList, a Stack, or a Pool) and initializes a FreeList over
// that sub-range, mirroring the parent-backed initialize overload.
func NewFreeListFromParent(parent *Capability, size uintptr, alignment uintptr) (*FreeList, error) {
	if size == 0 {
		return nil, fmt.Errorf("salloc: FreeList size must be greater than 0")
	}

	p := parent.Alloc(size, alignment)

	data := unsafe.Slice((*byte)(p), size)

	fl := &FreeList{rgn: region{data: data}, parent: parent}
	fl.tree = newFreeTree(&fl.rgn)
	fl.seed()

	return fl, nil
}

// seed installs the single free block spanning the whole region, the
// state a freshly initialized FreeList starts in.
func (f *FreeList) seed() {
	root := f.rgn.header(0)
	*root = blockHeader{}
	root.previous = noOffset
	root.size = uint32(f.rgn.capacity() - headerSize)
	root.free = true
	f.tree.insert(root, false)
}

// Allocate reserves at least bytes, aligned to alignment (rounded up to a
// power of two no smaller than wordSize), and returns a pointer to the
// payload. Panics if no free
// block is large enough — spec.md treats exhaustion as a fatal,
// non-recoverable condition at the allocator boundary.
func (f *FreeList) Allocate(bytes uint32, alignment uintptr) unsafe.Pointer {
	f.guard.check()

	if bytes == 0 {
		panic("salloc: FreeList.Allocate: bytes must be greater than 0")
	}

	alignment = normalizeAlignment(alignment)
	bytes = alignUpWord(bytes)

	// Fast path: word-aligned requests need no slack, since a freshly
	// carved block's payload is already word-aligned (split always
	// starts a new block immediately after a header, and every header
	// sits at a multiple of the word size, since headerSize and every
	// rounded byte count are word-size multiples). The Serrate
	// variant of freelist_allocator.cpp special-cases this instead of
	// always reserving the conservative bytes+alignment-1 bound.
	searchSize := bytes
	if alignment > wordSize {
		searchSize = bytes + uint32(alignment) - 1
	}

	node := f.tree.find(searchSize)

	f.tree.remove(node)

	node = f.tree.split(node, bytes, alignment)

	node.free = false

	return f.rgn.payloadPointer(node)
}

// wordSize is the rounding granularity spec.md §4.4.2 step 1 normalizes
// both the requested byte count and the requested alignment against.
const wordSize = 4

// normalizeAlignment rounds alignment up to the next power of two, with
// a floor of wordSize — align_up_pow2(alignment, word size).
func normalizeAlignment(alignment uintptr) uintptr {
	if alignment < wordSize {
		return wordSize
	}

	if alignment&(alignment-1) == 0 {
		return alignment
	}

	p := uintptr(1)
	for p < alignment {
		p <<= 1
	}

	return p
}

func alignUpWord(bytes uint32) uint32 {
	return (bytes + wordSize - 1) &^ (wordSize - 1)
}

// Deallocate returns a pointer previously handed out by Allocate to the
// free tree, coalescing it with free physical neighbors.
func (f *FreeList) Deallocate(p unsafe.Pointer) {
	f.guard.check()

	if p == nil {
		return
	}

	if !f.rgn.contains(p) {
		panic("salloc: FreeList.Deallocate: pointer does not belong to this region")
	}

	node := f.rgn.headerFromPayload(p)
	node.free = true

	f.tree.insert(node, true)
}

// Capability returns the allocate/deallocate capability for this
// FreeList, suitable for handing to a child allocator's *FromParent
// constructor.
func (f *FreeList) Capability() *Capability {
	return &Capability{
		Alloc: f.Allocate32,
		Free:  f.Deallocate,
	}
}

// Allocate32 adapts Allocate to the Capability.Alloc signature, which
// takes a uintptr size to stay interface-compatible with Stack/Pool.
func (f *FreeList) Allocate32(size uintptr, alignment uintptr) unsafe.Pointer {
	return f.Allocate(uint32(size), alignment)
}

// Copy returns a new FreeList of the same capacity, initialized from the
// same source f was initialized from — re-reserving from the OS, or
// re-carving from the same parent — rather than copying live block
// contents. Both original_source variants'
// copy() call finalize() then initialize() against the same source;
// no free-tree state is replayed.
func (f *FreeList) Copy() (*FreeList, error) {
	if f.owned != nil {
		return NewFreeListFromOS(uintptr(len(f.owned)))
	}

	return NewFreeListFromParent(f.parent, f.rgn.capacity(), unsafe.Alignof(uintptr(0)))
}

// Move transfers ownership of fl's backing storage into a new value and
// leaves fl finalized, avoiding any data movement.
func (f *FreeList) Move() *FreeList {
	moved := &FreeList{rgn: f.rgn, owned: f.owned, parent: f.parent}
	moved.tree = newFreeTree(&moved.rgn)
	moved.tree.root = f.tree.root
	moved.tree.firstOffset = f.tree.firstOffset

	f.rgn.data = nil
	f.tree.root = noOffset
	f.owned = nil

	return moved
}

// Finalize releases fl's backing memory: straight back to the OS if fl
// reserved it itself, or back to the parent capability it was carved
// from otherwise.
func (f *FreeList) Finalize() error {
	if f.owned == nil {
		if f.parent != nil && len(f.rgn.data) > 0 {
			f.parent.Free(unsafe.Pointer(&f.rgn.data[0]))
			f.parent = nil
		}

		f.rgn.data = nil

		return nil
	}

	owned := f.owned
	f.owned = nil
	f.rgn.data = nil
	f.tree.root = noOffset

	return releaseOSMemory(owned)
}

// PrintList writes the physical block chain in `size(state)->...` form
// through the standard log package — a diagnostic, never called from
// Allocate/Deallocate.
func (f *FreeList) PrintList() {
	var sb []byte

	current := f.rgn.header(f.tree.firstOffset)

	for current != nil {
		state := "reserved"
		if current.free {
			state = "free"
		}

		sb = fmt.Appendf(sb, "%d(%s)", current.size, state)

		next := f.tree.nextOf(current)
		if next != nil {
			sb = append(sb, "->"...)
		}

		current = next
	}

	log.Print(string(sb))
}

// PrintTree writes the free tree in the canonical indented form.
func (f *FreeList) PrintTree() {
	f.tree.printTree()
}
