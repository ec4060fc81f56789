package allocator

import "unsafe"

// nodeColor is the red-black tree color of a free-block header.
type nodeColor uint8

const (
	red nodeColor = iota
	black
)

// blockOffset is a region-relative byte offset. It is the Go rendition of
// the packed header's 36-bit compressed pointers (spec.md §3, §9): rather
// than bit-packing five 36-bit fields into 24 bytes, each neighbor is a
// plain uint32 offset from the start of the owning region. That caps a
// single region at 4 GiB instead of the bit-packed design's 64 GiB, which
// this module accepts (SPEC_FULL.md §5, decision 1) since nothing in this
// spec's scenarios approaches that size.
//
// noOffset is the sentinel for "no neighbor". The original C++ design
// encodes null as offset 0 (the region start) and disambiguates by
// comparing the computed address against the region base pointer, which
// means the header physically at the region's first byte can never be
// pointed at by another node's parent/left/right/previous field (spec.md
// §3: "the first header is never a tree node candidate for these
// roles"). Reserving a dedicated sentinel distinct from a legitimate
// offset removes that restriction outright: the first header in a region
// participates in the tree and the physical chain exactly like any other
// block.
const noOffset blockOffset = ^blockOffset(0)

type blockOffset uint32

// blockHeader is the fixed-size record placed at the start of every block
// — free or reserved — that a FreeList allocator tracks. It carries the
// red-black tree's parent/left/right links, the physical chain's
// "previous" link (the "next" link is never stored: it is recomputed from
// size, per spec.md's packed-header table), the payload size, and the
// three status bits from spec.md's field table. One spare byte documents
// the packed design's 9 reserved bits without needing to use them.
type blockHeader struct {
	parent   blockOffset
	left     blockOffset
	right    blockOffset
	previous blockOffset
	size     uint32
	color    nodeColor
	free     bool
	nextSet  bool
	_        byte // reserved, mirrors the packed header's spare bits
}

const headerSize = unsafe.Sizeof(blockHeader{})

// reset clears a header's tree links (parent/left/right to noOffset) and
// colors it red before it is (re)inserted into the tree; size, previous
// and the status flags are left as they are. It matches RBTree::insert's node->reset() in
// original_source/Serrate/Structures/rb_tree.cpp.
func (h *blockHeader) reset() {
	h.parent = noOffset
	h.left = noOffset
	h.right = noOffset
	h.color = red
}

// region is the bounded, typed view over a raw byte range that turns a
// blockOffset into a *blockHeader — the "typed arena view" spec.md's
// Design Notes recommend for a memory-safe target. It never outlives the
// backing slice and never reslices it, so every header pointer it hands
// out stays valid for the region's lifetime.
type region struct {
	data []byte
}

func (r *region) capacity() uintptr {
	return uintptr(len(r.data))
}

// header resolves an offset to a header pointer, or nil for noOffset.
func (r *region) header(off blockOffset) *blockHeader {
	if off == noOffset {
		return nil
	}

	return (*blockHeader)(unsafe.Pointer(&r.data[off]))
}

// offsetOf computes the region-relative offset of a header obtained from
// this region. Passing a header from a different region is a programming
// error and its result is meaningless.
func (r *region) offsetOf(h *blockHeader) blockOffset {
	if h == nil {
		return noOffset
	}

	base := uintptr(unsafe.Pointer(&r.data[0]))

	return blockOffset(uintptr(unsafe.Pointer(h)) - base)
}

// payload returns the byte slice following h's header, covering exactly
// h.size bytes.
func (r *region) payload(h *blockHeader) []byte {
	start := int(r.offsetOf(h)) + int(headerSize)
	end := start + int(h.size)

	return r.data[start:end:end]
}

// payloadPointer is the pointer form of payload, handed to allocate's
// caller.
func (r *region) payloadPointer(h *blockHeader) unsafe.Pointer {
	return unsafe.Pointer(&r.data[r.offsetOf(h)+blockOffset(headerSize)])
}

// headerFromPayload recovers the header given a pointer previously
// returned by payloadPointer, mirroring
// FreeListAllocator::deallocate's `pointer - sizeof(RBNode)`.
func (r *region) headerFromPayload(p unsafe.Pointer) *blockHeader {
	base := uintptr(unsafe.Pointer(&r.data[0]))
	off := uintptr(p) - base - headerSize

	return (*blockHeader)(unsafe.Pointer(&r.data[off]))
}

// contains reports whether p falls within this region's backing storage.
func (r *region) contains(p unsafe.Pointer) bool {
	base := uintptr(unsafe.Pointer(&r.data[0]))
	end := base + r.capacity()
	addr := uintptr(p)

	return addr >= base && addr < end
}
