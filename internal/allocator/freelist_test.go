package allocator

import (
	"testing"
	"unsafe"
)

const (
	scenarioCapacity = 10 * 1024 // spec.md §8 scenarios use a 10 KiB region.
)

// newScenarioFreeList builds a FreeList over a buffer of exactly
// scenarioCapacity bytes — spec.md §8's scenarios fix "allocator
// capacity = 10 KiB" precisely, which an OS-backed allocator can't
// guarantee since reserveOSMemory rounds up to page granularity.
func newScenarioFreeList(t *testing.T) *FreeList {
	t.Helper()

	data := make([]byte, scenarioCapacity)

	fl := &FreeList{rgn: region{data: data}}
	fl.tree = newFreeTree(&fl.rgn)
	fl.seed()

	return fl
}

// TestFreeListScenarioS1 reproduces spec.md §8 scenario S1: four
// allocations followed by deallocation in reverse order leaves a single
// free block covering the whole region minus one header.
func TestFreeListScenarioS1(t *testing.T) {
	fl := newScenarioFreeList(t)

	sizes := []uint32{300, 128, 80, 250}

	ptrs := make([]unsafe.Pointer, len(sizes))
	for i, s := range sizes {
		ptrs[i] = fl.Allocate(s, 8)
	}

	for i := len(ptrs) - 1; i >= 0; i-- {
		fl.Deallocate(ptrs[i])
	}

	if fl.tree.leftOf(fl.tree.rootHeader()) != nil || fl.tree.rightOf(fl.tree.rootHeader()) != nil {
		t.Fatalf("expected a single free block after round-trip, tree has more than one node")
	}

	root := fl.tree.rootHeader()

	wantSize := uint32(scenarioCapacity - headerSize)
	if root.size != wantSize {
		t.Fatalf("root size = %d, want %d", root.size, wantSize)
	}
}

// TestFreeListScenarioS2 reproduces spec.md §8 scenario S2: an
// over-aligned request returns a pointer aligned to 64 and a header sized
// exactly 300. The block is the region's first, so it has no previous
// block to take the padding; that part of the scenario is not checked.
func TestFreeListScenarioS2(t *testing.T) {
	fl := newScenarioFreeList(t)

	p := fl.Allocate(300, 64)

	if uintptr(p)%64 != 0 {
		t.Fatalf("pointer %p is not 64-aligned", p)
	}

	node := fl.rgn.headerFromPayload(p)
	if node.size != 300 {
		t.Fatalf("node.size = %d, want 300", node.size)
	}
}

// TestFreeListScenarioS3 reproduces spec.md §8 scenario S3: filling the
// region with 16 fixed-size allocations, freeing even indices then odd
// indices, and checking the tree coalesces back to a single block.
func TestFreeListScenarioS3(t *testing.T) {
	// 16*(256+24) = 4480, comfortably under the 10 KiB scenario capacity.
	fl := newScenarioFreeList(t)

	const count = 16

	ptrs := make([]unsafe.Pointer, count)
	for i := range ptrs {
		ptrs[i] = fl.Allocate(256, 8)
	}

	for i := 0; i < count; i += 2 {
		fl.Deallocate(ptrs[i])
	}

	for i := 1; i < count; i += 2 {
		fl.Deallocate(ptrs[i])
	}

	root := fl.tree.rootHeader()
	if root == nil {
		t.Fatal("expected a free block after coalescing, tree is empty")
	}

	if fl.tree.leftOf(root) != nil || fl.tree.rightOf(root) != nil {
		t.Fatal("expected exactly one free block after both passes")
	}
}

// TestFreeListScenarioS4 reproduces spec.md §8 scenario S4: requesting
// more than the region can ever hold panics rather than returning a
// partially-updated allocator.
func TestFreeListScenarioS4(t *testing.T) {
	fl := newScenarioFreeList(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic allocating more than the region's capacity")
		}
	}()

	fl.Allocate(scenarioCapacity, 8)
}

func TestFreeListAlignmentProperty(t *testing.T) {
	fl := newScenarioFreeList(t)

	alignments := []uintptr{8, 16, 32, 64, 128}

	for _, a := range alignments {
		p := fl.Allocate(96, a)
		if uintptr(p)%a != 0 {
			t.Errorf("alignment %d: pointer %p not aligned", a, p)
		}

		fl.Deallocate(p)
	}
}

func TestFreeListDeallocateRejectsForeignPointer(t *testing.T) {
	fl := newScenarioFreeList(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic deallocating a pointer outside the region")
		}
	}()

	var stray int

	fl.Deallocate(unsafe.Pointer(&stray))
}

func TestFreeListDeallocateNilIsNoop(t *testing.T) {
	fl := newScenarioFreeList(t)

	fl.Deallocate(nil)
}
