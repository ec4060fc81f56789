package allocator

import (
	"testing"
	"unsafe"
)

// TestGlobalAllocator exercises Initialize/Alloc/Free the way
// SeleniaProject-Orizon's allocator_test.go exercises its own global
// allocator: write a recognizable byte pattern through the returned
// pointer and read it back.
func TestGlobalAllocator(t *testing.T) {
	if err := Initialize(WithDefaultSize(64 * 1024)); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	t.Run("BasicAllocation", func(t *testing.T) {
		p := Alloc(1024, 8)
		if p == nil {
			t.Fatal("Alloc returned nil")
		}

		data := (*[1024]byte)(p)
		for i := range data {
			data[i] = byte(i % 256)
		}

		for i := range data {
			if data[i] != byte(i%256) {
				t.Errorf("data corruption at index %d", i)
			}
		}

		Free(p)
	})

	t.Run("PanicsWhenUninitialized", func(t *testing.T) {
		saved := GlobalAllocator
		GlobalAllocator = nil

		defer func() {
			GlobalAllocator = saved

			if recover() == nil {
				t.Fatal("expected panic when global allocator is nil")
			}
		}()

		Alloc(8, 8)
	})
}

// TestCapabilityComposition reproduces scenario S5 from spec.md §8: an
// OS-backed FreeList of 1 MiB backs a Pool allocator of (count=10,
// size=128), which in turn backs a 64-byte Stack — three allocators deep
// — finalized bottom-up.
func TestCapabilityComposition(t *testing.T) {
	freelist, err := NewFreeListFromOS(1024 * 1024)
	if err != nil {
		t.Fatalf("NewFreeListFromOS: %v", err)
	}

	pool, err := NewPoolFromParent(freelist.Capability(), 128, 10, unsafe.Alignof(uintptr(0)))
	if err != nil {
		t.Fatalf("NewPoolFromParent: %v", err)
	}

	stack, err := NewStackFromParent(pool.Capability(), 64, unsafe.Alignof(uintptr(0)))
	if err != nil {
		t.Fatalf("NewStackFromParent: %v", err)
	}

	p := stack.Allocate(32, 8)
	*(*int64)(p) = 0x1234

	if got := *(*int64)(p); got != 0x1234 {
		t.Fatalf("stack payload corrupted: got %x", got)
	}

	if err := stack.Finalize(); err != nil {
		t.Fatalf("stack.Finalize: %v", err)
	}

	if err := pool.Finalize(); err != nil {
		t.Fatalf("pool.Finalize: %v", err)
	}

	if err := freelist.Finalize(); err != nil {
		t.Fatalf("freelist.Finalize: %v", err)
	}
}
