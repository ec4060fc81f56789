// Package allocator implements region-style memory allocators for code
// that wants explicit control over allocation lifetime instead of
// relying on the garbage collector: a FreeList allocator for general
// best-fit allocation with coalescing, a Stack allocator for LIFO
// scratch memory, and a Pool allocator for fixed-size slot recycling.
// Any of the three can be backed directly by the OS or carved out of
// another allocator's Capability, so they compose into hierarchies the
// same way the underlying C++ library (Merloran/Structures-Allocators-
// Library) does.
//
// All three allocators are single-threaded: they carry no locks or
// atomics on the allocate/deallocate path, and composing allocators
// across goroutines is the caller's responsibility to avoid. Setting
// debugAffinity to true turns that requirement into an enforced,
// panicking check.
package allocator
