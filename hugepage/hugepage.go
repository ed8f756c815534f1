// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hugepage provides an mmap-backed slot allocator for spsc queues.
//
// Storage comes from anonymous private mappings, optionally backed by huge
// pages. Requests round up to a whole number of pages and the allocator
// reports the rounded size, so a queue built on it uses every byte of the
// mapping:
//
//	a, err := hugepage.New[Tick](hugepage.Options{Huge: true, Populate: true})
//	if err != nil {
//	    return err
//	}
//	q, err := spsc.New[Tick](1024, spsc.WithAllocator[Tick](a))
//	// q.Cap() may be larger than 1024
//
// Mapped memory is not scanned by the garbage collector, so element types
// must not contain pointers (including strings, slices, maps, channels,
// funcs and interfaces). New rejects such types with [ErrPointerElem].
//
// Only Linux is supported; elsewhere New returns [ErrUnsupported].
package hugepage

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"code.hybscloud.com/spsc"
)

// DefaultHugePageSize is the huge page size assumed when Options.PageSize
// is zero and Options.Huge is set.
const DefaultHugePageSize = 2 << 20

var (
	// ErrPointerElem is returned for element types that contain pointers.
	ErrPointerElem = errors.New("hugepage: element type contains pointers")

	// ErrZeroSize is returned for zero-sized element types.
	ErrZeroSize = errors.New("hugepage: zero-sized element type")

	// ErrPageSize is returned for a page size that is not a power of 2, or
	// smaller than DefaultHugePageSize when Huge is set.
	ErrPageSize = errors.New("hugepage: invalid page size")

	// ErrUnknownRegion is returned by Deallocate for storage it did not map.
	ErrUnknownRegion = errors.New("hugepage: unknown region")

	// ErrUnsupported is returned on platforms without mmap support.
	ErrUnsupported = errors.ErrUnsupported
)

// Options configures an Allocator.
type Options struct {
	// Huge requests huge pages: MAP_HUGETLB first, then transparent huge
	// pages via madvise when no huge pages are reserved.
	Huge bool

	// PageSize overrides the rounding granularity in bytes.
	// Zero selects DefaultHugePageSize if Huge is set, else the system
	// page size. Must be a power of 2, and at least DefaultHugePageSize
	// when Huge is set: the kernel rounds MAP_HUGETLB mappings up to a
	// whole huge page and munmap must be given that length.
	PageSize int

	// Populate prefaults the mapping so the queue never page-faults on
	// first use of a slot.
	Populate bool

	// Lock pins the mapping in RAM with mlock.
	Lock bool
}

// Stats describes the regions currently mapped by an Allocator.
type Stats struct {
	Regions      int // Live mappings
	MappedBytes  int // Bytes mapped, including rounding
	HugeTLBBytes int // Bytes backed by MAP_HUGETLB
}

// Allocator is an mmap-backed [spsc.SizedAllocator].
//
// Allocator is safe for concurrent use; it is not on any queue hot path.
type Allocator[T any] struct {
	opts     Options
	pageSize int
	elemSize int

	mu      sync.Mutex
	regions map[uintptr]region
}

type region struct {
	mem     []byte
	hugeTLB bool
}

var _ spsc.SizedAllocator[uint64] = (*Allocator[uint64])(nil)

// New creates an Allocator for element type T.
func New[T any](opts Options) (*Allocator[T], error) {
	if !supported {
		return nil, ErrUnsupported
	}
	typ := reflect.TypeFor[T]()
	if typ.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrZeroSize, typ)
	}
	if hasPointers(typ) {
		return nil, fmt.Errorf("%w: %s", ErrPointerElem, typ)
	}

	ps := opts.PageSize
	switch {
	case ps < 0 || ps&(ps-1) != 0:
		return nil, fmt.Errorf("%w: %d is not a power of 2", ErrPageSize, ps)
	case ps != 0 && opts.Huge && ps < DefaultHugePageSize:
		return nil, fmt.Errorf("%w: %d is smaller than a huge page", ErrPageSize, ps)
	case ps == 0 && opts.Huge:
		ps = DefaultHugePageSize
	case ps == 0:
		ps = systemPageSize()
	}

	return &Allocator[T]{
		opts:     opts,
		pageSize: ps,
		elemSize: int(typ.Size()),
		regions:  make(map[uintptr]region),
	}, nil
}

// PageSize returns the rounding granularity in bytes.
func (a *Allocator[T]) PageSize() int {
	return a.pageSize
}

// Allocate returns exactly n zeroed elements.
func (a *Allocator[T]) Allocate(n int) ([]T, error) {
	s, err := a.AllocateAtLeast(n)
	if err != nil {
		return nil, err
	}
	return s[:n:n], nil
}

// AllocateAtLeast maps a region for at least n elements and returns all
// elements that fit in it.
func (a *Allocator[T]) AllocateAtLeast(n int) ([]T, error) {
	if n <= 0 || n > maxInt/a.elemSize {
		return nil, fmt.Errorf("%w: %d elements of %d bytes", spsc.ErrOutOfMemory, n, a.elemSize)
	}
	length := alignUp(n*a.elemSize, a.pageSize)
	if length < n*a.elemSize {
		return nil, fmt.Errorf("%w: %d elements of %d bytes", spsc.ErrOutOfMemory, n, a.elemSize)
	}

	mem, hugeTLB, err := mapRegion(length, a.opts)
	if err != nil {
		return nil, err
	}

	base := unsafe.Pointer(unsafe.SliceData(mem))
	a.mu.Lock()
	a.regions[uintptr(base)] = region{mem: mem, hugeTLB: hugeTLB}
	a.mu.Unlock()

	return unsafe.Slice((*T)(base), len(mem)/a.elemSize), nil
}

// Deallocate unmaps storage returned by Allocate or AllocateAtLeast.
func (a *Allocator[T]) Deallocate(s []T) error {
	if cap(s) == 0 {
		return fmt.Errorf("%w: empty slice", ErrUnknownRegion)
	}
	key := uintptr(unsafe.Pointer(unsafe.SliceData(s)))

	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.regions[key]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownRegion, key)
	}
	// A region stays registered until the unmap succeeds, so a failed
	// Deallocate can be retried.
	if err := unmap(r.mem); err != nil {
		return err
	}
	delete(a.regions, key)
	return nil
}

// unmap is replaced in tests.
var unmap = unmapRegion

// Stats returns a snapshot of the live mappings.
func (a *Allocator[T]) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	var st Stats
	for _, r := range a.regions {
		st.Regions++
		st.MappedBytes += len(r.mem)
		if r.hugeTLB {
			st.HugeTLBBytes += len(r.mem)
		}
	}
	return st
}

const maxInt = int(^uint(0) >> 1)

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// hasPointers reports whether values of typ hold pointers the garbage
// collector would need to see.
func hasPointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	case reflect.Array:
		return typ.Len() > 0 && hasPointers(typ.Elem())
	case reflect.Struct:
		for i := range typ.NumField() {
			if hasPointers(typ.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
