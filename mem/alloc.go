// Package mem provides the allocation capability the ownership primitives
// are built on, and the per-element operations (deinitialize, clone, move)
// they perform on raw slots.
package mem

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/zeebo/errs/v2"
)

type ptr = unsafe.Pointer

// Allocator hands out raw blocks described by a Layout.
//
// Allocate returns nil for a layout with a zero count. A returned block is
// zeroed and aligned for the layout's type. Deallocate must be called exactly
// once per block with the layout it was allocated with; deallocating nil is
// a no-op.
type Allocator interface {
	Allocate(l Layout) (ptr, error)
	Deallocate(p ptr, l Layout)
}

var (
	// ErrPointers is returned by allocators whose memory the garbage
	// collector does not scan when the layout holds Go pointers.
	ErrPointers = errs.Errorf("layout holds Go pointers")

	// ErrSize is returned when the layout's size overflows.
	ErrSize = errs.Errorf("layout size overflows")

	// ErrAlign is returned when the allocator cannot satisfy the layout's
	// alignment.
	ErrAlign = errs.Errorf("layout alignment unsupported")
)

// AllocError is the error kind for recoverable allocation failures.
type AllocError struct {
	Layout Layout
	Err    error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("mem: allocating %v: %v", e.Layout, e.Err)
}

func (e *AllocError) Unwrap() error { return e.Err }

func allocError(l Layout, err error) error {
	return errs.Wrap(&AllocError{Layout: l, Err: err})
}

// OrHeap returns a, or Heap if a is nil.
func OrHeap(a Allocator) Allocator {
	if a == nil {
		return Heap{}
	}
	return a
}

// Heap allocates typed blocks from the Go heap. Blocks are scanned by the
// garbage collector, so any type may be stored in them, and they are
// reclaimed by it once unreachable; Deallocate only drops the allocator's
// interest in the block.
type Heap struct{}

func (Heap) Allocate(l Layout) (ptr, error) {
	if _, ok := l.size(); !ok {
		return nil, allocError(l, ErrSize)
	}
	if l.Count == 0 {
		return nil, nil
	}
	return reflect.MakeSlice(reflect.SliceOf(l.Type), l.Count, l.Count).UnsafePointer(), nil
}

func (Heap) Deallocate(p ptr, l Layout) {}
