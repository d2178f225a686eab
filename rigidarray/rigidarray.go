// Package rigidarray implements a fixed-capacity contiguous array over
// manually allocated storage.
//
// The first Len slots are initialized and the remaining slots up to Cap hold
// the zero value. The capacity never changes except through Reallocate and
// ReserveCapacity. Exceeding it, indexing outside the initialized prefix, or
// removing from an empty array are contract violations and panic.
package rigidarray

import (
	"fmt"
	"unsafe"

	"github.com/zeebo/errs/v2"

	"github.com/histdb/memkit/mem"
)

type ptr = unsafe.Pointer

// T is a fixed-capacity array of E. The zero value is an empty array with no
// capacity whose storage comes from the Go heap. A T owns its storage: it
// must be released with Free, and a copy of a T must not be used once the
// original has been mutated.
type T[E any] struct {
	_ [0]func() // no equality

	base  ptr
	count int
	cap   int
	alloc mem.Allocator
	freed bool
}

// New returns an empty array with room for capacity elements on the Go heap.
func New[E any](capacity int) T[E] {
	a, err := NewIn[E](nil, capacity)
	if err != nil {
		panic(fmt.Sprintf("rigidarray: %v", err))
	}
	return a
}

// NewIn returns an empty array with room for capacity elements allocated from
// alloc. A nil alloc means the Go heap.
func NewIn[E any](alloc mem.Allocator, capacity int) (T[E], error) {
	if capacity < 0 {
		panic(fmt.Sprintf("rigidarray: negative capacity: %d", capacity))
	}
	p, err := mem.OrHeap(alloc).Allocate(mem.LayoutOf[E](capacity))
	if err != nil {
		return T[E]{}, errs.Wrap(err)
	}
	return T[E]{base: p, cap: capacity, alloc: alloc}, nil
}

// Repeating returns a full array of n duplicates of v.
func Repeating[E any](v E, n int) T[E] {
	a := New[E](n)
	s := a.slots()
	for i := range s {
		s[i] = mem.Clone(&v)
	}
	a.count = n
	return a
}

// Copying returns a full array holding duplicates of src.
func Copying[E any](src []E) T[E] {
	return CopyingCap(len(src), src)
}

// CopyingCap returns an array with the given capacity holding duplicates of
// src.
func CopyingCap[E any](capacity int, src []E) T[E] {
	a := New[E](capacity)
	a.AppendCopying(src)
	return a
}

// Initializing returns an array with the given capacity populated by fn. The
// elements fn initialized are kept even if it fails.
func Initializing[E any](capacity int, fn func(*Output[E]) error) (T[E], error) {
	a := New[E](capacity)
	err := a.Edit(fn)
	return a, err
}

func (a *T[E]) allocator() mem.Allocator { return mem.OrHeap(a.alloc) }

// slots returns every slot of the storage, initialized or not.
func (a *T[E]) slots() []E {
	if a.freed {
		panic("rigidarray: use of freed array")
	}
	return mem.Slice[E](a.base, a.cap)
}

func (a *T[E]) checkItem(i int) {
	if i < 0 || i >= a.count {
		panic(fmt.Sprintf("rigidarray: index out of range: %d with length %d", i, a.count))
	}
}

func (a *T[E]) checkIndex(i int) {
	if i < 0 || i > a.count {
		panic(fmt.Sprintf("rigidarray: insertion index out of range: %d with length %d", i, a.count))
	}
}

func (a *T[E]) checkRange(lo, hi int) {
	if lo < 0 || lo > hi || hi > a.count {
		panic(fmt.Sprintf("rigidarray: range out of bounds: [%d:%d] with length %d", lo, hi, a.count))
	}
}

func checkCount(n int) {
	if n < 0 {
		panic(fmt.Sprintf("rigidarray: negative count: %d", n))
	}
}

func (a *T[E]) checkFree(n int) {
	if n > a.cap-a.count {
		panic(fmt.Sprintf("rigidarray: capacity overflow: %d more with %d of %d used", n, a.count, a.cap))
	}
}

// Len returns the number of initialized elements.
func (a *T[E]) Len() int { return a.count }

// Cap returns the capacity.
func (a *T[E]) Cap() int { return a.cap }

// FreeCapacity returns how many more elements fit.
func (a *T[E]) FreeCapacity() int { return a.cap - a.count }

func (a *T[E]) IsEmpty() bool { return a.count == 0 }
func (a *T[E]) IsFull() bool  { return a.count == a.cap }

// Span returns the initialized elements. It aliases the storage and is
// invalidated by any operation that shifts elements or reallocates.
func (a *T[E]) Span() []E {
	return a.slots()[:a.count:a.count]
}

// At returns a pointer to the element at i.
func (a *T[E]) At(i int) *E {
	a.checkItem(i)
	return &a.slots()[i]
}

// Get returns the element at i.
func (a *T[E]) Get(i int) E { return *a.At(i) }

// Set destroys the element at i and stores v in its place.
func (a *T[E]) Set(i int, v E) {
	p := a.At(i)
	mem.Deinit(p)
	*p = v
}

// Swap exchanges the elements at i and j.
func (a *T[E]) Swap(i, j int) {
	a.checkItem(i)
	a.checkItem(j)
	s := a.slots()
	s[i], s[j] = s[j], s[i]
}

// Identical reports whether a and b share storage and length.
func (a *T[E]) Identical(b *T[E]) bool {
	return a.base == b.base && a.count == b.count && a.cap == b.cap
}

// Edit hands fn a cursor over the whole array: the initialized elements
// followed by the free capacity. Whatever fn leaves initialized, even when
// it fails or panics, becomes the array's contents.
func (a *T[E]) Edit(fn func(*Output[E]) error) error {
	s := a.slots()
	out := Output[E]{buf: s[:a.cap:a.cap], n: a.count}
	defer func() { a.count = out.finish() }()
	return fn(&out)
}

// Clone returns a new array with the same capacity holding duplicates of the
// elements.
func (a *T[E]) Clone() T[E] { return a.CloneCap(a.cap) }

// CloneCap is Clone with a different capacity, which must fit the elements.
func (a *T[E]) CloneCap(capacity int) T[E] {
	if capacity < a.count {
		panic(fmt.Sprintf("rigidarray: capacity %d below length %d", capacity, a.count))
	}
	b, err := NewIn[E](a.alloc, capacity)
	if err != nil {
		panic(fmt.Sprintf("rigidarray: %v", err))
	}
	b.AppendCopying(a.Span())
	return b
}

// Reallocate moves the elements into new storage of the given capacity,
// which must fit them. On failure the array is unchanged.
func (a *T[E]) Reallocate(capacity int) error {
	if capacity < a.count {
		panic(fmt.Sprintf("rigidarray: capacity %d below length %d", capacity, a.count))
	}
	s := a.slots()

	al := a.allocator()
	p, err := al.Allocate(mem.LayoutOf[E](capacity))
	if err != nil {
		return errs.Wrap(err)
	}
	mem.MoveInto(mem.Slice[E](p, capacity), s[:a.count])
	al.Deallocate(a.base, mem.LayoutOf[E](a.cap))

	a.base, a.cap = p, capacity
	return nil
}

// ReserveCapacity reallocates to exactly n slots if the capacity is smaller.
func (a *T[E]) ReserveCapacity(n int) error {
	if n <= a.cap {
		return nil
	}
	return a.Reallocate(n)
}

// Take returns the array, leaving a empty with no capacity. The allocator is
// kept by both.
func (a *T[E]) Take() T[E] {
	a.slots()
	t := T[E]{base: a.base, count: a.count, cap: a.cap, alloc: a.alloc}
	a.base, a.count, a.cap = nil, 0, 0
	return t
}

// Free destroys the elements and returns the storage to its allocator. The
// array cannot be used afterwards.
func (a *T[E]) Free() {
	s := a.slots()
	mem.DeinitAll(s[:a.count])
	a.allocator().Deallocate(a.base, mem.LayoutOf[E](a.cap))
	a.base, a.count, a.cap, a.freed = nil, 0, 0, true
}

// Size returns the memory footprint of the array and its storage.
func (a *T[E]) Size() uint64 {
	return uint64(unsafe.Sizeof(*a)) + uint64(mem.LayoutOf[E](a.cap).Size())
}

func (a *T[E]) String() string {
	if a.freed {
		return "rigidarray(freed)"
	}
	return fmt.Sprintf("%v cap:%d", a.Span(), a.cap)
}
