// Package uniquearray implements a growable contiguous array on top of
// rigidarray. Whenever an operation needs more room than is free, the
// storage is reallocated to the larger of what is needed and one and a half
// times the current capacity.
package uniquearray

import (
	"fmt"
	"iter"
	"unsafe"

	"github.com/histdb/memkit/mem"
	"github.com/histdb/memkit/rigidarray"
)

// Output is the cursor handed to bulk population callbacks.
type Output[E any] = rigidarray.Output[E]

// T is a growable array of E. The zero value is an empty array whose storage
// comes from the Go heap. Like rigidarray.T it owns its storage and must be
// released with Free.
type T[E any] struct {
	_ [0]func() // no equality

	r        rigidarray.T[E]
	reallocs int
}

// New returns an empty array with room for capacity elements on the Go heap.
func New[E any](capacity int) T[E] {
	return T[E]{r: rigidarray.New[E](capacity)}
}

// NewIn returns an empty array with room for capacity elements whose storage,
// now and after growth, comes from alloc. A nil alloc means the Go heap.
func NewIn[E any](alloc mem.Allocator, capacity int) (T[E], error) {
	r, err := rigidarray.NewIn[E](alloc, capacity)
	if err != nil {
		return T[E]{}, err
	}
	return T[E]{r: r}, nil
}

// FromRigid takes over the storage and elements of r, which must not be used
// afterwards. Use r.Take() to hand over an array still in use.
func FromRigid[E any](r rigidarray.T[E]) T[E] {
	return T[E]{r: r}
}

// Repeating returns an array of n duplicates of v.
func Repeating[E any](v E, n int) T[E] {
	return T[E]{r: rigidarray.Repeating(v, n)}
}

// Copying returns an array holding duplicates of src.
func Copying[E any](src []E) T[E] {
	return T[E]{r: rigidarray.Copying(src)}
}

// CopyingSeq returns an array holding duplicates of the elements of seq.
func CopyingSeq[E any](seq iter.Seq[E]) T[E] {
	var a T[E]
	a.AppendSeq(seq)
	return a
}

// Initializing returns an array with the given capacity populated by fn.
func Initializing[E any](capacity int, fn func(*Output[E]) error) (T[E], error) {
	r, err := rigidarray.Initializing(capacity, fn)
	return T[E]{r: r}, err
}

func grow(capacity int) int {
	return int((3*uint(capacity) + 1) / 2)
}

func (a *T[E]) ensureFreeCapacity(n int) error {
	if a.r.FreeCapacity() >= n {
		return nil
	}
	return a.Reallocate(max(a.r.Len()+n, grow(a.r.Cap())))
}

func (a *T[E]) mustFreeCapacity(n int) {
	if err := a.ensureFreeCapacity(n); err != nil {
		panic(fmt.Sprintf("uniquearray: %v", err))
	}
}

// Reallocate moves the elements into new storage of the given capacity,
// which must fit them.
func (a *T[E]) Reallocate(capacity int) error {
	if err := a.r.Reallocate(capacity); err != nil {
		return err
	}
	a.reallocs++
	return nil
}

// Reserve grows the array, if needed, so that n more elements fit. Unlike
// the appending operations, which panic when growth fails, it returns the
// allocation error and leaves the array unchanged.
func (a *T[E]) Reserve(n int) error { return a.ensureFreeCapacity(n) }

// ReserveCapacity grows the array, if needed, so that its capacity is at
// least n.
func (a *T[E]) ReserveCapacity(n int) {
	a.mustFreeCapacity(n - a.r.Len())
}

// Reallocations returns how many times the storage has been reallocated.
func (a *T[E]) Reallocations() int { return a.reallocs }

func (a *T[E]) Len() int          { return a.r.Len() }
func (a *T[E]) Cap() int          { return a.r.Cap() }
func (a *T[E]) FreeCapacity() int { return a.r.FreeCapacity() }
func (a *T[E]) IsEmpty() bool     { return a.r.IsEmpty() }

// Span returns the elements. It aliases the storage and is invalidated by
// any operation that shifts elements or grows the array.
func (a *T[E]) Span() []E              { return a.r.Span() }
func (a *T[E]) At(i int) *E            { return a.r.At(i) }
func (a *T[E]) Get(i int) E            { return a.r.Get(i) }
func (a *T[E]) Set(i int, v E)         { a.r.Set(i, v) }
func (a *T[E]) Swap(i, j int)          { a.r.Swap(i, j) }
func (a *T[E]) All() iter.Seq2[int, E] { return a.r.All() }

// Edit hands fn a cursor over the elements and the free capacity. The array
// does not grow while fn runs.
func (a *T[E]) Edit(fn func(*Output[E]) error) error { return a.r.Edit(fn) }

// Identical reports whether a and b share storage and length.
func (a *T[E]) Identical(b *T[E]) bool { return a.r.Identical(&b.r) }

//
// append
//

// Append adds v to the end.
func (a *T[E]) Append(v E) {
	a.mustFreeCapacity(1)
	a.r.Append(v)
}

// AppendN adds up to n elements to the end, populated by fn.
func (a *T[E]) AppendN(n int, fn func(*Output[E]) error) error {
	a.mustFreeCapacity(n)
	return a.r.AppendN(n, fn)
}

// AppendMoving moves the elements of src to the end, leaving src zeroed.
func (a *T[E]) AppendMoving(src []E) {
	a.mustFreeCapacity(len(src))
	a.r.AppendMoving(src)
}

// AppendMovingArray moves every element of b to the end of a, leaving b
// empty.
func (a *T[E]) AppendMovingArray(b *T[E]) {
	if a == b {
		panic("uniquearray: moving array into itself")
	}
	a.mustFreeCapacity(b.Len())
	a.r.AppendMovingArray(&b.r)
}

// AppendCopying adds duplicates of src to the end.
func (a *T[E]) AppendCopying(src []E) {
	a.mustFreeCapacity(len(src))
	a.r.AppendCopying(src)
}

// AppendSeq adds duplicates of the elements of seq to the end.
func (a *T[E]) AppendSeq(seq iter.Seq[E]) {
	for v := range seq {
		a.mustFreeCapacity(1)
		a.r.Append(mem.Clone(&v))
	}
}

//
// insert
//

// Insert places v at index i, shifting later elements up.
func (a *T[E]) Insert(v E, i int) {
	a.mustFreeCapacity(1)
	a.r.Insert(v, i)
}

// InsertN inserts up to n elements at index i, populated by fn.
func (a *T[E]) InsertN(n, i int, fn func(*Output[E]) error) error {
	a.mustFreeCapacity(n)
	return a.r.InsertN(n, i, fn)
}

// InsertMoving moves the elements of src to index i, leaving src zeroed.
func (a *T[E]) InsertMoving(src []E, i int) {
	a.mustFreeCapacity(len(src))
	a.r.InsertMoving(src, i)
}

// InsertMovingArray moves every element of b to index i of a, leaving b
// empty.
func (a *T[E]) InsertMovingArray(b *T[E], i int) {
	if a == b {
		panic("uniquearray: moving array into itself")
	}
	a.mustFreeCapacity(b.Len())
	a.r.InsertMovingArray(&b.r, i)
}

// InsertCopying inserts duplicates of src at index i.
func (a *T[E]) InsertCopying(src []E, i int) {
	a.mustFreeCapacity(len(src))
	a.r.InsertCopying(src, i)
}

//
// replace
//

// ReplaceN destroys the elements in [lo, hi) and puts up to n elements
// populated by fn in their place.
func (a *T[E]) ReplaceN(lo, hi, n int, fn func(*Output[E]) error) error {
	a.mustFreeCapacity(n - (hi - lo))
	return a.r.ReplaceN(lo, hi, n, fn)
}

// ReplaceMoving replaces the elements in [lo, hi) by moving in src.
func (a *T[E]) ReplaceMoving(lo, hi int, src []E) {
	a.mustFreeCapacity(len(src) - (hi - lo))
	a.r.ReplaceMoving(lo, hi, src)
}

// ReplaceCopying replaces the elements in [lo, hi) with duplicates of src.
func (a *T[E]) ReplaceCopying(lo, hi int, src []E) {
	a.mustFreeCapacity(len(src) - (hi - lo))
	a.r.ReplaceCopying(lo, hi, src)
}

//
// remove
//

func (a *T[E]) Remove(i int) E            { return a.r.Remove(i) }
func (a *T[E]) RemoveLast() E             { return a.r.RemoveLast() }
func (a *T[E]) PopLast() (E, bool)        { return a.r.PopLast() }
func (a *T[E]) RemoveLastN(k int)         { a.r.RemoveLastN(k) }
func (a *T[E]) RemoveAll()                { a.r.RemoveAll() }
func (a *T[E]) RemoveSubrange(lo, hi int) { a.r.RemoveSubrange(lo, hi) }

//
// lifecycle
//

// Clone returns a new array with the same capacity holding duplicates of the
// elements.
func (a *T[E]) Clone() T[E] { return T[E]{r: a.r.Clone()} }

// CloneCap is Clone with a different capacity, which must fit the elements.
func (a *T[E]) CloneCap(capacity int) T[E] { return T[E]{r: a.r.CloneCap(capacity)} }

// Take returns the contents as a rigid array, leaving a empty with no
// capacity.
func (a *T[E]) Take() rigidarray.T[E] { return a.r.Take() }

// Free destroys the elements and returns the storage to its allocator.
func (a *T[E]) Free() { a.r.Free() }

// Size returns the memory footprint of the array and its storage.
func (a *T[E]) Size() uint64 {
	return uint64(unsafe.Sizeof(a.reallocs)) + a.r.Size()
}

func (a *T[E]) String() string { return a.r.String() }

// Equal reports whether a and b hold equal elements in the same order.
func Equal[E comparable](a, b *T[E]) bool { return rigidarray.Equal(&a.r, &b.r) }

// Digest hashes the length and the digests of the elements.
func Digest[E rigidarray.Digester](a *T[E]) uint64 { return rigidarray.Digest(&a.r) }
