package rigidarray

import (
	"fmt"
	"iter"

	"github.com/histdb/memkit/mem"
)

//
// gap management
//

// resizeGap turns the destroyed range [lo, hi) into a zeroed gap of n slots
// by shifting the trailing elements.
func (a *T[E]) resizeGap(lo, hi, n int) {
	s := a.slots()
	mem.MoveInto(s[lo+n:lo+n+a.count-hi], s[hi:a.count])
	a.count += n - (hi - lo)
}

// closeGap removes the zeroed gap of n slots at i.
func (a *T[E]) closeGap(i, n int) {
	s := a.slots()
	mem.MoveInto(s[i:a.count-n], s[i+n:a.count])
	a.count -= n
}

// fill replaces the range [lo, hi) with n slots populated by fn. Slots fn
// leaves uninitialized are closed up afterwards, including when fn panics.
func (a *T[E]) fill(lo, hi, n int, fn func(*Output[E])) {
	a.checkRange(lo, hi)
	checkCount(n)
	a.checkFree(n - (hi - lo))

	s := a.slots()
	mem.DeinitAll(s[lo:hi])
	a.resizeGap(lo, hi, n)

	out := Output[E]{buf: s[lo : lo+n : lo+n]}
	defer func() {
		if c := out.finish(); c < n {
			a.closeGap(lo+c, n-c)
		}
	}()
	fn(&out)
}

//
// append
//

// Append adds v to the end.
func (a *T[E]) Append(v E) {
	a.checkFree(1)
	a.slots()[a.count] = v
	a.count++
}

// PushLast adds v to the end if there is room. Otherwise it returns v back
// and false.
func (a *T[E]) PushLast(v E) (rejected E, ok bool) {
	if a.IsFull() {
		return v, false
	}
	a.Append(v)
	return rejected, true
}

// AppendN adds up to n elements to the end, populated by fn. Only the
// elements fn initializes are added; its error is returned.
func (a *T[E]) AppendN(n int, fn func(*Output[E]) error) (err error) {
	a.fill(a.count, a.count, n, func(o *Output[E]) { err = fn(o) })
	return err
}

// AppendMoving moves the elements of src to the end, leaving src zeroed.
func (a *T[E]) AppendMoving(src []E) {
	a.checkFree(len(src))
	a.count += mem.MoveInto(a.slots()[a.count:], src)
}

// AppendMovingArray moves every element of b to the end of a, leaving b
// empty.
func (a *T[E]) AppendMovingArray(b *T[E]) {
	if a == b {
		panic("rigidarray: moving array into itself")
	}
	a.AppendMoving(b.Span())
	b.count = 0
}

// AppendCopying adds duplicates of src to the end.
func (a *T[E]) AppendCopying(src []E) {
	a.fill(a.count, a.count, len(src), func(o *Output[E]) { o.AppendCopying(src) })
}

// AppendSeq adds duplicates of the elements of seq to the end. Elements that
// fit are kept even if seq has more than fit, which then panics.
func (a *T[E]) AppendSeq(seq iter.Seq[E]) {
	for v := range seq {
		a.Append(mem.Clone(&v))
	}
}

//
// insert
//

// Insert places v at index i, shifting later elements up.
func (a *T[E]) Insert(v E, i int) {
	a.checkIndex(i)
	a.checkFree(1)
	a.resizeGap(i, i, 1)
	a.slots()[i] = v
}

// InsertN inserts up to n elements at index i, populated by fn. Only the
// elements fn initializes are inserted; its error is returned.
func (a *T[E]) InsertN(n, i int, fn func(*Output[E]) error) (err error) {
	a.checkIndex(i)
	a.fill(i, i, n, func(o *Output[E]) { err = fn(o) })
	return err
}

// InsertMoving moves the elements of src to index i, leaving src zeroed.
func (a *T[E]) InsertMoving(src []E, i int) {
	a.checkIndex(i)
	a.fill(i, i, len(src), func(o *Output[E]) { o.AppendMoving(src) })
}

// InsertMovingArray moves every element of b to index i of a, leaving b
// empty.
func (a *T[E]) InsertMovingArray(b *T[E], i int) {
	if a == b {
		panic("rigidarray: moving array into itself")
	}
	a.InsertMoving(b.Span(), i)
	b.count = 0
}

// InsertCopying inserts duplicates of src at index i.
func (a *T[E]) InsertCopying(src []E, i int) {
	a.checkIndex(i)
	a.fill(i, i, len(src), func(o *Output[E]) { o.AppendCopying(src) })
}

//
// replace
//

// ReplaceN destroys the elements in [lo, hi) and puts up to n elements
// populated by fn in their place, shifting the trailing elements once.
func (a *T[E]) ReplaceN(lo, hi, n int, fn func(*Output[E]) error) (err error) {
	a.fill(lo, hi, n, func(o *Output[E]) { err = fn(o) })
	return err
}

// ReplaceMoving replaces the elements in [lo, hi) by moving in src.
func (a *T[E]) ReplaceMoving(lo, hi int, src []E) {
	a.fill(lo, hi, len(src), func(o *Output[E]) { o.AppendMoving(src) })
}

// ReplaceCopying replaces the elements in [lo, hi) with duplicates of src.
func (a *T[E]) ReplaceCopying(lo, hi int, src []E) {
	a.fill(lo, hi, len(src), func(o *Output[E]) { o.AppendCopying(src) })
}

//
// remove
//

// Remove moves out the element at i, shifting later elements down.
func (a *T[E]) Remove(i int) E {
	a.checkItem(i)
	v := mem.Move(&a.slots()[i])
	a.closeGap(i, 1)
	return v
}

// RemoveLast moves out the last element.
func (a *T[E]) RemoveLast() E {
	if a.count == 0 {
		panic("rigidarray: remove from empty array")
	}
	a.count--
	return mem.Move(&a.slots()[a.count])
}

// PopLast is RemoveLast that reports an empty array instead of panicking.
func (a *T[E]) PopLast() (v E, ok bool) {
	if a.count == 0 {
		return v, false
	}
	return a.RemoveLast(), true
}

// RemoveLastN destroys the last k elements.
func (a *T[E]) RemoveLastN(k int) {
	if k == 0 {
		return
	}
	if k < 0 || k > a.count {
		panic(fmt.Sprintf("rigidarray: cannot remove %d of %d elements", k, a.count))
	}
	mem.DeinitAll(a.slots()[a.count-k : a.count])
	a.count -= k
}

// RemoveAll destroys every element. The capacity is kept.
func (a *T[E]) RemoveAll() {
	mem.DeinitAll(a.slots()[:a.count])
	a.count = 0
}

// RemoveSubrange destroys the elements in [lo, hi), shifting the trailing
// elements down.
func (a *T[E]) RemoveSubrange(lo, hi int) {
	a.checkRange(lo, hi)
	if lo == hi {
		return
	}
	mem.DeinitAll(a.slots()[lo:hi])
	a.closeGap(lo, hi-lo)
}

//
// iteration
//

// All iterates over the indexes and elements.
func (a *T[E]) All() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		for i, v := range a.Span() {
			if !yield(i, v) {
				return
			}
		}
	}
}
