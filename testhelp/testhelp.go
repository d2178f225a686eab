// Package testhelp holds fixtures shared by the package tests.
package testhelp

import (
	"sync/atomic"
	"unsafe"

	"github.com/zeebo/errs/v2"
	"github.com/zeebo/mwc"

	"github.com/histdb/memkit/mem"
)

var valRng = mwc.Rand()

// Panics reports whether fn panics.
func Panics(fn func()) (ok bool) {
	defer func() { ok = recover() != nil }()
	fn()
	return false
}

// Counter tallies the lifecycle events of the Elems it makes.
type Counter struct {
	Deinits atomic.Int64
	Clones  atomic.Int64
}

// Elem returns an element reporting to c.
func (c *Counter) Elem(v int) Elem { return Elem{V: v, c: c} }

// Elem is an element with both the deinitialize and duplicate capabilities.
// Duplicates carry the generation of their source plus one.
type Elem struct {
	V   int
	Gen int
	c   *Counter
}

func (e *Elem) Deinit() {
	if e.c != nil {
		e.c.Deinits.Add(1)
	}
}

func (e Elem) Clone() Elem {
	if e.c != nil {
		e.c.Clones.Add(1)
	}
	e.Gen++
	return e
}

// Failing is an allocator that fails every allocation with a nonzero count.
type Failing struct{}

var ErrFailing = errs.Errorf("out of memory")

func (Failing) Allocate(l mem.Layout) (unsafe.Pointer, error) {
	if l.Count == 0 {
		return nil, nil
	}
	return nil, ErrFailing
}

func (Failing) Deallocate(unsafe.Pointer, mem.Layout) {}

// Ints returns n random values in [0, limit).
func Ints(n, limit int) []int {
	v := make([]int, n)
	for i := range v {
		v[i] = int(valRng.Uint64n(uint64(limit)))
	}
	return v
}
