package rigidarray

import (
	"fmt"

	"github.com/histdb/memkit/mem"
)

// Output is a cursor over a window of uninitialized slots handed to bulk
// population callbacks. Elements are initialized in order from the front of
// the window; when the callback returns, exactly the initialized prefix is
// committed. An Output must not be retained past its callback.
type Output[E any] struct {
	_ [0]func() // no equality

	buf []E
	n   int
}

func (o *Output[E]) finish() int {
	n := o.n
	o.buf, o.n = nil, 0
	return n
}

// Len returns the number of initialized elements.
func (o *Output[E]) Len() int { return o.n }

// Cap returns the size of the window.
func (o *Output[E]) Cap() int { return len(o.buf) }

// FreeCapacity returns how many more elements fit.
func (o *Output[E]) FreeCapacity() int { return len(o.buf) - o.n }

func (o *Output[E]) Full() bool { return o.n == len(o.buf) }

// Span returns the initialized elements.
func (o *Output[E]) Span() []E { return o.buf[:o.n:o.n] }

func (o *Output[E]) checkFree(n int) {
	if n > len(o.buf)-o.n {
		panic(fmt.Sprintf("rigidarray: output overflow: %d more with %d of %d used", n, o.n, len(o.buf)))
	}
}

// Append initializes the next slot with v.
func (o *Output[E]) Append(v E) {
	o.checkFree(1)
	o.buf[o.n] = v
	o.n++
}

// AppendCopying initializes the next slots with duplicates of src.
func (o *Output[E]) AppendCopying(src []E) {
	o.checkFree(len(src))
	for i := range src {
		o.buf[o.n] = mem.Clone(&src[i])
		o.n++
	}
}

// AppendMoving moves src into the next slots, leaving src zeroed.
func (o *Output[E]) AppendMoving(src []E) {
	o.checkFree(len(src))
	o.n += mem.MoveInto(o.buf[o.n:], src)
}

// RemoveLast moves out the last initialized element.
func (o *Output[E]) RemoveLast() E {
	if o.n == 0 {
		panic("rigidarray: remove from empty output")
	}
	o.n--
	return mem.Move(&o.buf[o.n])
}

// RemoveAll destroys every initialized element.
func (o *Output[E]) RemoveAll() {
	mem.DeinitAll(o.buf[:o.n])
	o.n = 0
}
