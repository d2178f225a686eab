// Package atomiccell provides a single-slot integer cell with atomic
// operations parametrized by an explicit memory ordering.
package atomiccell

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

type ptr = unsafe.Pointer

// Integer is the set of fixed-layout values a cell can hold. Every member is
// 4 or 8 bytes wide and maps directly onto a sync/atomic primitive.
type Integer interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~int | ~uint | ~uintptr
}

// T holds a single value of type V. The zero value holds the zero V.
//
// A T must not be copied after first use.
type T[V Integer] struct {
	_ [0]func()        // no equality
	_ [0]atomic.Uint64 // 8-byte alignment for 64-bit ops on 32-bit platforms

	v V
}

// New returns a cell holding v.
func New[V Integer](v V) T[V] { return T[V]{v: v} }

func wide[V Integer]() bool { return unsafe.Sizeof(*new(V)) == 8 }

func (c *T[V]) p32() *uint32 { return (*uint32)(ptr(&c.v)) }
func (c *T[V]) p64() *uint64 { return (*uint64)(ptr(&c.v)) }

// Load atomically reads the value.
func (c *T[V]) Load(o Ordering) V {
	checkLoad(o)
	if wide[V]() {
		return V(atomic.LoadUint64(c.p64()))
	}
	return V(atomic.LoadUint32(c.p32()))
}

// Store atomically writes v.
func (c *T[V]) Store(v V, o Ordering) {
	checkStore(o)
	if wide[V]() {
		atomic.StoreUint64(c.p64(), uint64(v))
		return
	}
	atomic.StoreUint32(c.p32(), uint32(v))
}

// Exchange atomically writes v and returns the previous value.
func (c *T[V]) Exchange(v V, o Ordering) V {
	checkUpdate(o)
	if wide[V]() {
		return V(atomic.SwapUint64(c.p64(), uint64(v)))
	}
	return V(atomic.SwapUint32(c.p32(), uint32(v)))
}

// CompareExchange replaces the value with desired if it currently equals
// expected. It reports whether the exchange happened along with the value
// that was observed. It never fails spuriously.
func (c *T[V]) CompareExchange(expected, desired V, success, failure Ordering) (exchanged bool, original V) {
	checkUpdate(success)
	checkFailure(failure)
	return c.cas(expected, desired)
}

// WeakCompareExchange is CompareExchange for retry loops. It is allowed to
// report failure even when the value equals expected, so callers must loop.
func (c *T[V]) WeakCompareExchange(expected, desired V, success, failure Ordering) (exchanged bool, original V) {
	checkUpdate(success)
	checkFailure(failure)
	return c.cas(expected, desired)
}

func (c *T[V]) cas(expected, desired V) (bool, V) {
	for {
		var ok bool
		if wide[V]() {
			ok = atomic.CompareAndSwapUint64(c.p64(), uint64(expected), uint64(desired))
		} else {
			ok = atomic.CompareAndSwapUint32(c.p32(), uint32(expected), uint32(desired))
		}
		if ok {
			return true, expected
		}

		// the value can change back to expected between the failed swap and
		// this load. a strong compare exchange must not report that as a
		// failure, so go around again.
		if cur := c.load(); cur != expected {
			return false, cur
		}
	}
}

func (c *T[V]) load() V {
	if wide[V]() {
		return V(atomic.LoadUint64(c.p64()))
	}
	return V(atomic.LoadUint32(c.p32()))
}

// Add atomically adds delta with wrapping and returns the old and new values.
func (c *T[V]) Add(delta V, o Ordering) (old, new V) {
	checkUpdate(o)
	if wide[V]() {
		new = V(atomic.AddUint64(c.p64(), uint64(delta)))
	} else {
		new = V(atomic.AddUint32(c.p32(), uint32(delta)))
	}
	return new - delta, new
}

// Sub atomically subtracts delta with wrapping and returns the old and new
// values.
func (c *T[V]) Sub(delta V, o Ordering) (old, new V) {
	checkUpdate(o)
	if wide[V]() {
		new = V(atomic.AddUint64(c.p64(), uint64(-delta)))
	} else {
		new = V(atomic.AddUint32(c.p32(), uint32(-delta)))
	}
	return new + delta, new
}

// And atomically replaces the value with value & mask.
func (c *T[V]) And(mask V, o Ordering) (old, new V) {
	checkUpdate(o)
	if wide[V]() {
		old = V(atomic.AndUint64(c.p64(), uint64(mask)))
	} else {
		old = V(atomic.AndUint32(c.p32(), uint32(mask)))
	}
	return old, old & mask
}

// Or atomically replaces the value with value | mask.
func (c *T[V]) Or(mask V, o Ordering) (old, new V) {
	checkUpdate(o)
	if wide[V]() {
		old = V(atomic.OrUint64(c.p64(), uint64(mask)))
	} else {
		old = V(atomic.OrUint32(c.p32(), uint32(mask)))
	}
	return old, old | mask
}

// Xor atomically replaces the value with value ^ mask.
func (c *T[V]) Xor(mask V, o Ordering) (old, new V) {
	checkUpdate(o)
	for old = c.load(); ; {
		ok, cur := c.cas(old, old^mask)
		if ok {
			return old, old ^ mask
		}
		old = cur
	}
}

func (c *T[V]) String() string { return fmt.Sprint(c.load()) }

var fenceWord atomic.Uint64

// Fence establishes the given ordering between the surrounding memory
// operations of the calling goroutine without touching a particular cell.
func Fence(o Ordering) {
	checkUpdate(o)
	if o == Relaxed {
		panic("atomiccell: relaxed fence")
	}
	fenceWord.Add(0)
}
