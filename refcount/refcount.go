// Package refcount implements the packed strong/weak reference count word
// shared by every handle to an intrusively counted block.
//
// The low half of the word counts strong references and the high half
// counts weak references. A fresh word holds one of each: the strong side
// collectively owns one implicit weak reference, so the weak count can only
// reach zero after the strong count has.
package refcount

import (
	"fmt"

	"github.com/histdb/memkit/atomiccell"
)

const (
	StrongMask uint64 = 0xFFFFFFFF
	StrongOne  uint64 = 1 << 0

	WeakShift        = 32
	WeakMask  uint64 = StrongMask << WeakShift
	WeakOne   uint64 = 1 << WeakShift

	Init = StrongOne + WeakOne
)

// Strong returns the strong count encoded in w.
func Strong(w uint64) uint32 { return uint32(w & StrongMask) }

// Weak returns the weak count encoded in w.
func Weak(w uint64) uint32 { return uint32((w & WeakMask) >> WeakShift) }

// T is a reference count word. The zero value has no references; call Init
// before publishing the block it guards.
type T struct {
	_ [0]func() // no equality

	c atomiccell.T[uint64]
}

// Init sets the word to one strong and one weak reference.
func (t *T) Init() { t.c.Store(Init, atomiccell.Relaxed) }

// Load returns the raw word.
func (t *T) Load(o atomiccell.Ordering) uint64 { return t.c.Load(o) }

// IncrementStrong adds a strong reference. It panics, leaving the word as
// it was, if the strong half is saturated.
func (t *T) IncrementStrong() {
	old, _ := t.c.Add(StrongOne, atomiccell.Relaxed)
	if old&StrongMask == StrongMask {
		t.c.Sub(StrongOne, atomiccell.Relaxed)
		panic(fmt.Sprintf("refcount: strong count overflow: %#x", old))
	}
}

// DecrementStrong drops a strong reference. The release ordering publishes
// the caller's writes to the payload to whoever observes the count reach
// zero.
func (t *T) DecrementStrong() (old, new uint64) {
	return t.c.Sub(StrongOne, atomiccell.Releasing)
}

// IncrementWeak adds a weak reference. It panics, leaving the word as it
// was, if the weak half is saturated.
func (t *T) IncrementWeak() {
	old, _ := t.c.Add(WeakOne, atomiccell.Relaxed)
	if old&WeakMask == WeakMask {
		t.c.Sub(WeakOne, atomiccell.Relaxed)
		panic(fmt.Sprintf("refcount: weak count overflow: %#x", old))
	}
}

// DecrementWeak drops a weak reference. Weak references never touch the
// payload, so relaxed ordering is enough.
func (t *T) DecrementWeak() (old, new uint64) {
	return t.c.Sub(WeakOne, atomiccell.Relaxed)
}

// TryIncrementStrong adds a strong reference unless the strong count is
// already zero or saturated. It retries until the count it read is the
// count it updated, so it can never revive a payload whose last strong
// reference was dropped concurrently.
func (t *T) TryIncrementStrong() bool {
	cur := t.c.Load(atomiccell.Relaxed)
	for {
		if s := cur & StrongMask; s == 0 || s == StrongMask {
			return false
		}
		ok, orig := t.c.WeakCompareExchange(cur, cur+StrongOne,
			atomiccell.Acquiring, atomiccell.Relaxed)
		if ok {
			return true
		}
		cur = orig
	}
}

// IsUnique reports whether exactly one strong reference exists. Weak
// references are ignored since they cannot reach the payload.
func (t *T) IsUnique() bool {
	return t.c.Load(atomiccell.Acquiring)&StrongMask == StrongOne
}

// IsSoleOwner reports whether the word still holds exactly its initial
// references: one strong, and no weak beyond the implicit one. A caller
// holding the strong reference may then destroy and free the block without
// a read-modify-write.
func (t *T) IsSoleOwner() bool {
	return t.c.Load(atomiccell.Acquiring) == Init
}

func (t *T) String() string {
	w := t.c.Load(atomiccell.Relaxed)
	return fmt.Sprintf("strong:%d weak:%d", Strong(w), Weak(w))
}
