// Package sharedbox provides a pair of ownership handles around a single
// allocated value: T holds a strong reference that keeps the value alive,
// and Weak holds a weak reference that only keeps its storage allocated.
//
// The storage is one block holding the reference count word followed by the
// value. The value is destroyed (its mem.Deinitializer hook runs, exactly
// once) when the last strong reference goes away, and the block is returned
// to its allocator when the last weak reference does. The strong references
// collectively own one weak reference.
//
// Handles must be released with Drop (or Consume) and must not be copied;
// use Clone to obtain another reference.
package sharedbox

import (
	"fmt"
	"unsafe"

	"github.com/histdb/memkit/atomiccell"
	"github.com/histdb/memkit/mem"
	"github.com/histdb/memkit/refcount"
)

type ptr = unsafe.Pointer

// noCopy lets go vet's copylocks check flag copies of handles.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// N.B. the count must stay the first field: it is the block's header.
type storage[V any] struct {
	rc    refcount.T
	value V
}

func layout[V any]() mem.Layout { return mem.LayoutOf[storage[V]](1) }

func allocate[V any](a mem.Allocator, v V) (*storage[V], error) {
	p, err := a.Allocate(layout[V]())
	if err != nil {
		return nil, err
	}
	s := (*storage[V])(p)
	s.rc.Init()
	s.value = v
	return s, nil
}

func deallocate[V any](a mem.Allocator, s *storage[V]) {
	a.Deallocate(ptr(s), layout[V]())
}

// releaseWeak drops one weak reference to s, freeing it if it was the last.
func releaseWeak[V any](a mem.Allocator, s *storage[V]) {
	// a single weak reference left must be ours: nothing else can add one.
	if refcount.Weak(s.rc.Load(atomiccell.Relaxed)) == 1 {
		deallocate(a, s)
		return
	}
	if old, _ := s.rc.DecrementWeak(); refcount.Weak(old) == 1 {
		deallocate(a, s)
	}
}

//
// strong handle
//

// T is a strong reference to a shared value.
type T[V any] struct {
	noCopy noCopy

	s *storage[V]
	a mem.Allocator
}

// New allocates storage for v on the Go heap and returns the only strong
// reference to it.
func New[V any](v V) T[V] {
	s, err := allocate(mem.Heap{}, v)
	if err != nil {
		panic(fmt.Sprintf("sharedbox: %v", err))
	}
	return T[V]{s: s, a: mem.Heap{}}
}

// NewIn is New with storage from the allocator a. Allocation failures are
// returned.
func NewIn[V any](a mem.Allocator, v V) (T[V], error) {
	a = mem.OrHeap(a)
	s, err := allocate(a, v)
	if err != nil {
		return T[V]{}, err
	}
	return T[V]{s: s, a: a}, nil
}

func (b *T[V]) storage() *storage[V] {
	if b.s == nil {
		panic("sharedbox: use of released box")
	}
	return b.s
}

func (b *T[V]) take() (*storage[V], mem.Allocator) {
	s, a := b.storage(), b.a
	b.s, b.a = nil, nil
	return s, a
}

// Valid reports whether b still holds its reference.
func (b *T[V]) Valid() bool { return b.s != nil }

// Borrow returns a pointer to the value. It is only valid while b holds its
// reference, and the value may only be mutated through it while b is
// unique.
func (b *T[V]) Borrow() *V { return &b.storage().value }

// Value returns a copy of the value.
func (b *T[V]) Value() V { return b.storage().value }

// IsUnique reports whether b is the only strong reference. Weak references
// are not counted.
func (b *T[V]) IsUnique() bool { return b.storage().rc.IsUnique() }

// StrongCount returns the current number of strong references.
func (b *T[V]) StrongCount() int {
	return int(refcount.Strong(b.storage().rc.Load(atomiccell.Relaxed)))
}

// WeakCount returns the current number of weak references, including the
// one owned by the strong references.
func (b *T[V]) WeakCount() int {
	return int(refcount.Weak(b.storage().rc.Load(atomiccell.Relaxed)))
}

// Clone returns another strong reference to the same value.
func (b *T[V]) Clone() T[V] {
	s := b.storage()
	s.rc.IncrementStrong()
	return T[V]{s: s, a: b.a}
}

// Demote returns a weak reference to the same storage. b keeps its strong
// reference.
func (b *T[V]) Demote() Weak[V] {
	s := b.storage()
	s.rc.IncrementWeak()
	return Weak[V]{s: s, a: b.a}
}

// Drop releases b's strong reference, destroying the value if it was the
// last one. b is invalid afterwards.
func (b *T[V]) Drop() {
	s, a := b.take()

	// a word still at its initial value means nobody else ever held or can
	// obtain a reference, so the count need not be touched.
	if s.rc.IsSoleOwner() {
		mem.Deinit(&s.value)
		deallocate(a, s)
		return
	}

	if old, _ := s.rc.DecrementStrong(); old&refcount.StrongMask != refcount.StrongOne {
		return
	}
	atomiccell.Fence(atomiccell.Acquiring)

	mem.Deinit(&s.value)
	releaseWeak(a, s)
}

// Consume releases b's strong reference. If it was the last one the value
// is moved out and returned without being destroyed; otherwise the value
// stays with the remaining owners and ok is false. b is invalid afterwards.
func (b *T[V]) Consume() (v V, ok bool) {
	s, a := b.take()

	if old, _ := s.rc.DecrementStrong(); old&refcount.StrongMask != refcount.StrongOne {
		return v, false
	}
	atomiccell.Fence(atomiccell.Acquiring)

	v = mem.Move(&s.value)
	releaseWeak(a, s)
	return v, true
}

// Replace points b at freshly allocated storage holding body's result,
// releasing b's reference to the current value afterwards.
func (b *T[V]) Replace(body func(*V) V) {
	a, old := b.a, b.storage()
	s, err := allocate(a, body(&old.value))
	if err != nil {
		panic(fmt.Sprintf("sharedbox: %v", err))
	}
	b.Drop()
	b.s, b.a = s, a
}

// EnsureUnique makes b the only strong reference to its value, replacing it
// with cloner's copy of the value if it is shared. It reports whether b was
// already unique.
func (b *T[V]) EnsureUnique(cloner func(*V) V) bool {
	if b.IsUnique() {
		return true
	}
	b.Replace(cloner)
	return false
}

// MakeUnique is EnsureUnique using the value's duplicate capability.
func (b *T[V]) MakeUnique() { b.EnsureUnique(mem.Clone[V]) }

// Edit calls updater with exclusive access to the value, first copying it
// with cloner if it is shared.
func (b *T[V]) Edit(cloner func(*V) V, updater func(*V)) {
	b.EnsureUnique(cloner)
	updater(&b.s.value)
}

// WithValue calls body with the value only if b is unique, returning
// whether it did along with body's error. Shared values are never copied.
func (b *T[V]) WithValue(body func(*V) error) (bool, error) {
	if !b.IsUnique() {
		return false, nil
	}
	return true, body(&b.s.value)
}

func (b *T[V]) String() string {
	if b.s == nil {
		return "sharedbox(released)"
	}
	return fmt.Sprintf("sharedbox(%v, %v)", b.s.value, &b.s.rc)
}

//
// weak handle
//

// Weak is a weak reference to a shared value. It cannot reach the value
// but can attempt to obtain a new strong reference with Promote.
type Weak[V any] struct {
	noCopy noCopy

	s *storage[V]
	a mem.Allocator
}

func (w *Weak[V]) storage() *storage[V] {
	if w.s == nil {
		panic("sharedbox: use of released weak box")
	}
	return w.s
}

// Valid reports whether w still holds its reference.
func (w *Weak[V]) Valid() bool { return w.s != nil }

// StrongCount returns the current number of strong references.
func (w *Weak[V]) StrongCount() int {
	return int(refcount.Strong(w.storage().rc.Load(atomiccell.Relaxed)))
}

// WeakCount returns the current number of weak references, including the
// one owned by the strong references while any exist.
func (w *Weak[V]) WeakCount() int {
	return int(refcount.Weak(w.storage().rc.Load(atomiccell.Relaxed)))
}

// Clone returns another weak reference to the same storage.
func (w *Weak[V]) Clone() Weak[V] {
	s := w.storage()
	s.rc.IncrementWeak()
	return Weak[V]{s: s, a: w.a}
}

// Promote returns a new strong reference if the value is still alive. It
// fails once the last strong reference has been released, or if another
// strong reference would overflow the count.
func (w *Weak[V]) Promote() (T[V], bool) {
	s := w.storage()
	if !s.rc.TryIncrementStrong() {
		return T[V]{}, false
	}
	return T[V]{s: s, a: w.a}, true
}

// Drop releases w's weak reference, freeing the storage if it was the last
// reference of any kind. w is invalid afterwards.
func (w *Weak[V]) Drop() {
	s, a := w.storage(), w.a
	w.s, w.a = nil, nil
	releaseWeak(a, s)
}
