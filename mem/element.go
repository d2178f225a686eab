package mem

import "unsafe"

// Deinitializer is implemented by values that hold resources which must be
// released exactly once when the value is destroyed in place.
type Deinitializer interface {
	Deinit()
}

// Cloner is the duplicate capability: values implementing it are copied
// with Clone instead of a plain assignment by copy-based operations.
type Cloner[T any] interface {
	Clone() T
}

// Deinit destroys the value at p: it runs the value's Deinit hook, if any,
// and leaves the slot holding the zero value.
func Deinit[T any](p *T) {
	if d, ok := any(p).(Deinitializer); ok {
		d.Deinit()
	}
	*p = *new(T)
}

// DeinitAll destroys every value in s.
func DeinitAll[T any](s []T) {
	if _, ok := any((*T)(nil)).(Deinitializer); ok {
		for i := range s {
			any(&s[i]).(Deinitializer).Deinit()
		}
	}
	clear(s)
}

// Clone duplicates the value at p.
func Clone[T any](p *T) T {
	if c, ok := any(p).(Cloner[T]); ok {
		return c.Clone()
	}
	return *p
}

// CloneInto initializes dst with duplicates of src. They must not overlap.
func CloneInto[T any](dst, src []T) int {
	if _, ok := any((*T)(nil)).(Cloner[T]); !ok {
		return copy(dst, src)
	}
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = any(&src[i]).(Cloner[T]).Clone()
	}
	return n
}

// Move returns the value at p, leaving the zero value behind. The value's
// Deinit hook does not run: ownership moves to the caller.
func Move[T any](p *T) T {
	v := *p
	*p = *new(T)
	return v
}

// MoveInto moves values from src to dst, leaving src zeroed. The two may
// overlap.
func MoveInto[T any](dst, src []T) int {
	n := copy(dst, src)
	if n == 0 {
		return 0
	}

	// clear the part of src not covered by dst.
	s, d := uintptr(unsafe.Pointer(&src[0])), uintptr(unsafe.Pointer(&dst[0]))
	size := unsafe.Sizeof(*new(T))
	switch {
	case size == 0:
	case d > s && d < s+uintptr(n)*size:
		clear(src[:(d-s)/size])
	case s > d && s < d+uintptr(n)*size:
		clear(src[n-int((s-d)/size) : n])
	case s != d:
		clear(src[:n])
	}
	return n
}

// Slice views n values of T starting at base.
func Slice[T any](base ptr, n int) []T {
	if base == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(base), n)
}
