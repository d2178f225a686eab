package rigidarray

import (
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"
)

// Digester is implemented by elements that can be hashed.
type Digester interface {
	Digest() uint64
}

// Equal reports whether a and b hold equal elements in the same order.
func Equal[E comparable](a, b *T[E]) bool {
	return slices.Equal(a.Span(), b.Span())
}

// EqualFunc is Equal using eq to compare elements.
func EqualFunc[E any](a, b *T[E], eq func(E, E) bool) bool {
	return slices.EqualFunc(a.Span(), b.Span(), eq)
}

// Digest hashes the length and the digests of the elements.
func Digest[E Digester](a *T[E]) uint64 {
	return DigestFunc(a, func(v E) uint64 { return v.Digest() })
}

// DigestFunc is Digest using h to hash elements.
func DigestFunc[E any](a *T[E], h func(E) uint64) uint64 {
	var scratch [256]byte
	d := digestWriter{h: xxh3.New(), buf: scratch[:0]}

	s := a.Span()
	d.uint64(uint64(len(s)))
	for _, v := range s {
		d.uint64(h(v))
	}
	return d.sum()
}

// digestWriter feeds little endian words to the hasher in blocks.
type digestWriter struct {
	h   *xxh3.Hasher
	buf []byte
}

func (d *digestWriter) uint64(x uint64) {
	if len(d.buf)+8 > cap(d.buf) {
		d.flush()
	}
	d.buf = binary.LittleEndian.AppendUint64(d.buf, x)
}

//go:noinline
func (d *digestWriter) flush() {
	_, _ = d.h.Write(d.buf)
	d.buf = d.buf[:0]
}

func (d *digestWriter) sum() uint64 {
	d.flush()
	return d.h.Sum64()
}
