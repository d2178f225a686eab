package mem

import (
	"fmt"
	"math"
	"reflect"
)

// Layout describes a block holding Count contiguous values of Type.
type Layout struct {
	Type  reflect.Type
	Count int
}

// LayoutOf returns the layout of n contiguous values of T.
func LayoutOf[T any](n int) Layout {
	return Layout{Type: reflect.TypeFor[T](), Count: n}
}

// Align is the required alignment of the block in bytes.
func (l Layout) Align() uintptr { return uintptr(l.Type.Align()) }

// Size is the size of the block in bytes. It panics if the size does not
// fit in a uintptr.
func (l Layout) Size() uintptr {
	size, ok := l.size()
	if !ok {
		panic(fmt.Sprintf("mem: layout size overflow: %v", l))
	}
	return size
}

func (l Layout) size() (uintptr, bool) {
	if l.Count < 0 {
		return 0, false
	}
	es, n := uint64(l.Type.Size()), uint64(l.Count)
	if es != 0 && n > math.MaxUint64/es {
		return 0, false
	}
	if total := es * n; total <= uint64(^uintptr(0)) {
		return uintptr(total), true
	}
	return 0, false
}

// HasPointers reports whether values of the layout's type hold references
// the Go garbage collector has to see. Such values may only live in memory
// the collector scans.
func (l Layout) HasPointers() bool { return hasPointers(l.Type) }

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false

	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())

	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false

	default:
		return true
	}
}

func (l Layout) String() string { return fmt.Sprintf("[%d]%v", l.Count, l.Type) }
