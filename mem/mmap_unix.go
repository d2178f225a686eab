//go:build unix

package mem

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

var pageSize = uintptr(os.Getpagesize())

// zeroBlock is handed out for layouts with a nonzero count of zero sized
// values. No mapping backs it.
var zeroBlock [0]uint64

func pageRound(n uintptr) uintptr { return (n + pageSize - 1) &^ (pageSize - 1) }

// Mmap allocates blocks from private anonymous page mappings outside of the
// Go heap. The garbage collector never scans them, so layouts holding Go
// pointers are rejected with ErrPointers. Mapping failures such as ENOMEM
// are returned as *AllocError.
type Mmap struct{}

func (Mmap) Allocate(l Layout) (ptr, error) {
	size, ok := l.size()
	switch {
	case !ok:
		return nil, allocError(l, ErrSize)
	case l.Count == 0:
		return nil, nil
	case l.HasPointers():
		return nil, allocError(l, ErrPointers)
	case l.Align() > pageSize:
		return nil, allocError(l, ErrAlign)
	case size == 0:
		return ptr(&zeroBlock), nil
	}

	b, err := unix.Mmap(-1, 0, int(pageRound(size)),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, allocError(l, err)
	}
	return ptr(unsafe.SliceData(b)), nil
}

func (Mmap) Deallocate(p ptr, l Layout) {
	if p == nil || p == ptr(&zeroBlock) {
		return
	}
	b := unsafe.Slice((*byte)(p), pageRound(l.Size()))
	if err := unix.Munmap(b); err != nil {
		panic(fmt.Sprintf("mem: munmap %p (%v): %v", p, l, err))
	}
}
