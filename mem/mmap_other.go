//go:build !unix

package mem

import (
	"runtime"

	"github.com/zeebo/errs/v2"
)

// Mmap is unavailable on this platform; every allocation fails.
type Mmap struct{}

func (Mmap) Allocate(l Layout) (ptr, error) {
	switch {
	case l.Count == 0:
		return nil, nil
	case l.HasPointers():
		return nil, allocError(l, ErrPointers)
	}
	return nil, allocError(l, errs.Errorf("mmap unsupported on %s", runtime.GOOS))
}

func (Mmap) Deallocate(p ptr, l Layout) {}
