package mem

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Tracking wraps an allocator and keeps account of every block it hands
// out. Deallocating a block it does not consider live (a double free, or a
// block from another allocator) panics.
//
// The zero value tracks Heap allocations and does not log.
type Tracking struct {
	_ [0]func() // no equality

	Allocator Allocator    // nil means Heap
	Logger    *slog.Logger // nil means silent

	mu     sync.Mutex
	live   *roaring64.Bitmap // addresses of live blocks with a nonzero size
	empty  int               // live blocks with a zero size share addresses
	allocs uint64
	frees  uint64
	bytes  uint64
}

func (t *Tracking) log(msg string, p ptr, l Layout) {
	if t.Logger == nil || !t.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	t.Logger.Debug(msg,
		slog.String("addr", fmt.Sprintf("%p", p)),
		slog.String("type", l.Type.String()),
		slog.Int("count", l.Count),
	)
}

func (t *Tracking) Allocate(l Layout) (ptr, error) {
	p, err := OrHeap(t.Allocator).Allocate(l)
	if err != nil {
		if t.Logger != nil {
			t.Logger.Warn("allocation failed", slog.String("layout", l.String()), slog.Any("err", err))
		}
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	t.mu.Lock()
	if t.live == nil {
		t.live = roaring64.New()
	}
	size := l.Size()
	if size == 0 {
		t.empty++
	} else if !t.live.CheckedAdd(uint64(uintptr(p))) {
		t.mu.Unlock()
		panic(fmt.Sprintf("mem: allocator returned live block %p", p))
	}
	t.allocs++
	t.bytes += uint64(size)
	t.mu.Unlock()

	t.log("allocate", p, l)
	return p, nil
}

func (t *Tracking) Deallocate(p ptr, l Layout) {
	if p == nil {
		return
	}

	t.mu.Lock()
	size := l.Size()
	switch {
	case size == 0 && t.empty > 0:
		t.empty--
	case size != 0 && t.live != nil && t.live.CheckedRemove(uint64(uintptr(p))):
	default:
		t.mu.Unlock()
		panic(fmt.Sprintf("mem: deallocating block that is not live: %p (%v)", p, l))
	}
	t.frees++
	t.bytes -= uint64(size)
	t.mu.Unlock()

	t.log("deallocate", p, l)
	OrHeap(t.Allocator).Deallocate(p, l)
}

// Live returns the number of blocks allocated and not yet deallocated.
func (t *Tracking) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.empty
	if t.live != nil {
		n += int(t.live.GetCardinality())
	}
	return n
}

// LiveBytes returns the total size of the live blocks.
func (t *Tracking) LiveBytes() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.bytes
}

// Allocations returns the number of blocks ever allocated.
func (t *Tracking) Allocations() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.allocs
}

// Deallocations returns the number of blocks ever deallocated.
func (t *Tracking) Deallocations() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.frees
}

// Dump writes the addresses of the live blocks to w.
func (t *Tracking) Dump(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(w, "allocs:%d frees:%d bytes:%d empty:%d\n", t.allocs, t.frees, t.bytes, t.empty)
	if t.live == nil {
		return
	}
	for it := t.live.Iterator(); it.HasNext(); {
		fmt.Fprintf(w, "live[%#x]\n", it.Next())
	}
}
