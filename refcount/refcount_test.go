package refcount

import (
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/zeebo/assert"
	"golang.org/x/sync/errgroup"

	"github.com/histdb/memkit/atomiccell"
	"github.com/histdb/memkit/testhelp"
)

func TestWord(t *testing.T) {
	var rc T
	rc.Init()

	assert.Equal(t, rc.Load(atomiccell.Relaxed), Init)
	assert.True(t, rc.IsUnique())
	assert.True(t, rc.IsSoleOwner())

	rc.IncrementStrong()
	assert.False(t, rc.IsUnique())
	assert.False(t, rc.IsSoleOwner())
	assert.Equal(t, rc.String(), "strong:2 weak:1")

	old, new := rc.DecrementStrong()
	assert.Equal(t, Strong(old), uint32(2))
	assert.Equal(t, Strong(new), uint32(1))
	assert.True(t, rc.IsSoleOwner())

	rc.IncrementWeak()
	assert.True(t, rc.IsUnique())
	assert.False(t, rc.IsSoleOwner())

	old, new = rc.DecrementWeak()
	assert.Equal(t, Weak(old), uint32(2))
	assert.Equal(t, Weak(new), uint32(1))
	assert.Equal(t, Strong(new), uint32(1))
}

func TestWord_Overflow(t *testing.T) {
	var rc T
	rc.c.Store(StrongMask|WeakOne, atomiccell.Relaxed)

	assert.True(t, testhelp.Panics(rc.IncrementStrong))
	assert.Equal(t, rc.Load(atomiccell.Relaxed), StrongMask|WeakOne)
	assert.False(t, rc.TryIncrementStrong())

	rc.c.Store(WeakMask|StrongOne, atomiccell.Relaxed)
	assert.True(t, testhelp.Panics(rc.IncrementWeak))
	assert.Equal(t, rc.Load(atomiccell.Relaxed), WeakMask|StrongOne)

	// one below saturation still increments into the all ones value
	rc.c.Store(StrongMask-1|WeakOne, atomiccell.Relaxed)
	rc.IncrementStrong()
	assert.Equal(t, Strong(rc.Load(atomiccell.Relaxed)), uint32(StrongMask))
}

func TestWord_TryIncrementStrong(t *testing.T) {
	var rc T
	rc.Init()

	assert.True(t, rc.TryIncrementStrong())
	assert.Equal(t, Strong(rc.Load(atomiccell.Relaxed)), uint32(2))

	rc.DecrementStrong()
	rc.DecrementStrong()
	assert.False(t, rc.TryIncrementStrong())
	assert.Equal(t, rc.Load(atomiccell.Relaxed), WeakOne)
}

func TestWord_Concurrent(t *testing.T) {
	var (
		rc       T
		eg       errgroup.Group
		zeroes   atomic.Int64
		promoted atomic.Int64
		procs    = runtime.GOMAXPROCS(-1) + 1
	)
	rc.Init()

	// every goroutine holds a weak reference and tries to promote it while
	// the strong references are being dropped.
	for range procs {
		rc.IncrementStrong()
		rc.IncrementWeak()
	}

	for range procs {
		eg.Go(func() error {
			for range 1000 {
				if rc.TryIncrementStrong() {
					promoted.Add(1)
					if old, _ := rc.DecrementStrong(); old&StrongMask == StrongOne {
						zeroes.Add(1)
					}
				}
			}
			if old, _ := rc.DecrementStrong(); old&StrongMask == StrongOne {
				zeroes.Add(1)
			}
			rc.DecrementWeak()
			return nil
		})
	}

	if old, _ := rc.DecrementStrong(); old&StrongMask == StrongOne {
		zeroes.Add(1)
	}
	assert.NoError(t, eg.Wait())

	assert.Equal(t, zeroes.Load(), int64(1))
	assert.Equal(t, rc.Load(atomiccell.Relaxed), WeakOne)
	assert.False(t, rc.TryIncrementStrong())
}
