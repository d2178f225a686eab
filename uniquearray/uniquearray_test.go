package uniquearray

import (
	"math/bits"
	"slices"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
	"github.com/zeebo/assert"
	"github.com/zeebo/errs/v2"
	"github.com/zeebo/mwc"

	"github.com/histdb/memkit/mem"
	"github.com/histdb/memkit/rigidarray"
	"github.com/histdb/memkit/testhelp"
)

func items[E any](a *T[E]) []E { return append([]E{}, a.Span()...) }

type key uint64

func (k key) Digest() uint64 { return uint64(k) * 0x9E3779B97F4A7C15 }

func TestUnique_Growth(t *testing.T) {
	var a T[int]
	defer a.Free()

	var caps []int
	for i := range 1000 {
		a.Append(i)
		if len(caps) == 0 || caps[len(caps)-1] != a.Cap() {
			caps = append(caps, a.Cap())
		}
	}

	assert.Equal(t, a.Len(), 1000)
	assert.Equal(t, a.Cap(), 1065)
	assert.Equal(t, a.Reallocations(), 17)
	assert.DeepEqual(t, caps[:8], []int{1, 2, 3, 5, 8, 12, 18, 27})
	assert.That(t, a.Reallocations() <= 2*bits.Len(uint(a.Len())))

	for i, v := range a.All() {
		assert.Equal(t, v, i)
	}
}

func TestUnique_GrowthPolicy(t *testing.T) {
	t.Run("Bulk", func(t *testing.T) {
		a := New[int](4)
		defer a.Free()

		a.AppendCopying([]int{1, 2})
		a.AppendCopying(make([]int, 10))
		assert.Equal(t, a.Cap(), 12)
		assert.Equal(t, a.Reallocations(), 1)
	})

	t.Run("Geometric", func(t *testing.T) {
		a := New[int](10)
		defer a.Free()

		a.AppendCopying(make([]int, 10))
		a.Append(1)
		assert.Equal(t, a.Cap(), 15)
	})

	t.Run("Replace", func(t *testing.T) {
		a := Copying([]int{10, 20, 30})
		defer a.Free()

		assert.NoError(t, a.ReplaceN(1, 2, 2, func(o *Output[int]) error {
			o.Append(21)
			o.Append(22)
			return nil
		}))
		assert.DeepEqual(t, items(&a), []int{10, 21, 22, 30})
		assert.Equal(t, a.Cap(), 5)

		a.ReplaceCopying(0, 4, []int{1})
		assert.DeepEqual(t, items(&a), []int{1})
		assert.Equal(t, a.Cap(), 5)
		assert.Equal(t, a.Reallocations(), 1)
	})

	t.Run("Reserve", func(t *testing.T) {
		var a T[int]
		defer a.Free()

		a.ReserveCapacity(100)
		assert.Equal(t, a.Cap(), 100)
		a.ReserveCapacity(50)
		assert.Equal(t, a.Cap(), 100)

		a.AppendCopying(make([]int, 100))
		assert.NoError(t, a.Reserve(1))
		assert.Equal(t, a.Cap(), 150)
		assert.Equal(t, a.Reallocations(), 2)

		assert.NoError(t, a.Reallocate(100))
		assert.Equal(t, a.Cap(), 100)
		assert.True(t, testhelp.Panics(func() { _ = a.Reallocate(99) }))
	})
}

func TestUnique_Failure(t *testing.T) {
	a, err := NewIn[int](testhelp.Failing{}, 0)
	assert.NoError(t, err)

	assert.Error(t, a.Reserve(1))
	assert.Equal(t, a.Cap(), 0)
	assert.Equal(t, a.Reallocations(), 0)
	assert.True(t, testhelp.Panics(func() { a.Append(1) }))
	assert.Equal(t, a.Len(), 0)

	_, err = NewIn[int](testhelp.Failing{}, 1)
	assert.Error(t, err)
}

func TestUnique_Shape(t *testing.T) {
	a := Copying([]int{10, 20, 30})
	defer a.Free()

	a.Insert(15, 1)
	assert.DeepEqual(t, items(&a), []int{10, 15, 20, 30})
	assert.Equal(t, a.Remove(1), 15)
	assert.Equal(t, a.Remove(1), 20)
	assert.DeepEqual(t, items(&a), []int{10, 30})

	assert.NoError(t, a.InsertN(4, 1, func(o *Output[int]) error {
		o.Append(11)
		o.Append(12)
		return nil
	}))
	assert.DeepEqual(t, items(&a), []int{10, 11, 12, 30})

	a.InsertCopying([]int{1, 2}, 0)
	src := []int{3, 4}
	a.InsertMoving(src, 6)
	assert.DeepEqual(t, src, []int{0, 0})
	a.AppendMoving([]int{5})
	assert.DeepEqual(t, items(&a), []int{1, 2, 10, 11, 12, 30, 3, 4, 5})

	a.RemoveSubrange(2, 6)
	assert.DeepEqual(t, items(&a), []int{1, 2, 3, 4, 5})

	a.ReplaceMoving(0, 2, []int{7, 8, 9})
	assert.DeepEqual(t, items(&a), []int{7, 8, 9, 3, 4, 5})

	a.Swap(0, 5)
	a.Set(1, 80)
	*a.At(2) = 90
	assert.Equal(t, a.Get(0), 5)
	assert.DeepEqual(t, items(&a), []int{5, 80, 90, 3, 4, 7})

	assert.Equal(t, a.RemoveLast(), 7)
	a.RemoveLastN(2)
	v, ok := a.PopLast()
	assert.True(t, ok)
	assert.Equal(t, v, 90)
	a.RemoveAll()
	assert.True(t, a.IsEmpty())
	_, ok = a.PopLast()
	assert.False(t, ok)
	assert.True(t, testhelp.Panics(func() { a.RemoveLast() }))
	assert.True(t, testhelp.Panics(func() { a.Insert(1, 1) }))

	a.AppendSeq(slices.Values([]int{1, 2, 3}))
	assert.NoError(t, a.Edit(func(o *Output[int]) error {
		o.RemoveLast()
		return nil
	}))
	assert.DeepEqual(t, items(&a), []int{1, 2})
}

func TestUnique_PartialFill(t *testing.T) {
	a := Copying([]int{1, 2, 3})
	defer a.Free()

	err := a.AppendN(5, func(o *Output[int]) error {
		o.Append(4)
		return errs.Errorf("stop")
	})
	assert.Error(t, err)
	assert.DeepEqual(t, items(&a), []int{1, 2, 3, 4})

	assert.True(t, testhelp.Panics(func() {
		_ = a.InsertN(3, 1, func(o *Output[int]) error {
			o.Append(9)
			panic("boom")
		})
	}))
	assert.DeepEqual(t, items(&a), []int{1, 9, 2, 3, 4})
}

func TestUnique_Moving(t *testing.T) {
	a := Copying([]int{1, 2})
	b := Copying([]int{3, 4, 5})
	defer a.Free()
	defer b.Free()

	a.AppendMovingArray(&b)
	assert.DeepEqual(t, items(&a), []int{1, 2, 3, 4, 5})
	assert.Equal(t, b.Len(), 0)

	b.Append(0)
	a.InsertMovingArray(&b, 0)
	assert.DeepEqual(t, items(&a), []int{0, 1, 2, 3, 4, 5})
	assert.True(t, testhelp.Panics(func() { a.AppendMovingArray(&a) }))
	assert.True(t, testhelp.Panics(func() { a.InsertMovingArray(&a, 0) }))
}

func TestUnique_Constructors(t *testing.T) {
	r := rigidarray.Copying([]int{1, 2, 3})
	a := FromRigid(r.Take())
	defer a.Free()
	defer r.Free()

	a.Append(4)
	assert.DeepEqual(t, items(&a), []int{1, 2, 3, 4})
	assert.Equal(t, r.Len(), 0)

	b := CopyingSeq(slices.Values([]int{5, 6}))
	defer b.Free()
	assert.DeepEqual(t, items(&b), []int{5, 6})

	c := Repeating(7, 3)
	defer c.Free()
	assert.DeepEqual(t, items(&c), []int{7, 7, 7})

	d, err := Initializing(2, func(o *Output[int]) error {
		o.Append(8)
		return nil
	})
	assert.NoError(t, err)
	defer d.Free()
	assert.DeepEqual(t, items(&d), []int{8})
	assert.Equal(t, d.Cap(), 2)

	e := d.Clone()
	defer e.Free()
	e.Set(0, 9)
	assert.Equal(t, d.Get(0), 8)
	assert.False(t, d.Identical(&e))

	f := d.CloneCap(10)
	assert.Equal(t, f.Cap(), 10)
	g := f.Take()
	assert.Equal(t, g.Len(), 1)
	assert.Equal(t, f.Cap(), 0)
	f.Free()
	g.Free()
}

func TestUnique_Ownership(t *testing.T) {
	var tr mem.Tracking
	var c testhelp.Counter

	a, err := NewIn[testhelp.Elem](&tr, 0)
	assert.NoError(t, err)

	for i := range 100 {
		a.Append(c.Elem(i))
	}
	assert.Equal(t, tr.Live(), 1)
	assert.Equal(t, tr.Allocations(), uint64(a.Reallocations()))
	assert.Equal(t, c.Deinits.Load(), 0)
	assert.Equal(t, c.Clones.Load(), 0)

	a.RemoveSubrange(0, 50)
	assert.Equal(t, c.Deinits.Load(), 50)
	assert.Equal(t, a.Get(0).V, 50)
	assert.Equal(t, a.Get(0).Gen, 0)

	b := a.Clone()
	assert.Equal(t, c.Clones.Load(), 50)
	assert.Equal(t, b.Get(0).Gen, 1)
	b.Free()

	a.Free()
	assert.Equal(t, c.Deinits.Load(), 150)
	assert.Equal(t, tr.Live(), 0)
	assert.True(t, testhelp.Panics(func() { a.Append(c.Elem(0)) }))
}

func TestUnique_Compare(t *testing.T) {
	a := Copying([]key{1, 2, 3})
	b := New[key](0)
	defer a.Free()
	defer b.Free()

	for _, k := range []key{1, 2, 3} {
		b.Append(k)
	}
	assert.True(t, Equal(&a, &b))
	assert.Equal(t, Digest(&a), Digest(&b))

	b.Swap(0, 2)
	assert.False(t, Equal(&a, &b))
	assert.NotEqual(t, Digest(&a), Digest(&b))

	assert.Equal(t, a.String(), "[1 2 3] cap:3")
	assert.Equal(t, b.Size(), a.Size())
}

func TestUnique_Random(t *testing.T) {
	rng := mwc.Rand()
	var a T[int]
	defer a.Free()

	var model []int
	intn := func(n int) int { return int(rng.Uint32n(uint32(n))) }

	for i := range 5000 {
		switch rng.Uint32n(4) {
		case 0, 1:
			at := intn(len(model) + 1)
			a.Insert(i, at)
			model = slices.Insert(model, at, i)

		case 2:
			if len(model) > 0 {
				at := intn(len(model))
				assert.Equal(t, a.Remove(at), model[at])
				model = slices.Delete(model, at, at+1)
			}

		case 3:
			lo := intn(len(model) + 1)
			hi := lo + intn(len(model)-lo+1)
			add := slices.Repeat([]int{i}, intn(8))
			a.ReplaceCopying(lo, hi, add)
			model = slices.Concat(model[:lo:lo], add, model[hi:])
		}

		assert.DeepEqual(t, items(&a), append([]int{}, model...))
	}
}

func BenchmarkUnique(b *testing.B) {
	b.Run("Append", func(b *testing.B) {
		perfbench.Open(b)
		b.ReportAllocs()

		for b.Loop() {
			var a T[int]
			for i := range 1000 {
				a.Append(i)
			}
			a.Free()
		}
	})

	b.Run("AppendReserved", func(b *testing.B) {
		perfbench.Open(b)
		b.ReportAllocs()

		for b.Loop() {
			a := New[int](1000)
			for i := range 1000 {
				a.Append(i)
			}
			a.Free()
		}
	})

	b.Run("InsertRandom", func(b *testing.B) {
		at := testhelp.Ints(1000, 1000)

		perfbench.Open(b)
		b.ReportAllocs()

		for b.Loop() {
			var a T[int]
			for i, v := range at {
				a.Insert(v, v%(i+1))
			}
			a.Free()
		}
	})
}
