package gvmheap

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// testRoots is a settable root set for tests
type testRoots struct {
	addrs []Addr
}

func (r *testRoots) each(yield func(Addr)) {
	for _, a := range r.addrs {
		yield(a)
	}
}

func newTestHeap(t testing.TB, words int) (*Heap, *testRoots) {
	h, err := New(Config{WordBytes: 4, Words: words})
	require.NoError(t, err)
	roots := &testRoots{}
	h.SetRoots(roots.each)
	return h, roots
}

func TestNew(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 100)
	require.Equal(t, TagNil, h.Node(0).Tag())
	require.Equal(t, 99, h.FreeWords())

	_, err := New(Config{WordBytes: 2, Words: 100})
	require.Error(t, err)
	_, err = New(Config{WordBytes: 4, Words: MaxWords + 1})
	require.Error(t, err)
	_, err = New(Config{WordBytes: 8, Words: 100})
	require.NoError(t, err)
}

func TestReclaim(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 101)
	for {
		n, err := NewInt(h, int32(len(roots.addrs)))
		if err != nil {
			require.True(t, errors.Is(err, ErrOutOfMemory), "%v", err)
			break
		}
		roots.addrs = append(roots.addrs, n.Addr())
	}
	require.Len(t, roots.addrs, 50)
	require.EqualValues(t, 1, h.Stats().Collections)

	// drop every other root
	var kept []Addr
	for i, a := range roots.addrs {
		if i%2 == 0 {
			kept = append(kept, a)
		}
	}
	roots.addrs = kept
	for i := 0; i < 25; i++ {
		n, err := NewInt(h, -1)
		require.NoError(t, err)
		roots.addrs = append(roots.addrs, n.Addr())
	}
	require.Equal(t, 101, h.Words())
	_, err := NewInt(h, 0)
	require.ErrorIs(t, err, ErrOutOfMemory)

	// the survivors still hold their values
	for i, a := range kept {
		require.Equal(t, int32(2*i), h.Int(a).Value())
	}
}

func TestHeapTooSmall(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 10)
	_, err := h.Allocate(TagArray, 10)
	require.ErrorAs(t, err, &ErrHeapTooSmall{})
	_, err = NewArray(h, make([]Addr, 20))
	require.ErrorAs(t, err, &ErrHeapTooSmall{})
}

func TestOversizedCounts(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 100)
	for _, n := range []int{99, MaxWords, math.MaxInt} {
		_, err := NewFrame(h, n)
		require.ErrorAs(t, err, &ErrHeapTooSmall{}, "frame %d", n)
		_, err = NewArrayFunc(h, n, func(int) (Addr, error) { return 0, nil })
		require.ErrorAs(t, err, &ErrHeapTooSmall{}, "array %d", n)
	}
	c, err := NewContext(h, 1, 0, 0)
	require.NoError(t, err)
	require.NoError(t, c.Push(0))
	_, err = c.PopN(math.MaxInt)
	require.ErrorIs(t, err, ErrEmptyList)
	require.Equal(t, 1, c.OpStack().Len())
	_, err = c.PopN(-1)
	require.ErrorIs(t, err, ErrEmptyList)

	// the largest frame that fits is still allocated once everything else is garbage
	f, err := NewFrame(h, 98)
	require.NoError(t, err)
	require.Equal(t, 98, f.Len())
}

func TestPin(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 100)
	n, err := NewInt(h, 7)
	require.NoError(t, err)

	unpin := h.Pin(n.Addr())
	require.Equal(t, 1, h.PinDepth())
	cs := h.Collect()
	require.Equal(t, 0, cs.Freed)
	require.Equal(t, int32(7), n.Value())

	unpin()
	require.Equal(t, 0, h.PinDepth())
	cs = h.Collect()
	require.Equal(t, 2, cs.Freed)
}

func TestPinNested(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 100)
	func() {
		defer h.Pin(1, 2)()
		func() {
			defer h.Pin(3)()
			require.Equal(t, 3, h.PinDepth())
		}()
		require.Equal(t, 2, h.PinDepth())
	}()
	require.Equal(t, 0, h.PinDepth())
}

func TestCoalesce(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 101)
	var ns []Int
	for i := 0; i < 5; i++ {
		n, err := NewInt(h, int32(i))
		require.NoError(t, err)
		ns = append(ns, n)
	}
	roots.addrs = []Addr{ns[2].Addr()}
	cs := h.Collect()
	require.Equal(t, 8, cs.Freed)
	require.Equal(t, 1+2, cs.Live)
	// [1,5) and [7,101)
	require.Equal(t, []span{{1, 4}, {7, 94}}, h.free)

	roots.addrs = nil
	h.Collect()
	require.Equal(t, []span{{1, 100}}, h.free)
}

func TestBuildUnderPressure(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 64)
	for i := 0; i < 25; i++ {
		_, err := NewInt(h, -1)
		require.NoError(t, err)
	}
	require.Equal(t, 13, h.FreeWords())

	arr, err := NewArrayFunc(h, 5, func(i int) (Addr, error) {
		n, err := NewInt(h, int32(i*10))
		return n.Addr(), err
	})
	require.NoError(t, err)
	require.Equal(t, 0, h.PinDepth())
	require.GreaterOrEqual(t, h.Stats().Collections, uint64(1))
	for i := 0; i < 5; i++ {
		e, err := arr.Get(i)
		require.NoError(t, err)
		require.Equal(t, int32(i*10), h.Int(e).Value())
	}

	roots.addrs = []Addr{arr.Addr()}
	cs := h.Collect()
	require.Equal(t, 1+7+10, cs.Live)
}

func TestStringNode(t *testing.T) {
	t.Parallel()
	for _, wb := range []int{4, 8} {
		h, err := New(Config{WordBytes: wb, Words: 64})
		require.NoError(t, err)
		for _, x := range []string{"", "a", "hello, world", "\x00\xff"} {
			s, err := NewString(h, x)
			require.NoError(t, err)
			require.Equal(t, x, s.Value())
			require.Equal(t, len(x), s.Len())
		}
	}
}

func TestCopyClone(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 100)
	a, err := NewInt(h, 1)
	require.NoError(t, err)
	b, err := NewInt(h, 2)
	require.NoError(t, err)
	require.NoError(t, h.Copy(a.Addr(), b.Addr()))
	require.Equal(t, int32(2), a.Value())

	f, err := NewFloat(h, 1.5)
	require.NoError(t, err)
	require.ErrorAs(t, h.Copy(a.Addr(), f.Addr()), &ErrTypeMismatch{})

	c, err := h.Clone(f.Addr())
	require.NoError(t, err)
	require.NotEqual(t, f.Addr(), c)
	require.Equal(t, float32(1.5), h.Float(c).Value())

	s, err := NewString(h, "x")
	require.NoError(t, err)
	c, err = h.Clone(s.Addr())
	require.NoError(t, err)
	require.Equal(t, s.Addr(), c)
}

func TestFormat(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 200)
	var elems []Addr
	for _, x := range []int32{1, 2, 3} {
		n, err := NewInt(h, x)
		require.NoError(t, err)
		elems = append(elems, n.Addr())
	}
	arr, err := NewArray(h, elems)
	require.NoError(t, err)
	require.Equal(t, "[1 2 3]", h.Format(arr.Addr()))
	sl, err := NewSlice(h, arr.Addr(), 1, 3)
	require.NoError(t, err)
	require.Equal(t, "[2 3]", h.Format(sl.Addr()))
	require.Equal(t, "<nil>", h.Format(0))
	b, err := NewBool(h, true)
	require.NoError(t, err)
	require.Equal(t, "true", h.Format(b.Addr()))
}
