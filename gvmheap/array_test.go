package gvmheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newIntArray(t testing.TB, h *Heap, n int) Array {
	arr, err := NewArrayFunc(h, n, func(i int) (Addr, error) {
		x, err := NewInt(h, int32(i))
		return x.Addr(), err
	})
	require.NoError(t, err)
	return arr
}

func TestArray(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 200)
	arr := newIntArray(t, h, 4)
	require.Equal(t, 4, arr.Len())
	_, err := arr.Get(4)
	require.ErrorAs(t, err, &ErrIndexOutOfRange{})
	require.Error(t, arr.Set(-1, 0))
	require.NoError(t, arr.Set(0, 0))
	require.Equal(t, "[<nil> 1 2 3]", h.Format(arr.Addr()))
}

func TestSliceWindow(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 400)
	arr := newIntArray(t, h, 8)
	roots.addrs = []Addr{arr.Addr()}
	for s := 0; s <= 8; s++ {
		for e := s; e <= 8; e++ {
			sl, err := NewSlice(h, arr.Addr(), s, e)
			require.NoError(t, err)
			require.Equal(t, e-s, sl.Len())
			require.Equal(t, 8-s, sl.Cap())
			for i := 0; i < sl.Len(); i++ {
				x, err := sl.Get(i)
				require.NoError(t, err)
				y, err := arr.Get(s + i)
				require.NoError(t, err)
				require.Equal(t, y, x)
			}
			_, err = sl.Get(sl.Len())
			require.Error(t, err)
			h.Collect()
		}
	}
}

func TestSliceBounds(t *testing.T) {
	t.Parallel()
	h, _ := newTestHeap(t, 100)
	arr := newIntArray(t, h, 3)
	for _, tc := range [][2]int{{0, 4}, {2, 1}, {-1, 2}} {
		_, err := NewSlice(h, arr.Addr(), tc[0], tc[1])
		require.ErrorAs(t, err, &ErrSliceBounds{}, "%v", tc)
	}
	sl, err := NewSlice(h, arr.Addr(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, 2, sl.Cap())
	_, err = sl.Reslice(0, 2)
	require.NoError(t, err)
	_, err = sl.Reslice(0, 3)
	require.ErrorAs(t, err, &ErrSliceBounds{})
}

func TestSliceAppend(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 400)
	arr, err := NewArray(h, nil)
	require.NoError(t, err)
	sl, err := NewSlice(h, arr.Addr(), 0, 0)
	require.NoError(t, err)
	roots.addrs = []Addr{sl.Addr()}
	for i := 0; i < 10; i++ {
		x, err := NewInt(h, int32(i))
		require.NoError(t, err)
		sl, err = sl.Append(x.Addr())
		require.NoError(t, err)
		roots.addrs = []Addr{sl.Addr()}
		require.Equal(t, i+1, sl.Len())
	}
	require.Equal(t, 16, sl.Cap())
	require.Equal(t, "[0 1 2 3 4 5 6 7 8 9]", h.Format(sl.Addr()))

	// appending to a shorter window overwrites the shared array
	short, err := sl.Reslice(0, 2)
	require.NoError(t, err)
	roots.addrs = append(roots.addrs, short.Addr())
	x, err := NewInt(h, 99)
	require.NoError(t, err)
	short, err = short.Append(x.Addr())
	require.NoError(t, err)
	require.Equal(t, "[0 1 99]", h.Format(short.Addr()))
	require.Equal(t, "[0 1 99 3 4 5 6 7 8 9]", h.Format(sl.Addr()))
}

func TestEnvLookup(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 200)
	rootFrame, err := NewFrame(h, 2)
	require.NoError(t, err)
	root, err := ExtendEnv(h, 0, rootFrame.Addr(), false, -1)
	require.NoError(t, err)
	roots.addrs = []Addr{root.Addr()}

	x, err := NewInt(h, 42)
	require.NoError(t, err)
	require.NoError(t, root.Assign(0, 1, x.Addr()))

	inner, err := NewFrame(h, 1)
	require.NoError(t, err)
	child, err := ExtendEnv(h, root.Addr(), inner.Addr(), true, 7)
	require.NoError(t, err)
	roots.addrs = []Addr{child.Addr()}
	h.Collect()

	require.True(t, child.IsLoop())
	require.Equal(t, 7, child.Site())
	require.Equal(t, -1, root.Site())
	got, err := child.Lookup(1, 1)
	require.NoError(t, err)
	require.Equal(t, int32(42), h.Int(got).Value())
	got, err = child.Lookup(0, 0)
	require.NoError(t, err)
	require.Equal(t, Addr(0), got)

	_, err = child.Lookup(2, 0)
	require.ErrorAs(t, err, &ErrScopeDepth{})
	_, err = child.Lookup(0, 1)
	require.ErrorAs(t, err, &ErrIndexOutOfRange{})
	require.Len(t, child.Chain(), 2)
}
