package gvmheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListPushPop(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 200)
	l, err := NewList(h)
	require.NoError(t, err)
	roots.addrs = []Addr{l.Addr()}
	require.True(t, l.IsEmpty())

	_, err = l.PopFront()
	require.ErrorIs(t, err, ErrEmptyList)
	_, err = l.PopBack()
	require.ErrorIs(t, err, ErrEmptyList)
	_, err = l.Front()
	require.ErrorIs(t, err, ErrEmptyList)

	var vals []Addr
	for i := 0; i < 4; i++ {
		n, err := NewInt(h, int32(i))
		require.NoError(t, err)
		require.NoError(t, l.PushBack(n.Addr()))
		vals = append(vals, n.Addr())
	}
	require.Equal(t, 4, l.Len())
	require.Equal(t, vals, l.Values())

	back, err := l.Back()
	require.NoError(t, err)
	require.Equal(t, vals[3], back)

	x, err := l.PopFront()
	require.NoError(t, err)
	require.Equal(t, vals[0], x)
	x, err = l.PopBack()
	require.NoError(t, err)
	require.Equal(t, vals[3], x)
	require.Equal(t, vals[1:3], l.Values())

	require.NoError(t, l.PushFront(vals[0]))
	require.Equal(t, vals[:3], l.Values())

	require.True(t, l.Remove(vals[1]))
	require.False(t, l.Remove(vals[3]))
	require.Equal(t, []Addr{vals[0], vals[2]}, l.Values())
	require.Equal(t, 2, l.Len())
}

func TestListKeepsValuesAlive(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 200)
	l, err := NewList(h)
	require.NoError(t, err)
	roots.addrs = []Addr{l.Addr()}
	for i := 0; i < 3; i++ {
		n, err := NewInt(h, int32(i))
		require.NoError(t, err)
		require.NoError(t, l.PushBack(n.Addr()))
	}
	cs := h.Collect()
	require.Equal(t, 0, cs.Freed)

	_, err = l.PopFront()
	require.NoError(t, err)
	cs = h.Collect()
	// the entry and the Int it held
	require.Equal(t, 4+2, cs.Freed)
	for i, v := range l.Values() {
		require.Equal(t, int32(i+1), h.Int(v).Value())
	}
}

func TestQueue(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 200)
	q, err := NewQueue(h)
	require.NoError(t, err)
	roots.addrs = []Addr{q.Addr()}
	for i := 0; i < 3; i++ {
		n, err := NewInt(h, int32(i))
		require.NoError(t, err)
		require.NoError(t, q.Enqueue(n.Addr()))
	}
	h.Collect()
	for i := 0; i < 3; i++ {
		x, err := q.Dequeue()
		require.NoError(t, err)
		require.Equal(t, int32(i), h.Int(x).Value())
	}
	_, err = q.Dequeue()
	require.ErrorIs(t, err, ErrEmptyList)
}

func TestContextStacks(t *testing.T) {
	t.Parallel()
	h, roots := newTestHeap(t, 300)
	c, err := NewContext(h, 3, 10, 0)
	require.NoError(t, err)
	roots.addrs = []Addr{c.Addr()}
	require.Equal(t, uint32(3), c.ID())
	require.Equal(t, 10, c.PC())
	require.False(t, c.Blocked())
	c.SetBlocked(true)
	require.True(t, c.Blocked())

	for i := 0; i < 3; i++ {
		n, err := NewInt(h, int32(i))
		require.NoError(t, err)
		require.NoError(t, c.Push(n.Addr()))
	}
	h.Collect()
	top, err := c.Peek()
	require.NoError(t, err)
	require.Equal(t, int32(2), h.Int(top).Value())

	xs, err := c.PopN(2)
	require.NoError(t, err)
	require.Equal(t, int32(1), h.Int(xs[0]).Value())
	require.Equal(t, int32(2), h.Int(xs[1]).Value())
	_, err = c.PopN(2)
	require.ErrorIs(t, err, ErrEmptyList)
}
