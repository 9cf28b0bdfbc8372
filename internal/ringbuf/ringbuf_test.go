package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPop(t *testing.T) {
	rb := New[int](3)
	require.Equal(t, 3, rb.MaxLen())
	for i := 0; i < 3; i++ {
		require.False(t, rb.PushBack(i))
	}
	require.Equal(t, []int{0, 1, 2}, rb.Slice())
	require.True(t, rb.PushBack(3))
	require.Equal(t, []int{1, 2, 3}, rb.Slice())

	require.Equal(t, 1, rb.PopFront())
	require.Equal(t, 3, rb.PopBack())
	require.Equal(t, 1, rb.Len())
	require.Equal(t, 2, rb.At(0))
	require.Panics(t, func() { rb.At(1) })
}

func TestWrap(t *testing.T) {
	rb := New[int](4)
	for i := 0; i < 100; i++ {
		rb.PushBack(i)
	}
	require.Equal(t, []int{96, 97, 98, 99}, rb.Slice())
}
