// package ringbuf provides a fixed capacity FIFO which forgets its oldest elements.
package ringbuf

type RingBuf[T any] struct {
	buf        []T
	head, tail int
}

func New[T any](n int) RingBuf[T] {
	if n < 1 {
		panic(n)
	}
	return RingBuf[T]{buf: make([]T, n)}
}

func (rb *RingBuf[T]) MaxLen() int {
	return len(rb.buf)
}

// PushBack appends val, dropping the front element if the buffer is full.
// It returns true if an element was dropped.
func (rb *RingBuf[T]) PushBack(val T) (dropped bool) {
	if rb.Len() == len(rb.buf) {
		rb.PopFront()
		dropped = true
	}
	rb.buf[rb.index(rb.tail)] = val
	rb.tail++
	return dropped
}

func (rb *RingBuf[T]) PopFront() T {
	val := rb.At(0)
	var zero T
	rb.buf[rb.index(rb.head)] = zero
	rb.head++
	return val
}

func (rb *RingBuf[T]) PopBack() T {
	val := rb.At(rb.Len() - 1)
	rb.tail--
	var zero T
	rb.buf[rb.index(rb.tail)] = zero
	return val
}

func (rb *RingBuf[T]) At(i int) T {
	if i < 0 || i >= rb.Len() {
		panic(i)
	}
	return rb.buf[rb.index(rb.head+i)]
}

func (rb *RingBuf[T]) Len() int {
	return rb.tail - rb.head
}

// Slice copies the elements from front to back into a new slice.
func (rb *RingBuf[T]) Slice() []T {
	ret := make([]T, rb.Len())
	for i := range ret {
		ret[i] = rb.At(i)
	}
	return ret
}

func (rb *RingBuf[T]) index(i int) int {
	n := len(rb.buf)
	return ((i % n) + n) % n
}
