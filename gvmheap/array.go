package gvmheap

// Array is a fixed length sequence of child addresses.
type Array struct{ Node }

// NewArray allocates an Array holding elems.
func NewArray(h *Heap, elems []Addr) (Array, error) {
	defer h.Pin(elems...)()
	arr, err := allocArray(h, len(elems))
	if err != nil {
		return Array{}, err
	}
	for i, e := range elems {
		h.setAddrField(arr.a, 1+i, e)
	}
	return arr, nil
}

// NewArrayFunc allocates an Array of n elements and then fills it with the results of fn.
// The array is pinned while fn allocates its elements.
func NewArrayFunc(h *Heap, n int, fn func(i int) (Addr, error)) (Array, error) {
	arr, err := allocArray(h, n)
	if err != nil {
		return Array{}, err
	}
	defer h.Pin(arr.a)()
	for i := 0; i < n; i++ {
		e, err := fn(i)
		if err != nil {
			return Array{}, err
		}
		h.setAddrField(arr.a, 1+i, e)
	}
	return arr, nil
}

func allocArray(h *Heap, n int) (Array, error) {
	a, err := h.allocateN(TagArray, 2, n)
	if err != nil {
		return Array{}, err
	}
	h.setField(a, 0, uint32(n))
	return h.Array(a), nil
}

func (h *Heap) Array(a Addr) Array {
	return Array{h.Node(a)}
}

func (n Array) Len() int {
	return int(n.h.field(n.a, 0))
}

func (n Array) Get(i int) (Addr, error) {
	if i < 0 || i >= n.Len() {
		return 0, ErrIndexOutOfRange{Index: i, Len: n.Len()}
	}
	return n.h.addrField(n.a, 1+i), nil
}

func (n Array) Set(i int, x Addr) error {
	if i < 0 || i >= n.Len() {
		return ErrIndexOutOfRange{Index: i, Len: n.Len()}
	}
	n.h.setAddrField(n.a, 1+i, x)
	return nil
}

// Elems returns a copy of the child addresses.
func (n Array) Elems() []Addr {
	ret := make([]Addr, n.Len())
	for i := range ret {
		ret[i] = n.h.addrField(n.a, 1+i)
	}
	return ret
}

// Slice is a window [start, end) over an Array.
type Slice struct{ Node }

// NewSlice allocates a Slice over arr.
// It fails with ErrSliceBounds unless 0 <= start <= end <= arr.Len().
func NewSlice(h *Heap, arr Addr, start, end int) (Slice, error) {
	l := h.Array(arr).Len()
	if start < 0 || start > end || end > l {
		return Slice{}, ErrSliceBounds{Low: start, High: end, Cap: l}
	}
	defer h.Pin(arr)()
	a, err := h.Allocate(TagSlice, 4)
	if err != nil {
		return Slice{}, err
	}
	h.setAddrField(a, 0, arr)
	h.setIntField(a, 1, start)
	h.setIntField(a, 2, end)
	return h.Slice(a), nil
}

func (h *Heap) Slice(a Addr) Slice {
	return Slice{h.Node(a)}
}

func (s Slice) Array() Array {
	return s.h.Array(s.h.addrField(s.a, 0))
}

func (s Slice) Start() int {
	return s.h.intField(s.a, 1)
}

func (s Slice) End() int {
	return s.h.intField(s.a, 2)
}

func (s Slice) Len() int {
	return s.End() - s.Start()
}

func (s Slice) Cap() int {
	return s.Array().Len() - s.Start()
}

func (s Slice) Get(i int) (Addr, error) {
	if i < 0 || i >= s.Len() {
		return 0, ErrIndexOutOfRange{Index: i, Len: s.Len()}
	}
	return s.Array().Get(s.Start() + i)
}

func (s Slice) Set(i int, x Addr) error {
	if i < 0 || i >= s.Len() {
		return ErrIndexOutOfRange{Index: i, Len: s.Len()}
	}
	return s.Array().Set(s.Start()+i, x)
}

// Elems returns a copy of the addresses visible through the slice.
func (s Slice) Elems() []Addr {
	return s.Array().Elems()[s.Start():s.End()]
}

// Reslice returns a new Slice [lo, hi) relative to s, sharing the same Array.
// hi may extend up to the capacity of s.
func (s Slice) Reslice(lo, hi int) (Slice, error) {
	if lo < 0 || lo > hi || hi > s.Cap() {
		return Slice{}, ErrSliceBounds{Low: lo, High: hi, Cap: s.Cap()}
	}
	return NewSlice(s.h, s.Array().a, s.Start()+lo, s.Start()+hi)
}

// Append returns a slice with x added after the last element of s.
// The backing Array is reused while there is capacity, otherwise it is
// replaced by one twice as large.
func (s Slice) Append(x Addr) (Slice, error) {
	h := s.h
	defer h.Pin(s.a, x)()
	n := s.Len()
	if n < s.Cap() {
		arr := s.Array()
		if err := arr.Set(s.Start()+n, x); err != nil {
			return Slice{}, err
		}
		return NewSlice(h, arr.a, s.Start(), s.End()+1)
	}
	elems := s.Elems()
	arr, err := NewArrayFunc(h, max(1, 2*n), func(i int) (Addr, error) {
		switch {
		case i < n:
			return elems[i], nil
		case i == n:
			return x, nil
		default:
			return 0, nil
		}
	})
	if err != nil {
		return Slice{}, err
	}
	return NewSlice(h, arr.a, 0, n+1)
}
