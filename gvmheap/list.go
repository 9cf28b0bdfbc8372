package gvmheap

const (
	listHead = 0
	listTail = 1
	listLen  = 2

	entryPrev  = 0
	entryNext  = 1
	entryValue = 2
)

// List is a doubly linked list with sentinel head and tail entries.
type List struct{ Node }

func NewList(h *Heap) (List, error) {
	a, err := h.Allocate(TagList, 4)
	if err != nil {
		return List{}, err
	}
	defer h.Pin(a)()
	head, err := h.Allocate(TagEntry, 4)
	if err != nil {
		return List{}, err
	}
	h.setAddrField(a, listHead, head)
	tail, err := h.Allocate(TagEntry, 4)
	if err != nil {
		return List{}, err
	}
	h.setAddrField(a, listTail, tail)
	h.setAddrField(head, entryNext, tail)
	h.setAddrField(tail, entryPrev, head)
	return h.List(a), nil
}

func (h *Heap) List(a Addr) List {
	return List{h.Node(a)}
}

func (l List) head() Addr {
	return l.h.addrField(l.a, listHead)
}

func (l List) tail() Addr {
	return l.h.addrField(l.a, listTail)
}

func (l List) Len() int {
	return int(l.h.field(l.a, listLen))
}

func (l List) IsEmpty() bool {
	return l.h.addrField(l.head(), entryNext) == l.tail()
}

func (l List) PushFront(x Addr) error {
	return l.insertAfter(l.head(), x)
}

func (l List) PushBack(x Addr) error {
	return l.insertAfter(l.h.addrField(l.tail(), entryPrev), x)
}

func (l List) PopFront() (Addr, error) {
	if l.IsEmpty() {
		return 0, ErrEmptyList
	}
	return l.unlink(l.h.addrField(l.head(), entryNext)), nil
}

func (l List) PopBack() (Addr, error) {
	if l.IsEmpty() {
		return 0, ErrEmptyList
	}
	return l.unlink(l.h.addrField(l.tail(), entryPrev)), nil
}

// Front returns the first value without removing it.
func (l List) Front() (Addr, error) {
	if l.IsEmpty() {
		return 0, ErrEmptyList
	}
	return l.h.addrField(l.h.addrField(l.head(), entryNext), entryValue), nil
}

// Back returns the last value without removing it.
func (l List) Back() (Addr, error) {
	if l.IsEmpty() {
		return 0, ErrEmptyList
	}
	return l.h.addrField(l.h.addrField(l.tail(), entryPrev), entryValue), nil
}

// Remove unlinks the first entry holding x.
// It returns false if no entry holds x.
func (l List) Remove(x Addr) bool {
	h := l.h
	for e := h.addrField(l.head(), entryNext); e != l.tail(); e = h.addrField(e, entryNext) {
		if h.addrField(e, entryValue) == x {
			l.unlink(e)
			return true
		}
	}
	return false
}

// Values returns the values from front to back.
func (l List) Values() []Addr {
	h := l.h
	ret := make([]Addr, 0, l.Len())
	for e := h.addrField(l.head(), entryNext); e != l.tail(); e = h.addrField(e, entryNext) {
		ret = append(ret, h.addrField(e, entryValue))
	}
	return ret
}

func (l List) insertAfter(prev Addr, x Addr) error {
	h := l.h
	defer h.Pin(l.a, prev, x)()
	e, err := h.Allocate(TagEntry, 4)
	if err != nil {
		return err
	}
	next := h.addrField(prev, entryNext)
	h.setAddrField(e, entryPrev, prev)
	h.setAddrField(e, entryNext, next)
	h.setAddrField(e, entryValue, x)
	h.setAddrField(prev, entryNext, e)
	h.setAddrField(next, entryPrev, e)
	h.setField(l.a, listLen, uint32(l.Len()+1))
	return nil
}

func (l List) unlink(e Addr) Addr {
	h := l.h
	prev, next := h.addrField(e, entryPrev), h.addrField(e, entryNext)
	h.setAddrField(prev, entryNext, next)
	h.setAddrField(next, entryPrev, prev)
	h.setField(l.a, listLen, uint32(l.Len()-1))
	return h.addrField(e, entryValue)
}

// Queue is a FIFO of addresses, backed by a List.
type Queue struct{ Node }

func NewQueue(h *Heap) (Queue, error) {
	a, err := h.Allocate(TagQueue, 2)
	if err != nil {
		return Queue{}, err
	}
	defer h.Pin(a)()
	l, err := NewList(h)
	if err != nil {
		return Queue{}, err
	}
	h.setAddrField(a, 0, l.a)
	return h.Queue(a), nil
}

func (h *Heap) Queue(a Addr) Queue {
	return Queue{h.Node(a)}
}

func (q Queue) list() List {
	return q.h.List(q.h.addrField(q.a, 0))
}

func (q Queue) Len() int {
	return q.list().Len()
}

func (q Queue) Enqueue(x Addr) error {
	return q.list().PushBack(x)
}

func (q Queue) Dequeue() (Addr, error) {
	return q.list().PopFront()
}

func (q Queue) Remove(x Addr) bool {
	return q.list().Remove(x)
}

func (q Queue) Values() []Addr {
	return q.list().Values()
}
