package gvmheap

// Package is a handle to a built-in package.
type Package struct{ Node }

func NewPackage(h *Heap, id int) (Package, error) {
	a, err := h.Allocate(TagPackage, 2)
	if err != nil {
		return Package{}, err
	}
	h.setField(a, 0, uint32(id))
	return h.Package(a), nil
}

func (h *Heap) Package(a Addr) Package {
	return Package{h.Node(a)}
}

func (p Package) ID() int {
	return int(p.h.field(p.a, 0))
}

// Builtin is a function member of a built-in package.
type Builtin struct{ Node }

func NewBuiltin(h *Heap, pkg, fn int) (Builtin, error) {
	a, err := h.Allocate(TagBuiltin, 3)
	if err != nil {
		return Builtin{}, err
	}
	h.setField(a, 0, uint32(pkg))
	h.setField(a, 1, uint32(fn))
	return h.Builtin(a), nil
}

func (h *Heap) Builtin(a Addr) Builtin {
	return Builtin{h.Node(a)}
}

func (b Builtin) Package() int {
	return int(b.h.field(b.a, 0))
}

func (b Builtin) Func() int {
	return int(b.h.field(b.a, 1))
}

// Func is a closure: an entry point and the Env it was created in.
type Func struct{ Node }

func NewFunc(h *Heap, pc int, env Addr, arity, frameSize int) (Func, error) {
	defer h.Pin(env)()
	a, err := h.Allocate(TagFunc, 5)
	if err != nil {
		return Func{}, err
	}
	h.setIntField(a, 0, pc)
	h.setAddrField(a, 1, env)
	h.setIntField(a, 2, arity)
	h.setIntField(a, 3, frameSize)
	return h.Func(a), nil
}

func (h *Heap) Func(a Addr) Func {
	return Func{h.Node(a)}
}

func (f Func) PC() int {
	return f.h.intField(f.a, 0)
}

func (f Func) Env() Env {
	return f.h.Env(f.h.addrField(f.a, 1))
}

func (f Func) Arity() int {
	return f.h.intField(f.a, 2)
}

func (f Func) FrameSize() int {
	return f.h.intField(f.a, 3)
}

// CallFrame records where to resume after a call returns.
type CallFrame struct{ Node }

func NewCallFrame(h *Heap, pc int, env Addr) (CallFrame, error) {
	defer h.Pin(env)()
	a, err := h.Allocate(TagCallFrame, 3)
	if err != nil {
		return CallFrame{}, err
	}
	h.setIntField(a, 0, pc)
	h.setAddrField(a, 1, env)
	return h.CallFrame(a), nil
}

func (h *Heap) CallFrame(a Addr) CallFrame {
	return CallFrame{h.Node(a)}
}

func (c CallFrame) PC() int {
	return c.h.intField(c.a, 0)
}

func (c CallFrame) Env() Env {
	return c.h.Env(c.h.addrField(c.a, 1))
}

// WaitGroup is a counter with a list of Contexts waiting for it to reach zero.
type WaitGroup struct{ Node }

func NewWaitGroup(h *Heap) (WaitGroup, error) {
	a, err := h.Allocate(TagWaitGroup, 3)
	if err != nil {
		return WaitGroup{}, err
	}
	defer h.Pin(a)()
	l, err := NewList(h)
	if err != nil {
		return WaitGroup{}, err
	}
	h.setAddrField(a, 1, l.a)
	return h.WaitGroup(a), nil
}

func (h *Heap) WaitGroup(a Addr) WaitGroup {
	return WaitGroup{h.Node(a)}
}

func (w WaitGroup) Count() int {
	return w.h.intField(w.a, 0)
}

func (w WaitGroup) SetCount(n int) {
	w.h.setIntField(w.a, 0, n)
}

func (w WaitGroup) Waiters() List {
	return w.h.List(w.h.addrField(w.a, 1))
}

// Mutex is a lock flag with a list of Contexts waiting to acquire it.
type Mutex struct{ Node }

func NewMutex(h *Heap) (Mutex, error) {
	a, err := h.Allocate(TagMutex, 3)
	if err != nil {
		return Mutex{}, err
	}
	defer h.Pin(a)()
	l, err := NewList(h)
	if err != nil {
		return Mutex{}, err
	}
	h.setAddrField(a, 1, l.a)
	return h.Mutex(a), nil
}

func (h *Heap) Mutex(a Addr) Mutex {
	return Mutex{h.Node(a)}
}

func (m Mutex) Locked() bool {
	return m.h.field(m.a, 0) != 0
}

func (m Mutex) SetLocked(yes bool) {
	var w uint32
	if yes {
		w = 1
	}
	m.h.setField(m.a, 0, w)
}

func (m Mutex) Waiters() List {
	return m.h.List(m.h.addrField(m.a, 1))
}
