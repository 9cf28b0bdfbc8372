package gvmheap

const (
	ctxID      = 0
	ctxPC      = 1
	ctxBlocked = 2
	ctxEnv     = 3
	ctxOps     = 4
	ctxScopes  = 5
)

// Context is the execution state of one goroutine.
// The operand stack and scope stack are Lists owned by the Context.
type Context struct{ Node }

func NewContext(h *Heap, id uint32, pc int, env Addr) (Context, error) {
	defer h.Pin(env)()
	a, err := h.Allocate(TagContext, 7)
	if err != nil {
		return Context{}, err
	}
	defer h.Pin(a)()
	h.setField(a, ctxID, id)
	h.setIntField(a, ctxPC, pc)
	h.setAddrField(a, ctxEnv, env)
	ops, err := NewList(h)
	if err != nil {
		return Context{}, err
	}
	h.setAddrField(a, ctxOps, ops.a)
	scopes, err := NewList(h)
	if err != nil {
		return Context{}, err
	}
	h.setAddrField(a, ctxScopes, scopes.a)
	return h.Context(a), nil
}

func (h *Heap) Context(a Addr) Context {
	return Context{h.Node(a)}
}

func (c Context) ID() uint32 {
	return c.h.field(c.a, ctxID)
}

func (c Context) PC() int {
	return c.h.intField(c.a, ctxPC)
}

func (c Context) SetPC(pc int) {
	c.h.setIntField(c.a, ctxPC, pc)
}

func (c Context) Blocked() bool {
	return c.h.field(c.a, ctxBlocked) != 0
}

func (c Context) SetBlocked(yes bool) {
	var w uint32
	if yes {
		w = 1
	}
	c.h.setField(c.a, ctxBlocked, w)
}

func (c Context) Env() Env {
	return c.h.Env(c.h.addrField(c.a, ctxEnv))
}

func (c Context) SetEnv(e Addr) {
	c.h.setAddrField(c.a, ctxEnv, e)
}

// OpStack is the operand stack, the back of the list is the top.
func (c Context) OpStack() List {
	return c.h.List(c.h.addrField(c.a, ctxOps))
}

// ScopeStack holds the environments and call frames saved by enclosing blocks and calls.
func (c Context) ScopeStack() List {
	return c.h.List(c.h.addrField(c.a, ctxScopes))
}

func (c Context) Push(x Addr) error {
	return c.OpStack().PushBack(x)
}

func (c Context) Pop() (Addr, error) {
	return c.OpStack().PopBack()
}

func (c Context) Peek() (Addr, error) {
	return c.OpStack().Back()
}

// PopN pops n values, returning them in the order they were pushed.
func (c Context) PopN(n int) ([]Addr, error) {
	if n < 0 || n > c.OpStack().Len() {
		return nil, ErrEmptyList
	}
	ret := make([]Addr, n)
	for i := n - 1; i >= 0; i-- {
		x, err := c.Pop()
		if err != nil {
			return nil, err
		}
		ret[i] = x
	}
	return ret, nil
}

func (c Context) PushScope(x Addr) error {
	return c.ScopeStack().PushBack(x)
}

func (c Context) PopScope() (Addr, error) {
	return c.ScopeStack().PopBack()
}
