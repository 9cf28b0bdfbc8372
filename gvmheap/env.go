package gvmheap

// Frame is a fixed size array of variable slots for one scope activation.
// Slot indexes are resolved by the compiler.
type Frame struct{ Node }

func NewFrame(h *Heap, size int) (Frame, error) {
	a, err := h.allocateN(TagFrame, 1, size)
	if err != nil {
		return Frame{}, err
	}
	return h.Frame(a), nil
}

func (h *Heap) Frame(a Addr) Frame {
	return Frame{h.Node(a)}
}

func (f Frame) Len() int {
	return f.Size() - 1
}

func (f Frame) Get(slot int) (Addr, error) {
	if slot < 0 || slot >= f.Len() {
		return 0, ErrIndexOutOfRange{Index: slot, Len: f.Len()}
	}
	return f.h.addrField(f.a, slot), nil
}

func (f Frame) Set(slot int, x Addr) error {
	if slot < 0 || slot >= f.Len() {
		return ErrIndexOutOfRange{Index: slot, Len: f.Len()}
	}
	f.h.setAddrField(f.a, slot, x)
	return nil
}

const (
	envFrame  = 0
	envParent = 1
	envLoop   = 2
	envSite   = 3
)

// Env links a Frame to the enclosing Env, forming the scope chain.
// Site is the program counter of the instruction that created the scope,
// the root scope has site -1.
type Env struct{ Node }

// ExtendEnv returns a new Env whose parent is parent.
func ExtendEnv(h *Heap, parent, frame Addr, isLoop bool, site int) (Env, error) {
	defer h.Pin(parent, frame)()
	a, err := h.Allocate(TagEnv, 5)
	if err != nil {
		return Env{}, err
	}
	h.setAddrField(a, envFrame, frame)
	h.setAddrField(a, envParent, parent)
	if isLoop {
		h.setField(a, envLoop, 1)
	}
	h.setIntField(a, envSite, site)
	return h.Env(a), nil
}

func (h *Heap) Env(a Addr) Env {
	return Env{h.Node(a)}
}

func (e Env) Frame() Frame {
	return e.h.Frame(e.h.addrField(e.a, envFrame))
}

// Parent returns the enclosing Env, which is Nil for the root.
func (e Env) Parent() Env {
	return e.h.Env(e.h.addrField(e.a, envParent))
}

func (e Env) IsLoop() bool {
	return e.h.field(e.a, envLoop) != 0
}

func (e Env) Site() int {
	return e.h.intField(e.a, envSite)
}

// Ancestor walks depth parent links.
func (e Env) Ancestor(depth int) (Env, error) {
	cur := e
	for i := 0; i < depth; i++ {
		if cur.IsNil() {
			return Env{}, ErrScopeDepth{Depth: depth}
		}
		cur = cur.Parent()
	}
	if cur.IsNil() {
		return Env{}, ErrScopeDepth{Depth: depth}
	}
	return cur, nil
}

// Lookup returns the address stored in slot of the frame depth scopes up.
func (e Env) Lookup(depth, slot int) (Addr, error) {
	anc, err := e.Ancestor(depth)
	if err != nil {
		return 0, err
	}
	return anc.Frame().Get(slot)
}

func (e Env) Assign(depth, slot int, x Addr) error {
	anc, err := e.Ancestor(depth)
	if err != nil {
		return err
	}
	return anc.Frame().Set(slot, x)
}

// Chain returns the scope chain from e to the root.
func (e Env) Chain() (ret []Env) {
	for cur := e; !cur.IsNil(); cur = cur.Parent() {
		ret = append(ret, cur)
	}
	return ret
}
