package gvmheap

type Int struct{ Node }

func NewInt(h *Heap, x int32) (Int, error) {
	a, err := h.Allocate(TagInt, 2)
	if err != nil {
		return Int{}, err
	}
	n := h.Int(a)
	n.Set(x)
	return n, nil
}

func (h *Heap) Int(a Addr) Int {
	return Int{h.Node(a)}
}

func (n Int) Value() int32 {
	return int32(n.h.field(n.a, 0))
}

func (n Int) Set(x int32) {
	n.h.setField(n.a, 0, uint32(x))
}

type Float struct{ Node }

func NewFloat(h *Heap, x float32) (Float, error) {
	a, err := h.Allocate(TagFloat, 2)
	if err != nil {
		return Float{}, err
	}
	n := h.Float(a)
	n.Set(x)
	return n, nil
}

func (h *Heap) Float(a Addr) Float {
	return Float{h.Node(a)}
}

func (n Float) Value() float32 {
	return n.h.mem.GetFloat32(int(n.a) + 1)
}

func (n Float) Set(x float32) {
	n.h.mem.SetFloat32(int(n.a)+1, x)
}

type Bool struct{ Node }

func NewBool(h *Heap, x bool) (Bool, error) {
	a, err := h.Allocate(TagBool, 2)
	if err != nil {
		return Bool{}, err
	}
	n := h.Bool(a)
	n.Set(x)
	return n, nil
}

func (h *Heap) Bool(a Addr) Bool {
	return Bool{h.Node(a)}
}

func (n Bool) Value() bool {
	return n.h.field(n.a, 0) != 0
}

func (n Bool) Set(x bool) {
	var w uint32
	if x {
		w = 1
	}
	n.h.setField(n.a, 0, w)
}

// String is an immutable byte string.
// The bytes are packed densely into the words after the length.
type String struct{ Node }

func NewString(h *Heap, x string) (String, error) {
	wb := h.mem.WordBytes()
	a, err := h.Allocate(TagString, 2+divCeil(len(x), wb))
	if err != nil {
		return String{}, err
	}
	h.setField(a, 0, uint32(len(x)))
	base := int(a) + 2
	bits := h.mem.WordBits()
	for i := 0; i < len(x); i++ {
		pos := i * 8
		h.mem.SetBits(uint64(x[i]), base+pos/bits, 8, pos%bits)
	}
	return h.Str(a), nil
}

func (h *Heap) Str(a Addr) String {
	return String{h.Node(a)}
}

func (n String) Len() int {
	return int(n.h.field(n.a, 0))
}

func (n String) Value() string {
	l := n.Len()
	buf := make([]byte, l)
	base := int(n.a) + 2
	bits := n.h.mem.WordBits()
	for i := range buf {
		pos := i * 8
		buf[i] = byte(n.h.mem.GetBits(base+pos/bits, 8, pos%bits))
	}
	return string(buf)
}

// Copy overwrites the value of the primitive node at dst with the value at src.
// Both nodes must have the same primitive tag; the identity of dst is unchanged.
func (h *Heap) Copy(dst, src Addr) error {
	sn, dn := h.Node(src), h.Node(dst)
	st := sn.Tag()
	if !st.IsPrimitive() {
		return ErrTypeMismatch{Want: []Tag{TagInt, TagFloat, TagBool}, Have: st}
	}
	if err := dn.Expect(st); err != nil {
		return err
	}
	h.setField(dst, 0, h.field(src, 0))
	return nil
}

// Clone returns a new node holding the same value as src if src is a primitive.
// Any other node is returned as is, since it is shared by reference.
func (h *Heap) Clone(src Addr) (Addr, error) {
	tag := h.Node(src).Tag()
	if !tag.IsPrimitive() {
		return src, nil
	}
	defer h.Pin(src)()
	a, err := h.Allocate(tag, 2)
	if err != nil {
		return 0, err
	}
	if err := h.Copy(a, src); err != nil {
		return 0, err
	}
	return a, nil
}
