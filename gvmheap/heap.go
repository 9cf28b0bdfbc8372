// package gvmheap implements the heap of the goroutine virtual machine.
//
// The heap is a gvmmem.Memory divided into tagged nodes.
// Every node starts with a header word holding its Tag and its length in words.
// Nodes are only ever reclaimed by the mark and sweep collector in gc.go.
package gvmheap

import (
	"fmt"
	"slices"

	"gvm.dev/gvm/gvmmem"
)

// Addr is the word address of a node.
// The zero Addr is the permanent Nil node.
type Addr uint32

const (
	tagBits  = 8
	sizeBits = 24

	// MaxWords is the largest heap that can be described by a node header.
	MaxWords = 1<<sizeBits - 1
	// MinWordBytes is the narrowest word able to hold an Addr.
	MinWordBytes = 4
)

type Config struct {
	WordBytes int
	Words     int
}

func (c Config) Validate() error {
	if c.WordBytes < MinWordBytes {
		return fmt.Errorf("gvmheap: word size %d is too small, need at least %d bytes", c.WordBytes, MinWordBytes)
	}
	if c.Words < 2 || c.Words > MaxWords {
		return fmt.Errorf("gvmheap: heap size %d words is out of range [2, %d]", c.Words, MaxWords)
	}
	return nil
}

// RootFunc calls yield on every root address.
type RootFunc = func(yield func(Addr))

type Stats struct {
	Words       int
	FreeWords   int
	LiveWords   int
	Allocations uint64
	Collections uint64
}

type CollectStats struct {
	Freed int
	Free  int
	Live  int
}

type span struct {
	addr, size int
}

type Heap struct {
	mem   *gvmmem.Memory
	marks *gvmmem.Memory

	// free is ordered by address
	free []span
	pins []Addr

	roots     RootFunc
	onCollect func(CollectStats)
	stats     Stats
}

func New(cfg Config) (*Heap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mem, err := gvmmem.New(cfg.WordBytes, cfg.Words)
	if err != nil {
		return nil, err
	}
	markWords := divCeil(cfg.Words, mem.WordBits())
	marks, err := gvmmem.New(cfg.WordBytes, markWords)
	if err != nil {
		return nil, err
	}
	h := &Heap{
		mem:   mem,
		marks: marks,
		free:  []span{{addr: 0, size: cfg.Words}},
	}
	h.setHeader(0, TagFree, cfg.Words)
	nilAddr, err := h.Allocate(TagNil, 1)
	if err != nil {
		return nil, err
	}
	if nilAddr != 0 {
		panic(nilAddr)
	}
	return h, nil
}

// SetRoots sets the function used to enumerate roots during collection.
func (h *Heap) SetRoots(fn RootFunc) {
	h.roots = fn
}

// OnCollect sets a function to be called after every collection.
func (h *Heap) OnCollect(fn func(CollectStats)) {
	h.onCollect = fn
}

func (h *Heap) Memory() *gvmmem.Memory {
	return h.mem
}

func (h *Heap) Words() int {
	return h.mem.Words()
}

// FreeWords returns the total size of all free runs.
func (h *Heap) FreeWords() (ret int) {
	for _, sp := range h.free {
		ret += sp.size
	}
	return ret
}

func (h *Heap) Stats() Stats {
	st := h.stats
	st.Words = h.Words()
	st.FreeWords = h.FreeWords()
	return st
}

// Allocate returns the address of a new node of words words, including the header.
// The body of the node is zeroed, which leaves every child address pointing at Nil.
// If no free run is large enough the collector runs once before giving up.
func (h *Heap) Allocate(tag Tag, words int) (Addr, error) {
	if words < 1 {
		panic(fmt.Sprintf("gvmheap: allocate %d words", words))
	}
	if words > h.Words()-1 {
		return 0, ErrHeapTooSmall{Need: words, Have: h.Words()}
	}
	a, ok := h.take(words)
	if !ok {
		h.Collect()
		if a, ok = h.take(words); !ok {
			return 0, fmt.Errorf("%w: need %d words, %d free", ErrOutOfMemory, words, h.FreeWords())
		}
	}
	h.mem.Clear(a, a+words)
	h.setHeader(a, tag, words)
	h.stats.Allocations++
	return Addr(a), nil
}

// allocateN allocates a node of fixed+n words.
// n comes from program operands, so it is compared against the heap before the sum is formed.
func (h *Heap) allocateN(tag Tag, fixed, n int) (Addr, error) {
	if n < 0 || n > h.Words()-1-fixed {
		return 0, ErrHeapTooSmall{Need: n, Have: h.Words()}
	}
	return h.Allocate(tag, fixed+n)
}

// take removes words from the first free run large enough to hold them.
func (h *Heap) take(words int) (int, bool) {
	for i, sp := range h.free {
		if sp.size < words {
			continue
		}
		if sp.size == words {
			h.free = slices.Delete(h.free, i, i+1)
		} else {
			rest := span{addr: sp.addr + words, size: sp.size - words}
			h.free[i] = rest
			h.setHeader(rest.addr, TagFree, rest.size)
		}
		return sp.addr, true
	}
	return 0, false
}

// Pin pushes addrs onto the pinning stack, protecting them from collection.
// The returned function pops them again and must run on every exit path,
// usually via defer h.Pin(a)().
func (h *Heap) Pin(addrs ...Addr) (unpin func()) {
	n := len(h.pins)
	h.pins = append(h.pins, addrs...)
	return func() {
		h.pins = h.pins[:n]
	}
}

// PinDepth returns the number of pinned addresses.
func (h *Heap) PinDepth() int {
	return len(h.pins)
}

func (h *Heap) setHeader(a int, tag Tag, size int) {
	h.mem.SetBits(uint64(tag), a, tagBits, 0)
	h.mem.SetBits(uint64(size), a, sizeBits, tagBits)
}

func (h *Heap) tag(a int) Tag {
	return Tag(h.mem.GetBits(a, tagBits, 0))
}

func (h *Heap) size(a int) int {
	return int(h.mem.GetBits(a, sizeBits, tagBits))
}

// field returns body word i of the node at a
func (h *Heap) field(a Addr, i int) uint32 {
	return uint32(h.mem.GetWord(int(a) + 1 + i))
}

func (h *Heap) setField(a Addr, i int, x uint32) {
	h.mem.SetWord(int(a)+1+i, uint64(x))
}

func (h *Heap) addrField(a Addr, i int) Addr {
	return Addr(h.field(a, i))
}

func (h *Heap) setAddrField(a Addr, i int, x Addr) {
	h.setField(a, i, uint32(x))
}

func (h *Heap) intField(a Addr, i int) int {
	return int(h.mem.GetInt32(int(a) + 1 + i))
}

func (h *Heap) setIntField(a Addr, i int, x int) {
	h.mem.SetInt32(int(a)+1+i, int32(x))
}

func divCeil(x, d int) int {
	q := x / d
	if x%d != 0 {
		q++
	}
	return q
}
