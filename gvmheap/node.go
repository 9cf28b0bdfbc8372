package gvmheap

import (
	"fmt"
	"slices"
)

// Tag identifies the variant of a node.
type Tag uint8

const (
	TagFree Tag = iota
	TagNil
	TagInt
	TagFloat
	TagBool
	TagString
	TagArray
	TagSlice
	TagList
	TagEntry
	TagEnv
	TagFrame
	TagContext
	TagQueue
	TagPackage
	TagBuiltin
	TagFunc
	TagCallFrame
	TagWaitGroup
	TagMutex

	tagCount
)

var tagNames = [tagCount]string{
	TagFree:      "Free",
	TagNil:       "Nil",
	TagInt:       "Int",
	TagFloat:     "Float",
	TagBool:      "Bool",
	TagString:    "String",
	TagArray:     "Array",
	TagSlice:     "Slice",
	TagList:      "LinkedList",
	TagEntry:     "LinkedListEntry",
	TagEnv:       "Environment",
	TagFrame:     "Frame",
	TagContext:   "Context",
	TagQueue:     "Queue",
	TagPackage:   "Package",
	TagBuiltin:   "Builtin",
	TagFunc:      "Func",
	TagCallFrame: "CallFrame",
	TagWaitGroup: "WaitGroup",
	TagMutex:     "Mutex",
}

func (t Tag) String() string {
	if t < tagCount {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// IsPrimitive returns true for tags whose nodes hold a single value word and can be
// copied in place.
func (t Tag) IsPrimitive() bool {
	switch t {
	case TagInt, TagFloat, TagBool:
		return true
	}
	return false
}

// Node is an untyped view of the node at an address.
// Typed views embed Node and interpret its body words.
type Node struct {
	h *Heap
	a Addr
}

func (h *Heap) Node(a Addr) Node {
	return Node{h: h, a: a}
}

func (n Node) Heap() *Heap {
	return n.h
}

func (n Node) Addr() Addr {
	return n.a
}

func (n Node) Tag() Tag {
	return n.h.tag(int(n.a))
}

// Size returns the size of the node in words, including the header.
func (n Node) Size() int {
	return n.h.size(int(n.a))
}

func (n Node) IsNil() bool {
	return n.a == 0
}

// Is returns true if the node has one of the tags.
func (n Node) Is(tags ...Tag) bool {
	return slices.Contains(tags, n.Tag())
}

// Expect returns ErrTypeMismatch if the node does not have one of the tags.
func (n Node) Expect(tags ...Tag) error {
	if !n.Is(tags...) {
		return ErrTypeMismatch{Want: tags, Have: n.Tag()}
	}
	return nil
}

// AppendChildren appends the addresses of all the nodes referenced by n to dst.
func (n Node) AppendChildren(dst []Addr) []Addr {
	h := n.h
	add := func(i int) {
		if c := h.addrField(n.a, i); c != 0 {
			dst = append(dst, c)
		}
	}
	switch n.Tag() {
	case TagArray:
		l := int(h.field(n.a, 0))
		for i := 0; i < l; i++ {
			add(1 + i)
		}
	case TagFrame:
		for i := 0; i < n.Size()-1; i++ {
			add(i)
		}
	case TagSlice, TagQueue:
		add(0)
	case TagList:
		add(0)
		add(1)
	case TagEntry:
		add(0)
		add(1)
		add(2)
	case TagEnv:
		add(0)
		add(1)
	case TagContext:
		add(ctxEnv)
		add(ctxOps)
		add(ctxScopes)
	case TagFunc, TagCallFrame, TagWaitGroup, TagMutex:
		add(1)
	}
	return dst
}

// Children returns the addresses referenced by n.
func (n Node) Children() []Addr {
	return n.AppendChildren(nil)
}
