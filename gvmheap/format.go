package gvmheap

import (
	"fmt"
	"strings"
)

// maxFormatDepth bounds recursion through nested arrays.
const maxFormatDepth = 8

// Format returns a human readable rendering of the value at a, in the style of fmt.Print.
func (h *Heap) Format(a Addr) string {
	var sb strings.Builder
	h.format(&sb, a, 0)
	return sb.String()
}

func (h *Heap) format(sb *strings.Builder, a Addr, depth int) {
	n := h.Node(a)
	switch n.Tag() {
	case TagNil:
		sb.WriteString("<nil>")
	case TagInt:
		fmt.Fprint(sb, h.Int(a).Value())
	case TagFloat:
		fmt.Fprint(sb, h.Float(a).Value())
	case TagBool:
		fmt.Fprint(sb, h.Bool(a).Value())
	case TagString:
		sb.WriteString(h.Str(a).Value())
	case TagArray:
		h.formatElems(sb, h.Array(a).Elems(), depth)
	case TagSlice:
		h.formatElems(sb, h.Slice(a).Elems(), depth)
	case TagFunc:
		fmt.Fprintf(sb, "func@%d", h.Func(a).PC())
	case TagBuiltin:
		b := h.Builtin(a)
		fmt.Fprintf(sb, "builtin(%d.%d)", b.Package(), b.Func())
	case TagPackage:
		fmt.Fprintf(sb, "package(%d)", h.Package(a).ID())
	case TagContext:
		fmt.Fprintf(sb, "goroutine %d", h.Context(a).ID())
	case TagWaitGroup:
		fmt.Fprintf(sb, "WaitGroup{%d}", h.WaitGroup(a).Count())
	case TagMutex:
		fmt.Fprintf(sb, "Mutex{%v}", h.Mutex(a).Locked())
	default:
		fmt.Fprintf(sb, "<%v@%d>", n.Tag(), a)
	}
}

func (h *Heap) formatElems(sb *strings.Builder, elems []Addr, depth int) {
	if depth >= maxFormatDepth {
		sb.WriteString("[...]")
		return
	}
	sb.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			sb.WriteByte(' ')
		}
		h.format(sb, e, depth+1)
	}
	sb.WriteByte(']')
}
