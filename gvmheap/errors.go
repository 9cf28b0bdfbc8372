package gvmheap

import (
	"errors"
	"fmt"
	"strings"

	"go.brendoncarroll.net/exp/slices2"
)

var (
	// ErrOutOfMemory is returned when an allocation cannot be satisfied even after a collection.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrEmptyList is returned when popping from a list with no entries.
	ErrEmptyList = errors.New("pop from empty list")
)

// ErrHeapTooSmall is returned when a single node is larger than the whole heap.
// It means the heap is misconfigured for the program.
type ErrHeapTooSmall struct {
	Need, Have int
}

func (e ErrHeapTooSmall) Error() string {
	return fmt.Sprintf("heap too small: node of %d words does not fit in a heap of %d words", e.Need, e.Have)
}

type ErrIndexOutOfRange struct {
	Index, Len int
}

func (e ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("index out of range [%d] with length %d", e.Index, e.Len)
}

type ErrSliceBounds struct {
	Low, High, Cap int
}

func (e ErrSliceBounds) Error() string {
	return fmt.Sprintf("slice bounds out of range [%d:%d] with capacity %d", e.Low, e.High, e.Cap)
}

type ErrTypeMismatch struct {
	Want []Tag
	Have Tag
}

func (e ErrTypeMismatch) Error() string {
	want := slices2.Map(e.Want, func(t Tag) string { return t.String() })
	return fmt.Sprintf("type mismatch: want %s, have %v", strings.Join(want, " or "), e.Have)
}

type ErrScopeDepth struct {
	Depth int
}

func (e ErrScopeDepth) Error() string {
	return fmt.Sprintf("scope chain has no environment at depth %d", e.Depth)
}

// ErrCorrupt is the panic value when the sweeper finds a header it cannot walk past.
type ErrCorrupt struct {
	Addr Addr
}

func (e ErrCorrupt) Error() string {
	return fmt.Sprintf("gvmheap: corrupt node header at %d", e.Addr)
}
