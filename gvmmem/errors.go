package gvmmem

import "fmt"

// ErrWordSize is returned when a memory is configured with an unsupported word size.
type ErrWordSize struct {
	WordBytes int
}

func (e ErrWordSize) Error() string {
	return fmt.Sprintf("gvmmem: word size must be 1, 2, 4 or 8 bytes. have %d", e.WordBytes)
}

// ErrBadBits is the panic value for a bit field access outside of the memory or with
// invalid parameters.
// It is a configuration error, the caller computed a bad layout.
type ErrBadBits struct {
	Addr, N, Offset int
	Capacity        int
}

func (e ErrBadBits) Error() string {
	return fmt.Sprintf("gvmmem: invalid bit field addr=%d n=%d offset=%d capacity=%d bits", e.Addr, e.N, e.Offset, e.Capacity)
}
