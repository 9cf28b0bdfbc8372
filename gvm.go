// package gvm is a bytecode virtual machine for programs with goroutines.
//
// Programs run over a self managed heap of tagged nodes, see gvmheap.
// Goroutines are scheduled cooperatively on a single thread, see gvmproc.
package gvm

import (
	"lukechampine.com/blake3"
)

const (
	// DefaultWordBytes is the width of a heap word.
	DefaultWordBytes = 4
	// DefaultHeapWords is the size of the heap in words.
	DefaultHeapWords = 1 << 16

	// DefaultQuantum is the number of instructions a goroutine runs before it is preempted.
	DefaultQuantum = 30
	// DefaultMaxSteps bounds the number of instructions dispatched over a whole run.
	DefaultMaxSteps = 100_000
)

// Hash calculates the hash of x.
// If key == nil, then the hash is unkeyed.
func Hash(key *[32]byte, x []byte) (ret Fingerprint) {
	var k []byte
	if key != nil {
		k = key[:]
	}
	h := blake3.New(32, k)
	h.Write(x)
	h.Sum(ret[:0])
	return ret
}
