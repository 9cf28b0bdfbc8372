// package gvmmem implements word addressed memory with bit level field packing.
package gvmmem

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Memory is a fixed size byte buffer interpreted as an array of words.
// Words are stored little endian.
type Memory struct {
	wordBytes int
	wordBits  int
	d         []byte
}

// New allocates a Memory holding words words of wordBytes bytes each.
// wordBytes must be a power of two no larger than 8.
func New(wordBytes, words int) (*Memory, error) {
	switch wordBytes {
	case 1, 2, 4, 8:
	default:
		return nil, ErrWordSize{WordBytes: wordBytes}
	}
	if words < 0 {
		return nil, fmt.Errorf("gvmmem: negative word count %d", words)
	}
	return &Memory{
		wordBytes: wordBytes,
		wordBits:  wordBytes * 8,
		d:         make([]byte, wordBytes*words),
	}, nil
}

// Words returns the number of words in the memory.
func (m *Memory) Words() int {
	return len(m.d) / m.wordBytes
}

func (m *Memory) WordBytes() int {
	return m.wordBytes
}

func (m *Memory) WordBits() int {
	return m.wordBits
}

// CapacityBits is the total number of addressable bits.
func (m *Memory) CapacityBits() int {
	return len(m.d) * 8
}

// GetBits reads n bits starting at bit offset within the word at addr.
// The field may span any number of following words; the chunk from the lowest
// word is the least significant.
func (m *Memory) GetBits(addr, n, offset int) uint64 {
	m.checkBits(addr, n, offset)
	var ret uint64
	var shift int
	for n > 0 {
		take := min(m.wordBits-offset, n)
		chunk := (m.loadWord(addr) >> offset) & mask(take)
		ret |= chunk << shift
		shift += take
		n -= take
		addr++
		offset = 0
	}
	return ret
}

// SetBits writes the low n bits of v starting at bit offset within the word at addr.
// Bits of v above n are discarded.
func (m *Memory) SetBits(v uint64, addr, n, offset int) {
	m.checkBits(addr, n, offset)
	for n > 0 {
		take := min(m.wordBits-offset, n)
		msk := mask(take)
		w := m.loadWord(addr)
		w = (w &^ (msk << offset)) | ((v & msk) << offset)
		m.storeWord(addr, w)
		v >>= take
		n -= take
		addr++
		offset = 0
	}
}

// GetWord returns the whole word at addr.
func (m *Memory) GetWord(addr int) uint64 {
	return m.GetBits(addr, m.wordBits, 0)
}

func (m *Memory) SetWord(addr int, x uint64) {
	m.SetBits(x, addr, m.wordBits, 0)
}

// GetInt32 reads a signed 32 bit integer aligned to the word at addr.
func (m *Memory) GetInt32(addr int) int32 {
	return int32(uint32(m.GetBits(addr, 32, 0)))
}

func (m *Memory) SetInt32(addr int, x int32) {
	m.SetBits(uint64(uint32(x)), addr, 32, 0)
}

// GetFloat32 reads an IEEE 754 single aligned to the word at addr.
func (m *Memory) GetFloat32(addr int) float32 {
	return math.Float32frombits(uint32(m.GetBits(addr, 32, 0)))
}

func (m *Memory) SetFloat32(addr int, x float32) {
	m.SetBits(uint64(math.Float32bits(x)), addr, 32, 0)
}

// Clear zeros the words in [beg, end).
func (m *Memory) Clear(beg, end int) {
	if beg < 0 || end > m.Words() || beg > end {
		panic(ErrBadBits{Addr: beg, N: (end - beg) * m.wordBits, Capacity: m.CapacityBits()})
	}
	clear(m.d[beg*m.wordBytes : end*m.wordBytes])
}

func (m *Memory) checkBits(addr, n, offset int) {
	if offset < 0 || offset >= m.wordBits || n < 0 || n > 64 || addr < 0 ||
		addr*m.wordBits+offset+n > m.CapacityBits() {
		panic(ErrBadBits{Addr: addr, N: n, Offset: offset, Capacity: m.CapacityBits()})
	}
}

func (m *Memory) loadWord(addr int) uint64 {
	b := m.d[addr*m.wordBytes : (addr+1)*m.wordBytes]
	switch m.wordBytes {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func (m *Memory) storeWord(addr int, w uint64) {
	b := m.d[addr*m.wordBytes : (addr+1)*m.wordBytes]
	switch m.wordBytes {
	case 1:
		b[0] = uint8(w)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(w))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(w))
	default:
		binary.LittleEndian.PutUint64(b, w)
	}
}

func mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}
