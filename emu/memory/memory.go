/*
 * ES40 - Physical memory arena
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Range of memory sizes accepted, as power of two bits.
const (
	MinBits     uint = 20
	MaxBits     uint = 35
	DefaultBits uint = 27
)

var ErrBits = errors.New("memory size out of range")

// Arena is the contiguous block of emulated RAM. Alpha is little endian, so
// all multi-byte accesses use binary.LittleEndian regardless of host order.
type Arena struct {
	mem  []byte
	bits uint
}

// Allocate a new arena of 2^bits bytes.
func New(bits uint) (*Arena, error) {
	arena := &Arena{}
	if err := arena.Reset(bits); err != nil {
		return nil, err
	}
	return arena, nil
}

// Reallocate memory to 2^bits bytes, all zero.
func (arena *Arena) Reset(bits uint) error {
	if bits < MinBits || bits > MaxBits {
		return fmt.Errorf("%w: %d bits, must be %d to %d", ErrBits, bits, MinBits, MaxBits)
	}
	arena.mem = make([]byte, uint64(1)<<bits)
	arena.bits = bits
	return nil
}

// Number of address bits of installed memory.
func (arena *Arena) Bits() uint {
	return arena.bits
}

// Size of memory in bytes.
func (arena *Arena) Size() uint64 {
	return uint64(len(arena.mem))
}

// Check if address is inside installed memory.
func (arena *Arena) Contains(addr uint64) bool {
	return (addr >> arena.bits) == 0
}

// Read size bits from addr. Accesses falling off the end read as zero.
func (arena *Arena) Read(addr uint64, size int) uint64 {
	n := uint64(size >> 3)
	if addr+n > uint64(len(arena.mem)) || addr+n < addr {
		return 0
	}
	p := arena.mem[addr : addr+n]
	switch size {
	case 8:
		return uint64(p[0])
	case 16:
		return uint64(binary.LittleEndian.Uint16(p))
	case 32:
		return uint64(binary.LittleEndian.Uint32(p))
	case 64:
		return binary.LittleEndian.Uint64(p)
	}
	return 0
}

// Write size bits of data to addr. Accesses falling off the end are dropped.
func (arena *Arena) Write(addr uint64, size int, data uint64) {
	n := uint64(size >> 3)
	if addr+n > uint64(len(arena.mem)) || addr+n < addr {
		return
	}
	p := arena.mem[addr : addr+n]
	switch size {
	case 8:
		p[0] = uint8(data)
	case 16:
		binary.LittleEndian.PutUint16(p, uint16(data))
	case 32:
		binary.LittleEndian.PutUint32(p, uint32(data))
	case 64:
		binary.LittleEndian.PutUint64(p, data)
	}
}

// Return slice of memory starting at addr, nil if any part is outside memory.
func (arena *Arena) Slice(addr, length uint64) []byte {
	end := addr + length
	if end < addr || end > uint64(len(arena.mem)) {
		return nil
	}
	return arena.mem[addr:end:end]
}

// Raw memory, used by snapshot code.
func (arena *Arena) Bytes() []byte {
	return arena.mem
}

// Write all of memory to w.
func (arena *Arena) Dump(w io.Writer) error {
	_, err := w.Write(arena.mem)
	return err
}

// Load memory from r starting at addr, until end of input or end of memory.
func (arena *Arena) Load(r io.Reader, addr uint64) (int, error) {
	if addr >= uint64(len(arena.mem)) {
		return 0, fmt.Errorf("load address %x beyond memory size %x", addr, len(arena.mem))
	}
	n, err := io.ReadFull(r, arena.mem[addr:])
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}
