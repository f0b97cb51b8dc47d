/*
 * ES40 - Tsunami/Typhoon system bus
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

package system

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rcornwell/ES40/emu/device"
	"github.com/rcornwell/ES40/emu/memory"
	"github.com/rcornwell/ES40/util/debug"
)

const (
	MaxCPUs  = 4
	MaxHoses = 2

	addrMask uint64 = 0x80FFFFFFFFF      // PIO bit plus 36 address bits
	lockMask uint64 = 0x00000807FFFFFF00 // Lock collision granularity
)

// Debug options.
const (
	debugUnmapped = 1 << iota
	debugCSR
	debugPCI
	debugIrq
	debugLock
)

var debugOption = map[string]int{
	"UNMAPPED": debugUnmapped,
	"CSR":      debugCSR,
	"PCI":      debugPCI,
	"IRQ":      debugIrq,
	"LOCK":     debugLock,
}

var (
	ErrTooManyCPUs = errors.New("too many CPUs")
	ErrHoses       = errors.New("number of PCI hoses must be 1 or 2")
	ErrSnapshot    = errors.New("snapshot not valid")
)

// CPU is a processor attached to the bus. IrqH is called with the chipset
// lock held and must not call back into the System.
type CPU interface {
	device.Component
	IrqH(pin int, assert bool, delay int)
}

// Region is a range of addresses claimed by a component.
type Region struct {
	Owner  device.Component
	Index  int
	Base   uint64
	Length uint64
}

// Check if address falls within region.
func (r *Region) Contains(addr uint64) bool {
	return addr >= r.Base && addr-r.Base < r.Length
}

// System is the Tsunami/Typhoon chipset: it owns main memory, the table of
// device address ranges, and the Cchip, Dchip, Pchip and TIGbus registers.
type System struct {
	mem   *memory.Arena
	hoses int

	regMu      sync.RWMutex // Guards regions, components and cpus
	regions    []Region
	components []device.Component
	cpus       [MaxCPUs]CPU
	numCPUs    int

	mu    sync.Mutex // Guards chip
	chip  chipset
	lckMu sync.Mutex // Guards locks
	locks [MaxCPUs]lockEntry

	debugMsk int
}

// Create a new system with 2^bits bytes of memory and hoses PCI buses.
func New(bits uint, hoses int) (*System, error) {
	if hoses < 1 || hoses > MaxHoses {
		return nil, fmt.Errorf("%w: %d", ErrHoses, hoses)
	}
	mem, err := memory.New(bits)
	if err != nil {
		return nil, err
	}
	sys := &System{mem: mem, hoses: hoses}
	sys.chip.reset(hoses)
	return sys, nil
}

// Reallocate memory as 2^bits bytes, all zero.
func (sys *System) ResetMem(bits uint) error {
	return sys.mem.Reset(bits)
}

// Number of address bits of installed memory.
func (sys *System) MemoryBits() uint {
	return sys.mem.Bits()
}

// Size of installed memory in bytes.
func (sys *System) MemorySize() uint64 {
	return sys.mem.Size()
}

// Number of configured PCI hoses.
func (sys *System) Hoses() int {
	return sys.hoses
}

// Change number of PCI hoses, only valid before the system is started.
func (sys *System) SetHoses(hoses int) error {
	if hoses < 1 || hoses > MaxHoses {
		return fmt.Errorf("%w: %d", ErrHoses, hoses)
	}
	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.hoses = hoses
	sys.chip.reset(hoses)
	return nil
}

// Return slice of memory for bulk transfers, nil if outside memory.
func (sys *System) PtrToMem(addr, length uint64) []byte {
	return sys.mem.Slice(addr&addrMask, length)
}

// Memory arena, for loading and dumping images.
func (sys *System) Memory() *memory.Arena {
	return sys.mem
}

// Enable debug option.
func (sys *System) Debug(option string) error {
	return debug.SetOption(debugOption, option, &sys.debugMsk)
}

func (sys *System) debugf(level int, format string, a ...interface{}) {
	debug.Debugf("SYSTEM", sys.debugMsk, level, format, a...)
}
