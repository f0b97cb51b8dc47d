/*
 * ES40 - Cchip control registers
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
	"github.com/rcornwell/ES40/emu/cpu"
	"github.com/rcornwell/ES40/emu/device"
)

// Cchip CSR offsets.
const (
	cchipCSC   = 0x000
	cchipMTR   = 0x040
	cchipMISC  = 0x080
	cchipMPD   = 0x0C0
	cchipAAR0  = 0x100
	cchipAAR1  = 0x140
	cchipAAR2  = 0x180
	cchipAAR3  = 0x1C0
	cchipDIM0  = 0x200
	cchipDIM1  = 0x240
	cchipDIR0  = 0x280
	cchipDIR1  = 0x2C0
	cchipDRIR  = 0x300
	cchipPRBEN = 0x340
	cchipIIC0  = 0x380
	cchipIIC1  = 0x3C0
	cchipMPR0  = 0x400
	cchipMPR1  = 0x440
	cchipMPR2  = 0x480
	cchipMPR3  = 0x4C0
	cchipTTR   = 0x580
	cchipTDR   = 0x5C0
	cchipDIM2  = 0x600
	cchipDIM3  = 0x640
	cchipDIR2  = 0x680
	cchipDIR3  = 0x6C0
	cchipIIC2  = 0x700
	cchipIIC3  = 0x740
)

const (
	mtrMask uint64 = 0x0000000F83FF1FFF
	ttrMask uint64 = 0x0000000000003F77

	miscITINTR uint64 = 0xF << 4  // Interval timer interrupt pending, W1C
	miscIPINTR uint64 = 0xF << 8  // Interprocessor interrupt pending, W1C
	miscIPREQ  uint64 = 0xF << 12 // Interprocessor interrupt request
	miscABW    uint64 = 0xF << 16 // Arbitration won
	miscABT    uint64 = 0xF << 20 // Arbitration try, W1S
	miscACL    uint64 = 1 << 24   // Arbitration clear
	miscNXM    uint64 = 1 << 28   // Nonexistent memory address, W1C
)

// DIM and DIR registers are split in two banks, the CPU slot is formed from
// address bits 10 and 6.
func dimSlot(off uint64) int {
	return int(((off >> 10) & 2) | ((off >> 6) & 1))
}

// Value of array address register 0, one array covering all of memory.
func (sys *System) aar0() uint64 {
	bits := uint64(sys.mem.Bits())
	if bits < 23 {
		return 0
	}
	return ((bits - 23) & 0xF) << 12
}

func (sys *System) readCchip(a uint64, source device.Component) uint64 {
	id := sys.CPUID(source)
	if id < 0 {
		id = 0
	}
	off := a & 0xFFFFFFF

	sys.mu.Lock()
	defer sys.mu.Unlock()
	c := &sys.chip.Cchip
	switch off {
	case cchipCSC:
		return c.Csc
	case cchipMTR:
		return c.Mtr
	case cchipMISC:
		return c.Misc | uint64(id)
	case cchipMPD:
		return 0x3
	case cchipAAR0:
		return sys.aar0()
	case cchipDIM0, cchipDIM1, cchipDIM2, cchipDIM3:
		return c.Dim[dimSlot(off)]
	case cchipDIR0, cchipDIR1, cchipDIR2, cchipDIR3:
		return c.Drir & c.Dim[dimSlot(off)]
	case cchipDRIR:
		return c.Drir
	case cchipTTR:
		return c.Ttr
	case cchipTDR:
		return c.Tdr
	case cchipAAR1, cchipAAR2, cchipAAR3, cchipPRBEN,
		cchipIIC0, cchipIIC1, cchipIIC2, cchipIIC3,
		cchipMPR0, cchipMPR1, cchipMPR2, cchipMPR3:
		return 0
	}
	sys.debugf(debugCSR, "Cchip read unknown register %07x", off)
	return 0
}

func (sys *System) writeCchip(a uint64, data uint64) {
	cpus := sys.CPUs()
	off := a & 0xFFFFFFF

	sys.mu.Lock()
	defer sys.mu.Unlock()
	c := &sys.chip.Cchip
	switch off {
	case cchipMTR:
		c.Mtr = data & mtrMask
	case cchipMISC:
		sys.writeMisc(data, &cpus)
	case cchipDIM0, cchipDIM1, cchipDIM2, cchipDIM3:
		c.Dim[dimSlot(off)] = data
		sys.debugf(debugIrq, "DIM%d set to %016x", dimSlot(off), data)
		sys.checkIrq(&cpus)
	case cchipTTR:
		c.Ttr = data & ttrMask
	case cchipTDR:
		c.Tdr = data
	case cchipCSC, cchipMPD, cchipAAR0, cchipAAR1, cchipAAR2, cchipAAR3,
		cchipDIR0, cchipDIR1, cchipDIR2, cchipDIR3, cchipDRIR, cchipPRBEN,
		cchipIIC0, cchipIIC1, cchipIIC2, cchipIIC3,
		cchipMPR0, cchipMPR1, cchipMPR2, cchipMPR3:
	default:
		sys.debugf(debugCSR, "Cchip write unknown register %07x: %016x", off, data)
	}
}

// Update MISC. Called with chipset lock held.
func (sys *System) writeMisc(data uint64, cpus *[MaxCPUs]CPU) {
	c := &sys.chip.Cchip

	// Request interprocessor interrupts.
	req := (data & miscIPREQ) >> 12
	c.Misc |= req << 8

	// Clear pending timer and interprocessor interrupts.
	itw := (data & miscITINTR) >> 4
	ipw := (data & miscIPINTR) >> 8
	c.Misc &^= data & (miscITINTR | miscIPINTR | miscNXM)

	for i, cp := range cpus {
		if cp == nil {
			continue
		}
		bit := uint64(1) << i
		if itw&bit != 0 {
			cp.IrqH(cpu.IrqTimer, false, 0)
		}
		if ipw&bit != 0 {
			cp.IrqH(cpu.IrqIPI, false, 0)
		}
		if req&bit != 0 && c.Misc&(bit<<8) != 0 {
			sys.debugf(debugIrq, "IPI to CPU %d", i)
			cp.IrqH(cpu.IrqIPI, true, 0)
		}
	}

	if data&miscACL != 0 {
		c.Misc &^= miscABW | miscABT
	}
	if c.Misc&miscABW == 0 {
		c.Misc |= data & miscABW
	}
	c.Misc |= data & miscABT
}
