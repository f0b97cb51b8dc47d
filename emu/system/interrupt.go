/*
 * ES40 - Interrupt controller
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
	"log/slog"

	"github.com/rcornwell/ES40/emu/cpu"
)

// Line used by the interval timer.
const TimerLine = -1

// CPU cycles before a device interrupt is seen.
const irqDelay = 100

const (
	deviceIrqs uint64 = 0x00FFFFFFFFFFFFFF // DRIR lines routed to IRQ1
	errorIrqs  uint64 = 0xFC00000000000000 // DRIR lines routed to IRQ0
)

// Assert or clear interrupt line 0 to 63. Line -1 is the interval timer
// which interrupts every CPU and can not be masked.
func (sys *System) Interrupt(line int, assert bool) {
	if line < TimerLine || line > 63 {
		slog.Warn("Interrupt line out of range", "line", line)
		return
	}
	cpus := sys.CPUs()

	sys.mu.Lock()
	defer sys.mu.Unlock()
	c := &sys.chip.Cchip
	if line == TimerLine {
		if !assert {
			return
		}
		c.Misc |= miscITINTR
		for _, cp := range cpus {
			if cp != nil {
				cp.IrqH(cpu.IrqTimer, true, 0)
			}
		}
		return
	}

	if assert {
		c.Drir |= uint64(1) << line
	} else {
		c.Drir &^= uint64(1) << line
	}
	sys.debugf(debugIrq, "Interrupt %d %v drir=%016x", line, assert, c.Drir)
	sys.checkIrq(&cpus)
}

// Drive IRQ0 and IRQ1 of each CPU from DRIR and its mask. Called with
// chipset lock held.
func (sys *System) checkIrq(cpus *[MaxCPUs]CPU) {
	c := &sys.chip.Cchip
	for i, cp := range cpus {
		if cp == nil {
			continue
		}
		pending := c.Drir & c.Dim[i]
		if pending&deviceIrqs != 0 {
			cp.IrqH(cpu.IrqDevice, true, irqDelay)
		} else {
			cp.IrqH(cpu.IrqDevice, false, 0)
		}
		if pending&errorIrqs != 0 {
			cp.IrqH(cpu.IrqError, true, irqDelay)
		} else {
			cp.IrqH(cpu.IrqError, false, 0)
		}
	}
}
