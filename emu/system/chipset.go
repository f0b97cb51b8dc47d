/*
 * ES40 - Chipset register state
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

// Field order and sizes are the snapshot layout, do not reorder.

type cchipRegs struct {
	Csc  uint64    // Cchip system configuration
	Mtr  uint64    // Memory timing
	Misc uint64    // Miscellaneous: interrupt pending, arbitration
	Dim  [4]uint64 // Device interrupt mask per CPU
	Drir uint64    // Device raw interrupt request
	Ttr  uint64    // TIGbus timing
	Tdr  uint64    // TIGbus device timing
}

type dchipRegs struct {
	Dsc  uint8 // Dchip system configuration
	Str  uint8 // System timing
	Drev uint8 // Revision
	Dsc2 uint8 // Dchip system configuration 2
}

type pchipRegs struct {
	Wsba     [4]uint64 // Window base address
	Wsm      [4]uint64 // Window mask
	Tba      [4]uint64 // Translated base address
	Pctl     uint64    // Pchip control
	Plat     uint64    // PCI master latency timer
	Perror   uint64    // Error status
	Perrmask uint64    // Error mask
}

type tigRegs struct {
	FwWrite uint8 // Flash ROM write enable
	HaltA   uint8 // Halt latch A
	HaltB   uint8 // Halt latch B
}

type chipset struct {
	Cchip cchipRegs
	Dchip dchipRegs
	Pchip [MaxHoses]pchipRegs
	Tig   tigRegs
	CF8   [MaxHoses]uint64 // Legacy config address latch per hose
}

type lockEntry struct {
	Locked  bool
	Address uint64
}

// Unit of save and restore.
type chipsetState struct {
	Chip  chipset
	Locks [MaxCPUs]lockEntry
}

const (
	cscReset   uint64 = 0x0000000000000042
	cscP1P     uint64 = 1 << 14 // Pchip1 present
	miscReset  uint64 = 0x0000000800000000
	pctlReset  uint64 = 0x0000104401440081
	wsba3Reset uint64 = 0x2
)

// Set all registers to power on values.
func (chip *chipset) reset(hoses int) {
	*chip = chipset{}
	chip.Cchip.Csc = cscReset
	if hoses > 1 {
		chip.Cchip.Csc |= cscP1P
	}
	chip.Cchip.Misc = miscReset
	chip.Dchip.Drev = 0x01
	chip.Dchip.Dsc = 0x43
	chip.Dchip.Dsc2 = 0x03
	chip.Dchip.Str = 0x25
	for i := range chip.Pchip {
		chip.Pchip[i].reset()
	}
}

func (p *pchipRegs) reset() {
	*p = pchipRegs{}
	p.Pctl = pctlReset
	p.Wsba[3] = wsba3Reset
}
