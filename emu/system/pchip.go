/*
 * ES40 - Pchip PCI host bridge registers
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

// Pchip CSR offsets.
const (
	pchipWSBA0    = 0x000
	pchipWSM0     = 0x100
	pchipTBA0     = 0x200
	pchipPCTL     = 0x300
	pchipPLAT     = 0x340
	pchipRES      = 0x380
	pchipPERROR   = 0x3C0
	pchipPERRMASK = 0x400
	pchipPERRSET  = 0x440
	pchipTLBIV    = 0x480
	pchipTLBIA    = 0x4C0
	pchipPMONCTL  = 0x500
	pchipPMONCNT  = 0x540
	pchipSPRST    = 0x800
)

const (
	wsbaMask  uint64 = 0x00000000FFF00003
	wsbaDAC   uint64 = 1 << 39 // Dual address cycle enable, window 3 only
	wsmMask   uint64 = 0x00000000FFF00000
	tbaMask   uint64 = 0x00000007FFFFFC00
	pctlMask  uint64 = 0x00001CFF0FCFFFFF
	platMask  uint64 = 0x000000000000FF00
	pctlHole  uint64 = 1 << 5 // Window hole at 512K to 1M
	wsbaENA   uint64 = 1 << 0 // Window enable
	wsbaSG    uint64 = 1 << 1 // Scatter gather
)

func (sys *System) readPchip(hose int, a uint64) uint64 {
	off := a & 0xFFFFFFF

	sys.mu.Lock()
	defer sys.mu.Unlock()
	p := &sys.chip.Pchip[hose]
	if off < pchipPCTL && off&0x3F == 0 {
		n := (off >> 6) & 3
		switch off &^ 0xFF {
		case pchipWSBA0:
			return p.Wsba[n]
		case pchipWSM0:
			return p.Wsm[n]
		case pchipTBA0:
			return p.Tba[n]
		}
	}
	switch off {
	case pchipPCTL:
		return p.Pctl
	case pchipPLAT:
		return p.Plat
	case pchipPERROR:
		return p.Perror
	case pchipPERRMASK:
		return p.Perrmask
	case pchipRES, pchipPERRSET, pchipTLBIV, pchipTLBIA,
		pchipPMONCTL, pchipPMONCNT, pchipSPRST:
		return 0
	}
	sys.debugf(debugCSR, "Pchip%d read unknown register %07x", hose, off)
	return 0
}

func (sys *System) writePchip(hose int, a uint64, data uint64) {
	off := a & 0xFFFFFFF

	sys.mu.Lock()
	defer sys.mu.Unlock()
	p := &sys.chip.Pchip[hose]
	if off < pchipPCTL && off&0x3F == 0 {
		n := (off >> 6) & 3
		switch off &^ 0xFF {
		case pchipWSBA0:
			mask := wsbaMask
			if n == 3 {
				mask |= wsbaDAC
			}
			p.Wsba[n] = data & mask
		case pchipWSM0:
			p.Wsm[n] = data & wsmMask
		case pchipTBA0:
			p.Tba[n] = data & tbaMask
		}
		sys.debugf(debugPCI, "Pchip%d window %d: wsba=%x wsm=%x tba=%x", hose, n, p.Wsba[n], p.Wsm[n], p.Tba[n])
		return
	}
	switch off {
	case pchipPCTL:
		p.Pctl = (p.Pctl &^ pctlMask) | (data & pctlMask)
	case pchipPLAT:
		p.Plat = data & platMask
	case pchipPERROR:
		p.Perror &^= data
	case pchipPERRMASK:
		p.Perrmask = data
	case pchipPERRSET:
		p.Perror |= data
	case pchipSPRST:
		sys.debugf(debugPCI, "Pchip%d soft reset", hose)
		p.reset()
	case pchipRES, pchipTLBIV, pchipTLBIA, pchipPMONCTL, pchipPMONCNT:
	default:
		sys.debugf(debugCSR, "Pchip%d write unknown register %07x: %016x", hose, off, data)
	}
}
