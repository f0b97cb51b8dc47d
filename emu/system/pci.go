/*
 * ES40 - PCI bus master address translation
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

const (
	pteTbaMask uint64 = 0x00000007FFFFFC00 // TBA bits used to form PTE address
	winTbaMask uint64 = 0x00000007FFF00000 // TBA bits used by direct mapped windows
	pteValid   uint64 = 1 << 0
	pteP2P     uint64 = 1 << 23 // Peer to peer, target is PCI space
)

// Translate a PCI bus address from hose into a system address. Addresses
// that no window claims are taken to be on the local PCI bus of hose.
func (sys *System) PCIPhys(hose int, pciAddr uint32) uint64 {
	if phys, ok := sys.translate(hose, pciAddr); ok {
		sys.debugf(debugPCI, "PCI%d %08x -> %011x", hose, pciAddr, phys)
		return phys
	}
	return pciMemBase | uint64(hose)*hoseStride | uint64(pciAddr)
}

// Run pciAddr through the Pchip windows. Returns false if no window matched
// or the scatter gather entry was not valid.
func (sys *System) translate(hose int, pciAddr uint32) (uint64, bool) {
	if hose < 0 || hose >= MaxHoses {
		return 0, false
	}
	addr := uint64(pciAddr)

	sys.mu.Lock()
	p := sys.chip.Pchip[hose]
	sys.mu.Unlock()

	if p.Pctl&pctlHole != 0 && addr >= 0x80000 && addr <= 0xFFFFF {
		return 0, false
	}

	for i := range p.Wsba {
		wsba, wsm, tba := p.Wsba[i], p.Wsm[i], p.Tba[i]
		if wsba&wsbaENA == 0 || (addr^wsba)&0xFFF00000&^wsm != 0 {
			continue
		}
		if wsba&wsbaSG != 0 {
			return sys.scatterGather(hose, addr, wsm, tba)
		}
		return (addr & (wsm | 0xFFFFF)) | (tba &^ wsm & winTbaMask), true
	}
	return 0, false
}

// Look up page table entry for addr.
func (sys *System) scatterGather(hose int, addr, wsm, tba uint64) (uint64, bool) {
	pteAddr := ((addr & (wsm | 0xFE000)) >> 10) | (tba & pteTbaMask &^ (wsm >> 10))
	pte := sys.ReadMem(pteAddr, 64, nil)
	if pte&pteValid == 0 {
		sys.debugf(debugPCI, "PCI%d %08x invalid PTE at %011x: %016x", hose, addr, pteAddr, pte)
		return 0, false
	}
	phys := ((pte << 12) & 0x7FFFFE000) | (addr & 0x1FFF)
	if pte&pteP2P != 0 {
		phys |= pciMemBase
	}
	return phys, true
}
