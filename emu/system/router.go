/*
 * ES40 - Address space router
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

import "github.com/rcornwell/ES40/emu/device"

// Fixed address windows, hose 1 is at hoseStride above hose 0.
const (
	hoseStride  uint64 = 0x200000000
	pciMemBase  uint64 = 0x80000000000 // PCI memory, 4GB
	pciMemSize  uint64 = 0x100000000
	tigBase     uint64 = 0x80100000000 // TIGbus, 1GB
	tigSize     uint64 = 0x40000000
	pchipBase   uint64 = 0x80180000000 // Pchip CSRs, 256MB
	cchipBase   uint64 = 0x801A0000000 // Cchip CSRs, 256MB
	dchipBase   uint64 = 0x801B0000000 // Dchip CSRs, 256MB
	csrSize     uint64 = 0x10000000
	pciIOBase   uint64 = 0x801FC000000 // PCI I/O, 32MB
	pciIOSize   uint64 = 0x2000000
	PCIConfBase uint64 = 0x801FE000000 // PCI configuration space, 16MB
	cf8Port     uint64 = 0x801FC000CF8
	cfcPort     uint64 = 0x801FC000CFC
	vgaStart    uint64 = 0x800000A0000 // Legacy VGA memory hole
	vgaEnd      uint64 = 0x800000C0000
)

// Address of PCI configuration space for hose.
func ConfigBase(hose int) uint64 {
	return PCIConfBase + uint64(hose)*hoseStride
}

// Address of PCI memory space for hose.
func MemBase(hose int) uint64 {
	return pciMemBase + uint64(hose)*hoseStride
}

func inWindow(a, base, size uint64) bool {
	return a >= base && a-base < size
}

// Drop bits above the access size.
func truncate(data uint64, size int) uint64 {
	switch size {
	case 8:
		return data & 0xFF
	case 16:
		return data & 0xFFFF
	case 32:
		return data & 0xFFFFFFFF
	}
	return data
}

// Read size bits at address on behalf of source, which may be nil.
func (sys *System) ReadMem(address uint64, size int, source device.Component) uint64 {
	a := address & addrMask
	if sys.mem.Contains(a) {
		return sys.mem.Read(a, size)
	}
	if r, ok := sys.findRegion(a); ok {
		return truncate(r.Owner.ReadMem(r.Index, a-r.Base, size), size)
	}
	return truncate(sys.readIO(a, size, source), size)
}

// Write size bits of data to address on behalf of source, which may be nil.
func (sys *System) WriteMem(address uint64, size int, data uint64, source device.Component) {
	a := address & addrMask
	sys.breakLocks(a, source)
	if sys.mem.Contains(a) {
		sys.mem.Write(a, size, data)
		return
	}
	data = truncate(data, size)
	if r, ok := sys.findRegion(a); ok {
		r.Owner.WriteMem(r.Index, a-r.Base, size, data)
		return
	}
	sys.writeIO(a, size, data, source)
}

// Target of a CFC access through the CF8 latch of hose.
func (sys *System) cfcTarget(hose int, a uint64) uint64 {
	sys.mu.Lock()
	latch := sys.chip.CF8[hose]
	sys.mu.Unlock()
	return ConfigBase(hose) | latch | (a - cfcPort - uint64(hose)*hoseStride)
}

// Chipset windows, checked after memory and devices.
func (sys *System) readIO(a uint64, size int, source device.Component) uint64 {
	for hose := range MaxHoses {
		h := uint64(hose) * hoseStride
		switch {
		case a == cf8Port+h:
			sys.mu.Lock()
			latch := sys.chip.CF8[hose]
			sys.mu.Unlock()
			return latch
		case inWindow(a, cfcPort+h, 4):
			return sys.ReadMem(sys.cfcTarget(hose, a), size, source)
		}
	}

	switch {
	case inWindow(a, pchipBase, csrSize):
		return sys.readPchip(0, a)
	case inWindow(a, pchipBase+hoseStride, csrSize):
		return sys.readPchip(1, a)
	case inWindow(a, cchipBase, csrSize):
		return sys.readCchip(a, source)
	case inWindow(a, dchipBase, csrSize):
		return sys.readDchip(a)
	case inWindow(a, tigBase, tigSize):
		return sys.readTig(a)
	}

	if sys.unusedPCI(a, size, "read", 0) {
		return 0
	}
	sys.debugf(debugUnmapped, "Read from unmapped address %011x size %d by %s", a, size, componentName(source))
	return 0
}

func (sys *System) writeIO(a uint64, size int, data uint64, source device.Component) {
	for hose := range MaxHoses {
		h := uint64(hose) * hoseStride
		switch {
		case a == cf8Port+h:
			sys.mu.Lock()
			sys.chip.CF8[hose] = data & 0x00FFFFFF
			sys.mu.Unlock()
			sys.debugf(debugPCI, "PCI%d CF8 set to %06x", hose, data&0x00FFFFFF)
			return
		case inWindow(a, cfcPort+h, 4):
			sys.WriteMem(sys.cfcTarget(hose, a), size, data, source)
			return
		}
	}

	switch {
	case inWindow(a, pchipBase, csrSize):
		sys.writePchip(0, a, data)
		return
	case inWindow(a, pchipBase+hoseStride, csrSize):
		sys.writePchip(1, a, data)
		return
	case inWindow(a, cchipBase, csrSize):
		sys.writeCchip(a, data)
		return
	case inWindow(a, dchipBase, csrSize):
		sys.writeDchip(a, data)
		return
	case inWindow(a, tigBase, tigSize):
		sys.writeTig(a, data)
		return
	}

	if sys.unusedPCI(a, size, "write", data) {
		return
	}
	sys.debugf(debugUnmapped, "Write to unmapped address %011x size %d data %x by %s", a, size, data, componentName(source))
}

// Check for PCI I/O or memory space no device claimed. Hose 0 I/O and the
// VGA hole are ignored quietly.
func (sys *System) unusedPCI(a uint64, size int, op string, data uint64) bool {
	for hose := range MaxHoses {
		h := uint64(hose) * hoseStride
		if inWindow(a, pciIOBase+h, pciIOSize) {
			if hose != 0 {
				sys.debugf(debugUnmapped, "PCI%d unused I/O %s %07x size %d data %x", hose, op, a-pciIOBase-h, size, data)
			}
			return true
		}
		if inWindow(a, pciMemBase+h, pciMemSize) {
			if hose != 0 || a < vgaStart || a >= vgaEnd {
				sys.debugf(debugUnmapped, "PCI%d unused memory %s %08x size %d data %x", hose, op, a-pciMemBase-h, size, data)
			}
			return true
		}
	}
	return false
}
