/*
 * ES40 - Dchip and TIGbus registers
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

// Dchip CSR offsets.
const (
	dchipDSC  = 0x800
	dchipSTR  = 0x840
	dchipDREV = 0x880
	dchipDSC2 = 0x8C0
)

// TIGbus offsets.
const (
	tigTRR     = 0x30000000
	tigSMIR    = 0x30000040
	tigMODINFO = 0x30000100
	tigARBREV  = 0x300003C0
	tigFwWrite = 0x3E000000
	tigHaltA   = 0x3F000000
	tigHaltB   = 0x3F000100
)

// Dchip registers are one byte wide, repeated in every byte of the quadword.
const byteLanes uint64 = 0x0101010101010101

func (sys *System) readDchip(a uint64) uint64 {
	off := a & 0xFFFFFFF

	sys.mu.Lock()
	defer sys.mu.Unlock()
	d := &sys.chip.Dchip
	switch off {
	case dchipDSC:
		return uint64(d.Dsc) * byteLanes
	case dchipSTR:
		return uint64(d.Str) * byteLanes
	case dchipDREV:
		return uint64(d.Drev) * byteLanes
	case dchipDSC2:
		return uint64(d.Dsc2) * byteLanes
	}
	sys.debugf(debugCSR, "Dchip read unknown register %07x", off)
	return 0
}

func (sys *System) writeDchip(a uint64, data uint64) {
	off := a & 0xFFFFFFF

	sys.mu.Lock()
	defer sys.mu.Unlock()
	switch off {
	case dchipSTR:
		sys.chip.Dchip.Str = uint8(data)
	case dchipDSC, dchipDREV, dchipDSC2:
	default:
		sys.debugf(debugCSR, "Dchip write unknown register %07x: %016x", off, data)
	}
}

func (sys *System) readTig(a uint64) uint64 {
	off := a & 0x3FFFFFFF

	sys.mu.Lock()
	defer sys.mu.Unlock()
	t := &sys.chip.Tig
	switch off {
	case tigFwWrite:
		return uint64(t.FwWrite)
	case tigHaltA:
		return uint64(t.HaltA)
	case tigHaltB:
		return uint64(t.HaltB)
	case tigTRR, tigSMIR, tigMODINFO, tigARBREV:
		return 0
	}
	sys.debugf(debugCSR, "TIGbus read unknown register %08x", off)
	return 0
}

func (sys *System) writeTig(a uint64, data uint64) {
	off := a & 0x3FFFFFFF

	sys.mu.Lock()
	defer sys.mu.Unlock()
	t := &sys.chip.Tig
	switch off {
	case tigFwWrite:
		t.FwWrite = uint8(data)
	case tigHaltA:
		t.HaltA = uint8(data)
	case tigHaltB:
		t.HaltB = uint8(data)
	case tigTRR, tigSMIR, tigMODINFO, tigARBREV:
	default:
		sys.debugf(debugCSR, "TIGbus write unknown register %08x: %02x", off, data&0xFF)
	}
}
