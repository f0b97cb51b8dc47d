/*
 * ES40 - Memory and register display commands
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

package parser

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rcornwell/ES40/emu/system"
	hexfmt "github.com/rcornwell/ES40/util/hex"
)

type showCmd struct {
	name string
	show func(*Monitor)
}

var showList = []showCmd{
	{name: "csr", show: showCSR},
	{name: "regions", show: showRegions},
	{name: "components", show: showComponents},
	{name: "cpus", show: showCPUs},
}

type csrDef struct {
	name string
	addr uint64
}

const (
	pchip0 = 0x80180000000
	pchip1 = 0x80380000000
	cchip  = 0x801A0000000
	dchip  = 0x801B0000000
)

var csrList = []csrDef{
	{"CSC", cchip + 0x000},
	{"MTR", cchip + 0x040},
	{"MISC", cchip + 0x080},
	{"AAR0", cchip + 0x100},
	{"DIM0", cchip + 0x200},
	{"DIM1", cchip + 0x240},
	{"DIM2", cchip + 0x600},
	{"DIM3", cchip + 0x640},
	{"DRIR", cchip + 0x300},
	{"TTR", cchip + 0x580},
	{"TDR", cchip + 0x5C0},
	{"DSC", dchip + 0x800},
	{"STR", dchip + 0x840},
	{"DREV", dchip + 0x880},
	{"DSC2", dchip + 0x8C0},
}

var pchipList = []csrDef{
	{"WSBA0", 0x000},
	{"WSBA1", 0x040},
	{"WSBA2", 0x080},
	{"WSBA3", 0x0C0},
	{"WSM0", 0x100},
	{"WSM1", 0x140},
	{"WSM2", 0x180},
	{"WSM3", 0x1C0},
	{"TBA0", 0x200},
	{"TBA1", 0x240},
	{"TBA2", 0x280},
	{"TBA3", 0x2C0},
	{"PCTL", 0x300},
	{"PLAT", 0x340},
	{"PERROR", 0x3C0},
	{"PERRMASK", 0x400},
}

// Read memory, examine <addr> [size].
func examine(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command Examine")
	addr, err := line.getHex()
	if err != nil {
		return false, err
	}
	size, err := line.getSize(64)
	if err != nil {
		return false, err
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	v := mon.sys.ReadMem(addr, size, nil)
	fmt.Fprintf(mon.out, "%011x: %0*x\n", addr, size/4, v)
	return false, nil
}

// Write memory, deposit <addr> <value> [size].
func deposit(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command Deposit")
	addr, err := line.getHex()
	if err != nil {
		return false, err
	}
	value, err := line.getHex()
	if err != nil {
		return false, err
	}
	size, err := line.getSize(64)
	if err != nil {
		return false, err
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	if size < 64 && value>>size != 0 {
		return false, fmt.Errorf("value %x too large for %d bits", value, size)
	}
	mon.sys.WriteMem(addr, size, value, nil)
	return false, nil
}

// Display memory as quadwords and characters, list <addr> [length].
func list(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command List")
	addr, err := line.getHex()
	if err != nil {
		return false, err
	}
	length := uint64(0x40)
	line.skipSpace()
	if !line.isEOL() {
		length, err = line.getHex()
		if err != nil {
			return false, err
		}
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	if length == 0 || length > 0x10000 {
		return false, fmt.Errorf("list length %x out of range", length)
	}

	var str strings.Builder
	var data [16]byte
	end := addr + length
	for a := addr &^ 0xF; a < end; a += 16 {
		quad := []uint64{mon.sys.ReadMem(a, 64, nil), mon.sys.ReadMem(a+8, 64, nil)}
		binary.LittleEndian.PutUint64(data[0:], quad[0])
		binary.LittleEndian.PutUint64(data[8:], quad[1])
		hexfmt.FormatAddr(&str, a)
		str.WriteString(": ")
		hexfmt.FormatQuad(&str, quad)
		str.WriteByte(' ')
		hexfmt.FormatASCII(&str, data[:])
		str.WriteByte('\n')
	}
	fmt.Fprint(mon.out, str.String())
	return false, nil
}

func showNames() []string {
	names := make([]string, 0, len(showList))
	for _, s := range showList {
		names = append(names, s.name)
	}
	return names
}

// Display chipset registers.
func showCSR(mon *Monitor) {
	for _, csr := range csrList {
		fmt.Fprintf(mon.out, "%-8s %016x\n", csr.name, mon.sys.ReadMem(csr.addr, 64, nil))
	}
	for hose, base := range []uint64{pchip0, pchip1}[:mon.sys.Hoses()] {
		for _, csr := range pchipList {
			name := fmt.Sprintf("P%d.%s", hose, csr.name)
			fmt.Fprintf(mon.out, "%-11s %016x\n", name, mon.sys.ReadMem(base+csr.addr, 64, nil))
		}
	}
}

// Display memory map.
func showRegions(mon *Monitor) {
	fmt.Fprintf(mon.out, "%011x-%011x RAM\n", 0, mon.sys.MemorySize()-1)
	regions := mon.sys.Regions()
	slices.SortFunc(regions, func(a, b system.Region) int {
		switch {
		case a.Base < b.Base:
			return -1
		case a.Base > b.Base:
			return 1
		}
		return 0
	})
	for _, r := range regions {
		fmt.Fprintf(mon.out, "%011x-%011x %s[%d]\n", r.Base, r.Base+r.Length-1, r.Owner.Name(), r.Index)
	}
}

// Display attached components.
func showComponents(mon *Monitor) {
	for _, c := range mon.sys.Components() {
		fmt.Fprintf(mon.out, "%s\n", c.Name())
	}
}

// Interfaces a CPU may offer for display.
type (
	cycleCounter interface{ Cycles() uint64 }
	irqLevel     interface{ Level() uint8 }
)

// Display CPUs with interrupt pins and cycle counts.
func showCPUs(mon *Monitor) {
	for id, c := range mon.sys.CPUs() {
		if c == nil {
			continue
		}
		out := fmt.Sprintf("CPU%d %s", id, c.Name())
		if l, ok := c.(irqLevel); ok {
			out += fmt.Sprintf(" irq=%x", l.Level())
		}
		if n, ok := c.(cycleCounter); ok {
			out += fmt.Sprintf(" cycles=%d", n.Cycles())
		}
		fmt.Fprintln(mon.out, out)
	}
}
