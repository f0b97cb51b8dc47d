/*
 * ES40 - Generic PCI function test cases
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

package pci

import (
	"bytes"
	"strings"
	"testing"

	config "github.com/rcornwell/ES40/config/configparser"
	"github.com/rcornwell/ES40/emu/system"
)

const (
	cf8      = uint64(0x801FC000CF8)
	cfc      = uint64(0x801FC000CFC)
	drir     = uint64(0x801A0000300)
	wsba0    = uint64(0x80180000000)
	wsm0     = uint64(0x80180000100)
	tba0     = uint64(0x80180000200)
	barAddr  = uint32(0x10000000)
	testSlot = 7
)

func newTestFunction(t *testing.T) (*system.System, *Function) {
	t.Helper()
	sys, err := system.New(20, 2)
	if err != nil {
		t.Fatalf("Unable to create system: %v", err)
	}
	f, err := NewFunction("pci", sys, Settings{Slot: testSlot, Vendor: 0x1234, Device: 0x5678, BARSize: 0x1000, Irq: 10})
	if err != nil {
		t.Fatalf("Unable to create function: %v", err)
	}
	sys.RegisterComponent(f)
	return sys, f
}

// Access configuration space through the CF8 latch.
func configRead(sys *system.System, reg uint64) uint64 {
	sys.WriteMem(cf8, 32, testSlot<<11|reg, nil)
	return sys.ReadMem(cfc, 32, nil)
}

func configWrite(sys *system.System, reg uint64, data uint64) {
	sys.WriteMem(cf8, 32, testSlot<<11|reg, nil)
	sys.WriteMem(cfc, 32, data, nil)
}

// Size and assign BAR0, enable memory and bus master.
func assignBAR(sys *system.System) {
	configWrite(sys, cfgBAR0, 0xFFFFFFFF)
	configWrite(sys, cfgBAR0, uint64(barAddr))
	configWrite(sys, cfgCommand, 0x6)
}

func TestConfigSpace(t *testing.T) {
	sys, f := newTestFunction(t)
	v := configRead(sys, cfgVendor)
	if v != 0x56781234 {
		t.Errorf("Vendor/device not correct got: %x expected: %x", v, 0x56781234)
	}
	v = sys.ReadMem(f.ConfigAddress()+cfgDevice, 16, nil)
	if v != 0x5678 {
		t.Errorf("Device not correct got: %x expected: %x", v, 0x5678)
	}
	v = configRead(sys, cfgIntLine)
	if v != 0x010a {
		t.Errorf("Interrupt line not correct got: %x expected: %x", v, 0x010a)
	}

	// Read only fields ignore writes.
	configWrite(sys, cfgVendor, 0)
	v = configRead(sys, cfgVendor)
	if v != 0x56781234 {
		t.Errorf("Vendor/device changed got: %x expected: %x", v, 0x56781234)
	}
	configWrite(sys, cfgCommand, 0xFFFFFFFF)
	v = configRead(sys, cfgCommand)
	if v != commandMask {
		t.Errorf("Command not correct got: %x expected: %x", v, commandMask)
	}

	// Other slots are empty.
	sys.WriteMem(cf8, 32, 8<<11, nil)
	v = sys.ReadMem(cfc, 32, nil)
	if v != 0 {
		t.Errorf("Empty slot not correct got: %x expected: %x", v, 0)
	}
}

func TestBARSizing(t *testing.T) {
	sys, f := newTestFunction(t)
	configWrite(sys, cfgBAR0, 0xFFFFFFFF)
	v := configRead(sys, cfgBAR0)
	if v != 0xFFFFF000 {
		t.Errorf("BAR size mask not correct got: %x expected: %x", v, 0xFFFFF000)
	}
	if len(sys.Regions()) != 1 {
		t.Errorf("BAR mapped while sizing, regions: %d", len(sys.Regions()))
	}

	configWrite(sys, cfgBAR0, uint64(barAddr)|0x123)
	v = configRead(sys, cfgBAR0)
	if v != uint64(barAddr) {
		t.Errorf("BAR not correct got: %x expected: %x", v, barAddr)
	}
	base := system.MemBase(0) | uint64(barAddr)
	sys.WriteMem(base+bufferBase, 64, 0xdeadbeefcafe, nil)
	v = sys.ReadMem(base+bufferBase, 64, nil)
	if v != 0xdeadbeefcafe {
		t.Errorf("Buffer not correct got: %x expected: %x", v, 0xdeadbeefcafe)
	}

	// Move the BAR.
	configWrite(sys, cfgBAR0, 0x20000000)
	v = sys.ReadMem(system.MemBase(0)|0x20000000+bufferBase, 64, nil)
	if v != 0xdeadbeefcafe {
		t.Errorf("Moved buffer not correct got: %x expected: %x", v, 0xdeadbeefcafe)
	}
	if v = sys.ReadMem(base+bufferBase, 64, nil); v != 0 {
		t.Errorf("Old BAR still mapped got: %x", v)
	}
	if len(sys.Regions()) != 2 {
		t.Errorf("Region count not correct got: %d expected: %d", len(sys.Regions()), 2)
	}
	if f.bar() != 0x20000000 {
		t.Errorf("BAR not recorded got: %x expected: %x", f.bar(), 0x20000000)
	}
}

func TestDMA(t *testing.T) {
	sys, _ := newTestFunction(t)
	assignBAR(sys)
	base := system.MemBase(0) | uint64(barAddr)

	// Direct window mapping PCI 1GB to memory 0.
	sys.WriteMem(wsba0, 64, 0x40000001, nil)
	sys.WriteMem(wsm0, 64, 0x3FF00000, nil)
	sys.WriteMem(tba0, 64, 0, nil)

	sys.WriteMem(0x1000, 64, 0x0807060504030201, nil)
	sys.WriteMem(base+regDMAAddr, 64, 0x40001000, nil)
	sys.WriteMem(base+regDMALen, 64, 8, nil)
	sys.WriteMem(base+regDMACtl, 64, dmaToDevice, nil)
	v := sys.ReadMem(base+bufferBase, 64, nil)
	if v != 0x0807060504030201 {
		t.Errorf("DMA to device not correct got: %x expected: %x", v, 0x0807060504030201)
	}
	if s := sys.ReadMem(base+regStatus, 64, nil); s != statusDMA {
		t.Errorf("Status not correct got: %x expected: %x", s, statusDMA)
	}

	sys.WriteMem(base+regStatus, 64, statusDMA, nil)
	sys.WriteMem(base+bufferBase, 32, 0xa5a5a5a5, nil)
	sys.WriteMem(base+regDMAAddr, 64, 0x40002000, nil)
	sys.WriteMem(base+regDMALen, 64, 4, nil)
	sys.WriteMem(base+regDMACtl, 64, dmaToMemory, nil)
	v = sys.ReadMem(0x2000, 64, nil)
	if v != 0xa5a5a5a5 {
		t.Errorf("DMA to memory not correct got: %x expected: %x", v, 0xa5a5a5a5)
	}

	// Too long.
	sys.WriteMem(base+regStatus, 64, 0xff, nil)
	sys.WriteMem(base+regDMALen, 64, 0x10000, nil)
	sys.WriteMem(base+regDMACtl, 64, dmaToDevice, nil)
	if s := sys.ReadMem(base+regStatus, 64, nil); s != statusErr {
		t.Errorf("Status not correct got: %x expected: %x", s, statusErr)
	}

	// Bus master disabled.
	sys.WriteMem(base+regStatus, 64, 0xff, nil)
	configWrite(sys, cfgCommand, 0x2)
	sys.WriteMem(base+regDMALen, 64, 4, nil)
	sys.WriteMem(base+regDMACtl, 64, dmaToDevice, nil)
	if s := sys.ReadMem(base+regStatus, 64, nil); s != statusErr {
		t.Errorf("Status not correct got: %x expected: %x", s, statusErr)
	}
}

func TestDoorbell(t *testing.T) {
	sys, _ := newTestFunction(t)
	assignBAR(sys)
	base := system.MemBase(0) | uint64(barAddr)

	sys.WriteMem(base+regDoorbell, 64, 1, nil)
	if v := sys.ReadMem(drir, 64, nil); v != 1<<10 {
		t.Errorf("DRIR not correct got: %x expected: %x", v, 1<<10)
	}
	if s := sys.ReadMem(base+regStatus, 64, nil); s != statusIrq {
		t.Errorf("Status not correct got: %x expected: %x", s, statusIrq)
	}
	sys.WriteMem(base+regStatus, 64, statusIrq, nil)
	if v := sys.ReadMem(drir, 64, nil); v != 0 {
		t.Errorf("DRIR not cleared got: %x", v)
	}
}

func TestFunctionState(t *testing.T) {
	sys, f := newTestFunction(t)
	assignBAR(sys)
	base := system.MemBase(0) | uint64(barAddr)
	sys.WriteMem(base+bufferBase+8, 64, 0x1122334455667788, nil)
	sys.WriteMem(base+regDMAAddr, 64, 0x40001000, nil)

	var buf bytes.Buffer
	if err := f.SaveState(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other, err := system.New(20, 2)
	if err != nil {
		t.Fatalf("Unable to create system: %v", err)
	}
	g, _ := NewFunction("pci", other, Settings{Slot: testSlot, BARSize: 0x1000})
	if err := g.RestoreState(&buf); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if v := other.ReadMem(base+bufferBase+8, 64, nil); v != 0x1122334455667788 {
		t.Errorf("Buffer not restored got: %x expected: %x", v, 0x1122334455667788)
	}
	if v := other.ReadMem(base+regDMAAddr, 64, nil); v != 0x40001000 {
		t.Errorf("DMA address not restored got: %x expected: %x", v, 0x40001000)
	}
	if v := other.ReadMem(g.ConfigAddress(), 32, nil); v != 0x56781234 {
		t.Errorf("Configuration not restored got: %x expected: %x", v, 0x56781234)
	}

	small, _ := NewFunction("pci", other, Settings{Slot: 1, BARSize: 0x200})
	if err := f.SaveState(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := small.RestoreState(&buf); err == nil {
		t.Errorf("Restore of different buffer size did not fail")
	}
}

func TestFunctionSettings(t *testing.T) {
	sys, err := system.New(20, 1)
	if err != nil {
		t.Fatalf("Unable to create system: %v", err)
	}
	bad := []Settings{
		{Hose: 2, BARSize: 0x1000},
		{Slot: 32, BARSize: 0x1000},
		{Func: 8, BARSize: 0x1000},
		{Irq: 64, BARSize: 0x1000},
		{BARSize: 0x100},
		{BARSize: 0x1800},
	}
	for _, s := range bad {
		if _, err := NewFunction("bad", sys, s); err == nil {
			t.Errorf("Settings %+v did not fail", s)
		}
	}

	cfg := "PCIDEV 7 hose=0 vendor=1234 device=5678 bar0=1000 irq=10\n"
	if err := config.LoadConfig(sys, strings.NewReader(cfg)); err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	f, ok := sys.Component("pci0.7.0").(*Function)
	if !ok {
		t.Fatalf("PCI function not created")
	}
	if f.irq != 10 || f.barSize != 0x1000 {
		t.Errorf("Settings not correct got: irq %d bar %x", f.irq, f.barSize)
	}
	if err := f.Debug("DMA"); err != nil {
		t.Errorf("Debug option failed: %v", err)
	}

	for _, line := range []string{
		"PCIDEV 8 hose=1\n",
		"PCIDEV 8 vendor=xyz\n",
		"PCIDEV 8 speed=33\n",
		"PCIDEV 40\n",
	} {
		if err := config.LoadConfig(sys, strings.NewReader(line)); err == nil {
			t.Errorf("Config %q did not fail", line)
		}
	}
}
