/*
 * ES40 - System bus test cases
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
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/rcornwell/ES40/emu/cpu"
	"github.com/rcornwell/ES40/emu/device"
)

// Device used to watch what the router forwards.
type testDev struct {
	device.Base
	regs       map[uint64]uint64
	lastIndex  int
	lastOffset uint64
	lastSize   int
	value      uint64
	failSave   bool
	failLoad   bool
	startErr   error
	checkErr   error
	inits      int
	started    bool
}

type testDevState struct {
	Value uint64
}

const (
	testMagic1 uint32 = 0x54455354
	testMagic2 uint32 = 0x54534554
)

func newTestDev(name string) *testDev {
	return &testDev{Base: device.NewBase(name), regs: map[uint64]uint64{}}
}

func (dev *testDev) ReadMem(index int, offset uint64, size int) uint64 {
	dev.lastIndex = index
	dev.lastOffset = offset
	dev.lastSize = size
	return dev.regs[offset]
}

func (dev *testDev) WriteMem(index int, offset uint64, size int, data uint64) {
	dev.lastIndex = index
	dev.lastOffset = offset
	dev.lastSize = size
	dev.regs[offset] = data
}

func (dev *testDev) Init() error {
	dev.inits++
	return nil
}

func (dev *testDev) StartThreads() error {
	if dev.startErr != nil {
		return dev.startErr
	}
	dev.started = true
	return nil
}

func (dev *testDev) StopThreads() {
	dev.started = false
}

func (dev *testDev) CheckState() error {
	return dev.checkErr
}

func (dev *testDev) SaveState(w io.Writer) error {
	if dev.failSave {
		return errors.New("save failed")
	}
	return device.WriteFrame(w, testMagic1, testMagic2, &testDevState{Value: dev.value})
}

func (dev *testDev) RestoreState(r io.Reader) error {
	if dev.failLoad {
		dev.value = 0xdead
		return errors.New("restore failed")
	}
	var state testDevState
	if err := device.ReadFrame(r, testMagic1, testMagic2, &state); err != nil {
		return err
	}
	dev.value = state.Value
	return nil
}

func newTestSystem(t *testing.T, bits uint, hoses int) *System {
	t.Helper()
	sys, err := New(bits, hoses)
	if err != nil {
		t.Fatalf("Unable to create system: %v", err)
	}
	return sys
}

func addCPU(t *testing.T, sys *System, name string) *cpu.Idle {
	t.Helper()
	c := cpu.NewIdle(name)
	if _, err := sys.RegisterCPU(c); err != nil {
		t.Fatalf("Unable to register CPU: %v", err)
	}
	return c
}

// Memory reads back what was written for every width.
func TestRAMReadWrite(t *testing.T) {
	sys := newTestSystem(t, 20, 1)
	tests := []struct {
		addr uint64
		size int
		data uint64
	}{
		{0x1000, 8, 0xa5},
		{0x1001, 16, 0x1234},
		{0x1003, 32, 0x89abcdef},
		{0x1007, 64, 0x0123456789abcdef},
		{0xffff8, 64, 0xfedcba9876543210},
		{0x7fffe, 32, 0x55aa55aa},
	}
	for _, test := range tests {
		sys.WriteMem(test.addr, test.size, test.data, nil)
		v := sys.ReadMem(test.addr, test.size, nil)
		if v != test.data {
			t.Errorf("Memory %x size %d not correct got: %x expected: %x", test.addr, test.size, v, test.data)
		}
	}

	// Little endian byte order.
	sys.WriteMem(0x2000, 32, 0x11223344, nil)
	v := sys.ReadMem(0x2000, 8, nil)
	if v != 0x44 {
		t.Errorf("Byte order not correct got: %x expected: %x", v, 0x44)
	}
	v = sys.ReadMem(0x2002, 16, nil)
	if v != 0x1122 {
		t.Errorf("Half word not correct got: %x expected: %x", v, 0x1122)
	}
}

// Accesses inside a registered range go to the device with the offset.
func TestRegionForward(t *testing.T) {
	sys := newTestSystem(t, 20, 1)
	dev := newTestDev("dev")
	sys.RegisterComponent(dev)
	sys.RegisterMemory(dev, 0, 0x801FC0003F8, 8)
	sys.RegisterMemory(dev, 1, 0x80000100000, 0x1000)

	for k := range uint64(8) {
		sys.WriteMem(0x801FC0003F8+k, 8, k+1, nil)
		if dev.lastIndex != 0 || dev.lastOffset != k || dev.lastSize != 8 {
			t.Errorf("Forward not correct got: %d %x %d expected: 0 %x 8", dev.lastIndex, dev.lastOffset, dev.lastSize, k)
		}
		v := sys.ReadMem(0x801FC0003F8+k, 8, nil)
		if v != k+1 {
			t.Errorf("Device read not correct got: %x expected: %x", v, k+1)
		}
	}
	sys.WriteMem(0x80000100FF8, 64, 0x1122334455667788, nil)
	if dev.lastIndex != 1 || dev.lastOffset != 0xff8 {
		t.Errorf("Second range not correct got: %d %x expected: 1 ff8", dev.lastIndex, dev.lastOffset)
	}

	// Reads are truncated to access size.
	dev.regs[0x10] = 0xffffffffffffffff
	v := sys.ReadMem(0x80000100010, 16, nil)
	if v != 0xffff {
		t.Errorf("Truncated read not correct got: %x expected: %x", v, 0xffff)
	}

	// Past end of range is not the device.
	dev.lastOffset = 0x5555
	sys.ReadMem(0x801FC000400, 8, nil)
	if dev.lastOffset != 0x5555 {
		t.Errorf("Read past range forwarded to device")
	}

	// Registered range beats the chipset windows.
	sys.RegisterMemory(dev, 2, cchipBase, 0x100)
	sys.ReadMem(cchipBase, 64, nil)
	if dev.lastIndex != 2 {
		t.Errorf("Device did not claim Cchip address")
	}
}

// Registering the same index again moves the range.
func TestRegisterMove(t *testing.T) {
	sys := newTestSystem(t, 20, 1)
	dev := newTestDev("dev")
	other := newTestDev("other")
	sys.RegisterComponent(dev)
	sys.RegisterComponent(other)
	sys.RegisterMemory(dev, 0, 0x80000010000, 0x100)
	sys.RegisterMemory(dev, 0, 0x80000020000, 0x200)

	regions := sys.Regions()
	if len(regions) != 1 {
		t.Fatalf("Region count not correct got: %d expected: %d", len(regions), 1)
	}
	if regions[0].Base != 0x80000020000 || regions[0].Length != 0x200 {
		t.Errorf("Region not moved got: %x %x", regions[0].Base, regions[0].Length)
	}

	// Overlap is accepted, first registered wins.
	sys.RegisterMemory(other, 0, 0x80000020100, 0x200)
	if len(sys.Regions()) != 2 {
		t.Errorf("Overlapping region not accepted")
	}
	sys.WriteMem(0x80000020100, 8, 1, nil)
	if dev.regs[0x100] != 1 {
		t.Errorf("First registered region did not win")
	}
	sys.WriteMem(0x80000020200, 8, 2, nil)
	if other.regs[0x100] != 2 {
		t.Errorf("Second region not reached past first")
	}

	sys.UnregisterComponent(dev)
	if len(sys.Regions()) != 1 || len(sys.Components()) != 1 {
		t.Errorf("Unregister did not drop component and ranges")
	}
	if sys.Component("OTHER") != other {
		t.Errorf("Component lookup by name failed")
	}
}

// At most four processors.
func TestRegisterCPU(t *testing.T) {
	sys := newTestSystem(t, 20, 1)
	for i := range MaxCPUs {
		id, err := sys.RegisterCPU(cpu.NewIdle("cpu"))
		if err != nil {
			t.Fatalf("Register CPU %d failed: %v", i, err)
		}
		if id != i {
			t.Errorf("CPU id not correct got: %d expected: %d", id, i)
		}
	}
	_, err := sys.RegisterCPU(cpu.NewIdle("cpu4"))
	if !errors.Is(err, ErrTooManyCPUs) {
		t.Errorf("Fifth CPU not rejected: %v", err)
	}
	if len(sys.Components()) != MaxCPUs {
		t.Errorf("CPUs not added as components got: %d", len(sys.Components()))
	}

	cpus := sys.CPUs()
	sys.UnregisterComponent(cpus[2])
	if sys.CPUs()[2] != nil || sys.NumCPUs() != MaxCPUs {
		t.Errorf("Unregistered CPU id not kept reserved")
	}
	if sys.CPUID(cpus[3]) != 3 {
		t.Errorf("CPU id lookup not correct got: %d expected: %d", sys.CPUID(cpus[3]), 3)
	}
}

// Config data port goes through address latch.
func TestCF8Redirect(t *testing.T) {
	sys := newTestSystem(t, 20, 2)
	conf0 := newTestDev("conf0")
	conf1 := newTestDev("conf1")
	sys.RegisterComponent(conf0)
	sys.RegisterComponent(conf1)
	sys.RegisterMemory(conf0, 0, ConfigBase(0), 0x1000000)
	sys.RegisterMemory(conf1, 0, ConfigBase(1), 0x1000000)

	sys.WriteMem(0x801FC000CF8, 32, 0x00112233, nil)
	sys.WriteMem(0x801FC000CFC, 32, 0xcafef00d, nil)
	if conf0.lastOffset != 0x112233 {
		t.Errorf("CFC write offset not correct got: %x expected: %x", conf0.lastOffset, 0x112233)
	}
	v := sys.ReadMem(0x801FE000000|0x00112233, 32, nil)
	if v != 0xcafef00d {
		t.Errorf("Direct config read not correct got: %x expected: %x", v, 0xcafef00d)
	}
	v = sys.ReadMem(0x801FC000CFC, 32, nil)
	if v != 0xcafef00d {
		t.Errorf("CFC read not correct got: %x expected: %x", v, 0xcafef00d)
	}

	// Byte lanes of CFC are merged with the latch.
	sys.WriteMem(0x801FC000CF8, 32, 0x00112230, nil)
	sys.WriteMem(0x801FC000CFE, 8, 0x7f, nil)
	if conf0.lastOffset != 0x112232 || conf0.lastSize != 8 {
		t.Errorf("CFE offset not correct got: %x expected: %x", conf0.lastOffset, 0x112232)
	}

	// Latch only holds 24 bits.
	sys.WriteMem(0x801FC000CF8, 32, 0xff000800, nil)
	v = sys.ReadMem(0x801FC000CF8, 32, nil)
	if v != 0x000800 {
		t.Errorf("CF8 latch not correct got: %x expected: %x", v, 0x800)
	}

	// Hose 1 has its own latch.
	sys.WriteMem(0x803FC000CF8, 32, 0x00004000, nil)
	sys.WriteMem(0x803FC000CFC, 32, 0x12345678, nil)
	if conf1.lastOffset != 0x4000 || conf1.regs[0x4000] != 0x12345678 {
		t.Errorf("Hose 1 CFC not correct got: %x %x", conf1.lastOffset, conf1.regs[0x4000])
	}
	v = sys.ReadMem(0x801FC000CF8, 32, nil)
	if v != 0x000800 {
		t.Errorf("Hose 0 latch changed got: %x expected: %x", v, 0x800)
	}
}

// Unclaimed addresses read as zero and are never fatal.
func TestUnmapped(t *testing.T) {
	sys := newTestSystem(t, 20, 1)
	for _, addr := range []uint64{0x100000, 0x80000000000, 0x800000A0000, 0x802000A0000,
		0x801FC000100, 0x803FC000100, 0x80500000000, 0x801C0000000} {
		sys.WriteMem(addr, 32, 0xffffffff, nil)
		v := sys.ReadMem(addr, 32, nil)
		if v != 0 {
			t.Errorf("Unmapped %x not correct got: %x expected: 0", addr, v)
		}
	}
	// Bits between 35 and 43 are ignored.
	sys.WriteMem(0x1000, 32, 0x5a5a5a5a, nil)
	v := sys.ReadMem(0x7000001000, 32, nil)
	if v != 0x5a5a5a5a {
		t.Errorf("Masked address not correct got: %x expected: %x", v, 0x5a5a5a5a)
	}
}

// Lifecycle calls go to every component.
func TestLifecycle(t *testing.T) {
	sys := newTestSystem(t, 20, 1)
	first := newTestDev("first")
	second := newTestDev("second")
	sys.RegisterComponent(first)
	sys.RegisterComponent(second)
	sys.RegisterComponent(first)

	if err := sys.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if first.inits != 1 || second.inits != 1 {
		t.Errorf("Init count not correct got: %d %d expected: 1 1", first.inits, second.inits)
	}

	second.startErr = errors.New("no worker")
	err := sys.StartThreads()
	if err == nil || !errors.Is(err, second.startErr) {
		t.Errorf("Start error not returned: %v", err)
	}
	if first.started {
		t.Errorf("First component not stopped after failed start")
	}

	second.startErr = nil
	if err := sys.StartThreads(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sys.CheckState(); err != nil {
		t.Errorf("Check state failed: %v", err)
	}
	dead := errors.New("worker died")
	second.checkErr = dead
	err = sys.CheckState()
	if !errors.Is(err, dead) {
		t.Errorf("Check state error not returned: %v", err)
	}
	sys.StopThreads()
	if first.started || second.started {
		t.Errorf("Components not stopped")
	}
}

// Debug options are checked.
func TestDebugOption(t *testing.T) {
	sys := newTestSystem(t, 20, 1)
	if err := sys.Debug("CSR"); err != nil {
		t.Errorf("Debug CSR failed: %v", err)
	}
	if sys.debugMsk != debugCSR {
		t.Errorf("Debug mask not correct got: %x expected: %x", sys.debugMsk, debugCSR)
	}
	if err := sys.Debug("NOPE"); err == nil {
		t.Errorf("Invalid debug option accepted")
	}
}

// Bad construction parameters.
func TestNewErrors(t *testing.T) {
	if _, err := New(20, 3); !errors.Is(err, ErrHoses) {
		t.Errorf("Three hoses not rejected: %v", err)
	}
	if _, err := New(40, 1); err == nil {
		t.Errorf("Memory size of 40 bits not rejected")
	}
	sys := newTestSystem(t, 20, 1)
	if err := sys.ResetMem(21); err != nil {
		t.Fatalf("ResetMem failed: %v", err)
	}
	if sys.MemorySize() != 1<<21 {
		t.Errorf("Memory size not correct got: %x expected: %x", sys.MemorySize(), 1<<21)
	}
	if sys.PtrToMem(0x1ffff0, 0x10) == nil || sys.PtrToMem(0x1ffff0, 0x11) != nil {
		t.Errorf("PtrToMem bounds not correct")
	}
}

// Helper to compare memory of two systems.
func sameMemory(a, b *System) bool {
	return bytes.Equal(a.mem.Bytes(), b.mem.Bytes())
}
