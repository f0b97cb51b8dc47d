/*
 * ES40 - Generic PCI function
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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	config "github.com/rcornwell/ES40/config/configparser"
	"github.com/rcornwell/ES40/emu/device"
	"github.com/rcornwell/ES40/emu/system"
	"github.com/rcornwell/ES40/util/debug"
)

// Configuration header offsets.
const (
	cfgVendor  = 0x00
	cfgDevice  = 0x02
	cfgCommand = 0x04
	cfgRev     = 0x08
	cfgClass   = 0x0B
	cfgBAR0    = 0x10
	cfgIntLine = 0x3C
	cfgIntPin  = 0x3D
	cfgSize    = 0x100
)

// Register offsets in BAR0.
const (
	regDMAAddr  = 0x00 // PCI bus address of transfer
	regDMALen   = 0x08 // Length of transfer in bytes
	regDMACtl   = 0x10 // Start transfer
	regDoorbell = 0x18 // Raise interrupt
	regStatus   = 0x20 // Status, write one to clear
	bufferBase  = 0x100
)

const (
	dmaToDevice = 1 // Copy from memory into buffer
	dmaToMemory = 2 // Copy from buffer into memory

	statusIrq uint64 = 1 << 0 // Interrupt raised
	statusDMA uint64 = 1 << 1 // Transfer complete
	statusErr uint64 = 1 << 2 // Transfer rejected

	commandMask = 0x0007 // I/O, memory and bus master enables
	barType     = 0xF    // 32 bit memory BAR

	minBAR = 0x200

	pciMagic1 uint32 = 0x50434946 // "PCIF"
	pciMagic2 uint32 = 0x46494350
	bufMagic1 uint32 = 0x50434942 // "PCIB"
	bufMagic2 uint32 = 0x42494350
)

const (
	debugConfig = 1 << iota
	debugDMA
	debugIrq
)

var debugOption = map[string]int{
	"CONFIG": debugConfig,
	"DMA":    debugDMA,
	"IRQ":    debugIrq,
}

// Bus is the system side of a PCI function.
type Bus interface {
	RegisterMemory(c device.Component, index int, base, length uint64)
	ReadMem(address uint64, size int, source device.Component) uint64
	WriteMem(address uint64, size int, data uint64, source device.Component)
	PCIPhys(hose int, pciAddr uint32) uint64
	Interrupt(line int, assert bool)
}

// Function is a PCI device with a type 0 configuration header, one memory
// BAR holding control registers and a data buffer, a doorbell interrupt and
// a bus master DMA engine.
type Function struct {
	device.Base
	bus      Bus
	hose     int
	slot     int
	fn       int
	irq      int
	barSize  uint64
	mu       sync.Mutex
	cfg      [cfgSize]byte
	wmask    [cfgSize]byte // Writable bits of configuration space
	dmaAddr  uint64
	dmaLen   uint64
	status   uint64
	buffer   []byte
	debugMsk int
}

type functionState struct {
	Cfg     [cfgSize]byte
	DMAAddr uint64
	DMALen  uint64
	Status  uint64
}

// Settings of a new function.
type Settings struct {
	Hose    int
	Slot    int
	Func    int
	Vendor  uint16
	Device  uint16
	BARSize uint64
	Irq     int
}

// register a device on initialize.
func init() {
	config.RegisterModel("PCIDEV", config.TypeModel, create)
}

// Create PCI function from configuration, address is the slot number.
func create(sys *system.System, slot uint64, _ string, options []config.Option) error {
	settings := Settings{Slot: int(slot), Vendor: 0x1234, Device: 0x0001, BARSize: 0x1000}
	name := ""
	for _, opt := range options {
		var err error
		var v uint64
		switch strings.ToUpper(opt.Name) {
		case "HOSE":
			settings.Hose, err = opt.Int()
		case "FN":
			settings.Func, err = opt.Int()
		case "IRQ":
			settings.Irq, err = opt.Int()
		case "VENDOR":
			v, err = opt.Hex(16)
			settings.Vendor = uint16(v)
		case "DEVICE":
			v, err = opt.Hex(16)
			settings.Device = uint16(v)
		case "BAR0":
			settings.BARSize, err = opt.Hex(32)
		case "NAME":
			name = opt.EqualOpt
		default:
			err = errors.New("pcidev invalid option: " + opt.Name)
		}
		if err != nil {
			return err
		}
	}
	if settings.Hose >= sys.Hoses() {
		return fmt.Errorf("pcidev hose %d not configured", settings.Hose)
	}
	if name == "" {
		name = fmt.Sprintf("pci%d.%d.%d", settings.Hose, settings.Slot, settings.Func)
	}

	f, err := NewFunction(name, sys, settings)
	if err != nil {
		return err
	}
	sys.RegisterComponent(f)
	return nil
}

// Create a function and claim its configuration space.
func NewFunction(name string, bus Bus, settings Settings) (*Function, error) {
	switch {
	case settings.Hose < 0 || settings.Hose >= system.MaxHoses:
		return nil, fmt.Errorf("pci hose %d out of range", settings.Hose)
	case settings.Slot < 0 || settings.Slot > 31:
		return nil, fmt.Errorf("pci slot %d out of range", settings.Slot)
	case settings.Func < 0 || settings.Func > 7:
		return nil, fmt.Errorf("pci function %d out of range", settings.Func)
	case settings.Irq < 0 || settings.Irq > 63:
		return nil, fmt.Errorf("pci interrupt %d out of range", settings.Irq)
	case settings.BARSize < minBAR || settings.BARSize&(settings.BARSize-1) != 0:
		return nil, fmt.Errorf("pci bar size %x not a power of two of at least %x", settings.BARSize, minBAR)
	}

	f := &Function{
		Base:    device.NewBase(name),
		bus:     bus,
		hose:    settings.Hose,
		slot:    settings.Slot,
		fn:      settings.Func,
		irq:     settings.Irq,
		barSize: settings.BARSize,
		buffer:  make([]byte, settings.BARSize-bufferBase),
	}
	binary.LittleEndian.PutUint16(f.cfg[cfgVendor:], settings.Vendor)
	binary.LittleEndian.PutUint16(f.cfg[cfgDevice:], settings.Device)
	f.cfg[cfgRev] = 1
	f.cfg[cfgClass] = 0xFF
	f.cfg[cfgIntLine] = byte(settings.Irq)
	f.cfg[cfgIntPin] = 1

	binary.LittleEndian.PutUint16(f.wmask[cfgCommand:], commandMask)
	binary.LittleEndian.PutUint32(f.wmask[cfgBAR0:], f.barMask())
	f.wmask[cfgIntLine] = 0xFF

	bus.RegisterMemory(f, 0, f.ConfigAddress(), cfgSize)
	return f, nil
}

// System address of configuration space.
func (f *Function) ConfigAddress() uint64 {
	return system.ConfigBase(f.hose) | uint64(f.slot)<<11 | uint64(f.fn)<<8
}

// Value read back from BAR0 after writing all ones.
func (f *Function) barMask() uint32 {
	return uint32(^(f.barSize - 1)) &^ barType
}

// Current BAR0 setting.
func (f *Function) bar() uint32 {
	return binary.LittleEndian.Uint32(f.cfg[cfgBAR0:]) &^ barType
}

// Map BAR0 if it has been assigned. Called with lock held.
func (f *Function) mapBAR() {
	bar := f.bar()
	if bar == 0 || bar == f.barMask() {
		return
	}
	base := system.MemBase(f.hose) | uint64(bar)
	debug.Debugf(f.Name(), f.debugMsk, debugConfig, "BAR0 mapped at %011x", base)
	f.bus.RegisterMemory(f, 1, base, f.barSize)
}

// Read little endian value from a byte slice, zero if out of range.
func load(b []byte, offset uint64, size int) uint64 {
	n := uint64(size / 8)
	if n == 0 || offset+n > uint64(len(b)) {
		return 0
	}
	var v uint64
	for i := offset + n; i > offset; i-- {
		v = (v << 8) | uint64(b[i-1])
	}
	return v
}

func (f *Function) ReadMem(index int, offset uint64, size int) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index == 0 {
		v := load(f.cfg[:], offset, size)
		debug.Debugf(f.Name(), f.debugMsk, debugConfig, "config read %02x size %d = %x", offset, size, v)
		return v
	}

	switch offset {
	case regDMAAddr:
		return f.dmaAddr
	case regDMALen:
		return f.dmaLen
	case regStatus:
		return f.status
	}
	if offset >= bufferBase {
		return load(f.buffer, offset-bufferBase, size)
	}
	return 0
}

func (f *Function) WriteMem(index int, offset uint64, size int, data uint64) {
	if index == 0 {
		f.writeConfig(offset, size, data)
		return
	}

	switch offset {
	case regDMAAddr:
		f.mu.Lock()
		f.dmaAddr = data & 0xFFFFFFFF
		f.mu.Unlock()
	case regDMALen:
		f.mu.Lock()
		f.dmaLen = data
		f.mu.Unlock()
	case regDMACtl:
		f.dma(data)
	case regDoorbell:
		f.mu.Lock()
		f.status |= statusIrq
		f.mu.Unlock()
		debug.Debugf(f.Name(), f.debugMsk, debugIrq, "doorbell %x raise interrupt %d", data, f.irq)
		f.bus.Interrupt(f.irq, true)
	case regStatus:
		f.mu.Lock()
		old := f.status
		f.status &^= data
		clearIrq := old&statusIrq != 0 && f.status&statusIrq == 0
		f.mu.Unlock()
		if clearIrq {
			debug.Debugf(f.Name(), f.debugMsk, debugIrq, "clear interrupt %d", f.irq)
			f.bus.Interrupt(f.irq, false)
		}
	default:
		if offset < bufferBase {
			return
		}
		f.mu.Lock()
		off := offset - bufferBase
		n := uint64(size / 8)
		if off+n <= uint64(len(f.buffer)) {
			for i := range n {
				f.buffer[off+i] = byte(data >> (8 * i))
			}
		}
		f.mu.Unlock()
	}
}

// Merge write into writable bits of configuration space.
func (f *Function) writeConfig(offset uint64, size int, data uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	debug.Debugf(f.Name(), f.debugMsk, debugConfig, "config write %02x size %d = %x", offset, size, data)
	n := uint64(size / 8)
	if n == 0 || offset+n > cfgSize {
		return
	}
	for i := offset; i < offset+n; i++ {
		b := byte(data)
		data >>= 8
		f.cfg[i] = (f.cfg[i] &^ f.wmask[i]) | (b & f.wmask[i])
	}
	if offset < cfgBAR0+4 && offset+n > cfgBAR0 {
		f.mapBAR()
	}
}

// Run a bus master transfer between buffer and PCI bus address.
func (f *Function) dma(ctl uint64) {
	f.mu.Lock()
	addr := uint32(f.dmaAddr)
	length := f.dmaLen
	master := binary.LittleEndian.Uint16(f.cfg[cfgCommand:])&0x4 != 0
	f.mu.Unlock()

	if !master || length > uint64(len(f.buffer)) || (ctl != dmaToDevice && ctl != dmaToMemory) {
		debug.Debugf(f.Name(), f.debugMsk, debugDMA, "DMA %d rejected addr %08x length %x", ctl, addr, length)
		f.mu.Lock()
		f.status |= statusErr
		f.mu.Unlock()
		return
	}

	data := make([]byte, length)
	if ctl == dmaToMemory {
		f.mu.Lock()
		copy(data, f.buffer)
		f.mu.Unlock()
	}
	for i := range data {
		phys := f.bus.PCIPhys(f.hose, addr+uint32(i))
		if ctl == dmaToDevice {
			data[i] = byte(f.bus.ReadMem(phys, 8, f))
		} else {
			f.bus.WriteMem(phys, 8, uint64(data[i]), f)
		}
	}
	debug.Debugf(f.Name(), f.debugMsk, debugDMA, "DMA %d addr %08x length %x done", ctl, addr, length)

	f.mu.Lock()
	if ctl == dmaToDevice {
		copy(f.buffer, data)
	}
	f.status |= statusDMA
	f.mu.Unlock()
}

// Enable debug option.
func (f *Function) Debug(option string) error {
	return debug.SetOption(debugOption, option, &f.debugMsk)
}

// Clear DMA engine and buffer, configuration is kept.
func (f *Function) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dmaAddr = 0
	f.dmaLen = 0
	f.status = 0
	clear(f.buffer)
	return nil
}

// Save configuration space, registers and buffer.
func (f *Function) SaveState(w io.Writer) error {
	f.mu.Lock()
	state := functionState{Cfg: f.cfg, DMAAddr: f.dmaAddr, DMALen: f.dmaLen, Status: f.status}
	buffer := append([]byte(nil), f.buffer...)
	f.mu.Unlock()
	if err := device.WriteFrame(w, pciMagic1, pciMagic2, &state); err != nil {
		return err
	}
	return device.WriteFrame(w, bufMagic1, bufMagic2, buffer)
}

// Restore state and map BAR0 where it was.
func (f *Function) RestoreState(r io.Reader) error {
	var state functionState
	if err := device.ReadFrame(r, pciMagic1, pciMagic2, &state); err != nil {
		return err
	}
	buffer := make([]byte, len(f.buffer))
	if err := device.ReadFrame(r, bufMagic1, bufMagic2, buffer); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = state.Cfg
	f.dmaAddr = state.DMAAddr
	f.dmaLen = state.DMALen
	f.status = state.Status
	copy(f.buffer, buffer)
	f.mapBAR()
	return nil
}
