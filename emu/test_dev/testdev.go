/*
 * ES40 - Memory mapped test device
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

package testdev

import (
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

const (
	testMagic1 uint32 = 0x54444556 // "TDEV"
	testMagic2 uint32 = 0x56454454

	maxSize = 0x100000 // Largest window
)

const (
	debugRead = 1 << iota
	debugWrite
)

var debugOption = map[string]int{
	"READ":  debugRead,
	"WRITE": debugWrite,
}

// Registrar places device windows on the bus.
type Registrar interface {
	RegisterMemory(c device.Component, index int, base, length uint64)
}

// Window of scratch memory.
type window struct {
	base uint64
	data []byte
}

// TestDev is scratch memory with one or more bus windows. Reads return
// what was last written, unwritten locations read zero.
type TestDev struct {
	device.Base
	bus      Registrar
	mu       sync.Mutex
	windows  []window
	reads    uint64
	writes   uint64
	debugMsk int
}

// register a device on initialize.
func init() {
	config.RegisterModel("TESTDEV", config.TypeModel, create)
}

// Create test device from configuration. A second line with the same name
// adds a window to the existing device.
func create(sys *system.System, addr uint64, _ string, options []config.Option) error {
	if addr == config.NoAddr {
		return errors.New("testdev requires address")
	}
	name := "testdev"
	size := uint64(0x1000)
	for _, opt := range options {
		switch strings.ToUpper(opt.Name) {
		case "SIZE":
			v, err := opt.Hex(32)
			if err != nil {
				return err
			}
			size = v
		case "NAME":
			if opt.EqualOpt == "" {
				return errors.New("testdev name requires a value")
			}
			name = opt.EqualOpt
		default:
			return errors.New("testdev invalid option: " + opt.Name)
		}
	}

	if c := sys.Component(name); c != nil {
		dev, ok := c.(*TestDev)
		if !ok {
			return fmt.Errorf("component %s is not a test device", name)
		}
		_, err := dev.Add(addr, size)
		return err
	}

	dev := NewTestDev(name, sys)
	if _, err := dev.Add(addr, size); err != nil {
		return err
	}
	sys.RegisterComponent(dev)
	return nil
}

// Create empty test device.
func NewTestDev(name string, bus Registrar) *TestDev {
	return &TestDev{Base: device.NewBase(name), bus: bus}
}

// Add a window at base, returns its index.
func (dev *TestDev) Add(base, size uint64) (int, error) {
	if size == 0 || size > maxSize {
		return 0, fmt.Errorf("testdev size %x out of range", size)
	}
	dev.mu.Lock()
	index := len(dev.windows)
	dev.windows = append(dev.windows, window{base: base, data: make([]byte, size)})
	dev.mu.Unlock()
	dev.bus.RegisterMemory(dev, index, base, size)
	return index, nil
}

// Move a window to a new base.
func (dev *TestDev) Move(index int, base uint64) error {
	dev.mu.Lock()
	if index < 0 || index >= len(dev.windows) {
		dev.mu.Unlock()
		return fmt.Errorf("testdev window %d not defined", index)
	}
	dev.windows[index].base = base
	size := uint64(len(dev.windows[index].data))
	dev.mu.Unlock()
	dev.bus.RegisterMemory(dev, index, base, size)
	return nil
}

// Number of accesses made to the device.
func (dev *TestDev) Accesses() (reads, writes uint64) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.reads, dev.writes
}

// Locate bytes of access, nil if outside window.
func (dev *TestDev) bytes(index int, offset uint64, size int) []byte {
	if index < 0 || index >= len(dev.windows) {
		return nil
	}
	data := dev.windows[index].data
	n := uint64(size / 8)
	if n == 0 || offset >= uint64(len(data)) || offset+n > uint64(len(data)) {
		return nil
	}
	return data[offset : offset+n]
}

func (dev *TestDev) ReadMem(index int, offset uint64, size int) uint64 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.reads++
	var v uint64
	b := dev.bytes(index, offset, size)
	for i := len(b) - 1; i >= 0; i-- {
		v = (v << 8) | uint64(b[i])
	}
	debug.Debugf(dev.Name(), dev.debugMsk, debugRead, "read %d:%x size %d = %x", index, offset, size, v)
	return v
}

func (dev *TestDev) WriteMem(index int, offset uint64, size int, data uint64) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.writes++
	debug.Debugf(dev.Name(), dev.debugMsk, debugWrite, "write %d:%x size %d = %x", index, offset, size, data)
	b := dev.bytes(index, offset, size)
	for i := range b {
		b[i] = byte(data)
		data >>= 8
	}
}

// Enable debug option.
func (dev *TestDev) Debug(option string) error {
	return debug.SetOption(debugOption, option, &dev.debugMsk)
}

// Clear memory of all windows.
func (dev *TestDev) Init() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	for _, w := range dev.windows {
		clear(w.data)
	}
	dev.reads = 0
	dev.writes = 0
	return nil
}

// Contents of all windows as one block.
func (dev *TestDev) image() []byte {
	total := 0
	for _, w := range dev.windows {
		total += len(w.data)
	}
	image := make([]byte, 0, total)
	for _, w := range dev.windows {
		image = append(image, w.data...)
	}
	return image
}

// Save window contents.
func (dev *TestDev) SaveState(w io.Writer) error {
	dev.mu.Lock()
	image := dev.image()
	dev.mu.Unlock()
	return device.WriteFrame(w, testMagic1, testMagic2, image)
}

// Restore window contents. Window layout must match.
func (dev *TestDev) RestoreState(r io.Reader) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	image := make([]byte, len(dev.image()))
	if err := device.ReadFrame(r, testMagic1, testMagic2, image); err != nil {
		return err
	}
	for _, w := range dev.windows {
		n := copy(w.data, image)
		image = image[n:]
	}
	return nil
}
