/*
 * ES40 - Device and memory range registry
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
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcornwell/ES40/emu/device"
)

// Claim length bytes at base for index of component. Registering the same
// component and index again moves the range. Overlaps with other components
// are reported but accepted, the first matching range wins.
func (sys *System) RegisterMemory(c device.Component, index int, base, length uint64) {
	sys.regMu.Lock()
	defer sys.regMu.Unlock()

	base &= addrMask
	slot := -1
	for i := range sys.regions {
		if sys.regions[i].Owner == c && sys.regions[i].Index == index {
			slot = i
			break
		}
	}
	if slot < 0 {
		sys.regions = append(sys.regions, Region{Owner: c, Index: index})
		slot = len(sys.regions) - 1
	}
	sys.regions[slot].Base = base
	sys.regions[slot].Length = length

	for i := range sys.regions {
		other := &sys.regions[i]
		if other.Owner == c {
			continue
		}
		if base < other.Base+other.Length && other.Base < base+length {
			slog.Warn("Memory range overlaps another device",
				"component", c.Name(), "index", index,
				"base", fmt.Sprintf("%011x", base), "length", fmt.Sprintf("%x", length),
				"other", other.Owner.Name(), "other_base", fmt.Sprintf("%011x", other.Base))
		}
	}
}

// Add component to list of components, duplicates are ignored.
func (sys *System) RegisterComponent(c device.Component) {
	sys.regMu.Lock()
	defer sys.regMu.Unlock()
	sys.addComponent(c)
}

func (sys *System) addComponent(c device.Component) {
	for _, old := range sys.components {
		if old == c {
			return
		}
	}
	sys.components = append(sys.components, c)
}

// Remove component along with any memory ranges it owns. A CPU keeps its
// id reserved but no longer receives interrupts.
func (sys *System) UnregisterComponent(c device.Component) {
	sys.regMu.Lock()
	defer sys.regMu.Unlock()

	components := sys.components[:0]
	for _, old := range sys.components {
		if old != c {
			components = append(components, old)
		}
	}
	clear(sys.components[len(components):])
	sys.components = components

	regions := sys.regions[:0]
	for _, r := range sys.regions {
		if r.Owner != c {
			regions = append(regions, r)
		}
	}
	clear(sys.regions[len(regions):])
	sys.regions = regions

	for i, cpu := range sys.cpus {
		if cpu != nil && device.Component(cpu) == c {
			sys.cpus[i] = nil
		}
	}
}

// Register a CPU, returns its id. The CPU is also added as a component.
func (sys *System) RegisterCPU(cpu CPU) (int, error) {
	sys.regMu.Lock()
	defer sys.regMu.Unlock()

	if sys.numCPUs >= MaxCPUs {
		return -1, fmt.Errorf("%w: %s, at most %d supported", ErrTooManyCPUs, cpu.Name(), MaxCPUs)
	}
	id := sys.numCPUs
	sys.cpus[id] = cpu
	sys.numCPUs++
	sys.addComponent(cpu)
	return id, nil
}

// Return id of CPU, or -1 if source is not a registered CPU.
func (sys *System) CPUID(source device.Component) int {
	if source == nil {
		return -1
	}
	sys.regMu.RLock()
	defer sys.regMu.RUnlock()
	for i, cpu := range sys.cpus {
		if cpu != nil && device.Component(cpu) == source {
			return i
		}
	}
	return -1
}

// Number of CPU ids handed out.
func (sys *System) NumCPUs() int {
	sys.regMu.RLock()
	defer sys.regMu.RUnlock()
	return sys.numCPUs
}

// Copy of the registered memory ranges in scan order.
func (sys *System) Regions() []Region {
	sys.regMu.RLock()
	defer sys.regMu.RUnlock()
	return append([]Region(nil), sys.regions...)
}

// Copy of the components in registration order.
func (sys *System) Components() []device.Component {
	sys.regMu.RLock()
	defer sys.regMu.RUnlock()
	return append([]device.Component(nil), sys.components...)
}

// Registered CPUs indexed by id, unregistered slots are nil.
func (sys *System) CPUs() [MaxCPUs]CPU {
	sys.regMu.RLock()
	defer sys.regMu.RUnlock()
	return sys.cpus
}

// Find first range containing addr.
func (sys *System) findRegion(addr uint64) (Region, bool) {
	sys.regMu.RLock()
	defer sys.regMu.RUnlock()
	for _, r := range sys.regions {
		if r.Contains(addr) {
			return r, true
		}
	}
	return Region{}, false
}

// Find component by name, used by configuration and the monitor.
func (sys *System) Component(name string) device.Component {
	sys.regMu.RLock()
	defer sys.regMu.RUnlock()
	for _, c := range sys.components {
		if strings.EqualFold(c.Name(), name) {
			return c
		}
	}
	return nil
}
