/*
 * ES40 - Load locked and store conditional support
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

// Record that cpu holds a lock on addr.
func (sys *System) CPULock(cpu int, addr uint64) {
	if cpu < 0 || cpu >= MaxCPUs {
		return
	}
	sys.lckMu.Lock()
	defer sys.lckMu.Unlock()
	sys.locks[cpu] = lockEntry{Locked: true, Address: addr & addrMask}
	sys.debugf(debugLock, "CPU %d lock %011x", cpu, addr)
}

// Release lock of cpu, returns true if it was still held.
func (sys *System) CPUUnlock(cpu int) bool {
	if cpu < 0 || cpu >= MaxCPUs {
		return false
	}
	sys.lckMu.Lock()
	defer sys.lckMu.Unlock()
	held := sys.locks[cpu].Locked
	sys.locks[cpu].Locked = false
	return held
}

// Clear lock of cpu on behalf of source.
func (sys *System) CPUBreakLock(cpu int, source device.Component) {
	if cpu < 0 || cpu >= MaxCPUs {
		return
	}
	sys.lckMu.Lock()
	defer sys.lckMu.Unlock()
	sys.breakLock(cpu, source)
}

// Break every lock on the same line as addr not held by source.
func (sys *System) breakLocks(addr uint64, source device.Component) {
	sys.lckMu.Lock()
	defer sys.lckMu.Unlock()
	srcID := -2
	for i := range sys.locks {
		l := &sys.locks[i]
		if !l.Locked || (l.Address^addr)&lockMask != 0 {
			continue
		}
		if srcID == -2 {
			srcID = sys.CPUID(source)
		}
		if i != srcID {
			sys.breakLock(i, source)
		}
	}
}

// Called with lock table held.
func (sys *System) breakLock(cpu int, source device.Component) {
	if !sys.locks[cpu].Locked {
		return
	}
	sys.locks[cpu].Locked = false
	sys.debugf(debugLock, "CPU %d lock %011x broken by %s", cpu, sys.locks[cpu].Address, componentName(source))
}

func componentName(c device.Component) string {
	if c == nil {
		return "unknown"
	}
	return c.Name()
}
