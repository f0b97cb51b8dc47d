/*
 * ES40 - Idle CPU
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

package cpu

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/rcornwell/ES40/emu/device"
)

const (
	idleQuantum = 1000 // Cycles accounted per Step

	idleMagic1 uint32 = 0x49444C45 // "IDLE"
	idleMagic2 uint32 = 0x454C4449
)

// Time an idle processor waits per step.
var idleSleep = 100 * time.Microsecond

// Idle is a processor that executes nothing: it keeps its interrupt pins
// clocked so the chipset side of the machine runs without an instruction
// execution core linked in.
type Idle struct {
	device.Base
	Pins
	cycles atomic.Uint64
}

type idleState struct {
	Level  uint8
	Cycles uint64
}

// Create an idle CPU.
func NewIdle(name string) *Idle {
	return &Idle{Base: device.NewBase(name)}
}

// Run one quantum, returns number of cycles run.
func (c *Idle) Step() int {
	c.Advance(idleQuantum)
	c.cycles.Add(idleQuantum)
	if idleSleep > 0 {
		time.Sleep(idleSleep)
	}
	return idleQuantum
}

// Number of cycles run so far.
func (c *Idle) Cycles() uint64 {
	return c.cycles.Load()
}

// Save interrupt pins and cycle count.
func (c *Idle) SaveState(w io.Writer) error {
	state := idleState{Level: c.Level(), Cycles: c.cycles.Load()}
	return device.WriteFrame(w, idleMagic1, idleMagic2, &state)
}

// Restore interrupt pins and cycle count.
func (c *Idle) RestoreState(r io.Reader) error {
	var state idleState
	if err := device.ReadFrame(r, idleMagic1, idleMagic2, &state); err != nil {
		return err
	}
	c.SetLevel(state.Level)
	c.cycles.Store(state.Cycles)
	return nil
}
