/*
 * ES40 - CPU interrupt pins
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
	"sync"

	"github.com/rcornwell/ES40/emu/event"
)

// Interrupt pins driven by the chipset.
const (
	IrqError  = 0 // IRQ0, chipset error lines
	IrqDevice = 1 // IRQ1, device interrupts
	IrqTimer  = 2 // IRQ2, interval timer
	IrqIPI    = 3 // IRQ3, interprocessor interrupt
	NumPins   = 4
)

// Pins holds the external interrupt request pins of one CPU. An assertion
// may be delayed by a number of CPU cycles, the CPU core calls Advance as it
// executes so that delayed requests become visible.
type Pins struct {
	mu     sync.Mutex
	level  uint8 // Asserted pins, one bit per pin
	wanted uint8 // Pins waiting on a delayed assert
	events event.List
}

// Assert or clear pin after delay cycles. A pin that is already asserted or
// waiting to be asserted is left alone, so repeated requests do not push
// the delivery further out.
func (pins *Pins) IrqH(pin int, assert bool, delay int) {
	if pin < 0 || pin >= NumPins {
		return
	}
	bit := uint8(1) << pin

	pins.mu.Lock()
	defer pins.mu.Unlock()
	active := (pins.level|pins.wanted)&bit != 0
	switch {
	case assert && !active && delay <= 0:
		pins.level |= bit
	case assert && !active:
		pins.wanted |= bit
		pins.events.Add(pins.raise, delay, pin)
	case !assert && active:
		pins.level &^= bit
		pins.wanted &^= bit
		pins.events.Cancel(pin)
	}
}

// Delay expired, pin becomes visible unless it was cleared after the
// event left the list.
func (pins *Pins) raise(pin int) {
	bit := uint8(1) << pin
	pins.mu.Lock()
	if pins.wanted&bit != 0 {
		pins.wanted &^= bit
		pins.level |= bit
	}
	pins.mu.Unlock()
}

// Run clock forward by cycles.
func (pins *Pins) Advance(cycles int) {
	pins.events.Advance(cycles)
}

// Check if pin is asserted.
func (pins *Pins) Asserted(pin int) bool {
	return pins.Level()&(uint8(1)<<pin) != 0
}

// Return asserted pins as a bit mask.
func (pins *Pins) Level() uint8 {
	pins.mu.Lock()
	defer pins.mu.Unlock()
	return pins.level
}

// Set pins directly, used when restoring state. Pending delays are dropped.
func (pins *Pins) SetLevel(level uint8) {
	pins.mu.Lock()
	defer pins.mu.Unlock()
	for pin := range NumPins {
		pins.events.Cancel(pin)
	}
	pins.wanted = 0
	pins.level = level & ((1 << NumPins) - 1)
}
