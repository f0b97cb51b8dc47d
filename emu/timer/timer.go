/*
 * ES40 - Interval timer
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

package timer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	config "github.com/rcornwell/ES40/config/configparser"
	"github.com/rcornwell/ES40/emu/device"
	"github.com/rcornwell/ES40/emu/system"
)

const (
	DefaultHz = 1024 // Ticks per second

	timerMagic1 uint32 = 0x54494D52 // "TIMR"
	timerMagic2 uint32 = 0x524D4954
)

var ErrStopped = errors.New("timer worker stopped")

// Interrupter receives interval timer ticks.
type Interrupter interface {
	Interrupt(line int, assert bool)
}

// Timer raises the interval timer interrupt at a fixed rate while its
// worker is running.
type Timer struct {
	device.Base
	irq     Interrupter
	hz      int
	wg      sync.WaitGroup
	done    chan struct{} // Stop timer task.
	ticker  *time.Ticker  // Regular timer interval.
	started bool          // Worker has been started.
	running atomic.Bool   // Worker is alive.
	ticks   atomic.Uint64
}

type timerState struct {
	Hz    uint32
	Ticks uint64
}

// register a device on initialize.
func init() {
	config.RegisterOption("TIMER", create)
}

// Create timer from configuration.
func create(sys *system.System, _ uint64, value string, _ []config.Option) error {
	hz, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("timer requires rate in ticks per second: %s", value)
	}
	timer, err := NewTimer("timer", sys, hz)
	if err != nil {
		return err
	}
	sys.RegisterComponent(timer)
	return nil
}

// Create instance of interval timer.
func NewTimer(name string, irq Interrupter, hz int) (*Timer, error) {
	if hz < 1 || hz > 1000000 {
		return nil, fmt.Errorf("timer rate %d out of range", hz)
	}
	return &Timer{Base: device.NewBase(name), irq: irq, hz: hz}, nil
}

// Time between ticks.
func (timer *Timer) Interval() time.Duration {
	return time.Second / time.Duration(timer.hz)
}

// Number of ticks delivered.
func (timer *Timer) Ticks() uint64 {
	return timer.ticks.Load()
}

// Start timer worker.
func (timer *Timer) StartThreads() error {
	if timer.started {
		return nil
	}
	timer.done = make(chan struct{})
	timer.started = true
	timer.running.Store(true)
	timer.wg.Add(1)
	go timer.run()
	return nil
}

// Shutdown timer worker.
func (timer *Timer) StopThreads() {
	if !timer.started {
		return
	}
	timer.started = false
	close(timer.done)
	done := make(chan struct{})
	go func() {
		timer.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for timer to finish.")
		return
	}
}

// Report worker that has exited without being stopped.
func (timer *Timer) CheckState() error {
	if timer.started && !timer.running.Load() {
		return ErrStopped
	}
	return nil
}

// Interval timer routine to post timer interrupts.
func (timer *Timer) run() {
	defer timer.wg.Done()
	defer timer.running.Store(false)
	timer.ticker = time.NewTicker(timer.Interval())
	defer timer.ticker.Stop()

	for {
		select {
		case <-timer.ticker.C:
			timer.ticks.Add(1)
			timer.irq.Interrupt(system.TimerLine, true)
		case <-timer.done:
			return
		}
	}
}

// Save rate and tick count.
func (timer *Timer) SaveState(w io.Writer) error {
	state := timerState{Hz: uint32(timer.hz), Ticks: timer.ticks.Load()}
	return device.WriteFrame(w, timerMagic1, timerMagic2, &state)
}

// Restore tick count, rate must match configuration.
func (timer *Timer) RestoreState(r io.Reader) error {
	var state timerState
	if err := device.ReadFrame(r, timerMagic1, timerMagic2, &state); err != nil {
		return err
	}
	if int(state.Hz) != timer.hz {
		return fmt.Errorf("%w: timer rate %d configured %d", device.ErrFrame, state.Hz, timer.hz)
	}
	timer.ticks.Store(state.Ticks)
	return nil
}
