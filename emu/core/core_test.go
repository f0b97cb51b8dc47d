/*
 * ES40 - Core emulator loop test cases
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

package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcornwell/ES40/emu/cpu"
	"github.com/rcornwell/ES40/emu/device"
	"github.com/rcornwell/ES40/emu/system"
)

// Component that can be told to fail.
type healthDev struct {
	device.Base
	fail    atomic.Bool
	started atomic.Bool
}

var errDead = errors.New("worker died")

func (dev *healthDev) StartThreads() error {
	dev.started.Store(true)
	return nil
}

func (dev *healthDev) StopThreads() {
	dev.started.Store(false)
}

func (dev *healthDev) CheckState() error {
	if dev.fail.Load() {
		return errDead
	}
	return nil
}

func newTestCore(t *testing.T) (*Core, *system.System, *healthDev, *cpu.Idle) {
	t.Helper()
	checkInterval = 10 * time.Millisecond
	sys, err := system.New(20, 1)
	if err != nil {
		t.Fatalf("Unable to create system: %v", err)
	}
	c := cpu.NewIdle("cpu0")
	if _, err := sys.RegisterCPU(c); err != nil {
		t.Fatalf("Unable to register CPU: %v", err)
	}
	dev := &healthDev{Base: device.NewBase("health")}
	sys.RegisterComponent(dev)
	return NewCore(sys), sys, dev, c
}

func TestCoreStop(t *testing.T) {
	core, _, dev, c := newTestCore(t)
	if err := core.Start(context.Background(), true); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !dev.started.Load() {
		t.Errorf("Component threads not started")
	}
	time.Sleep(50 * time.Millisecond)
	core.Stop()

	select {
	case <-core.Done():
	default:
		t.Fatalf("Core not stopped")
	}
	if core.Err() != nil {
		t.Errorf("Stop returned error: %v", core.Err())
	}
	if dev.started.Load() {
		t.Errorf("Component threads not stopped")
	}
	if c.Cycles() == 0 {
		t.Errorf("CPU did not run")
	}
	if core.cycles() != c.Cycles() {
		t.Errorf("Cycle count not correct got: %d expected: %d", core.cycles(), c.Cycles())
	}
}

// A failing component stops the machine.
func TestCoreCheckState(t *testing.T) {
	core, _, dev, _ := newTestCore(t)
	if err := core.Start(context.Background(), true); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	dev.fail.Store(true)

	select {
	case <-core.Done():
	case <-time.After(2 * time.Second):
		core.Stop()
		t.Fatalf("Core did not stop on failed component")
	}
	if !errors.Is(core.Err(), errDead) {
		t.Errorf("Error not correct got: %v expected: %v", core.Err(), errDead)
	}
	if dev.started.Load() {
		t.Errorf("Component threads not stopped")
	}
}

// Cancelling the context stops the machine.
func TestCoreCancel(t *testing.T) {
	core, _, _, _ := newTestCore(t)
	ctx, cancel := context.WithCancel(context.Background())
	if err := core.Start(ctx, true); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	select {
	case <-core.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Core did not stop on cancel")
	}
	if core.Err() != nil {
		t.Errorf("Cancel returned error: %v", core.Err())
	}
}
