/*
 * ES40 - Core emulator loop
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
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rcornwell/ES40/emu/system"
)

// Time between health checks of components.
var checkInterval = 100 * time.Millisecond

// Stepper is a CPU that executes instructions. Step runs a quantum and
// returns the number of cycles used.
type Stepper interface {
	Step() int
}

// Counter reports cycles run by a CPU.
type Counter interface {
	Cycles() uint64
}

type Core struct {
	sys    *system.System
	cancel context.CancelFunc
	done   chan struct{} // Closed once every goroutine has finished.
	mu     sync.Mutex
	err    error
}

// Create run loop for system.
func NewCore(sys *system.System) *Core {
	return &Core{sys: sys}
}

// Start components and CPUs running, initializing them first when reset is
// set. The machine runs until ctx is cancelled, Stop is called, or a
// component reports a failure.
func (core *Core) Start(ctx context.Context, reset bool) error {
	if reset {
		if err := core.sys.Init(); err != nil {
			return err
		}
	}
	if err := core.sys.StartThreads(); err != nil {
		return err
	}

	ctx, core.cancel = context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	for _, cpu := range core.sys.CPUs() {
		if stepper, ok := cpu.(Stepper); ok {
			group.Go(func() error {
				return runCPU(ctx, stepper)
			})
		}
	}
	group.Go(func() error {
		return core.supervise(ctx)
	})

	core.done = make(chan struct{})
	go func() {
		err := group.Wait()
		core.sys.StopThreads()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			slog.Error("Emulation stopped", "error", err)
		}
		core.mu.Lock()
		core.err = err
		core.mu.Unlock()
		close(core.done)
	}()
	slog.Info("Emulation started")
	return nil
}

// Channel closed when emulation has stopped.
func (core *Core) Done() <-chan struct{} {
	return core.done
}

// Reason emulation stopped, nil if stopped on request.
func (core *Core) Err() error {
	core.mu.Lock()
	defer core.mu.Unlock()
	return core.err
}

// Stop a running system.
func (core *Core) Stop() {
	if core.cancel == nil {
		return
	}
	slog.Info("Shutting down CPU")
	core.cancel()

	select {
	case <-core.done:
		return
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for CPU to finish.")
		return
	}
}

// Keep CPU stepping until cancelled.
func runCPU(ctx context.Context, cpu Stepper) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			cpu.Step()
		}
	}
}

// Check health of components and report progress.
func (core *Core) supervise(ctx context.Context) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := core.sys.CheckState(); err != nil {
				return err
			}
			slog.Debug("Running", "elapsed", time.Since(start).Round(time.Millisecond), "cycles", core.cycles())
		}
	}
}

// Total cycles run by all CPUs.
func (core *Core) cycles() uint64 {
	var total uint64
	for _, cpu := range core.sys.CPUs() {
		if counter, ok := cpu.(Counter); ok {
			total += counter.Cycles()
		}
	}
	return total
}
