/*
 * ES40 - System configuration options
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

package sysconfig

import (
	"fmt"
	"log/slog"
	"strconv"

	config "github.com/rcornwell/ES40/config/configparser"
	"github.com/rcornwell/ES40/emu/cpu"
	"github.com/rcornwell/ES40/emu/system"
)

// register options on initialize.
func init() {
	config.RegisterOption("MEMORY", setMemory)
	config.RegisterOption("CPUS", setCPUs)
	config.RegisterOption("HOSES", setHoses)
}

// Set memory size as a power of two.
func setMemory(sys *system.System, _ uint64, value string, _ []config.Option) error {
	bits, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return fmt.Errorf("memory requires number of address bits: %s", value)
	}
	if err := sys.ResetMem(uint(bits)); err != nil {
		return err
	}
	slog.Debug("Memory configured", "bits", bits, "size", sys.MemorySize())
	return nil
}

// Add idle processors.
func setCPUs(sys *system.System, _ uint64, value string, _ []config.Option) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("cpus requires number of processors: %s", value)
	}
	for range n {
		name := fmt.Sprintf("cpu%d", sys.NumCPUs())
		id, err := sys.RegisterCPU(cpu.NewIdle(name))
		if err != nil {
			return err
		}
		slog.Debug("CPU configured", "name", name, "id", id)
	}
	return nil
}

// Set number of PCI hoses.
func setHoses(sys *system.System, _ uint64, value string, _ []config.Option) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("hoses requires a number: %s", value)
	}
	return sys.SetHoses(n)
}
