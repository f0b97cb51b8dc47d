/*
 * ES40 - Component lifecycle
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
)

// Initialize every component in registration order.
func (sys *System) Init() error {
	for _, c := range sys.Components() {
		if err := c.Init(); err != nil {
			return fmt.Errorf("%s: init: %w", c.Name(), err)
		}
	}
	return nil
}

// Start component workers. If one fails those already started are stopped.
func (sys *System) StartThreads() error {
	components := sys.Components()
	for i, c := range components {
		if err := c.StartThreads(); err != nil {
			for j := i - 1; j >= 0; j-- {
				components[j].StopThreads()
			}
			return fmt.Errorf("%s: start: %w", c.Name(), err)
		}
	}
	slog.Debug("Started component threads", "count", len(components))
	return nil
}

// Stop component workers.
func (sys *System) StopThreads() {
	for _, c := range sys.Components() {
		c.StopThreads()
	}
}

// Ask every component if it is still healthy.
func (sys *System) CheckState() error {
	for _, c := range sys.Components() {
		if err := c.CheckState(); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}
