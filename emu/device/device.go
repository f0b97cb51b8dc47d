/*
 * ES40 - System component interface
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

package device

import (
	"io"
)

// Component is implemented by everything attached to the system bus.
// Index lets one component own several disjoint address ranges, offset is
// relative to the base of that range. Size is the access width in bits.
type Component interface {
	Name() string
	ReadMem(index int, offset uint64, size int) uint64
	WriteMem(index int, offset uint64, size int, data uint64)
	CheckState() error
	Init() error
	StartThreads() error
	StopThreads()
	SaveState(w io.Writer) error
	RestoreState(r io.Reader) error
}

// Debugger is implemented by components that accept DEBUG options.
type Debugger interface {
	Debug(option string) error
}

// Base supplies do-nothing versions of the Component methods, embed it and
// override what the device needs.
type Base struct {
	name string
}

func NewBase(name string) Base {
	return Base{name: name}
}

func (base *Base) Name() string {
	return base.name
}

func (base *Base) ReadMem(_ int, _ uint64, _ int) uint64 {
	return 0
}

func (base *Base) WriteMem(_ int, _ uint64, _ int, _ uint64) {
}

func (base *Base) CheckState() error {
	return nil
}

func (base *Base) Init() error {
	return nil
}

func (base *Base) StartThreads() error {
	return nil
}

func (base *Base) StopThreads() {
}

func (base *Base) SaveState(_ io.Writer) error {
	return nil
}

func (base *Base) RestoreState(_ io.Reader) error {
	return nil
}
