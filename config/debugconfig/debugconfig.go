/*
 * ES40 - Debug options configuration.
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

package debugconfig

import (
	"errors"
	"strings"

	config "github.com/rcornwell/ES40/config/configparser"
	"github.com/rcornwell/ES40/emu/device"
	"github.com/rcornwell/ES40/emu/system"
	"github.com/rcornwell/ES40/util/debug"
)

// register options on initialize.
func init() {
	config.RegisterModel("DEBUG", config.TypeOptions, setDebug)
	config.RegisterFile("DEBUGFILE", setDebugFile)
}

// Set debug options of system or a named component.
func setDebug(sys *system.System, _ uint64, name string, options []config.Option) error {
	var target device.Debugger

	if strings.EqualFold(name, "SYSTEM") {
		target = sys
	} else {
		c := sys.Component(name)
		if c == nil {
			return errors.New("debug option invalid, no component: " + name)
		}
		d, ok := c.(device.Debugger)
		if !ok {
			return errors.New("component has no debug options: " + name)
		}
		target = d
	}

	if len(options) == 0 {
		return errors.New("debug requires options for: " + name)
	}
	for _, opt := range options {
		for _, value := range opt.Names() {
			if err := target.Debug(strings.ToUpper(value)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Open file for debug output.
func setDebugFile(_ *system.System, _ uint64, fileName string, _ []config.Option) error {
	return debug.OpenFile(fileName)
}
