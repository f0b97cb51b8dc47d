/*
 * ES40 - Monitor commands
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

package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rcornwell/ES40/emu/system"
)

var cmdList = []cmd{
	{Name: "examine", Min: 1, Process: examine},
	{Name: "deposit", Min: 2, Process: deposit},
	{Name: "dump", Min: 2, Process: dump},
	{Name: "interrupt", Min: 1, Process: interrupt, Complete: interruptComplete},
	{Name: "show", Min: 2, Process: show, Complete: showComplete},
	{Name: "save", Min: 2, Process: save},
	{Name: "restore", Min: 1, Process: restore},
	{Name: "list", Min: 2, Process: list},
	{Name: "load", Min: 2, Process: load},
	{Name: "quit", Min: 1, Process: quit},
}

// Handle commands that quit simulation.
func quit(line *cmdLine, _ *Monitor) (bool, error) {
	slog.Debug("Command Quit")
	return true, line.checkEOL()
}

// Process the interrupt command, interrupt <line|timer> on|off.
func interrupt(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command Interrupt")
	irq := system.TimerLine
	if line.getWord() != "timer" {
		n, err := line.getNumber()
		if err != nil {
			return false, errors.New("interrupt requires line number or timer")
		}
		if n > 63 {
			return false, fmt.Errorf("interrupt line %d out of range", n)
		}
		irq = n
	}

	var assert bool
	switch line.getWord() {
	case "on":
		assert = true
	case "off":
		if irq == system.TimerLine {
			return false, errors.New("timer interrupt can not be cleared")
		}
	default:
		return false, errors.New("interrupt must be followed by on or off")
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	mon.sys.Interrupt(irq, assert)
	return false, nil
}

// Interrupt command completion.
func interruptComplete(line *cmdLine) []string {
	return line.matchWords([]string{"timer"})
}

// Save machine state to file.
func save(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command Save")
	name, err := line.getFileName()
	if err != nil {
		return false, err
	}
	return false, mon.sys.SaveState(name)
}

// Restore machine state from file.
func restore(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command Restore")
	name, err := line.getFileName()
	if err != nil {
		return false, err
	}
	return false, mon.sys.RestoreState(name)
}

// Write all of memory to file.
func dump(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command Dump")
	name, err := line.getFileName()
	if err != nil {
		return false, err
	}
	file, err := os.Create(name)
	if err != nil {
		return false, err
	}
	if err := mon.sys.Memory().Dump(file); err != nil {
		file.Close()
		return false, err
	}
	return false, file.Close()
}

// Load file into memory, load <file> [addr].
func load(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command Load")
	name, ok := line.parseQuoteString()
	if !ok || name == "" {
		return false, errors.New("load requires file name")
	}
	var addr uint64
	line.skipSpace()
	if !line.isEOL() {
		var err error
		addr, err = line.getHex()
		if err != nil {
			return false, err
		}
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}

	file, err := os.Open(name)
	if err != nil {
		return false, err
	}
	defer file.Close()
	n, err := mon.sys.Memory().Load(file, addr)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(mon.out, "Loaded %d bytes at %x\n", n, addr)
	return false, nil
}

// Process the show command.
func show(line *cmdLine, mon *Monitor) (bool, error) {
	slog.Debug("Command Show")
	what := line.getWord()
	if err := line.checkEOL(); err != nil {
		return false, err
	}

	var match []showCmd
	for _, s := range showList {
		if what != "" && strings.HasPrefix(s.name, what) {
			match = append(match, s)
		}
	}
	if len(match) != 1 {
		return false, errors.New("show requires one of: " + strings.Join(showNames(), ", "))
	}
	match[0].show(mon)
	return false, nil
}

// Show command completion.
func showComplete(line *cmdLine) []string {
	return line.matchWords(showNames())
}

// Get single file name argument.
func (line *cmdLine) getFileName() (string, error) {
	name, ok := line.parseQuoteString()
	if !ok || name == "" {
		return "", errors.New("file name required")
	}
	return name, line.checkEOL()
}
