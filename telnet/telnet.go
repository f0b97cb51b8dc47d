/*
 * ES40 - Telnet monitor session
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

package telnet

import (
	"bytes"
	"io"
	"log/slog"
	"net"

	"github.com/rcornwell/ES40/command/parser"
	"github.com/rcornwell/ES40/emu/system"
)

// Telnet protocol constants.
const (
	tnIAC  byte = 255 // protocol delim
	tnDONT byte = 254 // dont
	tnDO   byte = 253 // do
	tnWONT byte = 252 // wont
	tnWILL byte = 251 // will
	tnSB   byte = 250 // Sub negotiations begin
	tnSE   byte = 240 // Sub negotiations end

	// Telnet line states.
	tnStateData = 1 + iota // normal
	tnStateIAC             // IAC seen
	tnStateWILL            // WILL seen
	tnStateDO              // DO seen
	tnStateSKIP            // skip option of WONT or DONT
	tnStateSB              // In sub negotiation
	tnStateSE              // IAC seen in sub negotiation

	// Telnet flags.
	tnFlagDont uint8 = 0x02 // Don't sent
	tnFlagWont uint8 = 0x08 // Wont sent

	maxLine = 256
	prompt  = "ES40> "
)

type tnState struct {
	optionState [256]uint8 // Options refused
	state       int        // Current line State
	line        []byte     // Command being collected
	lastCR      bool       // Previous character was a return
	conn        io.Writer
	mon         *parser.Monitor
}

// Send a refusal once per option.
func (state *tnState) refuse(setState, option byte, flag uint8) {
	if state.optionState[option]&flag != 0 {
		return
	}
	state.optionState[option] |= flag
	_, _ = state.conn.Write([]byte{tnIAC, setState, option})
}

// Convert line ends to network form.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	_, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n")))
	return len(p), err
}

// Handle client connection.
func handleClient(conn net.Conn, sys *system.System) {
	defer conn.Close()

	out := crlfWriter{w: conn}
	state := tnState{state: tnStateData, conn: conn, mon: parser.NewMonitor(sys, out)}
	_, _ = io.WriteString(out, prompt)

	buffer := make([]byte, 1024)
	for {
		num, err := conn.Read(buffer)
		if err != nil {
			return
		}
		if state.input(buffer[:num]) {
			return
		}
	}
}

// Process input from client, returns true when session should end.
func (state *tnState) input(data []byte) bool {
	for _, input := range data {
		switch state.state {
		case tnStateData:
			if state.data(input) {
				return true
			}

		case tnStateIAC: // IAC seen
			switch input {
			case tnIAC:
				state.state = tnStateData
			case tnWILL:
				state.state = tnStateWILL
			case tnDO:
				state.state = tnStateDO
			case tnWONT, tnDONT:
				state.state = tnStateSKIP
			case tnSB:
				state.state = tnStateSB
			default:
				state.state = tnStateData
			}

		case tnStateWILL: // Client offers option, not wanted.
			state.refuse(tnDONT, input, tnFlagDont)
			state.state = tnStateData

		case tnStateDO: // Client asks for option, not supported.
			state.refuse(tnWONT, input, tnFlagWont)
			state.state = tnStateData

		case tnStateSKIP:
			state.state = tnStateData

		case tnStateSB:
			if input == tnIAC {
				state.state = tnStateSE
			}

		case tnStateSE:
			if input == tnSE {
				state.state = tnStateData
			} else {
				state.state = tnStateSB
			}
		}
	}
	return false
}

// Handle one data character.
func (state *tnState) data(input byte) bool {
	cr := state.lastCR
	state.lastCR = false
	switch input {
	case tnIAC:
		state.state = tnStateIAC
		state.lastCR = cr
	case '\r':
		state.lastCR = true
		return state.execute()
	case '\n':
		if !cr {
			return state.execute()
		}
	case 0:
	case 0x08, 0x7f:
		if len(state.line) > 0 {
			state.line = state.line[:len(state.line)-1]
		}
	default:
		if len(state.line) < maxLine {
			state.line = append(state.line, input)
		}
	}
	return false
}

// Run collected command line.
func (state *tnState) execute() bool {
	command := string(state.line)
	state.line = state.line[:0]
	out := crlfWriter{w: state.conn}
	quit, err := state.mon.ProcessCommand(command)
	if err != nil {
		slog.Debug("Monitor command failed", "command", command, "error", err)
		_, _ = io.WriteString(out, "Error: "+err.Error()+"\n")
	}
	if quit {
		return true
	}
	_, _ = io.WriteString(out, prompt)
	return false
}
