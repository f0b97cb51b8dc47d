/*
 * ES40 - Telnet monitor test cases
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
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rcornwell/ES40/command/parser"
	config "github.com/rcornwell/ES40/config/configparser"
	"github.com/rcornwell/ES40/emu/system"
)

func newTestSystem(t *testing.T) *system.System {
	t.Helper()
	sys, err := system.New(20, 1)
	if err != nil {
		t.Fatalf("Unable to create system: %v", err)
	}
	return sys
}

func TestSession(t *testing.T) {
	sys := newTestSystem(t)
	var buf bytes.Buffer
	state := tnState{state: tnStateData, conn: &buf, mon: parser.NewMonitor(sys, crlfWriter{w: &buf})}

	// Options are refused once.
	state.input([]byte{tnIAC, tnDO, 1, tnIAC, tnDO, 1, tnIAC, tnWILL, 24, tnIAC, tnWONT, 3})
	expect := []byte{tnIAC, tnWONT, 1, tnIAC, tnDONT, 24}
	if !bytes.Equal(buf.Bytes(), expect) {
		t.Errorf("Option reply not correct got: %v expected: %v", buf.Bytes(), expect)
	}

	// Sub negotiation is skipped.
	buf.Reset()
	state.input([]byte{tnIAC, tnSB, 24, 0, 'x', tnIAC, tnSE})
	if buf.Len() != 0 || len(state.line) != 0 || state.state != tnStateData {
		t.Errorf("Sub negotiation not skipped got: %q line: %q", buf.String(), state.line)
	}

	if state.input([]byte("deposit 1000 5\r\n")) {
		t.Errorf("Deposit ended session")
	}
	buf.Reset()
	state.input([]byte("examine 1000 8x\x7f\r\x00"))
	if buf.String() != "00000001000: 05\r\nES40> " {
		t.Errorf("Examine not correct got: %q", buf.String())
	}

	buf.Reset()
	state.input([]byte("bogus\n"))
	if buf.String() != "Error: command not found: bogus\r\nES40> " {
		t.Errorf("Error not correct got: %q", buf.String())
	}

	if !state.input([]byte("quit\r\n")) {
		t.Errorf("Quit did not end session")
	}
}

// Read from conn until text is seen.
func readUntil(t *testing.T, conn net.Conn, text string) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got []byte
	buffer := make([]byte, 256)
	for !strings.Contains(string(got), text) {
		n, err := conn.Read(buffer)
		if err != nil {
			t.Fatalf("Read failed after %q: %v", got, err)
		}
		got = append(got, buffer[:n]...)
	}
	return string(got)
}

func TestServer(t *testing.T) {
	sys := newTestSystem(t)
	s := NewServer(sys, "127.0.0.1:0")
	if err := s.StartThreads(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.StopThreads()
	if err := s.CheckState(); err != nil {
		t.Errorf("Check state failed: %v", err)
	}

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, prompt)

	sys.WriteMem(0x1000, 8, 0x5a, nil)
	_, _ = conn.Write([]byte("examine 1000 8\r\n"))
	got := readUntil(t, conn, prompt)
	if got != "00000001000: 5a\r\n"+prompt {
		t.Errorf("Examine not correct got: %q", got)
	}

	s.StopThreads()
	if err := s.CheckState(); err != nil {
		t.Errorf("Check state after stop failed: %v", err)
	}
	if _, err := net.Dial("tcp", s.Addr()); err == nil {
		t.Errorf("Server still listening after stop")
	}
}

func TestPortConfig(t *testing.T) {
	sys := newTestSystem(t)
	if err := config.LoadConfig(sys, strings.NewReader("PORT 2323 address=127.0.0.1\n")); err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	s, ok := sys.Component("telnet").(*Server)
	if !ok {
		t.Fatalf("Telnet server not created")
	}
	if s.Addr() != "127.0.0.1:2323" {
		t.Errorf("Address not correct got: %s expected: %s", s.Addr(), "127.0.0.1:2323")
	}

	for _, line := range []string{
		"PORT 2324\n",
		"PORT abc\n",
		"PORT 99999\n",
	} {
		if err := config.LoadConfig(sys, strings.NewReader(line)); err == nil {
			t.Errorf("Config %q did not fail", line)
		}
	}
	other := newTestSystem(t)
	if err := config.LoadConfig(other, strings.NewReader("PORT 23 speed=9600\n")); err == nil {
		t.Errorf("Invalid option did not fail")
	}
}
