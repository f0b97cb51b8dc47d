/*
 * ES40 - Debug option test cases
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

package debug

import (
	"bytes"
	"strings"
	"testing"
)

var testOptions = map[string]int{
	"CMD":  1,
	"DATA": 2,
}

// Options set bits in mask.
func TestSetOption(t *testing.T) {
	mask := 0
	if err := SetOption(testOptions, "data", &mask); err != nil {
		t.Errorf("SetOption returned error: %v", err)
	}
	if mask != 2 {
		t.Errorf("Mask not correct got: %x expected: %x", mask, 2)
	}
	if err := SetOption(testOptions, "ALL", &mask); err != nil {
		t.Errorf("SetOption ALL returned error: %v", err)
	}
	if mask != 3 {
		t.Errorf("Mask not correct got: %x expected: %x", mask, 3)
	}
	err := SetOption(testOptions, "BOGUS", &mask)
	if err == nil {
		t.Fatal("Invalid option did not return error")
	}
	if !strings.Contains(err.Error(), "CMD,DATA") {
		t.Errorf("Error does not list options: %v", err)
	}
}

// Messages only written when level in mask.
func TestDebugf(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Debugf("TEST", 1, 2, "not shown %d", 1)
	if buf.Len() != 0 {
		t.Errorf("Masked message written: %q", buf.String())
	}
	Debugf("TEST", 3, 2, "shown %d", 2)
	if buf.String() != "TEST: shown 2\n" {
		t.Errorf("Message not correct got: %q", buf.String())
	}
}
