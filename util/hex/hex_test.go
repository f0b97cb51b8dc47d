/*
 * ES40 - Hex formatting test cases
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

package hex

import (
	"strings"
	"testing"
)

func TestFormatQuad(t *testing.T) {
	var str strings.Builder
	FormatQuad(&str, []uint64{0x0123456789abcdef, 0x10})
	if str.String() != "0123456789ABCDEF 0000000000000010 " {
		t.Errorf("Quad not correct got: %q", str.String())
	}
}

func TestFormatAddr(t *testing.T) {
	var str strings.Builder
	FormatAddr(&str, 0x801a0000300)
	if str.String() != "801A0000300" {
		t.Errorf("Address not correct got: %q expected: %q", str.String(), "801A0000300")
	}
}

func TestFormatBytes(t *testing.T) {
	var str strings.Builder
	data := []byte{'A', 0x00, 'z', 0x7f}
	FormatBytes(&str, true, data)
	FormatBytes(&str, false, data)
	FormatASCII(&str, data)
	if str.String() != "41 00 7A 7F 41007A7FA.z." {
		t.Errorf("Bytes not correct got: %q", str.String())
	}
}
