/*
 * ES40 - Component state frames
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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrFrame = errors.New("state frame mismatch")

// Write state framed as magic1, size, state, magic2. State must be a
// fixed size value (or pointer to one) that encoding/binary can encode.
func WriteFrame(w io.Writer, magic1, magic2 uint32, state any) error {
	size := binary.Size(state)
	if size < 0 {
		return fmt.Errorf("state %T is not fixed size", state)
	}
	if err := binary.Write(w, binary.LittleEndian, magic1); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(size)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, state); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, magic2)
}

// Read a frame written by WriteFrame into state. On error state may be
// partially filled, so callers decode into a scratch value and copy it on
// success.
func ReadFrame(r io.Reader, magic1, magic2 uint32, state any) error {
	var magic uint32
	var size uint64

	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("reading frame start: %w", err)
	}
	if magic != magic1 {
		return fmt.Errorf("%w: start magic %08x expected %08x", ErrFrame, magic, magic1)
	}
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return fmt.Errorf("reading frame size: %w", err)
	}
	want := binary.Size(state)
	if want < 0 || size != uint64(want) {
		return fmt.Errorf("%w: size %d expected %d", ErrFrame, size, want)
	}
	if err := binary.Read(r, binary.LittleEndian, state); err != nil {
		return fmt.Errorf("reading frame data: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("reading frame end: %w", err)
	}
	if magic != magic2 {
		return fmt.Errorf("%w: end magic %08x expected %08x", ErrFrame, magic, magic2)
	}
	return nil
}
