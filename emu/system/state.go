/*
 * ES40 - Save and restore system state
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
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/rcornwell/ES40/emu/device"
)

const (
	snapMagic   uint32 = 0xA1FAE540
	snapVersion uint32 = 0x00020001
)

type snapHeader struct {
	Magic   uint32
	Version uint32
}

// Write system state to file path.
func (sys *System) SaveState(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	if err = sys.Save(file); err != nil {
		return err
	}
	slog.Info("System state saved", "file", path)
	return nil
}

// Restore system state from file path.
func (sys *System) RestoreState(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := sys.Restore(file); err != nil {
		slog.Error("Restore failed, state unchanged", "file", path, "error", err)
		return err
	}
	slog.Info("System state restored", "file", path)
	return nil
}

// Write memory, chipset registers and component state to w.
func (sys *System) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	hdr := snapHeader{Magic: snapMagic, Version: snapVersion}
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	writeRAM(bw, sys.mem.Bytes())

	state := sys.state()
	if err := binary.Write(bw, binary.LittleEndian, uint64(binary.Size(&state))); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, &state); err != nil {
		return err
	}

	for _, c := range sys.Components() {
		if err := c.SaveState(bw); err != nil {
			return fmt.Errorf("%s: save: %w", c.Name(), err)
		}
	}
	return bw.Flush()
}

// Load state written by Save. On any error the running state is left as it
// was.
func (sys *System) Restore(r io.Reader) error {
	br := bufio.NewReader(r)
	var hdr snapHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("%w: header: %w", ErrSnapshot, err)
	}
	if hdr.Magic != snapMagic {
		return fmt.Errorf("%w: magic %08x expected %08x", ErrSnapshot, hdr.Magic, snapMagic)
	}
	if hdr.Version != snapVersion {
		return fmt.Errorf("%w: version %08x expected %08x", ErrSnapshot, hdr.Version, snapVersion)
	}

	// The image does not record its size. A snapshot of a different
	// memory size runs past the end of RAM, or leaves image words where
	// the chipset size belongs.
	ram := make([]byte, sys.mem.Size())
	if err := readRAM(br, ram); err != nil {
		return err
	}

	var state chipsetState
	var size uint64
	if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
		return fmt.Errorf("%w: chipset size: %w", ErrSnapshot, err)
	}
	if size != uint64(binary.Size(&state)) {
		return fmt.Errorf("%w: chipset state size %d expected %d", ErrSnapshot, size, binary.Size(&state))
	}
	if err := binary.Read(br, binary.LittleEndian, &state); err != nil {
		return fmt.Errorf("%w: chipset state: %w", ErrSnapshot, err)
	}

	components := sys.Components()
	backup := make([][]byte, len(components))
	for i, c := range components {
		var buf bytes.Buffer
		if err := c.SaveState(&buf); err != nil {
			return fmt.Errorf("%w: %s: backup: %w", ErrSnapshot, c.Name(), err)
		}
		backup[i] = buf.Bytes()
	}
	for i, c := range components {
		if err := c.RestoreState(br); err != nil {
			rollback(components[:i+1], backup)
			return fmt.Errorf("%w: %s: %w", ErrSnapshot, c.Name(), err)
		}
	}

	copy(sys.mem.Bytes(), ram)
	sys.mu.Lock()
	sys.chip = state.Chip
	sys.mu.Unlock()
	sys.lckMu.Lock()
	sys.locks = state.Locks
	sys.lckMu.Unlock()
	return nil
}

// Put components back the way they were before a failed restore.
func rollback(components []device.Component, backup [][]byte) {
	for i, c := range components {
		if err := c.RestoreState(bytes.NewReader(backup[i])); err != nil {
			slog.Error("Unable to roll back component", "component", c.Name(), "error", err)
		}
	}
}

// Copy of the chipset registers and lock table.
func (sys *System) state() chipsetState {
	var state chipsetState
	sys.mu.Lock()
	state.Chip = sys.chip
	sys.mu.Unlock()
	sys.lckMu.Lock()
	state.Locks = sys.locks
	sys.lckMu.Unlock()
	return state
}

// Memory is written as 32 bit words, a zero word is followed by the count
// of zero words after it. Errors are held by the bufio.Writer.
func writeRAM(w *bufio.Writer, ram []byte) {
	var buf [8]byte
	words := len(ram) / 4
	for i := 0; i < words; {
		word := binary.LittleEndian.Uint32(ram[i*4:])
		i++
		binary.LittleEndian.PutUint32(buf[:4], word)
		if word != 0 {
			_, _ = w.Write(buf[:4])
			continue
		}
		run := uint32(0)
		for i < words && run < math.MaxUint32 && binary.LittleEndian.Uint32(ram[i*4:]) == 0 {
			run++
			i++
		}
		binary.LittleEndian.PutUint32(buf[4:], run)
		_, _ = w.Write(buf[:])
	}
}

// Inverse of writeRAM, ram must be zero on entry.
func readRAM(r io.Reader, ram []byte) error {
	var buf [4]byte
	words := len(ram) / 4
	for i := 0; i < words; {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return fmt.Errorf("%w: memory image at %x: %w", ErrSnapshot, i*4, noEOF(err))
		}
		word := binary.LittleEndian.Uint32(buf[:])
		binary.LittleEndian.PutUint32(ram[i*4:], word)
		i++
		if word != 0 {
			continue
		}
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return fmt.Errorf("%w: memory image at %x: %w", ErrSnapshot, i*4, noEOF(err))
		}
		run := uint64(binary.LittleEndian.Uint32(buf[:]))
		if run > uint64(words-i) {
			return fmt.Errorf("%w: zero run of %d words at %x passes end of memory", ErrSnapshot, run, i*4)
		}
		i += int(run)
	}
	return nil
}

// Running out of input inside the image is always a truncated file.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
