/*
 * ES40 - Log debug data to a file
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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile io.Writer
	logName string
)

// Generic debug message.
func Debugf(module string, mask int, level int, format string, a ...interface{}) {
	if (mask & level) == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		slog.Debug(module + ": " + fmt.Sprintf(format, a...))
		return
	}
	fmt.Fprintf(logFile, module+": "+format+"\n", a...)
}

// Open the debug file, only one may be opened.
func OpenFile(fileName string) error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		return fmt.Errorf("can't have more then one debug file, previous: %s", logName)
	}

	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create debug file: %s", fileName)
	}
	logFile = file
	logName = fileName
	return nil
}

// Send debug output to w, nil restores default of slog.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logFile = w
	logName = ""
}

// Close debug file if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if c, ok := logFile.(io.Closer); ok {
		_ = c.Close()
	}
	logFile = nil
	logName = ""
}

// Look up debug option in options and set it in mask. "ALL" sets every option.
func SetOption(options map[string]int, option string, mask *int) error {
	option = strings.ToUpper(option)
	if option == "ALL" {
		for _, bit := range options {
			*mask |= bit
		}
		return nil
	}
	bit, ok := options[option]
	if !ok {
		names := make([]string, 0, len(options))
		for name := range options {
			names = append(names, name)
		}
		sort.Strings(names)
		return errors.New("debug option " + option + " invalid, must be one of: " + strings.Join(names, ","))
	}
	*mask |= bit
	return nil
}
