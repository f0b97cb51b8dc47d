/*
 * ES40 - Main process.
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

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"

	parser "github.com/rcornwell/ES40/command/parser"
	reader "github.com/rcornwell/ES40/command/reader"
	config "github.com/rcornwell/ES40/config/configparser"
	core "github.com/rcornwell/ES40/emu/core"
	"github.com/rcornwell/ES40/emu/cpu"
	"github.com/rcornwell/ES40/emu/memory"
	"github.com/rcornwell/ES40/emu/system"
	"github.com/rcornwell/ES40/util/debug"
	logger "github.com/rcornwell/ES40/util/logger"

	_ "github.com/rcornwell/ES40/config/debugconfig"
	_ "github.com/rcornwell/ES40/config/sysconfig"
	_ "github.com/rcornwell/ES40/emu/pci"
	_ "github.com/rcornwell/ES40/emu/test_dev"
	_ "github.com/rcornwell/ES40/emu/timer"
	_ "github.com/rcornwell/ES40/telnet"
)

type options struct {
	config  string
	restore string
	save    string
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optRestore := getopt.StringLong("restore", 'r', "", "Restore snapshot before starting")
	optSave := getopt.StringLong("save", 's', "", "Save snapshot on exit")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile io.Writer
	if *optLogFile != "" {
		file, err := os.Create(*optLogFile)
		if err != nil {
			slog.Error("Unable to create log file", "file", *optLogFile, "error", err)
			os.Exit(1)
		}
		defer file.Close()
		logFile = file
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel, AddSource: false}, *optDebug))
	slog.SetDefault(Logger)

	code := run(options{config: *optConfig, restore: *optRestore, save: *optSave})
	debug.Close()
	if code != 0 {
		os.Exit(code)
	}
}

// Build machine, run it until told to stop. Returns exit status.
func run(opts options) int {
	slog.Info("ES40 Started")

	sys, err := system.New(memory.DefaultBits, 1)
	if err != nil {
		slog.Error(err.Error())
		return 1
	}

	if opts.config != "" {
		if err := config.LoadConfigFile(sys, opts.config); err != nil {
			slog.Error(err.Error())
			return 1
		}
	}

	// Without a CPU nothing clocks the interrupt pins.
	if sys.NumCPUs() == 0 {
		if _, err := sys.RegisterCPU(cpu.NewIdle("cpu0")); err != nil {
			slog.Error(err.Error())
			return 1
		}
	}

	if opts.restore != "" {
		if err := sys.Init(); err != nil {
			slog.Error(err.Error())
			return 1
		}
		if err := sys.RestoreState(opts.restore); err != nil {
			slog.Error(err.Error())
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	machine := core.NewCore(sys)
	if err := machine.Start(ctx, opts.restore == ""); err != nil {
		slog.Error(err.Error())
		return 1
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader.ConsoleReader(parser.NewMonitor(sys, os.Stdout))
	} else {
		slog.Info("No terminal, running until interrupted")
		select {
		case <-ctx.Done():
		case <-machine.Done():
		}
	}

	machine.Stop()
	code := 0
	if err := machine.Err(); err != nil {
		code = 1
	}

	if opts.save != "" {
		if err := sys.SaveState(opts.save); err != nil {
			slog.Error(err.Error())
			code = 1
		}
	}
	slog.Info("ES40 stopped.")
	return code
}
