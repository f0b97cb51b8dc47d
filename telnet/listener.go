/*
 * ES40 - Telnet monitor server
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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	config "github.com/rcornwell/ES40/config/configparser"
	"github.com/rcornwell/ES40/emu/device"
	"github.com/rcornwell/ES40/emu/system"
)

var ErrListener = errors.New("telnet listener stopped")

// Server accepts telnet connections and runs a monitor on each.
type Server struct {
	device.Base
	sys        *system.System
	address    string
	wg         sync.WaitGroup
	listener   net.Listener
	shutdown   chan struct{}
	connection chan net.Conn
	mu         sync.Mutex
	clients    map[net.Conn]struct{}
	started    bool
	accepting  atomic.Bool
}

// register a device on initialize.
func init() {
	config.RegisterModel("PORT", config.TypeOptions, setPort)
}

// Create monitor port, PORT <port> [address=<host>].
func setPort(sys *system.System, _ uint64, port string, options []config.Option) error {
	_, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return fmt.Errorf("port requires number: %s", port)
	}
	host := ""
	for _, opt := range options {
		if !strings.EqualFold(opt.Name, "ADDRESS") || opt.EqualOpt == "" {
			return errors.New("port only takes an optional address=host")
		}
		host = opt.EqualOpt
	}
	if sys.Component("telnet") != nil {
		return errors.New("can't have more then one monitor port")
	}
	sys.RegisterComponent(NewServer(sys, net.JoinHostPort(host, port)))
	return nil
}

// Create server for address, listening starts with StartThreads.
func NewServer(sys *system.System, address string) *Server {
	return &Server{Base: device.NewBase("telnet"), sys: sys, address: address}
}

// Address server is listening on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Open listener and start accepting connections.
func (s *Server) StartThreads() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on address %s: %w", s.address, err)
	}
	s.listener = listener
	s.shutdown = make(chan struct{})
	s.connection = make(chan net.Conn)
	s.clients = map[net.Conn]struct{}{}
	s.started = true
	s.accepting.Store(true)
	slog.Info("Monitor server started", "address", s.Addr())

	s.wg.Add(2)
	go s.acceptConnections()
	go s.handleConnections()
	return nil
}

// Accept a connection.
func (s *Server) acceptConnections() {
	defer s.wg.Done()
	defer s.accepting.Store(false)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				slog.Error("Monitor listener closed", "error", err)
				return
			}
			continue
		}
		select {
		case s.connection <- conn:
		case <-s.shutdown:
			conn.Close()
			return
		}
	}
}

// Start processing for a new connection.
func (s *Server) handleConnections() {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return
		case conn := <-s.connection:
			slog.Info("Monitor connection", "remote", conn.RemoteAddr().String())
			s.mu.Lock()
			s.clients[conn] = struct{}{}
			s.mu.Unlock()
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				handleClient(conn, s.sys)
				s.mu.Lock()
				delete(s.clients, conn)
				s.mu.Unlock()
			}()
		}
	}
}

// Close listener and all sessions.
func (s *Server) StopThreads() {
	if !s.started {
		return
	}
	s.started = false
	slog.Info("Shutdown monitor server", "address", s.Addr())
	close(s.shutdown)
	s.listener.Close()
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for connections to finish.")
	}
}

// Report a listener that died while running.
func (s *Server) CheckState() error {
	if s.started && !s.accepting.Load() {
		return ErrListener
	}
	return nil
}
