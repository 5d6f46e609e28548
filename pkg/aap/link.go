// PodDock Core
// Copyright (c) 2026 The PodDock Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of PodDock Core.
//
// PodDock Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// PodDock Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with PodDock Core.  If not, see <http://www.gnu.org/licenses/>.

package aap

import (
	"fmt"
	"time"

	"github.com/PodDockProject/poddock-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Port defines the interface for serial port operations (for mocking in tests).
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory creates a serial port connection.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory is the default factory that opens real serial ports.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Link owns an exclusive connection to the dock serial device. The port
// is opened lazily on first use and stays open until Close is called by
// the owning process. All send/receive pairs hold a single mutex so
// concurrent commands cannot interleave bytes on the wire.
type Link struct {
	portFactory PortFactory
	port        Port
	path        string
	baudRate    int
	readTimeout time.Duration
	mu          syncutil.Mutex // guards port and all wire access
}

// NewLink creates a link for the given device path and baud rate. The
// port is not opened until the first command is sent.
func NewLink(path string, baudRate int) *Link {
	return &Link{
		path:        path,
		baudRate:    baudRate,
		readTimeout: DefaultReadTimeout,
		portFactory: DefaultPortFactory,
	}
}

// ensureOpen returns the open port, opening it first if needed.
// Callers must hold mu.
func (l *Link) ensureOpen() (Port, error) {
	if l.port != nil {
		return l.port, nil
	}

	port, err := l.portFactory(l.path, &serial.Mode{BaudRate: l.baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", l.path, err)
	}

	if err := port.SetReadTimeout(l.readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	log.Debug().Msgf("opened serial port %s", l.path)
	l.port = port
	return port, nil
}

// Send writes a single frame to the device.
func (l *Link) Send(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.send(frame)
}

func (l *Link) send(frame []byte) error {
	port, err := l.ensureOpen()
	if err != nil {
		return err
	}

	log.Debug().Msgf("sending frame: %x", frame)
	if _, err := port.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Exchange writes a frame and reads one newline-terminated response
// line, holding the link for the whole pair. A read timeout is not an
// error: whatever bytes arrived before it are returned, possibly none,
// and the caller decodes them best-effort.
func (l *Link) Exchange(frame []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.send(frame); err != nil {
		return nil, err
	}
	return l.readLine()
}

// readLine reads bytes until a line terminator or read timeout.
// Callers must hold mu and have opened the port.
func (l *Link) readLine() ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := l.port.Read(buf)
		if err != nil {
			return line, fmt.Errorf("failed to read from serial port: %w", err)
		}
		if n == 0 {
			// read timeout
			log.Debug().Msgf("serial read timed out after %d bytes", len(line))
			return line, nil
		}
		if buf[0] == LineTerminator {
			return line, nil
		}
		line = append(line, buf[0])
	}
}

// Close releases the port if open. Safe to call when already closed.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return nil
	}

	err := l.port.Close()
	l.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", l.path, err)
	}
	log.Debug().Msgf("closed serial port %s", l.path)
	return nil
}
