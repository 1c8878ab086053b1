// Package transport owns the serial connection to the supply. It moves raw
// bytes only; framing and interpretation belong to the protocol layer, and
// retries to the command processor.
package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// BaudRate is fixed by the device; it is not negotiable.
const BaudRate = 115200

const readChunkSize = 256

// ErrReadTimeout is returned by Read when the device stays silent for the
// whole window. Silence is an expected, non-fatal condition (the supply only
// talks while logging is enabled), so this is a sentinel value, not a typed
// failure.
var ErrReadTimeout = errors.New("no data from device within read window")

// DeviceUnavailableError reports a serial port that could not be opened.
type DeviceUnavailableError struct {
	Port string
	Err  error
}

func (e *DeviceUnavailableError) Error() string {
	return fmt.Sprintf("cannot open device %s: %v", e.Port, e.Err)
}

func (e *DeviceUnavailableError) Unwrap() error { return e.Err }

// IOError reports a read or write failure on an open connection.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("serial %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Session is the open serial connection. It is exclusively owned by one
// command processor for the lifetime of a CLI invocation; there is no
// locking because there is no concurrent access.
type Session struct {
	name string
	port serial.Port
}

// Open opens the serial device at the protocol's fixed parameters.
func Open(name string) (*Session, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: BaudRate})
	if err != nil {
		return nil, &DeviceUnavailableError{Port: name, Err: err}
	}
	return &Session{name: name, port: port}, nil
}

// Name returns the device path the session was opened on.
func (s *Session) Name() string { return s.name }

// Write sends one raw frame.
func (s *Session) Write(frame []byte) error {
	n, err := s.port.Write(frame)
	if err != nil {
		return &IOError{Op: "write", Err: err}
	}
	if n != len(frame) {
		return &IOError{Op: "write", Err: fmt.Errorf("short write: %d of %d bytes", n, len(frame))}
	}
	return nil
}

// Read returns whatever bytes arrive within the timeout window, or
// ErrReadTimeout if the device stays silent. It never interprets payload
// bytes and never retries.
func (s *Session) Read(timeout time.Duration) ([]byte, error) {
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	buf := make([]byte, readChunkSize)
	n, err := s.port.Read(buf)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	if n == 0 {
		return nil, ErrReadTimeout
	}
	return buf[:n], nil
}

// Close releases the port. Safe to defer alongside trace cancellation.
func (s *Session) Close() error {
	if err := s.port.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	return nil
}
