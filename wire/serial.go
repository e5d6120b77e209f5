package wire

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// OpenSerial opens a UART at the given baud rate, 8N1, and adapts it to the
// Link interface. A background reader drains the port into an internal
// buffer so Available can answer without consuming bytes.
//
// This adapter is for hosted targets, where the extra reader goroutine is
// free. Embedded builds implement Link directly over the UART FIFO instead.
func OpenSerial(name string, baud int) (*SerialLink, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	sl := &SerialLink{port: port}
	go sl.fill()
	return sl, nil
}

// A SerialLink adapts a serial port to the pollable Link shape.
type SerialLink struct {
	port serial.Port

	mu   sync.Mutex
	rbuf []byte
	err  error
}

func (s *SerialLink) fill() {
	buf := make([]byte, 64)
	for {
		n, err := s.port.Read(buf)
		s.mu.Lock()
		if n > 0 {
			s.rbuf = append(s.rbuf, buf[:n]...)
		}
		if err != nil {
			s.err = err
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// Available implements Link.
func (s *SerialLink) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rbuf)
}

// Read implements Link. With nothing buffered it reports the port's
// terminal error, or io.EOF; callers gate reads on Available.
func (s *SerialLink) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rbuf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	n := copy(b, s.rbuf)
	s.rbuf = s.rbuf[n:]
	return n, nil
}

// Write implements Link.
func (s *SerialLink) Write(b []byte) (int, error) {
	return s.port.Write(b)
}

// Close closes the underlying port, which also stops the background reader.
func (s *SerialLink) Close() error {
	return s.port.Close()
}
