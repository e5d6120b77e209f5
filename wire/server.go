package wire

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// A Handler supplies the tile-side capabilities a Server needs to answer
// downstream requests. The tile controller implements it; requiring the
// full interface at construction means a missing capability is caught as a
// configuration error before the first request can arrive.
type Handler interface {
	// OutputState returns the tile's current published output angles.
	OutputState() (theta, phi float64)

	// ComponentType returns the wire code of the tile's active gate.
	ComponentType() byte

	// ReplaceGate switches the tile's active gate to the given wire code
	// and persists the choice. The error is reported to the server's
	// caller but must not stop the tile.
	ReplaceGate(id byte) error
}

// commandTimeout bounds the wait for a command once its sync pattern has
// been seen. A peer that goes quiet mid-frame costs one timeout, after
// which the server resumes scanning for sync.
const commandTimeout = 10 * time.Millisecond

// A Server answers requests arriving on a tile's downstream link. It owns
// that link exclusively; the tile's upstream traffic never touches it.
type Server struct {
	link        Link
	handler     Handler
	syncTimeout time.Duration
}

// NewServer returns a server for l dispatching to h. A nil handler is a
// wiring bug and is rejected outright rather than discovered on the first
// request. syncTimeout bounds each wait for a frame header; 0 waits
// indefinitely, the usual configuration for a passive listener.
func NewServer(l Link, h Handler, syncTimeout time.Duration) (*Server, error) {
	if l == nil {
		return nil, errors.New("wire: server requires a link")
	}
	if h == nil {
		return nil, errors.New("wire: server requires a handler")
	}
	return &Server{link: l, handler: h, syncTimeout: syncTimeout}, nil
}

// ServeOnce waits for one command frame and dispatches it. Quiet links,
// truncated frames, and unknown opcodes all return nil: the server simply
// resumes scanning on the next call. Only write failures and rejected
// reconfigurations surface as errors.
func (s *Server) ServeOnce() error {
	if !WaitForPattern(s.link, SyncPattern, s.syncTimeout) {
		return nil
	}
	if !WaitForBytes(s.link, 4, commandTimeout) {
		return nil
	}
	var cmd [4]byte
	if _, err := io.ReadFull(s.link, cmd[:]); err != nil {
		return nil
	}

	switch OpCode(cmd[0]) {
	case OpStateRequest:
		theta, phi := s.handler.OutputState()
		if err := sendCommand(s.link, OpStateResponse, 1, FormatThetaPhi, Revision); err != nil {
			return fmt.Errorf("sending state response: %w", err)
		}
		if err := writeAngles(s.link, theta, phi); err != nil {
			return fmt.Errorf("sending state payload: %w", err)
		}

	case OpTypeRequest:
		if err := sendCommand(s.link, OpTypeResponse, s.handler.ComponentType(), 0, Revision); err != nil {
			return fmt.Errorf("sending type response: %w", err)
		}

	case OpTypeChangeRequest:
		// No response frame is defined for this command.
		if err := s.handler.ReplaceGate(cmd[1]); err != nil {
			return fmt.Errorf("replacing gate: %w", err)
		}

	default:
		// Recognized sync, unknown opcode: drop the frame.
	}
	return nil
}
