package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

// An OpCode identifies the kind of a command frame. Requests travel toward
// the upstream tile; responses have the high bit set and travel back.
type OpCode byte

const (
	OpStateRequest      OpCode = 0x01
	OpTypeRequest       OpCode = 0x02
	OpTypeChangeRequest OpCode = 0x03
	OpStateResponse     OpCode = 0x81
	OpTypeResponse      OpCode = 0x82
)

// Data-format codes carried in state frames.
const (
	FormatUnspecified byte = 0
	FormatThetaPhi    byte = 1
)

// Revision is the interface revision stamped into every command frame.
const Revision byte = 0

// SyncPattern precedes every command frame. Its first byte is deliberately
// distinct from the repeated 0xff tail, so a scanner that consumes a
// mismatched byte can still lock on to the next real header.
var SyncPattern = []byte{0x7f, 0xff, 0xff, 0xff}

// pollQuantum is the sleep between link-availability checks. Every timeout
// in this package is accumulated in units of it.
const pollQuantum = time.Millisecond

var (
	// ErrTimeout reports a bounded wait that elapsed before the wire
	// produced what was asked of it. Transient; callers retry or fall back.
	ErrTimeout = errors.New("wire: timed out waiting for response")

	// ErrMalformed reports bytes that arrived in time but do not form the
	// expected frame. The partial frame is discarded, never acted on.
	ErrMalformed = errors.New("wire: malformed frame")
)

// SendSync writes the sync pattern, marking the start of a frame.
func SendSync(l Link) error {
	_, err := l.Write(SyncPattern)
	return err
}

// WaitForPattern scans incoming bytes one at a time until consecutive bytes
// equal pattern in full, consuming everything it inspects. Only a mismatched
// byte restarts the match; a matched prefix survives the sleep when the
// wire runs dry mid-pattern, since bytes trickling in slower than the scan
// is the normal case on a UART. A stray byte ahead of a real header costs
// only the bytes scanned, never permanent desynchronization. A timeout of 0
// waits indefinitely.
func WaitForPattern(l Link, pattern []byte, timeout time.Duration) bool {
	var elapsed time.Duration
	buf := make([]byte, 1)
	matched := 0
	for {
		for l.Available() >= 1 {
			if _, err := l.Read(buf); err != nil {
				return false
			}
			if buf[0] != pattern[matched] {
				matched = 0
				continue
			}
			matched++
			if matched == len(pattern) {
				return true
			}
		}
		time.Sleep(pollQuantum)
		if timeout > 0 {
			elapsed += pollQuantum
			if elapsed >= timeout {
				return false
			}
		}
	}
}

// WaitForBytes polls until at least count bytes are buffered on the link or
// timeout elapses. It never consumes bytes. A timeout of 0 waits
// indefinitely.
func WaitForBytes(l Link, count int, timeout time.Duration) bool {
	var elapsed time.Duration
	for l.Available() < count {
		time.Sleep(pollQuantum)
		if timeout > 0 {
			elapsed += pollQuantum
			if elapsed >= timeout {
				return false
			}
		}
	}
	return true
}

func sendCommand(l Link, op OpCode, b1, b2, b3 byte) error {
	if err := SendSync(l); err != nil {
		return err
	}
	_, err := l.Write([]byte{byte(op), b1, b2, b3})
	return err
}

// SendStateRequest asks the peer for its current output state, one qubit in
// theta-phi format.
func SendStateRequest(l Link) error {
	return sendCommand(l, OpStateRequest, 1, FormatThetaPhi, Revision)
}

// SendTypeRequest asks the peer which gate it implements.
func SendTypeRequest(l Link) error {
	return sendCommand(l, OpTypeRequest, 0, 0, Revision)
}

// SendTypeChangeRequest asks the peer to reconfigure itself to the gate
// with the given wire code. The peer sends no response.
func SendTypeChangeRequest(l Link, id byte) error {
	return sendCommand(l, OpTypeChangeRequest, id, 0, Revision)
}

// writeAngles encodes a state payload: two little-endian IEEE-754 32-bit
// floats, theta then phi.
func writeAngles(l Link, theta, phi float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(theta)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(phi)))
	_, err := l.Write(buf[:])
	return err
}

// readAngles decodes a state payload. The caller must have established that
// 8 bytes are available.
func readAngles(l Link) (theta, phi float64, err error) {
	var buf [8]byte
	if _, err := io.ReadFull(l, buf[:]); err != nil {
		return 0, 0, err
	}
	theta = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])))
	phi = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])))
	return theta, phi, nil
}
