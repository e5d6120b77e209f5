package wire

import (
	"fmt"
	"io"
	"time"
)

// DefaultExchangeTimeout bounds each wait within a single client exchange.
const DefaultExchangeTimeout = 10 * time.Millisecond

// A Client drives the upstream side of a link: it issues requests and
// collects the paired responses. The protocol is strictly half-duplex with
// a single outstanding request, which a Client enforces structurally by
// only exposing whole request/response exchanges.
type Client struct {
	link    Link
	timeout time.Duration
}

// NewClient returns a client over l. A timeout of 0 selects
// DefaultExchangeTimeout; the infinite wait is reserved for servers.
func NewClient(l Link, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &Client{link: l, timeout: timeout}
}

// RequestState asks the upstream tile for its current output state and
// waits for the response. A response is accepted only when preceded by the
// full sync pattern; a truncated or mislabeled frame yields ErrTimeout or
// ErrMalformed, never a partially-parsed value.
func (c *Client) RequestState() (theta, phi float64, err error) {
	if err := SendStateRequest(c.link); err != nil {
		return 0, 0, fmt.Errorf("sending state request: %w", err)
	}
	if !WaitForPattern(c.link, SyncPattern, c.timeout) {
		return 0, 0, ErrTimeout
	}
	// Header and payload arrive back to back: 4 command bytes, 8 payload.
	if !WaitForBytes(c.link, 12, c.timeout) {
		return 0, 0, ErrTimeout
	}
	var hdr [4]byte
	if _, err := io.ReadFull(c.link, hdr[:]); err != nil {
		return 0, 0, fmt.Errorf("reading response header: %w", err)
	}
	if OpCode(hdr[0]) != OpStateResponse {
		return 0, 0, fmt.Errorf("%w: opcode %#02x, want state response", ErrMalformed, hdr[0])
	}
	return readAngles(c.link)
}

// RequestType asks the upstream tile which gate it implements.
func (c *Client) RequestType() (byte, error) {
	if err := SendTypeRequest(c.link); err != nil {
		return 0, fmt.Errorf("sending type request: %w", err)
	}
	if !WaitForPattern(c.link, SyncPattern, c.timeout) {
		return 0, ErrTimeout
	}
	if !WaitForBytes(c.link, 4, c.timeout) {
		return 0, ErrTimeout
	}
	var hdr [4]byte
	if _, err := io.ReadFull(c.link, hdr[:]); err != nil {
		return 0, fmt.Errorf("reading response header: %w", err)
	}
	if OpCode(hdr[0]) != OpTypeResponse {
		return 0, fmt.Errorf("%w: opcode %#02x, want type response", ErrMalformed, hdr[0])
	}
	return hdr[1], nil
}

// RequestTypeChange asks the upstream tile to reconfigure itself to the
// gate with the given wire code. The protocol defines no response for this
// command; confirmation is a follow-up RequestType.
func (c *Client) RequestTypeChange(id byte) error {
	return SendTypeChangeRequest(c.link, id)
}
