// Package wire implements the framed serial protocol that carries state,
// identity, and reconfiguration traffic between neighboring tiles. Every
// frame is preceded by a fixed 4-byte sync pattern; the stream carries no
// CRC or sequence numbers, so resynchronization relies entirely on scanning
// for the pattern. All waits are timeout-bounded polls.
package wire

import (
	"io"
	"sync"
)

// A Link is a byte-oriented, pollable channel to one neighboring tile.
// Available reports how many bytes are buffered for reading without
// consuming them; Read must not block when Available is positive.
//
// A tile holds exactly two links: the upstream one it polls as a client and
// the downstream one it answers as a server. Each link is driven by exactly
// one loop; Link implementations need not be safe for concurrent readers.
type Link interface {
	Available() int
	io.Reader
	io.Writer
}

// Pipe returns a connected pair of in-memory links: bytes written to one
// become available on the other. It stands in for a pair of cross-wired
// UARTs in tests and simulations.
func Pipe() (*PipeLink, *PipeLink) {
	a := &PipeLink{}
	b := &PipeLink{}
	a.peer, b.peer = b, a
	return a, b
}

// A PipeLink is one end of an in-memory link pair. Unlike a real UART it
// never drops bytes, but like one it exposes only byte availability and
// unframed reads.
type PipeLink struct {
	mu   sync.Mutex
	rbuf []byte
	peer *PipeLink
}

// Available implements Link.
func (p *PipeLink) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rbuf)
}

// Read implements Link. It returns io.EOF when nothing is buffered rather
// than blocking; callers gate reads on Available.
func (p *PipeLink) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rbuf) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.rbuf)
	p.rbuf = p.rbuf[n:]
	return n, nil
}

// Write implements Link, delivering into the peer's read buffer.
func (p *PipeLink) Write(b []byte) (int, error) {
	p.peer.mu.Lock()
	defer p.peer.mu.Unlock()
	p.peer.rbuf = append(p.peer.rbuf, b...)
	return len(b), nil
}
