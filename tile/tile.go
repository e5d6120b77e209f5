// Package tile implements the per-tile controller: a client loop that polls
// the upstream neighbor for its state and a server loop that answers the
// downstream neighbor, sharing one published output state between them.
//
// Both loops are plain step functions. On hosted targets Start runs each on
// its own goroutine; the most constrained tile hardware affords only one
// execution context beyond the main one, so Run drives the service loop on
// the calling goroutine instead. The loop logic is identical either way.
package tile

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quantile-hw/quantile/qubit"
	"github.com/quantile-hw/quantile/wire"
)

// Defaults for the tunables in Opts.
const (
	DefaultPollInterval  = 10 * time.Millisecond
	DefaultMissThreshold = 5
)

// Opts packages the arguments for New. In and Out are required; everything
// else has a usable default.
type Opts struct {
	// In is the upstream link. The tile is the client on it: it polls the
	// previous tile for state and never serves requests there.
	In wire.Link

	// Out is the downstream link. The tile is the server on it: it answers
	// the next tile's requests and never initiates its own.
	Out wire.Link

	// Gate selects the initial gate. Zero (Undefined) defers to Store, and
	// failing that, the identity gate.
	Gate qubit.GateType

	// Store persists the configured gate name across restarts. Optional;
	// without it reconfigurations only last until shutdown.
	Store *Store

	// Indicator receives input-health transitions. Defaults to none.
	Indicator Indicator

	// Logger receives loop diagnostics. Defaults to a discarding logger.
	Logger *log.Logger

	// PollInterval is the request loop's idle sleep between exchanges.
	PollInterval time.Duration

	// RequestTimeout bounds each wait within one upstream exchange.
	RequestTimeout time.Duration

	// ServiceTimeout bounds the service loop's wait for a frame header.
	// Zero keeps the listener blocked until traffic arrives, which also
	// means Stop is only observed after the next request.
	ServiceTimeout time.Duration

	// MissThreshold is the number of consecutive failed upstream exchanges
	// after which the tile publishes the open-input state instead of
	// retaining stale data.
	MissThreshold int
}

// A Tile is one unit in the chain: it reads a state from its upstream
// neighbor, applies its configured gate, and serves the result downstream.
type Tile struct {
	client *wire.Client
	server *wire.Server
	store  *Store
	ind    Indicator
	logger *log.Logger

	pollInterval  time.Duration
	missThreshold int

	// gate and out are replaced wholesale, never mutated: the service loop
	// must see every published value complete or not at all.
	gate atomic.Pointer[qubit.Gate]
	out  atomic.Pointer[qubit.BitState]

	// misses is touched only by the request loop.
	misses  int
	running atomic.Bool
}

// New builds a tile from opts. The tile itself is the wire.Handler for its
// downstream server, so every capability the protocol needs is present by
// construction.
func New(opts Opts) (*Tile, error) {
	if opts.In == nil || opts.Out == nil {
		return nil, errors.New("tile: both In and Out links are required")
	}
	t := &Tile{
		store:         opts.Store,
		ind:           opts.Indicator,
		logger:        opts.Logger,
		pollInterval:  opts.PollInterval,
		missThreshold: opts.MissThreshold,
	}
	if t.ind == nil {
		t.ind = NopIndicator()
	}
	if t.logger == nil {
		t.logger = log.New(io.Discard)
	}
	if t.pollInterval <= 0 {
		t.pollInterval = DefaultPollInterval
	}
	if t.missThreshold <= 0 {
		t.missThreshold = DefaultMissThreshold
	}

	g, err := t.initialGate(opts)
	if err != nil {
		return nil, err
	}
	t.gate.Store(&g)

	st := qubit.New(0, 0)
	t.out.Store(&st)

	t.client = wire.NewClient(opts.In, opts.RequestTimeout)
	srv, err := wire.NewServer(opts.Out, t, opts.ServiceTimeout)
	if err != nil {
		return nil, err
	}
	t.server = srv
	return t, nil
}

func (t *Tile) initialGate(opts Opts) (qubit.Gate, error) {
	if opts.Gate != qubit.Undefined {
		g, ok := qubit.ByType(opts.Gate)
		if !ok {
			return qubit.Gate{}, fmt.Errorf("tile: unknown gate type %#02x", byte(opts.Gate))
		}
		if g.Qubits() != 1 {
			return qubit.Gate{}, fmt.Errorf("tile: %s needs %d qubits, a tile owns one", g.Name, g.Qubits())
		}
		return g, nil
	}
	if opts.Store != nil {
		g, err := opts.Store.Load()
		if err != nil {
			t.logger.Warn("falling back to identity gate", "err", err)
		}
		return g, nil
	}
	g, _ := qubit.ByType(qubit.Identity)
	return g, nil
}

// Gate returns the tile's active gate.
func (t *Tile) Gate() qubit.Gate { return *t.gate.Load() }

// Output returns the tile's current published output state.
func (t *Tile) Output() qubit.BitState { return *t.out.Load() }

// OutputState implements wire.Handler.
func (t *Tile) OutputState() (theta, phi float64) {
	return t.out.Load().Angles()
}

// ComponentType implements wire.Handler.
func (t *Tile) ComponentType() byte {
	return byte(t.gate.Load().Type)
}

// ReplaceGate implements wire.Handler: it swaps the active gate without a
// restart and persists the choice. Unknown codes and multi-qubit gates are
// rejected; a persistence failure is reported but the swap still takes
// effect for the running tile.
func (t *Tile) ReplaceGate(id byte) error {
	g, ok := qubit.ByType(qubit.GateType(id))
	if !ok {
		return fmt.Errorf("tile: unknown gate type %#02x", id)
	}
	if g.Qubits() != 1 {
		return fmt.Errorf("tile: %s needs %d qubits, a tile owns one", g.Name, g.Qubits())
	}
	var saveErr error
	if t.store != nil {
		saveErr = t.store.Save(g.Name)
	}
	t.gate.Store(&g)
	t.logger.Info("gate replaced", "gate", g.Name)
	return saveErr
}

// StepRequest performs one iteration of the request loop: poll upstream,
// apply the gate, publish the result. On repeated misses it publishes the
// gate applied to the open-input state |0> rather than retaining stale
// data.
func (t *Tile) StepRequest() {
	theta, phi, err := t.client.RequestState()
	if err != nil {
		t.misses++
		if errors.Is(err, wire.ErrMalformed) {
			t.ind.InvalidInput()
		}
		if t.misses >= t.missThreshold {
			t.logger.Debug("upstream unreachable, input open", "misses", t.misses)
			t.publish(qubit.New(0, 0))
			t.ind.OpenInput()
		}
		return
	}
	t.misses = 0
	t.ind.ValidInput()
	t.publish(qubit.New(theta, phi))
}

func (t *Tile) publish(in qubit.BitState) {
	g := t.gate.Load()
	if err := in.Apply(*g); err != nil {
		// Single-qubit gating is enforced at every gate swap; reaching
		// this is a catalog bug.
		t.logger.Error("gate application failed", "gate", g.Name, "err", err)
		return
	}
	t.out.Store(&in)
}

// StepService performs one iteration of the service loop: answer at most
// one downstream request. Failures are logged and the loop carries on; a
// broken exchange must not take the tile down.
func (t *Tile) StepService() {
	if err := t.server.ServeOnce(); err != nil {
		t.logger.Error("service request failed", "err", err)
	}
}

// Start launches both loops on their own goroutines and returns.
func (t *Tile) Start() {
	t.running.Store(true)
	go t.requestLoop()
	go t.serviceLoop()
}

// Run launches the request loop on its own goroutine and drives the
// service loop on the calling goroutine, for targets that allow only one
// extra execution context. It returns after Stop.
func (t *Tile) Run() {
	t.running.Store(true)
	go t.requestLoop()
	t.serviceLoop()
}

// Stop asks both loops to exit. Each observes the flag once per iteration,
// so shutdown completes within one poll interval plus the loop's wait
// bounds.
func (t *Tile) Stop() {
	t.running.Store(false)
}

func (t *Tile) requestLoop() {
	for t.running.Load() {
		t.StepRequest()
		time.Sleep(t.pollInterval)
	}
}

func (t *Tile) serviceLoop() {
	for t.running.Load() {
		t.StepService()
	}
}
