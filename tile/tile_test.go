package tile

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quantile-hw/quantile/qubit"
	"github.com/quantile-hw/quantile/wire"
)

// recIndicator records signal transitions for assertions.
type recIndicator struct {
	mu                   sync.Mutex
	valid, invalid, open int
}

func (r *recIndicator) ValidInput()   { r.mu.Lock(); r.valid++; r.mu.Unlock() }
func (r *recIndicator) InvalidInput() { r.mu.Lock(); r.invalid++; r.mu.Unlock() }
func (r *recIndicator) OpenInput()    { r.mu.Lock(); r.open++; r.mu.Unlock() }

// upstreamStub serves a fixed state on the far end of a tile's In link,
// playing the previous tile in the chain.
type upstreamStub struct {
	theta, phi float64
}

func (u *upstreamStub) OutputState() (float64, float64) { return u.theta, u.phi }
func (u *upstreamStub) ComponentType() byte             { return byte(qubit.Identity) }
func (u *upstreamStub) ReplaceGate(byte) error          { return nil }

// serveUpstream answers requests on l until the returned stop func runs.
func serveUpstream(t *testing.T, l wire.Link, stub *upstreamStub) (stop func()) {
	t.Helper()
	srv, err := wire.NewServer(l, stub, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-done:
				return
			default:
				srv.ServeOnce()
			}
		}
	}()
	return func() { close(done); <-finished }
}

func newTestTile(t *testing.T, opts Opts) (*Tile, *wire.PipeLink, *wire.PipeLink) {
	t.Helper()
	upFar, upNear := wire.Pipe()
	downNear, downFar := wire.Pipe()
	opts.In = upNear
	opts.Out = downNear
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Millisecond
	}
	if opts.ServiceTimeout == 0 {
		opts.ServiceTimeout = 10 * time.Millisecond
	}
	tl, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return tl, upFar, downFar
}

func TestMissCounterFallsBackToOpenInput(t *testing.T) {
	ind := &recIndicator{}
	tl, upFar, _ := newTestTile(t, Opts{Gate: qubit.Identity, Indicator: ind})

	// One good exchange so the tile holds a non-default output.
	stop := serveUpstream(t, upFar, &upstreamStub{theta: math.Pi / 2, phi: 1})
	tl.StepRequest()
	stop()
	theta, _ := tl.Output().Angles()
	if math.Abs(theta-math.Pi/2) > 1e-6 {
		t.Fatalf("theta after good exchange = %v, want pi/2", theta)
	}

	// Upstream now silent: short of the threshold the last value holds.
	for i := 0; i < DefaultMissThreshold-1; i++ {
		tl.StepRequest()
	}
	if theta, _ = tl.Output().Angles(); math.Abs(theta-math.Pi/2) > 1e-6 {
		t.Fatalf("stale value dropped before threshold: theta = %v", theta)
	}
	ind.mu.Lock()
	open := ind.open
	ind.mu.Unlock()
	if open != 0 {
		t.Fatal("OpenInput signaled before threshold")
	}

	// The threshold-crossing miss resets the output, not to stale data.
	tl.StepRequest()
	theta, phi := tl.Output().Angles()
	if theta != 0 || phi != 0 {
		t.Errorf("output after threshold = (%v, %v), want (0, 0)", theta, phi)
	}
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.open == 0 {
		t.Error("OpenInput not signaled at threshold")
	}
}

func TestMalformedResponseSignalsInvalidInput(t *testing.T) {
	ind := &recIndicator{}
	tl, upFar, _ := newTestTile(t, Opts{Gate: qubit.Identity, Indicator: ind})

	// Preload a response with a type-response opcode where a state response
	// is expected. The client must discard it whole.
	upFar.Write(wire.SyncPattern)
	upFar.Write([]byte{byte(wire.OpTypeResponse), 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8})
	tl.StepRequest()

	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.invalid == 0 {
		t.Error("InvalidInput not signaled for a malformed response")
	}
	if ind.valid != 0 {
		t.Error("ValidInput signaled for a malformed response")
	}
}

func TestEndToEndChain(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "gate.cfg"))
	tl, upFar, downFar := newTestTile(t, Opts{
		Gate:         qubit.Identity,
		Store:        store,
		PollInterval: 2 * time.Millisecond,
	})
	stop := serveUpstream(t, upFar, &upstreamStub{})
	defer stop()

	tl.Start()
	defer tl.Stop()

	probe := wire.NewClient(downFar, 50*time.Millisecond)

	// Reconfigure the tile to Hadamard and confirm via a type request.
	if err := probe.RequestTypeChange(byte(qubit.Hadamard)); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		id, err := probe.RequestType()
		if err == nil && id == byte(qubit.Hadamard) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("type never became HADAMARD: last = %#02x, %v", id, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "gate.cfg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "HADAMARD" {
		t.Errorf("persisted config = %q, want \"HADAMARD\"", raw)
	}

	// With |0> arriving upstream, a Hadamard tile serves the equator state.
	for {
		theta, phi, err := probe.RequestState()
		if err == nil && math.Abs(theta-math.Pi/2) < 1e-6 && math.Abs(phi) < 1e-6 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("output never reached (pi/2, 0): last = (%v, %v), %v", theta, phi, err)
		}
	}
}

func TestPublishedStateIsNeverTorn(t *testing.T) {
	tl, _, _ := newTestTile(t, Opts{Gate: qubit.Identity})

	a := qubit.New(math.Pi/3, 1.25)
	b := qubit.New(2.5, 4.5)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20000; i++ {
			s := a
			if i%2 == 1 {
				s = b
			}
			tl.out.Store(&s)
		}
	}()

	aTheta, aPhi := a.Angles()
	bTheta, bPhi := b.Angles()
	for {
		select {
		case <-done:
			return
		default:
		}
		theta, phi := tl.Output().Angles()
		if !(theta == aTheta && phi == aPhi) && !(theta == bTheta && phi == bPhi) {
			t.Fatalf("observed torn pair (%v, %v)", theta, phi)
		}
	}
}

func TestReplaceGateRejections(t *testing.T) {
	tl, _, _ := newTestTile(t, Opts{Gate: qubit.PauliZ})

	if err := tl.ReplaceGate(0x7e); err == nil {
		t.Error("unknown gate code accepted")
	}
	if err := tl.ReplaceGate(byte(qubit.CNot)); err == nil {
		t.Error("multi-qubit gate accepted by a single-qubit tile")
	}
	if got := tl.Gate().Type; got != qubit.PauliZ {
		t.Errorf("active gate changed to %#02x by a rejected request", byte(got))
	}
}

func TestInitialGateFromStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gate.cfg")
	if err := os.WriteFile(path, []byte("pauli_x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tl, _, _ := newTestTile(t, Opts{Store: NewStore(path)})
	if got := tl.Gate().Type; got != qubit.PauliX {
		t.Errorf("gate from store = %#02x, want PAULI_X", byte(got))
	}

	// Missing file: safe default.
	tl2, _, _ := newTestTile(t, Opts{Store: NewStore(filepath.Join(dir, "absent.cfg"))})
	if got := tl2.Gate().Type; got != qubit.Identity {
		t.Errorf("gate without config = %#02x, want IDENTITY", byte(got))
	}
}

func TestNewRequiresLinks(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Error("New accepted missing links")
	}
}
