// tilectl talks to a tile's downstream port from a PC, taking the place of
// the next tile in the chain. It can read the tile's output state, ask which
// gate the tile implements, and reconfigure it to a different gate.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/quantile-hw/quantile/qubit"
	"github.com/quantile-hw/quantile/wire"
)

var (
	port    = flag.String("port", "/dev/ttyUSB0", "Serial port wired to the tile's downstream side.")
	baud    = flag.Int("baud", 115200, "Baud rate of the link.")
	state   = flag.Bool("state", false, "Request the tile's output state.")
	typeQ   = flag.Bool("type", false, "Request the tile's gate type.")
	setGate = flag.String("set", "", "Reconfigure the tile to the named gate, e.g. PAULI_X.")
	timeout = flag.Duration("timeout", 100*time.Millisecond, "Bound on each wait within an exchange.")
)

func main() {
	flag.Parse()
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "tilectl"})
	if !*state && !*typeQ && *setGate == "" {
		logger.Fatal("nothing to do: pass --state, --type, or --set")
	}

	link, err := wire.OpenSerial(*port, *baud)
	if err != nil {
		logger.Fatal("opening link", "err", err)
	}
	defer link.Close()
	client := wire.NewClient(link, *timeout)

	if *setGate != "" {
		g, ok := qubit.ByName(*setGate)
		if !ok {
			logger.Fatal("unknown gate", "gate", *setGate)
		}
		if g.Qubits() != 1 {
			logger.Fatal("a tile implements single-qubit gates only", "gate", g.Name)
		}
		if err := client.RequestTypeChange(byte(g.Type)); err != nil {
			logger.Fatal("sending type change", "err", err)
		}
		// The protocol defines no response; confirm with a type request.
		id, err := client.RequestType()
		if err != nil {
			logger.Fatal("confirming type change", "err", err)
		}
		if id != byte(g.Type) {
			logger.Fatal("tile kept its old gate", "got", fmt.Sprintf("%#02x", id))
		}
		logger.Info("tile reconfigured", "gate", g.Name)
	}

	if *typeQ {
		id, err := client.RequestType()
		if err != nil {
			logger.Fatal("requesting type", "err", err)
		}
		g, ok := qubit.ByType(qubit.GateType(id))
		if !ok {
			fmt.Printf("type: %#02x (unknown)\n", id)
		} else {
			fmt.Printf("type: %#02x %s\n", id, g.Name)
		}
	}

	if *state {
		theta, phi, err := client.RequestState()
		if err != nil {
			logger.Fatal("requesting state", "err", err)
		}
		s := qubit.New(theta, phi)
		x, y, z := s.Vector()
		fmt.Printf("state: theta=%.6f phi=%.6f\n", theta, phi)
		fmt.Printf("bloch: x=%.6f y=%.6f z=%.6f\n", x, y, z)
	}
}
