// tiled runs one quantum-gate tile on a hosted target: it opens the two
// UARTs wired to the tile's neighbors, loads the configured gate, and drives
// the request and service loops until interrupted.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/quantile-hw/quantile/qubit"
	"github.com/quantile-hw/quantile/tile"
	"github.com/quantile-hw/quantile/wire"
)

var (
	inPort  = flag.String("in", "/dev/ttyUSB0", "Serial port wired to the upstream neighbor.")
	outPort = flag.String("out", "/dev/ttyUSB1", "Serial port wired to the downstream neighbor.")
	baud    = flag.Int("baud", 115200, "Baud rate of both links.")
	conf    = flag.String("config", "gate.cfg", "Path of the persisted gate configuration.")
	gate    = flag.String("gate", "", "Gate name overriding the persisted configuration, e.g. HADAMARD.")
	single  = flag.Bool("single-worker", false,
		"Drive the service loop on the main thread instead of its own worker, as on the most constrained tile hardware.")
	verbose = flag.Bool("verbose", false, "Enable debug logging.")
)

// logIndicator stands in for the tile's status LED on hosted targets.
type logIndicator struct {
	logger *log.Logger
}

func (l logIndicator) ValidInput()   { l.logger.Debug("input valid") }
func (l logIndicator) InvalidInput() { l.logger.Warn("input invalid") }
func (l logIndicator) OpenInput()    { l.logger.Warn("input open") }

func main() {
	flag.Parse()
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "tiled",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	in, err := wire.OpenSerial(*inPort, *baud)
	if err != nil {
		logger.Fatal("opening upstream link", "err", err)
	}
	defer in.Close()
	out, err := wire.OpenSerial(*outPort, *baud)
	if err != nil {
		logger.Fatal("opening downstream link", "err", err)
	}
	defer out.Close()

	opts := tile.Opts{
		In:        in,
		Out:       out,
		Store:     tile.NewStore(*conf),
		Indicator: logIndicator{logger: logger},
		Logger:    logger,
		// Bounded so the service loop observes Stop; tile hardware uses the
		// infinite listener instead.
		ServiceTimeout: 50 * time.Millisecond,
	}
	if *gate != "" {
		g, ok := qubit.ByName(*gate)
		if !ok {
			logger.Fatal("unknown gate", "gate", *gate)
		}
		opts.Gate = g.Type
	}

	t, err := tile.New(opts)
	if err != nil {
		logger.Fatal("building tile", "err", err)
	}
	logger.Info("tile up", "gate", t.Gate().Name, "in", *inPort, "out", *outPort)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	if *single {
		go func() {
			<-sig
			logger.Info("shutting down")
			t.Stop()
		}()
		t.Run()
		return
	}
	t.Start()
	<-sig
	logger.Info("shutting down")
	t.Stop()
}
