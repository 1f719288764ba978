package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/browser"
	"github.com/sarchlab/sensorsim/datarecording"
	"github.com/sarchlab/sensorsim/histogram"
	"github.com/sarchlab/sensorsim/monitoring"
	"github.com/sarchlab/sensorsim/simulation"
	"github.com/sarchlab/sensorsim/topology"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type runOptions struct {
	envFile  string
	logLevel string
	logger   *slog.Logger

	numSensors  int
	numPeers    int
	seed        uint64
	seedSet     bool
	engine      string
	numWorkers  int
	directed    bool
	maxSensors  int
	timeout     time.Duration
	record      string
	hopTrace    bool
	monitor     bool
	monitorPort int
	openBrowser bool
}

func addRunFlags(flags *pflag.FlagSet, opts *runOptions) {
	flags.IntVarP(&opts.numSensors, "sensors", "n", 100,
		"number of sensors, N")
	flags.IntVarP(&opts.numPeers, "peers", "m", 51,
		"number of peers each sensor links to, M; 2M+2 > N keeps the network connected")
	flags.Uint64Var(&opts.seed, "seed", 0,
		"seed of all random choices; a random seed is picked when not set")
	flags.StringVar(&opts.engine, "engine", "dedicated",
		"how sensors run: dedicated (a goroutine each) or pooled (a fixed set of workers)")
	flags.IntVar(&opts.numWorkers, "workers", 0,
		"number of workers of the pooled engine; 0 uses GOMAXPROCS")
	flags.BoolVar(&opts.directed, "directed", false,
		"make links one-way, from a sensor to its peers")
	flags.IntVar(&opts.maxSensors, "max-sensors", simulation.DefaultMaxSensors,
		"largest number of sensors allowed")
	flags.DurationVar(&opts.timeout, "timeout", 0,
		"give up after this long; 0 waits until all messages are delivered")
	flags.StringVar(&opts.record, "record", "",
		"record the run into this SQLite file")
	flags.BoolVar(&opts.hopTrace, "hop-trace", false,
		"also record every hop; needs --record")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"serve the monitoring API while the simulation runs")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"port of the monitoring API; 0 picks a free port")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"open the monitoring page in a browser; needs --monitor")
}

func runSimulation(cmd *cobra.Command, opts *runOptions) error {
	opts.seedSet = cmd.Flags().Changed("seed")

	builder, cleanup, err := opts.builder()
	defer cleanup()

	if err != nil {
		return err
	}

	sim, err := builder.Build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	result, err := sim.Run(ctx)
	if err != nil {
		return err
	}

	return histogram.Render(cmd.OutOrStdout(), result.Rows)
}

// builder turns the options into a simulation builder. The returned cleanup
// releases whatever was opened on the way and must always be called.
func (o *runOptions) builder() (simulation.Builder, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	err := topology.ValidateParams(o.numSensors, o.numPeers)
	if err != nil {
		return simulation.Builder{}, cleanup, err
	}

	b := simulation.MakeBuilder().
		WithNumSensors(o.numSensors).
		WithNumPeers(o.numPeers).
		WithMaxSensors(o.maxSensors).
		WithLogger(o.logger)

	if o.seedSet {
		b = b.WithSeed(o.seed)
	}

	if o.directed {
		b = b.WithDirectedLinks()
	}

	switch o.engine {
	case "dedicated":
	case "pooled":
		b = b.WithPooledEngine(o.numWorkers)
	default:
		return b, cleanup, fmt.Errorf("unknown engine %q", o.engine)
	}

	if o.record != "" {
		recorder, err := datarecording.New(o.record)
		if err != nil {
			return b, cleanup, err
		}

		cleanups = append(cleanups, func() {
			if err := recorder.Close(); err != nil {
				o.logger.Error("closing recording", "error", err)
			}
		})

		b = b.WithDataRecorder(recorder)
	}

	if o.hopTrace {
		b = b.WithHopTrace()
	}

	if o.monitor {
		monitor := monitoring.NewMonitor().
			WithLogger(o.logger).
			WithPortNumber(o.monitorPort)

		url, err := monitor.StartServer()
		if err != nil {
			return b, cleanup, err
		}

		cleanups = append(cleanups, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			if err := monitor.StopServer(ctx); err != nil {
				o.logger.Warn("stopping monitor", "error", err)
			}
		})

		if o.openBrowser {
			if err := browser.OpenURL(url); err != nil {
				o.logger.Warn("cannot open browser", "url", url, "error", err)
			}
		}

		b = b.WithMonitor(monitor)
	}

	return b, cleanup, nil
}
