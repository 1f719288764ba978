package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/rs/xid"
	"github.com/sarchlab/sensorsim/datarecording"
	"github.com/sarchlab/sensorsim/engine"
	"github.com/sarchlab/sensorsim/histogram"
	"github.com/sarchlab/sensorsim/monitoring"
	"github.com/sarchlab/sensorsim/sensor"
	"github.com/sarchlab/sensorsim/sim/hooking"
	"github.com/sarchlab/sensorsim/sim/id"
	"github.com/sarchlab/sensorsim/termination"
	"github.com/sarchlab/sensorsim/topology"
	"github.com/sarchlab/sensorsim/tracing"
)

// ErrResourceExhausted is returned when a simulation asks for more sensors
// than the builder allows.
var ErrResourceExhausted = errors.New("simulation: resource exhausted")

// DefaultMaxSensors is the largest network a Builder accepts unless told
// otherwise.
const DefaultMaxSensors = 1 << 22

// The stream that builds the topology and picks destinations. Message walks
// use the streams numbered by their origin, which never reach this value.
const topologyStream = ^uint64(0)

// Builder can be used to build a simulation.
type Builder struct {
	name       string
	numSensors int
	numPeers   int
	seed       uint64
	seeded     bool
	linkMode   topology.LinkMode
	pooled     bool
	numWorkers int
	maxSensors int
	logger     *slog.Logger
	recorder   datarecording.DataRecorder
	traceHops  bool
	monitor    *monitoring.Monitor
	hooks      []hooking.Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		name:       "Net",
		linkMode:   topology.Bidirectional,
		maxSensors: DefaultMaxSensors,
	}
}

// WithName sets the name of the network. Sensors are named after it.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithNumSensors sets the number of sensors, N.
func (b Builder) WithNumSensors(n int) Builder {
	b.numSensors = n
	return b
}

// WithNumPeers sets the number of peers every sensor picks, M.
func (b Builder) WithNumPeers(m int) Builder {
	b.numPeers = m
	return b
}

// WithSeed fixes the seed of all random choices. Two simulations with the
// same parameters and seed build the same network and produce the same
// histogram. Without a seed, a random one is picked.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	b.seeded = true

	return b
}

// WithDirectedLinks makes the links one-way, from a sensor to its peers.
func (b Builder) WithDirectedLinks() Builder {
	b.linkMode = topology.Directed
	return b
}

// WithPooledEngine runs the sensors on a fixed number of workers instead of
// one goroutine each. A non-positive number uses GOMAXPROCS workers.
func (b Builder) WithPooledEngine(numWorkers int) Builder {
	b.pooled = true
	b.numWorkers = numWorkers

	return b
}

// WithMaxSensors sets the largest number of sensors the simulation may
// create.
func (b Builder) WithMaxSensors(n int) Builder {
	b.maxSensors = n
	return b
}

// WithLogger sets the logger of the simulation.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithDataRecorder stores the run summary, the histogram, and every delivery
// into the recorder.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithHopTrace also stores every relay hop. It requires a data recorder.
func (b Builder) WithHopTrace() Builder {
	b.traceHops = true
	return b
}

// WithMonitor lets the monitor observe the simulation.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithHook attaches a hook to every sensor.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

func (b Builder) parametersMustBeValid() error {
	err := topology.ValidateParams(b.numSensors, b.numPeers)
	if err != nil {
		return err
	}

	if b.numSensors > b.maxSensors {
		return fmt.Errorf("%w: %d sensors requested, at most %d allowed",
			ErrResourceExhausted, b.numSensors, b.maxSensors)
	}

	if b.traceHops && b.recorder == nil {
		return fmt.Errorf("%w: hop trace needs a data recorder",
			topology.ErrInvalidParameter)
	}

	return nil
}

// Build builds the simulation: the topology, the sensors, and the N initial
// messages. No worker runs until Run is called.
func (b Builder) Build() (*Simulation, error) {
	err := b.parametersMustBeValid()
	if err != nil {
		return nil, err
	}

	if !b.seeded {
		b.seed = rand.Uint64()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Simulation{
		id:        xid.New().String(),
		seed:      b.seed,
		numPeers:  b.numPeers,
		logger:    logger,
		recorder:  b.recorder,
		monitor:   b.monitor,
		detector:  termination.NewDetector(b.numSensors),
		histogram: histogram.New(),
	}

	pick := rand.New(rand.NewPCG(b.seed, topologyStream))

	table, err := topology.Build(b.numSensors, b.numPeers, pick, b.linkMode)
	if err != nil {
		return nil, err
	}

	s.table = table
	s.network = sensor.NewNetwork(b.name, table, s)
	s.detector.RegisterShutdownHandler(s.network)

	s.engine = b.buildEngine()

	b.attachHooks(s)

	seed := b.seed
	walk := func(origin topology.NodeID) topology.RandSource {
		return rand.New(rand.NewPCG(seed, uint64(origin)))
	}
	s.network.Seed(sensor.GenerateMsgs(
		b.numSensors, pick, walk, id.NewSequentialIDGenerator()))

	if !topology.SatisfiesConnectivityHeuristic(b.numSensors, b.numPeers) {
		logger.Warn("2M+2 <= N, some messages may never be delivered",
			"sensors", b.numSensors,
			"peers", b.numPeers,
			"strongly_connected", table.StronglyConnected())
	}

	return s, nil
}

func (b Builder) buildEngine() engine.Engine {
	if b.pooled {
		return engine.NewPooledEngine(b.numWorkers)
	}

	return engine.NewDedicatedEngine()
}

func (b Builder) attachHooks(s *Simulation) {
	for _, h := range b.hooks {
		s.network.AcceptHook(h)
	}

	if b.recorder != nil {
		s.tracer = tracing.NewDBTracer(b.recorder, b.traceHops)
		s.network.AcceptHook(s.tracer)
	}

	if b.monitor != nil {
		b.monitor.RegisterNetwork(s.network)
		b.monitor.RegisterDetector(s.detector)
		b.monitor.RegisterHistogram(s.histogram)

		s.progressBar = b.monitor.CreateProgressBar(
			b.name+" deliveries", uint64(b.numSensors))
		s.progressBar.IncrementInProgress(uint64(b.numSensors))
		s.network.AcceptHook(monitoring.NewProgressHook(s.progressBar))

		metricsHook := monitoring.NewMetricsHook(
			b.monitor.MetricSink(),
			monitoring.LabelRun.M(s.id),
			monitoring.LabelEngine.M(engineName(s.engine)),
		)
		s.network.AcceptHook(metricsHook)
		s.network.AcceptMailboxHook(metricsHook)
	}
}

func engineName(e engine.Engine) string {
	if _, ok := e.(*engine.PooledEngine); ok {
		return "pooled"
	}

	return "dedicated"
}
