// Package simulation wires the sensors, the engine, the termination detector,
// and the histogram into a runnable simulation.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sarchlab/sensorsim/datarecording"
	"github.com/sarchlab/sensorsim/engine"
	"github.com/sarchlab/sensorsim/histogram"
	"github.com/sarchlab/sensorsim/monitoring"
	"github.com/sarchlab/sensorsim/sensor"
	"github.com/sarchlab/sensorsim/termination"
	"github.com/sarchlab/sensorsim/topology"
	"github.com/sarchlab/sensorsim/tracing"
)

var (
	// ErrAlreadyRun is returned when Run is called a second time.
	ErrAlreadyRun = errors.New("simulation: already run")

	// ErrAborted is returned when a run stops before all messages are
	// delivered.
	ErrAborted = errors.New("simulation: aborted")
)

// Table names written by a simulation with a data recorder.
const (
	RunTable       = "run"
	HistogramTable = "histogram"
)

// RunEntry is the summary row of a run.
type RunEntry struct {
	ID         string  `json:"id"`
	Sensors    int     `json:"sensors"`
	Peers      int     `json:"peers"`
	Seed       string  `json:"seed"`
	LinkMode   string  `json:"link_mode"`
	Engine     string  `json:"engine"`
	Delivered  int     `json:"delivered"`
	ElapsedSec float64 `json:"elapsed_sec"`
}

// HistogramEntry is one histogram row of a run.
type HistogramEntry struct {
	RunID string `json:"run_id"`
	Hops  int    `json:"hops"`
	Count int64  `json:"count"`
}

// Result is the outcome of a completed run.
type Result struct {
	ID        string
	Seed      uint64
	Rows      []histogram.Row
	Delivered int
	Elapsed   time.Duration
}

// A Simulation is a network of sensors with its initial messages in place,
// ready to run once.
type Simulation struct {
	id       string
	seed     uint64
	numPeers int
	logger   *slog.Logger

	table     *topology.Table
	network   *sensor.Network
	engine    engine.Engine
	detector  *termination.Detector
	histogram *histogram.Histogram

	recorder    datarecording.DataRecorder
	tracer      *tracing.DBTracer
	monitor     *monitoring.Monitor
	progressBar *monitoring.ProgressBar

	runLock sync.Mutex
	hasRun  bool
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Seed returns the seed all random choices derive from.
func (s *Simulation) Seed() uint64 {
	return s.seed
}

// Table returns the adjacency of the network.
func (s *Simulation) Table() *topology.Table {
	return s.table
}

// Network returns the sensors.
func (s *Simulation) Network() *sensor.Network {
	return s.network
}

// Detector returns the termination detector.
func (s *Simulation) Detector() *termination.Detector {
	return s.detector
}

// Histogram returns the histogram that collects the deliveries.
func (s *Simulation) Histogram() *histogram.Histogram {
	return s.histogram
}

// Deliver records a message that reached its destination. The histogram is
// updated before the detector counts the delivery, so the histogram is
// complete once the simulation shuts down.
func (s *Simulation) Deliver(_ *sensor.Sensor, msg *sensor.Msg) {
	s.histogram.Record(msg.Hops)
	s.detector.MessageDelivered()
}

// Run starts the workers and blocks until every message is delivered.
//
// If ctx is cancelled first, the simulation is aborted: the workers are
// stopped, the messages still in flight are dropped, and an error wrapping
// both ErrAborted and the cause of ctx is returned without a result.
func (s *Simulation) Run(ctx context.Context) (*Result, error) {
	s.runLock.Lock()
	if s.hasRun {
		s.runLock.Unlock()
		return nil, ErrAlreadyRun
	}
	s.hasRun = true
	s.runLock.Unlock()

	s.logger.Info("simulation started",
		monitoring.LabelRun.L(s.id),
		"sensors", s.table.NumNodes(),
		"peers", s.numPeers,
		"links", s.table.Mode().String(),
		monitoring.LabelEngine.L(engineName(s.engine)),
		"seed", s.seed)

	start := time.Now()
	s.engine.Launch(s.network.Sensors(), s.detector.Done())

	finished := make(chan struct{})
	go func() {
		s.engine.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		s.detector.Abort()
		<-finished
	}

	elapsed := time.Since(start)

	if s.progressBar != nil {
		s.monitor.CompleteProgressBar(s.progressBar)
	}

	if s.detector.Aborted() {
		s.logger.Warn("simulation aborted",
			monitoring.LabelRun.L(s.id),
			"delivered", s.detector.Delivered(),
			"target", s.detector.Target(),
			"elapsed", elapsed)

		err := ErrAborted
		if cause := context.Cause(ctx); cause != nil {
			err = fmt.Errorf("%w: %w", ErrAborted, cause)
		}

		return nil, fmt.Errorf("simulation %s stopped after %d of %d deliveries: %w",
			s.id, s.detector.Delivered(), s.detector.Target(), err)
	}

	result := &Result{
		ID:        s.id,
		Seed:      s.seed,
		Rows:      s.histogram.Rows(),
		Delivered: s.detector.Delivered(),
		Elapsed:   elapsed,
	}

	s.logger.Info("simulation completed",
		monitoring.LabelRun.L(s.id),
		"delivered", result.Delivered,
		"mean_hops", s.histogram.Mean(),
		"max_hops", s.histogram.Max(),
		"elapsed", elapsed)

	s.record(result)

	return result, nil
}

func (s *Simulation) record(result *Result) {
	if s.recorder == nil {
		return
	}

	s.recorder.CreateTable(RunTable, RunEntry{})
	s.recorder.CreateTable(HistogramTable, HistogramEntry{})

	s.recorder.InsertData(RunTable, RunEntry{
		ID:         s.id,
		Sensors:    s.table.NumNodes(),
		Peers:      s.numPeers,
		Seed:       strconv.FormatUint(s.seed, 10),
		LinkMode:   s.table.Mode().String(),
		Engine:     engineName(s.engine),
		Delivered:  result.Delivered,
		ElapsedSec: result.Elapsed.Seconds(),
	})

	for _, row := range result.Rows {
		s.recorder.InsertData(HistogramTable, HistogramEntry{
			RunID: s.id,
			Hops:  row.Hops,
			Count: int64(row.Count),
		})
	}

	s.tracer.Terminate()
}
