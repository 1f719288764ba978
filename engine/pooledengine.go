package engine

import (
	"log"
	"runtime"
	"sync"

	"github.com/sarchlab/sensorsim/sensor"
)

// A PooledEngine runs the sensors on a fixed number of worker goroutines.
//
// A sensor is put on the ready queue when a message arrives while it is not
// already queued or running. A worker takes a sensor off the queue and drains
// its mailbox. Since a sensor is queued at most once at a time, a single
// sensor never runs on two workers at once, and the ready queue never holds
// more entries than there are sensors.
type PooledEngine struct {
	numWorkers int
	ready      chan *sensor.Sensor
	waitGroup  sync.WaitGroup
}

// NewPooledEngine creates a PooledEngine with the given number of workers. A
// non-positive number uses GOMAXPROCS workers.
func NewPooledEngine(numWorkers int) *PooledEngine {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	return &PooledEngine{
		numWorkers: numWorkers,
	}
}

// NumWorkers returns the number of worker goroutines.
func (e *PooledEngine) NumWorkers() int {
	return e.numWorkers
}

// Schedule queues a sensor that has messages to process.
func (e *PooledEngine) Schedule(s *sensor.Sensor) {
	e.ready <- s
}

// Launch attaches the engine to the sensors and starts the workers.
func (e *PooledEngine) Launch(
	sensors []*sensor.Sensor,
	stop <-chan struct{},
) {
	if e.ready != nil {
		log.Panic("a pooled engine can only be launched once")
	}

	e.ready = make(chan *sensor.Sensor, len(sensors))

	for _, s := range sensors {
		s.SetScheduler(e)

		if s.Mailbox().Size() > 0 {
			s.NotifyRecv()
		}
	}

	e.waitGroup.Add(e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(stop)
	}
}

func (e *PooledEngine) worker(stop <-chan struct{}) {
	defer e.waitGroup.Done()

	for {
		select {
		case <-stop:
			return
		case s := <-e.ready:
			s.Drain()
		}
	}
}

// Wait blocks until all workers have exited.
func (e *PooledEngine) Wait() {
	e.waitGroup.Wait()
}
