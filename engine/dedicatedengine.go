package engine

import (
	"log"
	"sync"

	"github.com/sarchlab/sensorsim/sensor"
)

// A DedicatedEngine gives every sensor a goroutine of its own. A sensor with
// an empty mailbox parks its goroutine on the mailbox condition.
type DedicatedEngine struct {
	launchOnce sync.Once
	waitGroup  sync.WaitGroup
}

// NewDedicatedEngine creates a DedicatedEngine.
func NewDedicatedEngine() *DedicatedEngine {
	return &DedicatedEngine{}
}

// Launch starts one goroutine per sensor. The goroutines stop when their
// mailboxes are closed, so stop is not needed.
func (e *DedicatedEngine) Launch(
	sensors []*sensor.Sensor,
	_ <-chan struct{},
) {
	launched := false

	e.launchOnce.Do(func() {
		launched = true
		e.waitGroup.Add(len(sensors))

		for _, s := range sensors {
			go e.run(s)
		}
	})

	if !launched {
		log.Panic("a dedicated engine can only be launched once")
	}
}

func (e *DedicatedEngine) run(s *sensor.Sensor) {
	defer e.waitGroup.Done()
	s.Run()
}

// Wait blocks until all sensors have stopped.
func (e *DedicatedEngine) Wait() {
	e.waitGroup.Wait()
}
