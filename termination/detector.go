// Package termination decides when a simulation is over.
//
// The Detector counts delivered messages. The delivery that brings the count
// to the target shuts the simulation down: the shutdown flag is set, Done is
// closed, and every registered ShutdownHandler runs so that it can wake the
// workers that are still waiting. No sensor decides to stop on its own.
package termination

import (
	"log"
	"sync"
)

// A ShutdownHandler is told once when the simulation shuts down.
type ShutdownHandler interface {
	// HandleShutdown is called with aborted set to false when all messages
	// were delivered, and true when the run was cut short by Abort.
	HandleShutdown(aborted bool)
}

// Detector is a monitored counter of delivered messages.
type Detector struct {
	lock      sync.Mutex
	target    int
	delivered int
	shutdown  bool
	aborted   bool
	done      chan struct{}

	handlers []ShutdownHandler
}

// NewDetector creates a Detector that shuts down after target deliveries.
func NewDetector(target int) *Detector {
	if target <= 0 {
		log.Panicf("termination target must be positive, got %d", target)
	}

	return &Detector{
		target: target,
		done:   make(chan struct{}),
	}
}

// RegisterShutdownHandler adds a handler. Handlers must be registered before
// the first delivery.
func (d *Detector) RegisterShutdownHandler(h ShutdownHandler) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.handlers = append(d.handlers, h)
}

// MessageDelivered counts one delivery and returns true if it was the
// delivery that completed the simulation.
func (d *Detector) MessageDelivered() bool {
	d.lock.Lock()

	if d.delivered >= d.target {
		d.lock.Unlock()
		log.Panicf("delivered more than %d messages", d.target)
	}

	d.delivered++

	if d.delivered < d.target || d.shutdown {
		d.lock.Unlock()
		return false
	}

	d.shutdown = true
	close(d.done)
	handlers := d.handlers
	d.lock.Unlock()

	// Handlers take mailbox locks. Running them outside of the detector lock
	// keeps the detector out of any lock chain.
	for _, h := range handlers {
		h.HandleShutdown(false)
	}

	return true
}

// Abort shuts the simulation down before all messages are delivered. It does
// nothing if the simulation has already shut down.
func (d *Detector) Abort() {
	d.lock.Lock()

	if d.shutdown {
		d.lock.Unlock()
		return
	}

	d.shutdown = true
	d.aborted = true
	close(d.done)
	handlers := d.handlers
	d.lock.Unlock()

	for _, h := range handlers {
		h.HandleShutdown(true)
	}
}

// Done returns a channel that is closed at shutdown.
func (d *Detector) Done() <-chan struct{} {
	return d.done
}

// Delivered returns the number of messages delivered so far.
func (d *Detector) Delivered() int {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.delivered
}

// Target returns the number of deliveries that completes the simulation.
func (d *Detector) Target() int {
	return d.target
}

// IsShutdown tells whether the simulation has shut down.
func (d *Detector) IsShutdown() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.shutdown
}

// Aborted tells whether the shutdown was caused by Abort.
func (d *Detector) Aborted() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.aborted
}
