// Package engine provides the execution substrates that run the sensors.
package engine

import "github.com/sarchlab/sensorsim/sensor"

// An Engine runs the sensors of a network.
type Engine interface {
	// Launch starts running the sensors and returns immediately. The sensors
	// must already hold their initial messages. Workers exit after stop is
	// closed and their sensors have nothing left to do.
	Launch(sensors []*sensor.Sensor, stop <-chan struct{})

	// Wait blocks until every worker has exited.
	Wait()
}
