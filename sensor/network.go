package sensor

import (
	"fmt"
	"log"

	"github.com/sarchlab/sensorsim/sim/hooking"
	"github.com/sarchlab/sensorsim/sim/naming"
	"github.com/sarchlab/sensorsim/topology"
)

// Network is the fixed set of sensors, indexed by node ID. It is built before
// any sensor runs and never changes, so lookups need no locking.
type Network struct {
	naming.NamedBase

	table   *topology.Table
	sensors []*Sensor
}

// NewNetwork creates one sensor per node of the table. Every delivered
// message is passed to sink.
func NewNetwork(
	name string,
	table *topology.Table,
	sink DeliverySink,
) *Network {
	n := &Network{
		NamedBase: naming.MakeNamedBase(name),
		table:     table,
		sensors:   make([]*Sensor, table.NumNodes()),
	}

	for i := range n.sensors {
		nodeID := topology.NodeID(i)
		sensorName := naming.BuildNameWithIndex(name, "Sensor", i)

		s := &Sensor{
			NamedBase: naming.MakeNamedBase(sensorName),
			id:        nodeID,
			neighbors: table.Neighbors(nodeID),
			network:   n,
			sink:      sink,
			mailbox: NewMailbox(
				naming.BuildName(sensorName, "Mailbox"),
				table.NumNodes()),
		}
		s.mailbox.owner = s

		n.sensors[i] = s
	}

	return n
}

// Table returns the adjacency the network was built from.
func (n *Network) Table() *topology.Table {
	return n.table
}

// NumSensors returns the number of sensors.
func (n *Network) NumSensors() int {
	return len(n.sensors)
}

// Sensor returns the sensor of a node.
func (n *Network) Sensor(id topology.NodeID) *Sensor {
	return n.sensors[id]
}

// Sensors returns all the sensors, ordered by node ID. The slice is shared
// and must not be modified.
func (n *Network) Sensors() []*Sensor {
	return n.sensors
}

// SensorByName finds a sensor by its full name, e.g. "Net.Sensor[3]".
func (n *Network) SensorByName(name string) (*Sensor, error) {
	_, index, err := naming.ParseIndex(name)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(n.sensors) || n.sensors[index].Name() != name {
		return nil, fmt.Errorf("sensor %s not found", name)
	}

	return n.sensors[index], nil
}

// AcceptHook registers a hook with every sensor of the network.
func (n *Network) AcceptHook(hook hooking.Hook) {
	for _, s := range n.sensors {
		s.AcceptHook(hook)
	}
}

// AcceptMailboxHook registers a hook with every mailbox of the network.
func (n *Network) AcceptMailboxHook(hook hooking.Hook) {
	for _, s := range n.sensors {
		s.mailbox.AcceptHook(hook)
	}
}

// Seed places each message in the mailbox of its origin.
func (n *Network) Seed(msgs []*Msg) {
	for _, msg := range msgs {
		if int(msg.Origin) >= len(n.sensors) || int(msg.Dst) >= len(n.sensors) {
			log.Panicf("%s does not fit a network of %d sensors",
				msg, len(n.sensors))
		}

		n.sensors[msg.Origin].mailbox.Push(msg)
	}
}

// InFlight returns the number of messages waiting in mailboxes.
func (n *Network) InFlight() int {
	total := 0
	for _, s := range n.sensors {
		total += s.mailbox.Size()
	}

	return total
}

// HandleShutdown wakes every sensor so that it can observe the shutdown. On
// abort, the messages still in flight are discarded.
func (n *Network) HandleShutdown(aborted bool) {
	for _, s := range n.sensors {
		if aborted {
			s.mailbox.Abort()
		} else {
			s.mailbox.Close()
		}
	}
}
