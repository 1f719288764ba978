// Package sensor implements the sensors of the network and the protocol they
// use to relay messages.
//
// Every sensor owns a Mailbox. A sensor takes one message at a time out of
// its mailbox. A message addressed to the sensor is delivered; any other
// message gets one more hop and is pushed into the mailbox of a random
// neighbor. A sensor never holds two mailbox locks at once: the lock of its
// own mailbox is released before the neighbor's is taken.
package sensor

import (
	"sync/atomic"

	"github.com/sarchlab/sensorsim/sim/hooking"
	"github.com/sarchlab/sensorsim/sim/naming"
	"github.com/sarchlab/sensorsim/topology"
)

// HookPosMsgRelay marks when a sensor forwards a message. The hop count of
// the message already includes the new hop. Detail is a RelayDetail.
var HookPosMsgRelay = &hooking.HookPos{Name: "Msg Relay"}

// HookPosMsgDeliver marks when a message reaches its destination.
var HookPosMsgDeliver = &hooking.HookPos{Name: "Msg Deliver"}

// HookPosSensorStop marks when the worker of a sensor exits.
var HookPosSensorStop = &hooking.HookPos{Name: "Sensor Stop"}

// RelayDetail describes one hop.
type RelayDetail struct {
	From topology.NodeID
	To   topology.NodeID
}

// A DeliverySink consumes the messages that reached their destination.
type DeliverySink interface {
	Deliver(s *Sensor, msg *Msg)
}

// A Scheduler runs sensors that have work. It is only used when sensors do
// not have a dedicated worker.
type Scheduler interface {
	Schedule(s *Sensor)
}

// Sensor is a node of the network.
type Sensor struct {
	hooking.HookableBase
	naming.NamedBase

	id        topology.NodeID
	neighbors []topology.NodeID
	mailbox   *Mailbox
	network   *Network
	sink      DeliverySink

	scheduler Scheduler
	scheduled atomic.Bool

	numRelayed   atomic.Uint64
	numDelivered atomic.Uint64
}

// ID returns the node ID of the sensor.
func (s *Sensor) ID() topology.NodeID {
	return s.id
}

// Mailbox returns the incoming mailbox of the sensor.
func (s *Sensor) Mailbox() *Mailbox {
	return s.mailbox
}

// Neighbors returns the nodes the sensor relays to.
func (s *Sensor) Neighbors() []topology.NodeID {
	return s.neighbors
}

// NumRelayed returns how many messages the sensor has forwarded.
func (s *Sensor) NumRelayed() uint64 {
	return s.numRelayed.Load()
}

// NumDelivered returns how many messages ended at the sensor.
func (s *Sensor) NumDelivered() uint64 {
	return s.numDelivered.Load()
}

// SetScheduler makes the sensor ask sch to run it whenever a message arrives.
// It must be called before any message is pushed.
func (s *Sensor) SetScheduler(sch Scheduler) {
	s.scheduler = sch
}

// Run processes messages until the simulation shuts down. The calling
// goroutine sleeps while the mailbox is empty.
func (s *Sensor) Run() {
	for {
		msg, ok := s.mailbox.Receive()
		if !ok {
			break
		}

		s.handle(msg)
	}

	s.stopped()
}

// Drain processes messages until the mailbox is empty, then returns. It is
// the unit of work of a scheduled sensor.
func (s *Sensor) Drain() {
	for {
		for {
			msg, ok := s.mailbox.TryReceive()
			if !ok {
				break
			}

			s.handle(msg)
		}

		s.scheduled.Store(false)

		// A message pushed after the last TryReceive could not schedule the
		// sensor because the flag was still set. Take the work back here.
		if s.mailbox.Size() == 0 || !s.scheduled.CompareAndSwap(false, true) {
			return
		}
	}
}

// NotifyRecv is called by the mailbox after a message lands in it.
func (s *Sensor) NotifyRecv() {
	if s.scheduler == nil {
		return
	}

	if s.scheduled.CompareAndSwap(false, true) {
		s.scheduler.Schedule(s)
	}
}

func (s *Sensor) handle(msg *Msg) {
	if msg.Dst == s.id {
		s.deliver(msg)
		return
	}

	s.relay(msg)
}

func (s *Sensor) deliver(msg *Msg) {
	s.numDelivered.Add(1)

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosMsgDeliver,
			Item:   msg,
		})
	}

	s.sink.Deliver(s, msg)
}

// relay forwards msg one hop. The next sensor is drawn uniformly from
// topology.Table.Neighbors, not Table.Peers, so with bidirectional links a
// sensor also relays over the links other sensors made to it.
func (s *Sensor) relay(msg *Msg) {
	next := s.neighbors[msg.walk.IntN(len(s.neighbors))]
	msg.Hops++
	s.numRelayed.Add(1)

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosMsgRelay,
			Item:   msg,
			Detail: RelayDetail{From: s.id, To: next},
		})
	}

	s.network.sensors[next].mailbox.Push(msg)
}

func (s *Sensor) stopped() {
	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosSensorStop,
		})
	}
}
