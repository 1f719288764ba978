// Package tracing records what happens to messages as they travel through the
// network.
package tracing

import (
	"sync/atomic"

	"github.com/sarchlab/sensorsim/datarecording"
	"github.com/sarchlab/sensorsim/sensor"
	"github.com/sarchlab/sensorsim/sim/hooking"
	"github.com/tebeka/atexit"
)

// Table names used by the DBTracer.
const (
	DeliveryTable = "delivery"
	HopTable      = "hop"
)

// DeliveryEntry is the row written when a message reaches its destination.
type DeliveryEntry struct {
	MsgID       string `json:"msg_id"`
	Origin      int    `json:"origin"`
	Destination int    `json:"destination"`
	Hops        int    `json:"hops"`
	Sensor      string `json:"sensor"`
}

// HopEntry is the row written when a message is relayed.
type HopEntry struct {
	MsgID    string `json:"msg_id"`
	Hop      int    `json:"hop"`
	FromNode int    `json:"from_node"`
	ToNode   int    `json:"to_node"`
}

// DBTracer is a hook that stores deliveries, and optionally every hop, into a
// data recorder. It can be attached to all the sensors of a network at once.
type DBTracer struct {
	backend   datarecording.DataRecorder
	traceHops bool

	numDeliveries atomic.Uint64
	numHops       atomic.Uint64
}

// NewDBTracer creates a DBTracer and the tables it writes to.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	traceHops bool,
) *DBTracer {
	dataRecorder.CreateTable(DeliveryTable, DeliveryEntry{})

	if traceHops {
		dataRecorder.CreateTable(HopTable, HopEntry{})
	}

	t := &DBTracer{
		backend:   dataRecorder,
		traceHops: traceHops,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// Func records the event at a sensor hook position.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case sensor.HookPosMsgDeliver:
		t.recordDelivery(ctx)
	case sensor.HookPosMsgRelay:
		if t.traceHops {
			t.recordHop(ctx)
		}
	}
}

func (t *DBTracer) recordDelivery(ctx hooking.HookCtx) {
	msg := ctx.Item.(*sensor.Msg)

	entry := DeliveryEntry{
		MsgID:       msg.ID,
		Origin:      int(msg.Origin),
		Destination: int(msg.Dst),
		Hops:        msg.Hops,
	}

	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		entry.Sensor = named.Name()
	}

	t.backend.InsertData(DeliveryTable, entry)
	t.numDeliveries.Add(1)
}

func (t *DBTracer) recordHop(ctx hooking.HookCtx) {
	msg := ctx.Item.(*sensor.Msg)
	detail := ctx.Detail.(sensor.RelayDetail)

	t.backend.InsertData(HopTable, HopEntry{
		MsgID:    msg.ID,
		Hop:      msg.Hops,
		FromNode: int(detail.From),
		ToNode:   int(detail.To),
	})
	t.numHops.Add(1)
}

// NumDeliveries returns the number of delivery rows written.
func (t *DBTracer) NumDeliveries() uint64 {
	return t.numDeliveries.Load()
}

// NumHops returns the number of hop rows written.
func (t *DBTracer) NumHops() uint64 {
	return t.numHops.Load()
}

// Terminate flushes everything recorded so far.
func (t *DBTracer) Terminate() {
	t.backend.Flush()
}
