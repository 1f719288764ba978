package sensor

import (
	"fmt"

	"github.com/sarchlab/sensorsim/sim/id"
	"github.com/sarchlab/sensorsim/topology"
)

// A Msg travels from its origin to its destination one random hop at a time.
//
// A Msg is held by exactly one mailbox or one sensor at any time, and only
// the holder touches it, so a Msg needs no locking.
type Msg struct {
	ID     string
	Origin topology.NodeID
	Dst    topology.NodeID
	Hops   int

	// walk picks the relay hops of this message only. Keeping the stream per
	// message makes the path independent of how the sensors interleave.
	walk topology.RandSource
}

// NewMsg creates a message that has not been relayed yet.
func NewMsg(
	id string,
	origin, dst topology.NodeID,
	walk topology.RandSource,
) *Msg {
	if origin == dst {
		panic(fmt.Sprintf("msg %s is addressed to its own origin %d", id, dst))
	}

	return &Msg{
		ID:     id,
		Origin: origin,
		Dst:    dst,
		walk:   walk,
	}
}

func (m *Msg) String() string {
	return fmt.Sprintf("msg %s %d->%d after %d hops",
		m.ID, m.Origin, m.Dst, m.Hops)
}

// WalkSourceFactory creates the random stream a message uses for its hops.
type WalkSourceFactory func(origin topology.NodeID) topology.RandSource

// GenerateMsgs creates one message per node, each addressed to a uniformly
// chosen node other than its origin. Message i originates at node i.
func GenerateMsgs(
	numNodes int,
	pick topology.RandSource,
	walk WalkSourceFactory,
	ids id.IDGenerator,
) []*Msg {
	if numNodes < 2 {
		panic("at least two nodes are needed to address a message")
	}

	msgs := make([]*Msg, numNodes)
	for i := 0; i < numNodes; i++ {
		origin := topology.NodeID(i)

		dst := topology.NodeID(pick.IntN(numNodes - 1))
		if dst >= origin {
			dst++
		}

		msgs[i] = NewMsg(ids.Generate(), origin, dst, walk(origin))
	}

	return msgs
}
