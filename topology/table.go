// Package topology builds the fixed sensor network that messages travel on.
//
// A Table is built once, before any sensor starts, and is never modified
// afterwards. All sensors read it concurrently without locking.
package topology

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is returned when the network size parameters cannot
// describe a network in which every message has a recipient.
var ErrInvalidParameter = errors.New("topology: invalid parameter")

// NodeID identifies a sensor. IDs are dense, in [0, N).
type NodeID int

// RandSource is the source of randomness used to pick peers, destinations and
// relay hops. *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	// IntN returns a uniformly distributed integer in [0, n).
	IntN(n int) int
}

// LinkMode decides how the chosen peers turn into relay links.
type LinkMode int

const (
	// Bidirectional links connect both ends of a peer choice, so a node can
	// relay to the peers it chose and to the nodes that chose it.
	Bidirectional LinkMode = iota

	// Directed links only go from a node to the peers it chose.
	Directed
)

func (m LinkMode) String() string {
	switch m {
	case Bidirectional:
		return "bidirectional"
	case Directed:
		return "directed"
	default:
		return fmt.Sprintf("LinkMode(%d)", int(m))
	}
}

// Table is the immutable adjacency of the network.
type Table struct {
	mode      LinkMode
	peers     [][]NodeID
	neighbors [][]NodeID
}

// NumNodes returns N.
func (t *Table) NumNodes() int {
	return len(t.peers)
}

// Degree returns M, the number of peers every node chose.
func (t *Table) Degree() int {
	if len(t.peers) == 0 {
		return 0
	}

	return len(t.peers[0])
}

// Mode returns how peers are turned into links.
func (t *Table) Mode() LinkMode {
	return t.mode
}

// Peers returns the M distinct peers node n chose. The returned slice is
// shared and must not be modified.
func (t *Table) Peers(n NodeID) []NodeID {
	return t.peers[n]
}

// Neighbors returns the nodes n can relay a message to. The returned slice is
// shared and must not be modified.
func (t *Table) Neighbors(n NodeID) []NodeID {
	return t.neighbors[n]
}

// StronglyConnected tells whether every node can reach every other node over
// the relay links. It is a diagnostic; the simulation never calls it.
func (t *Table) StronglyConnected() bool {
	n := len(t.neighbors)
	if n == 0 {
		return true
	}

	reverse := make([][]NodeID, n)
	for from, list := range t.neighbors {
		for _, to := range list {
			reverse[to] = append(reverse[to], NodeID(from))
		}
	}

	return reachesAll(t.neighbors) && reachesAll(reverse)
}

func reachesAll(adj [][]NodeID) bool {
	visited := make([]bool, len(adj))
	visited[0] = true
	queue := []NodeID{0}
	count := 1

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range adj[curr] {
			if !visited[next] {
				visited[next] = true
				count++
				queue = append(queue, next)
			}
		}
	}

	return count == len(adj)
}
