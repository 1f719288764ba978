package topology

import "fmt"

// ValidateParams checks that n sensors with m peers each can form a network.
// It requires 0 < m < n, which also rules out n == 1.
func ValidateParams(n, m int) error {
	if n <= 0 {
		return fmt.Errorf("%w: number of sensors must be positive, got %d",
			ErrInvalidParameter, n)
	}

	if m <= 0 {
		return fmt.Errorf("%w: number of peers must be positive, got %d",
			ErrInvalidParameter, m)
	}

	if m >= n {
		return fmt.Errorf(
			"%w: number of peers (%d) must be less than number of sensors (%d)",
			ErrInvalidParameter, m, n)
	}

	return nil
}

// SatisfiesConnectivityHeuristic reports whether 2m + 2 > n. Under this
// condition every node of the bidirectional network links to at least half of
// the other nodes, so the network is connected. Build does not check it.
func SatisfiesConnectivityHeuristic(n, m int) bool {
	return 2*m+2 > n
}

// Build creates a network of n nodes where every node picks m distinct random
// peers other than itself.
func Build(n, m int, rng RandSource, mode LinkMode) (*Table, error) {
	err := ValidateParams(n, m)
	if err != nil {
		return nil, err
	}

	t := &Table{
		mode:  mode,
		peers: make([][]NodeID, n),
	}

	for i := 0; i < n; i++ {
		t.peers[i] = samplePeers(NodeID(i), n, m, rng)
	}

	switch mode {
	case Directed:
		t.neighbors = t.peers
	case Bidirectional:
		t.neighbors = linkBothWays(t.peers)
	default:
		return nil, fmt.Errorf("%w: unknown link mode %s",
			ErrInvalidParameter, mode)
	}

	return t, nil
}

// samplePeers draws m distinct values out of the n-1 nodes other than self,
// using Floyd's algorithm so that the cost is O(m) regardless of n.
func samplePeers(self NodeID, n, m int, rng RandSource) []NodeID {
	chosen := make(map[int]bool, m)
	peers := make([]NodeID, 0, m)
	others := n - 1

	for j := others - m; j < others; j++ {
		pick := rng.IntN(j + 1)
		if chosen[pick] {
			pick = j
		}

		chosen[pick] = true
		peers = append(peers, skipSelf(self, pick))
	}

	return peers
}

// skipSelf maps an index over the other nodes back to a NodeID.
func skipSelf(self NodeID, index int) NodeID {
	if NodeID(index) >= self {
		return NodeID(index + 1)
	}

	return NodeID(index)
}

func linkBothWays(peers [][]NodeID) [][]NodeID {
	n := len(peers)
	linked := make([]map[NodeID]bool, n)
	neighbors := make([][]NodeID, n)

	for i := range peers {
		linked[i] = make(map[NodeID]bool, 2*len(peers[i]))
		neighbors[i] = make([]NodeID, 0, 2*len(peers[i]))
	}

	add := func(from, to NodeID) {
		if linked[from][to] {
			return
		}

		linked[from][to] = true
		neighbors[from] = append(neighbors[from], to)
	}

	for i, list := range peers {
		for _, p := range list {
			add(NodeID(i), p)
		}
	}

	for i, list := range peers {
		for _, p := range list {
			add(p, NodeID(i))
		}
	}

	return neighbors
}
