package topology

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

var _ = Describe("Build", func() {
	DescribeTable("should reject invalid parameters",
		func(n, m int) {
			table, err := Build(n, m, newRand(1), Bidirectional)

			Expect(err).To(MatchError(ErrInvalidParameter))
			Expect(table).To(BeNil())
		},
		Entry("no sensors", 0, 1),
		Entry("negative sensors", -3, 1),
		Entry("a single sensor", 1, 1),
		Entry("a single sensor without peers", 1, 0),
		Entry("no peers", 5, 0),
		Entry("as many peers as sensors", 4, 4),
		Entry("more peers than sensors", 4, 9),
	)

	It("should give every node m distinct peers other than itself", func() {
		table, err := Build(100, 7, newRand(3), Directed)
		Expect(err).NotTo(HaveOccurred())

		Expect(table.NumNodes()).To(Equal(100))
		Expect(table.Degree()).To(Equal(7))

		for i := 0; i < table.NumNodes(); i++ {
			n := NodeID(i)
			peers := table.Peers(n)

			Expect(peers).To(HaveLen(7))
			Expect(peers).NotTo(ContainElement(n))

			seen := make(map[NodeID]bool)
			for _, p := range peers {
				Expect(p).To(BeNumerically(">=", 0))
				Expect(p).To(BeNumerically("<", 100))
				Expect(seen[p]).To(BeFalse())
				seen[p] = true
			}
		}
	})

	It("should pick all other nodes when m is n-1", func() {
		table, err := Build(5, 4, newRand(9), Directed)
		Expect(err).NotTo(HaveOccurred())

		Expect(table.Peers(2)).To(ConsistOf(NodeID(0), NodeID(1), NodeID(3), NodeID(4)))
		Expect(table.StronglyConnected()).To(BeTrue())
	})

	It("should only relay along chosen peers in directed mode", func() {
		table, err := Build(20, 3, newRand(5), Directed)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 20; i++ {
			Expect(table.Neighbors(NodeID(i))).To(Equal(table.Peers(NodeID(i))))
		}
	})

	It("should link both ends in bidirectional mode", func() {
		table, err := Build(30, 4, newRand(5), Bidirectional)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 30; i++ {
			n := NodeID(i)
			Expect(len(table.Neighbors(n))).To(BeNumerically(">=", 4))
			Expect(table.Neighbors(n)).NotTo(ContainElement(n))

			for _, p := range table.Peers(n) {
				Expect(table.Neighbors(n)).To(ContainElement(p))
				Expect(table.Neighbors(p)).To(ContainElement(n))
			}
		}
	})

	It("should be connected whenever the heuristic holds", func() {
		for seed := uint64(0); seed < 50; seed++ {
			table, err := Build(9, 4, newRand(seed), Bidirectional)
			Expect(err).NotTo(HaveOccurred())
			Expect(SatisfiesConnectivityHeuristic(9, 4)).To(BeTrue())
			Expect(table.StronglyConnected()).To(BeTrue())
		}
	})

	It("should build the same table from the same seed", func() {
		a, err := Build(100, 3, newRand(42), Bidirectional)
		Expect(err).NotTo(HaveOccurred())
		b, err := Build(100, 3, newRand(42), Bidirectional)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 100; i++ {
			Expect(a.Peers(NodeID(i))).To(Equal(b.Peers(NodeID(i))))
			Expect(a.Neighbors(NodeID(i))).To(Equal(b.Neighbors(NodeID(i))))
		}
	})
})

var _ = Describe("Connectivity heuristic", func() {
	It("should require 2m+2 > n", func() {
		Expect(SatisfiesConnectivityHeuristic(4, 2)).To(BeTrue())
		Expect(SatisfiesConnectivityHeuristic(6, 2)).To(BeFalse())
		Expect(SatisfiesConnectivityHeuristic(100, 3)).To(BeFalse())
		Expect(SatisfiesConnectivityHeuristic(100, 50)).To(BeTrue())
	})
})

var _ = Describe("Table", func() {
	It("should detect a network that cannot reach some node", func() {
		table := &Table{
			mode: Directed,
			peers: [][]NodeID{
				{1}, {0}, {0},
			},
		}
		table.neighbors = table.peers

		Expect(table.StronglyConnected()).To(BeFalse())
	})

	It("should name link modes", func() {
		Expect(Bidirectional.String()).To(Equal("bidirectional"))
		Expect(Directed.String()).To(Equal("directed"))
		Expect(LinkMode(7).String()).To(Equal("LinkMode(7)"))
	})
})
