package sensor

import (
	"math/rand/v2"

	"github.com/sarchlab/sensorsim/sim/id"
	"github.com/sarchlab/sensorsim/topology"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Msg", func() {
	walk := func(origin topology.NodeID) topology.RandSource {
		return rand.New(rand.NewPCG(7, uint64(origin)))
	}

	It("should refuse a message addressed to its origin", func() {
		Expect(func() { NewMsg("1", 3, 3, nil) }).To(Panic())
	})

	It("should generate one message per node to another node", func() {
		pick := rand.New(rand.NewPCG(1, 2))
		msgs := GenerateMsgs(50, pick, walk, id.NewSequentialIDGenerator())

		Expect(msgs).To(HaveLen(50))
		for i, msg := range msgs {
			Expect(msg.Origin).To(Equal(topology.NodeID(i)))
			Expect(msg.Dst).NotTo(Equal(msg.Origin))
			Expect(msg.Dst).To(BeNumerically("<", 50))
			Expect(msg.Hops).To(BeZero())
			Expect(msg.walk).NotTo(BeNil())
		}
		Expect(msgs[0].ID).To(Equal("1"))
	})

	It("should generate the same destinations from the same seed", func() {
		a := GenerateMsgs(100, rand.New(rand.NewPCG(5, 5)), walk,
			id.NewSequentialIDGenerator())
		b := GenerateMsgs(100, rand.New(rand.NewPCG(5, 5)), walk,
			id.NewSequentialIDGenerator())

		for i := range a {
			Expect(a[i].Dst).To(Equal(b[i].Dst))
		}
	})

	It("should always address the other node when there are two", func() {
		msgs := GenerateMsgs(2, rand.New(rand.NewPCG(1, 1)), walk,
			id.NewSequentialIDGenerator())

		Expect(msgs[0].Dst).To(Equal(topology.NodeID(1)))
		Expect(msgs[1].Dst).To(Equal(topology.NodeID(0)))
	})

	It("should describe itself", func() {
		msg := NewMsg("9", 1, 2, nil)
		msg.Hops = 4

		Expect(msg.String()).To(Equal("msg 9 1->2 after 4 hops"))
	})
})
