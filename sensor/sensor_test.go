package sensor

import (
	"sync/atomic"

	"github.com/sarchlab/sensorsim/sim/hooking"
	"github.com/sarchlab/sensorsim/topology"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

// seqRand returns a fixed sequence of values, wrapped to the requested range.
type seqRand struct {
	values []int
	next   int
}

func (r *seqRand) IntN(n int) int {
	v := r.values[r.next%len(r.values)]
	r.next++

	return v % n
}

// fullTable builds a directed network of three sensors where every sensor
// links to the two others, in ascending order.
func fullTable() *topology.Table {
	table, err := topology.Build(3, 2, &seqRand{values: []int{0}}, topology.Directed)
	Expect(err).NotTo(HaveOccurred())

	return table
}

var _ = Describe("Sensor", func() {
	var (
		mockCtrl *gomock.Controller
		sink     *MockDeliverySink
		table    *topology.Table
		network  *Network
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sink = NewMockDeliverySink(mockCtrl)
		table = fullTable()
		network = NewNetwork("Net", table, sink)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should relay a message to a neighbor and count the hop", func() {
		msg := NewMsg("1", 0, 2, &seqRand{values: []int{0}})
		sender := network.Sensor(0)
		next := sender.Neighbors()[0]

		sender.handle(msg)

		Expect(msg.Hops).To(Equal(1))
		Expect(sender.NumRelayed()).To(Equal(uint64(1)))
		Expect(network.Sensor(next).Mailbox().Size()).To(Equal(1))
	})

	It("should deliver a message addressed to itself", func() {
		msg := NewMsg("1", 0, 2, &seqRand{values: []int{0}})
		msg.Hops = 3
		receiver := network.Sensor(2)

		sink.EXPECT().Deliver(receiver, msg)

		receiver.handle(msg)

		Expect(receiver.NumDelivered()).To(Equal(uint64(1)))
		Expect(receiver.NumRelayed()).To(BeZero())
		Expect(msg.Hops).To(Equal(3))
	})

	It("should invoke relay and deliver hooks", func() {
		hook := NewMockHook(mockCtrl)
		network.AcceptHook(hook)

		var positions []*hooking.HookPos
		var details []interface{}
		hook.EXPECT().Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				positions = append(positions, ctx.Pos)
				details = append(details, ctx.Detail)
			}).AnyTimes()

		msg := NewMsg("1", 0, 1, &seqRand{values: []int{0}})
		network.Seed([]*Msg{msg})

		s := network.Sensor(0)
		for {
			got, ok := s.Mailbox().TryReceive()
			Expect(ok).To(BeTrue())

			if got.Dst == s.ID() {
				sink.EXPECT().Deliver(s, got)
				s.handle(got)
				break
			}

			detail := RelayDetail{From: s.ID(), To: s.Neighbors()[0]}
			s.handle(got)
			Expect(details[len(details)-1]).To(Equal(detail))
			s = network.Sensor(detail.To)
		}

		Expect(positions[len(positions)-1]).To(BeIdenticalTo(HookPosMsgDeliver))
		Expect(positions[0]).To(BeIdenticalTo(HookPosMsgRelay))
	})

	It("should run until the network shuts down", func() {
		msgs := []*Msg{
			NewMsg("1", 0, 2, &seqRand{values: []int{1, 0, 1}}),
			NewMsg("2", 2, 1, &seqRand{values: []int{1}}),
		}
		network.Seed(msgs)

		delivered := int32(0)
		sink.EXPECT().Deliver(gomock.Any(), gomock.Any()).
			Do(func(s *Sensor, msg *Msg) {
				Expect(s.ID()).To(Equal(msg.Dst))
				Expect(msg.Hops).To(BeNumerically(">=", 1))

				if atomic.AddInt32(&delivered, 1) == int32(len(msgs)) {
					network.HandleShutdown(false)
				}
			}).Times(2)

		done := make(chan struct{})
		for _, s := range network.Sensors() {
			go func(s *Sensor) {
				defer GinkgoRecover()
				s.Run()
				done <- struct{}{}
			}(s)
		}

		for range network.Sensors() {
			Eventually(done).Should(Receive())
		}
		Expect(network.InFlight()).To(BeZero())
	})

	It("should ask the scheduler once per batch of arrivals", func() {
		sch := NewMockScheduler(mockCtrl)
		receiver := network.Sensor(1)
		receiver.SetScheduler(sch)

		sch.EXPECT().Schedule(receiver).Times(1)
		receiver.Mailbox().Push(NewMsg("1", 0, 1, &seqRand{values: []int{0}}))
		receiver.Mailbox().Push(NewMsg("2", 2, 1, &seqRand{values: []int{0}}))

		sink.EXPECT().Deliver(receiver, gomock.Any()).Times(2)
		receiver.Drain()
		Expect(receiver.Mailbox().Size()).To(BeZero())

		sch.EXPECT().Schedule(receiver).Times(1)
		receiver.Mailbox().Push(NewMsg("3", 0, 1, &seqRand{values: []int{0}}))
	})
})

var _ = Describe("Network", func() {
	var (
		network *Network
	)

	BeforeEach(func() {
		network = NewNetwork("Net", fullTable(), nil)
	})

	It("should index sensors by id and by name", func() {
		Expect(network.NumSensors()).To(Equal(3))

		for i, s := range network.Sensors() {
			Expect(s.ID()).To(Equal(topology.NodeID(i)))
			Expect(network.Sensor(topology.NodeID(i))).To(BeIdenticalTo(s))

			found, err := network.SensorByName(s.Name())
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeIdenticalTo(s))
		}

		Expect(network.Sensor(1).Name()).To(Equal("Net.Sensor[1]"))
		Expect(network.Sensor(1).Mailbox().Name()).
			To(Equal("Net.Sensor[1].Mailbox"))
	})

	It("should not find unknown sensors", func() {
		_, err := network.SensorByName("Net.Sensor[9]")
		Expect(err).To(HaveOccurred())

		_, err = network.SensorByName("Other.Sensor[1]")
		Expect(err).To(HaveOccurred())

		_, err = network.SensorByName("Net")
		Expect(err).To(HaveOccurred())
	})

	It("should seed messages at their origin", func() {
		network.Seed([]*Msg{
			NewMsg("1", 0, 1, nil),
			NewMsg("2", 2, 0, nil),
		})

		Expect(network.Sensor(0).Mailbox().Size()).To(Equal(1))
		Expect(network.Sensor(1).Mailbox().Size()).To(Equal(0))
		Expect(network.Sensor(2).Mailbox().Size()).To(Equal(1))
		Expect(network.InFlight()).To(Equal(2))
	})

	It("should invoke mailbox hooks of every sensor", func() {
		var domains []hooking.Hookable
		var positions []*hooking.HookPos
		network.AcceptMailboxHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			domains = append(domains, ctx.Domain)
			positions = append(positions, ctx.Pos)
		}))

		network.Seed([]*Msg{
			NewMsg("1", 0, 1, nil),
			NewMsg("2", 2, 0, nil),
		})
		_, ok := network.Sensor(2).Mailbox().TryReceive()
		Expect(ok).To(BeTrue())
		_, ok = network.Sensor(1).Mailbox().TryReceive()
		Expect(ok).To(BeFalse())

		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosMailboxPush, HookPosMailboxPush, HookPosMailboxPop,
		}))
		Expect(domains[0]).To(BeIdenticalTo(network.Sensor(0).Mailbox()))
		Expect(domains[1]).To(BeIdenticalTo(network.Sensor(2).Mailbox()))
		Expect(domains[2]).To(BeIdenticalTo(network.Sensor(2).Mailbox()))
	})

	It("should close or abort every mailbox at shutdown", func() {
		network.Seed([]*Msg{NewMsg("1", 0, 1, nil)})

		network.HandleShutdown(true)

		for _, s := range network.Sensors() {
			Expect(s.Mailbox().IsClosed()).To(BeTrue())
		}
		Expect(network.InFlight()).To(BeZero())
	})
})
