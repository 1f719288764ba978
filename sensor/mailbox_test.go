package sensor

import (
	"github.com/sarchlab/sensorsim/sim/hooking"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Mailbox", func() {
	var (
		mb *Mailbox
	)

	BeforeEach(func() {
		mb = NewMailbox("Net.Sensor[0].Mailbox", 4)
	})

	receiveAsync := func() <-chan *Msg {
		received := make(chan *Msg, 1)
		go func() {
			msg, ok := mb.Receive()
			if ok {
				received <- msg
			}
			close(received)
		}()
		return received
	}

	It("should keep messages in fifo order", func() {
		a := &Msg{ID: "a"}
		b := &Msg{ID: "b"}
		mb.Push(a)
		mb.Push(b)

		Expect(mb.Size()).To(Equal(2))
		Expect(mb.Capacity()).To(Equal(4))

		first, ok := mb.Receive()
		Expect(ok).To(BeTrue())
		Expect(first).To(BeIdenticalTo(a))

		second, ok := mb.TryReceive()
		Expect(ok).To(BeTrue())
		Expect(second).To(BeIdenticalTo(b))

		_, ok = mb.TryReceive()
		Expect(ok).To(BeFalse())
	})

	It("should block until a message arrives", func() {
		received := receiveAsync()
		Consistently(received).ShouldNot(Receive())

		msg := &Msg{ID: "late"}
		mb.Push(msg)

		Eventually(received).Should(Receive(BeIdenticalTo(msg)))
	})

	It("should release a waiting receiver when closed", func() {
		received := receiveAsync()
		Consistently(received).ShouldNot(BeClosed())

		mb.Close()

		Eventually(received).Should(BeClosed())
		Expect(mb.IsClosed()).To(BeTrue())
	})

	It("should hand out the remaining messages after close", func() {
		msg := &Msg{ID: "left"}
		mb.Push(msg)
		mb.Close()

		got, ok := mb.Receive()
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(msg))

		_, ok = mb.Receive()
		Expect(ok).To(BeFalse())
	})

	It("should panic when pushing into a closed mailbox", func() {
		mb.Close()
		Expect(func() { mb.Push(&Msg{ID: "x"}) }).To(Panic())
	})

	It("should discard messages when aborted", func() {
		mb.Push(&Msg{ID: "dropped"})
		mb.Abort()
		mb.Push(&Msg{ID: "ignored"})

		Expect(mb.Size()).To(Equal(0))
		_, ok := mb.Receive()
		Expect(ok).To(BeFalse())
	})

	It("should invoke hooks on push and pop", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		hook := NewMockHook(mockCtrl)
		mb.AcceptHook(hook)
		msg := &Msg{ID: "hooked"}

		push := hook.EXPECT().Func(hooking.HookCtx{
			Domain: mb,
			Pos:    HookPosMailboxPush,
			Item:   msg,
		})
		hook.EXPECT().Func(hooking.HookCtx{
			Domain: mb,
			Pos:    HookPosMailboxPop,
			Item:   msg,
		}).After(push)

		mb.Push(msg)
		mb.Receive()

		mockCtrl.Finish()
	})
})
