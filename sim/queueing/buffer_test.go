package queueing

import (
	"github.com/sarchlab/sensorsim/sim/hooking"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func mustPop(buf Buffer[int]) int {
	e, ok := buf.Pop()
	Expect(ok).To(BeTrue())
	return e
}

func mustPeek(buf Buffer[int]) int {
	e, ok := buf.Peek()
	Expect(ok).To(BeTrue())
	return e
}

var _ = Describe("Buffer", func() {
	var (
		buf Buffer[int]
	)

	BeforeEach(func() {
		buf = NewBuffer[int]("Buf", 2)
	})

	It("should allow push and pop", func() {
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())

		buf.Push(1)
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		buf.Push(2)
		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(func() {
			buf.Push(3)
		}).To(Panic())

		Expect(mustPeek(buf)).To(Equal(1))
		Expect(mustPop(buf)).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
		Expect(mustPeek(buf)).To(Equal(2))
		Expect(mustPop(buf)).To(Equal(2))
		Expect(buf.Size()).To(Equal(0))

		_, ok := buf.Pop()
		Expect(ok).To(BeFalse())
		_, ok = buf.Peek()
		Expect(ok).To(BeFalse())
	})

	It("should keep fifo order when wrapping around", func() {
		buf = NewBuffer[int]("Buf", 3)
		var popped []int

		for i := 0; i < 10; i++ {
			buf.Push(i)
			if buf.Size() == 2 {
				popped = append(popped, mustPop(buf))
			}
		}
		for buf.Size() > 0 {
			popped = append(popped, mustPop(buf))
		}

		Expect(popped).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
	})

	It("should grow while keeping fifo order", func() {
		buf = NewBuffer[int]("Buf", 100)
		var popped []int

		for i := 0; i < 3; i++ {
			buf.Push(i)
		}
		popped = append(popped, mustPop(buf), mustPop(buf))

		for i := 3; i < 100; i++ {
			buf.Push(i)
		}
		Expect(buf.Size()).To(Equal(98))
		Expect(buf.Capacity()).To(Equal(100))

		for buf.Size() > 0 {
			popped = append(popped, mustPop(buf))
		}

		Expect(popped).To(HaveLen(100))
		for i, e := range popped {
			Expect(e).To(Equal(i))
		}
	})

	It("should clear", func() {
		buf.Push(2)
		Expect(buf.Size()).To(Equal(1))

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		_, ok := buf.Peek()
		Expect(ok).To(BeFalse())
	})

	It("should invoke hooks on push and pop", func() {
		var positions []*hooking.HookPos
		buf.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		buf.Push(5)
		buf.Pop()

		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosBufPush, HookPosBufPop,
		}))
	})

	It("should reject a non-positive capacity", func() {
		Expect(func() { NewBuffer[int]("Buf", 0) }).To(Panic())
	})
})
