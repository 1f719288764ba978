package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	calls []HookCtx
}

func (h *countingHook) Func(ctx HookCtx) {
	h.calls = append(h.calls, ctx)
}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  *HookPos
	)

	BeforeEach(func() {
		base = &HookableBase{}
		pos = &HookPos{Name: "Test"}
	})

	It("should invoke every registered hook in order", func() {
		var order []string
		first := HookFunc(func(HookCtx) { order = append(order, "first") })
		second := &countingHook{}

		base.AcceptHook(first)
		base.AcceptHook(second)
		base.InvokeHook(HookCtx{Pos: pos, Item: 42})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(order).To(Equal([]string{"first"}))
		Expect(second.calls).To(HaveLen(1))
		Expect(second.calls[0].Item).To(Equal(42))
		Expect(second.calls[0].Pos).To(BeIdenticalTo(pos))
	})

	It("should reject a hook registered twice", func() {
		hook := &countingHook{}
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})

	It("should not call anything when no hook is registered", func() {
		Expect(func() { base.InvokeHook(HookCtx{Pos: pos}) }).NotTo(Panic())
		Expect(base.Hooks()).To(BeEmpty())
	})
})
