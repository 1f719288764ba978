// Package queueing provides the FIFO storage used by sensor mailboxes.
package queueing

import (
	"log"

	"github.com/sarchlab/sensorsim/sim/hooking"
	"github.com/sarchlab/sensorsim/sim/naming"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

// A Buffer is a bounded fifo queue. A Buffer is not safe for concurrent use;
// the owner provides the locking.
type Buffer[T any] interface {
	naming.Named
	hooking.Hookable

	CanPush() bool
	Push(e T)
	Pop() (T, bool)
	Peek() (T, bool)
	Capacity() int
	Size() int

	// Remove all elements in the buffer
	Clear()
}

// NewBuffer creates a buffer that holds at most capacity elements.
func NewBuffer[T any](name string, capacity int) Buffer[T] {
	naming.NameMustBeValid(name)

	if capacity <= 0 {
		log.Panicf("buffer %s must have a positive capacity", name)
	}

	return &ringBuffer[T]{
		NamedBase: naming.MakeNamedBase(name),
		capacity:  capacity,
		elements:  make([]T, min(capacity, initialRingSize)),
	}
}

const initialRingSize = 4

// ringBuffer stores elements in a circular slice. The slice doubles when full,
// up to the capacity, and never shrinks.
type ringBuffer[T any] struct {
	hooking.HookableBase
	naming.NamedBase

	capacity int
	elements []T
	head     int
	size     int
}

func (b *ringBuffer[T]) CanPush() bool {
	return b.size < b.capacity
}

func (b *ringBuffer[T]) Push(e T) {
	if b.size >= b.capacity {
		log.Panicf("buffer %s overflow", b.Name())
	}

	if b.size == len(b.elements) {
		b.grow()
	}

	tail := (b.head + b.size) % len(b.elements)
	b.elements[tail] = e
	b.size++

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

func (b *ringBuffer[T]) grow() {
	elements := make([]T, min(2*len(b.elements), b.capacity))

	n := copy(elements, b.elements[b.head:])
	copy(elements[n:], b.elements[:b.head])

	b.elements = elements
	b.head = 0
}

func (b *ringBuffer[T]) Pop() (T, bool) {
	var zero T

	if b.size == 0 {
		return zero, false
	}

	e := b.elements[b.head]
	b.elements[b.head] = zero
	b.head = (b.head + 1) % len(b.elements)
	b.size--

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	return e, true
}

func (b *ringBuffer[T]) Peek() (T, bool) {
	if b.size == 0 {
		var zero T
		return zero, false
	}

	return b.elements[b.head], true
}

func (b *ringBuffer[T]) Capacity() int {
	return b.capacity
}

func (b *ringBuffer[T]) Size() int {
	return b.size
}

func (b *ringBuffer[T]) Clear() {
	clear(b.elements)
	b.head = 0
	b.size = 0
}
