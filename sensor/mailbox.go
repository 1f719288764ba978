package sensor

import (
	"log"
	"sync"

	"github.com/sarchlab/sensorsim/sim/hooking"
	"github.com/sarchlab/sensorsim/sim/naming"
	"github.com/sarchlab/sensorsim/sim/queueing"
)

// HookPosMailboxPush marks when a message is pushed into a mailbox.
var HookPosMailboxPush = &hooking.HookPos{Name: "Mailbox Push"}

// HookPosMailboxPop marks when a sensor takes a message out of its mailbox.
var HookPosMailboxPop = &hooking.HookPos{Name: "Mailbox Pop"}

// recvNotifier is told after a message lands in a mailbox.
type recvNotifier interface {
	NotifyRecv()
}

// A Mailbox is the incoming queue of a sensor. Any sensor can push into it;
// only the owner takes messages out.
//
// The mailbox is a monitor: lock guards the queue and the closed flags, and
// arrived is signalled whenever a message is pushed or the mailbox closes.
type Mailbox struct {
	hooking.HookableBase
	naming.NamedBase

	lock    sync.Mutex
	arrived *sync.Cond
	buf     queueing.Buffer[*Msg]
	closed  bool
	aborted bool

	owner recvNotifier
}

// NewMailbox creates a mailbox. The capacity must cover every message that can
// be in flight, which is the number of nodes.
func NewMailbox(name string, capacity int) *Mailbox {
	m := &Mailbox{
		NamedBase: naming.MakeNamedBase(name),
		buf: queueing.NewBuffer[*Msg](
			naming.BuildName(name, "Buffer"), capacity),
	}
	m.arrived = sync.NewCond(&m.lock)

	return m
}

// Push appends a message and wakes the owner. The push hooks run before the
// message enters the queue, while the pusher still owns it.
func (m *Mailbox) Push(msg *Msg) {
	if m.NumHooks() > 0 {
		m.InvokeHook(hooking.HookCtx{
			Domain: m,
			Pos:    HookPosMailboxPush,
			Item:   msg,
		})
	}

	m.lock.Lock()

	if m.aborted {
		m.lock.Unlock()
		return
	}

	if m.closed {
		m.lock.Unlock()
		log.Panicf("%s: push into a closed mailbox", m.Name())
	}

	m.buf.Push(msg)
	m.lock.Unlock()

	m.arrived.Signal()

	if m.owner != nil {
		m.owner.NotifyRecv()
	}
}

// Receive blocks until a message is available or the mailbox is closed. It
// returns false once the mailbox is closed and empty, or aborted.
func (m *Mailbox) Receive() (*Msg, bool) {
	m.lock.Lock()

	for m.buf.Size() == 0 && !m.closed {
		m.arrived.Wait()
	}

	msg, ok := m.popLocked()
	m.lock.Unlock()

	m.invokePopHook(msg, ok)

	return msg, ok
}

// TryReceive takes a message if one is available, without blocking.
func (m *Mailbox) TryReceive() (*Msg, bool) {
	m.lock.Lock()
	msg, ok := m.popLocked()
	m.lock.Unlock()

	m.invokePopHook(msg, ok)

	return msg, ok
}

func (m *Mailbox) popLocked() (*Msg, bool) {
	if m.aborted {
		return nil, false
	}

	return m.buf.Pop()
}

func (m *Mailbox) invokePopHook(msg *Msg, ok bool) {
	if !ok || m.NumHooks() == 0 {
		return
	}

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosMailboxPop,
		Item:   msg,
	})
}

// Close wakes the owner for good. The owner still drains the messages left
// in the mailbox before Receive reports the end.
func (m *Mailbox) Close() {
	m.lock.Lock()
	m.closed = true
	m.lock.Unlock()

	m.arrived.Broadcast()
}

// Abort closes the mailbox and discards whatever it holds. Later pushes are
// dropped.
func (m *Mailbox) Abort() {
	m.lock.Lock()
	m.closed = true
	m.aborted = true
	m.buf.Clear()
	m.lock.Unlock()

	m.arrived.Broadcast()
}

// Size returns the number of messages waiting in the mailbox.
func (m *Mailbox) Size() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.buf.Size()
}

// Capacity returns the number of messages the mailbox can hold.
func (m *Mailbox) Capacity() int {
	return m.buf.Capacity()
}

// IsClosed tells whether Close or Abort has been called.
func (m *Mailbox) IsClosed() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.closed
}
