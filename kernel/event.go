package kernel

// EventSource broadcasts event flags to the threads waiting on it. Flags that
// no waiter is interested in stay pending on the source until a waiter
// consumes them.
type EventSource struct {
	k       *Kernel
	pending EventMask
	waiters threadQueue
}

// NewEventSource returns an event source with no pending flags.
func NewEventSource(k *Kernel) *EventSource {
	e := &EventSource{}
	e.Init(k)
	return e
}

func (e *EventSource) Init(k *Kernel) {
	*e = EventSource{k: k}
}

// Pending returns the flags broadcast but not yet consumed.
func (e *EventSource) Pending() EventMask {
	e.k.Lock()
	defer e.k.Unlock()
	return e.pending
}

// Wait returns the flags in interest that were pending or get broadcast
// within timeout ticks. Returned flags are consumed.
func (e *EventSource) Wait(interest EventMask, timeout Interval) (EventMask, Msg) {
	k := e.k
	k.assertThreadContext("EventSource.Wait")
	k.Lock()
	defer k.Unlock()
	if !k.check(interest != 0, "empty event interest") {
		return 0, MsgTimeout
	}
	if m := e.pending & interest; m != 0 {
		e.pending &^= m
		return m, MsgOK
	}
	if timeout == TimeImmediate {
		return 0, MsgTimeout
	}
	c := k.curr
	c.eventsWait = interest
	c.delivered = 0
	c.waitObj = e
	k.link(&e.waiters, c)
	msg := k.suspendTimeoutS(StateWaitEventSource, timeout)
	return c.delivered, msg
}

// Broadcast delivers mask to every waiter whose interest intersects it.
func (e *EventSource) Broadcast(mask EventMask) {
	k := e.k
	k.Lock()
	e.BroadcastI(mask)
	k.rescheduleS()
	k.Unlock()
}

// BroadcastI is Broadcast for interrupt handlers and locked sections.
func (e *EventSource) BroadcastI(mask EventMask) {
	k := e.k
	k.assertLocked("EventSource.BroadcastI")
	left := mask
	for t := e.waiters.first; t != nil; {
		next := t.next
		if m := t.eventsWait & mask; m != 0 {
			t.delivered = m
			left &^= m
			k.unlink(t)
			k.wakeI(t, MsgOK)
		}
		t = next
	}
	e.pending |= left
}

// Reset wakes every waiter with MsgReset and drops the pending flags.
func (e *EventSource) Reset() {
	k := e.k
	k.Lock()
	for t := e.waiters.popFront(); t != nil; t = e.waiters.popFront() {
		k.wakeI(t, MsgReset)
	}
	e.pending = 0
	k.rescheduleS()
	k.Unlock()
}
