package kernel

// Per-thread event flags. Any thread or interrupt handler can set flags on a
// thread; only the thread itself waits for and clears them.

// SignalEvents sets mask on t, waking it if its wait is now satisfied.
func (k *Kernel) SignalEvents(t *Thread, mask EventMask) {
	k.Lock()
	k.SignalEventsI(t, mask)
	k.rescheduleS()
	k.Unlock()
}

// SignalEventsI is SignalEvents for interrupt handlers and locked sections.
func (k *Kernel) SignalEventsI(t *Thread, mask EventMask) {
	k.assertLocked("SignalEventsI")
	t.events |= mask
	switch {
	case t.state == StateWaitAnyEvents && t.events&t.eventsWait != 0,
		t.state == StateWaitAllEvents && t.events&t.eventsWait == t.eventsWait:
		k.wakeI(t, MsgOK)
	}
}

// WaitAnyEvents waits for at least one flag of mask. The flags of mask that
// are set are cleared and returned; zero means timeout.
func (k *Kernel) WaitAnyEvents(mask EventMask, timeout Interval) EventMask {
	k.assertThreadContext("WaitAnyEvents")
	k.Lock()
	defer k.Unlock()
	c := k.curr
	m := c.events & mask
	if m == 0 {
		if timeout == TimeImmediate {
			return 0
		}
		c.eventsWait = mask
		if k.suspendTimeoutS(StateWaitAnyEvents, timeout) != MsgOK {
			return 0
		}
		m = c.events & mask
	}
	c.events &^= m
	return m
}

// WaitAllEvents waits until every flag of mask is set, then clears them and
// returns mask. Zero means timeout.
func (k *Kernel) WaitAllEvents(mask EventMask, timeout Interval) EventMask {
	k.assertThreadContext("WaitAllEvents")
	k.Lock()
	defer k.Unlock()
	c := k.curr
	if c.events&mask != mask {
		if timeout == TimeImmediate {
			return 0
		}
		c.eventsWait = mask
		if k.suspendTimeoutS(StateWaitAllEvents, timeout) != MsgOK {
			return 0
		}
	}
	c.events &^= mask
	return mask
}

// ClearEvents clears mask from the caller's flags and returns the flags that
// were set before.
func (k *Kernel) ClearEvents(mask EventMask) EventMask {
	k.Lock()
	defer k.Unlock()
	c := k.curr
	old := c.events
	c.events &^= mask
	return old
}
