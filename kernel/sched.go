package kernel

// readyI puts t at the tail of its priority band in the ready queue.
func (k *Kernel) readyI(t *Thread) {
	k.invariant(t.queue == nil, "readying a queued thread")
	k.invariant(t.state != StateTerminated, "readying a terminated thread")
	t.state = StateReady
	k.ready.insert(t)
	k.traceThread(TraceReady, t, t.wakeMsg)
}

// readyAheadI puts t at the head of its priority band.
func (k *Kernel) readyAheadI(t *Thread) {
	k.invariant(t.queue == nil, "readying a queued thread")
	t.state = StateReady
	k.ready.insertAhead(t)
	k.traceThread(TraceReady, t, t.wakeMsg)
}

// wakeI readies a blocked thread with msg as the result of its wait. The
// caller has already taken t off its wait queue. A pending timeout is
// cancelled, so the thread sees exactly one outcome.
func (k *Kernel) wakeI(t *Thread, msg Msg) {
	k.invariant(t != nil, "waking a nil thread")
	if t.timeout.Armed() {
		k.timers.remove(&t.timeout)
		t.timeout.fn, t.timeout.arg = nil, nil
	}
	t.wakeMsg = msg
	t.waitObj = nil
	k.readyI(t)
}

// suspendS blocks the running thread in state and returns its wake message.
func (k *Kernel) suspendS(state State) Msg {
	c := k.curr
	c.state = state
	k.switchTo(c, k.ready.popFront())
	return c.wakeMsg
}

// suspendTimeoutS is suspendS with a timeout. TimeImmediate must be handled by
// the caller.
func (k *Kernel) suspendTimeoutS(state State, timeout Interval) Msg {
	k.invariant(timeout != TimeImmediate, "immediate timeout reached suspend")
	if timeout != TimeInfinite {
		c := k.curr
		c.timeout.fn, c.timeout.arg = k.timeoutFn, c
		k.timers.insert(&c.timeout, timeout)
	}
	return k.suspendS(state)
}

func (k *Kernel) threadTimeout(arg any) {
	k.timeoutI(arg.(*Thread))
}

// timeoutI takes a thread whose wait timed out off whatever it waits on and
// readies it with MsgTimeout.
func (k *Kernel) timeoutI(t *Thread) {
	switch t.state {
	case StateWaitSemaphore:
		t.waitObj.(*Semaphore).count++
		k.unlink(t)
	case StateWaitMutex:
		m := t.waitObj.(*Mutex)
		k.unlink(t)
		k.updatePriorityI(m.owner)
	case StateSendQueued, StateWaitEventSource:
		k.unlink(t)
	}
	t.wakeMsg = MsgTimeout
	t.waitObj = nil
	k.traceThread(TraceTimeout, t, MsgTimeout)
	k.readyI(t)
}

// switchTo makes next the running thread. old must already be out of the
// running state. It returns when old is resumed.
func (k *Kernel) switchTo(old, next *Thread) {
	k.invariant(next != nil, "ready queue empty")
	if old.state != StateTerminated {
		// exitS checks a terminating thread before its stack is reclaimed.
		k.checkStack(old)
	}
	next.state = StateRunning
	next.slice = k.cfg.Quantum
	next.switches++
	k.switches++
	k.curr = next
	k.trace(TraceEvent{
		Kind:   TraceSwitch,
		Thread: next.id,
		Name:   next.name,
		Prio:   next.prio,
		Prev:   old.id,
		State:  old.state,
	})
	if old.state == StateTerminated {
		k.port.Exit(old.ctx, next.ctx)
		return
	}
	k.port.Switch(old.ctx, next.ctx)
	if k.fault != nil {
		// Resumed by a faulted thread: the lock is ours again.
		k.lockDepth = 1
		panic(k.fault)
	}
}

// preemptS puts the running thread back in the ready queue, at the head of
// its band when ahead is set, and switches to the ready head.
func (k *Kernel) preemptS(ahead bool) {
	c := k.curr
	next := k.ready.popFront()
	if ahead {
		k.readyAheadI(c)
	} else {
		k.readyI(c)
	}
	k.switchTo(c, next)
}

// preemptionRequiredI reports whether the ready head should replace the
// running thread. Equal priority only counts once the quantum ran out.
func (k *Kernel) preemptionRequiredI() bool {
	p := k.ready.headPrio()
	c := k.curr
	if k.cfg.Quantum > 0 && c.slice == 0 {
		return p >= c.prio
	}
	return p > c.prio
}

// isrExitS is the interrupt exit hook: preemption requested while in
// interrupt context happens here.
func (k *Kernel) isrExitS() {
	if k.preemptionRequiredI() {
		exhausted := k.cfg.Quantum > 0 && k.curr.slice == 0
		k.preemptS(!exhausted)
	}
}

// rescheduleS switches to the ready head if it outranks the running thread.
// In interrupt context the decision is left to the exit hook.
func (k *Kernel) rescheduleS() {
	if k.inISR {
		return
	}
	if k.ready.headPrio() > k.curr.prio {
		k.preemptS(true)
	}
}

// Reschedule runs a higher-priority ready thread, if any.
func (k *Kernel) Reschedule() {
	k.Lock()
	k.rescheduleS()
	k.Unlock()
}

// Yield services pending interrupts and then gives the processor to the next
// ready thread of equal or higher priority.
func (k *Kernel) Yield() {
	k.assertThreadContext("Yield")
	k.serviceInterrupts()
	k.Lock()
	if k.ready.headPrio() >= k.curr.prio {
		k.preemptS(false)
	}
	k.Unlock()
}

// updatePriorityI recomputes the effective priority of t and follows the chain
// of mutex owners while it changes.
func (k *Kernel) updatePriorityI(t *Thread) {
	for t != nil {
		p := t.basePrio
		if k.cfg.PriorityInheritance {
			for m := t.held; m != nil; m = m.nextHeld {
				if hp := m.waiters.headPrio(); hp > p {
					p = hp
				}
			}
		}
		if p == t.prio {
			return
		}
		t.prio = p
		switch {
		case t.state == StateReady:
			k.ready.remove(t)
			k.ready.insert(t)
		case t.queue != nil && !t.queue.fifo:
			q := t.queue
			q.remove(t)
			q.insert(t)
		}
		if t.state != StateWaitMutex {
			return
		}
		t = t.waitObj.(*Mutex).owner
	}
}

// Sleep suspends the calling thread for n ticks. Sleep(0) yields.
func (k *Kernel) Sleep(n Interval) {
	if n == TimeImmediate {
		k.Yield()
		return
	}
	k.assertThreadContext("Sleep")
	k.Lock()
	k.suspendTimeoutS(StateSleeping, n)
	k.Unlock()
}

// SleepUntil suspends the calling thread until the system time reaches t.
// It returns at once when t is now.
func (k *Kernel) SleepUntil(t Tick) {
	k.assertThreadContext("SleepUntil")
	k.Lock()
	if d := t.Since(k.now); d != 0 {
		if d == TimeInfinite {
			d--
		}
		k.suspendTimeoutS(StateSleeping, d)
	}
	k.Unlock()
}

// SleepUntilWindowed sleeps until next if the system time is still inside
// [prev, next), and returns next. It is meant for periodic loops:
//
//	prev := k.Now()
//	for {
//		prev = k.SleepUntilWindowed(prev, prev.Add(period))
//		...
//	}
func (k *Kernel) SleepUntilWindowed(prev, next Tick) Tick {
	k.assertThreadContext("SleepUntilWindowed")
	k.Lock()
	if TimeWithin(k.now, prev, next) {
		k.suspendTimeoutS(StateSleeping, next.Since(k.now))
	}
	k.Unlock()
	return next
}
