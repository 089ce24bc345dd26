package kernel

// Semaphore is a counting semaphore. A negative count is the number of
// waiting threads.
type Semaphore struct {
	k       *Kernel
	count   int32
	waiters threadQueue
}

// NewSemaphore returns a semaphore with count n.
func NewSemaphore(k *Kernel, n int32) *Semaphore {
	s := &Semaphore{}
	s.Init(k, n)
	return s
}

// Init sets up s with count n. It must not be called on a semaphore that has
// waiters.
func (s *Semaphore) Init(k *Kernel, n int32) {
	if n < 0 {
		k.halt(FaultUsage, "negative semaphore count", nil)
	}
	s.k = k
	s.count = n
	s.waiters = threadQueue{}
}

// Count returns the current counter.
func (s *Semaphore) Count() int32 {
	s.k.Lock()
	defer s.k.Unlock()
	return s.count
}

// Wait takes one unit, blocking as long as needed.
func (s *Semaphore) Wait() Msg { return s.WaitTimeout(TimeInfinite) }

// WaitTimeout takes one unit. It returns MsgOK on success, MsgTimeout if
// timeout ticks passed first (at once with TimeImmediate) and MsgReset if the
// semaphore was reset.
func (s *Semaphore) WaitTimeout(timeout Interval) Msg {
	k := s.k
	k.assertThreadContext("Semaphore.Wait")
	k.Lock()
	msg := s.waitTimeoutS(timeout)
	k.Unlock()
	return msg
}

func (s *Semaphore) waitTimeoutS(timeout Interval) Msg {
	s.count--
	if s.count >= 0 {
		return MsgOK
	}
	if timeout == TimeImmediate {
		s.count++
		return MsgTimeout
	}
	c := s.k.curr
	c.waitObj = s
	s.k.link(&s.waiters, c)
	return s.k.suspendTimeoutS(StateWaitSemaphore, timeout)
}

// Signal releases one unit, waking the first waiter if there is one.
func (s *Semaphore) Signal() {
	k := s.k
	k.Lock()
	s.SignalI()
	k.rescheduleS()
	k.Unlock()
}

// SignalI is Signal for interrupt handlers and locked sections.
func (s *Semaphore) SignalI() {
	s.k.assertLocked("Semaphore.SignalI")
	s.count++
	if s.count <= 0 {
		t := s.waiters.popFront()
		s.k.invariant(t != nil, "semaphore count below zero without waiters")
		s.k.wakeI(t, MsgOK)
	}
}

// Reset wakes every waiter with MsgReset and sets the count to n.
func (s *Semaphore) Reset(n int32) {
	k := s.k
	k.Lock()
	s.ResetI(n)
	k.rescheduleS()
	k.Unlock()
}

// ResetI is Reset for interrupt handlers and locked sections.
func (s *Semaphore) ResetI(n int32) {
	s.k.assertLocked("Semaphore.ResetI")
	if !s.k.check(n >= 0, "negative semaphore count") {
		return
	}
	for t := s.waiters.popFront(); t != nil; t = s.waiters.popFront() {
		s.k.wakeI(t, MsgReset)
	}
	s.count = n
}

// SignalWait signals one semaphore and waits on another in one atomic step.
func SignalWait(signal, wait *Semaphore) Msg {
	k := signal.k
	k.assertThreadContext("SignalWait")
	k.Lock()
	signal.SignalI()
	wait.count--
	if wait.count >= 0 {
		k.rescheduleS()
		k.Unlock()
		return MsgOK
	}
	c := k.curr
	c.waitObj = wait
	k.link(&wait.waiters, c)
	msg := k.suspendS(StateWaitSemaphore)
	k.Unlock()
	return msg
}
