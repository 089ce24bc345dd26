package kernel

// Mutex is a recursive mutex with optional priority inheritance. Waiters are
// queued by priority.
type Mutex struct {
	k       *Kernel
	owner   *Thread
	count   int
	waiters threadQueue

	// nextHeld chains the mutexes held by the owner.
	nextHeld *Mutex
}

// NewMutex returns an unlocked mutex.
func NewMutex(k *Kernel) *Mutex {
	m := &Mutex{}
	m.Init(k)
	return m
}

// Init sets up an unlocked mutex.
func (m *Mutex) Init(k *Kernel) {
	*m = Mutex{k: k}
}

// Owner returns the thread holding m, or nil.
func (m *Mutex) Owner() *Thread {
	m.k.Lock()
	defer m.k.Unlock()
	return m.owner
}

// Lock acquires m, blocking as long as needed. A thread may lock a mutex it
// already holds; each Lock needs its own Unlock.
func (m *Mutex) Lock() { m.LockTimeout(TimeInfinite) }

// LockTimeout acquires m within timeout ticks. It returns MsgOK or MsgTimeout.
func (m *Mutex) LockTimeout(timeout Interval) Msg {
	k := m.k
	k.assertThreadContext("Mutex.Lock")
	k.Lock()
	msg := m.lockS(timeout)
	k.Unlock()
	return msg
}

func (m *Mutex) lockS(timeout Interval) Msg {
	k := m.k
	c := k.curr
	switch {
	case m.owner == nil:
		m.acquireI(c)
		return MsgOK
	case m.owner == c:
		m.count++
		return MsgOK
	case timeout == TimeImmediate:
		return MsgTimeout
	}
	c.waitObj = m
	k.link(&m.waiters, c)
	k.updatePriorityI(m.owner)
	// Ownership is handed over by Unlock before the waiter is woken.
	return k.suspendTimeoutS(StateWaitMutex, timeout)
}

// TryLock acquires m only if that needs no waiting.
func (m *Mutex) TryLock() bool {
	k := m.k
	k.Lock()
	ok := m.lockS(TimeImmediate) == MsgOK
	k.Unlock()
	return ok
}

func (m *Mutex) acquireI(t *Thread) {
	m.owner = t
	m.count = 1
	m.nextHeld = t.held
	t.held = m
}

// Unlock releases one level of m. On the last level the highest-priority
// waiter becomes the owner. Mutexes may be unlocked in any order.
func (m *Mutex) Unlock() {
	k := m.k
	k.Lock()
	m.unlockI()
	k.rescheduleS()
	k.Unlock()
}

func (m *Mutex) unlockI() {
	k := m.k
	c := k.curr
	if !k.check(m.owner == c, "mutex not owned by caller") {
		return
	}
	m.count--
	if m.count > 0 {
		return
	}
	m.releaseI(c)
}

// releaseI drops ownership of m by t entirely.
func (m *Mutex) releaseI(t *Thread) {
	k := m.k
	for p := &t.held; *p != nil; p = &(*p).nextHeld {
		if *p == m {
			*p = m.nextHeld
			break
		}
	}
	m.nextHeld = nil
	m.owner = nil
	m.count = 0
	k.updatePriorityI(t)

	if w := m.waiters.popFront(); w != nil {
		m.acquireI(w)
		k.wakeI(w, MsgOK)
		k.updatePriorityI(w)
	}
}

// UnlockAll releases every mutex held by the calling thread, whatever its
// lock depth.
func (k *Kernel) UnlockAll() {
	k.Lock()
	c := k.curr
	for c.held != nil {
		c.held.releaseI(c)
	}
	k.rescheduleS()
	k.Unlock()
}
