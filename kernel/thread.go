package kernel

import "errors"

// ThreadID identifies a thread for the lifetime of a kernel.
type ThreadID uint32

// ThreadFunc is a thread entry point. Its return value is the exit code.
type ThreadFunc func(arg any) Msg

// ThreadConfig describes a thread to create.
type ThreadConfig struct {
	Name     string
	Priority Priority
	// Stack is the working area. It stays owned by the caller and must not
	// be reused until the thread has been joined or released.
	Stack []byte
	Entry ThreadFunc
	Arg   any
	// Reclaim, if set, is called with Stack once the thread is terminated
	// and no longer referenced. It runs with the kernel lock held.
	Reclaim func(stack []byte)
}

var (
	ErrNotStarted    = errors.New("kernel not started")
	ErrNoEntry       = errors.New("thread has no entry function")
	ErrBadPriority   = errors.New("thread priority out of range")
	ErrStackTooSmall = errors.New("thread stack too small")
	ErrCreateFromISR = errors.New("thread created from interrupt context")
	ErrKernelHalted  = errors.New("kernel halted")
)

const stackGuardPattern = 0xA5

// Thread is a schedulable unit. A thread is in at most one queue at a time:
// the ready queue, exactly one wait queue, or none while running or blocked
// on a queue-less condition.
type Thread struct {
	next, prev *Thread
	queue      *threadQueue

	k        *Kernel
	id       ThreadID
	name     string
	prio     Priority
	basePrio Priority
	state    State
	ctx      Context
	stack    []byte
	entry    ThreadFunc
	arg      any
	reclaim  func([]byte)

	wakeMsg Msg
	waitObj any
	timeout Timer
	slice   Interval

	refs      int
	terminate bool
	exitCode  Msg
	joiners   threadQueue

	// held is the most recently acquired mutex still owned, chained through
	// Mutex.nextHeld.
	held *Mutex

	senders threadQueue
	payload any

	events     EventMask
	eventsWait EventMask
	delivered  EventMask

	runTicks uint64
	switches uint64
}

func (t *Thread) ID() ThreadID { return t.id }

func (t *Thread) Name() string { return t.name }

// Priority returns the effective priority, including any inherited boost.
func (t *Thread) Priority() Priority { return t.prio }

// BasePriority returns the priority set by the thread itself.
func (t *Thread) BasePriority() Priority { return t.basePrio }

func (t *Thread) State() State { return t.state }

// Stack returns the working area supplied at creation.
func (t *Thread) Stack() []byte { return t.stack }

// RunTicks returns the number of ticks that elapsed while t was running.
func (t *Thread) RunTicks() uint64 { return t.runTicks }

// Switches returns how many times t was switched in.
func (t *Thread) Switches() uint64 { return t.switches }

// ExitCode returns the exit code of a terminated thread.
func (t *Thread) ExitCode() Msg { return t.exitCode }

// Terminate asks t to exit. The thread polls the request with
// ShouldTerminate; nothing is forced.
func (t *Thread) Terminate() {
	t.k.Lock()
	t.terminate = true
	t.k.Unlock()
}

// ShouldTerminate reports whether Terminate was called on t.
func (t *Thread) ShouldTerminate() bool {
	t.k.Lock()
	defer t.k.Unlock()
	return t.terminate
}

func (k *Kernel) newThread(name string, prio Priority, stack []byte) *Thread {
	k.nextID++
	t := &Thread{
		k:        k,
		id:       k.nextID,
		name:     name,
		prio:     prio,
		basePrio: prio,
		stack:    stack,
		refs:     1,
	}
	t.joiners.fifo = true
	t.senders.fifo = !k.cfg.MessagesByPriority
	return t
}

// Create makes a new thread and readies it. The caller holds one reference
// to the returned thread, dropped by Join or Release.
//
// If the new thread outranks the caller it runs before Create returns.
func (k *Kernel) Create(cfg ThreadConfig) (*Thread, error) {
	switch {
	case k.Halted():
		return nil, ErrKernelHalted
	case k.curr == nil:
		return nil, ErrNotStarted
	case k.inISR:
		return nil, ErrCreateFromISR
	case cfg.Entry == nil:
		return nil, ErrNoEntry
	case cfg.Priority <= PrioIdle:
		return nil, ErrBadPriority
	case len(cfg.Stack) < k.cfg.MinStackSize || len(cfg.Stack) <= k.cfg.StackGuard:
		return nil, ErrStackTooSmall
	}
	t := k.spawn(cfg)
	k.log.Debug("thread created", "thread", t.name, "id", t.id, "prio", t.prio, "stack", len(t.stack))
	return t, nil
}

func (k *Kernel) spawn(cfg ThreadConfig) *Thread {
	t := k.newThread(cfg.Name, cfg.Priority, cfg.Stack)
	t.entry, t.arg, t.reclaim = cfg.Entry, cfg.Arg, cfg.Reclaim
	for i := 0; i < k.cfg.StackGuard; i++ {
		t.stack[i] = stackGuardPattern
	}
	t.ctx = k.port.NewContext(func() { k.threadStart(t) })

	k.Lock()
	k.threads = append(k.threads, t)
	k.traceThread(TraceCreate, t, MsgOK)
	k.readyI(t)
	k.rescheduleS()
	k.Unlock()
	return t
}

// threadStart is the first code run on a new context. The switch that got
// here left the lock held.
func (k *Kernel) threadStart(t *Thread) {
	k.Unlock()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		f, ok := r.(*Fault)
		if !ok {
			f = k.record(FaultThreadPanic, "thread panicked", r)
		}
		k.abandon(t, f)
	}()
	code := t.entry(t.arg)
	k.Exit(code)
}

// Exit terminates the calling thread with code. Joiners are woken with the
// code. Exit does not return.
func (k *Kernel) Exit(code Msg) {
	k.assertThreadContext("Exit")
	t := k.curr
	k.log.Debug("thread exit", "thread", t.name, "code", code.String())
	k.Lock()
	if !k.exitS(code) {
		k.Unlock()
	}
}

// exitS terminates the current thread. It only returns, false, when the
// caller may not exit.
func (k *Kernel) exitS(code Msg) bool {
	t := k.curr
	if !k.check(t != k.idle, "idle thread cannot exit") {
		return false
	}
	k.check(t.held == nil, "thread exits holding mutexes")

	t.exitCode = code
	for j := t.joiners.popFront(); j != nil; j = t.joiners.popFront() {
		k.wakeI(j, code)
	}
	for s := t.senders.popFront(); s != nil; s = t.senders.popFront() {
		k.wakeI(s, MsgReset)
	}
	// Messages taken but never released.
	for _, s := range k.threads {
		if s.state == StateWaitReply && s.waitObj == t {
			k.wakeI(s, MsgReset)
		}
	}
	k.checkStack(t)
	t.state = StateTerminated
	k.traceThread(TraceExit, t, code)
	if t.refs == 0 {
		k.reclaimI(t)
	}
	k.switchTo(t, k.ready.popFront())
	return true
}

// Join waits for t to terminate, drops the caller's reference and returns the
// exit code.
func (k *Kernel) Join(t *Thread) Msg {
	k.assertThreadContext("Join")
	k.Lock()
	if !k.check(t != k.curr, "thread joins itself") || !k.check(t.refs > 0, "join of released thread") {
		k.Unlock()
		return MsgReset
	}
	if t.state != StateTerminated {
		c := k.curr
		c.waitObj = t
		k.link(&t.joiners, c)
		k.suspendS(StateWaitJoin)
	}
	code := t.exitCode
	// Another joiner may have dropped the last reference while we waited.
	if t.refs > 0 {
		k.releaseI(t)
	}
	k.Unlock()
	k.log.Debug("thread joined", "thread", t.name, "code", code.String())
	return code
}

// Release drops a reference to t without waiting for it.
func (k *Kernel) Release(t *Thread) {
	k.Lock()
	if k.check(t.refs > 0, "release of released thread") {
		k.releaseI(t)
	}
	k.Unlock()
}

func (k *Kernel) releaseI(t *Thread) {
	t.refs--
	if t.refs == 0 && t.state == StateTerminated {
		k.reclaimI(t)
	}
}

func (k *Kernel) reclaimI(t *Thread) {
	for i, r := range k.threads {
		if r == t {
			k.threads = append(k.threads[:i], k.threads[i+1:]...)
			break
		}
	}
	if t.reclaim != nil {
		t.reclaim(t.stack)
	}
}

// Threads returns the threads that have not been reclaimed, in creation order.
func (k *Kernel) Threads() []*Thread {
	k.Lock()
	defer k.Unlock()
	out := make([]*Thread, len(k.threads))
	copy(out, k.threads)
	return out
}

// SetPriority changes the base priority of the calling thread and returns the
// previous one. An inherited boost stays in effect until released.
func (k *Kernel) SetPriority(p Priority) Priority {
	k.Lock()
	c := k.curr
	old := c.basePrio
	if k.check(p > PrioIdle || c == k.idle, "priority out of range") {
		c.basePrio = p
		k.updatePriorityI(c)
		k.rescheduleS()
	}
	k.Unlock()
	return old
}

// checkStack verifies the guard of t's working area.
func (k *Kernel) checkStack(t *Thread) {
	if t.stack == nil {
		return
	}
	for i := 0; i < k.cfg.StackGuard && i < len(t.stack); i++ {
		if t.stack[i] != stackGuardPattern {
			k.halt(FaultStackGuard, "stack guard of "+t.name+" overwritten", nil)
		}
	}
}
