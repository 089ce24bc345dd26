// Package kernel is a preemptive, priority-based real-time scheduler with
// virtual timers and the synchronization objects built on it.
//
// All kernel state is owned by one Kernel value and only changed with the
// kernel lock held. Functions ending in I must be called with the lock held
// and never block; they are the only ones usable from interrupt handlers and
// timer callbacks. Functions ending in S are internal and may switch context.
package kernel

import (
	"log/slog"
	"math/bits"
)

// Kernel is one scheduler instance.
type Kernel struct {
	port Port
	cfg  Config
	log  *slog.Logger

	lockDepth int
	inISR     bool

	now    Tick
	timers timerList

	ready threadQueue
	curr  *Thread
	main  *Thread
	idle  *Thread

	threads []*Thread
	nextID  ThreadID

	irq       [MaxIRQLines]IRQHandler
	timeoutFn TimerFunc

	switches uint64
	fault    *Fault
}

// New returns a kernel running on port. Start must be called before any
// thread can be created.
func New(port Port, cfg Config) *Kernel {
	k := &Kernel{port: port, cfg: cfg, log: cfg.Logger}
	if k.log == nil {
		k.log = slog.New(slog.DiscardHandler)
	}
	k.timers.init()
	k.timeoutFn = k.threadTimeout
	return k
}

// Config returns the configuration the kernel was created with.
func (k *Kernel) Config() Config { return k.cfg }

// Start turns the caller into the main thread at prio and creates the idle
// thread. The main thread has no stack of its own.
func (k *Kernel) Start(name string, prio Priority) *Thread {
	if k.main != nil {
		k.halt(FaultUsage, "kernel started twice", nil)
	}
	if prio <= PrioIdle {
		k.halt(FaultUsage, "main priority out of range", nil)
	}
	k.port.Init()

	m := k.newThread(name, prio, nil)
	m.ctx = k.port.BootContext()
	m.state = StateRunning
	m.slice = k.cfg.Quantum
	k.threads = append(k.threads, m)
	k.curr, k.main = m, m
	k.traceThread(TraceCreate, m, MsgOK)

	k.idle = k.spawn(ThreadConfig{
		Name:     "idle",
		Priority: PrioIdle,
		Stack:    make([]byte, k.cfg.IdleStackSize),
		Entry:    k.idleLoop,
	})
	k.log.Info("kernel started", "main", name, "prio", prio, "quantum", k.cfg.Quantum,
		"priority_inheritance", k.cfg.PriorityInheritance)
	return m
}

func (k *Kernel) idleLoop(any) Msg {
	for {
		k.port.WaitForInterrupt()
		k.serviceInterrupts()
	}
}

// Lock enters the kernel critical section. It does not nest.
func (k *Kernel) Lock() {
	k.port.Lock()
	k.lockDepth++
	if k.cfg.Debug && k.lockDepth != 1 {
		k.halt(FaultUsage, "kernel lock taken twice", nil)
	}
}

// Unlock leaves the kernel critical section.
func (k *Kernel) Unlock() {
	if k.cfg.Debug && k.lockDepth != 1 {
		k.halt(FaultUsage, "kernel unlock without lock", nil)
	}
	k.lockDepth--
	k.port.Unlock()
}

// Now returns the system time.
func (k *Kernel) Now() Tick {
	k.Lock()
	defer k.Unlock()
	return k.now
}

// Self returns the running thread.
func (k *Kernel) Self() *Thread { return k.curr }

// Main returns the thread that called Start.
func (k *Kernel) Main() *Thread { return k.main }

// Idle returns the idle thread.
func (k *Kernel) Idle() *Thread { return k.idle }

// Switches returns the total number of context switches.
func (k *Kernel) Switches() uint64 {
	k.Lock()
	defer k.Unlock()
	return k.switches
}

// SetIRQHandler installs fn as the handler of an interrupt line. A nil fn
// removes the handler.
func (k *Kernel) SetIRQHandler(line uint8, fn IRQHandler) {
	k.Lock()
	if k.check(line < MaxIRQLines, "interrupt line out of range") {
		k.irq[line] = fn
	}
	k.Unlock()
}

// InISR reports whether the caller runs in interrupt context.
func (k *Kernel) InISR() bool { return k.inISR }

// TickI is the system tick handler: it advances time, charges the running
// thread and fires due timers.
func (k *Kernel) TickI() {
	k.assertLocked("TickI")
	k.now++
	c := k.curr
	c.runTicks++
	if c != k.idle && k.cfg.Quantum > 0 && c.slice > 0 {
		c.slice--
	}
	k.timers.tick()
}

// serviceInterrupts runs the handlers of every latched interrupt, ticks
// first, then the ISR exit hook.
func (k *Kernel) serviceInterrupts() {
	ticks, lines := k.port.Pending()
	if ticks == 0 && lines == 0 {
		return
	}
	k.Lock()
	k.inISR = true
	for ; ticks > 0; ticks-- {
		k.TickI()
	}
	for lines != 0 {
		line := uint8(bits.TrailingZeros32(lines))
		lines &^= 1 << line
		k.trace(TraceEvent{Kind: TraceIRQ, Thread: k.curr.id, Name: k.curr.name, Line: line})
		if h := k.irq[line]; h != nil {
			h(k)
		}
	}
	k.inISR = false
	k.isrExitS()
	k.Unlock()
}

// Poll services latched interrupts on the calling thread.
func (k *Kernel) Poll() {
	k.assertThreadContext("Poll")
	k.serviceInterrupts()
}

// Spin keeps the calling thread busy for n ticks. Interrupts are serviced
// while spinning, so the thread can be preempted.
func (k *Kernel) Spin(n Interval) {
	k.assertThreadContext("Spin")
	start := k.Now()
	for k.Now().Since(start) < n {
		k.port.WaitForInterrupt()
		k.serviceInterrupts()
	}
}

// Link helpers. The queue tag on the thread makes double insertion and
// removal from the wrong queue detectable.

func (k *Kernel) link(q *threadQueue, t *Thread) {
	k.invariant(t.queue == nil, "thread already queued")
	q.insert(t)
}

func (k *Kernel) unlink(t *Thread) {
	k.invariant(t.queue != nil, "thread not queued")
	t.queue.remove(t)
}
