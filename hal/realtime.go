package hal

import (
	"sync"
	"sync/atomic"
	"time"

	"sparkrt/kernel"
)

// RealTimeConfig configures the wall-clock port.
type RealTimeConfig struct {
	// Tick is the duration of one kernel tick. Defaults to one millisecond.
	Tick time.Duration
	// Manual disables the internal ticker; the owner calls Step instead,
	// e.g. once per window frame.
	Manual bool
}

// RealTime is a port driven by wall-clock time. Ticks and interrupt lines are
// latched from any goroutine and serviced by the kernel at its next
// interrupt window.
type RealTime struct {
	tick   time.Duration
	manual bool
	clock  func() time.Time

	mu    sync.Mutex
	ticks uint32
	lines uint32
	last  time.Time
	acc   time.Duration

	wake   chan struct{}
	stop   chan struct{}
	once   sync.Once
	masked atomic.Bool
}

var _ kernel.Port = (*RealTime)(nil)

func NewRealTime(cfg RealTimeConfig) *RealTime {
	return newRealTimeWithClock(cfg, time.Now)
}

func newRealTimeWithClock(cfg RealTimeConfig, clock func() time.Time) *RealTime {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Millisecond
	}
	return &RealTime{
		tick:   cfg.Tick,
		manual: cfg.Manual,
		clock:  clock,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

// Init starts the ticker unless the port is stepped manually.
func (r *RealTime) Init() {
	if r.manual {
		return
	}
	go func() {
		t := time.NewTicker(r.tick)
		defer t.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-t.C:
				r.Step()
			}
		}
	}()
}

// Close stops the ticker.
func (r *RealTime) Close() {
	r.once.Do(func() { close(r.stop) })
}

func (r *RealTime) BootContext() kernel.Context { return newBootContext() }

func (r *RealTime) NewContext(entry func()) kernel.Context { return newGoContext(entry) }

func (r *RealTime) Switch(from, to kernel.Context) { switchContext(from, to) }

func (r *RealTime) Exit(from, to kernel.Context) { exitContext(from, to) }

func (r *RealTime) Lock() { r.masked.Store(true) }

func (r *RealTime) Unlock() { r.masked.Store(false) }

// Step latches the ticks that elapsed on the wall clock since the previous
// step. The remainder below one tick is carried over.
func (r *RealTime) Step() {
	now := r.clock()
	r.mu.Lock()
	if r.last.IsZero() {
		r.last = now
		r.acc = 0
		r.mu.Unlock()
		r.latch(1, 0)
		return
	}
	r.acc += now.Sub(r.last)
	r.last = now
	n := uint32(r.acc / r.tick)
	r.acc %= r.tick
	r.mu.Unlock()
	if n > 0 {
		r.latch(n, 0)
	}
}

// Raise latches an interrupt line.
func (r *RealTime) Raise(line uint8) {
	r.latch(0, 1<<(line%kernel.MaxIRQLines))
}

func (r *RealTime) latch(ticks, lines uint32) {
	r.mu.Lock()
	r.ticks += ticks
	r.lines |= lines
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// WaitForInterrupt blocks until a tick or a line is latched.
func (r *RealTime) WaitForInterrupt() {
	for {
		r.mu.Lock()
		pending := r.ticks != 0 || r.lines != 0
		r.mu.Unlock()
		if pending {
			return
		}
		<-r.wake
	}
}

func (r *RealTime) Pending() (ticks uint32, lines uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticks, lines = r.ticks, r.lines
	r.ticks, r.lines = 0, 0
	return ticks, lines
}
