package hal

import (
	"fmt"
	"sort"

	"sparkrt/kernel"
)

// DefaultSimHorizon bounds virtual time when SimConfig.Horizon is zero.
const DefaultSimHorizon = 1 << 20

// SimConfig configures the virtual-time port.
type SimConfig struct {
	// Horizon is the last virtual tick. Advancing past it panics, which
	// turns a deadlocked system into a kernel fault instead of a hang.
	Horizon uint32
}

// HorizonError is the panic value of a simulation that ran out of time.
type HorizonError struct {
	Horizon uint32
}

func (e *HorizonError) Error() string {
	return fmt.Sprintf("sim: virtual time passed horizon of %d ticks", e.Horizon)
}

type simRaise struct {
	at   uint32
	line uint8
}

// Sim is a deterministic port. Time only advances when every thread waits:
// WaitForInterrupt latches the next tick instead of blocking, together with
// the interrupt lines scheduled for it.
//
// Sim is not safe for use by goroutines other than the running kernel thread.
type Sim struct {
	horizon uint32
	now     uint32
	masked  bool

	ticks uint32
	lines uint32

	raises []simRaise
}

var _ kernel.Port = (*Sim)(nil)

func NewSim(cfg SimConfig) *Sim {
	if cfg.Horizon == 0 {
		cfg.Horizon = DefaultSimHorizon
	}
	return &Sim{horizon: cfg.Horizon}
}

func (s *Sim) Init() {}

func (s *Sim) BootContext() kernel.Context { return newBootContext() }

func (s *Sim) NewContext(entry func()) kernel.Context { return newGoContext(entry) }

func (s *Sim) Switch(from, to kernel.Context) { switchContext(from, to) }

func (s *Sim) Exit(from, to kernel.Context) { exitContext(from, to) }

func (s *Sim) Lock() { s.masked = true }

func (s *Sim) Unlock() { s.masked = false }

// Masked reports whether interrupts are masked.
func (s *Sim) Masked() bool { return s.masked }

// Now returns the number of ticks latched so far.
func (s *Sim) Now() uint32 { return s.now }

// WaitForInterrupt returns at once if an interrupt is latched; otherwise it
// advances virtual time by one tick.
func (s *Sim) WaitForInterrupt() {
	if s.ticks != 0 || s.lines != 0 {
		return
	}
	s.advance()
}

// Tick latches n ticks.
func (s *Sim) Tick(n uint32) {
	for ; n > 0; n-- {
		s.advance()
	}
}

func (s *Sim) advance() {
	if s.now >= s.horizon {
		panic(&HorizonError{Horizon: s.horizon})
	}
	s.now++
	s.ticks++
	for len(s.raises) > 0 && s.raises[0].at <= s.now {
		s.lines |= 1 << s.raises[0].line
		s.raises = s.raises[1:]
	}
}

// Raise latches an interrupt line now.
func (s *Sim) Raise(line uint8) {
	s.lines |= 1 << (line % kernel.MaxIRQLines)
}

// RaiseAt latches line when virtual time reaches tick. Lines due in the past
// are latched at once.
func (s *Sim) RaiseAt(tick uint32, line uint8) {
	line %= kernel.MaxIRQLines
	if tick <= s.now {
		s.Raise(line)
		return
	}
	i := sort.Search(len(s.raises), func(i int) bool { return s.raises[i].at > tick })
	s.raises = append(s.raises, simRaise{})
	copy(s.raises[i+1:], s.raises[i:])
	s.raises[i] = simRaise{at: tick, line: line}
}

// Pending takes the latched ticks and lines.
func (s *Sim) Pending() (ticks uint32, lines uint32) {
	ticks, lines = s.ticks, s.lines
	s.ticks, s.lines = 0, 0
	return ticks, lines
}
