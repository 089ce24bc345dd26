// Package app boots the kernel on a board and runs a small demonstration
// system on it: periodic, producer/consumer, priority inversion, message
// passing and keyboard threads, with a live scheduling monitor on the top of
// the screen and the system log on the bottom.
package app

import (
	"io"
	"log/slog"

	"sparkrt/hal"
	"sparkrt/internal/logging"
	"sparkrt/internal/trace"
	"sparkrt/kernel"
)

// Config selects kernel policies and host behavior for the demo system.
type Config struct {
	// Kernel is the kernel configuration. The zero value means
	// kernel.DefaultConfig.
	Kernel *kernel.Config
	// LogLevel filters the system log.
	LogLevel slog.Level
	// Window is the span of the monitor chart in ticks.
	Window kernel.Interval
	// ExitOnFault makes the step function return the kernel fault, which
	// ends the host runner. Otherwise the fault screen stays up.
	ExitOnFault bool
}

const (
	defaultWindow = 1024
	monitorHeight = 120
	framePeriod   = 100
)

type system struct {
	h   hal.HAL
	cfg Config
	k   *kernel.Kernel
	rec *trace.Recorder
	log *slog.Logger

	con *console
	mon *monitor

	faulted chan *kernel.Fault
	fault   *kernel.Fault

	demo demo
}

// New initializes the system with the default config and starts the kernel
// on its own goroutine. The returned step function reports a kernel fault.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// Run starts the system on the calling goroutine and blocks forever
// (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	RunWithConfig(h, Config{})
}

func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s := newSystem(h, cfg)
	go s.boot()
	return s.step
}

func RunWithConfig(h hal.HAL, cfg Config) {
	s := newSystem(h, cfg)
	s.boot()
	select {}
}

func newSystem(h hal.HAL, cfg Config) *system {
	if cfg.Window == 0 {
		cfg.Window = defaultWindow
	}
	s := &system{h: h, cfg: cfg, faulted: make(chan *kernel.Fault, 1)}

	var screen io.Writer = io.Discard
	if d := h.Display(); d != nil {
		if fb := d.Framebuffer(); fb != nil {
			fb.ClearRGB(0, 0, 0)
			s.mon = newMonitor(newPanel(fb, 0, monitorHeight), cfg.Window)
			s.con = newConsole(newPanel(fb, monitorHeight, fb.Height()-monitorHeight))
			screen = s.con
		}
	}
	var out io.Writer = screen
	if l := h.Logger(); l != nil {
		out = io.MultiWriter(hal.NewLineWriter(l), screen)
	}
	s.log = logging.NewLoggerWithWriter(cfg.LogLevel, logging.FormatPlain, out)

	kcfg := kernel.DefaultConfig()
	if cfg.Kernel != nil {
		kcfg = *cfg.Kernel
	}
	s.rec = trace.NewRecorder(trace.DefaultEventLimit)
	kcfg.Logger = s.log
	kcfg.Tracer = s.rec
	kcfg.OnFault = func(f kernel.Fault) { showFault(h, f) }
	s.k = kernel.New(h.Port(), kcfg)
	return s
}

// boot turns the calling goroutine into the monitor thread. It only returns
// once the kernel has halted.
func (s *system) boot() {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		f, ok := r.(*kernel.Fault)
		if !ok {
			panic(r)
		}
		s.faulted <- f
	}()

	// The demo threads are all created before any of them runs.
	s.bootStep("kernel start")
	s.k.Start("monitor", kernel.PrioHighest)
	s.bootStep("demo threads")
	if err := s.demo.start(s); err != nil {
		s.log.Error("demo start failed", "err", err)
		return
	}
	s.bootStep("running")
	s.k.SetPriority(kernel.PrioLowest)
	s.monitorLoop()
}

func (s *system) monitorLoop() {
	prev := s.k.Now()
	for {
		prev = s.k.SleepUntilWindowed(prev, prev.Add(framePeriod))
		if s.mon == nil {
			continue
		}
		s.mon.draw(s.mon.snapshot(s.rec, s.k.Now(), s.ledOn()))
		_ = s.h.Display().Framebuffer().Present()
	}
}

func (s *system) ledOn() bool {
	l, ok := s.h.LED().(hal.LevelLED)
	return ok && l.On()
}

// step is called by the host runner once per frame.
func (s *system) step() error {
	if s.fault == nil {
		select {
		case f := <-s.faulted:
			s.fault = f
		default:
		}
	}
	if s.fault != nil && s.cfg.ExitOnFault {
		return s.fault
	}
	return nil
}
