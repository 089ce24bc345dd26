package kernel_test

import (
	"testing"

	"sparkrt/hal"
	"sparkrt/kernel"
)

// newKernel starts a kernel on a simulated port. The test goroutine becomes
// the main thread at prio.
func newKernel(t *testing.T, prio kernel.Priority, opts ...func(*kernel.Config)) (*kernel.Kernel, *hal.Sim) {
	t.Helper()
	sim := hal.NewSim(hal.SimConfig{Horizon: 10_000})
	cfg := kernel.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	k := kernel.New(sim, cfg)
	k.Start("main", prio)
	return k, sim
}

func spawn(t *testing.T, k *kernel.Kernel, name string, prio kernel.Priority, fn func() kernel.Msg) *kernel.Thread {
	t.Helper()
	th, err := k.Create(kernel.ThreadConfig{
		Name:     name,
		Priority: prio,
		Stack:    make([]byte, 256),
		Entry:    func(any) kernel.Msg { return fn() },
	})
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	return th
}

// expectFault runs fn on the main thread and returns the fault it halts with.
func expectFault(t *testing.T, fn func()) (f *kernel.Fault) {
	t.Helper()
	defer func() {
		r := recover()
		var ok bool
		if f, ok = r.(*kernel.Fault); !ok {
			t.Fatalf("recover() = %v, want *kernel.Fault", r)
		}
	}()
	fn()
	return nil
}

// advance lets n ticks pass on the main thread.
func advance(k *kernel.Kernel, sim *hal.Sim, n uint32) {
	sim.Tick(n)
	k.Poll()
}

func TestStartRunsMainThread(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	self := k.Self()
	if self == nil || self.Name() != "main" {
		t.Fatalf("Self() = %v, want main", self)
	}
	if got := self.State(); got != kernel.StateRunning {
		t.Fatalf("main state = %v, want %v", got, kernel.StateRunning)
	}
	if k.Idle() == nil || k.Idle().Priority() != kernel.PrioIdle {
		t.Fatalf("idle thread missing or at wrong priority")
	}
	if got := len(k.Threads()); got != 2 {
		t.Fatalf("len(Threads()) = %d, want 2", got)
	}
}

func TestIdleRunsWhileEverythingSleeps(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)

	k.Sleep(7)
	if got := k.Now(); got != 7 {
		t.Fatalf("Now() = %d, want 7", got)
	}
	if got := sim.Now(); got != 7 {
		t.Fatalf("sim.Now() = %d, want 7", got)
	}
	if k.Idle().RunTicks() == 0 {
		t.Fatal("idle thread was never charged a tick")
	}
}

type recordingTracer struct {
	events []kernel.TraceEvent
}

func (r *recordingTracer) Trace(ev kernel.TraceEvent) { r.events = append(r.events, ev) }

func TestTracerSeesSwitches(t *testing.T) {
	tr := &recordingTracer{}
	k, _ := newKernel(t, kernel.PrioNormal, func(c *kernel.Config) { c.Tracer = tr })

	w := spawn(t, k, "worker", kernel.PrioNormal+1, func() kernel.Msg { return 3 })
	k.Join(w)

	var switches, exits int
	for _, ev := range tr.events {
		switch ev.Kind {
		case kernel.TraceSwitch:
			switches++
		case kernel.TraceExit:
			exits++
			if ev.Name != "worker" || ev.Msg != 3 {
				t.Fatalf("exit event = %+v, want worker with code 3", ev)
			}
		}
	}
	if switches != 2 {
		t.Fatalf("switches = %d, want 2", switches)
	}
	if exits != 1 {
		t.Fatalf("exits = %d, want 1", exits)
	}
}

func TestIRQHandlerRunsAtScheduledTick(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)
	sem := kernel.NewSemaphore(k, 0)

	var at kernel.Tick
	k.SetIRQHandler(hal.IRQButton, func(k *kernel.Kernel) {
		if !k.InISR() {
			t.Errorf("handler not in interrupt context")
		}
		sem.SignalI()
	})
	sim.RaiseAt(5, hal.IRQButton)

	if msg := sem.Wait(); msg != kernel.MsgOK {
		t.Fatalf("Wait() = %v, want ok", msg)
	}
	at = k.Now()
	if at != 5 {
		t.Fatalf("woken at %d, want 5", at)
	}
}

func TestCreateFromISRFails(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)

	var err error
	k.SetIRQHandler(3, func(k *kernel.Kernel) {
		_, err = k.Create(kernel.ThreadConfig{
			Name:     "isr",
			Priority: kernel.PrioNormal,
			Stack:    make([]byte, 256),
			Entry:    func(any) kernel.Msg { return 0 },
		})
	})
	sim.Raise(3)
	k.Poll()

	if err != kernel.ErrCreateFromISR {
		t.Fatalf("Create() error = %v, want %v", err, kernel.ErrCreateFromISR)
	}
}
