package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"sparkrt/hal"
	"sparkrt/internal/trace"
	"sparkrt/kernel"
)

// sliceTicks bounds how long the main thread sleeps between checks of the
// run context.
const sliceTicks = 256

// Options configure a run.
type Options struct {
	// Logger receives kernel diagnostics. Nil discards them.
	Logger *slog.Logger
	// EventLimit bounds the raw trace events kept by the recorder.
	EventLimit int
}

// Entry is one line of a scenario log.
type Entry struct {
	Tick   kernel.Tick
	Thread string
	Text   string
}

func (e Entry) String() string {
	return fmt.Sprintf("%5d %s: %s", e.Tick, e.Thread, e.Text)
}

// Result is the outcome of a run.
type Result struct {
	Report   trace.Report
	Log      []Entry
	Fault    *kernel.Fault
	Recorder *trace.Recorder
}

// runner holds the live objects of one run.
type runner struct {
	sc  *Scenario
	sim *hal.Sim
	k   *kernel.Kernel
	log []Entry

	sems      map[string]*kernel.Semaphore
	mutexes   map[string]*kernel.Mutex
	events    map[string]*kernel.EventSource
	mailboxes map[string]*kernel.Mailbox
	threads   map[string]*kernel.Thread
}

// Run executes sc on a fresh kernel over a simulated port. The calling
// goroutine becomes the kernel's main thread for the duration of the run.
//
// A kernel halt is not an error: it ends the run and is reported in the
// result. Run only fails if ctx is cancelled.
func Run(ctx context.Context, sc *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rec := trace.NewRecorder(opts.EventLimit)

	cfg := sc.Config()
	cfg.Tracer = rec
	cfg.Logger = logger.With("scenario", sc.Name)

	r := &runner{
		sc:        sc,
		sim:       hal.NewSim(hal.SimConfig{Horizon: sc.Duration() + sliceTicks}),
		sems:      map[string]*kernel.Semaphore{},
		mutexes:   map[string]*kernel.Mutex{},
		events:    map[string]*kernel.EventSource{},
		mailboxes: map[string]*kernel.Mailbox{},
		threads:   map[string]*kernel.Thread{},
	}
	r.k = kernel.New(r.sim, cfg)

	err := r.main(ctx)

	res := &Result{Log: r.log, Fault: r.k.Fault(), Recorder: rec}
	res.Report = trace.NewReport(sc.Name, rec, r.now(), res.Fault)
	for _, e := range r.log {
		res.Report.Log = append(res.Report.Log, e.String())
	}
	return res, err
}

// main runs on the kernel's main thread. A fault anywhere in the system
// surfaces here as a *kernel.Fault panic.
func (r *runner) main(ctx context.Context) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if _, ok := v.(*kernel.Fault); !ok {
				panic(v)
			}
		}
	}()

	k := r.k
	k.Start("scenario", kernel.PrioHighest)
	r.declare()

	threads := make([]*ThreadSpec, len(r.sc.Threads))
	copy(threads, r.sc.Threads)
	sort.SliceStable(threads, func(i, j int) bool { return threads[i].Start < threads[j].Start })
	for _, ts := range threads {
		if err := r.sleepUntil(ctx, kernel.Tick(ts.Start)); err != nil {
			return err
		}
		if err := r.spawn(ts); err != nil {
			return err
		}
	}
	return r.sleepUntil(ctx, kernel.Tick(r.sc.Duration()))
}

func (r *runner) declare() {
	k := r.k
	for _, s := range r.sc.Semaphores {
		r.sems[s.Name] = kernel.NewSemaphore(k, s.Count)
	}
	for _, m := range r.sc.Mutexes {
		r.mutexes[m.Name] = kernel.NewMutex(k)
	}
	for _, e := range r.sc.Events {
		r.events[e.Name] = kernel.NewEventSource(k)
	}
	for _, mb := range r.sc.Mailboxes {
		r.mailboxes[mb.Name] = kernel.NewMailbox(k, mb.Size)
	}
	for _, irq := range r.sc.IRQs {
		r.installIRQ(irq)
	}
}

func (r *runner) installIRQ(irq *IRQSpec) {
	sem := r.sems[irq.Signal]
	src := r.events[irq.Broadcast]
	name := "irq " + irq.Name
	r.k.SetIRQHandler(irq.Line, func(k *kernel.Kernel) {
		r.note(name, "raised")
		if sem != nil {
			sem.SignalI()
		}
		if src != nil {
			src.BroadcastI(kernel.EventMask(irq.Mask))
		}
	})
	for _, at := range irq.At {
		r.sim.RaiseAt(at, irq.Line)
	}
	if irq.Every > 0 {
		for at := irq.Every; at <= r.sc.Duration(); at += irq.Every {
			r.sim.RaiseAt(at, irq.Line)
		}
	}
}

// sleepUntil sleeps the main thread until t, waking up regularly to honour
// ctx.
func (r *runner) sleepUntil(ctx context.Context, t kernel.Tick) error {
	k := r.k
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		left := t.Since(k.Now())
		if left == 0 || left > kernel.Interval(r.sc.Duration()) {
			return nil
		}
		k.Sleep(min(left, sliceTicks))
	}
}

func (r *runner) spawn(ts *ThreadSpec) error {
	run := &threadRun{r: r, spec: ts}
	if err := run.compile(); err != nil {
		return err
	}
	stack := ts.Stack
	if stack == 0 {
		stack = DefaultStackSize
	}
	th, err := r.k.Create(kernel.ThreadConfig{
		Name:     ts.Name,
		Priority: kernel.Priority(ts.Priority),
		Stack:    make([]byte, stack),
		Entry:    run.entry,
	})
	if err != nil {
		return fmt.Errorf("create thread %q: %w", ts.Name, err)
	}
	r.threads[ts.Name] = th
	return nil
}

// now reads the virtual clock without the kernel lock, so it also works in
// interrupt handlers and after a halt.
func (r *runner) now() kernel.Tick { return kernel.Tick(r.sim.Now()) }

func (r *runner) note(who, format string, args ...any) {
	r.log = append(r.log, Entry{Tick: r.now(), Thread: who, Text: fmt.Sprintf(format, args...)})
}
