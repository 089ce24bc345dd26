// Package trace records kernel scheduling events and turns them into
// per-thread statistics, a timeline of who ran when, and reports.
package trace

import (
	"sync"

	"sparkrt/kernel"
)

// DefaultEventLimit is the number of raw events a Recorder keeps when no
// limit is configured.
const DefaultEventLimit = 4096

// Span is an interval during which one thread was running. End is exclusive.
type Span struct {
	Thread kernel.ThreadID
	Start  kernel.Tick
	End    kernel.Tick
}

// ThreadStats accumulates what the recorder saw of one thread.
type ThreadStats struct {
	ID        kernel.ThreadID
	Name      string
	Priority  kernel.Priority
	Switches  uint64
	Preempted uint64
	Wakeups   uint64
	Timeouts  uint64
	RunTicks  uint64
	Exited    bool
	ExitCode  kernel.Msg
}

// Recorder implements kernel.Tracer. Trace is called with the kernel lock
// held; the recorder guards its own state so another goroutine can read it
// while the kernel runs.
type Recorder struct {
	mu sync.Mutex

	limit  int
	events []kernel.TraceEvent
	start  int
	total  uint64

	threads map[kernel.ThreadID]*ThreadStats
	order   []kernel.ThreadID

	running kernel.ThreadID
	since   kernel.Tick
	last    kernel.Tick

	spans    []Span
	maxSpans int

	switches uint64
	irqs     [kernel.MaxIRQLines]uint64
}

var _ kernel.Tracer = (*Recorder)(nil)

// NewRecorder returns a recorder keeping the last limit raw events and the
// last limit timeline spans. A limit of zero selects DefaultEventLimit.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	return &Recorder{
		limit:    limit,
		maxSpans: limit,
		threads:  make(map[kernel.ThreadID]*ThreadStats),
	}
}

func (r *Recorder) Trace(ev kernel.TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.keep(ev)
	r.last = ev.Time
	st := r.stats(ev)
	switch ev.Kind {
	case kernel.TraceCreate:
		st.Priority = ev.Prio
		if r.running == 0 && ev.State == kernel.StateRunning {
			r.running, r.since = ev.Thread, ev.Time
		}
	case kernel.TraceSwitch:
		r.switches++
		st.Switches++
		st.Priority = ev.Prio
		if prev := r.threads[ev.Prev]; prev != nil && ev.State == kernel.StateReady {
			prev.Preempted++
		}
		r.closeSpan(ev.Time)
		r.running, r.since = ev.Thread, ev.Time
	case kernel.TraceReady:
		if ev.Msg == kernel.MsgOK || ev.Msg == kernel.MsgReset {
			st.Wakeups++
		}
	case kernel.TraceTimeout:
		st.Timeouts++
	case kernel.TraceExit:
		st.Exited = true
		st.ExitCode = ev.Msg
	case kernel.TraceIRQ:
		r.irqs[ev.Line%kernel.MaxIRQLines]++
	}
}

// keep appends ev to the event ring.
func (r *Recorder) keep(ev kernel.TraceEvent) {
	r.total++
	if len(r.events) < r.limit {
		r.events = append(r.events, ev)
		return
	}
	r.events[r.start] = ev
	r.start = (r.start + 1) % r.limit
}

func (r *Recorder) stats(ev kernel.TraceEvent) *ThreadStats {
	st := r.threads[ev.Thread]
	if st == nil {
		st = &ThreadStats{ID: ev.Thread, Name: ev.Name, Priority: ev.Prio}
		r.threads[ev.Thread] = st
		r.order = append(r.order, ev.Thread)
	}
	return st
}

func (r *Recorder) closeSpan(end kernel.Tick) {
	if r.running == 0 {
		return
	}
	if st := r.threads[r.running]; st != nil {
		st.RunTicks += uint64(end.Since(r.since))
	}
	if end == r.since {
		return
	}
	if len(r.spans) == r.maxSpans {
		copy(r.spans, r.spans[1:])
		r.spans = r.spans[:len(r.spans)-1]
	}
	r.spans = append(r.spans, Span{Thread: r.running, Start: r.since, End: end})
}

// Events returns the retained raw events, oldest first.
func (r *Recorder) Events() []kernel.TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]kernel.TraceEvent, 0, len(r.events))
	out = append(out, r.events[r.start:]...)
	return append(out, r.events[:r.start]...)
}

// Dropped returns how many raw events fell out of the ring.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total - uint64(len(r.events))
}

// Threads returns the statistics of every thread seen, in order of first
// appearance. The thread running now is charged up to now.
func (r *Recorder) Threads(now kernel.Tick) []ThreadStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ThreadStats, 0, len(r.order))
	for _, id := range r.order {
		st := *r.threads[id]
		if id == r.running {
			st.RunTicks += uint64(now.Since(r.since))
		}
		out = append(out, st)
	}
	return out
}

// Timeline returns the spans that end after from, with the running thread's
// open span closed at now.
func (r *Recorder) Timeline(from, now kernel.Tick) []Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Span
	for _, s := range r.spans {
		if s.End.Since(from) > 0 && s.End.Since(from) <= now.Since(from) {
			out = append(out, s)
		}
	}
	if r.running != 0 && now != r.since {
		out = append(out, Span{Thread: r.running, Start: r.since, End: now})
	}
	return out
}

// Switches returns the number of context switches seen.
func (r *Recorder) Switches() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.switches
}

// IRQs returns the number of times each line was serviced.
func (r *Recorder) IRQs() [kernel.MaxIRQLines]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.irqs
}

// Last returns the time of the most recent event.
func (r *Recorder) Last() kernel.Tick {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
