package kernel

// TraceKind identifies a scheduling event.
type TraceKind uint8

const (
	TraceCreate TraceKind = iota + 1
	TraceSwitch
	TraceReady
	TraceTimeout
	TraceExit
	TraceIRQ
)

func (k TraceKind) String() string {
	switch k {
	case TraceCreate:
		return "create"
	case TraceSwitch:
		return "switch"
	case TraceReady:
		return "ready"
	case TraceTimeout:
		return "timeout"
	case TraceExit:
		return "exit"
	case TraceIRQ:
		return "irq"
	default:
		return "unknown"
	}
}

// TraceEvent is one scheduling event.
//
// For TraceSwitch, Thread is the thread switched in and Prev the one switched
// out, which left in State. For TraceIRQ, Line is the serviced line.
type TraceEvent struct {
	Kind   TraceKind
	Time   Tick
	Thread ThreadID
	Name   string
	Prio   Priority
	Prev   ThreadID
	State  State
	Msg    Msg
	Line   uint8
}

// Tracer observes scheduling events. Trace runs with the kernel lock held,
// possibly in interrupt context, and must not block or call into the kernel.
type Tracer interface {
	Trace(ev TraceEvent)
}

func (k *Kernel) trace(ev TraceEvent) {
	if k.cfg.Tracer == nil {
		return
	}
	ev.Time = k.now
	k.cfg.Tracer.Trace(ev)
}

func (k *Kernel) traceThread(kind TraceKind, t *Thread, msg Msg) {
	if k.cfg.Tracer == nil {
		return
	}
	k.trace(TraceEvent{Kind: kind, Thread: t.id, Name: t.name, Prio: t.prio, State: t.state, Msg: msg})
}
