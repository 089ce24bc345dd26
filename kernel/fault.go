package kernel

import "fmt"

// FaultKind classifies a kernel halt.
type FaultKind uint8

const (
	// FaultUsage is a programming error caught by a debug check.
	FaultUsage FaultKind = iota + 1
	// FaultInvariant is corrupted kernel state. Always fatal.
	FaultInvariant
	// FaultStackGuard is an overwritten stack guard. Always fatal.
	FaultStackGuard
	// FaultThreadPanic is a Go panic escaping a thread entry. Always fatal.
	FaultThreadPanic
)

func (k FaultKind) String() string {
	switch k {
	case FaultUsage:
		return "usage"
	case FaultInvariant:
		return "invariant"
	case FaultStackGuard:
		return "stack guard"
	case FaultThreadPanic:
		return "thread panic"
	default:
		return "unknown"
	}
}

// Fault describes why the kernel halted.
type Fault struct {
	Kind   FaultKind
	Thread string
	Reason string
	Value  any
	Stack  []byte
}

func (f *Fault) Error() string {
	if f.Value != nil {
		return fmt.Sprintf("kernel halt: %s in %q: %s: %v", f.Kind, f.Thread, f.Reason, f.Value)
	}
	return fmt.Sprintf("kernel halt: %s in %q: %s", f.Kind, f.Thread, f.Reason)
}

// Halted reports whether the kernel has faulted.
func (k *Kernel) Halted() bool { return k.fault != nil }

// Fault returns the first fault, or nil.
func (k *Kernel) Fault() *Fault { return k.fault }

// halt records the fault and stops the calling context by panicking with it.
func (k *Kernel) halt(kind FaultKind, reason string, value any) {
	panic(k.record(kind, reason, value))
}

// record builds a fault for the current thread. Only the first fault is kept,
// logged and passed to the fault handler.
func (k *Kernel) record(kind FaultKind, reason string, value any) *Fault {
	f := &Fault{Kind: kind, Reason: reason, Value: value}
	if k.curr != nil {
		f.Thread = k.curr.name
	}
	if k.fault != nil {
		return f
	}
	f.Stack = captureStack()
	k.fault = f
	k.log.Error("kernel halt", "kind", kind.String(), "thread", f.Thread, "reason", reason)
	if k.cfg.OnFault != nil {
		k.cfg.OnFault(*f)
	}
	return f
}

// abandon stops the context of a faulted thread. The main thread is resumed
// and panics with the fault where it was suspended; without a main thread to
// hand over to, the fault panics here.
func (k *Kernel) abandon(t *Thread, f *Fault) {
	m := k.main
	if m == nil || m == t || m.state == StateTerminated {
		panic(f)
	}
	k.curr = m
	k.port.Exit(t.ctx, m.ctx)
}

// check reports cond. A false cond is a usage error: with debug checks on it
// halts, otherwise the caller is expected to bail out.
func (k *Kernel) check(cond bool, reason string) bool {
	if cond {
		return true
	}
	if k.cfg.Debug {
		k.halt(FaultUsage, reason, nil)
	}
	return false
}

// invariant halts when cond is false, regardless of debug checks.
func (k *Kernel) invariant(cond bool, reason string) {
	if !cond {
		k.halt(FaultInvariant, reason, nil)
	}
}

func (k *Kernel) assertLocked(fn string) {
	if k.cfg.Debug && k.lockDepth != 1 {
		k.halt(FaultUsage, fn+" called without the kernel lock", nil)
	}
}

func (k *Kernel) assertThreadContext(fn string) {
	if k.cfg.Debug && k.inISR {
		k.halt(FaultUsage, fn+" called from interrupt context", nil)
	}
}
