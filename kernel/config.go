package kernel

import "log/slog"

// Config selects kernel policies.
type Config struct {
	// Quantum is the round-robin time slice in ticks. Zero disables
	// round robin: equal-priority threads then run until they block or yield.
	Quantum Interval

	// Debug enables usage checks. Misuse halts the kernel with a FaultUsage;
	// without Debug the offending call returns without effect, except that a
	// zero timer delay fires on the next tick.
	Debug bool

	// PriorityInheritance raises a mutex owner to the priority of its
	// highest-priority waiter.
	PriorityInheritance bool

	// MessagesByPriority orders queued senders by priority instead of FIFO.
	MessagesByPriority bool

	// IdleStackSize is the size of the stack allocated for the idle thread.
	IdleStackSize int

	// MinStackSize is the smallest stack Create accepts.
	MinStackSize int

	// StackGuard is the number of bytes at the stack base filled with a
	// pattern and verified every time the thread is switched out.
	StackGuard int

	// Logger receives thread-context diagnostics. Interrupt-context code
	// never logs.
	Logger *slog.Logger

	// Tracer, when set, observes scheduling events with the lock held.
	Tracer Tracer

	// OnFault is invoked once, on the first fault, before the kernel halts.
	// It must not call into the kernel.
	OnFault func(Fault)
}

// DefaultConfig returns the configuration used by most boards.
func DefaultConfig() Config {
	return Config{
		Quantum:             4,
		Debug:               true,
		PriorityInheritance: true,
		IdleStackSize:       256,
		MinStackSize:        64,
		StackGuard:          16,
	}
}
