package kernel

// Context is a saved execution context. Only the port looks inside it.
type Context = any

// Port is the processor boundary: context switching, interrupt masking and
// the interrupt controller.
//
// Interrupts are latched by the port and serviced by the kernel at interrupt
// windows on the interrupted thread (the idle loop, Spin, Poll and Yield).
type Port interface {
	// Init performs one-time setup before the first thread is created.
	Init()
	// BootContext returns the context of the caller of Kernel.Start.
	BootContext() Context
	// NewContext returns a context that runs entry when first switched to.
	NewContext(entry func()) Context
	// Switch saves the running context into from and resumes to. It is
	// called with the kernel lock held and returns, still locked, once from
	// is resumed.
	Switch(from, to Context)
	// Exit resumes to and discards from. It does not return.
	Exit(from, to Context)
	// Lock masks interrupts.
	Lock()
	// Unlock unmasks interrupts.
	Unlock()
	// WaitForInterrupt blocks until an interrupt is latched.
	WaitForInterrupt()
	// Pending takes the latched tick count and interrupt lines.
	Pending() (ticks uint32, lines uint32)
}

// IRQHandler services an interrupt line. It runs in interrupt context with
// the lock held and may only call I-class functions.
type IRQHandler func(k *Kernel)

// MaxIRQLines is the number of interrupt lines a port can latch.
const MaxIRQLines = 32
