package scenario

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"sparkrt/kernel"
)

// Object kinds an op can target.
const (
	targetNone      = ""
	targetSemaphore = "semaphore"
	targetMutex     = "mutex"
	targetEvent     = "event"
	targetMailbox   = "mailbox"
	targetThread    = "thread"
)

// opTargets maps every op kind to the kind of object it targets.
var opTargets = map[string]string{
	"sleep":        targetNone,
	"spin":         targetNone,
	"yield":        targetNone,
	"periodic":     targetNone,
	"log":          targetNone,
	"exit":         targetNone,
	"panic":        targetNone,
	"set_priority": targetNone,
	"unlock_all":   targetNone,
	"receive":      targetNone,
	"wait_any":     targetNone,
	"wait_all":     targetNone,
	"clear_events": targetNone,

	"wait":   targetSemaphore,
	"signal": targetSemaphore,
	"reset":  targetSemaphore,

	"lock":    targetMutex,
	"trylock": targetMutex,
	"unlock":  targetMutex,

	"post":       targetMailbox,
	"post_ahead": targetMailbox,
	"fetch":      targetMailbox,

	"broadcast":  targetEvent,
	"wait_event": targetEvent,

	"send":          targetThread,
	"signal_events": targetThread,
}

func opKinds() string {
	var ks []string
	for k := range opTargets {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return strings.Join(ks, ", ")
}

// blockingOps may suspend the thread until time passes.
var blockingOps = map[string]bool{
	"wait": true, "lock": true, "post": true, "post_ahead": true, "fetch": true,
	"send": true, "receive": true, "wait_event": true, "wait_any": true, "wait_all": true,
}

func anyWaits(ops []*OpSpec) bool {
	for _, op := range ops {
		switch {
		case op.Kind == "sleep" || op.Kind == "spin" || op.Kind == "periodic":
			if op.Ticks > 0 {
				return true
			}
		case blockingOps[op.Kind]:
			if op.Timeout == nil || *op.Timeout > 0 {
				return true
			}
		}
	}
	return false
}

func (s *Scenario) validate() hcl.Diagnostics {
	var diags hcl.Diagnostics
	errf := func(rng *hcl.Range, summary, format string, args ...any) {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  summary,
			Detail:   fmt.Sprintf(format, args...),
			Subject:  rng,
		})
	}

	names := map[string]map[string]bool{}
	declare := func(kind, name string, rng *hcl.Range) {
		if names[kind] == nil {
			names[kind] = map[string]bool{}
		}
		if names[kind][name] {
			errf(rng, "Duplicate "+kind, "A %s named %q is already declared.", kind, name)
		}
		names[kind][name] = true
	}
	for _, o := range s.Semaphores {
		declare(targetSemaphore, o.Name, nil)
	}
	for _, o := range s.Mutexes {
		declare(targetMutex, o.Name, nil)
	}
	for _, o := range s.Events {
		declare(targetEvent, o.Name, nil)
	}
	for _, o := range s.Mailboxes {
		declare(targetMailbox, o.Name, nil)
		if o.Size < 1 {
			errf(nil, "Invalid mailbox size", "Mailbox %q needs at least one slot.", o.Name)
		}
	}
	for _, t := range s.Threads {
		declare(targetThread, t.Name, t.DefRange.Ptr())
	}

	duration := s.Duration()
	for _, t := range s.Threads {
		rng := t.DefRange.Ptr()
		if p := kernel.Priority(t.Priority); p <= kernel.PrioIdle || p >= kernel.PrioHighest {
			errf(rng, "Invalid priority", "Thread %q has priority %d; it must lie between prio.idle and prio.highest, both excluded.", t.Name, t.Priority)
		}
		if t.Start >= duration {
			errf(rng, "Thread starts too late", "Thread %q starts at tick %d, after the end of the run at %d.", t.Name, t.Start, duration)
		}
		if t.Stack != 0 && t.Stack < kernel.DefaultConfig().MinStackSize {
			errf(rng, "Stack too small", "Thread %q has a %d byte stack.", t.Name, t.Stack)
		}
		if len(t.Ops) == 0 {
			errf(rng, "Thread without ops", "Thread %q has nothing to do.", t.Name)
		}
		if t.Loop != nil && *t.Loop == 0 && !anyWaits(t.Ops) {
			errf(rng, "Endless busy loop", "Thread %q loops forever without an op that sleeps, spins or blocks; virtual time would never advance.", t.Name)
		}
		for _, op := range t.Ops {
			target, ok := opTargets[op.Kind]
			if !ok {
				errf(op.DefRange.Ptr(), "Unknown op", "Op %q is not one of: %s.", op.Kind, opKinds())
				continue
			}
			switch {
			case target == targetNone && op.Target != "":
				errf(op.DefRange.Ptr(), "Unexpected target", "Op %q takes no target.", op.Kind)
			case target != targetNone && !names[target][op.Target]:
				errf(op.DefRange.Ptr(), "Unknown target", "Op %q needs a declared %s, got %q.", op.Kind, target, op.Target)
			}
			if op.Kind == "periodic" && op.Ticks == 0 {
				errf(op.DefRange.Ptr(), "Invalid period", "Op periodic needs ticks > 0.")
			}
			if op.Kind == "set_priority" {
				if p := kernel.Priority(op.Priority); p <= kernel.PrioIdle || p >= kernel.PrioHighest {
					errf(op.DefRange.Ptr(), "Invalid priority", "Op set_priority needs a priority between prio.idle and prio.highest, got %d.", op.Priority)
				}
			}
		}
	}

	lines := map[uint8]string{}
	for _, irq := range s.IRQs {
		rng := irq.DefRange.Ptr()
		if irq.Line >= kernel.MaxIRQLines {
			errf(rng, "Invalid interrupt line", "IRQ %q uses line %d; lines go up to %d.", irq.Name, irq.Line, kernel.MaxIRQLines-1)
		}
		if other, ok := lines[irq.Line]; ok {
			errf(rng, "Interrupt line in use", "IRQ %q uses line %d, already taken by %q.", irq.Name, irq.Line, other)
		}
		lines[irq.Line] = irq.Name
		if irq.Signal != "" && !names[targetSemaphore][irq.Signal] {
			errf(rng, "Unknown target", "IRQ %q signals undeclared semaphore %q.", irq.Name, irq.Signal)
		}
		if irq.Broadcast != "" && !names[targetEvent][irq.Broadcast] {
			errf(rng, "Unknown target", "IRQ %q broadcasts on undeclared event %q.", irq.Name, irq.Broadcast)
		}
		if len(irq.At) == 0 && irq.Every == 0 {
			errf(rng, "IRQ never raised", "IRQ %q sets neither at nor every.", irq.Name)
		}
	}
	return diags
}
