package kernel

// TimerFunc is a timer callback. It runs in interrupt context with the lock
// held and may only call I-class functions.
type TimerFunc func(arg any)

// Timer is a one-shot virtual timer. The zero value is disarmed.
type Timer struct {
	next, prev *Timer
	// delta is the number of ticks after the previous entry in the list.
	delta Interval
	fn    TimerFunc
	arg   any
}

// Armed reports whether the timer is pending.
func (tm *Timer) Armed() bool { return tm.next != nil }

// timerList is a delta list of armed timers. The head is a sentinel whose
// delta never runs out, so every scan stops on it.
type timerList struct {
	head Timer
}

func (l *timerList) init() {
	l.head.next = &l.head
	l.head.prev = &l.head
	l.head.delta = TimeInfinite
}

func (l *timerList) empty() bool { return l.head.next == &l.head }

// insert links tm so that it fires delay ticks from now. Entries with the
// same deadline fire in insertion order.
func (l *timerList) insert(tm *Timer, delay Interval) {
	p := l.head.next
	for p.delta <= delay {
		delay -= p.delta
		p = p.next
	}
	tm.next = p
	tm.prev = p.prev
	p.prev.next = tm
	p.prev = tm
	tm.delta = delay
	if p != &l.head {
		p.delta -= delay
	}
}

func (l *timerList) remove(tm *Timer) {
	if tm.next != &l.head {
		tm.next.delta += tm.delta
	}
	tm.prev.next = tm.next
	tm.next.prev = tm.prev
	tm.next, tm.prev = nil, nil
}

// remaining sums the deltas up to and including tm.
func (l *timerList) remaining(tm *Timer) Interval {
	var d Interval
	for p := l.head.next; p != &l.head; p = p.next {
		d += p.delta
		if p == tm {
			return d
		}
	}
	return 0
}

// tick advances the list by one tick and runs every timer that became due.
func (l *timerList) tick() {
	first := l.head.next
	if first == &l.head {
		return
	}
	first.delta--
	for first != &l.head && first.delta == 0 {
		fn, arg := first.fn, first.arg
		l.remove(first)
		first.fn, first.arg = nil, nil
		fn(arg)
		first = l.head.next
	}
}

// ArmI arms tm to call fn(arg) after delay ticks.
//
// The delay must be neither TimeImmediate nor TimeInfinite and tm must not be
// armed already. Without debug checks a zero delay fires on the next tick.
func (k *Kernel) ArmI(tm *Timer, delay Interval, fn TimerFunc, arg any) {
	k.assertLocked("ArmI")
	if !k.check(delay != TimeImmediate, "timer armed with zero delay") {
		delay = 1
	}
	if !k.check(delay != TimeInfinite, "timer delay out of range") {
		return
	}
	if !k.check(!tm.Armed(), "timer already armed") {
		return
	}
	if !k.check(fn != nil, "timer without callback") {
		return
	}
	tm.fn, tm.arg = fn, arg
	k.timers.insert(tm, delay)
}

// DisarmI cancels tm. Disarming a timer that is not armed is a usage error.
func (k *Kernel) DisarmI(tm *Timer) {
	k.assertLocked("DisarmI")
	if !k.check(tm.Armed(), "timer not armed") {
		return
	}
	k.timers.remove(tm)
	tm.fn, tm.arg = nil, nil
}

// Arm arms tm from thread context, cancelling it first if it is pending.
func (k *Kernel) Arm(tm *Timer, delay Interval, fn TimerFunc, arg any) {
	k.Lock()
	if tm.Armed() {
		k.DisarmI(tm)
	}
	k.ArmI(tm, delay, fn, arg)
	k.Unlock()
}

// Disarm cancels tm from thread context. It does nothing if tm is not armed.
func (k *Kernel) Disarm(tm *Timer) {
	k.Lock()
	if tm.Armed() {
		k.DisarmI(tm)
	}
	k.Unlock()
}

// Remaining returns the ticks left before tm fires, zero if disarmed.
func (k *Kernel) Remaining(tm *Timer) Interval {
	k.Lock()
	defer k.Unlock()
	if !tm.Armed() {
		return 0
	}
	return k.timers.remaining(tm)
}
