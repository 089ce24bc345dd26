package kernel_test

import (
	"fmt"
	"testing"

	"sparkrt/kernel"
)

func TestTimerFiresAfterExactTicks(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)

	var tm kernel.Timer
	fired := 0
	k.Arm(&tm, 10, func(any) { fired++ }, nil)

	for i := 0; i < 9; i++ {
		advance(k, sim, 1)
	}
	if fired != 0 {
		t.Fatalf("fired = %d after 9 ticks, want 0", fired)
	}
	if !tm.Armed() {
		t.Fatal("timer disarmed before its deadline")
	}
	advance(k, sim, 1)
	if fired != 1 {
		t.Fatalf("fired = %d after 10 ticks, want 1", fired)
	}
	advance(k, sim, 20)
	if fired != 1 || tm.Armed() {
		t.Fatalf("fired = %d, armed = %v after expiry, want 1, false", fired, tm.Armed())
	}
}

func TestTimerTickIDirect(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	var tm kernel.Timer
	fired := false
	k.Arm(&tm, 3, func(any) { fired = true }, nil)

	k.Lock()
	k.TickI()
	k.TickI()
	before := fired
	k.TickI()
	k.Unlock()

	if before || !fired {
		t.Fatalf("fired before = %v, after = %v, want false, true", before, fired)
	}
}

func TestTimerNeverFiresAfterDisarm(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)

	var tm kernel.Timer
	fired := false
	k.Arm(&tm, 5, func(any) { fired = true }, nil)
	advance(k, sim, 3)
	k.Disarm(&tm)
	advance(k, sim, 10)

	if fired {
		t.Fatal("disarmed timer fired")
	}
	k.Disarm(&tm) // not armed: no effect
}

func TestTimersWithEqualDeadlinesFireInArmOrder(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)

	var order []string
	timers := make([]kernel.Timer, 4)
	for i, name := range []string{"a", "b", "c"} {
		k.Arm(&timers[i], 4, func(arg any) { order = append(order, arg.(string)) }, name)
	}
	k.Arm(&timers[3], 2, func(arg any) { order = append(order, arg.(string)) }, "early")
	advance(k, sim, 4)

	if got := fmt.Sprint(order); got != "[early a b c]" {
		t.Fatalf("order = %s, want [early a b c]", got)
	}
}

func TestTimerRemaining(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)

	var a, b, c kernel.Timer
	noop := func(any) {}
	k.Arm(&a, 4, noop, nil)
	k.Arm(&b, 10, noop, nil)
	k.Arm(&c, 7, noop, nil)
	advance(k, sim, 2)

	for _, tc := range []struct {
		name string
		tm   *kernel.Timer
		want kernel.Interval
	}{
		{"a", &a, 2},
		{"b", &b, 8},
		{"c", &c, 5},
	} {
		if got := k.Remaining(tc.tm); got != tc.want {
			t.Fatalf("Remaining(%s) = %d, want %d", tc.name, got, tc.want)
		}
	}

	k.Disarm(&c)
	if got := k.Remaining(&b); got != 8 {
		t.Fatalf("Remaining(b) after removing c = %d, want 8", got)
	}
}

func TestTimerRearmFromCallback(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)

	var tm kernel.Timer
	fired := 0
	var cb kernel.TimerFunc
	cb = func(any) {
		fired++
		if fired < 3 {
			k.ArmI(&tm, 3, cb, nil)
		}
	}
	k.Arm(&tm, 3, cb, nil)

	var at []int
	for i := 1; i <= 12; i++ {
		before := fired
		advance(k, sim, 1)
		if fired != before {
			at = append(at, i)
		}
	}
	if got := fmt.Sprint(at); got != "[3 6 9]" {
		t.Fatalf("fired at ticks %s, want [3 6 9]", got)
	}
}

func TestArmZeroDelayFaults(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	var tm kernel.Timer
	f := expectFault(t, func() { k.Arm(&tm, kernel.TimeImmediate, func(any) {}, nil) })
	if f.Kind != kernel.FaultUsage {
		t.Fatalf("fault kind = %v, want %v", f.Kind, kernel.FaultUsage)
	}
}

func TestArmZeroDelayFiresWithoutDebug(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal, func(c *kernel.Config) { c.Debug = false })

	var tm kernel.Timer
	fired := 0
	k.Arm(&tm, kernel.TimeImmediate, func(any) { fired++ }, nil)
	if !tm.Armed() {
		t.Fatal("zero delay timer not armed")
	}
	k.Sleep(10)
	if fired != 1 || tm.Armed() {
		t.Fatalf("fired = %d, Armed() = %v, want 1, false", fired, tm.Armed())
	}
}
