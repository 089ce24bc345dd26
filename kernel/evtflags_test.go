package kernel_test

import (
	"testing"

	"sparkrt/kernel"
)

func TestWaitAnyEvents(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	var got kernel.EventMask
	w := spawn(t, k, "w", kernel.PrioNormal+1, func() kernel.Msg {
		got = k.WaitAnyEvents(0b011, kernel.TimeInfinite)
		return kernel.MsgOK
	})

	k.SignalEvents(w, 0b100)
	if w.State() != kernel.StateWaitAnyEvents {
		t.Fatalf("state after unrelated flag = %v, want %v", w.State(), kernel.StateWaitAnyEvents)
	}
	k.SignalEvents(w, 0b010)
	k.Join(w)
	if got != 0b010 {
		t.Fatalf("WaitAnyEvents() = %#b, want 0b10", got)
	}
}

func TestWaitAllEvents(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	var got kernel.EventMask
	w := spawn(t, k, "w", kernel.PrioNormal+1, func() kernel.Msg {
		got = k.WaitAllEvents(0b011, kernel.TimeInfinite)
		return kernel.MsgOK
	})

	k.SignalEvents(w, 0b001)
	if w.State() != kernel.StateWaitAllEvents {
		t.Fatalf("state after partial set = %v, want %v", w.State(), kernel.StateWaitAllEvents)
	}
	k.SignalEvents(w, 0b010)
	k.Join(w)
	if got != 0b011 {
		t.Fatalf("WaitAllEvents() = %#b, want 0b11", got)
	}
}

func TestWaitEventsTimeout(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	if got := k.WaitAnyEvents(0b1, 5); got != 0 {
		t.Fatalf("WaitAnyEvents() = %#b, want 0", got)
	}
	if now := k.Now(); now != 5 {
		t.Fatalf("Now() = %d, want 5", now)
	}
	k.SignalEvents(k.Self(), 0b01)
	if got := k.WaitAllEvents(0b11, 2); got != 0 {
		t.Fatalf("WaitAllEvents() = %#b, want 0", got)
	}
}

func TestClearEvents(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	k.SignalEvents(k.Self(), 0b101)
	if old := k.ClearEvents(0b001); old != 0b101 {
		t.Fatalf("ClearEvents() = %#b, want 0b101", old)
	}
	if got := k.WaitAnyEvents(0b111, kernel.TimeImmediate); got != 0b100 {
		t.Fatalf("WaitAnyEvents() = %#b, want 0b100", got)
	}
	if got := k.WaitAnyEvents(0b111, kernel.TimeImmediate); got != 0 {
		t.Fatalf("flags not consumed: %#b", got)
	}
}
