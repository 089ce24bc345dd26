package kernel_test

import (
	"testing"

	"sparkrt/kernel"
)

func TestBroadcastDeliversIntersection(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)
	src := kernel.NewEventSource(k)

	got := map[string]kernel.EventMask{}
	waiter := func(name string, interest kernel.EventMask) *kernel.Thread {
		return spawn(t, k, name, kernel.PrioNormal+1, func() kernel.Msg {
			m, msg := src.Wait(interest, kernel.TimeInfinite)
			got[name] = m
			return msg
		})
	}
	w1 := waiter("w1", 0b0011)
	w2 := waiter("w2", 0b0110)
	w3 := waiter("w3", 0b1_0000)

	src.Broadcast(0b1010)

	if got["w1"] != 0b0010 || got["w2"] != 0b0010 {
		t.Fatalf("delivered = %v, want w1 and w2 to get 0b10", got)
	}
	if _, ok := got["w3"]; ok {
		t.Fatal("w3 woken by a disjoint broadcast")
	}
	if p := src.Pending(); p != 0b1000 {
		t.Fatalf("Pending() = %#b, want 0b1000", p)
	}
	for _, w := range []*kernel.Thread{w1, w2} {
		if code := k.Join(w); code != kernel.MsgOK {
			t.Fatalf("Join(%s) = %v, want ok", w.Name(), code)
		}
	}

	src.Broadcast(0b1_0000)
	if code := k.Join(w3); code != kernel.MsgOK || got["w3"] != 0b1_0000 {
		t.Fatalf("w3 = %#b, %v, want 0b10000, ok", got["w3"], code)
	}
}

func TestPendingFlagsSatisfyLaterWait(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)
	src := kernel.NewEventSource(k)

	src.Broadcast(0b101)
	m, msg := src.Wait(0b100, kernel.TimeImmediate)
	if m != 0b100 || msg != kernel.MsgOK {
		t.Fatalf("Wait() = %#b, %v, want 0b100, ok", m, msg)
	}
	if p := src.Pending(); p != 0b001 {
		t.Fatalf("Pending() = %#b, want 0b1", p)
	}
	if m, msg := src.Wait(0b010, kernel.TimeImmediate); m != 0 || msg != kernel.MsgTimeout {
		t.Fatalf("Wait() = %#b, %v, want 0, timeout", m, msg)
	}
}

func TestEventWaitTimeout(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)
	src := kernel.NewEventSource(k)

	m, msg := src.Wait(1, 3)
	if m != 0 || msg != kernel.MsgTimeout {
		t.Fatalf("Wait() = %#b, %v, want 0, timeout", m, msg)
	}
	if now := k.Now(); now != 3 {
		t.Fatalf("Now() = %d, want 3", now)
	}
}

func TestEventSourceReset(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)
	src := kernel.NewEventSource(k)

	w := spawn(t, k, "w", kernel.PrioNormal+1, func() kernel.Msg {
		_, msg := src.Wait(1, kernel.TimeInfinite)
		return msg
	})
	src.Broadcast(0b10)
	src.Reset()

	if code := k.Join(w); code != kernel.MsgReset {
		t.Fatalf("waiter = %v, want reset", code)
	}
	if p := src.Pending(); p != 0 {
		t.Fatalf("Pending() after Reset = %#b, want 0", p)
	}
}

func TestBroadcastFromInterrupt(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)
	src := kernel.NewEventSource(k)

	k.SetIRQHandler(4, func(k *kernel.Kernel) { src.BroadcastI(0b1) })
	sim.RaiseAt(6, 4)

	m, msg := src.Wait(0b1, kernel.TimeInfinite)
	if m != 0b1 || msg != kernel.MsgOK {
		t.Fatalf("Wait() = %#b, %v, want 0b1, ok", m, msg)
	}
	if now := k.Now(); now != 6 {
		t.Fatalf("woken at %d, want 6", now)
	}
}
