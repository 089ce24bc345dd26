package hal

import (
	"testing"
	"time"
)

func TestRealTimeStepAccumulates(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	r := newRealTimeWithClock(RealTimeConfig{Tick: time.Millisecond, Manual: true}, clock)

	r.Step() // first step latches one tick
	if ticks, _ := r.Pending(); ticks != 1 {
		t.Fatalf("first Step: ticks = %d, want 1", ticks)
	}

	now = now.Add(2500 * time.Microsecond)
	r.Step()
	if ticks, _ := r.Pending(); ticks != 2 {
		t.Fatalf("after 2.5ms: ticks = %d, want 2", ticks)
	}

	now = now.Add(600 * time.Microsecond) // 0.5ms carried + 0.6ms
	r.Step()
	if ticks, _ := r.Pending(); ticks != 1 {
		t.Fatalf("after carry: ticks = %d, want 1", ticks)
	}
}

func TestRealTimeRaiseWakes(t *testing.T) {
	r := NewRealTime(RealTimeConfig{Manual: true})

	done := make(chan struct{})
	go func() {
		r.WaitForInterrupt()
		close(done)
	}()
	r.Raise(IRQKeyboard)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForInterrupt did not return after Raise")
	}
	ticks, lines := r.Pending()
	if ticks != 0 || lines != 1<<IRQKeyboard {
		t.Fatalf("Pending() = %d, %#x, want 0, %#x", ticks, lines, 1<<IRQKeyboard)
	}
}

func TestRealTimeTicker(t *testing.T) {
	r := NewRealTime(RealTimeConfig{Tick: time.Millisecond})
	r.Init()
	defer r.Close()

	r.WaitForInterrupt()
	if ticks, _ := r.Pending(); ticks == 0 {
		t.Fatal("expected ticks from the ticker")
	}
}
