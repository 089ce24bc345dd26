package kernel_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"sparkrt/kernel"
)

func TestDispatchPriorityThenCreationOrder(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioHighest)

	type spec struct {
		name string
		prio kernel.Priority
		seq  int
	}
	prios := []kernel.Priority{10, 50, 90}
	var specs []spec
	for i := 0; i < 12; i++ {
		specs = append(specs, spec{prio: prios[i%3]})
	}
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(specs), func(i, j int) { specs[i], specs[j] = specs[j], specs[i] })

	var ran []string
	var threads []*kernel.Thread
	for i := range specs {
		specs[i].seq = i
		specs[i].name = fmt.Sprintf("p%d-%02d", specs[i].prio, i)
		name := specs[i].name
		threads = append(threads, spawn(t, k, name, specs[i].prio, func() kernel.Msg {
			ran = append(ran, name)
			return kernel.MsgOK
		}))
	}
	if len(ran) != 0 {
		t.Fatalf("threads ran before main blocked: %v", ran)
	}
	for _, th := range threads {
		k.Join(th)
	}

	sort.SliceStable(specs, func(i, j int) bool { return specs[i].prio > specs[j].prio })
	for i, s := range specs {
		if ran[i] != s.name {
			t.Fatalf("ran = %v, want %s at %d", ran, s.name, i)
		}
	}
}

func TestCreateHigherPriorityPreempts(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	ran := false
	hi := spawn(t, k, "hi", kernel.PrioNormal+1, func() kernel.Msg {
		ran = true
		return kernel.MsgOK
	})
	if !ran {
		t.Fatal("higher-priority thread did not run before Create returned")
	}

	lo := spawn(t, k, "lo", kernel.PrioNormal, func() kernel.Msg { return kernel.MsgOK })
	if lo.State() != kernel.StateReady {
		t.Fatalf("equal-priority thread state = %v, want %v", lo.State(), kernel.StateReady)
	}
	k.Join(hi)
	k.Join(lo)
}

func TestYieldRotatesEqualPriority(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioHighest)

	var trail []string
	body := func(name string) func() kernel.Msg {
		return func() kernel.Msg {
			for i := 0; i < 3; i++ {
				trail = append(trail, fmt.Sprintf("%s%d", name, i))
				k.Yield()
			}
			return kernel.MsgOK
		}
	}
	a := spawn(t, k, "a", kernel.PrioNormal, body("a"))
	b := spawn(t, k, "b", kernel.PrioNormal, body("b"))
	k.Join(a)
	k.Join(b)

	want := []string{"a0", "b0", "a1", "b1", "a2", "b2"}
	if fmt.Sprint(trail) != fmt.Sprint(want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}
}

func TestRoundRobinShares(t *testing.T) {
	const (
		quantum = 4
		periods = 20
	)
	k, _ := newKernel(t, kernel.PrioHighest, func(c *kernel.Config) { c.Quantum = quantum })

	spinner := func() kernel.Msg {
		for !k.Self().ShouldTerminate() {
			k.Spin(1)
		}
		return kernel.MsgOK
	}
	a := spawn(t, k, "a", kernel.PrioNormal, spinner)
	b := spawn(t, k, "b", kernel.PrioNormal, spinner)

	k.Sleep(quantum * periods)

	ta, tb := a.RunTicks(), b.RunTicks()
	if ta+tb != quantum*periods {
		t.Fatalf("run ticks %d + %d, want %d in total", ta, tb, quantum*periods)
	}
	half := uint64(quantum * periods / 2)
	for _, got := range []uint64{ta, tb} {
		if got+quantum < half || got > half+quantum {
			t.Fatalf("run ticks = %d/%d, want %d ± %d each", ta, tb, half, quantum)
		}
	}

	a.Terminate()
	b.Terminate()
	k.Join(a)
	k.Join(b)
}

func TestNoRoundRobinWithoutQuantum(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioHighest, func(c *kernel.Config) { c.Quantum = 0 })

	spinner := func() kernel.Msg {
		for !k.Self().ShouldTerminate() {
			k.Spin(1)
		}
		return kernel.MsgOK
	}
	a := spawn(t, k, "a", kernel.PrioNormal, spinner)
	b := spawn(t, k, "b", kernel.PrioNormal, spinner)

	k.Sleep(20)
	if a.RunTicks() != 20 || b.RunTicks() != 0 {
		t.Fatalf("run ticks = %d/%d, want 20/0", a.RunTicks(), b.RunTicks())
	}
	a.Terminate()
	b.Terminate()
	k.Join(a)
	k.Join(b)
}

func TestSleepUntil(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)
	advance(k, sim, 3)

	k.SleepUntil(10)
	if got := k.Now(); got != 10 {
		t.Fatalf("Now() = %d, want 10", got)
	}
	k.SleepUntil(10)
	if got := k.Now(); got != 10 {
		t.Fatalf("SleepUntil(now) slept: Now() = %d", got)
	}
}

func TestSleepUntilWindowedKeepsPeriod(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)

	prev := k.Now()
	var wakes []kernel.Tick
	for i := 0; i < 3; i++ {
		prev = k.SleepUntilWindowed(prev, prev.Add(5))
		wakes = append(wakes, k.Now())
		advance(k, sim, 2) // work inside the period
	}
	want := []kernel.Tick{5, 10, 15}
	if fmt.Sprint(wakes) != fmt.Sprint(want) {
		t.Fatalf("wakes = %v, want %v", wakes, want)
	}
}

func TestSleepUntilWindowedLate(t *testing.T) {
	k, sim := newKernel(t, kernel.PrioNormal)
	advance(k, sim, 8)

	next := k.SleepUntilWindowed(0, 5)
	if next != 5 || k.Now() != 8 {
		t.Fatalf("late window: next = %d, now = %d, want 5, 8", next, k.Now())
	}
}

func TestSetPriorityYieldsToHigher(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	ran := false
	w := spawn(t, k, "w", kernel.PrioNormal-1, func() kernel.Msg {
		ran = true
		return kernel.MsgOK
	})
	if ran {
		t.Fatal("lower-priority thread ran early")
	}
	old := k.SetPriority(kernel.PrioNormal - 2)
	if old != kernel.PrioNormal {
		t.Fatalf("SetPriority() = %d, want %d", old, kernel.PrioNormal)
	}
	if !ran {
		t.Fatal("thread did not run after the caller lowered its priority")
	}
	k.Join(w)
}
