package kernel_test

import (
	"errors"
	"testing"

	"sparkrt/hal"
	"sparkrt/kernel"
)

func TestJoinReturnsExitCode(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	returned := spawn(t, k, "ret", kernel.PrioNormal-1, func() kernel.Msg { return 42 })
	exited := spawn(t, k, "exit", kernel.PrioNormal-1, func() kernel.Msg {
		k.Exit(5)
		t.Error("Exit returned")
		return 0
	})
	if n := len(k.Threads()); n != 4 {
		t.Fatalf("len(Threads()) = %d, want 4", n)
	}
	if code := k.Join(returned); code != 42 {
		t.Fatalf("Join(ret) = %v, want 42", code)
	}
	if code := k.Join(exited); code != 5 {
		t.Fatalf("Join(exit) = %v, want 5", code)
	}
	if returned.State() != kernel.StateTerminated {
		t.Fatalf("state = %v, want %v", returned.State(), kernel.StateTerminated)
	}
	if n := len(k.Threads()); n != 2 {
		t.Fatalf("len(Threads()) after join = %d, want 2", n)
	}
}

func TestReclaimAfterJoin(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	var reclaimed []byte
	stack := make([]byte, 128)
	th, err := k.Create(kernel.ThreadConfig{
		Name:     "w",
		Priority: kernel.PrioNormal + 1,
		Stack:    stack,
		Entry:    func(any) kernel.Msg { return kernel.MsgOK },
		Reclaim:  func(s []byte) { reclaimed = s },
	})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if reclaimed != nil {
		t.Fatal("stack reclaimed while referenced")
	}
	k.Join(th)
	if len(reclaimed) != len(stack) || &reclaimed[0] != &stack[0] {
		t.Fatal("Reclaim not called with the thread stack")
	}
}

func TestReleaseBeforeExit(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	reclaimed := false
	th, err := k.Create(kernel.ThreadConfig{
		Name:     "detached",
		Priority: kernel.PrioNormal - 1,
		Stack:    make([]byte, 128),
		Entry:    func(any) kernel.Msg { return kernel.MsgOK },
		Reclaim:  func([]byte) { reclaimed = true },
	})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	k.Release(th)
	if reclaimed {
		t.Fatal("running thread reclaimed on release")
	}
	k.Sleep(1)
	if !reclaimed {
		t.Fatal("released thread not reclaimed on exit")
	}
	for _, r := range k.Threads() {
		if r == th {
			t.Fatal("reclaimed thread still listed")
		}
	}
}

func TestReclaimMayReuseStack(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	reclaimed := false
	th, err := k.Create(kernel.ThreadConfig{
		Name:     "w",
		Priority: kernel.PrioNormal - 1,
		Stack:    make([]byte, 128),
		Entry:    func(any) kernel.Msg { return kernel.MsgOK },
		Reclaim: func(s []byte) {
			clear(s)
			reclaimed = true
		},
	})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	k.Release(th)
	k.Sleep(1)
	if !reclaimed {
		t.Fatal("released thread not reclaimed on exit")
	}
	if f := k.Fault(); f != nil {
		t.Fatalf("Fault() = %v, want nil", f)
	}
}

func TestJoinBySecondThread(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	reclaims := 0
	target, err := k.Create(kernel.ThreadConfig{
		Name:     "target",
		Priority: kernel.PrioNormal - 1,
		Stack:    make([]byte, 128),
		Entry: func(any) kernel.Msg {
			k.Sleep(5)
			return 7
		},
		Reclaim: func([]byte) { reclaims++ },
	})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	var second kernel.Msg
	joiner := spawn(t, k, "joiner", kernel.PrioNormal+1, func() kernel.Msg {
		second = k.Join(target)
		return kernel.MsgOK
	})
	if code := k.Join(target); code != 7 {
		t.Fatalf("Join() = %v, want 7", code)
	}
	k.Join(joiner)
	if second != 7 {
		t.Fatalf("Join() from joiner = %v, want 7", second)
	}
	if reclaims != 1 {
		t.Fatalf("Reclaim called %d times, want 1", reclaims)
	}
	if n := len(k.Threads()); n != 2 {
		t.Fatalf("len(Threads()) = %d, want 2", n)
	}
}

func TestCreateErrors(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)
	entry := func(any) kernel.Msg { return 0 }

	tests := []struct {
		name string
		cfg  kernel.ThreadConfig
		want error
	}{
		{"no entry", kernel.ThreadConfig{Priority: kernel.PrioNormal, Stack: make([]byte, 256)}, kernel.ErrNoEntry},
		{"idle priority", kernel.ThreadConfig{Priority: kernel.PrioIdle, Stack: make([]byte, 256), Entry: entry}, kernel.ErrBadPriority},
		{"small stack", kernel.ThreadConfig{Priority: kernel.PrioNormal, Stack: make([]byte, 8), Entry: entry}, kernel.ErrStackTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := k.Create(tt.cfg); !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateBeforeStart(t *testing.T) {
	k := kernel.New(hal.NewSim(hal.SimConfig{}), kernel.DefaultConfig())

	_, err := k.Create(kernel.ThreadConfig{
		Priority: kernel.PrioNormal,
		Stack:    make([]byte, 256),
		Entry:    func(any) kernel.Msg { return 0 },
	})
	if !errors.Is(err, kernel.ErrNotStarted) {
		t.Fatalf("Create() error = %v, want %v", err, kernel.ErrNotStarted)
	}
}

func TestTerminateIsCooperative(t *testing.T) {
	k, _ := newKernel(t, kernel.PrioNormal)

	loops := 0
	w := spawn(t, k, "w", kernel.PrioNormal+1, func() kernel.Msg {
		for !k.Self().ShouldTerminate() {
			loops++
			k.Sleep(1)
		}
		return kernel.MsgReset
	})
	k.Sleep(3)
	w.Terminate()
	if code := k.Join(w); code != kernel.MsgReset {
		t.Fatalf("Join() = %v, want reset", code)
	}
	if loops < 3 {
		t.Fatalf("loops = %d, want at least 3", loops)
	}
}
