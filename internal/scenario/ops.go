package scenario

import (
	"fmt"

	"sparkrt/kernel"
)

type step func()

// threadRun is the per-thread state of a scenario thread.
type threadRun struct {
	r     *runner
	spec  *ThreadSpec
	steps []step
	prev  kernel.Tick
}

func (t *threadRun) entry(any) kernel.Msg {
	k := t.r.k
	t.prev = k.Now()
	loops := uint32(1)
	if t.spec.Loop != nil {
		loops = *t.spec.Loop
	}
	for i := uint32(0); loops == 0 || i < loops; i++ {
		for _, s := range t.steps {
			s()
		}
	}
	return kernel.MsgOK
}

func (t *threadRun) note(format string, args ...any) {
	t.r.note(t.spec.Name, format, args...)
}

func timeout(op *OpSpec) kernel.Interval {
	if op.Timeout == nil {
		return kernel.TimeInfinite
	}
	return kernel.Interval(*op.Timeout)
}

// compile resolves the targets of every op and turns it into a step.
func (t *threadRun) compile() error {
	for _, op := range t.spec.Ops {
		s, err := t.compileOp(op)
		if err != nil {
			return fmt.Errorf("%s: thread %q: %w", op.DefRange, t.spec.Name, err)
		}
		t.steps = append(t.steps, s)
	}
	return nil
}

func (t *threadRun) compileOp(op *OpSpec) (step, error) {
	r := t.r
	k := r.k
	to := timeout(op)
	mask := kernel.EventMask(op.Mask)

	switch op.Kind {
	case "sleep":
		return func() { k.Sleep(kernel.Interval(op.Ticks)) }, nil
	case "spin":
		return func() { k.Spin(kernel.Interval(op.Ticks)) }, nil
	case "yield":
		return k.Yield, nil
	case "periodic":
		return func() { t.prev = k.SleepUntilWindowed(t.prev, t.prev.Add(kernel.Interval(op.Ticks))) }, nil
	case "log":
		return func() { t.note("%s", op.Text) }, nil
	case "exit":
		return func() {
			t.note("exit %d", op.Code)
			k.Exit(kernel.Msg(op.Code))
		}, nil
	case "panic":
		return func() { panic(op.Text) }, nil
	case "set_priority":
		return func() {
			old := k.SetPriority(kernel.Priority(op.Priority))
			t.note("priority %d -> %d", old, op.Priority)
		}, nil
	case "unlock_all":
		return func() {
			k.UnlockAll()
			t.note("unlock all")
		}, nil

	case "wait", "signal", "reset":
		sem := r.sems[op.Target]
		if sem == nil {
			break
		}
		switch op.Kind {
		case "wait":
			return func() { t.note("wait %s: %s", op.Target, sem.WaitTimeout(to)) }, nil
		case "signal":
			return func() {
				t.note("signal %s", op.Target)
				sem.Signal()
			}, nil
		default:
			return func() {
				t.note("reset %s to %d", op.Target, op.Count)
				sem.Reset(op.Count)
			}, nil
		}

	case "lock", "trylock", "unlock":
		m := r.mutexes[op.Target]
		if m == nil {
			break
		}
		switch op.Kind {
		case "lock":
			return func() {
				msg := m.LockTimeout(to)
				t.note("lock %s: %s", op.Target, msg)
			}, nil
		case "trylock":
			return func() { t.note("trylock %s: %t", op.Target, m.TryLock()) }, nil
		default:
			return func() {
				t.note("unlock %s", op.Target)
				m.Unlock()
			}, nil
		}

	case "post", "post_ahead", "fetch":
		mb := r.mailboxes[op.Target]
		if mb == nil {
			break
		}
		switch op.Kind {
		case "post":
			return func() { t.note("post %s %s: %s", op.Target, op.Value, mb.Post(op.Value, to)) }, nil
		case "post_ahead":
			return func() { t.note("post ahead %s %s: %s", op.Target, op.Value, mb.PostAhead(op.Value, to)) }, nil
		default:
			return func() {
				v, msg := mb.Fetch(to)
				if msg != kernel.MsgOK {
					t.note("fetch %s: %s", op.Target, msg)
					return
				}
				t.note("fetch %s: %v", op.Target, v)
			}, nil
		}

	case "broadcast", "wait_event":
		src := r.events[op.Target]
		if src == nil {
			break
		}
		if op.Kind == "broadcast" {
			return func() {
				t.note("broadcast %s %#x", op.Target, op.Mask)
				src.Broadcast(mask)
			}, nil
		}
		return func() {
			got, msg := src.Wait(mask, to)
			t.note("wait event %s: %#x %s", op.Target, uint32(got), msg)
		}, nil

	case "send":
		return func() {
			target := r.threads[op.Target]
			if target == nil {
				t.note("send %s: not started", op.Target)
				return
			}
			t.note("send %s %s", op.Target, op.Value)
			t.note("send %s: %s", op.Target, k.Send(target, op.Value, to))
		}, nil
	case "receive":
		return func() {
			sender, payload, msg := k.WaitMessageTimeout(to)
			if msg != kernel.MsgOK {
				t.note("receive: %s", msg)
				return
			}
			t.note("receive %v from %s", payload, sender.Name())
			k.ReleaseMessage(sender, kernel.Msg(op.Reply))
		}, nil

	case "signal_events":
		return func() {
			target := r.threads[op.Target]
			if target == nil {
				t.note("signal events %s: not started", op.Target)
				return
			}
			t.note("signal events %s %#x", op.Target, op.Mask)
			k.SignalEvents(target, mask)
		}, nil
	case "wait_any":
		return func() { t.note("wait any %#x: %#x", op.Mask, uint32(k.WaitAnyEvents(mask, to))) }, nil
	case "wait_all":
		return func() { t.note("wait all %#x: %#x", op.Mask, uint32(k.WaitAllEvents(mask, to))) }, nil
	case "clear_events":
		return func() { k.ClearEvents(mask) }, nil
	}
	return nil, fmt.Errorf("op %q with target %q cannot be resolved", op.Kind, op.Target)
}
