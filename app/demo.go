package app

import (
	"fmt"

	"sparkrt/hal"
	"sparkrt/kernel"
)

const (
	demoStackSize = 512

	blinkPeriod   = 250
	producePeriod = 40
	requestPeriod = 300
	inversionRun  = 600

	evKey kernel.EventMask = 1 << 0
)

// demo is the set of threads and objects the system runs.
type demo struct {
	s *system

	queue *kernel.Mailbox
	bus   *kernel.Mutex
	keys  *kernel.EventSource

	server *kernel.Thread
	kbd    <-chan hal.KeyEvent
}

type demoThread struct {
	name  string
	prio  kernel.Priority
	entry kernel.ThreadFunc
}

func (d *demo) start(s *system) error {
	k := s.k
	d.s = s
	d.queue = kernel.NewMailbox(k, 4)
	d.bus = kernel.NewMutex(k)
	d.keys = kernel.NewEventSource(k)
	if in := s.h.Input(); in != nil {
		if kb := in.Keyboard(); kb != nil {
			d.kbd = kb.Events()
		}
	}

	threads := []demoThread{
		{"server", 140, d.serve},
		{"blinker", 200, d.blink},
		{"producer", 100, d.produce},
		{"consumer", 90, d.consume},
		{"bus-lo", 60, d.busLow},
		{"bus-mid", 80, d.busMid},
		{"bus-hi", 120, d.busHigh},
		{"client", 70, d.request},
	}
	if d.kbd != nil {
		threads = append(threads, demoThread{"input", 180, d.input})
		k.SetIRQHandler(hal.IRQKeyboard, func(*kernel.Kernel) { d.keys.BroadcastI(evKey) })
	}
	for _, dt := range threads {
		t, err := k.Create(kernel.ThreadConfig{
			Name:     dt.name,
			Priority: dt.prio,
			Stack:    make([]byte, demoStackSize),
			Entry:    dt.entry,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", dt.name, err)
		}
		if dt.name == "server" {
			d.server = t
		}
	}
	return nil
}

func (d *demo) blink(any) kernel.Msg {
	k := d.s.k
	led := d.s.h.LED()
	if led == nil {
		return kernel.MsgOK
	}
	prev := k.Now()
	for on := true; ; on = !on {
		prev = k.SleepUntilWindowed(prev, prev.Add(blinkPeriod))
		if on {
			led.High()
		} else {
			led.Low()
		}
	}
}

func (d *demo) produce(any) kernel.Msg {
	k := d.s.k
	prev := k.Now()
	for n := 0; ; n++ {
		prev = k.SleepUntilWindowed(prev, prev.Add(producePeriod))
		switch msg := d.queue.Post(n, producePeriod); msg {
		case kernel.MsgOK:
		case kernel.MsgTimeout:
			d.s.log.Warn("queue full", "item", n)
		default:
			d.s.log.Info("post interrupted", "item", n, "msg", msg)
		}
	}
}

// consume is slower than the producer every few items, so the queue fills
// up now and then.
func (d *demo) consume(any) kernel.Msg {
	k := d.s.k
	for {
		v, msg := d.queue.Fetch(kernel.TimeInfinite)
		if msg != kernel.MsgOK {
			d.s.log.Info("fetch interrupted", "msg", msg)
			continue
		}
		n := v.(int)
		work := kernel.Interval(10)
		if n%8 == 7 {
			work = 200
		}
		k.Spin(work)
		if n%25 == 0 {
			d.s.log.Info("consumed", "item", n, "queued", d.queue.Len())
		}
	}
}

// busLow, busMid and busHigh are the classic priority inversion: the low
// thread holds the bus while the middle one burns the CPU. With priority
// inheritance the high thread waits only for the low one's critical section.
func (d *demo) busLow(any) kernel.Msg {
	k := d.s.k
	prev := k.Now()
	for {
		d.bus.Lock()
		k.Spin(30)
		d.bus.Unlock()
		prev = k.SleepUntilWindowed(prev, prev.Add(inversionRun))
	}
}

func (d *demo) busMid(any) kernel.Msg {
	k := d.s.k
	k.Sleep(10)
	prev := k.Now()
	for {
		k.Spin(60)
		prev = k.SleepUntilWindowed(prev, prev.Add(inversionRun))
	}
}

func (d *demo) busHigh(any) kernel.Msg {
	k := d.s.k
	k.Sleep(5)
	prev := k.Now()
	for {
		start := k.Now()
		d.bus.Lock()
		waited := k.Now().Since(start)
		d.bus.Unlock()
		d.s.log.Info("bus acquired", "waited", waited)
		prev = k.SleepUntilWindowed(prev, prev.Add(inversionRun))
	}
}

// serve doubles every request.
func (d *demo) serve(any) kernel.Msg {
	k := d.s.k
	for {
		sender, payload := k.WaitMessage()
		n, _ := payload.(int)
		k.ReleaseMessage(sender, kernel.Msg(2*n))
	}
}

func (d *demo) request(any) kernel.Msg {
	k := d.s.k
	prev := k.Now()
	for n := 1; ; n++ {
		prev = k.SleepUntilWindowed(prev, prev.Add(requestPeriod))
		reply := k.Send(d.server, n, 50)
		d.s.log.Debug("request", "n", n, "reply", reply)
	}
}

// input waits for the keyboard interrupt and drains the queued keys.
func (d *demo) input(any) kernel.Msg {
	k := d.s.k
	for {
		if _, msg := d.keys.Wait(evKey, kernel.TimeInfinite); msg != kernel.MsgOK {
			continue
		}
		for drained := false; !drained; {
			select {
			case ev := <-d.kbd:
				if ev.Press {
					d.key(k, ev)
				}
			default:
				drained = true
			}
		}
	}
}

func (d *demo) key(k *kernel.Kernel, ev hal.KeyEvent) {
	switch ev.Code {
	case hal.KeyF1:
		if d.s.con != nil {
			d.s.con.Clear()
		}
	case hal.KeyF2:
		d.s.log.Info("queue reset", "dropped", d.queue.Len())
		d.queue.Reset()
	case hal.KeyF3:
		panic("F3 pressed")
	case hal.KeyEnter:
		reply := k.Send(d.server, 21, kernel.TimeImmediate)
		d.s.log.Info("request", "n", 21, "reply", reply)
	default:
		if ev.Rune != 0 {
			d.s.log.Info("key", "rune", string(ev.Rune))
		}
	}
}
