package kernel

// Mailbox is a bounded queue of values built on two counting semaphores, one
// counting free slots and one counting filled slots.
type Mailbox struct {
	_      [0]func() // prevent accidental copying.
	k      *Kernel
	slots  []any
	rd, wr int
	free   Semaphore
	filled Semaphore
	gen    uint32 // bumped by Reset
}

// NewMailbox returns an empty mailbox with size slots.
func NewMailbox(k *Kernel, size int) *Mailbox {
	mb := &Mailbox{}
	mb.Init(k, make([]any, size))
	return mb
}

// Init sets up an empty mailbox over slots.
func (mb *Mailbox) Init(k *Kernel, slots []any) {
	if len(slots) == 0 {
		k.halt(FaultUsage, "mailbox without slots", nil)
	}
	mb.k = k
	mb.slots = slots
	mb.rd, mb.wr = 0, 0
	mb.free.Init(k, int32(len(slots)))
	mb.filled.Init(k, 0)
}

// Cap returns the number of slots.
func (mb *Mailbox) Cap() int { return len(mb.slots) }

// Len returns the number of queued values.
func (mb *Mailbox) Len() int {
	mb.k.Lock()
	defer mb.k.Unlock()
	return mb.lenI()
}

func (mb *Mailbox) lenI() int {
	if n := mb.filled.count; n > 0 {
		return int(n)
	}
	return 0
}

// Post queues v, waiting up to timeout ticks for a free slot. It returns
// MsgOK, MsgTimeout, or MsgReset if the mailbox was reset meanwhile.
func (mb *Mailbox) Post(v any, timeout Interval) Msg {
	return mb.post(v, timeout, false)
}

// PostAhead is Post but v is fetched before anything already queued.
func (mb *Mailbox) PostAhead(v any, timeout Interval) Msg {
	return mb.post(v, timeout, true)
}

func (mb *Mailbox) post(v any, timeout Interval, ahead bool) Msg {
	k := mb.k
	k.assertThreadContext("Mailbox.Post")
	k.Lock()
	gen := mb.gen
	msg := mb.free.waitTimeoutS(timeout)
	if msg == MsgOK && mb.gen != gen {
		// Woken for a slot that a reset took back before we ran.
		msg = MsgReset
	}
	if msg == MsgOK {
		mb.putI(v, ahead)
		mb.filled.SignalI()
		k.rescheduleS()
	}
	k.Unlock()
	return msg
}

// PostI queues v if a slot is free. It returns MsgTimeout when full.
func (mb *Mailbox) PostI(v any) Msg {
	mb.k.assertLocked("Mailbox.PostI")
	if mb.free.count <= 0 {
		return MsgTimeout
	}
	mb.free.count--
	mb.putI(v, false)
	mb.filled.SignalI()
	return MsgOK
}

func (mb *Mailbox) putI(v any, ahead bool) {
	if ahead {
		mb.rd = (mb.rd + len(mb.slots) - 1) % len(mb.slots)
		mb.slots[mb.rd] = v
		return
	}
	mb.slots[mb.wr] = v
	mb.wr = (mb.wr + 1) % len(mb.slots)
}

// Fetch takes the oldest value, waiting up to timeout ticks for one.
func (mb *Mailbox) Fetch(timeout Interval) (any, Msg) {
	k := mb.k
	k.assertThreadContext("Mailbox.Fetch")
	k.Lock()
	var v any
	gen := mb.gen
	msg := mb.filled.waitTimeoutS(timeout)
	if msg == MsgOK && mb.gen != gen {
		msg = MsgReset
	}
	if msg == MsgOK {
		v = mb.takeI()
		mb.free.SignalI()
		k.rescheduleS()
	}
	k.Unlock()
	return v, msg
}

// FetchI takes the oldest value if there is one.
func (mb *Mailbox) FetchI() (any, Msg) {
	mb.k.assertLocked("Mailbox.FetchI")
	if mb.filled.count <= 0 {
		return nil, MsgTimeout
	}
	mb.filled.count--
	v := mb.takeI()
	mb.free.SignalI()
	return v, MsgOK
}

func (mb *Mailbox) takeI() any {
	v := mb.slots[mb.rd]
	mb.slots[mb.rd] = nil
	mb.rd = (mb.rd + 1) % len(mb.slots)
	return v
}

// Reset empties the mailbox. Threads waiting to post or fetch get MsgReset.
func (mb *Mailbox) Reset() {
	k := mb.k
	k.Lock()
	mb.gen++
	mb.free.ResetI(int32(len(mb.slots)))
	mb.filled.ResetI(0)
	for i := range mb.slots {
		mb.slots[i] = nil
	}
	mb.rd, mb.wr = 0, 0
	k.rescheduleS()
	k.Unlock()
}
