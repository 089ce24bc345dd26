package kernel

// Synchronous messages. A sender queues itself on the receiving thread and
// stays blocked until the receiver releases it with a reply. The payload is
// handed over by reference; it belongs to the receiver until the release.

// Send delivers payload to target and waits for the reply.
//
// timeout bounds the time spent queued. With TimeImmediate the send only
// succeeds if target is already waiting for a message. Once the receiver has
// taken the message the sender waits for the reply without a timeout. The
// result is the reply, MsgTimeout, or MsgReset if target terminated.
func (k *Kernel) Send(target *Thread, payload any, timeout Interval) Msg {
	k.assertThreadContext("Send")
	k.Lock()
	c := k.curr
	if !k.check(target != nil && target != c, "invalid message target") {
		k.Unlock()
		return MsgReset
	}
	if target.state == StateTerminated {
		k.Unlock()
		return MsgReset
	}
	if timeout == TimeImmediate {
		if target.state != StateWaitMessage {
			k.Unlock()
			return MsgTimeout
		}
		timeout = TimeInfinite
	}

	c.payload = payload
	c.waitObj = target
	k.link(&target.senders, c)
	if target.state == StateWaitMessage {
		k.wakeI(target, MsgOK)
	}
	msg := k.suspendTimeoutS(StateSendQueued, timeout)
	c.payload = nil
	k.Unlock()
	return msg
}

// WaitMessage waits for the next sender and returns it with its payload.
// The sender stays blocked until ReleaseMessage, or gets MsgReset if the
// caller exits first.
func (k *Kernel) WaitMessage() (*Thread, any) {
	s, p, _ := k.WaitMessageTimeout(TimeInfinite)
	return s, p
}

// PollMessage takes a queued message if there is one.
func (k *Kernel) PollMessage() (*Thread, any, bool) {
	s, p, msg := k.WaitMessageTimeout(TimeImmediate)
	return s, p, msg == MsgOK
}

// WaitMessageTimeout waits up to timeout ticks for a sender.
func (k *Kernel) WaitMessageTimeout(timeout Interval) (*Thread, any, Msg) {
	k.assertThreadContext("WaitMessage")
	k.Lock()
	defer k.Unlock()
	c := k.curr
	for c.senders.empty() {
		if timeout == TimeImmediate {
			return nil, nil, MsgTimeout
		}
		if msg := k.suspendTimeoutS(StateWaitMessage, timeout); msg != MsgOK {
			return nil, nil, msg
		}
	}
	s := c.senders.popFront()
	if s.timeout.Armed() {
		k.DisarmI(&s.timeout)
	}
	s.state = StateWaitReply
	return s, s.payload, MsgOK
}

// ReleaseMessage ends the exchange with sender, which must be waiting for a
// reply from the caller. reply becomes the result of its Send.
func (k *Kernel) ReleaseMessage(sender *Thread, reply Msg) {
	k.Lock()
	if k.check(sender.state == StateWaitReply && sender.waitObj == k.curr, "sender not waiting for a reply from caller") {
		k.wakeI(sender, reply)
		k.rescheduleS()
	}
	k.Unlock()
}
