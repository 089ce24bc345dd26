package kernel

import "strconv"

// Priority orders threads. Higher values are more urgent.
type Priority uint8

const (
	// PrioNone is never a valid thread priority; it terminates queue scans.
	PrioNone Priority = 0
	// PrioIdle is reserved for the idle thread.
	PrioIdle    Priority = 1
	PrioLowest  Priority = 2
	PrioNormal  Priority = 128
	PrioHighest Priority = 255
)

// Tick is the system time. It wraps around.
type Tick uint32

// Interval is a relative amount of ticks.
type Interval uint32

const (
	// TimeImmediate makes a blocking call fail instead of blocking.
	TimeImmediate Interval = 0
	// TimeInfinite makes a blocking call wait without a timeout.
	TimeInfinite Interval = ^Interval(0)
)

// Add returns t advanced by d.
func (t Tick) Add(d Interval) Tick { return t + Tick(d) }

// Since returns the ticks elapsed from start to t.
//
// The result is correct across a wraparound as long as the real distance fits
// in an Interval.
func (t Tick) Since(start Tick) Interval { return Interval(t - start) }

// TimeWithin reports whether t lies in the window [start, end).
// An empty window (start == end) contains nothing.
func TimeWithin(t, start, end Tick) bool {
	return Interval(t-start) < Interval(end-start)
}

// Msg is a wake-up result, a message reply, or a thread exit code.
type Msg int32

const (
	MsgOK      Msg = 0
	MsgTimeout Msg = -1
	MsgReset   Msg = -2
)

func (m Msg) String() string {
	switch m {
	case MsgOK:
		return "ok"
	case MsgTimeout:
		return "timeout"
	case MsgReset:
		return "reset"
	default:
		return "msg(" + strconv.Itoa(int(m)) + ")"
	}
}

// EventMask is a set of event flags.
type EventMask uint32

// AllEvents matches every event flag.
const AllEvents EventMask = ^EventMask(0)

// State is the scheduling state of a thread.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateSleeping
	StateWaitSemaphore
	StateWaitMutex
	StateWaitMessage
	StateSendQueued
	StateWaitReply
	StateWaitEventSource
	StateWaitAnyEvents
	StateWaitAllEvents
	StateWaitJoin
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateWaitSemaphore:
		return "wait-semaphore"
	case StateWaitMutex:
		return "wait-mutex"
	case StateWaitMessage:
		return "wait-message"
	case StateSendQueued:
		return "send-queued"
	case StateWaitReply:
		return "wait-reply"
	case StateWaitEventSource:
		return "wait-event-source"
	case StateWaitAnyEvents:
		return "wait-any-events"
	case StateWaitAllEvents:
		return "wait-all-events"
	case StateWaitJoin:
		return "wait-join"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Blocked reports whether s is one of the waiting states.
func (s State) Blocked() bool {
	return s >= StateSleeping && s <= StateWaitJoin
}
