//go:build !tinygo

package hal

// hostKeyboard queues key events for the kernel side and raises the keyboard
// interrupt line for each one.
type hostKeyboard struct {
	ch     chan KeyEvent
	notify func()
}

func newHostKeyboard(notify func()) *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64), notify: notify}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

// emit drops the event when the queue is full.
func (k *hostKeyboard) emit(ev KeyEvent) {
	select {
	case k.ch <- ev:
		if k.notify != nil {
			k.notify()
		}
	default:
	}
}
