package hal

import "runtime"

// goContext is an execution context backed by a goroutine. Exactly one
// context runs at a time: a switch wakes the target and parks the caller on
// its own channel.
type goContext struct {
	wake    chan struct{}
	entry   func()
	started bool
}

func newBootContext() *goContext {
	return &goContext{wake: make(chan struct{}, 1), started: true}
}

func newGoContext(entry func()) *goContext {
	return &goContext{wake: make(chan struct{}, 1), entry: entry}
}

func (c *goContext) resume() {
	if !c.started {
		c.started = true
		go c.entry()
		return
	}
	c.wake <- struct{}{}
}

// switchContext resumes to and parks from until it is resumed.
func switchContext(from, to any) {
	f := from.(*goContext)
	to.(*goContext).resume()
	<-f.wake
}

// exitContext resumes to and ends the calling goroutine.
func exitContext(_, to any) {
	to.(*goContext).resume()
	runtime.Goexit()
}
