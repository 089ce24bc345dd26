//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"sparkrt/kernel"
)

// HostConfig configures the host HAL.
type HostConfig struct {
	Width, Height int
	Port          RealTimeConfig
	Log           io.Writer
}

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	port   *RealTime
}

// New returns a host HAL implementation with a 320x320 framebuffer and a
// millisecond tick.
func New() HAL {
	return NewHost(HostConfig{})
}

func NewHost(cfg HostConfig) HAL {
	return newHostHAL(cfg)
}

func newHostHAL(cfg HostConfig) *hostHAL {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 320, 320
	}
	if cfg.Log == nil {
		cfg.Log = os.Stdout
	}
	logger := &hostLogger{w: cfg.Log}
	port := NewRealTime(cfg.Port)
	return &hostHAL{
		logger: logger,
		led:    &hostLED{},
		fb:     newHostFramebuffer(cfg.Width, cfg.Height),
		kbd:    newHostKeyboard(func() { port.Raise(IRQKeyboard) }),
		port:   port,
	}
}

func (h *hostHAL) Logger() Logger    { return h.logger }
func (h *hostHAL) LED() LED          { return h.led }
func (h *hostHAL) Display() Display  { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input      { return hostInput{kbd: h.kbd} }
func (h *hostHAL) Port() kernel.Port { return h.port }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

var _ LevelLED = (*hostLED)(nil)

// hostLED remembers its level; the monitor shows it instead of logging
// every edge.
type hostLED struct {
	mu sync.Mutex
	on bool
}

func (l *hostLED) High() { l.set(true) }
func (l *hostLED) Low()  { l.set(false) }

func (l *hostLED) set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = on
}

// On reports the LED level.
func (l *hostLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
