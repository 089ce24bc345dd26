//go:build tinygo && bootdebug

package app

import (
	"sync"
	"time"

	"machine"

	"tinygo.org/x/tinyfont"
)

var (
	bootDiagMu   sync.Mutex
	bootDiagStep string
	bootDiagOnce sync.Once
)

// bootStep records how far boot got and shows it on screen. A heartbeat
// goroutine repeats the last step on the logger and USB CDC, so a board that
// hangs early still tells where.
func (s *system) bootStep(msg string) {
	bootDiagMu.Lock()
	bootDiagStep = msg
	bootDiagMu.Unlock()
	bootDiagOnce.Do(s.bootHeartbeat)

	if s.con == nil {
		return
	}
	p := s.con.p
	p.clear(colorBG)
	tinyfont.WriteLine(p, font, 0, fontOffset, "sparkrt boot", colorHeader)
	tinyfont.WriteLine(p, font, 0, fontHeight+fontOffset, msg, colorText)
	_ = s.h.Display().Framebuffer().Present()
}

func (s *system) bootHeartbeat() {
	l := s.h.Logger()
	go func() {
		for {
			bootDiagMu.Lock()
			step := bootDiagStep
			bootDiagMu.Unlock()

			line := "bootdiag: " + step
			if l != nil {
				l.WriteLineString(line)
			}
			if usb := machine.USBCDC; usb != nil {
				_, _ = usb.Write([]byte(line + "\r\n"))
			}
			time.Sleep(250 * time.Millisecond)
		}
	}()
}
