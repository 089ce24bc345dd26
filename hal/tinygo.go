//go:build tinygo && baremetal

package hal

import (
	"machine"

	"sparkrt/kernel"
)

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	fb     Framebuffer
	kbd    Keyboard
	port   *RealTime
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1. The kernel tick is one
// millisecond, driven by the runtime timer.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		fb:     newRAMFramebuffer(320, 320),
		kbd:    noKeyboard{},
		port:   NewRealTime(RealTimeConfig{}),
	}
}

func (h *tinyGoHAL) Logger() Logger    { return h.logger }
func (h *tinyGoHAL) LED() LED          { return h.led }
func (h *tinyGoHAL) Display() Display  { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Input() Input      { return tinyGoInput{kbd: h.kbd} }
func (h *tinyGoHAL) Port() kernel.Port { return h.port }
