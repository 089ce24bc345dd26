//go:build tinygo && baremetal

package hal

// ramFramebuffer is an RGB565 buffer with no panel behind it. The system
// draws into it as usual; Present has nowhere to send the frame.
type ramFramebuffer struct {
	w, h int
	buf  []byte
}

func newRAMFramebuffer(w, h int) *ramFramebuffer {
	return &ramFramebuffer{w: w, h: h, buf: make([]byte, w*h*2)}
}

func (f *ramFramebuffer) Width() int          { return f.w }
func (f *ramFramebuffer) Height() int         { return f.h }
func (f *ramFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *ramFramebuffer) StrideBytes() int    { return f.w * 2 }
func (f *ramFramebuffer) Buffer() []byte      { return f.buf }

func (f *ramFramebuffer) ClearRGB(r, g, b uint8) {
	FillRectRGB(f, 0, 0, f.w, f.h, r, g, b)
}

func (f *ramFramebuffer) Present() error { return nil }

// noKeyboard never produces events, so the keyboard thread is not started.
type noKeyboard struct{}

func (noKeyboard) Events() <-chan KeyEvent { return nil }
