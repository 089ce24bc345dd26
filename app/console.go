package app

import (
	"image/color"
	"sync"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

var (
	font       tinyfont.Fonter = &proggy.TinySZ8pt7b
	fontHeight int16           = 10
	fontOffset int16           = 6

	colorBG   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	colorText = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// console is a scrolling text terminal on a panel. It is an io.Writer, so
// the system logger can print to it.
type console struct {
	mu sync.Mutex
	p  *panel
	t  *tinyterm.Terminal
}

func newConsole(p *panel) *console {
	c := &console{p: p}
	c.reset()
	return c
}

func (c *console) reset() {
	c.p.clear(colorBG)
	c.t = tinyterm.NewTerminal(c.p)
	c.t.Configure(&tinyterm.Config{
		Font:              font,
		FontHeight:        fontHeight,
		FontOffset:        fontOffset,
		UseSoftwareScroll: true,
	})
}

func (c *console) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.Write(b)
}

// Clear blanks the console and homes the cursor.
func (c *console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}
