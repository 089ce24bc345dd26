package app

import (
	"image/color"

	"sparkrt/hal"

	"tinygo.org/x/drivers"
)

// panel is a horizontal band of the framebuffer that looks like a whole
// display to tinyfont and tinyterm. Coordinates are panel-relative.
type panel struct {
	fb     hal.Framebuffer
	top    int
	height int
}

func newPanel(fb hal.Framebuffer, top, height int) *panel {
	if fb != nil {
		top = clampInt(top, 0, fb.Height())
		height = clampInt(height, 0, fb.Height()-top)
	}
	return &panel{fb: fb, top: top, height: height}
}

func (p *panel) Size() (x, y int16) {
	if p.fb == nil {
		return 0, 0
	}
	return int16(p.fb.Width()), int16(p.height)
}

func (p *panel) SetPixel(x, y int16, c color.RGBA) {
	if y < 0 || int(y) >= p.height {
		return
	}
	hal.SetPixelRGB(p.fb, int(x), p.top+int(y), c.R, c.G, c.B)
}

// Display is a no-op; the owner presents the framebuffer once per frame.
func (p *panel) Display() error { return nil }

func (p *panel) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if p.fb == nil {
		return nil
	}
	y0 := clampInt(int(y), 0, p.height)
	y1 := clampInt(int(y)+int(height), 0, p.height)
	if y0 >= y1 {
		return nil
	}
	hal.FillRectRGB(p.fb, int(x), p.top+y0, int(width), y1-y0, c.R, c.G, c.B)
	return nil
}

// ScrollUp moves the panel contents up by lines pixels and clears the rows
// that become free at the bottom.
func (p *panel) ScrollUp(lines int16, bg color.RGBA) error {
	if p.fb == nil || p.fb.Format() != hal.PixelFormatRGB565 || lines <= 0 {
		return nil
	}
	w := int16(p.fb.Width())
	n := int(lines)
	if n >= p.height {
		return p.FillRectangle(0, 0, w, int16(p.height), bg)
	}
	buf := p.fb.Buffer()
	stride := p.fb.StrideBytes()
	dst := p.top * stride
	src := (p.top + n) * stride
	end := (p.top + p.height) * stride
	if end > len(buf) {
		end = len(buf)
	}
	if src < end {
		copy(buf[dst:], buf[src:end])
	}
	return p.FillRectangle(0, int16(p.height-n), w, int16(n), bg)
}

func (p *panel) SetScroll(line int16) {}

func (p *panel) SetRotation(rotation drivers.Rotation) error { return nil }

func (p *panel) clear(c color.RGBA) {
	w, h := p.Size()
	_ = p.FillRectangle(0, 0, w, h, c)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
