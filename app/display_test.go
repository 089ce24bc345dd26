package app

import (
	"image/color"
	"testing"

	"sparkrt/hal"
	"sparkrt/internal/trace"
	"sparkrt/kernel"

	"github.com/stretchr/testify/assert"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func rgbAt(fb hal.Framebuffer, x, y int) color.RGBA {
	r, g, b := hal.RGBAt(fb, x, y)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func TestPanelClipsToBand(t *testing.T) {
	fb := newMemFB(8, 8)
	p := newPanel(fb, 2, 4)

	w, h := p.Size()
	assert.Equal(t, [2]int16{8, 4}, [2]int16{w, h})

	_ = p.FillRectangle(-2, -2, 20, 20, red)
	assert.Equal(t, colorBG, rgbAt(fb, 0, 1))
	assert.Equal(t, red, rgbAt(fb, 0, 2))
	assert.Equal(t, red, rgbAt(fb, 7, 5))
	assert.Equal(t, colorBG, rgbAt(fb, 7, 6))

	p.SetPixel(3, 4, blue)
	assert.Equal(t, colorBG, rgbAt(fb, 3, 6))
	p.SetPixel(3, 0, blue)
	assert.Equal(t, blue, rgbAt(fb, 3, 2))
}

func TestPanelScrollUp(t *testing.T) {
	fb := newMemFB(4, 8)
	fb.ClearRGB(0, 0, 255)
	p := newPanel(fb, 4, 4)
	p.SetPixel(1, 3, red)

	assert.NoError(t, p.ScrollUp(2, colorBG))
	assert.Equal(t, red, rgbAt(fb, 1, 5))
	assert.Equal(t, colorBG, rgbAt(fb, 1, 7))
	assert.Equal(t, blue, rgbAt(fb, 1, 3), "rows above the panel are untouched")

	assert.NoError(t, p.ScrollUp(10, colorBG))
	assert.Equal(t, colorBG, rgbAt(fb, 1, 5))
}

func TestTakeRunes(t *testing.T) {
	tests := []struct {
		s          string
		n          int16
		head, tail string
	}{
		{"hello", 3, "hel", "lo"},
		{"hi", 3, "hi", ""},
		{"héllo", 2, "hé", "llo"},
		{"", 3, "", ""},
		{"abc", 0, "", "abc"},
	}
	for _, tt := range tests {
		head, tail := takeRunes(tt.s, tt.n)
		assert.Equal(t, tt.head, head, "takeRunes(%q, %d)", tt.s, tt.n)
		assert.Equal(t, tt.tail, tail, "takeRunes(%q, %d)", tt.s, tt.n)
	}
}

func TestFaultLines(t *testing.T) {
	f := kernel.Fault{
		Kind:   kernel.FaultUsage,
		Thread: "worker",
		Reason: "mutex not owned by caller",
		Stack:  []byte("main.f()\n\tmain.go:3\n\n"),
	}
	assert.Equal(t, []string{
		"kernel halt: usage",
		"thread: worker",
		"reason: mutex not owned by caller",
		"stack:",
		"main.f()",
		"  main.go:3",
	}, faultLines(f))

	f.Stack, f.Value = nil, "boom"
	assert.Equal(t, []string{"value: boom", "stack: unavailable"}, faultLines(f)[3:])
}

func TestMonitorColumn(t *testing.T) {
	m := newMonitor(nil, 100)
	from := kernel.Tick(0) - 10

	assert.Equal(t, 0, m.column(from, from, 200))
	assert.Equal(t, 100, m.column(from+50, from, 200))
	assert.Equal(t, 200, m.column(from+100, from, 200))
	assert.Equal(t, 0, m.column(from-5, from, 200), "before the window")
}

func TestMonitorDrawsBars(t *testing.T) {
	fb := newMemFB(64+100, 60)
	m := newMonitor(newPanel(fb, 0, 60), 100)
	m.draw(frame{
		Now: 100,
		Threads: []trace.ThreadStats{
			{ID: 1, Name: "a"},
			{ID: 2, Name: "b"},
		},
		Spans: []trace.Span{
			{Thread: 2, Start: 0, End: 50},
			{Thread: 1, Start: 50, End: 100},
		},
	})

	rowA := int(fontHeight) + rowHeight/2
	rowB := rowA + rowHeight
	a, b := threadColors[0], threadColors[1]
	rgb565 := func(c color.RGBA) color.RGBA {
		fb := newMemFB(1, 1)
		hal.SetPixelRGB(fb, 0, 0, c.R, c.G, c.B)
		return rgbAt(fb, 0, 0)
	}

	assert.Equal(t, rgb565(b), rgbAt(fb, labelWidth+10, rowB))
	assert.Equal(t, colorBG, rgbAt(fb, labelWidth+10, rowA))
	assert.Equal(t, rgb565(a), rgbAt(fb, labelWidth+70, rowA))
	assert.Equal(t, colorBG, rgbAt(fb, labelWidth+70, rowB))
}
