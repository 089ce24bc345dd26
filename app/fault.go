package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"sparkrt/hal"
	"sparkrt/kernel"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

var (
	colorFaultBG = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorFaultFG = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// faultLines is the text of the fault screen.
func faultLines(f kernel.Fault) []string {
	lines := []string{
		"kernel halt: " + f.Kind.String(),
		fmt.Sprintf("thread: %s", f.Thread),
		"reason: " + f.Reason,
	}
	if f.Value != nil {
		lines = append(lines, fmt.Sprintf("value: %v", f.Value))
	}
	if len(f.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(f.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, strings.ReplaceAll(line, "\t", "  "))
	}
	return lines
}

// showFault logs f line by line and paints it over the whole screen. It runs
// from the kernel fault hook and must not call into the kernel.
func showFault(h hal.HAL, f kernel.Fault) {
	lines := faultLines(f)
	if l := h.Logger(); l != nil {
		for _, line := range lines {
			l.WriteLineString(line)
		}
	}

	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return
	}
	p := newPanel(fb, 0, fb.Height())
	p.clear(colorFaultBG)

	_, outbox := tinyfont.LineWidth(font, "0")
	fontWidth := int16(outbox)
	if fontWidth <= 0 {
		_ = fb.Present()
		return
	}
	w, maxH := p.Size()
	cols := w / fontWidth
	if cols <= 0 {
		cols = 1
	}

	y := int16(0)
	for _, line := range lines {
		for len(line) > 0 {
			if y+fontHeight > maxH {
				_ = fb.Present()
				return
			}
			chunk, rest := takeRunes(line, cols)
			drawTextLine(p, fontWidth, 0, y, chunk, colorFaultFG)
			y += fontHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = fb.Present()
}

// drawTextLine draws s on a fixed-width grid so that columns line up.
func drawTextLine(d drivers.Displayer, fontWidth, x0, y0 int16, s string, fg color.RGBA) {
	x := x0
	for _, r := range s {
		tinyfont.DrawChar(d, font, x, y0+fontOffset, r, fg)
		x += fontWidth
	}
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= int(n) {
		return s, ""
	}
	i := 0
	for count := int16(0); i < len(s) && count < n; count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], s[i:]
}
