package app

import (
	"fmt"
	"image/color"

	"sparkrt/internal/trace"
	"sparkrt/kernel"

	"tinygo.org/x/tinyfont"
)

const (
	labelWidth = 64
	rowHeight  = 10
	barHeight  = 6
)

var (
	colorHeader = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	colorLabel  = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	colorGrid   = color.RGBA{R: 40, G: 40, B: 40, A: 255}

	threadColors = []color.RGBA{
		{R: 0x4e, G: 0x9a, B: 0xf1, A: 255},
		{R: 0xf1, G: 0x6d, B: 0x4e, A: 255},
		{R: 0x6d, G: 0xd1, B: 0x5a, A: 255},
		{R: 0xd1, G: 0x5a, B: 0xc8, A: 255},
		{R: 0xe8, G: 0xd1, B: 0x4b, A: 255},
		{R: 0x4b, G: 0xd8, B: 0xe8, A: 255},
	}
)

// monitor draws a live Gantt chart of the last window ticks: one row per
// thread, a bar wherever the thread was running.
type monitor struct {
	p      *panel
	window kernel.Interval
}

func newMonitor(p *panel, window kernel.Interval) *monitor {
	if window == 0 {
		window = 1
	}
	return &monitor{p: p, window: window}
}

// frame is what the monitor shows at one instant.
type frame struct {
	Now      kernel.Tick
	Switches uint64
	LED      bool
	Threads  []trace.ThreadStats
	Spans    []trace.Span
}

func (m *monitor) snapshot(rec *trace.Recorder, now kernel.Tick, led bool) frame {
	return frame{
		Now:      now,
		Switches: rec.Switches(),
		LED:      led,
		Threads:  rec.Threads(now),
		Spans:    rec.Timeline(m.from(now), now),
	}
}

func (m *monitor) from(now kernel.Tick) kernel.Tick {
	return now - kernel.Tick(m.window)
}

func (m *monitor) draw(f frame) {
	m.p.clear(colorBG)
	led := "off"
	if f.LED {
		led = "on"
	}
	tinyfont.WriteLine(m.p, font, 0, fontOffset, fmt.Sprintf("t=%d sw=%d led=%s", f.Now, f.Switches, led), colorHeader)

	w, h := m.p.Size()
	chart := int(w) - labelWidth
	if chart <= 0 {
		return
	}
	rows := make(map[kernel.ThreadID]int, len(f.Threads))
	y := int(fontHeight)
	for i, st := range f.Threads {
		if y+rowHeight > int(h) {
			break
		}
		rows[st.ID] = i
		label := st.Name
		if st.Exited {
			label = "~" + label
		}
		tinyfont.WriteLine(m.p, font, 0, int16(y)+fontOffset, label, colorLabel)
		_ = m.p.FillRectangle(labelWidth, int16(y+rowHeight-1), int16(chart), 1, colorGrid)
		y += rowHeight
	}

	from := m.from(f.Now)
	for _, s := range f.Spans {
		i, ok := rows[s.Thread]
		if !ok {
			continue
		}
		x0, x1 := m.column(s.Start, from, chart), m.column(s.End, from, chart)
		if x1 <= x0 {
			x1 = x0 + 1
		}
		top := int(fontHeight) + i*rowHeight + (rowHeight-barHeight)/2
		c := threadColors[i%len(threadColors)]
		_ = m.p.FillRectangle(int16(labelWidth+x0), int16(top), int16(x1-x0), barHeight, c)
	}
}

// column maps t to a pixel column of a chart width pixels wide. Times before
// from clamp to the left edge.
func (m *monitor) column(t, from kernel.Tick, width int) int {
	d := t.Since(from)
	if d > m.window {
		d = 0
	}
	return int(uint64(d) * uint64(width) / uint64(m.window))
}
