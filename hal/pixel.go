package hal

func rgb565(r, g, b uint8) uint16 {
	rr := uint16(r>>3) & 0x1F
	gg := uint16(g>>2) & 0x3F
	bb := uint16(b>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

func rgb888From565(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	r = uint8((rr * 255) / 31)
	g = uint8((gg * 255) / 63)
	b = uint8((bb * 255) / 31)
	return r, g, b
}

// SetPixelRGB writes one pixel into an RGB565 framebuffer. Writes outside the
// buffer or to other formats are dropped.
func SetPixelRGB(fb Framebuffer, x, y int, r, g, b uint8) {
	if fb == nil || fb.Format() != PixelFormatRGB565 {
		return
	}
	buf := fb.Buffer()
	if x < 0 || x >= fb.Width() || y < 0 || y >= fb.Height() {
		return
	}
	off := y*fb.StrideBytes() + x*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	p := rgb565(r, g, b)
	buf[off] = byte(p)
	buf[off+1] = byte(p >> 8)
}

// FillRectRGB fills a clipped rectangle of an RGB565 framebuffer.
func FillRectRGB(fb Framebuffer, x, y, w, h int, r, g, b uint8) {
	if fb == nil || fb.Format() != PixelFormatRGB565 {
		return
	}
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, fb.Width()), min(y+h, fb.Height())
	if x0 >= x1 || y0 >= y1 {
		return
	}
	buf := fb.Buffer()
	stride := fb.StrideBytes()
	p := rgb565(r, g, b)
	lo, hi := byte(p), byte(p>>8)
	for yy := y0; yy < y1; yy++ {
		row := yy * stride
		for xx := x0; xx < x1; xx++ {
			off := row + xx*2
			if off+1 >= len(buf) {
				return
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
}

// RGBAt reads back one pixel of an RGB565 framebuffer.
func RGBAt(fb Framebuffer, x, y int) (r, g, b uint8) {
	if fb == nil || fb.Format() != PixelFormatRGB565 || x < 0 || x >= fb.Width() || y < 0 || y >= fb.Height() {
		return 0, 0, 0
	}
	buf := fb.Buffer()
	off := y*fb.StrideBytes() + x*2
	if off+1 >= len(buf) {
		return 0, 0, 0
	}
	return rgb888From565(uint16(buf[off]) | uint16(buf[off+1])<<8)
}

// rgba565 expands RGB565 little-endian pixels into RGBA bytes.
func rgba565(dst, src []byte) {
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, g, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = g
		dst[j+2] = b
		dst[j+3] = 0xFF
	}
}
