package hal

import "testing"

type testFB struct {
	w, h int
	buf  []byte
}

func newTestFB(w, h int) *testFB { return &testFB{w: w, h: h, buf: make([]byte, w*h*2)} }

func (f *testFB) Width() int             { return f.w }
func (f *testFB) Height() int            { return f.h }
func (f *testFB) Format() PixelFormat    { return PixelFormatRGB565 }
func (f *testFB) StrideBytes() int       { return f.w * 2 }
func (f *testFB) Buffer() []byte         { return f.buf }
func (f *testFB) ClearRGB(r, g, b uint8) { FillRectRGB(f, 0, 0, f.w, f.h, r, g, b) }
func (f *testFB) Present() error         { return nil }

func TestRGB565RoundTripPrimaries(t *testing.T) {
	for _, c := range [][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {255, 255, 255}, {0, 0, 0}} {
		r, g, b := rgb888From565(rgb565(c[0], c[1], c[2]))
		if r != c[0] || g != c[1] || b != c[2] {
			t.Fatalf("round trip %v = %d,%d,%d", c, r, g, b)
		}
	}
}

func TestFillRectRGBClips(t *testing.T) {
	fb := newTestFB(4, 4)
	FillRectRGB(fb, -2, 2, 4, 10, 255, 255, 255)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, _, _ := RGBAt(fb, x, y)
			want := uint8(0)
			if x < 2 && y >= 2 {
				want = 255
			}
			if r != want {
				t.Fatalf("pixel %d,%d red = %d, want %d", x, y, r, want)
			}
		}
	}
}

func TestSetPixelRGBOutOfRange(t *testing.T) {
	fb := newTestFB(2, 2)
	SetPixelRGB(fb, 2, 0, 255, 0, 0)
	SetPixelRGB(fb, -1, 0, 255, 0, 0)
	for i, b := range fb.buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %#x, want 0", i, b)
		}
	}
}
