package capture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestConvertLayouts(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		pix    []byte
		want   color.RGBA
	}{
		{"bgr", LayoutBGR24, []byte{10, 20, 30}, color.RGBA{30, 20, 10, 255}},
		{"rgb", LayoutRGB24, []byte{10, 20, 30}, color.RGBA{10, 20, 30, 255}},
		{"rgba", LayoutRGBA32, []byte{10, 20, 30, 40}, color.RGBA{10, 20, 30, 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
			err := Convert(dst, Frame{Pix: tt.pix, Width: 1, Height: 1, Layout: tt.layout})
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if got := dst.RGBAAt(0, 0); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvertRescales(t *testing.T) {
	src := make([]byte, 2*2*3)
	for i := 0; i < len(src); i += 3 {
		src[i], src[i+1], src[i+2] = 255, 0, 0 // blue in BGR
	}
	dst := image.NewRGBA(image.Rect(0, 0, 6, 4))
	if err := Convert(dst, Frame{Pix: src, Width: 2, Height: 2, Layout: LayoutBGR24}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if got := dst.RGBAAt(3, 2); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("pixel = %v, want blue", got)
	}
}

func TestConvertShortFrame(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	err := Convert(dst, Frame{Pix: make([]byte, 5), Width: 2, Height: 2, Layout: LayoutBGR24})
	if !errors.Is(err, ErrShortFrame) {
		t.Errorf("Convert() error = %v, want ErrShortFrame", err)
	}
}

func TestPattern(t *testing.T) {
	p := NewPattern(70, 10, 0)
	if w, h := p.Size(); w != 70 || h != 10 {
		t.Fatalf("Size() = %dx%d, want 70x10", w, h)
	}

	f1, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if err := f1.Validate(); err != nil {
		t.Fatalf("frame invalid: %v", err)
	}
	first, _ := ToRGBA(f1)

	f2, _ := p.Read()
	second, _ := ToRGBA(f2)
	if slices.Equal(first.Pix, second.Pix) {
		t.Error("consecutive pattern frames should differ")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := p.Read(); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after Close error = %v, want ErrClosed", err)
	}
}

func TestPatternDefaults(t *testing.T) {
	p := NewPattern(0, 0, 30)
	if w, h := p.Size(); w != DefaultWidth || h != DefaultHeight {
		t.Errorf("Size() = %dx%d, want %dx%d", w, h, DefaultWidth, DefaultHeight)
	}
}

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestSequenceLoops(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "000.png"), 4, 3, color.RGBA{255, 0, 0, 255})
	writePNG(t, filepath.Join(dir, "001.png"), 8, 6, color.RGBA{0, 255, 0, 255})

	open, err := Open("sequence", Options{Path: dir})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	dev, err := open(0)
	if err != nil {
		t.Fatalf("open(0) error = %v", err)
	}
	defer dev.Close()

	if w, h := dev.Size(); w != 4 || h != 3 {
		t.Fatalf("Size() = %dx%d, want size of the first image 4x3", w, h)
	}

	want := []color.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}, {255, 0, 0, 255}}
	for i, c := range want {
		f, err := dev.Read()
		if err != nil {
			t.Fatalf("Read() #%d error = %v", i, err)
		}
		if f.Width != 4 || f.Height != 3 {
			t.Errorf("frame %d size = %dx%d, want 4x3", i, f.Width, f.Height)
		}
		img, _ := ToRGBA(f)
		if got := img.RGBAAt(1, 1); got != c {
			t.Errorf("frame %d pixel = %v, want %v", i, got, c)
		}
	}
}

func TestSequenceErrors(t *testing.T) {
	if _, err := Open("sequence", Options{}); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Open(no path) error = %v, want ErrDeviceUnavailable", err)
	}

	open, err := Open("sequence", Options{Path: filepath.Join(t.TempDir(), "*.png")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := open(0); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("open(empty glob) error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestDrivers(t *testing.T) {
	names := Drivers()
	for _, want := range []string{"pattern", "sequence"} {
		if !slices.Contains(names, want) {
			t.Errorf("Drivers() = %v, missing %q", names, want)
		}
	}
	if _, err := Open("v4l2-missing", Options{}); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Open(unknown) error = %v, want ErrDeviceUnavailable", err)
	}
}
