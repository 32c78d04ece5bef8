// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) []byte {
	data := make([]byte, w*h*BytesPerPixel)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = c.R, c.G, c.B, c.A
	}
	return data
}

func TestSoftwareCreateTexture(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		wantErr bool
	}{
		{"small", 1, 1, false},
		{"wide", 640, 8, false},
		{"zero width", 0, 10, true},
		{"negative height", 10, -1, true},
	}
	b := NewSoftware()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := b.CreateTexture(TextureDescriptor{Width: tt.w, Height: tt.h})
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDimensions) {
					t.Errorf("CreateTexture() error = %v, want ErrInvalidDimensions", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateTexture() error = %v", err)
			}
			if tex.Width() != tt.w || tex.Height() != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", tex.Width(), tex.Height(), tt.w, tt.h)
			}
			if tex.Format() != TextureFormat {
				t.Errorf("Format() = %v, want %v", tex.Format(), TextureFormat)
			}
		})
	}
}

func TestSoftwareTextureUpdateData(t *testing.T) {
	b := NewSoftware()
	tex, _ := b.CreateTexture(TextureDescriptor{Label: "frame", Width: 2, Height: 2})

	if err := tex.UpdateData(make([]byte, 3)); err == nil {
		t.Error("UpdateData(short buffer) error = nil, want error")
	}

	data := solid(2, 2, color.RGBA{10, 20, 30, 255})
	if err := tex.UpdateData(data); err != nil {
		t.Fatalf("UpdateData() error = %v", err)
	}
	img, err := b.ReadPixels(tex)
	if err != nil {
		t.Fatalf("ReadPixels() error = %v", err)
	}
	if !bytes.Equal(img.Pix, data) {
		t.Errorf("ReadPixels() = %v, want %v", img.Pix, data)
	}

	tex.Release()
	if err := tex.UpdateData(data); !errors.Is(err, ErrReleased) {
		t.Errorf("UpdateData() after Release error = %v, want ErrReleased", err)
	}
}

func TestSoftwareProgramPassthrough(t *testing.T) {
	b := NewSoftware()
	src, _ := b.CreateTexture(TextureDescriptor{Width: 4, Height: 4})
	_ = src.UpdateData(solid(4, 4, color.RGBA{200, 100, 50, 255}))

	prog, err := b.CreateProgram(ProgramDescriptor{
		Label:  "unregistered-program",
		Params: []Param{{Name: "frame", Kind: ParamTexture}},
	})
	if err != nil {
		t.Fatalf("CreateProgram() error = %v", err)
	}
	defer prog.Release()

	target, err := b.CreateRenderTarget(4, 4)
	if err != nil {
		t.Fatalf("CreateRenderTarget() error = %v", err)
	}
	if err := prog.SetUniform("frame", Sampler{Texture: src}); err != nil {
		t.Fatalf("SetUniform() error = %v", err)
	}
	if err := prog.Draw(target); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	img, _ := ReadPixels(b, target.Texture())
	if got := img.RGBAAt(3, 3); got != (color.RGBA{200, 100, 50, 255}) {
		t.Errorf("pixel = %v, want {200 100 50 255}", got)
	}
}

func TestSoftwareProgramResamples(t *testing.T) {
	b := NewSoftware()
	src, _ := b.CreateTexture(TextureDescriptor{Width: 2, Height: 2})
	_ = src.UpdateData(solid(2, 2, color.RGBA{0, 255, 0, 255}))

	prog, _ := b.CreateProgram(ProgramDescriptor{
		Label:  "resample",
		Params: []Param{{Name: "frame", Kind: ParamTexture}},
	})
	target, _ := b.CreateRenderTarget(8, 6)
	_ = prog.SetUniform("frame", Sampler{Texture: src})
	if err := prog.Draw(target); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	img, _ := ReadPixels(b, target.Texture())
	if img.Bounds() != image.Rect(0, 0, 8, 6) {
		t.Fatalf("bounds = %v, want 8x6", img.Bounds())
	}
	if got := img.RGBAAt(4, 3); got.G != 255 {
		t.Errorf("center pixel = %v, want green", got)
	}
}

func TestSoftwareProgramKernel(t *testing.T) {
	RegisterKernel("test-fill", func(dst *image.RGBA, in *KernelInput) {
		c := in.Vec3("color")
		px := RGBA([4]float32{c[0], c[1], c[2], in.Float("alpha")})
		for y := dst.Rect.Min.Y; y < dst.Rect.Max.Y; y++ {
			for x := dst.Rect.Min.X; x < dst.Rect.Max.X; x++ {
				dst.SetRGBA(x, y, px)
			}
		}
	})

	b := NewSoftware()
	prog, err := b.CreateProgram(ProgramDescriptor{
		Label: "test-fill",
		Params: []Param{
			{Name: "color", Kind: ParamVec3},
			{Name: "alpha", Kind: ParamFloat},
		},
	})
	if err != nil {
		t.Fatalf("CreateProgram() error = %v", err)
	}
	target, _ := b.CreateRenderTarget(3, 3)
	_ = prog.SetUniform("color", Vec3{1, 0, 0})
	_ = prog.SetUniform("alpha", Float(1))
	if err := prog.Draw(target); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	img, _ := ReadPixels(b, target.Texture())
	if got := img.RGBAAt(1, 1); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel = %v, want red", got)
	}
}

func TestSoftwareProgramErrors(t *testing.T) {
	b := NewSoftware()
	prog, _ := b.CreateProgram(ProgramDescriptor{
		Label:  "errors",
		Params: []Param{{Name: "level", Kind: ParamFloat}},
	})

	if err := prog.SetUniform("nope", Float(1)); !errors.Is(err, ErrUnknownUniform) {
		t.Errorf("SetUniform(unknown) error = %v, want ErrUnknownUniform", err)
	}
	if err := prog.SetUniform("level", Int(1)); !errors.Is(err, ErrUniformKind) {
		t.Errorf("SetUniform(wrong kind) error = %v, want ErrUniformKind", err)
	}

	prog.Release()
	target, _ := b.CreateRenderTarget(1, 1)
	if err := prog.Draw(target); !errors.Is(err, ErrReleased) {
		t.Errorf("Draw() after Release error = %v, want ErrReleased", err)
	}
}

func TestSoftwareValidator(t *testing.T) {
	errBad := errors.New("bad shader")
	var seen string
	b := NewSoftware(WithValidator(func(src string) error {
		seen = src
		return errBad
	}))

	_, err := b.CreateProgram(ProgramDescriptor{
		Label:          "validated",
		FragmentSource: "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }",
	})
	if !errors.Is(err, errBad) {
		t.Errorf("CreateProgram() error = %v, want %v", err, errBad)
	}
	if seen == "" {
		t.Error("validator was not called")
	}
}

func TestReadPixelsUnsupported(t *testing.T) {
	var b Backend = noReadback{}
	if _, err := ReadPixels(b, nil); !errors.Is(err, ErrReadbackUnsupported) {
		t.Errorf("ReadPixels() error = %v, want ErrReadbackUnsupported", err)
	}
}

type noReadback struct{ Backend }
