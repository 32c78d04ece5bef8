// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// Software is a CPU backend.
//
// Textures are image.RGBA buffers and programs run the Kernel registered for
// their label (see RegisterKernel), falling back to Passthrough. The WGSL
// sources are kept so an optional validator can reject broken shaders at
// CreateProgram time, which keeps CPU runs honest about the GPU path.
//
// Example:
//
//	b := render.NewSoftware()
//	target, _ := b.CreateRenderTarget(640, 480)
//	prog, _ := b.CreateProgram(desc)
//	prog.SetUniform("exposure", render.Float(0.5))
//	prog.Draw(target)
//	img, _ := b.ReadPixels(target.Texture())
type Software struct {
	validate func(wgsl string) error
	closed   bool
}

// SoftwareOption configures a Software backend.
type SoftwareOption func(*Software)

// WithValidator runs fn on the assembled WGSL module of every program.
// A validation failure makes CreateProgram fail.
func WithValidator(fn func(wgsl string) error) SoftwareOption {
	return func(s *Software) { s.validate = fn }
}

// NewSoftware creates a CPU backend.
func NewSoftware(opts ...SoftwareOption) *Software {
	s := &Software{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Backend.
func (s *Software) Name() string { return BackendSoftware }

// Handle implements HandleProvider. The software backend has no device.
func (s *Software) Handle() DeviceHandle { return NullDeviceHandle{} }

// CreateTexture implements Backend.
func (s *Software) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if s.closed {
		return nil, ErrReleased
	}
	if !validSize(desc.Width, desc.Height) {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, desc.Width, desc.Height)
	}
	return &softwareTexture{
		label: desc.Label,
		img:   image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height)),
	}, nil
}

// CreateRenderTarget implements Backend.
func (s *Software) CreateRenderTarget(width, height int) (RenderTarget, error) {
	tex, err := s.CreateTexture(TextureDescriptor{Label: "render-target", Width: width, Height: height})
	if err != nil {
		return nil, err
	}
	return &softwareTarget{tex: tex.(*softwareTexture)}, nil
}

// CreateProgram implements Backend.
func (s *Software) CreateProgram(desc ProgramDescriptor) (Program, error) {
	if s.closed {
		return nil, ErrReleased
	}
	layout, err := NewLayout(desc.Params)
	if err != nil {
		return nil, err
	}
	if s.validate != nil {
		if err := s.validate(layout.Module(desc.VertexSource, desc.FragmentSource)); err != nil {
			return nil, fmt.Errorf("render: program %q: %w", desc.Label, err)
		}
	}
	kernel, ok := LookupKernel(desc.Label)
	if !ok {
		slogger().Debug("render: no kernel for program, using passthrough", "label", desc.Label)
		kernel = Passthrough
	}
	return &softwareProgram{
		label:   desc.Label,
		layout:  layout,
		kernel:  kernel,
		values:  make(map[string]Uniform),
		scratch: make(map[string]*image.RGBA),
	}, nil
}

// ReadPixels implements Readback. It returns a copy of the texture.
func (s *Software) ReadPixels(t Texture) (*image.RGBA, error) {
	st, ok := t.(*softwareTexture)
	if !ok {
		return nil, fmt.Errorf("%w: texture %T", ErrReadbackUnsupported, t)
	}
	if st.img == nil {
		return nil, ErrReleased
	}
	out := image.NewRGBA(st.img.Bounds())
	copy(out.Pix, st.img.Pix)
	return out, nil
}

// Close implements Backend.
func (s *Software) Close() error {
	s.closed = true
	return nil
}

var (
	_ Backend  = (*Software)(nil)
	_ Readback = (*Software)(nil)
)

// softwareTexture is an RGBA image in CPU memory.
type softwareTexture struct {
	label string
	img   *image.RGBA
}

func (t *softwareTexture) Width() int {
	if t.img == nil {
		return 0
	}
	return t.img.Rect.Dx()
}

func (t *softwareTexture) Height() int {
	if t.img == nil {
		return 0
	}
	return t.img.Rect.Dy()
}

func (t *softwareTexture) Format() gputypes.TextureFormat { return TextureFormat }

func (t *softwareTexture) UpdateData(data []byte) error {
	if t.img == nil {
		return ErrReleased
	}
	if len(data) != len(t.img.Pix) {
		return fmt.Errorf("render: texture %q: got %d bytes, want %d", t.label, len(data), len(t.img.Pix))
	}
	copy(t.img.Pix, data)
	return nil
}

func (t *softwareTexture) Release() { t.img = nil }

// softwareTarget wraps the texture it renders into.
type softwareTarget struct {
	tex *softwareTexture
}

func (r *softwareTarget) Width() int       { return r.tex.Width() }
func (r *softwareTarget) Height() int      { return r.tex.Height() }
func (r *softwareTarget) Texture() Texture { return r.tex }
func (r *softwareTarget) Release()         { r.tex.Release() }

// softwareProgram runs a Kernel over a render target.
type softwareProgram struct {
	label    string
	layout   *Layout
	kernel   Kernel
	values   map[string]Uniform
	scratch  map[string]*image.RGBA
	released bool
}

func (p *softwareProgram) Label() string   { return p.label }
func (p *softwareProgram) Layout() *Layout { return p.layout }

func (p *softwareProgram) SetUniform(name string, value Uniform) error {
	if p.released {
		return ErrReleased
	}
	if _, err := p.layout.check(name, value); err != nil {
		return err
	}
	p.values[name] = value
	return nil
}

func (p *softwareProgram) Draw(target RenderTarget) error {
	if p.released {
		return ErrReleased
	}
	st, ok := target.(*softwareTarget)
	if !ok {
		return fmt.Errorf("render: software program cannot draw into %T", target)
	}
	dst := st.tex.img
	if dst == nil {
		return ErrReleased
	}

	in := &KernelInput{
		layout:   p.layout,
		values:   p.values,
		textures: make(map[string]*image.RGBA, len(p.layout.textures)),
	}
	for _, param := range p.layout.textures {
		img := p.scratchFor(param.Name, dst.Rect)
		if err := resample(img, p.values[param.Name]); err != nil {
			return fmt.Errorf("render: program %q: bind %s: %w", p.label, param.Name, err)
		}
		in.textures[param.Name] = img
	}
	p.kernel(dst, in)
	return nil
}

func (p *softwareProgram) Release() {
	p.released = true
	p.scratch = nil
}

// scratchFor returns a reusable image of the target size for a texture
// parameter. Sampling from a copy keeps feedback bindings well defined.
func (p *softwareProgram) scratchFor(name string, r image.Rectangle) *image.RGBA {
	img := p.scratch[name]
	if img == nil || img.Rect != r {
		img = image.NewRGBA(r)
		p.scratch[name] = img
	}
	return img
}

var errForeignTexture = errors.New("texture does not belong to the software backend")

// resample fills dst from the bound texture, scaling with bilinear
// filtering when the sizes differ.
func resample(dst *image.RGBA, u Uniform) error {
	s, _ := u.(Sampler)
	if !Ready(s.Texture) {
		clear(dst.Pix)
		return nil
	}
	src, ok := s.Texture.(*softwareTexture)
	if !ok {
		return errForeignTexture
	}
	if src.img.Rect.Size() == dst.Rect.Size() {
		draw.Draw(dst, dst.Rect, src.img, src.img.Rect.Min, draw.Src)
		return nil
	}
	draw.ApproxBiLinear.Scale(dst, dst.Rect, src.img, src.img.Rect, draw.Src, nil)
	return nil
}

var (
	_ Texture      = (*softwareTexture)(nil)
	_ RenderTarget = (*softwareTarget)(nil)
	_ Program      = (*softwareProgram)(nil)
)
