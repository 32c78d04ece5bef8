// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/freska/render"
	"github.com/gogpu/freska/shader"
)

// readbackTimeout bounds the wait for a mapped readback buffer.
const readbackTimeout = 5 * time.Second

// Option configures a Backend.
type Option func(*Backend)

// WithOwnedDevice makes Close release the device as well.
func WithOwnedDevice() Option {
	return func(b *Backend) { b.owned = true }
}

// WithCompiler shares a shader compiler (and its cache) between backends.
// A nil c keeps the default.
func WithCompiler(c render.Compiler) Option {
	return func(b *Backend) {
		if c != nil {
			b.compiler = c
		}
	}
}

// Backend renders with wgpu.
//
// WGSL is validated and compiled to SPIR-V by naga through a caching
// shader.Compiler. SPIR-V is handed to the device on Vulkan adapters; other
// adapters receive the validated WGSL.
type Backend struct {
	handle render.DeviceHandle
	device *wgpu.Device
	queue  *wgpu.Queue
	spirv  bool
	owned  bool

	compiler render.Compiler
	sampler  *wgpu.Sampler
	empty    *texture
	closed   bool
}

// New creates a backend on the device of h. The device and queue must be
// *wgpu.Device and *wgpu.Queue.
func New(h render.DeviceHandle, opts ...Option) (*Backend, error) {
	device, ok := h.Device().(*wgpu.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: device handle holds %T", ErrNoGPU, h.Device())
	}
	queue, ok := h.Queue().(*wgpu.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: device handle holds queue %T", ErrNoGPU, h.Queue())
	}

	b := &Backend{handle: h, device: device, queue: queue}
	for _, opt := range opts {
		opt(b)
	}
	if b.compiler == nil {
		b.compiler = shader.NewCompiler(0)
	}
	if a, ok := h.Adapter().(*wgpu.Adapter); ok && a != nil {
		b.spirv = a.Info().Backend == gputypes.BackendVulkan
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        "freska-sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create sampler: %w", err)
	}
	b.sampler = sampler

	empty, err := b.newTexture("unbound", 1, 1)
	if err != nil {
		sampler.Release()
		return nil, err
	}
	b.empty = empty

	render.Logger().Debug("gpu: backend ready", "adapter", h.AdapterInfo().Name, "spirv", b.spirv)
	return b, nil
}

// Name implements render.Backend.
func (b *Backend) Name() string { return render.BackendGPU }

// CreateTexture implements render.Backend.
func (b *Backend) CreateTexture(desc render.TextureDescriptor) (render.Texture, error) {
	if b.closed {
		return nil, render.ErrReleased
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", render.ErrInvalidDimensions, desc.Width, desc.Height)
	}
	return b.newTexture(desc.Label, desc.Width, desc.Height)
}

// CreateRenderTarget implements render.Backend.
func (b *Backend) CreateRenderTarget(width, height int) (render.RenderTarget, error) {
	tex, err := b.CreateTexture(render.TextureDescriptor{Label: "render-target", Width: width, Height: height})
	if err != nil {
		return nil, err
	}
	return &target{tex: tex.(*texture)}, nil
}

// CreateProgram implements render.Backend.
func (b *Backend) CreateProgram(desc render.ProgramDescriptor) (render.Program, error) {
	if b.closed {
		return nil, render.ErrReleased
	}
	return b.newProgram(desc)
}

// ReadPixels implements render.Readback. It copies the texture into a
// mappable buffer and waits for the copy.
func (b *Backend) ReadPixels(t render.Texture) (*image.RGBA, error) {
	tex, ok := t.(*texture)
	if !ok || tex.owner != b {
		return nil, fmt.Errorf("%w: texture %T", render.ErrReadbackUnsupported, t)
	}
	if tex.tex == nil {
		return nil, render.ErrReleased
	}

	w, h := tex.width, tex.height
	stride := alignedBytesPerRow(w)
	size := uint64(stride * h)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "freska-readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: readback buffer: %w", err)
	}
	defer buf.Release()

	enc, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: readback encoder: %w", err)
	}
	enc.CopyTextureToBuffer(tex.tex, buf, []wgpu.BufferTextureCopy{{
		BufferLayout: wgpu.ImageDataLayout{BytesPerRow: uint32(stride), RowsPerImage: uint32(h)},
		TextureBase:  wgpu.ImageCopyTexture{Texture: tex.tex},
		Size:         wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	}})
	if err := b.submit(enc); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), readbackTimeout)
	defer cancel()
	if err := buf.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("gpu: map readback buffer: %w", err)
	}
	defer func() { _ = buf.Unmap() }()
	rng, err := buf.MappedRange(0, size)
	if err != nil {
		return nil, fmt.Errorf("gpu: readback range: %w", err)
	}
	defer rng.Release()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	unpadRows(img.Pix, rng.Bytes(), w*render.BytesPerPixel, stride, h)
	return img, nil
}

// Handle implements render.HandleProvider.
func (b *Backend) Handle() render.DeviceHandle { return b.handle }

// Close releases the shared sampler and placeholder texture, and the device
// when it is owned.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.empty.Release()
	b.sampler.Release()
	if d, ok := b.handle.(*Device); ok && b.owned {
		d.Release()
	}
	render.Logger().Debug("gpu: backend closed")
	return nil
}

func (b *Backend) submit(enc *wgpu.CommandEncoder) error {
	cb, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("gpu: finish commands: %w", err)
	}
	if _, err := b.queue.Submit(cb); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	return nil
}

// alignedBytesPerRow rounds an RGBA row up to the 256 byte copy alignment.
func alignedBytesPerRow(width int) int {
	const align = 256
	return (width*render.BytesPerPixel + align - 1) &^ (align - 1)
}

// unpadRows copies rows of rowBytes from src, whose rows are stride apart,
// into the tightly packed dst.
func unpadRows(dst, src []byte, rowBytes, stride, rows int) {
	for y := 0; y < rows; y++ {
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*stride:y*stride+rowBytes])
	}
}

var (
	_ render.Backend  = (*Backend)(nil)
	_ render.Readback = (*Backend)(nil)
)
