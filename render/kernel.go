package render

import (
	"image"
	"image/color"
	"sync"
)

// Kernel is the CPU counterpart of a fragment shader. It fills dst, which
// covers the whole render target, from the program inputs.
type Kernel func(dst *image.RGBA, in *KernelInput)

var (
	kernelsMu sync.RWMutex
	kernels   = make(map[string]Kernel)
)

// RegisterKernel installs the kernel the software backend runs for programs
// with the given label. A later registration replaces an earlier one.
func RegisterKernel(label string, k Kernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels[label] = k
}

// LookupKernel returns the kernel registered for label.
func LookupKernel(label string) (Kernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := kernels[label]
	return k, ok
}

// Passthrough copies the first texture parameter into dst, or clears dst to
// transparent black when the program has none.
func Passthrough(dst *image.RGBA, in *KernelInput) {
	if len(in.layout.textures) == 0 {
		clear(dst.Pix)
		return
	}
	src := in.Texture(in.layout.textures[0].Name)
	copy(dst.Pix, src.Pix)
}

// KernelInput exposes the bound uniforms to a Kernel.
//
// Textures are resampled to the destination size before the kernel runs, so
// a kernel can address them with destination pixel coordinates.
type KernelInput struct {
	layout   *Layout
	values   map[string]Uniform
	textures map[string]*image.RGBA
}

// Int returns an i32 parameter, or 0 when unset.
func (in *KernelInput) Int(name string) int32 {
	v, _ := in.values[name].(Int)
	return int32(v)
}

// Float returns an f32 parameter, or 0 when unset.
func (in *KernelInput) Float(name string) float32 {
	v, _ := in.values[name].(Float)
	return float32(v)
}

// Vec3 returns a vec3<f32> parameter, or zero when unset.
func (in *KernelInput) Vec3(name string) [3]float32 {
	v, _ := in.values[name].(Vec3)
	return [3]float32(v)
}

// Texture returns a texture parameter resampled to the destination size.
// Unbound textures read as transparent black.
func (in *KernelInput) Texture(name string) *image.RGBA {
	return in.textures[name]
}

// At returns the texel of a texture parameter at (x, y) as normalized
// floats, clamping coordinates to the edge.
func (in *KernelInput) At(name string, x, y int) [4]float32 {
	img := in.textures[name]
	if img == nil {
		return [4]float32{}
	}
	b := img.Bounds()
	x = min(max(x, b.Min.X), b.Max.X-1)
	y = min(max(y, b.Min.Y), b.Max.Y-1)
	c := img.RGBAAt(x, y)
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

// RGBA converts normalized floats to a pixel, clamping to [0,1].
func RGBA(c [4]float32) color.RGBA {
	return color.RGBA{
		R: unorm8(c[0]),
		G: unorm8(c[1]),
		B: unorm8(c[2]),
		A: unorm8(c[3]),
	}
}

func unorm8(v float32) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
