//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/freska/render"
)

// texture is an RGBA8 wgpu texture with its default view.
type texture struct {
	owner  *Backend
	label  string
	width  int
	height int
	tex    *wgpu.Texture
	view   *wgpu.TextureView
}

func (b *Backend) newTexture(label string, width, height int) (*texture, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        render.TextureFormat,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst |
			wgpu.TextureUsageCopySrc | wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture %q: %w", label, err)
	}
	view, err := b.device.CreateTextureView(tex, nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("gpu: create view %q: %w", label, err)
	}
	return &texture{owner: b, label: label, width: width, height: height, tex: tex, view: view}, nil
}

func (t *texture) Width() int {
	if t.tex == nil {
		return 0
	}
	return t.width
}

func (t *texture) Height() int {
	if t.tex == nil {
		return 0
	}
	return t.height
}

func (t *texture) Format() gputypes.TextureFormat { return render.TextureFormat }

// UpdateData uploads a full frame of tightly packed RGBA pixels.
func (t *texture) UpdateData(data []byte) error {
	if t.tex == nil {
		return render.ErrReleased
	}
	if want := t.width * t.height * render.BytesPerPixel; len(data) != want {
		return fmt.Errorf("gpu: texture %q: got %d bytes, want %d", t.label, len(data), want)
	}
	err := t.owner.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: t.tex},
		data,
		&wgpu.ImageDataLayout{BytesPerRow: uint32(t.width * render.BytesPerPixel), RowsPerImage: uint32(t.height)},
		&wgpu.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("gpu: upload %q: %w", t.label, err)
	}
	return nil
}

func (t *texture) Release() {
	if t.tex == nil {
		return
	}
	t.view.Release()
	t.tex.Release()
	t.view, t.tex = nil, nil
}

// target renders into a texture it owns.
type target struct {
	tex *texture
}

func (r *target) Width() int              { return r.tex.Width() }
func (r *target) Height() int             { return r.tex.Height() }
func (r *target) Texture() render.Texture { return r.tex }
func (r *target) Release()                { r.tex.Release() }

var (
	_ render.Texture      = (*texture)(nil)
	_ render.RenderTarget = (*target)(nil)
)
