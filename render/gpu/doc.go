//go:build !nogpu

// Package gpu registers the wgpu render backend.
//
// Import it for its side effect to make render.Open("gpu") and render.Default
// prefer hardware rendering:
//
//	import _ "github.com/gogpu/freska/render/gpu"
//
// The registered factory opens a headless device on first use. If no adapter
// is available (no Vulkan, Metal or DX12), the factory fails and
// render.Default falls back to the software backend.
//
// Hosts that already own a device pass it to New through a
// render.DeviceHandle instead.
package gpu

import (
	_ "github.com/gogpu/wgpu/hal/allbackends" // register native HAL backends

	"github.com/gogpu/freska/render"
)

func init() {
	render.Register(render.BackendGPU, func(opts render.Options) (render.Backend, error) {
		dev, err := OpenDevice()
		if err != nil {
			return nil, err
		}
		b, err := New(dev, WithOwnedDevice(), WithCompiler(opts.Compiler))
		if err != nil {
			dev.Release()
			return nil, err
		}
		return b, nil
	})
}
