//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/freska/render"
)

var errFeedback = errors.New("gpu: program samples its own render target")

// program is a full-screen render pipeline with one bind group:
// the uniform buffer, the sampler and one view per texture parameter.
type program struct {
	owner  *Backend
	label  string
	layout *render.Layout

	module   *wgpu.ShaderModule
	bgl      *wgpu.BindGroupLayout
	pl       *wgpu.PipelineLayout
	pipeline *wgpu.RenderPipeline
	uniforms *wgpu.Buffer

	data     []byte
	dirty    bool
	textures map[string]render.Texture

	group   *wgpu.BindGroup
	boundTo []*texture
}

func (b *Backend) newProgram(desc render.ProgramDescriptor) (_ *program, err error) {
	layout, err := render.NewLayout(desc.Params)
	if err != nil {
		return nil, err
	}
	src := layout.Module(desc.VertexSource, desc.FragmentSource)
	words, err := b.compiler.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("gpu: program %q: %w", desc.Label, err)
	}

	p := &program{
		owner:    b,
		label:    desc.Label,
		layout:   layout,
		data:     make([]byte, layout.Size()),
		dirty:    true,
		textures: make(map[string]render.Texture),
	}
	defer func() {
		if err != nil {
			p.Release()
		}
	}()

	smd := &wgpu.ShaderModuleDescriptor{Label: desc.Label}
	if b.spirv {
		smd.SPIRV = words
	} else {
		smd.WGSL = src
	}
	if p.module, err = b.device.CreateShaderModule(smd); err != nil {
		return nil, fmt.Errorf("gpu: program %q: shader module: %w", desc.Label, err)
	}

	if p.bgl, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: layoutEntries(layout),
	}); err != nil {
		return nil, fmt.Errorf("gpu: program %q: bind group layout: %w", desc.Label, err)
	}
	if p.pl, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.bgl},
	}); err != nil {
		return nil, fmt.Errorf("gpu: program %q: pipeline layout: %w", desc.Label, err)
	}

	if p.pipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: p.pl,
		Vertex: wgpu.VertexState{Module: p.module, EntryPoint: render.VertexEntryPoint},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: ^uint64(0)},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: render.FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    render.TextureFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	}); err != nil {
		return nil, fmt.Errorf("gpu: program %q: pipeline: %w", desc.Label, err)
	}

	if p.uniforms, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label + "-params",
		Size:  uint64(layout.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	}); err != nil {
		return nil, fmt.Errorf("gpu: program %q: uniform buffer: %w", desc.Label, err)
	}

	render.Logger().Debug("gpu: program created", "label", desc.Label,
		"uniform_bytes", layout.Size(), "textures", len(layout.Textures()))
	return p, nil
}

// layoutEntries maps a parameter layout to bind group layout entries.
func layoutEntries(l *render.Layout) []gputypes.BindGroupLayoutEntry {
	stages := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    render.UniformBinding,
			Visibility: stages,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: uint64(l.Size()),
			},
		},
		{
			Binding:    render.SamplerBinding,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
	for _, p := range l.Textures() {
		s, _ := l.Slot(p.Name)
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(s.Binding),
			Visibility: wgpu.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	return entries
}

func (p *program) Label() string          { return p.label }
func (p *program) Layout() *render.Layout { return p.layout }

func (p *program) SetUniform(name string, value render.Uniform) error {
	if p.pipeline == nil {
		return render.ErrReleased
	}
	if err := p.layout.Encode(p.data, name, value); err != nil {
		return err
	}
	if s, ok := value.(render.Sampler); ok {
		p.textures[name] = s.Texture
		return nil
	}
	p.dirty = true
	return nil
}

func (p *program) Draw(rt render.RenderTarget) error {
	if p.pipeline == nil {
		return render.ErrReleased
	}
	t, ok := rt.(*target)
	if !ok || t.tex.owner != p.owner {
		return fmt.Errorf("gpu: program %q cannot draw into %T", p.label, rt)
	}
	if t.tex.tex == nil {
		return render.ErrReleased
	}

	b := p.owner
	if p.dirty {
		if err := b.queue.WriteBuffer(p.uniforms, 0, p.data); err != nil {
			return fmt.Errorf("gpu: program %q: write uniforms: %w", p.label, err)
		}
		p.dirty = false
	}
	if err := p.bind(t.tex); err != nil {
		return err
	}

	enc, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: program %q: encoder: %w", p.label, err)
	}
	pass, err := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: p.label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       t.tex.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{},
		}},
	})
	if err != nil {
		return fmt.Errorf("gpu: program %q: begin pass: %w", p.label, err)
	}
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.group, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("gpu: program %q: end pass: %w", p.label, err)
	}
	return b.submit(enc)
}

// bind rebuilds the bind group when a bound texture changed since the last
// draw. Unbound or released textures sample as transparent black.
func (p *program) bind(dst *texture) error {
	params := p.layout.Textures()
	current := make([]*texture, len(params))
	for i, param := range params {
		tex := p.owner.empty
		if t := p.textures[param.Name]; render.Ready(t) {
			gt, ok := t.(*texture)
			if !ok || gt.owner != p.owner {
				return fmt.Errorf("gpu: program %q: %s is a %T from another backend", p.label, param.Name, t)
			}
			tex = gt
		}
		if tex == dst {
			return fmt.Errorf("%w: %s", errFeedback, param.Name)
		}
		current[i] = tex
	}
	if p.group != nil && slices.Equal(current, p.boundTo) {
		return nil
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: render.UniformBinding, Buffer: p.uniforms, Size: uint64(p.layout.Size())},
		{Binding: render.SamplerBinding, Sampler: p.owner.sampler},
	}
	for i, param := range params {
		s, _ := p.layout.Slot(param.Name)
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(s.Binding), TextureView: current[i].view})
	}
	group, err := p.owner.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.label,
		Layout:  p.bgl,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: program %q: bind group: %w", p.label, err)
	}
	if p.group != nil {
		p.group.Release()
	}
	p.group = group
	p.boundTo = current
	return nil
}

func (p *program) Release() {
	if p.group != nil {
		p.group.Release()
		p.group = nil
	}
	if p.uniforms != nil {
		p.uniforms.Release()
		p.uniforms = nil
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.pl != nil {
		p.pl.Release()
		p.pl = nil
	}
	if p.bgl != nil {
		p.bgl.Release()
		p.bgl = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
	p.textures = nil
	p.boundTo = nil
}

var _ render.Program = (*program)(nil)
