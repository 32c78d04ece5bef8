// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package nodes

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/freska/graph"
	"github.com/gogpu/freska/render"
)

// ErrNoBackend is returned when a node needs a render backend and the
// environment has none.
var ErrNoBackend = errors.New("nodes: no render backend")

// Effect declares a shader effect template: its pins and the shader that
// processes the input texture.
//
// Every non-Output pin becomes a shader parameter named after the pin, so
// pin names must be valid WGSL identifiers and unique among the non-Output
// pins. The output is the last Output Texture pin.
type Effect struct {
	// Name is the template name.
	Name string

	// Label names the program. The software backend runs the CPU kernel
	// registered under this label.
	Label string

	// Vertex is an optional vertex stage; the full-screen triangle is used
	// when empty.
	Vertex string

	// Fragment is the fragment stage with an fs_main entry point.
	Fragment string

	// Pins are the template pins in declaration order.
	Pins []graph.Pin
}

// Params returns the shader parameters bound from the effect's pins.
func (e *Effect) Params() []render.Param {
	params := make([]render.Param, 0, len(e.Pins))
	for _, p := range e.Pins {
		if p.Kind == graph.Output {
			continue
		}
		params = append(params, render.Param{Name: p.Name, Kind: p.Type.ParamKind()})
	}
	return params
}

// Descriptor returns the program descriptor of the effect.
func (e *Effect) Descriptor() render.ProgramDescriptor {
	return render.ProgramDescriptor{
		Label:          e.Label,
		VertexSource:   e.Vertex,
		FragmentSource: e.Fragment,
		Params:         e.Params(),
	}
}

// Module returns the complete WGSL module of the effect.
func (e *Effect) Module() (string, error) {
	layout, err := render.NewLayout(e.Params())
	if err != nil {
		return "", fmt.Errorf("nodes: effect %q: %w", e.Name, err)
	}
	return layout.Module(e.Vertex, e.Fragment), nil
}

// Template returns a graph template whose nodes run the effect on b.
func (e *Effect) Template(b render.Backend) graph.Template {
	desc := e.Descriptor()
	return graph.Template{
		Name: e.Name,
		Pins: slices.Clone(e.Pins),
		New: func(n *graph.Node) (graph.Executor, error) {
			if b == nil {
				return nil, ErrNoBackend
			}
			return NewShaderEffect(b, desc, n)
		},
	}
}

// ShaderEffect is the executor of effect nodes.
//
// The program is created once. The render target is created lazily, sized
// to the first ready input texture, and keeps that size for the life of the
// node.
type ShaderEffect struct {
	backend render.Backend
	prog    render.Program
	target  render.RenderTarget

	input  *graph.Pin
	output *graph.Pin
	params []*graph.Pin

	draws  uint64
	failed bool
}

// NewShaderEffect creates the program for node n.
func NewShaderEffect(b render.Backend, desc render.ProgramDescriptor, n *graph.Node) (*ShaderEffect, error) {
	prog, err := b.CreateProgram(desc)
	if err != nil {
		return nil, err
	}
	s := &ShaderEffect{
		backend: b,
		prog:    prog,
		input:   n.FirstPin(graph.Input, graph.Texture),
		output:  n.LastPin(graph.Output, graph.Texture),
	}
	for _, p := range n.Pins {
		if p.Kind != graph.Output {
			s.params = append(s.params, p)
		}
	}
	return s, nil
}

// Compute draws the effect when the input texture is ready and publishes
// the render target's texture on the output pin.
func (s *ShaderEffect) Compute(n *graph.Node) {
	if s.input == nil || !render.Ready(s.input.Texture) {
		return
	}
	if s.target == nil {
		in := s.input.Texture
		t, err := s.backend.CreateRenderTarget(in.Width(), in.Height())
		if err != nil {
			s.fail(n, "create render target", err)
			return
		}
		s.target = t
		slogger().Debug("nodes: effect target created", "node", n.ID, "width", t.Width(), "height", t.Height())
	}

	for _, p := range s.params {
		if err := s.prog.SetUniform(p.Name, p.Uniform()); err != nil {
			s.fail(n, "bind "+p.Name, err)
			return
		}
	}
	if err := s.prog.Draw(s.target); err != nil {
		s.fail(n, "draw", err)
		return
	}
	s.failed = false
	s.draws++

	if s.output != nil {
		s.output.SetTexture(s.target.Texture())
	}
}

// fail logs the first error of a failure streak.
func (s *ShaderEffect) fail(n *graph.Node, op string, err error) {
	if s.failed {
		return
	}
	s.failed = true
	slogger().Error("nodes: effect "+op+" failed", "node", n.ID, "template", n.Template, "err", err)
}

// Close releases the render target and the program.
func (s *ShaderEffect) Close() error {
	if s.target != nil {
		s.target.Release()
		s.target = nil
	}
	if s.prog != nil {
		s.prog.Release()
		s.prog = nil
	}
	return nil
}

// Draws returns the number of successful draws.
func (s *ShaderEffect) Draws() uint64 { return s.draws }

// Target returns the render target, or nil before the first draw.
func (s *ShaderEffect) Target() render.RenderTarget { return s.target }

var _ graph.Executor = (*ShaderEffect)(nil)
