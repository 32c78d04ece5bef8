package render

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Binding indices used by every program.
const (
	// UniformBinding holds the Params uniform struct.
	UniformBinding = 0

	// SamplerBinding holds the shared linear sampler.
	SamplerBinding = 1

	// FirstTextureBinding is the binding of the first texture parameter.
	FirstTextureBinding = 2
)

// Entry points of the generated module.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// FullscreenVertex is the default vertex stage: a single triangle covering
// the viewport, with uv (0,0) at the top-left corner.
const FullscreenVertex = `@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOutput {
    var positions = array<vec2<f32>, 3>(
        vec2<f32>(-1.0, -3.0),
        vec2<f32>(-1.0, 1.0),
        vec2<f32>(3.0, 1.0),
    );
    let p = positions[index];
    var out: VertexOutput;
    out.position = vec4<f32>(p, 0.0, 1.0);
    out.uv = vec2<f32>((p.x + 1.0) * 0.5, (1.0 - p.y) * 0.5);
    return out;
}
`

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reservedNames = map[string]bool{
	"params":        true,
	"frame_sampler": true,
	"Params":        true,
	"VertexOutput":  true,
	"vs_main":       true,
	"fs_main":       true,
}

// Slot is the resolved location of one parameter.
type Slot struct {
	Kind ParamKind

	// Offset is the byte offset in the uniform buffer (value params only).
	Offset int

	// Binding is the bind group entry (texture params only).
	Binding uint32
}

// Layout maps program parameters onto a WGSL uniform struct and texture
// bindings.
//
// Value parameters follow WGSL uniform layout rules: i32 and f32 are 4-byte
// aligned, vec3<f32> is 16-byte aligned and 12 bytes wide, and the struct
// size is rounded up to 16 bytes.
type Layout struct {
	params   []Param
	slots    map[string]Slot
	textures []Param
	size     int
}

// NewLayout validates params and computes their layout.
// Names must be valid WGSL identifiers and unique.
func NewLayout(params []Param) (*Layout, error) {
	l := &Layout{
		params: append([]Param(nil), params...),
		slots:  make(map[string]Slot, len(params)),
	}
	offset := 0
	for _, p := range params {
		if !identPattern.MatchString(p.Name) || strings.HasPrefix(p.Name, "__") {
			return nil, fmt.Errorf("render: invalid parameter name %q", p.Name)
		}
		if reservedNames[p.Name] {
			return nil, fmt.Errorf("render: parameter name %q is reserved", p.Name)
		}
		if _, dup := l.slots[p.Name]; dup {
			return nil, fmt.Errorf("render: duplicate parameter %q", p.Name)
		}
		switch p.Kind {
		case ParamInt, ParamFloat:
			offset = alignUp(offset, 4)
			l.slots[p.Name] = Slot{Kind: p.Kind, Offset: offset}
			offset += 4
		case ParamVec3:
			offset = alignUp(offset, 16)
			l.slots[p.Name] = Slot{Kind: p.Kind, Offset: offset}
			offset += 12
		case ParamTexture:
			binding := uint32(FirstTextureBinding + len(l.textures))
			l.slots[p.Name] = Slot{Kind: p.Kind, Binding: binding}
			l.textures = append(l.textures, p)
		default:
			return nil, fmt.Errorf("render: parameter %q has unknown kind %d", p.Name, p.Kind)
		}
	}
	if offset == 0 {
		// WGSL forbids empty structs; Prelude emits a padding member.
		offset = 4
	}
	l.size = alignUp(offset, 16)
	return l, nil
}

// Params returns the declared parameters in order.
func (l *Layout) Params() []Param {
	return append([]Param(nil), l.params...)
}

// Textures returns the texture parameters in binding order.
func (l *Layout) Textures() []Param {
	return append([]Param(nil), l.textures...)
}

// Slot returns the location of the named parameter.
func (l *Layout) Slot(name string) (Slot, bool) {
	s, ok := l.slots[name]
	return s, ok
}

// Size returns the uniform buffer size in bytes.
func (l *Layout) Size() int {
	return l.size
}

// Encode writes a value uniform into buf at the parameter's offset.
// buf must be at least Size bytes. Texture parameters are not encoded.
func (l *Layout) Encode(buf []byte, name string, u Uniform) error {
	s, err := l.check(name, u)
	if err != nil {
		return err
	}
	switch v := u.(type) {
	case Int:
		binary.LittleEndian.PutUint32(buf[s.Offset:], uint32(int32(v)))
	case Float:
		binary.LittleEndian.PutUint32(buf[s.Offset:], math.Float32bits(float32(v)))
	case Vec3:
		for i, c := range v {
			binary.LittleEndian.PutUint32(buf[s.Offset+4*i:], math.Float32bits(c))
		}
	}
	return nil
}

// check resolves name and verifies u matches its declared kind.
func (l *Layout) check(name string, u Uniform) (Slot, error) {
	s, ok := l.slots[name]
	if !ok {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownUniform, name)
	}
	if u == nil || u.Kind() != s.Kind {
		got := "nil"
		if u != nil {
			got = u.Kind().String()
		}
		return Slot{}, fmt.Errorf("%w: %q is %s, got %s", ErrUniformKind, name, s.Kind, got)
	}
	return s, nil
}

// Prelude returns the WGSL declarations shared by the vertex and fragment
// stages: the Params struct, its uniform binding, the sampler, one
// texture_2d<f32> per texture parameter and the VertexOutput struct.
func (l *Layout) Prelude() string {
	var b strings.Builder
	b.WriteString("struct Params {\n")
	wrote := false
	for _, p := range l.params {
		if p.Kind == ParamTexture {
			continue
		}
		fmt.Fprintf(&b, "    %s: %s,\n", p.Name, p.Kind)
		wrote = true
	}
	if !wrote {
		b.WriteString("    _pad: f32,\n")
	}
	b.WriteString("}\n\n")
	fmt.Fprintf(&b, "@group(0) @binding(%d) var<uniform> params: Params;\n", UniformBinding)
	fmt.Fprintf(&b, "@group(0) @binding(%d) var frame_sampler: sampler;\n", SamplerBinding)
	for _, p := range l.textures {
		fmt.Fprintf(&b, "@group(0) @binding(%d) var %s: texture_2d<f32>;\n", l.slots[p.Name].Binding, p.Name)
	}
	b.WriteString(`
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}
`)
	return b.String()
}

// Module assembles the complete WGSL module for a program: the prelude, the
// vertex stage (FullscreenVertex when vertex is empty) and the fragment stage.
func (l *Layout) Module(vertex, fragment string) string {
	if strings.TrimSpace(vertex) == "" {
		vertex = FullscreenVertex
	}
	return l.Prelude() + "\n" + vertex + "\n" + fragment
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
