package graph

import (
	"fmt"
	"slices"

	"github.com/gogpu/freska/render"
)

// PinType is the value type carried by a pin.
type PinType uint8

const (
	Integer PinType = iota
	Float
	Color
	Texture
)

func (t PinType) String() string {
	switch t {
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Color:
		return "Color"
	case Texture:
		return "Texture"
	default:
		return fmt.Sprintf("PinType(%d)", t)
	}
}

// PinKind is the role of a pin.
type PinKind uint8

const (
	// Input pins receive at most one link.
	Input PinKind = iota
	// Output pins may start any number of links.
	Output
	// Manual pins are user-edited parameters and never linked.
	Manual
)

func (k PinKind) String() string {
	switch k {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Manual:
		return "Manual"
	default:
		return fmt.Sprintf("PinKind(%d)", k)
	}
}

// IntValue is an integer with its inclusive range.
type IntValue struct {
	Val, Min, Max int
}

// FloatValue is a float with its inclusive range.
type FloatValue struct {
	Val, Min, Max float32
}

// RGB is a three component color in [0,1] per channel by convention.
type RGB [3]float32

// Pin is a typed, named value slot owned by one node.
//
// Only the field matching Type is meaningful. Texture is a shared handle:
// a nil Texture is the empty value.
type Pin struct {
	ID     ID
	NodeID ID
	Name   string
	Type   PinType
	Kind   PinKind

	Int     IntValue
	Float   FloatValue
	Color   RGB
	Texture render.Texture

	links map[ID]struct{}
}

// IntPin declares an Integer pin for a template.
func IntPin(name string, kind PinKind, val, lo, hi int) Pin {
	return Pin{Name: name, Type: Integer, Kind: kind, Int: IntValue{Val: val, Min: lo, Max: hi}}
}

// FloatPin declares a Float pin for a template.
func FloatPin(name string, kind PinKind, val, lo, hi float32) Pin {
	return Pin{Name: name, Type: Float, Kind: kind, Float: FloatValue{Val: val, Min: lo, Max: hi}}
}

// ColorPin declares a Color pin for a template.
func ColorPin(name string, kind PinKind, c RGB) Pin {
	return Pin{Name: name, Type: Color, Kind: kind, Color: c}
}

// TexturePin declares a Texture pin for a template.
func TexturePin(name string, kind PinKind) Pin {
	return Pin{Name: name, Type: Texture, Kind: kind}
}

// SetInt stores v clamped into the pin's range.
func (p *Pin) SetInt(v int) {
	p.Int.Val = min(max(v, p.Int.Min), p.Int.Max)
}

// SetFloat stores v clamped into the pin's range. NaN is stored as Min.
func (p *Pin) SetFloat(v float32) {
	p.Float.Val = clampFloat(v, p.Float.Min, p.Float.Max)
}

// SetColor stores c.
func (p *Pin) SetColor(c RGB) {
	p.Color = c
}

// SetTexture stores the handle t. It does not take ownership.
func (p *Pin) SetTexture(t render.Texture) {
	p.Texture = t
}

// LinkIDs returns the attached link ids in ascending order.
func (p *Pin) LinkIDs() []ID {
	ids := make([]ID, 0, len(p.links))
	for id := range p.links {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LinkCount returns the number of attached links.
func (p *Pin) LinkCount() int {
	return len(p.links)
}

// HasLink reports whether link id is attached to the pin.
func (p *Pin) HasLink(id ID) bool {
	_, ok := p.links[id]
	return ok
}

// Uniform returns the pin value as a shader parameter.
func (p *Pin) Uniform() render.Uniform {
	switch p.Type {
	case Integer:
		return render.Int(int32(p.Int.Val))
	case Float:
		return render.Float(p.Float.Val)
	case Color:
		return render.Vec3(p.Color)
	default:
		return render.Sampler{Texture: p.Texture}
	}
}

// ParamKind returns the shader parameter kind matching the pin type.
func (t PinType) ParamKind() render.ParamKind {
	switch t {
	case Integer:
		return render.ParamInt
	case Float:
		return render.ParamFloat
	case Color:
		return render.ParamVec3
	default:
		return render.ParamTexture
	}
}

// clone copies the template part of p: no ids, no links.
func (p *Pin) clone() *Pin {
	c := *p
	c.ID, c.NodeID = 0, 0
	c.links = make(map[ID]struct{})
	return &c
}

func (p *Pin) attach(link ID) { p.links[link] = struct{}{} }
func (p *Pin) detach(link ID) { delete(p.links, link) }

// propagate copies src's value into dst following the destination policy:
// numbers clamp into dst's own range, colors and textures copy verbatim.
func propagate(src, dst *Pin) {
	switch dst.Type {
	case Integer:
		dst.SetInt(src.Int.Val)
	case Float:
		dst.SetFloat(src.Float.Val)
	case Color:
		dst.Color = src.Color
	case Texture:
		dst.Texture = src.Texture
	}
}

func clampFloat(v, lo, hi float32) float32 {
	if v != v {
		return lo
	}
	return min(max(v, lo), hi)
}
