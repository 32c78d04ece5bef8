// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import "fmt"

// ParamKind is the shader-side type of a program parameter.
type ParamKind uint8

const (
	// ParamInt is a WGSL i32 uniform.
	ParamInt ParamKind = iota

	// ParamFloat is a WGSL f32 uniform.
	ParamFloat

	// ParamVec3 is a WGSL vec3<f32> uniform.
	ParamVec3

	// ParamTexture is a texture_2d<f32> binding sampled with the shared sampler.
	ParamTexture
)

// String returns the WGSL spelling of the parameter type.
func (k ParamKind) String() string {
	switch k {
	case ParamInt:
		return "i32"
	case ParamFloat:
		return "f32"
	case ParamVec3:
		return "vec3<f32>"
	case ParamTexture:
		return "texture_2d<f32>"
	default:
		return fmt.Sprintf("ParamKind(%d)", k)
	}
}

// Param declares one named program parameter.
type Param struct {
	Name string
	Kind ParamKind
}

// Uniform is a value bound to a program parameter.
// The concrete types are Int, Float, Vec3 and Sampler.
type Uniform interface {
	Kind() ParamKind
}

// Int binds an i32 parameter.
type Int int32

// Float binds an f32 parameter.
type Float float32

// Vec3 binds a vec3<f32> parameter.
type Vec3 [3]float32

// Sampler binds a texture parameter. A nil Texture binds nothing and the
// backend samples transparent black.
type Sampler struct {
	Texture Texture
}

// Kind implements Uniform.
func (Int) Kind() ParamKind { return ParamInt }

// Kind implements Uniform.
func (Float) Kind() ParamKind { return ParamFloat }

// Kind implements Uniform.
func (Vec3) Kind() ParamKind { return ParamVec3 }

// Kind implements Uniform.
func (Sampler) Kind() ParamKind { return ParamTexture }
