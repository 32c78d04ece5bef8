// Package nodes provides the executors and templates of the built-in freska
// nodes.
//
// A VideoSource owns a capture device and a producer goroutine that keeps
// the latest frame in CPU memory; each Compute uploads it to a texture. A
// ShaderEffect owns a render program and a render target; each Compute binds
// the node's pins as shader parameters and draws.
//
// Effects are declared with Effect. The three built-in effects (color
// correction, color quantization and color outline) ship their WGSL with the
// package, and more can be loaded from HCL files with LoadEffects:
//
//	effect "Invert" {
//	  shader = "invert.wgsl"
//
//	  pin "frame" {
//	    type = "texture"
//	    kind = "input"
//	  }
//	  pin "frame" {
//	    type = "texture"
//	    kind = "output"
//	  }
//	}
package nodes
