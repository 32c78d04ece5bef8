// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render defines the GPU collaborator used by freska processing
// nodes: textures, offscreen render targets and full-screen shader programs.
//
// The graph engine never talks to a graphics API directly. Execution contexts
// receive a Backend and use it to allocate textures, compile a program once,
// bind pin values as uniforms and draw one full-screen pass per frame.
//
// # Key Principle
//
// freska RECEIVES a GPU device from the host application, it does NOT own the
// window or the context. The wgpu implementation in render/gpu accepts any
// DeviceHandle (gpucontext.DeviceProvider); the CPU implementation in this
// package needs nothing and runs Go kernels in place of fragment shaders.
//
// # Core Interfaces
//
//   - Backend: allocates textures, render targets and programs
//   - Program: a compiled vertex+fragment pair with named uniforms
//   - Texture: an opaque image handle stored in Texture pins (nil is empty)
//   - RenderTarget: an offscreen image a program draws into
//
// # Uniform Layout
//
// Program parameters are declared as a list of Param values. Layout turns
// that list into a WGSL prelude (a Params uniform struct, a sampler and one
// texture binding per texture parameter) plus the byte offsets used to fill
// the uniform buffer, following WGSL alignment rules.
//
// # Backends
//
// Backends register themselves by name (see Register). The software backend
// is always available; render/gpu registers "gpu" when imported.
package render
