// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package freska is a node-based compositor for real-time video effects.
//
// # Overview
//
// A [graph.Graph] holds nodes created from templates, typed pins and links
// between them. A [Compositor] owns the graph and a [render.Backend] and
// re-evaluates the graph once per frame: every node computes, and every link
// copies its output pin value into the input pin at its other end.
//
// Built-in templates live in package nodes: a Video Source producer fed by a
// capture device, and shader effects (Color Correction, Color Quantization,
// Color Outline) rendering into lazily allocated render targets. More shader
// effects can be loaded from HCL files with [nodes.LoadEffects].
//
// # Quick Start
//
//	backend, _ := render.Open("auto")
//	opener, _ := capture.Open("pattern", capture.Options{Width: 640, Height: 480})
//	reg, _ := nodes.NewRegistry(nodes.Env{Backend: backend, Capture: opener})
//
//	c, _ := freska.New(backend, reg, freska.WithOwnedBackend())
//	defer c.Close()
//
//	chain, _ := c.Chain(nodes.VideoSourceName, nodes.ColorCorrectionName)
//	_ = c.Run(ctx, 30)
//	img, _ := c.Snapshot(chain[len(chain)-1].ID)
//
// # Threading
//
// The graph is not locked. The compositor serializes frames and the
// functions passed to [Compositor.Do], so node and link edits made through
// Do never overlap an evaluation pass. Capture producers run on their own
// goroutines and hand frames over under a private mutex.
//
// # Backends
//
// The software backend runs Go kernels on the CPU and is always available.
// Importing render/gpu registers the wgpu backend, which "auto" prefers.
package freska

// Version is the current version of freska.
const Version = "0.1.0"
