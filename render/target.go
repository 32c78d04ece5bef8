// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Texture is a GPU-side image stored in Texture pins.
//
// Textures are shared by reference: propagating a Texture pin copies the
// handle, not the pixels. A nil Texture is the empty value, and a released
// texture reports zero dimensions.
type Texture interface {
	// Width and Height of the texture in pixels.
	gpucontext.Texture

	// UpdateData uploads tightly packed RGBA8 pixels.
	gpucontext.TextureUpdater

	// Format returns the pixel format of the texture.
	Format() gputypes.TextureFormat

	// Release frees the GPU resources. Safe to call more than once.
	Release()
}

// Ready reports whether t holds a usable image.
func Ready(t Texture) bool {
	return t != nil && t.Width() > 0 && t.Height() > 0
}

// RenderTarget is an offscreen image a Program draws into.
//
// The texture returned by Texture stays the same for the lifetime of the
// target, so it can be handed to downstream pins once and redrawn every frame.
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Texture returns the texture backing the target.
	Texture() Texture

	// Release frees the target and its texture.
	Release()
}

// TextureDescriptor describes parameters for creating a texture.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	// Width is the texture width in pixels.
	Width int

	// Height is the texture height in pixels.
	Height int
}

// TextureFormat is the single pixel format used by freska textures.
const TextureFormat = gputypes.TextureFormatRGBA8Unorm

// BytesPerPixel is the size of one TextureFormat pixel.
const BytesPerPixel = 4

func validSize(width, height int) bool {
	return width > 0 && height > 0
}
