package render

import (
	"errors"
	"image"
)

// Errors returned by backends and programs.
var (
	// ErrInvalidDimensions is returned when a texture or target size is not positive.
	ErrInvalidDimensions = errors.New("render: invalid dimensions")

	// ErrReleased is returned when using a released program, texture or target.
	ErrReleased = errors.New("render: resource released")

	// ErrUnknownUniform is returned by SetUniform for an undeclared parameter.
	ErrUnknownUniform = errors.New("render: unknown uniform")

	// ErrUniformKind is returned by SetUniform when the value does not match
	// the declared parameter kind.
	ErrUniformKind = errors.New("render: uniform kind mismatch")

	// ErrReadbackUnsupported is returned by ReadPixels when the backend or
	// texture cannot be copied back to CPU memory.
	ErrReadbackUnsupported = errors.New("render: readback unsupported")

	// ErrBackendNotAvailable is returned when no registered backend matches.
	ErrBackendNotAvailable = errors.New("render: backend not available")
)

// ProgramDescriptor describes a full-screen shader program.
type ProgramDescriptor struct {
	// Label names the program. The software backend selects its kernel by label.
	Label string

	// VertexSource is the WGSL vertex stage. Empty selects FullscreenVertex.
	VertexSource string

	// FragmentSource is the WGSL fragment stage. It must define fs_main and
	// may reference params, frame_sampler and every texture parameter.
	FragmentSource string

	// Params declares the program parameters in binding order.
	Params []Param
}

// Backend is the GPU collaborator used by processing nodes.
//
// Backend methods, and the methods of the resources it creates, are called
// from the single mutation/evaluation goroutine.
type Backend interface {
	// Name returns the backend identifier (e.g. "software", "gpu").
	Name() string

	// CreateTexture allocates an RGBA8 texture.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateRenderTarget allocates an offscreen target.
	CreateRenderTarget(width, height int) (RenderTarget, error)

	// CreateProgram compiles a vertex/fragment pair.
	CreateProgram(desc ProgramDescriptor) (Program, error)

	// Close releases backend-wide resources.
	Close() error
}

// Program is a compiled full-screen shader.
type Program interface {
	// Label returns the descriptor label.
	Label() string

	// Layout returns the parameter layout of the program.
	Layout() *Layout

	// SetUniform binds a value to a declared parameter. The value is used by
	// every subsequent Draw until replaced.
	SetUniform(name string, value Uniform) error

	// Draw renders one full-screen pass into target.
	Draw(target RenderTarget) error

	// Release frees the program. Safe to call more than once.
	Release()
}

// Readback is implemented by backends that can copy a texture to CPU memory.
type Readback interface {
	ReadPixels(t Texture) (*image.RGBA, error)
}

// ReadPixels copies t into an image using b when it supports readback.
func ReadPixels(b Backend, t Texture) (*image.RGBA, error) {
	rb, ok := b.(Readback)
	if !ok {
		return nil, ErrReadbackUnsupported
	}
	if !Ready(t) {
		return nil, ErrReleased
	}
	return rb.ReadPixels(t)
}
