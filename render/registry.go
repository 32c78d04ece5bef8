package render

import (
	"fmt"
	"sort"
	"sync"
)

// Backend names.
const (
	// BackendGPU is the wgpu backend registered by render/gpu.
	BackendGPU = "gpu"

	// BackendSoftware is the CPU backend in this package.
	BackendSoftware = "software"
)

// Compiler validates WGSL and compiles it to SPIR-V. *shader.Compiler
// implements it.
type Compiler interface {
	Compile(wgsl string) ([]uint32, error)
}

// Options are handed to backend factories by Open and Default.
type Options struct {
	// Compiler is shared by every program of the backend. Nil leaves the
	// backend at its default.
	Compiler Compiler

	// Validate makes backends that do not compile shaders (software) still
	// run every program source through Compiler.
	Validate bool
}

// OpenOption configures Open and Default.
type OpenOption func(*Options)

// WithCompiler shares c with the opened backend.
func WithCompiler(c Compiler) OpenOption {
	return func(o *Options) { o.Compiler = c }
}

// WithValidation turns shader validation on the software backend on or off.
func WithValidation(on bool) OpenOption {
	return func(o *Options) { o.Validate = on }
}

func buildOptions(opts []OpenOption) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Factory creates a new backend instance.
type Factory func(opts Options) (Backend, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	backendPriority = []string{BackendGPU, BackendSoftware}
)

func init() {
	Register(BackendSoftware, func(opts Options) (Backend, error) {
		if !opts.Validate || opts.Compiler == nil {
			return NewSoftware(), nil
		}
		return NewSoftware(WithValidator(func(src string) error {
			_, err := opts.Compiler.Compile(src)
			return err
		})), nil
	})
}

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open creates a backend by name. The name "auto" (or "") selects Default.
func Open(name string, opts ...OpenOption) (Backend, error) {
	if name == "" || name == "auto" {
		return Default(opts...)
	}
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	b, err := factory(buildOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("render: open %s backend: %w", name, err)
	}
	return b, nil
}

// Default returns the best available backend based on priority.
// Priority order: gpu > software. A backend whose factory fails is skipped.
func Default(opts ...OpenOption) (Backend, error) {
	o := buildOptions(opts)
	registryMu.RLock()
	factories := make([]Factory, 0, len(backendPriority))
	names := make([]string, 0, len(backendPriority))
	for _, name := range backendPriority {
		if f, ok := backends[name]; ok {
			factories = append(factories, f)
			names = append(names, name)
		}
	}
	registryMu.RUnlock()

	for i, f := range factories {
		b, err := f(o)
		if err != nil {
			slogger().Warn("render: backend unavailable, trying next", "backend", names[i], "err", err)
			continue
		}
		return b, nil
	}
	return nil, ErrBackendNotAvailable
}
