package main

import (
	"github.com/gogpu/freska/internal/config"
	"github.com/gogpu/freska/render"
	"github.com/gogpu/freska/shader"
)

// openBackend opens the configured backend through the render registry.
// "auto" prefers the GPU and falls back to software. Builds tagged nogpu
// register only the software backend.
func openBackend(cfg *config.Config) (render.Backend, error) {
	return render.Open(cfg.Backend,
		render.WithCompiler(shader.NewCompiler(cfg.Shaders.CacheSize)),
		render.WithValidation(cfg.Shaders.Validate),
	)
}
