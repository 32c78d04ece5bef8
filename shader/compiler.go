package shader

import "github.com/gogpu/freska/internal/cache"

// DefaultCacheSize is the number of compiled modules a Compiler keeps.
const DefaultCacheSize = 64

// Compiler compiles WGSL to SPIR-V and caches the result by source text.
//
// Compiler is safe for concurrent use.
type Compiler struct {
	modules *cache.Cache[string, []uint32]
}

// NewCompiler creates a compiler caching up to size modules.
// A size of 0 selects DefaultCacheSize.
func NewCompiler(size int) *Compiler {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Compiler{modules: cache.New[string, []uint32](size)}
}

// Compile returns the SPIR-V words for src, compiling on first use.
// Failed compilations are not cached.
func (c *Compiler) Compile(src string) ([]uint32, error) {
	return c.modules.GetOrLoad(src, func() ([]uint32, error) {
		return Compile(src)
	})
}

// Stats returns cache hits and misses.
func (c *Compiler) Stats() (hits, misses uint64) {
	s := c.modules.Stats()
	return s.Hits, s.Misses
}

// Len returns the number of cached modules.
func (c *Compiler) Len() int {
	return c.modules.Len()
}
