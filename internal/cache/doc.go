// Package cache provides a generic LRU cache.
//
// freska uses it to keep compiled shader modules keyed by their WGSL source,
// so building the same effect template twice compiles once.
//
//	c := cache.New[string, []uint32](64)
//	spirv, err := c.GetOrLoad(src, func() ([]uint32, error) {
//	    return compile(src)
//	})
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
