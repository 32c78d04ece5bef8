//go:build !nogpu

package main

import _ "github.com/gogpu/freska/render/gpu" // register the wgpu backend
