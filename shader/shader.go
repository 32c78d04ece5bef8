// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader checks and compiles the WGSL used by freska effect nodes.
//
// Compilation goes through naga, a pure Go WGSL compiler, so shaders can be
// verified without a GPU:
//
//	if err := shader.Validate(src); err != nil {
//	    // reject the effect template
//	}
//	spirv, err := shader.Compile(src)
package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrEmptySource is returned for blank WGSL input.
var ErrEmptySource = errors.New("shader: empty source")

// Stage is the pipeline stage of an entry point.
type Stage string

// Stages reported by Analyze.
const (
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
	StageCompute  Stage = "compute"
	StageOther    Stage = "other"
)

// EntryPoint names one shader entry point.
type EntryPoint struct {
	Name  string
	Stage Stage
}

// Report describes a successfully checked module.
type Report struct {
	EntryPoints []EntryPoint
}

// Has reports whether the module defines name for stage.
func (r Report) Has(name string, stage Stage) bool {
	for _, ep := range r.EntryPoints {
		if ep.Name == name && ep.Stage == stage {
			return true
		}
	}
	return false
}

// Analyze parses, lowers and validates src and lists its entry points.
// All validation errors are returned joined.
func Analyze(src string) (Report, error) {
	if strings.TrimSpace(src) == "" {
		return Report{}, ErrEmptySource
	}
	ast, err := naga.Parse(src)
	if err != nil {
		return Report{}, fmt.Errorf("shader: %w", err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return Report{}, fmt.Errorf("shader: lower: %w", err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return Report{}, fmt.Errorf("shader: validate: %w", err)
	}
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i := range verrs {
			errs[i] = verrs[i]
		}
		return Report{}, fmt.Errorf("shader: validation failed: %w", errors.Join(errs...))
	}

	var r Report
	for _, ep := range module.EntryPoints {
		r.EntryPoints = append(r.EntryPoints, EntryPoint{Name: ep.Name, Stage: stageOf(ep.Stage)})
	}
	return r, nil
}

// Validate reports whether src is a valid WGSL module.
func Validate(src string) error {
	_, err := Analyze(src)
	return err
}

// Compile compiles WGSL source to SPIR-V words.
func Compile(src string) ([]uint32, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmptySource
	}
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	return Words(spirvBytes), nil
}

// Words converts a SPIR-V byte stream to little-endian 32-bit words.
// Trailing bytes that do not fill a word are dropped.
func Words(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}

func stageOf(s ir.ShaderStage) Stage {
	switch s {
	case ir.StageVertex:
		return StageVertex
	case ir.StageFragment:
		return StageFragment
	case ir.StageCompute:
		return StageCompute
	default:
		return StageOther
	}
}
