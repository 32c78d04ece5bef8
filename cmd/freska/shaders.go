package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/freska/nodes"
	"github.com/gogpu/freska/render"
	"github.com/gogpu/freska/shader"
)

var errShaderCheck = errors.New("shader check failed")

func newShadersCmd(configPath *string) *cobra.Command {
	shadersCmd := &cobra.Command{
		Use:   "shaders",
		Short: "Shader operations",
	}

	var templatesPath string
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate and compile every effect shader with naga",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("templates") {
				cfg.Templates = templatesPath
			}
			effects, err := loadEffects(cfg.Templates)
			if err != nil {
				return err
			}
			return checkShaders(cmd.OutOrStdout(), append(nodes.Effects(), effects...))
		},
	}
	checkCmd.Flags().StringVar(&templatesPath, "templates", "", "HCL effect file or directory")

	shadersCmd.AddCommand(checkCmd)
	return shadersCmd
}

// checkShaders compiles the module of every effect to SPIR-V and reports
// one line per effect.
func checkShaders(w io.Writer, effects []nodes.Effect) error {
	compiler := shader.NewCompiler(len(effects))
	failed := 0
	for i := range effects {
		e := &effects[i]
		if err := checkEffect(compiler, e); err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %-24s %v\n", e.Name, err)
			continue
		}
		fmt.Fprintf(w, "ok    %-24s %s\n", e.Name, e.Label)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d effects", errShaderCheck, failed, len(effects))
	}
	return nil
}

func checkEffect(compiler *shader.Compiler, e *nodes.Effect) error {
	src, err := e.Module()
	if err != nil {
		return err
	}
	report, err := shader.Analyze(src)
	if err != nil {
		return err
	}
	if !report.Has(render.VertexEntryPoint, shader.StageVertex) {
		return fmt.Errorf("missing vertex entry point %s", render.VertexEntryPoint)
	}
	if !report.Has(render.FragmentEntryPoint, shader.StageFragment) {
		return fmt.Errorf("missing fragment entry point %s", render.FragmentEntryPoint)
	}
	_, err = compiler.Compile(src)
	return err
}
