package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/freska/graph"
	"github.com/gogpu/freska/nodes"
)

func newTemplatesCmd(configPath *string) *cobra.Command {
	var templatesPath string
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List node templates and their pins",
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
			reg, err := nodes.NewRegistry(nodes.Env{}, effects...)
			if err != nil {
				return err
			}
			return listTemplates(cmd.OutOrStdout(), reg)
		},
	}
	cmd.Flags().StringVar(&templatesPath, "templates", "", "HCL effect file or directory")
	return cmd
}

func listTemplates(w io.Writer, reg *graph.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range reg.Names() {
		t, _ := reg.Lookup(name)
		fmt.Fprintf(tw, "%s\n", t.Name)
		for _, p := range t.Pins {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", p.Name, p.Kind, p.Type, pinValue(p))
		}
	}
	return tw.Flush()
}

func pinValue(p graph.Pin) string {
	switch p.Type {
	case graph.Integer:
		return fmt.Sprintf("%d [%d, %d]", p.Int.Val, p.Int.Min, p.Int.Max)
	case graph.Float:
		return fmt.Sprintf("%g [%g, %g]", p.Float.Val, p.Float.Min, p.Float.Max)
	case graph.Color:
		return fmt.Sprintf("(%g, %g, %g)", p.Color[0], p.Color[1], p.Color[2])
	default:
		return ""
	}
}
