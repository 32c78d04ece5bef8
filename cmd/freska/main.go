// Command freska runs the node compositor headless and inspects its
// templates.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "freska:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "freska",
		Short:         "Node-based compositor for real-time video effects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (yaml, toml or json)")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newTemplatesCmd(&configPath),
		newShadersCmd(&configPath),
	)
	return rootCmd
}
